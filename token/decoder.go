package token

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	jwtlib "github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/go-token-session/internal/errors"
	"github.com/jrsteele09/go-token-session/internal/utils"
)

// DefaultExpireField is the registered JWT expiry claim.
const DefaultExpireField = "exp"

// ErrMalformed is returned for any token whose payload segment cannot be read.
var ErrMalformed = errors.New("malformed token")

// standard-alphabet payloads are accepted alongside base64url
var stdToURLAlphabet = strings.NewReplacer("+", "-", "/", "_")

// Decoder extracts claims from a dot-delimited bearer token. Only the payload
// segment is read: the signature is never verified here.
type Decoder struct {
	expireField string
	parser      *jwtlib.Parser
}

// NewDecoder returns a Decoder that reads expiry from expireField.
// An empty field name falls back to DefaultExpireField.
func NewDecoder(expireField string) *Decoder {
	if strings.TrimSpace(expireField) == "" {
		expireField = DefaultExpireField
	}
	return &Decoder{
		expireField: expireField,
		parser:      jwtlib.NewParser(jwtlib.WithPaddingAllowed()),
	}
}

// ExpireField returns the claim name the decoder reads expiry from.
func (d *Decoder) ExpireField() string {
	return d.expireField
}

// Decode returns the claims carried in segment 1 of raw. Numbers are kept as
// json.Number so large claims survive without float rounding.
func (d *Decoder) Decode(raw string) (jwtlib.MapClaims, error) {
	parts := strings.Split(strings.TrimSpace(raw), ".")
	if len(parts) < 2 || parts[1] == "" {
		return nil, fmt.Errorf("%w: missing payload segment", ErrMalformed)
	}

	payload, err := d.parser.DecodeSegment(stdToURLAlphabet.Replace(parts[1]))
	if err != nil {
		return nil, apperrors.Mark(ErrMalformed, apperrors.Wrapf(err, "decode payload segment"))
	}

	var claims jwtlib.MapClaims
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&claims); err != nil {
		return nil, apperrors.Mark(ErrMalformed, apperrors.Wrapf(err, "parse payload claims"))
	}
	if claims == nil {
		return nil, fmt.Errorf("%w: payload is not a claims object", ErrMalformed)
	}
	return claims, nil
}

// ExpiresAt returns the expiry claim as Unix seconds. ok is false when the
// claim is absent, which means the token does not expire.
func (d *Decoder) ExpiresAt(claims jwtlib.MapClaims) (exp int64, ok bool, err error) {
	v, present := claims[d.expireField]
	if !present || v == nil {
		return 0, false, nil
	}
	exp, err = utils.ToInt64(v)
	if err != nil {
		return 0, false, apperrors.Mark(ErrMalformed, apperrors.Wrapf(err, "claim %q", d.expireField))
	}
	return exp, true, nil
}

var defaultDecoder = NewDecoder(DefaultExpireField)

// Decode reads raw with the default decoder.
func Decode(raw string) (jwtlib.MapClaims, error) {
	return defaultDecoder.Decode(raw)
}
