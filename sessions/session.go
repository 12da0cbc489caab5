package sessions

import (
	"github.com/jrsteele09/go-token-session/internal/utils"
)

// Properties is the restorable session state: the token endpoint response,
// plus the expiry claim. A hosting session manager persists it as-is.
type Properties map[string]any

// Token returns the string stored under field, or "" when absent or not a string.
func (p Properties) Token(field string) string {
	s, _ := p[field].(string)
	return s
}

// HasToken reports whether field holds a non-empty token. This is the only
// validity test for a session.
func (p Properties) HasToken(field string) bool {
	return p.Token(field) != ""
}

// Int64 reads a numeric property, accepting any JSON number representation.
func (p Properties) Int64(field string) (int64, bool) {
	v, ok := p[field]
	if !ok || v == nil {
		return 0, false
	}
	n, err := utils.ToInt64(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Clone returns a shallow copy.
func (p Properties) Clone() Properties {
	c := make(Properties, len(p))
	for k, v := range p {
		c[k] = v
	}
	return c
}

// Merge returns a copy of p overlaid with every key from other.
func (p Properties) Merge(other map[string]any) Properties {
	c := p.Clone()
	for k, v := range other {
		c[k] = v
	}
	return c
}
