package config

import (
	"errors"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/jrsteele09/go-token-session/internal/utils"
)

const (
	DefaultServerTokenEndpoint        = "/api-token-auth/"
	DefaultServerTokenRefreshEndpoint = "/api-token-refresh/"
	DefaultIdentificationField        = "username"
	DefaultTokenPropertyName          = "token"
	DefaultTokenExpireFieldName       = "exp"
	DefaultRefreshLeeway              = 5 * time.Second
	DefaultRequestTimeout             = 30 * time.Second
	DefaultAuthorizationHeaderName    = "Authorization"
	DefaultAuthorizationPrefix        = "Bearer "
)

type AuthConfig interface {
	GetServerURL() string
	GetServerTokenEndpoint() string
	GetServerTokenRefreshEndpoint() string
	GetIdentificationField() string
	GetTokenPropertyName() string
	GetTokenExpireFieldName() string
	GetRefreshAccessTokens() bool
	GetRefreshLeeway() time.Duration
	GetRequestTimeout() time.Duration
	GetHeaders() Headers
	GetAuthorizationHeaderName() string
	GetAuthorizationPrefix() string
}

// Headers are extra request headers sent with every token and refresh request.
type Headers map[string]string

func (h Headers) Clone() Headers {
	c := make(Headers, len(h))
	for k, v := range h {
		c[k] = v
	}
	return c
}

func (h Headers) String() string {
	names := make([]string, 0, len(h))
	for k := range h {
		names = append(names, k)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// Auth holds the authenticator settings. Values are copied into the
// authenticator at construction and never mutated afterwards.
type Auth struct {
	ServerURL                  string         `yaml:"server_url"`
	ServerTokenEndpoint        string         `yaml:"server_token_endpoint"`
	ServerTokenRefreshEndpoint string         `yaml:"server_token_refresh_endpoint"`
	IdentificationField        string         `yaml:"identification_field"`
	TokenPropertyName          string         `yaml:"token_property_name"`
	TokenExpireFieldName       string         `yaml:"token_expire_field_name"`
	RefreshAccessTokens        *bool          `yaml:"refresh_access_tokens"`
	RefreshLeeway              *time.Duration `yaml:"refresh_leeway"`
	RequestTimeout             time.Duration  `yaml:"request_timeout"`
	Headers                    Headers        `yaml:"headers"`
	AuthorizationHeaderName    string         `yaml:"authorization_header_name"`
	AuthorizationPrefix        string         `yaml:"authorization_prefix"`
}

var _ AuthConfig = Auth{}

// DefaultAuth returns an Auth with every field at its default.
func DefaultAuth() Auth {
	return applyAuthDefaults(Auth{})
}

func applyAuthDefaults(a Auth) Auth {
	if a.ServerTokenEndpoint == "" {
		a.ServerTokenEndpoint = DefaultServerTokenEndpoint
	}
	if a.ServerTokenRefreshEndpoint == "" {
		a.ServerTokenRefreshEndpoint = DefaultServerTokenRefreshEndpoint
	}
	if a.IdentificationField == "" {
		a.IdentificationField = DefaultIdentificationField
	}
	if a.TokenPropertyName == "" {
		a.TokenPropertyName = DefaultTokenPropertyName
	}
	if a.TokenExpireFieldName == "" {
		a.TokenExpireFieldName = DefaultTokenExpireFieldName
	}
	if a.RefreshAccessTokens == nil {
		a.RefreshAccessTokens = utils.Ptr(true)
	}
	if a.RefreshLeeway == nil {
		a.RefreshLeeway = utils.Ptr(DefaultRefreshLeeway)
	}
	if a.RequestTimeout == 0 {
		a.RequestTimeout = DefaultRequestTimeout
	}
	if a.AuthorizationHeaderName == "" {
		a.AuthorizationHeaderName = DefaultAuthorizationHeaderName
	}
	if a.AuthorizationPrefix == "" {
		a.AuthorizationPrefix = DefaultAuthorizationPrefix
	}
	return a
}

// Validate reports settings the authenticator cannot work with.
func (a Auth) Validate() error {
	var errs []error
	if strings.TrimSpace(a.ServerTokenEndpoint) == "" {
		errs = append(errs, errors.New("server_token_endpoint is required"))
	}
	if a.GetRefreshAccessTokens() && strings.TrimSpace(a.ServerTokenRefreshEndpoint) == "" {
		errs = append(errs, errors.New("server_token_refresh_endpoint is required when refresh_access_tokens is enabled"))
	}
	if strings.TrimSpace(a.IdentificationField) == "" {
		errs = append(errs, errors.New("identification_field is required"))
	}
	if strings.TrimSpace(a.TokenPropertyName) == "" {
		errs = append(errs, errors.New("token_property_name is required"))
	}
	if strings.TrimSpace(a.TokenExpireFieldName) == "" {
		errs = append(errs, errors.New("token_expire_field_name is required"))
	}
	if a.GetRefreshLeeway() < 0 {
		errs = append(errs, errors.New("refresh_leeway must not be negative"))
	}
	if a.RequestTimeout < 0 {
		errs = append(errs, errors.New("request_timeout must not be negative"))
	}
	if a.ServerURL != "" {
		if u, err := url.Parse(a.ServerURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, errors.New("server_url must be an absolute URL"))
		}
	}
	return errors.Join(errs...)
}

func (a Auth) GetServerURL() string {
	return a.ServerURL
}

func (a Auth) GetServerTokenEndpoint() string {
	return a.ServerTokenEndpoint
}

func (a Auth) GetServerTokenRefreshEndpoint() string {
	return a.ServerTokenRefreshEndpoint
}

func (a Auth) GetIdentificationField() string {
	return a.IdentificationField
}

func (a Auth) GetTokenPropertyName() string {
	return a.TokenPropertyName
}

func (a Auth) GetTokenExpireFieldName() string {
	return a.TokenExpireFieldName
}

// GetRefreshAccessTokens defaults to true when unset.
func (a Auth) GetRefreshAccessTokens() bool {
	if a.RefreshAccessTokens == nil {
		return true
	}
	return *a.RefreshAccessTokens
}

// GetRefreshLeeway is how long before expiry the refresh fires.
func (a Auth) GetRefreshLeeway() time.Duration {
	if a.RefreshLeeway == nil {
		return DefaultRefreshLeeway
	}
	return *a.RefreshLeeway
}

func (a Auth) GetRequestTimeout() time.Duration {
	return a.RequestTimeout
}

func (a Auth) GetHeaders() Headers {
	return a.Headers.Clone()
}

func (a Auth) GetAuthorizationHeaderName() string {
	return a.AuthorizationHeaderName
}

func (a Auth) GetAuthorizationPrefix() string {
	return a.AuthorizationPrefix
}
