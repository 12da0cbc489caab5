package auth

import (
	"fmt"
	"net/url"
	"strings"
)

// CheckTransportSecurity is a pre-flight check run before credentials or
// tokens are sent. It returns ErrInsecureTransport for anything but https;
// callers log it and carry on.
func CheckTransportSecurity(endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("%w: %q cannot be parsed", ErrInsecureTransport, endpoint)
	}
	if !strings.EqualFold(u.Scheme, "https") {
		scheme := u.Scheme
		if scheme == "" {
			scheme = "relative"
		}
		return fmt.Errorf("%w: %s endpoint %q", ErrInsecureTransport, scheme, endpoint)
	}
	return nil
}

// resolveEndpoint joins endpoint onto serverURL. Absolute endpoints and an
// empty serverURL leave endpoint unchanged.
func resolveEndpoint(serverURL, endpoint string) string {
	if serverURL == "" {
		return endpoint
	}
	base, err := url.Parse(serverURL)
	if err != nil {
		return endpoint
	}
	ref, err := url.Parse(endpoint)
	if err != nil {
		return endpoint
	}
	return base.ResolveReference(ref).String()
}
