package auth

import "fmt"

const passwordField = "password"

// Credentials are what the user typed in.
type Credentials struct {
	Identification string
	Password       string
}

// requestBody builds {identificationField: identification, "password": password}.
func (c Credentials) requestBody(identificationField string) map[string]string {
	return map[string]string{
		identificationField: c.Identification,
		passwordField:       c.Password,
	}
}

// String keeps passwords out of logs.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{Identification: %q, Password: [REDACTED]}", c.Identification)
}
