package wstrust

import "github.com/rs/zerolog"

// Credential is a username/password pair destined for a UsernameToken
// header. It is held only long enough to render the envelope; neither the
// tool nor this package persists it anywhere else.
type Credential struct {
	Username string
	Password string // may be empty, some STS policies allow it
}

// String implements fmt.Stringer with the password redacted, so a Credential
// that ends up in an error message or a %v log line never leaks the secret.
func (c Credential) String() string {
	return c.Username + ":********"
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler with the same
// redaction.
func (c Credential) MarshalZerologObject(e *zerolog.Event) {
	e.Str("username", c.Username).Str("password", "********")
}
