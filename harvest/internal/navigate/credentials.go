package navigate

import (
	"log/slog"
	"strings"
)

// Credentials is the email/password pair used by the sign-in step. It is
// never persisted and never logged in clear.
type Credentials struct {
	Email    string
	Password string
}

// Valid reports whether both fields are non-blank.
func (c *Credentials) Valid() bool {
	return c != nil && strings.TrimSpace(c.Email) != "" && c.Password != ""
}

// LogValue implements slog.LogValuer.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("email", c.Email),
		slog.String("password", "[redacted]"),
	)
}

// String never exposes the password.
func (c Credentials) String() string {
	return c.Email + ":[redacted]"
}
