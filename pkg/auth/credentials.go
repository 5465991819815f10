package auth

import (
	"errors"
	"fmt"
	"io"

	"github.com/entrhq/imagegen-mcp/pkg/config"
)

const redacted = "[REDACTED]"

// Secret holds a password. It prints and marshals as [REDACTED] so it cannot
// leak through logs or tool results; use Reveal to read it.
type Secret struct {
	b []byte
}

// NewSecret wraps s.
func NewSecret(s string) Secret {
	if s == "" {
		return Secret{}
	}
	return Secret{b: []byte(s)}
}

// Reveal returns the plaintext.
func (s Secret) Reveal() string {
	return string(s.b)
}

// Empty reports whether no secret is held.
func (s Secret) Empty() bool {
	return len(s.b) == 0
}

// Zero overwrites the held bytes.
func (s *Secret) Zero() {
	for i := range s.b {
		s.b[i] = 0
	}
	s.b = nil
}

func (s Secret) String() string {
	return redacted
}

func (s Secret) GoString() string {
	return redacted
}

// Format redacts the secret for every fmt verb.
func (s Secret) Format(f fmt.State, _ rune) {
	_, _ = io.WriteString(f, redacted)
}

func (s Secret) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redacted + `"`), nil
}

func (s Secret) MarshalText() ([]byte, error) {
	return []byte(redacted), nil
}

// Credentials are the account email and password used for one login attempt.
type Credentials struct {
	Email    string `json:"email"`
	Password Secret `json:"password"`
}

// ErrNoCredentials is returned when a login is attempted without both halves.
var ErrNoCredentials = errors.New("email and password are required")

// Valid reports whether both email and password are present.
func (c Credentials) Valid() bool {
	return c.Email != "" && !c.Password.Empty()
}

// Zero clears the password.
func (c *Credentials) Zero() {
	c.Password.Zero()
}

// ResolveCredentials picks credentials from explicit arguments first, then
// from the configuration (which carries ELEVENLABS_EMAIL/ELEVENLABS_PASSWORD).
// It returns nil unless both an email and a password are found.
func ResolveCredentials(email, password string, cfg *config.Config) *Credentials {
	if email == "" && cfg != nil {
		email = cfg.Email
	}
	if password == "" && cfg != nil {
		password = cfg.Password
	}
	if email == "" || password == "" {
		return nil
	}
	return &Credentials{Email: email, Password: NewSecret(password)}
}
