package session

import (
	"fmt"
	"log/slog"
	"strings"
)

// Credentials is the per-kind payload used to authenticate outgoing requests.
//
// The set of implementations is closed: [AdminCredentials] and [UserIdentity]. Code that
// needs kind-specific behavior switches on the concrete type.
type Credentials interface {
	Kind() Kind
	Validate() error
	sealed()
}

// DefaultTokenType is the authorization scheme used when the token bundle names none.
const DefaultTokenType = "Bearer"

// AdminCredentials is the access/refresh token bundle issued to an operator.
type AdminCredentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
}

// Kind returns KindAdmin.
func (AdminCredentials) Kind() Kind { return KindAdmin }

func (AdminCredentials) sealed() {}

// Validate requires a non-blank access token.
func (c AdminCredentials) Validate() error {
	if strings.TrimSpace(c.AccessToken) == "" {
		return fmt.Errorf("%w: admin access token", ErrMissingCredentials)
	}
	return nil
}

// Scheme returns the authorization scheme, defaulting to Bearer.
func (c AdminCredentials) Scheme() string {
	if t := strings.TrimSpace(c.TokenType); t != "" {
		return t
	}
	return DefaultTokenType
}

// String redacts the tokens.
func (c AdminCredentials) String() string {
	return "AdminCredentials{" + c.Scheme() + " [redacted]}"
}

// LogValue keeps tokens out of structured logs.
func (c AdminCredentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("kind", string(KindAdmin)),
		slog.String("scheme", c.Scheme()),
		slog.Bool("has_refresh", c.RefreshToken != ""),
	)
}

// Client is the business client a user session acts for.
type Client struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Company string `json:"company,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

// UserIdentity is the payload of a user session: the client record plus the contact
// email the user signed in with.
type UserIdentity struct {
	Client Client `json:"client"`
	Email  string `json:"email"`
}

// Kind returns KindUser.
func (UserIdentity) Kind() Kind { return KindUser }

func (UserIdentity) sealed() {}

// Validate requires a client identifier and a contact email.
func (u UserIdentity) Validate() error {
	if strings.TrimSpace(u.Client.ID) == "" {
		return fmt.Errorf("%w: client id", ErrMissingCredentials)
	}
	if strings.TrimSpace(u.Email) == "" {
		return fmt.Errorf("%w: user email", ErrMissingCredentials)
	}
	return nil
}

// LogValue exposes the identifiers only.
func (u UserIdentity) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("kind", string(KindUser)),
		slog.String("client_id", u.Client.ID),
	)
}

// ValidateFor checks that c is present, belongs to kind, and carries its required
// fields. A nil c reports ErrMissingCredentials.
func ValidateFor(kind Kind, c Credentials) error {
	if c == nil {
		return fmt.Errorf("%w: nil payload", ErrMissingCredentials)
	}
	if c.Kind() != kind {
		return fmt.Errorf("%w: payload is %s, expected %s", ErrKindMismatch, c.Kind(), kind)
	}
	return c.Validate()
}
