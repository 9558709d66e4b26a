package goSession

import (
	"net/http"
	"sync/atomic"

	"github.com/MrEthical07/goSession/internal/lifecycle"
	"github.com/MrEthical07/goSession/session"
)

// Authorization is the credential set attached to outgoing requests for the active
// session.
type Authorization struct {
	Kind      session.Kind
	SessionID string
	Header    http.Header
}

// Apply sets every credential header on h, replacing existing values.
func (a Authorization) Apply(h http.Header) {
	for name, values := range a.Header {
		h[name] = append([]string(nil), values...)
	}
}

// authSlot holds the installed Authorization. Install replaces; it never stacks.
type authSlot struct {
	headers HeadersConfig
	current atomic.Pointer[Authorization]
}

func (s *authSlot) Install(a lifecycle.Active) {
	auth := buildAuthorization(s.headers, a)
	s.current.Store(&auth)
}

func (s *authSlot) Uninstall() {
	s.current.Store(nil)
}

func (s *authSlot) Load() (Authorization, bool) {
	p := s.current.Load()
	if p == nil {
		return Authorization{}, false
	}
	return *p, true
}

func buildAuthorization(h HeadersConfig, a lifecycle.Active) Authorization {
	header := make(http.Header, 2)

	switch c := a.Credentials.(type) {
	case session.AdminCredentials:
		scheme := c.TokenType
		if scheme == "" {
			scheme = h.AuthScheme
		}
		if scheme == "" {
			scheme = session.DefaultTokenType
		}
		header.Set(h.Authorization, scheme+" "+c.AccessToken)
	case session.UserIdentity:
		header.Set(h.ClientID, c.Client.ID)
		header.Set(h.UserEmail, c.Email)
	}

	return Authorization{
		Kind:      a.Record.Kind,
		SessionID: a.Record.SessionID,
		Header:    header,
	}
}
