package goSession

import (
	"github.com/MrEthical07/goSession/session"
)

// Identity is the principal behind the active session, for permission checks and
// display.
type Identity struct {
	Kind      session.Kind
	SessionID string
	// Subject is the JWT subject for admins and the client id for users.
	Subject  string
	Email    string
	Name     string
	Role     string
	ClientID string
	// Verified is true when the admin token signature was checked.
	Verified bool
}

// Identity describes the active principal. Admin details come from the access token
// claims; a token that cannot be inspected still yields the kind and session id.
func (m *Manager) Identity() (Identity, bool) {
	a, ok := m.lc.Snapshot()
	if !ok {
		return Identity{}, false
	}

	id := Identity{Kind: a.Record.Kind, SessionID: a.Record.SessionID}
	switch c := a.Credentials.(type) {
	case session.AdminCredentials:
		claims, err := m.inspector.Inspect(c.AccessToken)
		if err != nil {
			m.log.Debug("goSession: access token not inspectable", "session_id", id.SessionID, "error", err)
			return id, true
		}
		id.Subject = claims.Subject
		id.Email = claims.Email
		id.Name = claims.Name
		id.Role = claims.Role
		id.Verified = m.inspector.Verifying()
	case session.UserIdentity:
		id.Subject = c.Client.ID
		id.ClientID = c.Client.ID
		id.Email = c.Email
		id.Name = c.Client.Name
	}
	return id, true
}
