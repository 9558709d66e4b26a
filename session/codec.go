package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Storage keys. The names are shared with other consumers of the same store and must not
// change.
const (
	KeyAdminToken     = "admin_token"
	KeyAdminSession   = "admin_session"
	KeyAdminLoginTime = "admin_login_time"

	KeyUserData      = "user_data"
	KeyUserSession   = "user_session"
	KeyUserLoginTime = "user_login_time"
	KeyUserEmail     = "user_email"
	KeyClientData    = "client_data"
	KeyClientEmail   = "client_email"
)

var (
	adminKeys = []string{KeyAdminToken, KeyAdminSession, KeyAdminLoginTime}
	userKeys  = []string{KeyUserData, KeyUserSession, KeyUserLoginTime, KeyUserEmail, KeyClientData, KeyClientEmail}
)

// Keys returns every storage key owned by kind, legacy mirrors included.
func Keys(kind Kind) []string {
	var src []string
	switch kind {
	case KindAdmin:
		src = adminKeys
	case KindUser:
		src = userKeys
	default:
		return nil
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}

// AllKeys returns the keys of both kinds.
func AllKeys() []string {
	return append(Keys(KindAdmin), Keys(KindUser)...)
}

func recordKey(kind Kind) string {
	if kind == KindAdmin {
		return KeyAdminSession
	}
	return KeyUserSession
}

func payloadKey(kind Kind) string {
	if kind == KindAdmin {
		return KeyAdminToken
	}
	return KeyUserData
}

func loginTimeKey(kind Kind) string {
	if kind == KindAdmin {
		return KeyAdminLoginTime
	}
	return KeyUserLoginTime
}

// storedRecord is the JSON shape of admin_session and user_session. Pointers tell a
// missing field apart from a zero one.
type storedRecord struct {
	SessionID string `json:"sessionId"`
	LoginTime *int64 `json:"loginTime"`
	ExpiresAt *int64 `json:"expiresAt"`
	UserType  string `json:"userType"`
}

var errMissingField = errors.New("missing field")

// EncodeRecord returns the JSON form of r.
func EncodeRecord(r Record) (string, error) {
	login, exp := r.LoginTime, r.ExpiresAt
	b, err := json.Marshal(storedRecord{
		SessionID: r.SessionID,
		LoginTime: &login,
		ExpiresAt: &exp,
		UserType:  string(r.Kind),
	})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeRecord parses and validates a stored record, requiring it to belong to kind.
func DecodeRecord(kind Kind, raw string) (Record, error) {
	var s storedRecord
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return Record{}, err
	}
	switch {
	case s.SessionID == "":
		return Record{}, fmt.Errorf("%w: sessionId", errMissingField)
	case s.LoginTime == nil:
		return Record{}, fmt.Errorf("%w: loginTime", errMissingField)
	case s.ExpiresAt == nil:
		return Record{}, fmt.Errorf("%w: expiresAt", errMissingField)
	}
	if Kind(s.UserType) != kind {
		return Record{}, fmt.Errorf("%w: userType %q under %s keys", ErrKindMismatch, s.UserType, kind)
	}

	r := Record{
		SessionID: s.SessionID,
		Kind:      kind,
		LoginTime: *s.LoginTime,
		ExpiresAt: *s.ExpiresAt,
	}
	if err := r.Validate(); err != nil {
		return Record{}, err
	}
	return r, nil
}

// encodeEntry renders the full key set for one session.
func encodeEntry(r Record, c Credentials) (map[string]string, error) {
	rec, err := EncodeRecord(r)
	if err != nil {
		return nil, err
	}

	out := map[string]string{
		recordKey(r.Kind):    rec,
		loginTimeKey(r.Kind): strconv.FormatInt(r.LoginTime, 10),
	}

	switch v := c.(type) {
	case AdminCredentials:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		out[KeyAdminToken] = string(b)
	case UserIdentity:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		client, err := json.Marshal(v.Client)
		if err != nil {
			return nil, err
		}
		out[KeyUserData] = string(b)
		out[KeyUserEmail] = v.Email
		out[KeyClientData] = string(client)
		// client_email mirrors the client's own address and is absent when it has none.
		if v.Client.Email != "" {
			out[KeyClientEmail] = v.Client.Email
		}
	default:
		return nil, fmt.Errorf("%w: unsupported payload %T", ErrMissingCredentials, c)
	}
	return out, nil
}

// decodePayload parses the credentials stored for kind.
func decodePayload(kind Kind, raw string) (Credentials, error) {
	switch kind {
	case KindAdmin:
		var c AdminCredentials
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			return nil, err
		}
		if err := c.Validate(); err != nil {
			return nil, err
		}
		return c, nil
	case KindUser:
		var u UserIdentity
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			return nil, err
		}
		if err := u.Validate(); err != nil {
			return nil, err
		}
		return u, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}
