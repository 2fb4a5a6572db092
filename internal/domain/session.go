package domain

import "time"

// Status is the authentication state of the current actor.
type Status int

const (
	StatusUnknown Status = iota
	StatusAuthenticated
	StatusUnauthenticated
)

func (s Status) String() string {
	switch s {
	case StatusAuthenticated:
		return "authenticated"
	case StatusUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// MarshalText lets Status render as its name in JSON.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Identity is the signed-in user.
type Identity struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	SessionID string `json:"session_id,omitempty"`
}

// Session is the authentication state exposed by the session monitor.
// Identity is only set when Status is StatusAuthenticated.
type Session struct {
	Status   Status    `json:"status"`
	Identity *Identity `json:"identity,omitempty"`
}

// OwnerID returns the active user id, or "" when not authenticated.
func (s Session) OwnerID() string {
	if s.Status != StatusAuthenticated || s.Identity == nil {
		return ""
	}
	return s.Identity.ID
}

// AuthEventType is the kind of event on the session channel.
type AuthEventType string

const (
	AuthSignedIn  AuthEventType = "SIGNED_IN"
	AuthSignedOut AuthEventType = "SIGNED_OUT"
)

// AuthEvent is published by the identity provider on sign-in and sign-out.
type AuthEvent struct {
	ID        string        `json:"id"`
	Type      AuthEventType `json:"type"`
	SessionID string        `json:"session_id"`
	UserID    string        `json:"user_id"`
	Label     string        `json:"label,omitempty"`
	At        time.Time     `json:"at"`
}
