package auth

import (
	"github.com/hallgard/authgate/internal/domain/role"
	"github.com/hallgard/authgate/internal/domain/session"
	"github.com/hallgard/authgate/internal/domain/user"
)

// LoginRequest is the credential sign-in request body
type LoginRequest struct {
	Login    string             `json:"login"`
	Password string             `json:"password"`
	Device   session.DeviceInfo `json:"device"`
}

// SessionRequest carries a session id for the silent login, refresh and
// delete endpoints
type SessionRequest struct {
	SessionID string `json:"sessionId"`
}

// AuthData is the response of every successful sign-in flow
type AuthData struct {
	AccessToken string      `json:"accessToken"`
	Roles       []role.Role `json:"roles"`
	IsRoot      bool        `json:"isRoot"`
	SessionID   string      `json:"sessionId"`
}

// Identity is a freshly resolved user snapshot merged with the session id
// the presented token was bound to. SessionID is empty for legacy tokens.
type Identity struct {
	User      *user.User
	SessionID string
}
