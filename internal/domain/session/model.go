package session

import "time"

// DeviceInfo describes the client a session was created for
type DeviceInfo struct {
	DeviceID   string `json:"deviceId"`
	DeviceName string `json:"deviceName"`
	DeviceType string `json:"deviceType,omitempty"`
	Browser    string `json:"browser,omitempty"`
	OS         string `json:"os,omitempty"`
}

// Session binds a session identifier to a user, role snapshot, device and
// expiry, independent of any access token.
type Session struct {
	ID        string     `json:"sessionId"`
	UserID    uint       `json:"userId"`
	Roles     []string   `json:"roles"`
	Device    DeviceInfo `json:"deviceInfo"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt time.Time  `json:"expiresAt"`
}
