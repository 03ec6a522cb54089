package pairing

import "time"

// Pairing links a web login attempt to an external messaging identity.
// ChatID is nil until the bot confirms the handshake. A confirmed key is
// not consumed by login; see the service documentation.
type Pairing struct {
	ID        uint      `gorm:"primaryKey"`
	AuthKey   string    `gorm:"column:auth_key;type:uuid;unique;not null"`
	ChatID    *string   `gorm:"column:chat_id"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (Pairing) TableName() string {
	return "pairings"
}

// LinkResponse is the response to a pairing link request
type LinkResponse struct {
	Link string `json:"link"`
}

// ConfirmRequest is the bot's confirmation payload
type ConfirmRequest struct {
	AuthKey string `json:"authKey"`
	ChatID  string `json:"chatId"`
}

// LoginRequest exchanges a confirmed pairing key for a token
type LoginRequest struct {
	AuthKey string `json:"authKey"`
}

// TokenResponse carries the issued access token
type TokenResponse struct {
	AccessToken string `json:"accessToken"`
}
