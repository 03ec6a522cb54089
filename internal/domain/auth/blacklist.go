package auth

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// BlockedToken is a durably revoked token. The row's existence alone means
// the token must be rejected, regardless of its own signature validity.
type BlockedToken struct {
	ID        uint      `gorm:"primaryKey"`
	Token     string    `gorm:"column:token;unique;not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (BlockedToken) TableName() string {
	return "blocked_tokens"
}

// BlacklistRepository is the durable revocation list
type BlacklistRepository interface {
	Exists(token string) (bool, error)
	Insert(token string) error
	// Delete supports manual purging only; no normal flow removes tokens.
	Delete(token string) error
}

type blacklistRepository struct {
	db *gorm.DB
}

// NewBlacklistRepository creates a new blacklist repository
func NewBlacklistRepository(db *gorm.DB) BlacklistRepository {
	return &blacklistRepository{db}
}

func (r *blacklistRepository) Exists(token string) (bool, error) {
	var blocked BlockedToken
	err := r.db.Where("token = ?", token).First(&blocked).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *blacklistRepository) Insert(token string) error {
	return r.db.Create(&BlockedToken{Token: token}).Error
}

func (r *blacklistRepository) Delete(token string) error {
	return r.db.Where("token = ?", token).Delete(&BlockedToken{}).Error
}
