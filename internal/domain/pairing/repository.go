package pairing

import "gorm.io/gorm"

// Repository interface for pairing records
type Repository interface {
	Create(authKey string) error
	FindByKey(authKey string) (*Pairing, error)
	AttachChat(id uint, chatID string) error
	WithTx(tx *gorm.DB) Repository
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new pairing repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db}
}

func (r *repository) Create(authKey string) error {
	return r.db.Create(&Pairing{AuthKey: authKey}).Error
}

func (r *repository) FindByKey(authKey string) (*Pairing, error) {
	var p Pairing
	if err := r.db.Where("auth_key = ?", authKey).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) AttachChat(id uint, chatID string) error {
	return r.db.Model(&Pairing{}).
		Where("id = ?", id).
		Update("chat_id", chatID).Error
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{tx}
}
