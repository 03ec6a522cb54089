package user

import "gorm.io/gorm"

// Repository interface for identity lookups. Soft-deleted users are
// invisible to every finder; the filter lives here and nowhere else.
type Repository interface {
	Create(user *User) error
	FindByID(id uint) (*User, error)
	FindByLogin(login string) (*User, error)
	FindByTelegramID(chatID string) (*User, error)
	Update(user *User) error
	WithTx(tx *gorm.DB) Repository
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new user repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db}
}

func (r *repository) visible() *gorm.DB {
	return r.db.Preload("Roles").Where("is_deleted = false")
}

func (r *repository) Create(user *User) error {
	return r.db.Create(user).Error
}

func (r *repository) FindByID(id uint) (*User, error) {
	var user User
	if err := r.visible().Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindByLogin(login string) (*User, error) {
	var user User
	if err := r.visible().Where("login = ?", login).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindByTelegramID(chatID string) (*User, error) {
	var user User
	if err := r.visible().Where("telegram_id = ?", chatID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) Update(user *User) error {
	return r.db.Save(user).Error
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{tx}
}
