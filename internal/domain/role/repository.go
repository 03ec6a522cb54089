package role

import "gorm.io/gorm"

// Repository interface for role lookups
type Repository interface {
	FindByName(name string) (*Role, error)
	WithTx(tx *gorm.DB) Repository
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new role repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db}
}

func (r *repository) FindByName(name string) (*Role, error) {
	var role Role
	if err := r.db.Where("name = ?", name).First(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{tx}
}
