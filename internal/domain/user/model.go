package user

import (
	"time"

	"github.com/hallgard/authgate/internal/domain/role"
)

// User is an identity record. The auth core never mutates users except
// through pairing auto-provisioning; admin CRUD lives elsewhere.
type User struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	Login        string      `gorm:"column:login;unique;not null" json:"login"`
	Password     string      `gorm:"column:password;not null" json:"-"`
	Name         string      `gorm:"column:name;not null" json:"name"`
	Email        string      `gorm:"column:email" json:"email"`
	TelegramID   *string     `gorm:"column:telegram_id;index" json:"telegramId"`
	TelegramName string      `gorm:"column:telegram_name" json:"telegramName"`
	IsRoot       bool        `gorm:"column:is_root;default:false" json:"isRoot"`
	IsBlocked    bool        `gorm:"column:is_blocked;default:false" json:"isBlocked"`
	IsDeleted    bool        `gorm:"column:is_deleted;default:false" json:"-"`
	CreatedAt    time.Time   `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt    time.Time   `gorm:"column:updated_at" json:"-"`
	Roles        []role.Role `gorm:"many2many:user_roles" json:"roles"`
}

func (User) TableName() string {
	return "users"
}

// RoleNames returns the names of the user's roles in declaration order
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}
