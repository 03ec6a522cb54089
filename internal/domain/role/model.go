package role

import "time"

// DefaultName is the role granted to auto-provisioned accounts
const DefaultName = "user"

// Role is a named set of privileges attached to users
type Role struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"column:name;unique;not null" json:"name"`
	Description string    `gorm:"column:description" json:"description"`
	IsBlocked   bool      `gorm:"column:is_blocked;default:false" json:"isBlocked"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"createdAt"`
}

func (Role) TableName() string {
	return "roles"
}
