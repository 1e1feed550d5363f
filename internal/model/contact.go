package model

import (
	"time"
)

// Contact belongs to exactly one User. Rows are never removed physically;
// deletion flips IsDeleted and every query must filter it out.
type Contact struct {
	ID          uint      `gorm:"primaryKey"`
	UserID      uint      `gorm:"column:user_id;not null;index:idx_contacts_user_id"`
	Name        string    `gorm:"column:name;not null"`
	Email       string    `gorm:"column:email;not null"`
	PhoneNumber string    `gorm:"column:phone_number;not null"`
	Address     string    `gorm:"column:address;type:text"`
	Timezone    string    `gorm:"column:timezone;default:'UTC';not null"`
	IsDeleted   bool      `gorm:"column:is_deleted;default:false;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;index:idx_contacts_created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}
