package model

import (
	"time"
)

type User struct {
	ID                uint       `gorm:"primaryKey"`
	Email             string     `gorm:"column:email;unique;not null"`
	Password          string     `gorm:"column:password;not null"`
	VerificationToken string     `gorm:"column:verification_token;default:null;index:idx_users_verification_token,where:verification_token IS NOT NULL"`
	ResetToken        string     `gorm:"column:reset_token;default:null;index:idx_users_reset_token,where:reset_token IS NOT NULL"`
	ResetTokenExpires *time.Time `gorm:"column:reset_token_expires;default:null"`
	IsVerified        bool       `gorm:"column:is_verified;default:false;not null"`
	LastLogin         time.Time  `gorm:"column:last_login"`
	CreatedAt         time.Time  `gorm:"column:created_at"`
	UpdatedAt         time.Time  `gorm:"column:updated_at"`
}
