package model

import (
	"time"
)

type UserRole string

const (
	Student UserRole = "student"
	Admin   UserRole = "admin"
)

// swagger:model User
type User struct {
	BaseModel
	Email        string     `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"size:100;not null" json:"-"`
	FirstName    string     `gorm:"size:100" json:"firstName"`
	LastName     string     `gorm:"size:100" json:"lastName"`
	Role         UserRole   `gorm:"size:20;default:'student'" json:"role"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
}

func (User) TableName() string {
	return "users"
}
