package models

import (
	"time"

	"gorm.io/gorm"

	"orderdesk/internal/utils"
)

type UserRole string

const (
	RoleAdmin UserRole = "ADMIN"
	RoleUser  UserRole = "USER"
)

type User struct {
	ID        string    `gorm:"primaryKey;size:21" json:"id"`
	Email     string    `gorm:"type:varchar(255);not null;unique" json:"email"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Password  *string   `gorm:"type:varchar(255)" json:"-"`
	Role      UserRole  `gorm:"type:varchar(10);not null;default:USER" json:"role"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// UserSummary is the only user shape exposed by order and chat reads.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID, err = utils.GenerateNanoID()
	}
	return
}
