package models

import (
	"time"

	"gorm.io/gorm"

	"orderdesk/internal/utils"
)

type ChatRoomStatus string

const (
	ChatRoomStatusOpen   ChatRoomStatus = "OPEN"
	ChatRoomStatusClosed ChatRoomStatus = "CLOSED"
)

// ChatRoom pairs one order with one admin and the ordering customer.
// The unique index on OrderID is what turns a concurrent duplicate
// create into a storage-level conflict.
type ChatRoom struct {
	ID             string         `gorm:"primaryKey;size:21" json:"id"`
	OrderID        string         `gorm:"size:21;not null;uniqueIndex" json:"orderID"`
	Order          Order          `gorm:"foreignKey:OrderID" json:"-"`
	AdminID        string         `gorm:"size:21;not null;index" json:"adminID"`
	Admin          User           `gorm:"foreignKey:AdminID" json:"-"`
	UserID         string         `gorm:"size:21;not null;index" json:"userID"`
	User           User           `gorm:"foreignKey:UserID" json:"-"`
	Status         ChatRoomStatus `gorm:"type:varchar(10);not null" json:"status"`
	ClosingSummary *string        `gorm:"type:text" json:"closingSummary,omitempty"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (c *ChatRoom) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID, err = utils.GenerateNanoID()
	}
	return
}
