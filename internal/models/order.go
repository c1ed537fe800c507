package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"orderdesk/internal/utils"
)

type OrderStatus string

const (
	OrderStatusReview     OrderStatus = "REVIEW"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusCompleted  OrderStatus = "COMPLETED"
)

type Order struct {
	ID             string         `gorm:"primaryKey;size:21" json:"id"`
	Description    string         `gorm:"type:text;not null" json:"description"`
	Specifications datatypes.JSON `gorm:"type:json;not null" json:"specifications"`
	Quantity       int            `gorm:"not null" json:"quantity"`
	Metadata       datatypes.JSON `gorm:"type:json" json:"metadata,omitempty"`
	Status         OrderStatus    `gorm:"type:varchar(20);not null" json:"status"`
	UserID         string         `gorm:"size:21;not null;index" json:"userID"`
	User           User           `gorm:"foreignKey:UserID" json:"-"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) (err error) {
	if o.ID == "" {
		o.ID, err = utils.GenerateNanoID()
	}
	return
}
