package models

import (
	"time"

	"gorm.io/gorm"

	"orderdesk/internal/utils"
)

// Message is immutable once created; there is no edit or delete path.
type Message struct {
	ID         string    `gorm:"primaryKey;size:21" json:"id"`
	ChatRoomID string    `gorm:"size:21;not null;index" json:"chatRoomID"`
	ChatRoom   ChatRoom  `gorm:"foreignKey:ChatRoomID" json:"-"`
	UserID     string    `gorm:"size:21;not null;index" json:"userID"`
	User       User      `gorm:"foreignKey:UserID" json:"-"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	SenderName string    `gorm:"-" json:"senderName,omitempty"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID, err = utils.GenerateNanoID()
	}
	return
}
