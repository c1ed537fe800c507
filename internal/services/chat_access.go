package services

import (
	"errors"

	"gorm.io/gorm"

	"orderdesk/internal/models"
)

// GetChatRoomByOrder resolves the room paired with an order.
func GetChatRoomByOrder(db *gorm.DB, orderID string) (models.ChatRoom, error) {
	var room models.ChatRoom
	if err := db.Where("order_id = ?", orderID).First(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return room, ErrChatRoomNotFound
		}
		return room, err
	}
	return room, nil
}

// ValidateChatAccess decides admission into the live chat of an order.
// It is called at websocket admission time and again before any
// message write. A closed room admits nobody, the room's customer is
// always admitted, and any admin may join for hand-off coverage.
func ValidateChatAccess(db *gorm.DB, orderID, userID string) (bool, error) {
	room, err := GetChatRoomByOrder(db, orderID)
	if err != nil {
		return false, err
	}
	if room.Status == models.ChatRoomStatusClosed {
		return false, ErrChatRoomClosed
	}
	if room.UserID == userID {
		return true, nil
	}
	var user models.User
	if err := db.Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrUserNotFound
		}
		return false, err
	}
	return user.Role == models.RoleAdmin, nil
}
