package services

import (
	"errors"

	"gorm.io/gorm"

	"orderdesk/internal/models"
)

// AdminAssigner picks the admin who will handle a new order's chat
// room. Swapping the strategy (round-robin, least-loaded) must not
// change any other contract.
type AdminAssigner func(tx *gorm.DB) (models.User, error)

// FirstAvailableAdmin returns any user with the ADMIN role, with no
// load balancing.
func FirstAvailableAdmin(tx *gorm.DB) (models.User, error) {
	var admin models.User
	if err := tx.Where("role = ?", models.RoleAdmin).First(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return admin, ErrNoAdminAvailable
		}
		return admin, err
	}
	return admin, nil
}

// AssignAdmin is the strategy used by order creation.
var AssignAdmin AdminAssigner = FirstAvailableAdmin
