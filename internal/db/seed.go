package db

import (
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"orderdesk/internal/models"
)

// SeedAdmin creates the bootstrap admin if no admin exists yet.
// Order creation fails while the admin pool is empty, so a fresh
// deployment needs at least one.
func SeedAdmin(db *gorm.DB, email, name, password string) error {
	var count int64
	if err := db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	pwd := string(hash)
	admin := models.User{
		Email:    email,
		Name:     name,
		Password: &pwd,
		Role:     models.RoleAdmin,
	}
	return db.Create(&admin).Error
}
