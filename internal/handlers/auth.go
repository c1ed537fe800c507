package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"orderdesk/internal/models"
	"orderdesk/internal/utils"
)

// Shared request/response shapes for Swagger and tests.

type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type ProfileResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func issueTokens(db *gorm.DB, userID string, ttl map[string]time.Duration) (TokenResponse, error) {
	accessStr, err := utils.GenerateNanoID()
	if err != nil {
		return TokenResponse{}, err
	}
	refreshStr, err := utils.GenerateNanoID()
	if err != nil {
		return TokenResponse{}, err
	}
	access := models.Token{UserID: userID, Token: accessStr, Type: "access", ExpiresAt: time.Now().Add(ttl["access"])}
	refresh := models.Token{UserID: userID, Token: refreshStr, Type: "refresh", ExpiresAt: time.Now().Add(ttl["refresh"])}
	if err := db.Create(&access).Error; err != nil {
		return TokenResponse{}, err
	}
	if err := db.Create(&refresh).Error; err != nil {
		return TokenResponse{}, err
	}
	return TokenResponse{AccessToken: accessStr, RefreshToken: refreshStr}, nil
}

// Register godoc
// @Summary Sign up
// @Description Creates a user with a unique email and returns a token pair. Role defaults to USER.
// @Tags auth
// @Accept json
// @Produce json
// @Param input body RegisterRequest true "registration data"
// @Success 200 {object} TokenResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /auth/register [post]
func Register(db *gorm.DB, ttl map[string]time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		var r RegisterRequest
		if err := c.BindJSON(&r); err != nil || r.Email == "" || r.Name == "" || r.Password == "" {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
			return
		}
		role := models.RoleUser
		if r.Role != "" {
			switch models.UserRole(r.Role) {
			case models.RoleAdmin, models.RoleUser:
				role = models.UserRole(r.Role)
			default:
				c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid role"})
				return
			}
		}
		var count int64
		db.Model(&models.User{}).Where("email = ?", r.Email).Count(&count)
		if count > 0 {
			c.JSON(http.StatusConflict, ErrorResponse{Error: "email exists"})
			return
		}
		pwdHash, err := bcrypt.GenerateFromPassword([]byte(r.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "hash error"})
			return
		}
		pwd := string(pwdHash)
		user := models.User{Email: r.Email, Name: r.Name, Password: &pwd, Role: role}
		if err := db.Create(&user).Error; err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "db error"})
			return
		}
		tokens, err := issueTokens(db, user.ID, ttl)
		if err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "token error"})
			return
		}
		c.JSON(http.StatusOK, tokens)
	}
}

// Login godoc
// @Summary Sign in
// @Tags auth
// @Accept json
// @Produce json
// @Param input body LoginRequest true "credentials"
// @Success 200 {object} TokenResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/login [post]
func Login(db *gorm.DB, ttl map[string]time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		var r LoginRequest
		if err := c.BindJSON(&r); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
			return
		}
		var user models.User
		if err := db.Where("email = ?", r.Email).First(&user).Error; err != nil {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
			return
		}
		if user.Password == nil || bcrypt.CompareHashAndPassword([]byte(*user.Password), []byte(r.Password)) != nil {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
			return
		}
		tokens, err := issueTokens(db, user.ID, ttl)
		if err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "token error"})
			return
		}
		c.JSON(http.StatusOK, tokens)
	}
}

// Refresh godoc
// @Summary Rotate the token pair
// @Tags auth
// @Accept json
// @Produce json
// @Param input body RefreshRequest true "refresh token"
// @Success 200 {object} TokenResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/refresh [post]
func Refresh(db *gorm.DB, ttl map[string]time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		var r RefreshRequest
		if err := c.BindJSON(&r); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
			return
		}
		var token models.Token
		if err := db.Where("token = ? AND type = ?", r.RefreshToken, "refresh").First(&token).Error; err != nil {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid token"})
			return
		}
		if token.ExpiresAt.Before(time.Now()) {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "token expired"})
			return
		}
		db.Delete(&token)
		tokens, err := issueTokens(db, token.UserID, ttl)
		if err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "token error"})
			return
		}
		c.JSON(http.StatusOK, tokens)
	}
}

// Logout godoc
// @Summary Sign out
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} StatusResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/logout [post]
func Logout(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDVal, ok := c.Get("user_id")
		if !ok {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "no user"})
			return
		}
		userID, _ := userIDVal.(string)
		db.Where("user_id = ?", userID).Delete(&models.Token{})
		c.JSON(http.StatusOK, StatusResponse{Status: "ok"})
	}
}

// Profile godoc
// @Summary Current user profile
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} ProfileResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/profile [get]
func Profile(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDVal, ok := c.Get("user_id")
		if !ok {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "no user"})
			return
		}
		userID := userIDVal.(string)
		var user models.User
		if err := db.Where("id = ?", userID).First(&user).Error; err != nil {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid user"})
			return
		}
		c.JSON(http.StatusOK, ProfileResponse{ID: user.ID, Email: user.Email, Name: user.Name, Role: string(user.Role)})
	}
}

// AuthMiddleware resolves the bearer token into (user_id, user_role).
// Credentials are verified here once; handlers only authorize.
func AuthMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization"})
			return
		}
		tokenStr := parts[1]
		var token models.Token
		if err := db.Where("token = ? AND type = ?", tokenStr, "access").First(&token).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if token.ExpiresAt.Before(time.Now()) {
			db.Delete(&token)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token expired"})
			return
		}
		var user models.User
		if err := db.Where("id = ?", token.UserID).First(&user).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set("user_id", user.ID)
		c.Set("user_role", user.Role)
		c.Next()
	}
}

// RequireAdmin guards admin-only routes. Runs after AuthMiddleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		roleVal, ok := c.Get("user_role")
		if !ok || roleVal.(models.UserRole) != models.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) (id string, role models.UserRole, ok bool) {
	idVal, okID := c.Get("user_id")
	roleVal, okRole := c.Get("user_role")
	if !okID || !okRole {
		return "", "", false
	}
	return idVal.(string), roleVal.(models.UserRole), true
}
