package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"orderdesk/internal/models"
)

// setupTest creates the shared in-memory DB and the full route table.
func setupTest(t *testing.T) (*gorm.DB, *gin.Engine, map[string]time.Duration) {
	return setupTestWithDSN(t, "file::memory:?cache=shared")
}

// setupTestWithDSN is for tests that need a private database, e.g. to
// observe the empty-admin-pool failure without other tests' users.
func setupTestWithDSN(t *testing.T, dsn string) (*gorm.DB, *gin.Engine, map[string]time.Duration) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("db open: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Token{},
		&models.Order{},
		&models.ChatRoom{},
		&models.Message{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	ttl := map[string]time.Duration{"access": time.Minute, "refresh": time.Hour}

	r := gin.Default()
	r.GET("/health", Health(db))

	auth := r.Group("/auth")
	auth.POST("/register", Register(db, ttl))
	auth.POST("/login", Login(db, ttl))
	auth.POST("/refresh", Refresh(db, ttl))
	auth.Use(AuthMiddleware(db))
	auth.POST("/logout", Logout(db))
	auth.GET("/profile", Profile(db))

	api := r.Group("/")
	api.Use(AuthMiddleware(db))
	api.POST("/orders", CreateOrder(db))
	api.GET("/orders", ListOrders(db))
	api.GET("/orders/:id", GetOrder(db))
	api.PATCH("/orders/:id", UpdateOrder(db))
	api.PATCH("/orders/:id/status", RequireAdmin(), UpdateOrderStatus(db))
	api.DELETE("/orders/:id", DeleteOrder(db))
	api.GET("/orders/:id/chatroom", GetChatRoomByOrder(db))

	api.GET("/chatrooms", ListChatRooms(db))
	api.GET("/chatrooms/:id", GetChatRoom(db))
	api.POST("/chatrooms", RequireAdmin(), CreateChatRoom(db))
	api.PATCH("/chatrooms/:id/status", RequireAdmin(), CloseChatRoom(db, nil))

	r.GET("/ws/chat", ChatWS(db, nil))

	return db, r, ttl
}

// registerUser signs a user up through the API and returns the access
// token. Emails must be unique per test because the DB is shared.
func registerUser(t *testing.T, r *gin.Engine, email, name, role string) string {
	t.Helper()
	body, _ := json.Marshal(RegisterRequest{Email: email, Name: name, Password: "pass", Role: role})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/auth/register", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("register %s status %d: %s", email, w.Code, w.Body.String())
	}
	var tok TokenResponse
	json.Unmarshal(w.Body.Bytes(), &tok)
	return tok.AccessToken
}

func userByEmail(t *testing.T, db *gorm.DB, email string) models.User {
	t.Helper()
	var u models.User
	if err := db.Where("email = ?", email).First(&u).Error; err != nil {
		t.Fatalf("user %s: %v", email, err)
	}
	return u
}

// doJSON performs an authenticated JSON request against the router.
func doJSON(t *testing.T, r *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

// createTestOrder creates an order through the API and returns it.
func createTestOrder(t *testing.T, r *gin.Engine, token string) models.Order {
	t.Helper()
	w := doJSON(t, r, "POST", "/orders", token,
		`{"description":"widgets","specifications":{"color":"red"},"quantity":2}`)
	if w.Code != http.StatusOK {
		t.Fatalf("create order status %d: %s", w.Code, w.Body.String())
	}
	var ord models.Order
	json.Unmarshal(w.Body.Bytes(), &ord)
	return ord
}
