// @title OrderDesk API
// @version 1.0
// @description Order triage service with per-order admin chat
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

package main

import (
	"log"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"orderdesk/config"
	docs "orderdesk/docs"
	"orderdesk/internal/db"
	"orderdesk/internal/handlers"
	"orderdesk/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	env := os.Getenv("APP_ENV")
	if env == "prod" || env == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	gormDB, err := db.NewDB(cfg.DSN)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}

	var cache *services.ChatCache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		cache = services.NewChatCache(rdb, cfg.ChatCacheLimit)
	}

	docs.SwaggerInfo.BasePath = "/"

	r := gin.Default()
	r.Use(cors.Default())
	r.GET("/health", handlers.Health(gormDB))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	auth := r.Group("/auth")
	auth.POST("/register", handlers.Register(gormDB, cfg.TokenTypeTTL))
	auth.POST("/login", handlers.Login(gormDB, cfg.TokenTypeTTL))
	auth.POST("/refresh", handlers.Refresh(gormDB, cfg.TokenTypeTTL))
	auth.Use(handlers.AuthMiddleware(gormDB))
	auth.POST("/logout", handlers.Logout(gormDB))
	auth.GET("/profile", handlers.Profile(gormDB))

	api := r.Group("/")
	api.Use(handlers.AuthMiddleware(gormDB))
	api.POST("/orders", handlers.CreateOrder(gormDB))
	api.GET("/orders", handlers.ListOrders(gormDB))
	api.GET("/orders/:id", handlers.GetOrder(gormDB))
	api.PATCH("/orders/:id", handlers.UpdateOrder(gormDB))
	api.PATCH("/orders/:id/status", handlers.RequireAdmin(), handlers.UpdateOrderStatus(gormDB))
	api.DELETE("/orders/:id", handlers.DeleteOrder(gormDB))
	api.GET("/orders/:id/chatroom", handlers.GetChatRoomByOrder(gormDB))

	api.GET("/chatrooms", handlers.ListChatRooms(gormDB))
	api.GET("/chatrooms/:id", handlers.GetChatRoom(gormDB))
	api.POST("/chatrooms", handlers.RequireAdmin(), handlers.CreateChatRoom(gormDB))
	api.PATCH("/chatrooms/:id/status", handlers.RequireAdmin(), handlers.CloseChatRoom(gormDB, cache))

	r.GET("/ws/chat", handlers.ChatWS(gormDB, cache))

	addr := ":" + cfg.Port
	log.Printf("listening on %s …", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
