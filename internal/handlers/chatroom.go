package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"orderdesk/internal/chathub"
	"orderdesk/internal/models"
	"orderdesk/internal/services"
)

type ChatRoomRequest struct {
	OrderID string `json:"orderId"`
	AdminID string `json:"adminId"`
	UserID  string `json:"userId"`
}

type CloseChatRoomRequest struct {
	ClosingSummary string `json:"closingSummary"`
}

type ChatClosedEvent struct {
	OrderID        string `json:"orderId"`
	ClosingSummary string `json:"closingSummary"`
}

func roomToFull(db *gorm.DB, room models.ChatRoom, withMessages bool) (models.ChatRoomFull, error) {
	full := models.ChatRoomFull{
		ChatRoom: room,
		Order:    &room.Order,
		Admin:    room.Admin.Summary(),
		User:     room.User.Summary(),
	}
	if !withMessages {
		return full, nil
	}
	msgs, err := loadRoomHistory(db, room.ID)
	if err != nil {
		return full, err
	}
	full.Messages = msgs
	return full, nil
}

// loadRoomHistory returns the room's messages ascending by creation
// time, with the sender name denormalized onto each one.
func loadRoomHistory(db *gorm.DB, roomID string) ([]models.Message, error) {
	var msgs []models.Message
	if err := db.Preload("User").Where("chat_room_id = ?", roomID).
		Order("created_at asc").Find(&msgs).Error; err != nil {
		return nil, err
	}
	for i := range msgs {
		msgs[i].SenderName = msgs[i].User.Name
	}
	return msgs, nil
}

// closeRoomTx flips the room OPEN -> CLOSED and advances the paired
// order to PROCESSING as one atomic unit. The status condition in the
// UPDATE makes a concurrent second close lose with ErrAlreadyClosed.
func closeRoomTx(db *gorm.DB, roomID, orderID, summary string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.ChatRoom{}).
			Where("id = ? AND status = ?", roomID, models.ChatRoomStatusOpen).
			Updates(map[string]any{
				"status":          models.ChatRoomStatusClosed,
				"closing_summary": summary,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return services.ErrAlreadyClosed
		}
		return tx.Model(&models.Order{}).
			Where("id = ?", orderID).
			Update("status", models.OrderStatusProcessing).Error
	})
}

// ListChatRooms godoc
// @Summary List chat rooms
// @Description Admins see every room, users only rooms of their own orders.
// @Tags chatrooms
// @Security BearerAuth
// @Produce json
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Success 200 {array} models.ChatRoomFull
// @Router /chatrooms [get]
func ListChatRooms(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, role, ok := currentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "no user"})
			return
		}
		limit, offset := parsePagination(c)

		query := db.Preload("Order").Preload("Admin").Preload("User")
		if role != models.RoleAdmin {
			query = query.Where("user_id = ?", userID)
		}
		var chatRooms []models.ChatRoom
		if err := query.Order("created_at desc").Limit(limit).Offset(offset).Find(&chatRooms).Error; err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "db error"})
			return
		}
		res := make([]models.ChatRoomFull, len(chatRooms))
		for i, room := range chatRooms {
			full, err := roomToFull(db, room, false)
			if err != nil {
				c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "db error"})
				return
			}
			res[i] = full
		}
		c.JSON(http.StatusOK, res)
	}
}

// GetChatRoom godoc
// @Summary Get a chat room
// @Description Returns the room, its ordered message history and participant summaries.
// @Tags chatrooms
// @Security BearerAuth
// @Produce json
// @Param id path string true "room ID"
// @Success 200 {object} models.ChatRoomFull
// @Failure 404 {object} ErrorResponse
// @Router /chatrooms/{id} [get]
func GetChatRoom(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var room models.ChatRoom
		if err := db.Preload("Order").Preload("Admin").Preload("User").
			Where("id = ?", c.Param("id")).First(&room).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, ErrorResponse{Error: "invalid chat room"})
			} else {
				c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "db error"})
			}
			return
		}
		full, err := roomToFull(db, room, true)
		if err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "db error"})
			return
		}
		c.JSON(http.StatusOK, full)
	}
}

// GetChatRoomByOrder godoc
// @Summary Get the chat room of an order
// @Description Validates access to the order first, then resolves its room.
// @Tags chatrooms
// @Security BearerAuth
// @Produce json
// @Param id path string true "order ID"
// @Success 200 {object} models.ChatRoomFull
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /orders/{id}/chatroom [get]
func GetChatRoomByOrder(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		order, ok := getOrderChecked(c, db, c.Param("id"))
		if !ok {
			return
		}
		var room models.ChatRoom
		if err := db.Preload("Order").Preload("Admin").Preload("User").
			Where("order_id = ?", order.ID).First(&room).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, ErrorResponse{Error: "invalid chat room"})
			} else {
				c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "db error"})
			}
			return
		}
		full, err := roomToFull(db, room, true)
		if err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "db error"})
			return
		}
		c.JSON(http.StatusOK, full)
	}
}

// CreateChatRoom godoc
// @Summary Create a chat room (admin only)
// @Description An order has exactly one room; a second create attempt is a conflict. Order creation normally does this automatically.
// @Tags chatrooms
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param input body ChatRoomRequest true "room data"
// @Success 200 {object} models.ChatRoom
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /chatrooms [post]
func CreateChatRoom(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var r ChatRoomRequest
		if err := c.BindJSON(&r); err != nil || r.OrderID == "" || r.AdminID == "" || r.UserID == "" {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
			return
		}
		var order models.Order
		if err := db.Where("id = ?", r.OrderID).First(&order).Error; err != nil {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "invalid order"})
			return
		}
		room := models.ChatRoom{
			OrderID: r.OrderID,
			AdminID: r.AdminID,
			UserID:  r.UserID,
			Status:  models.ChatRoomStatusOpen,
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			var count int64
			if err := tx.Model(&models.ChatRoom{}).Where("order_id = ?", r.OrderID).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return services.ErrChatRoomExists
			}
			// the unique index on order_id backstops a concurrent insert
			return tx.Create(&room).Error
		})
		if err != nil {
			if errors.Is(err, services.ErrChatRoomExists) {
				c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
				return
			}
			// a failed insert that lost the race to the unique index is
			// still a conflict, anything else is a storage failure
			var count int64
			db.Model(&models.ChatRoom{}).Where("order_id = ?", r.OrderID).Count(&count)
			if count > 0 {
				c.JSON(http.StatusConflict, ErrorResponse{Error: services.ErrChatRoomExists.Error()})
			} else {
				c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "db error"})
			}
			return
		}
		c.JSON(http.StatusOK, room)
	}
}

// CloseChatRoom godoc
// @Summary Close a chat room (admin only)
// @Description Requires a non-empty closing summary. Closing cascades the paired order to PROCESSING in the same transaction, broadcasts a closure event and disconnects every live session in the room. Re-closing is an error.
// @Tags chatrooms
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "room ID"
// @Param input body CloseChatRoomRequest true "closing summary"
// @Success 200 {object} models.ChatRoom
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /chatrooms/{id}/status [patch]
func CloseChatRoom(db *gorm.DB, cache *services.ChatCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		var r CloseChatRoomRequest
		if err := c.BindJSON(&r); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
			return
		}
		summary := strings.TrimSpace(r.ClosingSummary)
		if summary == "" {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: services.ErrEmptySummary.Error()})
			return
		}
		var room models.ChatRoom
		if err := db.Where("id = ?", c.Param("id")).First(&room).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, ErrorResponse{Error: "invalid chat room"})
			} else {
				c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "db error"})
			}
			return
		}
		if err := closeRoomTx(db, room.ID, room.OrderID, summary); err != nil {
			if errors.Is(err, services.ErrAlreadyClosed) {
				c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			} else {
				c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "db error"})
			}
			return
		}
		if cache != nil {
			_ = cache.Invalidate(c.Request.Context(), room.ID)
		}
		chathub.CloseRoom(room.OrderID, chathub.Event{
			Event: "chatClosed",
			Data:  ChatClosedEvent{OrderID: room.OrderID, ClosingSummary: summary},
		})

		room.Status = models.ChatRoomStatusClosed
		room.ClosingSummary = &summary
		c.JSON(http.StatusOK, room)
	}
}
