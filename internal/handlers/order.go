package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"orderdesk/internal/models"
	"orderdesk/internal/services"
)

type OrderRequest struct {
	Description    string          `json:"description"`
	Specifications json.RawMessage `json:"specifications"`
	Quantity       int             `json:"quantity"`
	Metadata       json.RawMessage `json:"metadata"`
}

type OrderUpdateRequest struct {
	Description    *string         `json:"description"`
	Specifications json.RawMessage `json:"specifications"`
	Quantity       *int            `json:"quantity"`
	Metadata       json.RawMessage `json:"metadata"`
	Status         *string         `json:"status"`
}

// getOrderChecked loads an order and enforces the read rule: admins
// see everything, users see only their own. Writes the error response
// itself and reports success through the bool.
func getOrderChecked(c *gin.Context, db *gorm.DB, orderID string) (models.Order, bool) {
	userID, role, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "no user"})
		return models.Order{}, false
	}
	var order models.Order
	if err := db.Preload("User").Where("id = ?", orderID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "invalid order"})
		} else {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "db error"})
		}
		return models.Order{}, false
	}
	if role != models.RoleAdmin && order.UserID != userID {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "forbidden"})
		return models.Order{}, false
	}
	return order, true
}

func orderToFull(db *gorm.DB, order models.Order) models.OrderFull {
	full := models.OrderFull{Order: order, User: order.User.Summary()}
	var room models.ChatRoom
	if err := db.Where("order_id = ?", order.ID).First(&room).Error; err == nil {
		full.ChatRoom = &room
	}
	return full
}

// CreateOrder godoc
// @Summary Create an order
// @Description Creates the order in REVIEW and its chat room in one transaction. An admin is assigned to the room; without any admin the whole creation fails.
// @Tags orders
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param input body OrderRequest true "order data"
// @Success 200 {object} models.Order
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse "no admin available"
// @Router /orders [post]
func CreateOrder(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var r OrderRequest
		if err := c.BindJSON(&r); err != nil || r.Description == "" || len(r.Specifications) == 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
			return
		}
		if r.Quantity < 1 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "quantity must be at least 1"})
			return
		}
		userID, _, ok := currentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "no user"})
			return
		}

		order := models.Order{
			Description:    r.Description,
			Specifications: datatypes.JSON(r.Specifications),
			Quantity:       r.Quantity,
			Metadata:       datatypes.JSON(r.Metadata),
			Status:         models.OrderStatusReview,
			UserID:         userID,
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&order).Error; err != nil {
				return err
			}
			admin, err := services.AssignAdmin(tx)
			if err != nil {
				return err
			}
			room := models.ChatRoom{
				OrderID: order.ID,
				AdminID: admin.ID,
				UserID:  userID,
				Status:  models.ChatRoomStatusOpen,
			}
			return tx.Create(&room).Error
		})
		if err != nil {
			if errors.Is(err, services.ErrNoAdminAvailable) {
				c.JSON(http.StatusForbidden, ErrorResponse{Error: err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "db error"})
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

// ListOrders godoc
// @Summary List orders
// @Description Admins see every order, users only their own.
// @Tags orders
// @Security BearerAuth
// @Produce json
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Success 200 {array} models.OrderFull
// @Router /orders [get]
func ListOrders(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, role, ok := currentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "no user"})
			return
		}
		limit, offset := parsePagination(c)

		query := db.Preload("User")
		if role != models.RoleAdmin {
			query = query.Where("user_id = ?", userID)
		}
		var orders []models.Order
		if err := query.Order("created_at desc").Limit(limit).Offset(offset).Find(&orders).Error; err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "db error"})
			return
		}

		ids := make([]string, len(orders))
		for i, o := range orders {
			ids[i] = o.ID
		}
		roomByOrder := make(map[string]models.ChatRoom, len(orders))
		if len(ids) > 0 {
			var chatRooms []models.ChatRoom
			if err := db.Where("order_id IN ?", ids).Find(&chatRooms).Error; err != nil {
				c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "db error"})
				return
			}
			for _, room := range chatRooms {
				roomByOrder[room.OrderID] = room
			}
		}

		res := make([]models.OrderFull, len(orders))
		for i, o := range orders {
			res[i] = models.OrderFull{Order: o, User: o.User.Summary()}
			if room, ok := roomByOrder[o.ID]; ok {
				r := room
				res[i].ChatRoom = &r
			}
		}
		c.JSON(http.StatusOK, res)
	}
}

// GetOrder godoc
// @Summary Get an order
// @Tags orders
// @Security BearerAuth
// @Produce json
// @Param id path string true "order ID"
// @Success 200 {object} models.OrderFull
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /orders/{id} [get]
func GetOrder(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		order, ok := getOrderChecked(c, db, c.Param("id"))
		if !ok {
			return
		}
		c.JSON(http.StatusOK, orderToFull(db, order))
	}
}

// UpdateOrder godoc
// @Summary Update an order
// @Description Applies a partial update. Only admins may change the status field through this endpoint.
// @Tags orders
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "order ID"
// @Param input body OrderUpdateRequest true "fields to change"
// @Success 200 {object} models.Order
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /orders/{id} [patch]
func UpdateOrder(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		order, ok := getOrderChecked(c, db, c.Param("id"))
		if !ok {
			return
		}
		_, role, _ := currentUser(c)

		var r OrderUpdateRequest
		if err := c.BindJSON(&r); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
			return
		}
		if r.Status != nil && role != models.RoleAdmin {
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "only admins can update order status"})
			return
		}

		upd := map[string]any{}
		if r.Description != nil {
			if *r.Description == "" {
				c.JSON(http.StatusBadRequest, ErrorResponse{Error: "description cannot be empty"})
				return
			}
			upd["description"] = *r.Description
		}
		if len(r.Specifications) > 0 {
			upd["specifications"] = datatypes.JSON(r.Specifications)
		}
		if r.Quantity != nil {
			if *r.Quantity < 1 {
				c.JSON(http.StatusBadRequest, ErrorResponse{Error: "quantity must be at least 1"})
				return
			}
			upd["quantity"] = *r.Quantity
		}
		if len(r.Metadata) > 0 {
			upd["metadata"] = datatypes.JSON(r.Metadata)
		}
		if r.Status != nil {
			switch models.OrderStatus(*r.Status) {
			case models.OrderStatusReview, models.OrderStatusProcessing, models.OrderStatusCompleted:
				upd["status"] = models.OrderStatus(*r.Status)
			default:
				c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid status"})
				return
			}
		}
		if len(upd) > 0 {
			if err := db.Model(&order).Updates(upd).Error; err != nil {
				c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "db error"})
				return
			}
		}
		c.JSON(http.StatusOK, order)
	}
}

// DeleteOrder godoc
// @Summary Delete an order
// @Description Allowed only while the order is in REVIEW. Removes the paired chat room and its messages with it.
// @Tags orders
// @Security BearerAuth
// @Produce json
// @Param id path string true "order ID"
// @Success 200 {object} models.Order
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /orders/{id} [delete]
func DeleteOrder(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		order, ok := getOrderChecked(c, db, c.Param("id"))
		if !ok {
			return
		}
		if order.Status != models.OrderStatusReview {
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "only orders in REVIEW status can be deleted"})
			return
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			var room models.ChatRoom
			if err := tx.Where("order_id = ?", order.ID).First(&room).Error; err == nil {
				if err := tx.Where("chat_room_id = ?", room.ID).Delete(&models.Message{}).Error; err != nil {
					return err
				}
				if err := tx.Delete(&room).Error; err != nil {
					return err
				}
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			return tx.Delete(&order).Error
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "db error"})
			return
		}
		c.JSON(http.StatusOK, order)
	}
}
