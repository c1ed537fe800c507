package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"orderdesk/internal/models"
	"orderdesk/internal/services"
)

type UpdateOrderStatusRequest struct {
	Status string `json:"status"`
}

// UpdateOrderStatus godoc
// @Summary Update order status (admin only)
// @Description COMPLETED requires the order to be in PROCESSING and its chat room CLOSED. PROCESSING is set only by the room-closure cascade and is rejected here, as are backward transitions.
// @Tags orders
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "order ID"
// @Param input body UpdateOrderStatusRequest true "target status"
// @Success 200 {object} models.Order
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /orders/{id}/status [patch]
func UpdateOrderStatus(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID := c.Param("id")
		var order models.Order
		if err := db.Where("id = ?", orderID).First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, ErrorResponse{Error: "invalid order"})
			} else {
				c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "db error"})
			}
			return
		}

		var r UpdateOrderStatusRequest
		if err := c.BindJSON(&r); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
			return
		}

		switch models.OrderStatus(r.Status) {
		case models.OrderStatusCompleted:
			room, err := services.GetChatRoomByOrder(db, order.ID)
			if err != nil {
				if errors.Is(err, services.ErrChatRoomNotFound) {
					c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
				} else {
					c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "db error"})
				}
				return
			}
			if room.Status != models.ChatRoomStatusClosed {
				c.JSON(http.StatusForbidden, ErrorResponse{Error: "chat must be closed before completing the order"})
				return
			}
			if order.Status != models.OrderStatusProcessing {
				c.JSON(http.StatusForbidden, ErrorResponse{Error: "order must be in PROCESSING to complete"})
				return
			}
			res := db.Model(&models.Order{}).
				Where("id = ? AND status = ?", order.ID, models.OrderStatusProcessing).
				Update("status", models.OrderStatusCompleted)
			if res.Error != nil {
				c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "db error"})
				return
			}
			if res.RowsAffected == 0 {
				c.JSON(http.StatusBadRequest, ErrorResponse{Error: "status changed"})
				return
			}
			order.Status = models.OrderStatusCompleted
		case models.OrderStatusProcessing:
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "PROCESSING is set by closing the chat room"})
			return
		case models.OrderStatusReview:
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "backward transitions are not allowed"})
			return
		default:
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid status"})
			return
		}

		c.JSON(http.StatusOK, order)
	}
}
