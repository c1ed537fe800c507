package handlers

import (
	"encoding/json"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"

	"orderdesk/internal/chathub"
	"orderdesk/internal/models"
	"orderdesk/internal/services"
)

type chatFrame struct {
	Event string `json:"event"`
	Data  string `json:"data"`
}

type wsError struct {
	Message string `json:"message"`
}

func sendWSError(conn *websocket.Conn, msg string) {
	_ = chathub.Send(conn, chathub.Event{Event: "error", Data: wsError{Message: msg}})
}

// replayHistory pushes the room's ordered history to one joining
// session. The Redis cache is a fast path, trusted only when it holds
// exactly as many messages as the store: after a cache restart the
// write-through list can be short of older messages while still under
// its cap.
func replayHistory(c *gin.Context, db *gorm.DB, cache *services.ChatCache, conn *websocket.Conn, roomID string) error {
	if cache != nil {
		var count int64
		if err := db.Model(&models.Message{}).Where("chat_room_id = ?", roomID).
			Count(&count).Error; err == nil && count > 0 && count < cache.Limit() {
			if msgs, err := cache.GetHistory(c.Request.Context(), roomID); err == nil &&
				int64(len(msgs)) == count {
				return chathub.Send(conn, chathub.Event{Event: "chatHistory", Data: msgs})
			}
		}
	}
	msgs, err := loadRoomHistory(db, roomID)
	if err != nil {
		return err
	}
	return chathub.Send(conn, chathub.Event{Event: "chatHistory", Data: msgs})
}

// ChatWS godoc
// @Summary Order chat websocket
// @Description Admission requires oid and uid handshake query parameters, each given exactly once. On success the session receives the full message history, then live `message` and `chatClosed` events. Inbound frames are {"event":"message"|"closeChat","data":string}.
// @Tags chat
// @Param oid query string true "order ID"
// @Param uid query string true "user ID"
// @Success 101 {string} string "Switching Protocols"
// @Router /ws/chat [get]
func ChatWS(db *gorm.DB, cache *services.ChatCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// admission errors are in-band: emit, then drop the connection
		oids := c.Request.URL.Query()["oid"]
		uids := c.Request.URL.Query()["uid"]
		if len(oids) != 1 || len(uids) != 1 || oids[0] == "" || uids[0] == "" {
			sendWSError(conn, "invalid chat room ID or user ID")
			return
		}
		orderID, userID := oids[0], uids[0]

		ok, err := services.ValidateChatAccess(db, orderID, userID)
		if err != nil {
			sendWSError(conn, err.Error())
			return
		}
		if !ok {
			sendWSError(conn, services.ErrAccessDenied.Error())
			return
		}

		room, err := services.GetChatRoomByOrder(db, orderID)
		if err != nil {
			sendWSError(conn, err.Error())
			return
		}

		// a closure can land between the access check and the join; the
		// hub refuses rooms it has already swept
		if !chathub.AddClient(orderID, conn) {
			sendWSError(conn, services.ErrChatRoomClosed.Error())
			return
		}
		defer chathub.RemoveClient(orderID, conn)

		if err := replayHistory(c, db, cache, conn, room.ID); err != nil {
			return
		}

		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				break
			}
			var frame chatFrame
			if err := json.Unmarshal(raw, &frame); err != nil {
				sendWSError(conn, "invalid frame")
				continue
			}
			switch frame.Event {
			case "message":
				handleChatMessage(c, db, cache, conn, room, userID, frame.Data)
			case "closeChat":
				handleCloseChat(c, db, cache, conn, orderID, userID, frame.Data)
			default:
				sendWSError(conn, "unknown event")
			}
		}
	}
}

// handleChatMessage persists and fans out one message. Every failure
// is reported to the sender alone; other sessions are never touched.
func handleChatMessage(c *gin.Context, db *gorm.DB, cache *services.ChatCache, conn *websocket.Conn, room models.ChatRoom, userID, content string) {
	content = strings.TrimSpace(content)
	if content == "" {
		sendWSError(conn, services.ErrEmptyContent.Error())
		return
	}
	// the room may have closed since admission
	ok, err := services.ValidateChatAccess(db, room.OrderID, userID)
	if err != nil {
		sendWSError(conn, err.Error())
		return
	}
	if !ok {
		sendWSError(conn, services.ErrAccessDenied.Error())
		return
	}
	// persist and fan out under the room sequence so concurrent senders
	// broadcast in commit order
	seq := chathub.RoomSequence(room.OrderID)
	seq.Lock()
	defer seq.Unlock()

	msg := models.Message{ChatRoomID: room.ID, UserID: userID, Content: content}
	if err := db.Create(&msg).Error; err != nil {
		sendWSError(conn, "failed to save message")
		return
	}
	var sender models.User
	if err := db.Select("name").Where("id = ?", userID).First(&sender).Error; err == nil {
		msg.SenderName = sender.Name
	}
	if cache != nil {
		_ = cache.AddMessage(c.Request.Context(), room.ID, msg)
	}
	chathub.Broadcast(room.OrderID, chathub.Event{Event: "message", Data: msg})
}

// handleCloseChat closes the room on behalf of an admin session,
// broadcasts the closure and disconnects everyone in the room.
func handleCloseChat(c *gin.Context, db *gorm.DB, cache *services.ChatCache, conn *websocket.Conn, orderID, userID, summary string) {
	summary = strings.TrimSpace(summary)
	if summary == "" {
		sendWSError(conn, services.ErrEmptySummary.Error())
		return
	}
	var user models.User
	if err := db.Where("id = ?", userID).First(&user).Error; err != nil {
		sendWSError(conn, services.ErrUserNotFound.Error())
		return
	}
	if user.Role != models.RoleAdmin {
		sendWSError(conn, "only admins can close chat rooms")
		return
	}
	room, err := services.GetChatRoomByOrder(db, orderID)
	if err != nil {
		sendWSError(conn, err.Error())
		return
	}
	if err := closeRoomTx(db, room.ID, room.OrderID, summary); err != nil {
		sendWSError(conn, err.Error())
		return
	}
	if cache != nil {
		_ = cache.Invalidate(c.Request.Context(), room.ID)
	}
	chathub.CloseRoom(orderID, chathub.Event{
		Event: "chatClosed",
		Data:  ChatClosedEvent{OrderID: orderID, ClosingSummary: summary},
	})
}
