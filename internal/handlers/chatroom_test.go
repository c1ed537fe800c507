package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"gorm.io/datatypes"

	"orderdesk/internal/models"
)

func TestCloseChatRoomValidation(t *testing.T) {
	db, r, _ := setupTest(t)

	adminTok := registerUser(t, r, "admin@room.test", "Mona", "ADMIN")
	ownerTok := registerUser(t, r, "owner@room.test", "Omar", "")

	ord := createTestOrder(t, r, ownerTok)
	var room models.ChatRoom
	db.Where("order_id = ?", ord.ID).First(&room)

	// a blank summary is refused and the room stays OPEN
	w := doJSON(t, r, "PATCH", "/chatrooms/"+room.ID+"/status", adminTok, `{"closingSummary":"   "}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("blank summary: %d", w.Code)
	}
	var got models.ChatRoom
	db.Where("id = ?", room.ID).First(&got)
	if got.Status != models.ChatRoomStatusOpen {
		t.Fatalf("room closed despite blank summary: %s", got.Status)
	}

	// only admins may close
	w = doJSON(t, r, "PATCH", "/chatrooms/"+room.ID+"/status", ownerTok, `{"closingSummary":"done"}`)
	if w.Code != http.StatusForbidden {
		t.Fatalf("non-admin close: %d", w.Code)
	}

	w = doJSON(t, r, "PATCH", "/chatrooms/missing/status", adminTok, `{"closingSummary":"done"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing room: %d", w.Code)
	}
}

func TestCreateChatRoomConflict(t *testing.T) {
	db, r, _ := setupTest(t)

	adminTok := registerUser(t, r, "admin2@room.test", "Milo", "ADMIN")
	userTok := registerUser(t, r, "user2@room.test", "Ursa", "")
	admin := userByEmail(t, db, "admin2@room.test")
	user := userByEmail(t, db, "user2@room.test")
	_ = userTok

	// an order inserted without a room, so the manual endpoint has work to do
	bare := models.Order{
		Description:    "bare order",
		Specifications: datatypes.JSON(`{}`),
		Quantity:       1,
		Status:         models.OrderStatusReview,
		UserID:         user.ID,
	}
	if err := db.Create(&bare).Error; err != nil {
		t.Fatalf("insert order: %v", err)
	}

	body := `{"orderId":"` + bare.ID + `","adminId":"` + admin.ID + `","userId":"` + user.ID + `"}`
	w := doJSON(t, r, "POST", "/chatrooms", adminTok, body)
	if w.Code != http.StatusOK {
		t.Fatalf("create room: %d %s", w.Code, w.Body.String())
	}
	var room models.ChatRoom
	json.Unmarshal(w.Body.Bytes(), &room)
	if room.Status != models.ChatRoomStatusOpen || room.OrderID != bare.ID {
		t.Fatalf("unexpected room %+v", room)
	}

	// one room per order
	if w = doJSON(t, r, "POST", "/chatrooms", adminTok, body); w.Code != http.StatusConflict {
		t.Fatalf("duplicate room: %d", w.Code)
	}

	w = doJSON(t, r, "POST", "/chatrooms", adminTok,
		`{"orderId":"missing","adminId":"`+admin.ID+`","userId":"`+user.ID+`"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("room for missing order: %d", w.Code)
	}
	if w = doJSON(t, r, "POST", "/chatrooms", userTok, body); w.Code != http.StatusForbidden {
		t.Fatalf("non-admin create: %d", w.Code)
	}
}

func TestChatRoomHistoryAndSummaries(t *testing.T) {
	db, r, _ := setupTest(t)

	registerUser(t, r, "admin3@room.test", "Mack", "ADMIN")
	ownerTok := registerUser(t, r, "owner3@room.test", "Oda", "")
	owner := userByEmail(t, db, "owner3@room.test")

	ord := createTestOrder(t, r, ownerTok)
	var room models.ChatRoom
	db.Where("order_id = ?", ord.ID).First(&room)

	for _, content := range []string{"first", "second", "third"} {
		msg := models.Message{ChatRoomID: room.ID, UserID: owner.ID, Content: content}
		if err := db.Create(&msg).Error; err != nil {
			t.Fatalf("insert message: %v", err)
		}
	}

	w := doJSON(t, r, "GET", "/chatrooms/"+room.ID, ownerTok, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get room: %d", w.Code)
	}
	var full models.ChatRoomFull
	json.Unmarshal(w.Body.Bytes(), &full)
	if len(full.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(full.Messages))
	}
	for i, want := range []string{"first", "second", "third"} {
		if full.Messages[i].Content != want {
			t.Fatalf("message %d = %q, want %q", i, full.Messages[i].Content, want)
		}
		if full.Messages[i].SenderName != "Oda" {
			t.Fatalf("senderName %q", full.Messages[i].SenderName)
		}
	}
	if full.Admin.ID != room.AdminID || full.User.Email != "owner3@room.test" {
		t.Fatalf("participant summaries %+v %+v", full.Admin, full.User)
	}
}

func TestChatRoomByOrderAccess(t *testing.T) {
	_, r, _ := setupTest(t)

	registerUser(t, r, "admin4@room.test", "Meg", "ADMIN")
	ownerTok := registerUser(t, r, "owner4@room.test", "Obi", "")
	strangerTok := registerUser(t, r, "stranger4@room.test", "Sue", "")

	ord := createTestOrder(t, r, ownerTok)

	w := doJSON(t, r, "GET", "/orders/"+ord.ID+"/chatroom", ownerTok, "")
	if w.Code != http.StatusOK {
		t.Fatalf("owner by-order lookup: %d", w.Code)
	}
	var full models.ChatRoomFull
	json.Unmarshal(w.Body.Bytes(), &full)
	if full.ChatRoom.OrderID != ord.ID {
		t.Fatalf("wrong room %+v", full.ChatRoom)
	}

	if w = doJSON(t, r, "GET", "/orders/"+ord.ID+"/chatroom", strangerTok, ""); w.Code != http.StatusForbidden {
		t.Fatalf("stranger by-order lookup: %d", w.Code)
	}
}

func TestListChatRoomsVisibility(t *testing.T) {
	_, r, _ := setupTest(t)

	adminTok := registerUser(t, r, "admin5@room.test", "Mel", "ADMIN")
	aTok := registerUser(t, r, "lista@room.test", "Abe", "")
	bTok := registerUser(t, r, "listb@room.test", "Bea", "")

	ordA := createTestOrder(t, r, aTok)
	ordB := createTestOrder(t, r, bTok)

	w := doJSON(t, r, "GET", "/chatrooms", aTok, "")
	if w.Code != http.StatusOK {
		t.Fatalf("list: %d", w.Code)
	}
	var mine []models.ChatRoomFull
	json.Unmarshal(w.Body.Bytes(), &mine)
	for _, room := range mine {
		if room.ChatRoom.OrderID == ordB.ID {
			t.Fatalf("foreign room leaked: %+v", room.ChatRoom)
		}
	}

	w = doJSON(t, r, "GET", "/chatrooms?limit=100", adminTok, "")
	var all []models.ChatRoomFull
	json.Unmarshal(w.Body.Bytes(), &all)
	seen := map[string]bool{}
	for _, room := range all {
		seen[room.ChatRoom.OrderID] = true
	}
	if !seen[ordA.ID] || !seen[ordB.ID] {
		t.Fatalf("admin list missing rooms: %v", seen)
	}
}
