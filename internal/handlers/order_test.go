package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"orderdesk/internal/models"
)

func TestCreateOrderCreatesChatRoom(t *testing.T) {
	db, r, _ := setupTest(t)

	registerUser(t, r, "admin@order.test", "Madison", "ADMIN")
	userTok := registerUser(t, r, "user@order.test", "Uma", "")
	user := userByEmail(t, db, "user@order.test")

	ord := createTestOrder(t, r, userTok)
	if ord.Status != models.OrderStatusReview {
		t.Fatalf("unexpected status %s", ord.Status)
	}
	if ord.UserID != user.ID {
		t.Fatalf("unexpected owner %s", ord.UserID)
	}

	var room models.ChatRoom
	if err := db.Where("order_id = ?", ord.ID).First(&room).Error; err != nil {
		t.Fatalf("chat room not created: %v", err)
	}
	if room.Status != models.ChatRoomStatusOpen {
		t.Fatalf("unexpected room status %s", room.Status)
	}
	if room.UserID != user.ID {
		t.Fatalf("unexpected customer %s", room.UserID)
	}
	var assigned models.User
	if err := db.Where("id = ?", room.AdminID).First(&assigned).Error; err != nil {
		t.Fatalf("assigned admin: %v", err)
	}
	if assigned.Role != models.RoleAdmin {
		t.Fatalf("assigned user is not an admin: %s", assigned.Role)
	}
}

func TestCreateOrderWithoutAdminRollsBack(t *testing.T) {
	db, r, _ := setupTestWithDSN(t, "file:noadmin?mode=memory&cache=shared")

	userTok := registerUser(t, r, "lonely@order.test", "Lon", "")

	w := doJSON(t, r, "POST", "/orders", userTok,
		`{"description":"widgets","specifications":{"a":1},"quantity":1}`)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", w.Code, w.Body.String())
	}

	// all-or-nothing: neither order nor room may survive
	var orders, rooms int64
	db.Model(&models.Order{}).Count(&orders)
	db.Model(&models.ChatRoom{}).Count(&rooms)
	if orders != 0 || rooms != 0 {
		t.Fatalf("partial state: %d orders, %d rooms", orders, rooms)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	_, r, _ := setupTest(t)

	registerUser(t, r, "admin2@order.test", "Max", "ADMIN")
	tok := registerUser(t, r, "val@order.test", "Val", "")

	w := doJSON(t, r, "POST", "/orders", tok,
		`{"description":"widgets","specifications":{"a":1},"quantity":0}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("zero quantity status %d", w.Code)
	}
	w = doJSON(t, r, "POST", "/orders", tok, `{"quantity":1}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing fields status %d", w.Code)
	}
}

func TestGetOrderAccess(t *testing.T) {
	_, r, _ := setupTest(t)

	adminTok := registerUser(t, r, "admin3@order.test", "Mia", "ADMIN")
	ownerTok := registerUser(t, r, "owner@order.test", "Owen", "")
	strangerTok := registerUser(t, r, "stranger@order.test", "Sid", "")

	ord := createTestOrder(t, r, ownerTok)

	if w := doJSON(t, r, "GET", "/orders/"+ord.ID, ownerTok, ""); w.Code != http.StatusOK {
		t.Fatalf("owner get status %d", w.Code)
	}
	if w := doJSON(t, r, "GET", "/orders/"+ord.ID, strangerTok, ""); w.Code != http.StatusForbidden {
		t.Fatalf("stranger get status %d", w.Code)
	}
	w := doJSON(t, r, "GET", "/orders/"+ord.ID, adminTok, "")
	if w.Code != http.StatusOK {
		t.Fatalf("admin get status %d", w.Code)
	}
	var full models.OrderFull
	json.Unmarshal(w.Body.Bytes(), &full)
	if full.ChatRoom == nil || full.ChatRoom.OrderID != ord.ID {
		t.Fatalf("missing chat room in response: %+v", full)
	}
	if full.User.Email != "owner@order.test" {
		t.Fatalf("unexpected owner summary %+v", full.User)
	}

	if w := doJSON(t, r, "GET", "/orders/does-not-exist", adminTok, ""); w.Code != http.StatusNotFound {
		t.Fatalf("missing order status %d", w.Code)
	}
}

func TestListOrdersVisibility(t *testing.T) {
	_, r, _ := setupTest(t)

	adminTok := registerUser(t, r, "admin4@order.test", "Moe", "ADMIN")
	aTok := registerUser(t, r, "lista@order.test", "Ana", "")
	bTok := registerUser(t, r, "listb@order.test", "Ben", "")

	ordA := createTestOrder(t, r, aTok)
	ordB := createTestOrder(t, r, bTok)

	w := doJSON(t, r, "GET", "/orders", aTok, "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status %d", w.Code)
	}
	var mine []models.OrderFull
	json.Unmarshal(w.Body.Bytes(), &mine)
	if len(mine) == 0 {
		t.Fatal("expected own orders")
	}
	for _, o := range mine {
		if o.Order.UserID != ordA.UserID {
			t.Fatalf("foreign order leaked: %+v", o.Order)
		}
	}

	w = doJSON(t, r, "GET", "/orders?limit=100", adminTok, "")
	var all []models.OrderFull
	json.Unmarshal(w.Body.Bytes(), &all)
	seen := map[string]bool{}
	for _, o := range all {
		seen[o.Order.ID] = true
	}
	if !seen[ordA.ID] || !seen[ordB.ID] {
		t.Fatalf("admin list missing orders: %v", seen)
	}
}

func TestUpdateOrder(t *testing.T) {
	_, r, _ := setupTest(t)

	adminTok := registerUser(t, r, "admin5@order.test", "May", "ADMIN")
	ownerTok := registerUser(t, r, "upd@order.test", "Ulf", "")

	ord := createTestOrder(t, r, ownerTok)

	// non-admin touching status is rejected
	w := doJSON(t, r, "PATCH", "/orders/"+ord.ID, ownerTok, `{"status":"COMPLETED"}`)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status by non-admin: %d", w.Code)
	}

	w = doJSON(t, r, "PATCH", "/orders/"+ord.ID, ownerTok, `{"description":"more widgets","quantity":5}`)
	if w.Code != http.StatusOK {
		t.Fatalf("owner patch status %d: %s", w.Code, w.Body.String())
	}
	w = doJSON(t, r, "GET", "/orders/"+ord.ID, ownerTok, "")
	var full models.OrderFull
	json.Unmarshal(w.Body.Bytes(), &full)
	if full.Order.Description != "more widgets" || full.Order.Quantity != 5 {
		t.Fatalf("patch not applied: %+v", full.Order)
	}

	w = doJSON(t, r, "PATCH", "/orders/"+ord.ID, ownerTok, `{"quantity":0}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("zero quantity patch status %d", w.Code)
	}
	w = doJSON(t, r, "PATCH", "/orders/"+ord.ID, adminTok, `{"status":"BOGUS"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bogus status patch %d", w.Code)
	}
}

func TestDeleteOrderOnlyInReview(t *testing.T) {
	db, r, _ := setupTest(t)

	adminTok := registerUser(t, r, "admin6@order.test", "Mel", "ADMIN")
	ownerTok := registerUser(t, r, "del@order.test", "Dee", "")

	ord := createTestOrder(t, r, ownerTok)
	var room models.ChatRoom
	if err := db.Where("order_id = ?", ord.ID).First(&room).Error; err != nil {
		t.Fatalf("room: %v", err)
	}

	// REVIEW: deletable, room goes with it
	if w := doJSON(t, r, "DELETE", "/orders/"+ord.ID, ownerTok, ""); w.Code != http.StatusOK {
		t.Fatalf("delete status %d", w.Code)
	}
	var count int64
	db.Model(&models.ChatRoom{}).Where("order_id = ?", ord.ID).Count(&count)
	if count != 0 {
		t.Fatal("room survived order deletion")
	}

	// PROCESSING: not deletable
	ord2 := createTestOrder(t, r, ownerTok)
	var room2 models.ChatRoom
	db.Where("order_id = ?", ord2.ID).First(&room2)
	w := doJSON(t, r, "PATCH", "/chatrooms/"+room2.ID+"/status", adminTok, `{"closingSummary":"triaged"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("close status %d: %s", w.Code, w.Body.String())
	}
	if w := doJSON(t, r, "DELETE", "/orders/"+ord2.ID, ownerTok, ""); w.Code != http.StatusForbidden {
		t.Fatalf("delete processing status %d", w.Code)
	}
}
