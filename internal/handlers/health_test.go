package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestHealth(t *testing.T) {
	_, r, _ := setupTest(t)

	w := doJSON(t, r, "GET", "/health", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("health status %d", w.Code)
	}
	var s StatusResponse
	json.Unmarshal(w.Body.Bytes(), &s)
	if s.Status != "ok" {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}
