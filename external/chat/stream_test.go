package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shafin2/skillsphere-backend/internal/chat"
)

type capturedRequest struct {
	path     string
	apiKey   string
	authType string
	claims   jwt.MapClaims
	body     map[string]any
}

func newStreamServer(t *testing.T, status int, captured *[]capturedRequest) *StreamClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := capturedRequest{
			path:     r.URL.Path,
			apiKey:   r.URL.Query().Get("api_key"),
			authType: r.Header.Get("Stream-Auth-Type"),
			claims:   jwt.MapClaims{},
		}
		if _, err := jwt.ParseWithClaims(r.Header.Get("Authorization"), req.claims, func(*jwt.Token) (any, error) {
			return []byte("secret"), nil
		}); err != nil {
			t.Errorf("invalid server token: %v", err)
		}
		if err := json.NewDecoder(r.Body).Decode(&req.body); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		*captured = append(*captured, req)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"duration":"1ms"}`))
	}))
	t.Cleanup(srv.Close)
	return NewStreamClient(StreamConfig{APIKey: "key", APISecret: "secret", BaseURL: srv.URL + "/"})
}

func TestUpsertParticipants(t *testing.T) {
	var captured []capturedRequest
	c := newStreamServer(t, http.StatusCreated, &captured)

	err := c.UpsertParticipants(context.Background(), []chat.Participant{
		{ID: "m1", Name: "Mina", Role: "mentor"},
		{ID: "l1", Name: "Leo", Image: "https://img/l1.png", Role: "learner"},
	})
	if err != nil {
		t.Fatalf("UpsertParticipants failed: %v", err)
	}
	if len(captured) != 1 {
		t.Fatalf("expected 1 request, got %d", len(captured))
	}
	req := captured[0]
	if req.path != "/users" || req.apiKey != "key" || req.authType != "jwt" || req.claims["server"] != true {
		t.Fatalf("unexpected request: %+v", req)
	}
	users := req.body["users"].(map[string]any)
	l1 := users["l1"].(map[string]any)
	if l1["name"] != "Leo" || l1["platform_role"] != "learner" || l1["image"] != "https://img/l1.png" {
		t.Fatalf("unexpected user payload: %v", l1)
	}
}

func TestUpsertParticipants_Empty(t *testing.T) {
	var captured []capturedRequest
	c := newStreamServer(t, http.StatusOK, &captured)
	if err := c.UpsertParticipants(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(captured) != 0 {
		t.Fatal("expected no request for empty participants")
	}
}

func TestCreateOrGetRoom(t *testing.T) {
	var captured []capturedRequest
	c := newStreamServer(t, http.StatusOK, &captured)

	err := c.CreateOrGetRoom(context.Background(), "booking_b1", []string{"m1", "l1"}, chat.RoomMetadata{
		Name: "Session: Mina & Leo", BookingID: "b1", SessionDate: "2026-10-05", SessionTime: "10:00", CreatedBy: "m1",
	})
	if err != nil {
		t.Fatalf("CreateOrGetRoom failed: %v", err)
	}
	req := captured[0]
	if req.path != "/channels/messaging/booking_b1/query" {
		t.Fatalf("unexpected path: %s", req.path)
	}
	data := req.body["data"].(map[string]any)
	members := data["members"].([]any)
	if len(members) != 2 || data["created_by_id"] != "m1" || data["booking_id"] != "b1" || data["name"] != "Session: Mina & Leo" {
		t.Fatalf("unexpected channel data: %v", data)
	}
}

func TestCreateOrGetRoom_ErrorStatus(t *testing.T) {
	var captured []capturedRequest
	c := newStreamServer(t, http.StatusBadRequest, &captured)
	err := c.CreateOrGetRoom(context.Background(), "booking_b1", []string{"m1"}, chat.RoomMetadata{})
	if err == nil || !strings.Contains(err.Error(), "400") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestIssueUserToken(t *testing.T) {
	c := NewStreamClient(StreamConfig{APIKey: "key", APISecret: "secret"})
	token, err := c.IssueUserToken("l1")
	if err != nil {
		t.Fatalf("IssueUserToken failed: %v", err)
	}
	claims := jwt.MapClaims{}
	if _, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) { return []byte("secret"), nil }); err != nil {
		t.Fatalf("failed to parse token: %v", err)
	}
	if claims["user_id"] != "l1" {
		t.Fatalf("unexpected claims: %v", claims)
	}
	if _, err := c.IssueUserToken(""); err == nil {
		t.Fatal("expected error for empty user id")
	}
}
