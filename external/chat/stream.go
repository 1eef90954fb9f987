package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shafin2/skillsphere-backend/internal/chat"
)

const (
	defaultBaseURL    = "https://chat.stream-io-api.com"
	channelType       = "messaging"
	maxErrorBodyBytes = 512
)

type StreamConfig struct {
	APIKey    string
	APISecret string
	BaseURL   string
}

// StreamClient talks to the Stream Chat server-side REST API.
type StreamClient struct {
	apiKey  string
	secret  []byte
	baseURL string
	client  *http.Client
}

func NewStreamClient(cfg StreamConfig) *StreamClient {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &StreamClient{
		apiKey:  cfg.APIKey,
		secret:  []byte(cfg.APISecret),
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

type streamUser struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Image string `json:"image,omitempty"`
	// PlatformRole is a custom field; Stream reserves "role" for permissions.
	PlatformRole string `json:"platform_role,omitempty"`
}

func (c *StreamClient) UpsertParticipants(ctx context.Context, participants []chat.Participant) error {
	if len(participants) == 0 {
		return nil
	}
	users := make(map[string]streamUser, len(participants))
	for _, p := range participants {
		users[p.ID] = streamUser{ID: p.ID, Name: p.Name, Email: p.Email, Image: p.Image, PlatformRole: p.Role}
	}
	return c.post(ctx, "/users", map[string]any{"users": users})
}

type channelData struct {
	Name        string   `json:"name,omitempty"`
	Members     []string `json:"members"`
	CreatedByID string   `json:"created_by_id,omitempty"`
	BookingID   string   `json:"booking_id,omitempty"`
	SessionDate string   `json:"session_date,omitempty"`
	SessionTime string   `json:"session_time,omitempty"`
}

func (c *StreamClient) CreateOrGetRoom(ctx context.Context, roomID string, members []string, meta chat.RoomMetadata) error {
	path := fmt.Sprintf("/channels/%s/%s/query", channelType, url.PathEscape(roomID))
	return c.post(ctx, path, map[string]any{
		"state": true,
		"data": channelData{
			Name:        meta.Name,
			Members:     members,
			CreatedByID: meta.CreatedBy,
			BookingID:   meta.BookingID,
			SessionDate: meta.SessionDate,
			SessionTime: meta.SessionTime,
		},
	})
}

// IssueUserToken returns a non-expiring client token, as the Stream SDKs do.
func (c *StreamClient) IssueUserToken(userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("user id is required")
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": userID}).SignedString(c.secret)
}

func (c *StreamClient) serverToken() (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"server": true}).SignedString(c.secret)
}

func (c *StreamClient) post(ctx context.Context, path string, body any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode stream request: %w", err)
	}
	token, err := c.serverToken()
	if err != nil {
		return fmt.Errorf("sign stream server token: %w", err)
	}
	endpoint := c.baseURL + path + "?api_key=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", token)
	req.Header.Set("Stream-Auth-Type", "jwt")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("stream %s: %w", path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return fmt.Errorf("stream %s returned status %d: %s", path, resp.StatusCode, bytes.TrimSpace(msg))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
