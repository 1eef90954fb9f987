package activity

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/shafin2/skillsphere-backend/internal/activity"
)

type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestPublisher(t *testing.T, rt roundTripFunc) *DiscordPublisher {
	t.Helper()
	p, err := NewDiscordPublisher("test-token", "channel-1")
	if err != nil {
		t.Fatalf("failed to create publisher: %v", err)
	}
	p.session.Client = &http.Client{Transport: rt}
	return p
}

func TestPublish_SendsEmbedToChannel(t *testing.T) {
	var sent discordgo.MessageSend
	p := newTestPublisher(t, func(req *http.Request) (*http.Response, error) {
		if req.Method != http.MethodPost || !strings.HasSuffix(req.URL.Path, "/channels/channel-1/messages") {
			t.Fatalf("unexpected request: %s %s", req.Method, req.URL.Path)
		}
		if got := req.Header.Get("Authorization"); got != "Bot test-token" {
			t.Fatalf("unexpected authorization header: %q", got)
		}
		if err := json.NewDecoder(req.Body).Decode(&sent); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Status:     "200 OK",
			Body:       io.NopCloser(strings.NewReader(`{"id":"msg-1","channel_id":"channel-1"}`)),
			Header:     make(http.Header),
		}, nil
	})

	err := p.Publish(context.Background(), activity.Event{
		Kind:        activity.EventBookingConfirmed,
		BookingID:   "b1",
		MentorName:  "Mina",
		LearnerName: "Leo",
		Date:        time.Date(2026, 10, 5, 0, 0, 0, 0, time.UTC),
		Time:        "10:00",
		Warning:     "chat room could not be created",
	})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if len(sent.Embeds) != 1 {
		t.Fatalf("expected one embed, got %d", len(sent.Embeds))
	}
	embed := sent.Embeds[0]
	if embed.Title != "Booking confirmed" || embed.Color != colorSuccess || embed.Footer.Text != "booking b1" {
		t.Fatalf("unexpected embed: %+v", embed)
	}
	if len(embed.Fields) != 4 || embed.Fields[2].Value != "2026-10-05 10:00" || embed.Fields[3].Name != "Warning" {
		t.Fatalf("unexpected fields: %+v", embed.Fields)
	}
}

func TestPublish_ReturnsRESTError(t *testing.T) {
	p := newTestPublisher(t, func(*http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusForbidden,
			Status:     "403 Forbidden",
			Body:       io.NopCloser(strings.NewReader(`{"message":"Missing Access","code":50001}`)),
			Header:     make(http.Header),
		}, nil
	})
	if err := p.Publish(context.Background(), activity.Event{Kind: activity.EventBookingRequested}); err == nil {
		t.Fatal("expected error for forbidden response")
	}
}

func TestBuildEmbed_NamesFallBackToDash(t *testing.T) {
	embed := buildEmbed(activity.Event{Kind: "custom_kind", BookingID: "b2"})
	if embed.Title != "custom_kind" || embed.Color != colorMuted {
		t.Fatalf("unexpected embed: %+v", embed)
	}
	if embed.Fields[0].Value != "-" || embed.Fields[1].Value != "-" || len(embed.Fields) != 3 {
		t.Fatalf("unexpected fields: %+v", embed.Fields)
	}
}
