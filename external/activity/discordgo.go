package activity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/shafin2/skillsphere-backend/internal/activity"
)

const (
	colorInfo    = 0x3b82f6
	colorSuccess = 0x22c55e
	colorDanger  = 0xef4444
	colorMuted   = 0x6b7280
)

// DiscordPublisher posts booking lifecycle events as embeds to a single
// channel through the REST API. No gateway connection is opened.
type DiscordPublisher struct {
	session   *discordgo.Session
	channelID string
}

func NewDiscordPublisher(token, channelID string) (*DiscordPublisher, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	return &DiscordPublisher{session: s, channelID: channelID}, nil
}

func (p *DiscordPublisher) Publish(ctx context.Context, event activity.Event) error {
	_, err := p.session.ChannelMessageSendComplex(p.channelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{buildEmbed(event)},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("send activity message: %w", err)
	}
	slog.Debug("activity event published", "kind", event.Kind, "booking_id", event.BookingID)
	return nil
}

func buildEmbed(event activity.Event) *discordgo.MessageEmbed {
	title, color := describeEvent(event.Kind)
	fields := []*discordgo.MessageEmbedField{
		{Name: "Mentor", Value: orDash(event.MentorName), Inline: true},
		{Name: "Learner", Value: orDash(event.LearnerName), Inline: true},
		{Name: "Slot", Value: event.Date.Format(time.DateOnly) + " " + event.Time, Inline: true},
	}
	if event.Warning != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Warning", Value: event.Warning})
	}
	return &discordgo.MessageEmbed{
		Title:  title,
		Color:  color,
		Fields: fields,
		Footer: &discordgo.MessageEmbedFooter{Text: "booking " + event.BookingID},
	}
}

func describeEvent(kind activity.EventKind) (string, int) {
	switch kind {
	case activity.EventBookingRequested:
		return "New booking request", colorInfo
	case activity.EventBookingConfirmed:
		return "Booking confirmed", colorSuccess
	case activity.EventBookingRejected:
		return "Booking rejected", colorDanger
	case activity.EventBookingCancelled:
		return "Booking cancelled", colorMuted
	case activity.EventBookingCompleted:
		return "Booking completed", colorSuccess
	case activity.EventSessionCompleted:
		return "Session completed", colorSuccess
	}
	return string(kind), colorMuted
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// NoopPublisher drops every event; it is used when no Discord bot is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, activity.Event) error {
	return nil
}
