package chat

import "context"

type Participant struct {
	ID    string
	Name  string
	Email string
	Image string
	Role  string
}

type RoomMetadata struct {
	Name        string
	BookingID   string
	SessionDate string
	SessionTime string
	CreatedBy   string
}

type Provider interface {
	UpsertParticipants(ctx context.Context, participants []Participant) error
	// CreateOrGetRoom returns without error when the room already exists.
	CreateOrGetRoom(ctx context.Context, roomID string, members []string, meta RoomMetadata) error
	IssueUserToken(userID string) (string, error)
}
