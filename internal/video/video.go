package video

import "time"

type Role string

const (
	RolePublisher  Role = "publisher"
	RoleSubscriber Role = "subscriber"
)

type Token struct {
	Token     string    `json:"token"`
	AppID     string    `json:"appId"`
	RoomName  string    `json:"channelName"`
	UserID    string    `json:"uid"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type TokenIssuer interface {
	IssueRoomToken(roomName, userID string, role Role, ttl time.Duration) (Token, error)
}
