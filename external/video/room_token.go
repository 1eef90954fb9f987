package video

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shafin2/skillsphere-backend/internal/video"
)

type roomClaims struct {
	jwt.RegisteredClaims
	Room string     `json:"room"`
	Role video.Role `json:"role"`
}

// RoomTokenIssuer signs short-lived HS256 room tokens with the app certificate.
type RoomTokenIssuer struct {
	appID       string
	certificate []byte
	now         func() time.Time
}

func NewRoomTokenIssuer(appID, certificate string) *RoomTokenIssuer {
	return &RoomTokenIssuer{appID: appID, certificate: []byte(certificate), now: time.Now}
}

func (i *RoomTokenIssuer) IssueRoomToken(roomName, userID string, role video.Role, ttl time.Duration) (video.Token, error) {
	if roomName == "" || userID == "" {
		return video.Token{}, errors.New("room name and user id are required")
	}
	if len(i.certificate) == 0 {
		return video.Token{}, errors.New("video app certificate is not configured")
	}
	if role == "" {
		role = video.RoleSubscriber
	}
	issuedAt := i.now().UTC()
	expiresAt := issuedAt.Add(ttl)
	claims := roomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.appID,
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Room: roomName,
		Role: role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.certificate)
	if err != nil {
		return video.Token{}, err
	}
	return video.Token{
		Token:     signed,
		AppID:     i.appID,
		RoomName:  roomName,
		UserID:    userID,
		ExpiresAt: expiresAt,
	}, nil
}
