package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shafin2/skillsphere-backend/internal/apperr"
	"github.com/shafin2/skillsphere-backend/internal/identity"
	"github.com/shafin2/skillsphere-backend/internal/repository"
)

const accessTokenType = "access"

type accessClaims struct {
	jwt.RegisteredClaims
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
	Type  string   `json:"type"`
}

// JWTVerifier validates HS256 access tokens issued by the auth service.
type JWTVerifier struct {
	secret []byte
	now    func() time.Time
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), now: time.Now}
}

func (v *JWTVerifier) VerifyCaller(_ context.Context, token string) (identity.Caller, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return identity.Caller{}, apperr.Auth("Authentication required")
	}

	var claims accessClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return identity.Caller{}, apperr.Wrap(apperr.KindAuth, "Token has expired", err)
		}
		return identity.Caller{}, apperr.Wrap(apperr.KindAuth, "Invalid or expired token", err)
	}
	if claims.Type != accessTokenType {
		return identity.Caller{}, apperr.Auth("Invalid token type")
	}
	if claims.Subject == "" {
		return identity.Caller{}, apperr.Auth("Invalid or expired token")
	}

	roles := make([]repository.Role, 0, len(claims.Roles))
	for _, r := range claims.Roles {
		roles = append(roles, repository.Role(r))
	}
	return identity.Caller{
		ID:    claims.Subject,
		Name:  claims.Name,
		Email: claims.Email,
		Roles: roles,
	}, nil
}
