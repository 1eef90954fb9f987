package identity

import (
	"context"
	"slices"

	"github.com/shafin2/skillsphere-backend/internal/repository"
)

// Caller is the authenticated principal attached to a request.
type Caller struct {
	ID    string
	Name  string
	Email string
	Roles []repository.Role
}

func (c Caller) HasRole(role repository.Role) bool {
	return slices.Contains(c.Roles, role)
}

// PrimaryRole prefers mentor over learner for role-aware behaviour.
func (c Caller) PrimaryRole() repository.Role {
	switch {
	case c.HasRole(repository.RoleMentor):
		return repository.RoleMentor
	case c.HasRole(repository.RoleAdmin):
		return repository.RoleAdmin
	default:
		return repository.RoleLearner
	}
}

type Verifier interface {
	// VerifyCaller returns an apperr auth error for missing, expired or malformed tokens.
	VerifyCaller(ctx context.Context, token string) (Caller, error)
}
