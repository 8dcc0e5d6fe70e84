package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"atomdeck/api/internal/rbac"
)

func (s *Service) ListUsers(ctx context.Context) ([]map[string]any, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]map[string]any, len(users))
	for i, u := range users {
		out[i] = map[string]any{
			"id":          u.ID,
			"displayName": u.DisplayName,
			"role":        u.Role,
			"createdAt":   u.CreatedAt,
		}
	}
	return out, nil
}

// SetUserRole changes a member's role. Tokens already issued keep the old
// role until they expire.
func (s *Service) SetUserRole(ctx context.Context, actor Session, userID, role string) (map[string]any, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	switch rbac.Role(role) {
	case rbac.RoleViewer, rbac.RoleEditor, rbac.RoleAdmin:
	default:
		return nil, invalid("role must be viewer, editor or admin")
	}
	if userID == actor.UserID && rbac.Role(role) != rbac.RoleAdmin {
		return nil, domainError(http.StatusConflict, "SELF_DEMOTION", "Admins cannot remove their own admin role", nil)
	}
	ok, err := s.store.SetUserRole(ctx, userID, role)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFound("User", "id", userID)
	}
	return map[string]any{"id": userID, "role": role}, nil
}

// Reindex rebuilds the search index from the database in the background.
func (s *Service) Reindex(ctx context.Context) bool {
	if s.reindex == nil {
		return false
	}
	go s.reindex(context.WithoutCancel(ctx))
	return true
}

func (s *Service) BridgeStats() map[string]any {
	if s.bridge == nil {
		return map[string]any{"enabled": false}
	}
	return map[string]any{"enabled": true, "stats": s.bridge.Stats()}
}
