package ports

import (
	"context"

	"github.com/ainterviewer/identity-service/internal/core/domain"
)

// MessageInput is a free-form message from an admin to one user.
type MessageInput struct {
	UserID  string
	Subject string
	Message string
}

// BroadcastInput is a free-form message to every non-admin speaking Language.
type BroadcastInput struct {
	Subject  string
	Message  string
	Language domain.Language
}

// AdminService groups the operations reserved to administrators.
type AdminService interface {
	InactiveUsers(ctx context.Context) ([]*domain.User, error)
	ReactivateUser(ctx context.Context, userID string) error
	UsersInfo(ctx context.Context) ([]*domain.User, error)
	SendMessageToUser(ctx context.Context, in MessageInput) error
	SendMessageToAllUsers(ctx context.Context, in BroadcastInput) (int, error)
}

// AuditService records API actions. Recording is best-effort.
type AuditService interface {
	Record(ctx context.Context, actor, action string, data map[string]string, cause error)
}
