package ports

import (
	"context"

	"github.com/ainterviewer/identity-service/internal/core/domain"
)

// UserRepository is the durable owner of User aggregates. Implementations
// return domain.ErrUserNotFound on a miss and wrap infrastructure failures with
// domain.ErrStorage.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// FindByEmail matches case-insensitively.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// List returns every user. It is a full scan.
	List(ctx context.Context) ([]*domain.User, error)
	Count(ctx context.Context) (int64, error)
	// Insert stores a new user; a duplicate email yields domain.ErrUserExists.
	Insert(ctx context.Context, user *domain.User) error
	// Update replaces the stored document. Last writer wins.
	Update(ctx context.Context, user *domain.User) error
}

// AuditRepository persists audit events.
type AuditRepository interface {
	Insert(ctx context.Context, event *domain.AuditEvent) error
}
