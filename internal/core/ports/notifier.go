package ports

import (
	"context"

	"github.com/ainterviewer/identity-service/internal/core/domain"
)

// Notifier sends notifications best-effort. It never reports failures to the
// caller; delivery problems are logged by the implementation.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification)
}
