package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ainterviewer/identity-service/internal/core/domain"
	"github.com/ainterviewer/identity-service/internal/core/ports"
)

// AuditService records actions attempted through the API. A failed insert is
// logged and otherwise ignored.
type AuditService struct {
	events ports.AuditRepository
	now    Clock
	log    zerolog.Logger
}

func NewAuditService(events ports.AuditRepository, clock Clock, log zerolog.Logger) *AuditService {
	if clock == nil {
		clock = SystemClock
	}
	return &AuditService{events: events, now: clock, log: log}
}

var _ ports.AuditService = (*AuditService)(nil)

// Record stores one audit event. cause is the error the action ended with, if
// any.
func (s *AuditService) Record(ctx context.Context, actor, action string, data map[string]string, cause error) {
	event := &domain.AuditEvent{
		Date:   s.now(),
		User:   actor,
		Action: action,
		Data:   data,
		Error:  cause != nil,
	}
	if cause != nil {
		event.Exception = domain.CodeOf(cause)
	}
	if err := s.events.Insert(ctx, event); err != nil {
		s.log.Error().Err(err).Str("action", action).Msg("failed to record audit event")
	}
}
