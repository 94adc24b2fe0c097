package service

import (
	"context"
	"strings"

	"ai-textassist-be/internal/pkg/logger"
	"ai-textassist-be/pkg/events"
	pktNats "ai-textassist-be/pkg/nats"
)

// EventSubscriber is implemented by pktNats.Subscriber.
type EventSubscriber interface {
	Subscribe(ctx context.Context, subject string, durableName string, handler pktNats.EventHandler) error
}

// AuditService writes every domain event on the bus to the audit log.
type AuditService struct {
	subscriber EventSubscriber
	metrics    *Metrics
	logger     logger.ILogger
}

func NewAuditService(sub EventSubscriber, metrics *Metrics, log logger.ILogger) *AuditService {
	return &AuditService{subscriber: sub, metrics: metrics, logger: log}
}

// Start begins listening to the event bus.
func (s *AuditService) Start(ctx context.Context) error {
	if err := s.subscriber.Subscribe(ctx, "events.>", "textassist-audit", s.handleEvent); err != nil {
		s.logger.Error("AUDIT", "Failed to start audit subscriber", map[string]interface{}{"error": err.Error()})
		return err
	}
	s.logger.Info("AUDIT", "Audit service started, listening to events.>", nil)
	return nil
}

func (s *AuditService) handleEvent(ctx context.Context, event events.Event) error {
	eventType := strings.TrimPrefix(event.EventType(), "events.")
	details := map[string]interface{}{
		"type":        eventType,
		"occurred_at": event.Timestamp(),
	}
	for k, v := range event.Payload() {
		if k == "email" {
			continue
		}
		details[k] = v
	}

	switch eventType {
	case events.TypeActionPerformed, events.TypeSubscriptionVerified, events.TypeUserRegistered, events.TypeModelConfigUpdated:
		s.logger.Info("AUDIT", eventType, details)
	default:
		s.logger.Warn("AUDIT", "Unknown event type", details)
	}
	s.metrics.ObserveEvent(eventType)
	return nil
}
