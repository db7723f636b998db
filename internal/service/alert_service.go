package service

import (
	"context"
	"fmt"

	"derm-triage-be/internal/constant"
	"derm-triage-be/internal/model"
	"derm-triage-be/internal/pkg/logger"
	"derm-triage-be/internal/websocket"
	"derm-triage-be/pkg/events"
	"derm-triage-be/pkg/nats"

	"github.com/google/uuid"
)

type IAlertService interface {
	Start() error
}

// alertService turns bus events into clinician alerts on the websocket feed.
type alertService struct {
	subscriber *nats.Subscriber
	hub        *websocket.Hub
	logger     logger.ILogger
}

func NewAlertService(subscriber *nats.Subscriber, hub *websocket.Hub, log logger.ILogger) IAlertService {
	return &alertService{
		subscriber: subscriber,
		hub:        hub,
		logger:     log,
	}
}

func (s *alertService) Start() error {
	err := s.subscriber.Subscribe(nats.Subject(constant.EventCaseEscalated), "alert-worker-escalated", s.handleEvent)
	if err != nil {
		return fmt.Errorf("failed to subscribe to escalation events: %w", err)
	}

	err = s.subscriber.Subscribe(nats.Subject(constant.EventCaseFinalized), "alert-worker-finalized", s.handleEvent)
	if err != nil {
		return fmt.Errorf("failed to subscribe to finalization events: %w", err)
	}

	return nil
}

func (s *alertService) handleEvent(ctx context.Context, event events.Event) error {
	payload := event.Payload()

	sessionId, _ := payload["session_id"].(string)
	alert := model.Alert{
		Id:        uuid.New(),
		Code:      event.EventType(),
		SessionId: sessionId,
		Message:   alertMessage(event.EventType(), payload),
		Data:      payload,
		CreatedAt: event.Timestamp(),
	}

	s.hub.Broadcast(alert)

	s.logger.Info("AlertService", "Alert broadcast", map[string]interface{}{
		"code":       alert.Code,
		"session_id": alert.SessionId,
	})
	return nil
}

func alertMessage(code string, payload map[string]interface{}) string {
	switch code {
	case constant.EventCaseEscalated:
		reason, _ := payload["reason"].(string)
		return fmt.Sprintf("Session escalated for urgent review: %s", reason)
	case constant.EventCaseFinalized:
		outcome, _ := payload["outcome"].(string)
		return fmt.Sprintf("Case finalized with outcome %s", outcome)
	}
	return "Triage event received"
}
