package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/events"
)

// AuditService writes a structured audit trail for authentication events.
// It keeps diagnostic detail out of the response path: clients see a
// uniform rejection while the trail records what actually happened.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	return &AuditService{dispatcher: dispatcher, logger: logger}
}

// RegisterHandlers subscribes to auth events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventLoginSucceeded, a.handleLoginSucceeded)
	a.dispatcher.Subscribe(events.EventLoginFailed, a.handleLoginFailed)
	a.dispatcher.Subscribe(events.EventLoginThrottled, a.handleLoginThrottled)
	a.dispatcher.Subscribe(events.EventTokenIssued, a.handleTokenIssued)
}

func (a *AuditService) handleLoginSucceeded(_ context.Context, event events.Event) error {
	a.logger.Info("LoginSucceeded", zap.String("subject", event.Subject))
	return nil
}

func (a *AuditService) handleLoginFailed(_ context.Context, event events.Event) error {
	a.logger.Warn("LoginFailed", zap.String("subject", event.Subject), zap.Any("payload", event.Payload))
	return nil
}

func (a *AuditService) handleLoginThrottled(_ context.Context, event events.Event) error {
	a.logger.Warn("LoginThrottled", zap.String("subject", event.Subject), zap.Any("payload", event.Payload))
	return nil
}

func (a *AuditService) handleTokenIssued(_ context.Context, event events.Event) error {
	a.logger.Info("TokenIssued", zap.String("subject", event.Subject), zap.Any("payload", event.Payload))
	return nil
}
