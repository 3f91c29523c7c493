package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/asafe/user-service/internal/config"
	"github.com/asafe/user-service/internal/events"
	"github.com/asafe/user-service/internal/notification"
	"github.com/asafe/user-service/internal/observability"
)

// Broadcaster fans a message out to subscribers.
type Broadcaster interface {
	Broadcast(ctx context.Context, message string) notification.BroadcastResult
}

// NotificationService pushes messages to websocket subscribers.
type NotificationService struct {
	registry   Broadcaster
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(registry Broadcaster, dispatcher events.Dispatcher, metrics *observability.Metrics, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		registry:   registry,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
		cfg:        cfg,
	}
}

// Broadcast sends message to every open subscriber. Per-connection failures
// are counted, never returned.
func (n *NotificationService) Broadcast(ctx context.Context, message string) notification.BroadcastResult {
	result := n.registry.Broadcast(ctx, message)
	n.metrics.RecordBroadcast(result.Delivered, result.Skipped, result.Failed)
	n.logger.Info("notification broadcast",
		zap.Int("delivered", result.Delivered),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed))
	return result
}

// RegisterHandlers subscribes to user events when forwarding is enabled.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil || !n.cfg.BroadcastUserEvents {
		return
	}
	n.dispatcher.Subscribe(events.EventUserRegistered, n.forwardEvent)
	n.dispatcher.Subscribe(events.EventUserUpdated, n.forwardEvent)
	n.dispatcher.Subscribe(events.EventUserDeleted, n.forwardEvent)
}

func (n *NotificationService) forwardEvent(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	// the request context may end before slow subscribers finish
	n.Broadcast(context.WithoutCancel(ctx), string(payload))
	return nil
}
