package worker

import (
	"go.uber.org/zap"

	"github.com/asafe/user-service/internal/config"
	"github.com/asafe/user-service/internal/service"
)

// StartNotificationWorker subscribes the notification service to user
// lifecycle events when forwarding is enabled.
func StartNotificationWorker(notificationService *service.NotificationService, cfg config.NotificationConfig, logger *zap.Logger) {
	if notificationService == nil {
		return
	}
	if !cfg.BroadcastUserEvents {
		logger.Debug("user event forwarding disabled")
		return
	}
	notificationService.RegisterHandlers()
	logger.Info("forwarding user events to notification subscribers")
}
