package worker

import (
	"github.com/spec-kit/request-hub/internal/service"
)

// StartNotificationWorker registers the side-channel event handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
