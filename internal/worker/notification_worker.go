package worker

import (
	"github.com/binkeyit/storefront/internal/service"
)

// StartNotificationWorker subscribes the notification service to account
// events. Delivery runs synchronously on the publishing request.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
