package worker

import (
	"github.com/spec-kit/task-service/internal/events"
	"github.com/spec-kit/task-service/internal/service"
)

// StartActivityWorker registers the activity feed subscriber.
func StartActivityWorker(activityService *service.ActivityService, dispatcher events.Dispatcher) {
	if activityService == nil {
		return
	}
	activityService.RegisterHandlers(dispatcher)
}
