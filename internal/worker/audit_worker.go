package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/collabdir/directory-service/internal/events"
	"github.com/collabdir/directory-service/internal/persistence"
)

const lastLoginKeyPrefix = "last_login:"

// StartAuditWorker subscribes audit handlers to directory events: every
// event is logged, and successful logins record a last-login timestamp in
// Redis when available.
func StartAuditWorker(dispatcher events.Dispatcher, logger *zap.Logger, rdb *persistence.Redis) {
	if dispatcher == nil {
		return
	}

	logHandler := func(_ context.Context, event events.Event) error {
		logger.Info("directory event",
			zap.String("event_id", event.ID),
			zap.String("type", string(event.Type)),
			zap.String("user_id", event.UserID),
			zap.String("email", event.Email),
			zap.Time("timestamp", event.Timestamp),
		)
		return nil
	}

	for _, eventType := range []events.EventType{
		events.EventUserCreated,
		events.EventUserUpdated,
		events.EventUserDeleted,
		events.EventLoginSucceeded,
		events.EventLoginFailed,
	} {
		dispatcher.Subscribe(eventType, logHandler)
	}

	if rdb != nil && rdb.Client != nil {
		dispatcher.Subscribe(events.EventLoginSucceeded, func(ctx context.Context, event events.Event) error {
			return rdb.Client.Set(ctx, lastLoginKeyPrefix+event.UserID,
				event.Timestamp.Format(time.RFC3339), 0).Err()
		})
	}
}
