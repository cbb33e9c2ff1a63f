package messaging

import (
	"github.com/abroad-hub/counsellor/internal/domain/shared"
	"github.com/abroad-hub/counsellor/pkg/logger"
)

// AuditLogHandler writes every ledger event to the log. It is the durable
// trail of shortlist and lock changes when no external sink is configured.
func AuditLogHandler(log *logger.Logger) shared.EventHandler {
	log = log.With(logger.Component("ledger-audit"))
	return func(event shared.Event) error {
		fields := []logger.Field{
			logger.EventType(string(event.EventType())),
			logger.UserID(event.AggregateID()),
			logger.Time("occurred_at", event.OccurredAt()),
		}
		for k, v := range event.Payload() {
			if k == "user_id" {
				continue
			}
			fields = append(fields, logger.Any(k, v))
		}
		log.Info("ledger event", fields...)
		return nil
	}
}
