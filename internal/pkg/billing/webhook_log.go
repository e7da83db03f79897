package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/ManuelReschke/GridFox/app/models"
	"github.com/ManuelReschke/GridFox/app/repository"
)

// EventLog persists webhook deliveries so already processed events are
// acknowledged without running the handlers twice.
type EventLog struct {
	events repository.WebhookEventRepository
}

func NewEventLog(events repository.WebhookEventRepository) *EventLog {
	return &EventLog{events: events}
}

// Record stores the event once per provider event id. The returned bool is
// false when an earlier delivery of the same event already succeeded.
func (l *EventLog) Record(ctx context.Context, ev Event, payload []byte) (*models.WebhookEvent, bool, error) {
	eventID := strings.TrimSpace(ev.EventID())
	if eventID == "" {
		sum := sha256.Sum256(payload)
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	_, stored, err := l.events.CreateIfNotExists(ctx, &models.WebhookEvent{
		Provider:        models.WebhookProviderStripe,
		ProviderEventID: eventID,
		EventType:       ev.EventType(),
		PayloadJSON:     string(payload),
	})
	if err != nil {
		return nil, false, err
	}
	return stored, stored.NeedsProcessing(), nil
}

// MarkProcessed stores the handler outcome on the logged event.
func (l *EventLog) MarkProcessed(ctx context.Context, id uint, res Result) error {
	if id == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if !res.Success {
		errMsg = res.Error
		if errMsg == "" {
			errMsg = "handler failed"
		}
	}
	return l.events.MarkProcessed(ctx, id, errMsg)
}
