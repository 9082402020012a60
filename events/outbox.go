package events

import (
	"context"
	"encoding/json"

	"github.com/Kariqs/franchise-api/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// Sink persists event records.
type Sink interface {
	AppendEvents(ctx context.Context, records []models.EventRecord) error
}

// Outbox records every published event so external consumers can replay the
// change history.
type Outbox struct {
	sink   Sink
	logger *zap.Logger
}

func NewOutbox(sink Sink, logger *zap.Logger) *Outbox {
	return &Outbox{sink: sink, logger: logger}
}

func (o *Outbox) Publish(ctx context.Context, evs ...Event) {
	records := make([]models.EventRecord, 0, len(evs))
	for _, e := range evs {
		env := NewEnvelope(e)
		payload, err := json.Marshal(env.Payload)
		if err != nil {
			o.logger.Error("failed to marshal event", zap.String("event", env.Type), zap.Error(err))
			continue
		}
		records = append(records, models.EventRecord{
			ID:         uuid.NewString(),
			EventType:  env.Type,
			Payload:    datatypes.JSON(payload),
			OccurredAt: env.OccurredAt,
		})
	}
	if len(records) == 0 {
		return
	}
	if err := o.sink.AppendEvents(context.WithoutCancel(ctx), records); err != nil {
		o.logger.Error("failed to record events", zap.Int("count", len(records)), zap.Error(err))
	}
}
