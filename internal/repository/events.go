package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/hbagheri/mailflow/internal/model"
)

// EventsRepository is append-only; the dispatch engine never reads it.
type EventsRepository interface {
	Insert(ctx context.Context, e model.Event) error
}

type EventsRepositoryImpl struct {
	db *sqlx.DB
}

func NewEventsRepository(db *sqlx.DB) *EventsRepositoryImpl {
	return &EventsRepositoryImpl{db: db}
}

func (r *EventsRepositoryImpl) Insert(ctx context.Context, e model.Event) error {
	const q = `
		INSERT INTO events (id, subscriber_id, campaign_id, event_type, event_data, created_at)
		VALUES (?, ?, ?, ?, ?, NOW())
	`
	_, err := r.db.ExecContext(ctx, q, e.ID, e.SubscriberID, e.CampaignID, e.Type.String(), e.Data)
	return err
}
