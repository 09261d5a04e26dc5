package model

import (
	"database/sql"
	"time"
)

type EventType string

const (
	EventOpen        EventType = "open"
	EventClick       EventType = "click"
	EventUnsubscribe EventType = "unsubscribe"
)

func (t EventType) String() string { return string(t) }

// Event is an append-only record of subscriber interaction, written by the
// tracking endpoints and never mutated.
type Event struct {
	ID           string         `db:"id"`
	SubscriberID string         `db:"subscriber_id"`
	CampaignID   string         `db:"campaign_id"`
	Type         EventType      `db:"event_type"`
	Data         sql.NullString `db:"event_data"` // JSON payload, e.g. {"url": ...} for clicks
	CreatedAt    time.Time      `db:"created_at"`
}
