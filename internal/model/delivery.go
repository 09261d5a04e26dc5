package model

import (
	"database/sql"
	"time"
)

type DeliveryStatus string

const (
	DeliveryPending DeliveryStatus = "pending"
	DeliverySent    DeliveryStatus = "sent"
	DeliveryFailed  DeliveryStatus = "failed"
)

func (s DeliveryStatus) String() string { return string(s) }

func (s DeliveryStatus) Valid() bool {
	return s == DeliveryPending || s == DeliverySent || s == DeliveryFailed
}

// DeliveryRecord is the ledger's unit: one row per (campaign, subscriber)
// pair, created in bulk when a campaign leaves draft. The auto-increment ID
// preserves insertion order for the dispatch loop.
type DeliveryRecord struct {
	ID           int64          `db:"id"`
	CampaignID   string         `db:"campaign_id"`
	SubscriberID string         `db:"subscriber_id"`
	Status       DeliveryStatus `db:"status"`
	Attempts     int            `db:"attempts"`
	LastError    sql.NullString `db:"last_error"`
	ProviderMsgID sql.NullString `db:"provider_msg_id"`
	SentAt       sql.NullTime   `db:"sent_at"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

// PendingDelivery is what NextPending hands the dispatch loop: the ledger row
// joined with the recipient's address and name.
type PendingDelivery struct {
	DeliveryRecord
	Email string `db:"email"`
	Name  string `db:"name"`
}

// DeliveryCounts is the per-campaign ledger breakdown exposed by the control
// surface. Total == Pending+Sent+Failed at all times.
type DeliveryCounts struct {
	Pending int `db:"pending" json:"pending"`
	Sent    int `db:"sent" json:"sent"`
	Failed  int `db:"failed" json:"failed"`
}

func (c DeliveryCounts) Total() int { return c.Pending + c.Sent + c.Failed }
