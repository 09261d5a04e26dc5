package repository

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/hbagheri/mailflow/internal/model"
)

// DeliveriesRepository is the delivery ledger: one row per
// (campaign, subscriber) pair, mutated only by that campaign's dispatch loop.
// Every mutation is a single committed statement so a crash never leaves the
// ledger ahead of or behind what was actually attempted.
type DeliveriesRepository interface {
	// Initialize bulk-creates pending rows, skipping pairs that already
	// exist. Safe to call again on resume; returns the number of new rows.
	Initialize(ctx context.Context, campaignID string, subscriberIDs []string) (int64, error)
	// NextPending returns up to limit pending rows in insertion order,
	// joined with the recipient's email and name.
	NextPending(ctx context.Context, campaignID string, limit int) ([]model.PendingDelivery, error)
	MarkSent(ctx context.Context, campaignID, subscriberID, providerMsgID string) error
	MarkFailed(ctx context.Context, campaignID, subscriberID, sendErr string) error
	Counts(ctx context.Context, campaignID string) (model.DeliveryCounts, error)
	// RequeueFailed flips failed rows back to pending. Operator action, not
	// part of the dispatch loop.
	RequeueFailed(ctx context.Context, campaignID string) (int64, error)
}

type DeliveriesRepositoryImpl struct {
	db *sqlx.DB
}

func NewDeliveriesRepository(db *sqlx.DB) *DeliveriesRepositoryImpl {
	return &DeliveriesRepositoryImpl{db: db}
}

func (r *DeliveriesRepositoryImpl) Initialize(ctx context.Context, campaignID string, subscriberIDs []string) (int64, error) {
	if len(subscriberIDs) == 0 {
		return 0, nil
	}

	var sb strings.Builder
	args := make([]any, 0, len(subscriberIDs)*2)

	sb.WriteString(`INSERT INTO deliveries (campaign_id, subscriber_id, status, attempts) VALUES `)
	for i, sid := range subscriberIDs {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?, ?, 'pending', 0)")
		args = append(args, campaignID, sid)
	}
	// existing (campaign, subscriber) rows keep their state on restart
	sb.WriteString(` ON DUPLICATE KEY UPDATE id = id`)

	res, err := r.db.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (r *DeliveriesRepositoryImpl) NextPending(ctx context.Context, campaignID string, limit int) ([]model.PendingDelivery, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
		SELECT d.id, d.campaign_id, d.subscriber_id, d.status, d.attempts,
		       d.last_error, d.provider_msg_id, d.created_at, d.updated_at,
		       s.email, s.name
		FROM deliveries d
		JOIN subscribers s ON s.id = d.subscriber_id
		WHERE d.campaign_id = ? AND d.status = 'pending'
		ORDER BY d.id
		LIMIT ?
	`
	var rows []model.PendingDelivery
	if err := r.db.SelectContext(ctx, &rows, q, campaignID, limit); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *DeliveriesRepositoryImpl) MarkSent(ctx context.Context, campaignID, subscriberID, providerMsgID string) error {
	const q = `
		UPDATE deliveries
		SET status = 'sent', attempts = attempts + 1, provider_msg_id = ?,
		    last_error = NULL, sent_at = NOW(), updated_at = NOW()
		WHERE campaign_id = ? AND subscriber_id = ?
	`
	_, err := r.db.ExecContext(ctx, q, providerMsgID, campaignID, subscriberID)
	return err
}

func (r *DeliveriesRepositoryImpl) MarkFailed(ctx context.Context, campaignID, subscriberID, sendErr string) error {
	const q = `
		UPDATE deliveries
		SET status = 'failed', attempts = attempts + 1, last_error = ?,
		    updated_at = NOW()
		WHERE campaign_id = ? AND subscriber_id = ?
	`
	_, err := r.db.ExecContext(ctx, q, sendErr, campaignID, subscriberID)
	return err
}

func (r *DeliveriesRepositoryImpl) Counts(ctx context.Context, campaignID string) (model.DeliveryCounts, error) {
	const q = `
		SELECT
		    COALESCE(SUM(status = 'pending'), 0) AS pending,
		    COALESCE(SUM(status = 'sent'), 0)    AS sent,
		    COALESCE(SUM(status = 'failed'), 0)  AS failed
		FROM deliveries
		WHERE campaign_id = ?
	`
	var c model.DeliveryCounts
	if err := r.db.GetContext(ctx, &c, q, campaignID); err != nil {
		return model.DeliveryCounts{}, err
	}
	return c, nil
}

func (r *DeliveriesRepositoryImpl) RequeueFailed(ctx context.Context, campaignID string) (int64, error) {
	const q = `
		UPDATE deliveries
		SET status = 'pending', updated_at = NOW()
		WHERE campaign_id = ? AND status = 'failed'
	`
	res, err := r.db.ExecContext(ctx, q, campaignID)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}
