package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/hbagheri/mailflow/internal/model"
)

type SubscribersRepository interface {
	Create(ctx context.Context, s model.Subscriber) error
	GetByID(ctx context.Context, id string) (model.Subscriber, error)
	List(ctx context.Context) ([]model.Subscriber, error)
	// ActiveIDs is the audience snapshot taken at campaign start:
	// unsubscribed and bounced subscribers are never eligible.
	ActiveIDs(ctx context.Context) ([]string, error)
	UpdateStatus(ctx context.Context, id string, status model.SubscriberStatus) error
}

type SubscribersRepositoryImpl struct {
	db *sqlx.DB
}

func NewSubscribersRepository(db *sqlx.DB) *SubscribersRepositoryImpl {
	return &SubscribersRepositoryImpl{db: db}
}

func (r *SubscribersRepositoryImpl) Create(ctx context.Context, s model.Subscriber) error {
	const q = `
		INSERT INTO subscribers (id, email, name, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, NOW(), NOW())
	`
	_, err := r.db.ExecContext(ctx, q, s.ID, s.Email, s.Name, s.Status.String())
	return err
}

func (r *SubscribersRepositoryImpl) GetByID(ctx context.Context, id string) (model.Subscriber, error) {
	const q = `SELECT * FROM subscribers WHERE id = ?`
	var s model.Subscriber
	if err := r.db.GetContext(ctx, &s, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Subscriber{}, fmt.Errorf("subscriber %s: %w", id, ErrNotFound)
		}
		return model.Subscriber{}, err
	}
	return s, nil
}

func (r *SubscribersRepositoryImpl) List(ctx context.Context) ([]model.Subscriber, error) {
	const q = `SELECT * FROM subscribers ORDER BY created_at`
	var ss []model.Subscriber
	if err := r.db.SelectContext(ctx, &ss, q); err != nil {
		return nil, err
	}
	return ss, nil
}

func (r *SubscribersRepositoryImpl) ActiveIDs(ctx context.Context) ([]string, error) {
	const q = `SELECT id FROM subscribers WHERE status = 'active' ORDER BY id`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, q); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *SubscribersRepositoryImpl) UpdateStatus(ctx context.Context, id string, status model.SubscriberStatus) error {
	const q = `UPDATE subscribers SET status = ?, updated_at = NOW() WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, status.String(), id)
	return err
}
