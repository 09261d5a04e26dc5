package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/hbagheri/mailflow/internal/model"
)

var ErrNotFound = errors.New("not found")

type CampaignsRepository interface {
	Create(ctx context.Context, c model.Campaign) error
	GetByID(ctx context.Context, id string) (model.Campaign, error)
	List(ctx context.Context) ([]model.Campaign, error)
	ListByStatus(ctx context.Context, status model.CampaignStatus) ([]model.Campaign, error)
	UpdateStatus(ctx context.Context, id string, status model.CampaignStatus) error
}

type CampaignsRepositoryImpl struct {
	db *sqlx.DB
}

func NewCampaignsRepository(db *sqlx.DB) *CampaignsRepositoryImpl {
	return &CampaignsRepositoryImpl{db: db}
}

func (r *CampaignsRepositoryImpl) Create(ctx context.Context, c model.Campaign) error {
	const q = `
		INSERT INTO campaigns (id, name, template_id, status, send_rate, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, NOW(), NOW())
	`
	_, err := r.db.ExecContext(ctx, q, c.ID, c.Name, c.TemplateID, c.Status.String(), c.SendRate)
	return err
}

func (r *CampaignsRepositoryImpl) GetByID(ctx context.Context, id string) (model.Campaign, error) {
	const q = `SELECT * FROM campaigns WHERE id = ?`
	var c model.Campaign
	if err := r.db.GetContext(ctx, &c, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Campaign{}, fmt.Errorf("campaign %s: %w", id, ErrNotFound)
		}
		return model.Campaign{}, err
	}
	return c, nil
}

func (r *CampaignsRepositoryImpl) List(ctx context.Context) ([]model.Campaign, error) {
	const q = `SELECT * FROM campaigns ORDER BY created_at DESC`
	var cs []model.Campaign
	if err := r.db.SelectContext(ctx, &cs, q); err != nil {
		return nil, err
	}
	return cs, nil
}

func (r *CampaignsRepositoryImpl) ListByStatus(ctx context.Context, status model.CampaignStatus) ([]model.Campaign, error) {
	const q = `SELECT * FROM campaigns WHERE status = ? ORDER BY created_at`
	var cs []model.Campaign
	if err := r.db.SelectContext(ctx, &cs, q, status.String()); err != nil {
		return nil, err
	}
	return cs, nil
}

func (r *CampaignsRepositoryImpl) UpdateStatus(ctx context.Context, id string, status model.CampaignStatus) error {
	const q = `UPDATE campaigns SET status = ?, updated_at = NOW() WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, status.String(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// status may be unchanged; verify the row exists at all
		var one int
		if err := r.db.GetContext(ctx, &one, `SELECT 1 FROM campaigns WHERE id = ?`, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("campaign %s: %w", id, ErrNotFound)
			}
			return err
		}
	}
	return nil
}
