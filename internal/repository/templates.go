package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/hbagheri/mailflow/internal/model"
)

type TemplatesRepository interface {
	Create(ctx context.Context, t model.Template) error
	GetByID(ctx context.Context, id string) (model.Template, error)
	List(ctx context.Context) ([]model.Template, error)
}

type TemplatesRepositoryImpl struct {
	db *sqlx.DB
}

func NewTemplatesRepository(db *sqlx.DB) *TemplatesRepositoryImpl {
	return &TemplatesRepositoryImpl{db: db}
}

func (r *TemplatesRepositoryImpl) Create(ctx context.Context, t model.Template) error {
	const q = `
		INSERT INTO templates (id, name, subject, html, text_content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, NOW(), NOW())
	`
	_, err := r.db.ExecContext(ctx, q, t.ID, t.Name, t.Subject, t.HTML, t.Text)
	return err
}

func (r *TemplatesRepositoryImpl) GetByID(ctx context.Context, id string) (model.Template, error) {
	const q = `SELECT * FROM templates WHERE id = ?`
	var t model.Template
	if err := r.db.GetContext(ctx, &t, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Template{}, fmt.Errorf("template %s: %w", id, ErrNotFound)
		}
		return model.Template{}, err
	}
	return t, nil
}

func (r *TemplatesRepositoryImpl) List(ctx context.Context) ([]model.Template, error) {
	const q = `SELECT * FROM templates ORDER BY created_at DESC`
	var ts []model.Template
	if err := r.db.SelectContext(ctx, &ts, q); err != nil {
		return nil, err
	}
	return ts, nil
}
