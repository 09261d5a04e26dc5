package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/hbagheri/mailflow/internal/config"
	"github.com/hbagheri/mailflow/internal/db"
	"github.com/hbagheri/mailflow/internal/util"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with a demo template, subscribers and a draft campaign",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		dbx, err := db.NewMySQL(cfg.MySQL)
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer dbx.Close()

		log.Println(">> Seeding demo data...")

		tplID, err := seedTemplate(dbx)
		if err != nil {
			return err
		}
		if err := seedSubscribers(dbx); err != nil {
			return err
		}
		if err := seedCampaign(dbx, tplID); err != nil {
			return err
		}

		log.Println(">> Seed completed")
		return nil
	},
}

const demoHTML = `<html><body>
<h1>Hello {{name}}!</h1>
<p>Thanks for subscribing. Check out our
<a href="https://example.com/launch">latest announcement</a>.</p>
</body></html>`

// seedTemplate upserts one deterministic demo template keyed by name and
// returns its id.
func seedTemplate(dbx *sqlx.DB) (string, error) {
	const sel = `SELECT id FROM templates WHERE name = ? LIMIT 1`
	var id string
	if err := dbx.Get(&id, sel, "demo-welcome"); err == nil {
		return id, nil
	}

	id = util.New()
	const q = `
INSERT INTO templates (id, name, subject, html, text_content, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`
	now := time.Now()
	if _, err := dbx.Exec(q, id, "demo-welcome", "Welcome, {{name}}!", demoHTML,
		"Hello {{name}}! Thanks for subscribing.", now, now); err != nil {
		return "", fmt.Errorf("insert template: %w", err)
	}
	return id, nil
}

// seedSubscribers inserts deterministic demo subscribers (idempotent upsert
// on the email UNIQUE key).
func seedSubscribers(dbx *sqlx.DB) error {
	subs := []struct {
		email, name, status string
	}{
		{"alice@example.com", "Alice", "active"},
		{"bob@example.com", "Bob", "active"},
		{"carol@example.com", "", "active"},
		{"dave@example.com", "Dave", "unsubscribed"},
		{"erin@example.com", "Erin", "active"},
	}

	const q = `
INSERT INTO subscribers (id, email, name, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
    name       = VALUES(name),
    status     = VALUES(status),
    updated_at = VALUES(updated_at)
`
	tx, err := dbx.Beginx()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()
	for _, s := range subs {
		if _, err := tx.Exec(q, util.New(), s.email, s.name, s.status, now, now); err != nil {
			return fmt.Errorf("insert subscriber %q: %w", s.email, err)
		}
	}

	return tx.Commit()
}

// seedCampaign creates one draft campaign pointing at the demo template,
// unless one already exists.
func seedCampaign(dbx *sqlx.DB, tplID string) error {
	const sel = `SELECT COUNT(*) FROM campaigns WHERE name = ?`
	var n int
	if err := dbx.Get(&n, sel, "demo-launch"); err != nil {
		return fmt.Errorf("check campaign: %w", err)
	}
	if n > 0 {
		return nil
	}

	const q = `
INSERT INTO campaigns (id, name, template_id, status, send_rate, created_at, updated_at)
VALUES (?, ?, ?, 'draft', ?, ?, ?)
`
	now := time.Now()
	if _, err := dbx.Exec(q, util.New(), "demo-launch", tplID, 10, now, now); err != nil {
		return fmt.Errorf("insert campaign: %w", err)
	}
	return nil
}
