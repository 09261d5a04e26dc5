package model

import (
	"database/sql"
	"time"
)

// Template is immutable for the duration of a send: the engine reads it once
// per run.
type Template struct {
	ID        string         `db:"id"`
	Name      string         `db:"name"`
	Subject   string         `db:"subject"`
	HTML      string         `db:"html"`
	Text      sql.NullString `db:"text_content"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}
