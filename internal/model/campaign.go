package model

import (
	"strings"
	"time"
)

type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignSending   CampaignStatus = "sending"
	CampaignPaused    CampaignStatus = "paused"
	CampaignCancelled CampaignStatus = "cancelled"
	CampaignCompleted CampaignStatus = "completed"
)

func (s CampaignStatus) String() string { return string(s) }

func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignDraft, CampaignSending, CampaignPaused, CampaignCancelled, CampaignCompleted:
		return true
	default:
		return false
	}
}

// Terminal reports whether a send run can never be started from this status.
func (s CampaignStatus) Terminal() bool {
	return s == CampaignCancelled || s == CampaignCompleted
}

// ParseCampaignStatus normalizes input. Returns (value, true) if valid.
func ParseCampaignStatus(s string) (CampaignStatus, bool) {
	st := CampaignStatus(strings.ToLower(strings.TrimSpace(s)))
	return st, st.Valid()
}

// Campaign binds one template to a send rate. The dispatch engine owns the
// row while status is "sending"; control actions mutate status externally.
type Campaign struct {
	ID         string         `db:"id"`
	Name       string         `db:"name"`
	TemplateID string         `db:"template_id"`
	Status     CampaignStatus `db:"status"`
	SendRate   int            `db:"send_rate"` // messages/second ceiling
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
}
