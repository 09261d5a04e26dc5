// Package engine is the campaign dispatch controller. Each sending campaign
// runs a single sequential loop that drains pending delivery records,
// instruments and transmits one message per recipient, and commits the
// outcome to the ledger before advancing. Independent campaigns run
// concurrently; within a campaign sends are strictly ordered.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/hbagheri/mailflow/internal/mailer"
	"github.com/hbagheri/mailflow/internal/model"
	"github.com/hbagheri/mailflow/internal/repository"
)

var (
	// ErrRunActive rejects a second concurrent loop for the same campaign.
	ErrRunActive = errors.New("campaign already has an active dispatch loop")
	// ErrAlreadySending rejects starting a campaign that is already sending.
	ErrAlreadySending = errors.New("campaign is already sending")
	// ErrNotSending rejects pausing a campaign with no run to pause.
	ErrNotSending = errors.New("campaign is not sending")
	// ErrTerminalStatus rejects control actions on cancelled/completed campaigns.
	ErrTerminalStatus = errors.New("campaign is in a terminal status")
)

// Options tunes the engine; zero values fall back to sane defaults.
type Options struct {
	BatchSize int    // pending records fetched per ledger round-trip
	BaseURL   string // public base for tracking URLs
}

type Engine struct {
	campaigns   repository.CampaignsRepository
	templates   repository.TemplatesRepository
	subscribers repository.SubscribersRepository
	deliveries  repository.DeliveriesRepository
	mail        mailer.Transmitter
	gov         *Governor
	log         *zap.Logger

	batchSize int
	baseURL   string

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu     sync.Mutex
	active map[string]struct{}
}

func New(
	campaigns repository.CampaignsRepository,
	templates repository.TemplatesRepository,
	subscribers repository.SubscribersRepository,
	deliveries repository.DeliveriesRepository,
	mail mailer.Transmitter,
	log *zap.Logger,
	opts Options,
) *Engine {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Engine{
		campaigns:   campaigns,
		templates:   templates,
		subscribers: subscribers,
		deliveries:  deliveries,
		mail:        mail,
		gov:         NewGovernor(),
		log:         log,
		batchSize:   opts.BatchSize,
		baseURL:     opts.BaseURL,
		baseCtx:     ctx,
		cancel:      cancel,
		active:      make(map[string]struct{}),
	}
}

// Start begins (or resumes) a campaign's dispatch loop. Valid from draft —
// the audience is snapshotted and the ledger initialized — and from paused,
// which continues from wherever the pending set stands. Starting a sending,
// cancelled, or completed campaign is rejected without ledger mutation.
func (e *Engine) Start(ctx context.Context, campaignID string) error {
	if !e.tryAcquire(campaignID) {
		return ErrRunActive
	}
	started := false
	defer func() {
		if !started {
			e.release(campaignID)
		}
	}()

	c, err := e.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return err
	}

	switch c.Status {
	case model.CampaignDraft:
		ids, err := e.subscribers.ActiveIDs(ctx)
		if err != nil {
			return fmt.Errorf("audience snapshot: %w", err)
		}
		n, err := e.deliveries.Initialize(ctx, campaignID, ids)
		if err != nil {
			return fmt.Errorf("initialize ledger: %w", err)
		}
		e.log.Info("ledger initialized",
			zap.String("campaign_id", campaignID),
			zap.Int("audience", len(ids)),
			zap.Int64("new_records", n))
	case model.CampaignPaused:
		// resume: the ledger's pending set is already the work list
	case model.CampaignSending:
		return ErrAlreadySending
	default:
		return fmt.Errorf("%w: %s", ErrTerminalStatus, c.Status)
	}

	if err := e.campaigns.UpdateStatus(ctx, campaignID, model.CampaignSending); err != nil {
		return err
	}

	started = true
	e.spawn(campaignID)
	return nil
}

// Pause flags a sending campaign; its loop observes the status at the next
// per-record check and stops without touching in-flight ledger state.
func (e *Engine) Pause(ctx context.Context, campaignID string) error {
	c, err := e.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return err
	}
	if c.Status != model.CampaignSending {
		return fmt.Errorf("%w: %s", ErrNotSending, c.Status)
	}
	return e.campaigns.UpdateStatus(ctx, campaignID, model.CampaignPaused)
}

// Cancel behaves like Pause but is terminal: remaining pending records stay
// pending and are never picked up again.
func (e *Engine) Cancel(ctx context.Context, campaignID string) error {
	c, err := e.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return err
	}
	if c.Status.Terminal() || c.Status == model.CampaignDraft {
		return fmt.Errorf("%w: %s", ErrTerminalStatus, c.Status)
	}
	return e.campaigns.UpdateStatus(ctx, campaignID, model.CampaignCancelled)
}

// RunStatus is the control surface's view of one campaign.
type RunStatus struct {
	CampaignID string               `json:"campaign_id"`
	Status     model.CampaignStatus `json:"status"`
	Active     bool                 `json:"active"` // loop running in this process
	Counts     model.DeliveryCounts `json:"counts"`
}

func (e *Engine) Status(ctx context.Context, campaignID string) (RunStatus, error) {
	c, err := e.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return RunStatus{}, err
	}
	counts, err := e.deliveries.Counts(ctx, campaignID)
	if err != nil {
		return RunStatus{}, err
	}
	return RunStatus{
		CampaignID: campaignID,
		Status:     c.Status,
		Active:     e.isActive(campaignID),
		Counts:     counts,
	}, nil
}

// RequeueFailed is the explicit operator action that puts failed records back
// into the pending set. A completed campaign drops back to paused so an
// explicit Start resumes it.
func (e *Engine) RequeueFailed(ctx context.Context, campaignID string) (int64, error) {
	c, err := e.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return 0, err
	}
	n, err := e.deliveries.RequeueFailed(ctx, campaignID)
	if err != nil {
		return 0, err
	}
	if n > 0 && c.Status == model.CampaignCompleted {
		if err := e.campaigns.UpdateStatus(ctx, campaignID, model.CampaignPaused); err != nil {
			return n, err
		}
	}
	return n, nil
}

// SendTest transmits the campaign's template once to an arbitrary address,
// bypassing the ledger and the governor.
func (e *Engine) SendTest(ctx context.Context, campaignID, toEmail string) (mailer.Result, error) {
	c, err := e.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return mailer.Result{}, err
	}
	tpl, err := e.templates.GetByID(ctx, c.TemplateID)
	if err != nil {
		return mailer.Result{}, err
	}

	const testName = "Test User"
	text := ""
	if tpl.Text.Valid {
		text = Render(tpl.Text.String, testName, toEmail)
	}
	res := e.mail.Send(ctx, mailer.Email{
		To:      toEmail,
		Subject: Render(tpl.Subject, testName, toEmail),
		HTML:    Render(tpl.HTML, testName, toEmail),
		Text:    text,
	})
	return res, nil
}

// Shutdown stops launching new work and waits for in-flight records to be
// committed, up to the context deadline.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.cancel()
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ---- run registry ----

func (e *Engine) tryAcquire(campaignID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.active[campaignID]; ok {
		return false
	}
	e.active[campaignID] = struct{}{}
	return true
}

func (e *Engine) release(campaignID string) {
	e.mu.Lock()
	delete(e.active, campaignID)
	e.mu.Unlock()
	e.gov.Forget(campaignID)
}

func (e *Engine) isActive(campaignID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.active[campaignID]
	return ok
}

func (e *Engine) spawn(campaignID string) {
	e.wg.Add(1)
	go e.runLoop(e.baseCtx, campaignID)
}
