package engine

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/hbagheri/mailflow/internal/mailer"
	"github.com/hbagheri/mailflow/internal/model"
	"github.com/hbagheri/mailflow/internal/repository"
)

// In-memory doubles for the repository interfaces and the transmitter,
// shaped after the production MySQL implementations.

type memCampaigns struct {
	mu    sync.Mutex
	rows  map[string]model.Campaign
	fail  bool // force storage errors
}

func newMemCampaigns(cs ...model.Campaign) *memCampaigns {
	m := &memCampaigns{rows: make(map[string]model.Campaign)}
	for _, c := range cs {
		m.rows[c.ID] = c
	}
	return m
}

func (m *memCampaigns) Create(_ context.Context, c model.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[c.ID] = c
	return nil
}

func (m *memCampaigns) GetByID(_ context.Context, id string) (model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return model.Campaign{}, errors.New("storage down")
	}
	c, ok := m.rows[id]
	if !ok {
		return model.Campaign{}, repository.ErrNotFound
	}
	return c, nil
}

func (m *memCampaigns) List(_ context.Context) ([]model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Campaign, 0, len(m.rows))
	for _, c := range m.rows {
		out = append(out, c)
	}
	return out, nil
}

func (m *memCampaigns) ListByStatus(_ context.Context, st model.CampaignStatus) ([]model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Campaign
	for _, c := range m.rows {
		if c.Status == st {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memCampaigns) UpdateStatus(_ context.Context, id string, st model.CampaignStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.Status = st
	m.rows[id] = c
	return nil
}

func (m *memCampaigns) setRate(id string, perSecond int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.rows[id]
	c.SendRate = perSecond
	m.rows[id] = c
}

type memTemplates struct {
	rows map[string]model.Template
}

func newMemTemplates(ts ...model.Template) *memTemplates {
	m := &memTemplates{rows: make(map[string]model.Template)}
	for _, t := range ts {
		m.rows[t.ID] = t
	}
	return m
}

func (m *memTemplates) Create(_ context.Context, t model.Template) error {
	m.rows[t.ID] = t
	return nil
}

func (m *memTemplates) GetByID(_ context.Context, id string) (model.Template, error) {
	t, ok := m.rows[id]
	if !ok {
		return model.Template{}, repository.ErrNotFound
	}
	return t, nil
}

func (m *memTemplates) List(_ context.Context) ([]model.Template, error) { return nil, nil }

type memSubscribers struct {
	mu   sync.Mutex
	rows []model.Subscriber // insertion order
}

func newMemSubscribers(ss ...model.Subscriber) *memSubscribers {
	return &memSubscribers{rows: ss}
}

func (m *memSubscribers) Create(_ context.Context, s model.Subscriber) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, s)
	return nil
}

func (m *memSubscribers) GetByID(_ context.Context, id string) (model.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.rows {
		if s.ID == id {
			return s, nil
		}
	}
	return model.Subscriber{}, repository.ErrNotFound
}

func (m *memSubscribers) List(_ context.Context) ([]model.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Subscriber(nil), m.rows...), nil
}

func (m *memSubscribers) ActiveIDs(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for _, s := range m.rows {
		if s.Status == model.SubscriberActive {
			ids = append(ids, s.ID)
		}
	}
	return ids, nil
}

func (m *memSubscribers) UpdateStatus(_ context.Context, id string, st model.SubscriberStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == id {
			m.rows[i].Status = st
			return nil
		}
	}
	return repository.ErrNotFound
}

type memDeliveryRow struct {
	campaignID   string
	subscriberID string
	status       model.DeliveryStatus
	attempts     int
	lastError    string
	providerID   string
	sentAt       time.Time
}

type memDeliveries struct {
	mu   sync.Mutex
	rows []*memDeliveryRow // insertion order, like the auto-increment PK
	subs *memSubscribers   // for the NextPending join

	failMarksAfter int // >0: MarkSent/MarkFailed error once this many marks happened
	marks          int
}

func newMemDeliveries(subs *memSubscribers) *memDeliveries {
	return &memDeliveries{subs: subs}
}

func (m *memDeliveries) Initialize(_ context.Context, campaignID string, subscriberIDs []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, sid := range subscriberIDs {
		if m.find(campaignID, sid) != nil {
			continue
		}
		m.rows = append(m.rows, &memDeliveryRow{
			campaignID:   campaignID,
			subscriberID: sid,
			status:       model.DeliveryPending,
		})
		n++
	}
	return n, nil
}

func (m *memDeliveries) NextPending(_ context.Context, campaignID string, limit int) ([]model.PendingDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.PendingDelivery
	for i, r := range m.rows {
		if len(out) >= limit {
			break
		}
		if r.campaignID != campaignID || r.status != model.DeliveryPending {
			continue
		}
		sub := m.lookupSubscriber(r.subscriberID)
		out = append(out, model.PendingDelivery{
			DeliveryRecord: model.DeliveryRecord{
				ID:           int64(i + 1),
				CampaignID:   r.campaignID,
				SubscriberID: r.subscriberID,
				Status:       r.status,
				Attempts:     r.attempts,
			},
			Email: sub.Email,
			Name:  sub.Name,
		})
	}
	return out, nil
}

func (m *memDeliveries) MarkSent(_ context.Context, campaignID, subscriberID, providerMsgID string) error {
	return m.mark(campaignID, subscriberID, func(r *memDeliveryRow) {
		r.status = model.DeliverySent
		r.attempts++
		r.providerID = providerMsgID
		r.lastError = ""
		r.sentAt = time.Now()
	})
}

func (m *memDeliveries) MarkFailed(_ context.Context, campaignID, subscriberID, sendErr string) error {
	return m.mark(campaignID, subscriberID, func(r *memDeliveryRow) {
		r.status = model.DeliveryFailed
		r.attempts++
		r.lastError = sendErr
	})
}

func (m *memDeliveries) mark(campaignID, subscriberID string, fn func(*memDeliveryRow)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failMarksAfter > 0 && m.marks >= m.failMarksAfter {
		return errors.New("ledger write failed")
	}
	r := m.find(campaignID, subscriberID)
	if r == nil {
		return repository.ErrNotFound
	}
	fn(r)
	m.marks++
	return nil
}

func (m *memDeliveries) Counts(_ context.Context, campaignID string) (model.DeliveryCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var c model.DeliveryCounts
	for _, r := range m.rows {
		if r.campaignID != campaignID {
			continue
		}
		switch r.status {
		case model.DeliveryPending:
			c.Pending++
		case model.DeliverySent:
			c.Sent++
		case model.DeliveryFailed:
			c.Failed++
		}
	}
	return c, nil
}

func (m *memDeliveries) RequeueFailed(_ context.Context, campaignID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.rows {
		if r.campaignID == campaignID && r.status == model.DeliveryFailed {
			r.status = model.DeliveryPending
			n++
		}
	}
	return n, nil
}

func (m *memDeliveries) find(campaignID, subscriberID string) *memDeliveryRow {
	for _, r := range m.rows {
		if r.campaignID == campaignID && r.subscriberID == subscriberID {
			return r
		}
	}
	return nil
}

func (m *memDeliveries) lookupSubscriber(id string) model.Subscriber {
	s, _ := m.subs.GetByID(context.Background(), id)
	return s
}

func (m *memDeliveries) record(campaignID, subscriberID string) memDeliveryRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r := m.find(campaignID, subscriberID); r != nil {
		return *r
	}
	return memDeliveryRow{}
}

func (m *memDeliveries) total(campaignID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.rows {
		if r.campaignID == campaignID {
			n++
		}
	}
	return n
}

// fakeMailer records one call per recipient and fails the addresses listed
// in fail. Never returns more than one outcome per Send.
type fakeMailer struct {
	mu    sync.Mutex
	calls map[string]int
	last  map[string]mailer.Email
	fail  map[string]bool
	delay time.Duration
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{
		calls: make(map[string]int),
		last:  make(map[string]mailer.Email),
		fail:  make(map[string]bool),
	}
}

func (f *fakeMailer) Send(_ context.Context, e mailer.Email) mailer.Result {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	f.calls[e.To]++
	f.last[e.To] = e
	failing := f.fail[e.To]
	f.mu.Unlock()

	if failing {
		return mailer.Failed(errors.New("550 recipient rejected"))
	}
	return mailer.Sent("<test-msg@mailflow.local>")
}

func (f *fakeMailer) callCount(to string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[to]
}

func (f *fakeMailer) lastEmail(to string) mailer.Email {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last[to]
}

func (f *fakeMailer) setFail(to string, v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[to] = v
}

// nullableText builds the optional plain-text template column.
func nullableText(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
