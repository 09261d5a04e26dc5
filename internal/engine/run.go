package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hbagheri/mailflow/internal/mailer"
	"github.com/hbagheri/mailflow/internal/metrics"
	"github.com/hbagheri/mailflow/internal/model"
	"github.com/hbagheri/mailflow/internal/tracking"
)

// runLoop drains one campaign's pending ledger records in insertion order.
// The campaign row is re-read before every record: the fresh status makes
// pause/cancel cooperative and the fresh send_rate feeds the governor.
// Ledger/storage errors stop the loop with state at the last committed
// record; per-recipient failures are recorded and never abort the run.
func (e *Engine) runLoop(ctx context.Context, campaignID string) {
	defer e.wg.Done()
	defer e.release(campaignID)

	log := e.log.With(zap.String("campaign_id", campaignID))
	metrics.CampaignsActive.Inc()
	defer metrics.CampaignsActive.Dec()

	camp, err := e.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		log.Error("load campaign", zap.Error(err))
		return
	}
	// template content is captured once: consistent within one run
	tpl, err := e.templates.GetByID(ctx, camp.TemplateID)
	if err != nil {
		log.Error("load template", zap.Error(err))
		return
	}

	log.Info("dispatch loop started", zap.Int("send_rate", camp.SendRate))

	for {
		batch, err := e.deliveries.NextPending(ctx, campaignID, e.batchSize)
		if err != nil {
			log.Error("fetch pending", zap.Error(err))
			return
		}
		if len(batch) == 0 {
			if err := e.campaigns.UpdateStatus(ctx, campaignID, model.CampaignCompleted); err != nil {
				log.Error("mark completed", zap.Error(err))
				return
			}
			metrics.CampaignsCompleted.Inc()
			log.Info("campaign completed")
			return
		}

		for i := range batch {
			camp, err = e.campaigns.GetByID(ctx, campaignID)
			if err != nil {
				log.Error("re-read campaign", zap.Error(err))
				return
			}
			if camp.Status != model.CampaignSending {
				log.Info("dispatch interrupted", zap.String("status", camp.Status.String()))
				return
			}

			if err := e.dispatchOne(ctx, camp, tpl, batch[i], log); err != nil {
				log.Error("ledger update", zap.Error(err))
				return
			}

			if err := e.gov.Wait(ctx, campaignID, camp.SendRate); err != nil {
				// engine shutdown
				return
			}
		}
	}
}

// dispatchOne renders, instruments, transmits, and commits the outcome for a
// single recipient. The returned error is a storage failure only; transmit
// and instrumentation failures are folded into the record.
func (e *Engine) dispatchOne(ctx context.Context, camp model.Campaign, tpl model.Template, d model.PendingDelivery, log *zap.Logger) error {
	subject := Render(tpl.Subject, d.Name, d.Email)
	html := Render(tpl.HTML, d.Name, d.Email)
	text := ""
	if tpl.Text.Valid {
		text = Render(tpl.Text.String, d.Name, d.Email)
	}

	instrumented, err := tracking.Instrument(html, d.SubscriberID, camp.ID, e.baseURL)
	if err != nil {
		metrics.EmailsTotal.WithLabelValues("failed").Inc()
		log.Warn("instrumentation failed",
			zap.String("subscriber_id", d.SubscriberID),
			zap.Error(err))
		return e.deliveries.MarkFailed(ctx, camp.ID, d.SubscriberID, fmt.Sprintf("instrument: %v", err))
	}

	res := e.mail.Send(ctx, mailer.Email{
		To:      d.Email,
		Subject: subject,
		HTML:    instrumented,
		Text:    text,
	})

	if res.Sent() {
		metrics.EmailsTotal.WithLabelValues("sent").Inc()
		log.Debug("email sent",
			zap.String("to", d.Email),
			zap.String("provider_msg_id", res.ProviderMessageID))
		return e.deliveries.MarkSent(ctx, camp.ID, d.SubscriberID, res.ProviderMessageID)
	}

	metrics.EmailsTotal.WithLabelValues("failed").Inc()
	log.Warn("email failed",
		zap.String("to", d.Email),
		zap.String("error", res.Error))
	return e.deliveries.MarkFailed(ctx, camp.ID, d.SubscriberID, res.Error)
}
