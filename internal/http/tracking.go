package http

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/hbagheri/mailflow/internal/metrics"
	"github.com/hbagheri/mailflow/internal/model"
	"github.com/hbagheri/mailflow/internal/repository"
	"github.com/hbagheri/mailflow/internal/util"
)

// 1x1 transparent GIF.
var trackingPixel = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00,
	0x01, 0x00, 0x80, 0x00, 0x00, 0xff, 0xff, 0xff,
	0x00, 0x00, 0x00, 0x21, 0xf9, 0x04, 0x01, 0x0a,
	0x00, 0x01, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00,
	0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x44,
	0x01, 0x00, 0x3b,
}

func servePixel(c echo.Context) error {
	c.Response().Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	return c.Blob(http.StatusOK, "image/gif", trackingPixel)
}

// pixelHandler records an open event. It always serves the pixel, even when
// parameters are missing or the write fails; a broken image in the recipient's
// mail client is worse than a lost data point.
func pixelHandler(events repository.EventsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		subscriberID := c.QueryParam("subscriber_id")
		campaignID := c.QueryParam("campaign_id")
		if subscriberID == "" || campaignID == "" {
			return servePixel(c)
		}

		ev := model.Event{
			ID:           util.New(),
			SubscriberID: subscriberID,
			CampaignID:   campaignID,
			Type:         model.EventOpen,
		}
		if err := events.Insert(c.Request().Context(), ev); err != nil {
			log.Errorf("record open: %v", err)
		} else {
			metrics.TrackingEvents.WithLabelValues(model.EventOpen.String()).Inc()
		}
		return servePixel(c)
	}
}

// clickHandler records a click event and redirects to the original URL.
func clickHandler(events repository.EventsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		subscriberID := c.QueryParam("subscriber_id")
		campaignID := c.QueryParam("campaign_id")
		target := c.QueryParam("url")
		if subscriberID == "" || campaignID == "" || target == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing required parameters"})
		}

		data, _ := json.Marshal(map[string]string{"url": target})
		ev := model.Event{
			ID:           util.New(),
			SubscriberID: subscriberID,
			CampaignID:   campaignID,
			Type:         model.EventClick,
			Data:         sql.NullString{String: string(data), Valid: true},
		}
		if err := events.Insert(c.Request().Context(), ev); err != nil {
			log.Errorf("record click: %v", err)
		} else {
			metrics.TrackingEvents.WithLabelValues(model.EventClick.String()).Inc()
		}
		return c.Redirect(http.StatusFound, target)
	}
}

// unsubscribeHandler records the event and flips the subscriber's status so
// future campaign snapshots exclude them.
func unsubscribeHandler(events repository.EventsRepository, subscribers repository.SubscribersRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		subscriberID := c.QueryParam("subscriber_id")
		campaignID := c.QueryParam("campaign_id")
		if subscriberID == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing subscriber_id"})
		}

		ev := model.Event{
			ID:           util.New(),
			SubscriberID: subscriberID,
			CampaignID:   campaignID,
			Type:         model.EventUnsubscribe,
		}
		if err := events.Insert(c.Request().Context(), ev); err != nil {
			log.Errorf("record unsubscribe: %v", err)
		} else {
			metrics.TrackingEvents.WithLabelValues(model.EventUnsubscribe.String()).Inc()
		}

		if err := subscribers.UpdateStatus(c.Request().Context(), subscriberID, model.SubscriberUnsubscribed); err != nil {
			log.Errorf("unsubscribe %s: %v", subscriberID, err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}
		return c.JSON(http.StatusOK, map[string]string{"message": "successfully unsubscribed"})
	}
}
