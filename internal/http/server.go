package http

import (
	"context"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/hbagheri/mailflow/internal/config"
	"github.com/hbagheri/mailflow/internal/engine"
	"github.com/hbagheri/mailflow/internal/http/middleware"
	"github.com/hbagheri/mailflow/internal/mailer"
	"github.com/hbagheri/mailflow/internal/metrics"
	"github.com/hbagheri/mailflow/internal/repository"
)

// Controller is the dispatch engine's control surface as the HTTP layer
// consumes it; *engine.Engine satisfies it.
type Controller interface {
	Start(ctx context.Context, campaignID string) error
	Pause(ctx context.Context, campaignID string) error
	Cancel(ctx context.Context, campaignID string) error
	Status(ctx context.Context, campaignID string) (engine.RunStatus, error)
	RequeueFailed(ctx context.Context, campaignID string) (int64, error)
	SendTest(ctx context.Context, campaignID, toEmail string) (mailer.Result, error)
}

type Server struct{ e *echo.Echo }

func NewServer(cfg config.Config, dbx *sqlx.DB, rds *redis.Client, ctrl Controller) *Server {
	campaignsRepo := repository.NewCampaignsRepository(dbx)
	templatesRepo := repository.NewTemplatesRepository(dbx)
	subscribersRepo := repository.NewSubscribersRepository(dbx)
	eventsRepo := repository.NewEventsRepository(dbx)

	e := echo.New()
	e.HideBanner = true
	e.Use(echoMid.Recover(), echoMid.Logger())

	metrics.MustRegister(prometheus.DefaultRegisterer)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:      rds,
		DefaultRPS: cfg.RateLimit.RPS,
		KeyPrefix:  "rl:ip:",
		Window:     time.Second,
	})

	// control + persistence glue
	v1 := e.Group("/v1", rlMW)
	v1.POST("/campaigns", createCampaignHandler(campaignsRepo, templatesRepo))
	v1.GET("/campaigns", listCampaignsHandler(campaignsRepo))
	v1.POST("/campaigns/:id/start", startCampaignHandler(ctrl))
	v1.POST("/campaigns/:id/pause", pauseCampaignHandler(ctrl))
	v1.POST("/campaigns/:id/cancel", cancelCampaignHandler(ctrl))
	v1.GET("/campaigns/:id/status", campaignStatusHandler(ctrl))
	v1.POST("/campaigns/:id/requeue_failed", requeueFailedHandler(ctrl))
	v1.POST("/campaigns/:id/send_test", sendTestHandler(ctrl))
	v1.POST("/templates", createTemplateHandler(templatesRepo))
	v1.GET("/templates", listTemplatesHandler(templatesRepo))
	v1.POST("/subscribers", createSubscriberHandler(subscribersRepo))
	v1.GET("/subscribers", listSubscribersHandler(subscribersRepo))

	// tracking redirect endpoints consumed by instrumented emails; no rate
	// limit, mail clients prefetch these
	tr := e.Group("/tracking")
	tr.GET("/pixel", pixelHandler(eventsRepo))
	tr.GET("/click", clickHandler(eventsRepo))
	tr.GET("/unsubscribe", unsubscribeHandler(eventsRepo, subscribersRepo))

	return &Server{e: e}
}

func (s *Server) Start(addr string) error            { return s.e.Start(addr) }
func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
