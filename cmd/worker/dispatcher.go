package worker

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hbagheri/mailflow/internal/config"
	"github.com/hbagheri/mailflow/internal/db"
	"github.com/hbagheri/mailflow/internal/engine"
	"github.com/hbagheri/mailflow/internal/logger"
	"github.com/hbagheri/mailflow/internal/mailer"
	"github.com/hbagheri/mailflow/internal/metrics"
	"github.com/hbagheri/mailflow/internal/repository"
)

// dispatcherCmd runs the dispatch engine headless: no HTTP surface, just the
// scheduler picking up campaigns whose status is "sending". Control actions
// still go through a serve instance; coordination happens via campaign status
// in the database.
var dispatcherCmd = &cobra.Command{
	Use:   "dispatcher",
	Short: "Run the campaign dispatch engine without the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logger.Init(cfg.Log.Level, cfg.Log.Encoding)
		defer logger.Sync()

		metrics.MustRegister(prometheus.DefaultRegisterer)

		dbx, err := db.NewMySQL(cfg.MySQL)
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer dbx.Close()

		eng := engine.New(
			repository.NewCampaignsRepository(dbx),
			repository.NewTemplatesRepository(dbx),
			repository.NewSubscribersRepository(dbx),
			repository.NewDeliveriesRepository(dbx),
			mailer.NewSMTPTransmitter(cfg.SMTP),
			logger.Log,
			engine.Options{
				BatchSize: cfg.Engine.BatchSize,
				BaseURL:   cfg.Tracking.BaseURL,
			},
		)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Log.Info("dispatcher started",
			zap.Int("batch_size", cfg.Engine.BatchSize),
			zap.Duration("tick_interval", cfg.Engine.TickInterval))

		eng.RunScheduler(ctx, cfg.Engine.TickInterval)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return eng.Shutdown(shutdownCtx)
	},
}
