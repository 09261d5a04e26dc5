package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hbagheri/mailflow/internal/config"
	"github.com/hbagheri/mailflow/internal/db"
	"github.com/hbagheri/mailflow/internal/engine"
	httpSrv "github.com/hbagheri/mailflow/internal/http"
	"github.com/hbagheri/mailflow/internal/logger"
	"github.com/hbagheri/mailflow/internal/mailer"
	"github.com/hbagheri/mailflow/internal/repository"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run HTTP server with embedded dispatch engine",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logger.Init(cfg.Log.Level, cfg.Log.Encoding)
		defer logger.Sync()

		dbx, err := db.NewMySQL(cfg.MySQL)
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer dbx.Close()

		rds, err := db.NewRedis(cfg.Redis)
		if err != nil {
			return fmt.Errorf("redis connect: %w", err)
		}
		defer func() { _ = rds.Close() }()

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

		// resume campaigns left in sending after a restart
		schedCtx, stopSched := context.WithCancel(context.Background())
		defer stopSched()
		go eng.RunScheduler(schedCtx, cfg.Engine.TickInterval)

		server := httpSrv.NewServer(cfg, dbx, rds, eng)

		errCh := make(chan error, 1)
		go func() {
			logger.Log.Info("starting http", zap.String("addr", cfg.HTTP.Addr))
			errCh <- server.Start(cfg.HTTP.Addr)
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			logger.Log.Info("signal received, shutting down", zap.String("signal", sig.String()))
		case err := <-errCh:
			if err != nil {
				logger.Log.Error("http server exited", zap.Error(err))
			}
		}

		stopSched()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
		_ = eng.Shutdown(ctx)

		return nil
	},
}
