package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/theneilagencia/glimora-sub000/internal/api"
	"github.com/theneilagencia/glimora-sub000/internal/config"
	"github.com/theneilagencia/glimora-sub000/internal/metrics"
	"github.com/theneilagencia/glimora-sub000/internal/model"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the decisor API and run scheduled organization syncs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		env, err := initSyncEnv(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           api.NewRouter(env.Service, env.Store, apiOptions(cfg.Server, env.Metrics)),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})

		// Graceful shutdown
		g.Go(func() error {
			<-gctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		if cfg.Scheduler.Enabled {
			interval := time.Duration(cfg.Scheduler.IntervalMins) * time.Minute
			g.Go(func() error {
				return runScheduler(gctx, env.Service, cfg.Scheduler.OrganizationIDs, interval)
			})
		}

		return g.Wait()
	},
}

func apiOptions(c config.ServerConfig, m *metrics.Manager) api.Options {
	opts := api.Options{
		CORSOrigins: c.CORSOrigins,
		SyncTimeout: time.Duration(c.SyncTimeoutSecs) * time.Second,
	}
	if m != nil {
		opts.Metrics = m.Handler()
	}
	return opts
}

// orgSyncer is the scheduler's view of the sync service.
type orgSyncer interface {
	SyncOrganization(ctx context.Context, organizationID string) (*model.OrganizationSyncResult, error)
}

// runScheduler syncs each organization in turn on every tick until ctx is
// done. A failing organization is logged and the next one still runs.
func runScheduler(ctx context.Context, syncer orgSyncer, orgIDs []string, interval time.Duration) error {
	log := zap.L().With(zap.String("component", "scheduler"))
	log.Info("scheduler started", zap.Duration("interval", interval), zap.Strings("organizations", orgIDs))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("scheduler stopped")
			return nil
		case <-ticker.C:
		}

		for _, org := range orgIDs {
			if ctx.Err() != nil {
				break
			}
			res, err := syncer.SyncOrganization(ctx, org)
			if err != nil {
				log.Error("scheduled sync failed", zap.String("organization_id", org), zap.Error(err))
				continue
			}
			log.Info(res.Message,
				zap.String("organization_id", org),
				zap.Int("accounts", res.AccountsProcessed),
				zap.Int("failed", res.AccountsFailed),
			)
		}
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
