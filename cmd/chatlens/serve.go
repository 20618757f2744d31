package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/chatlens/chatlens/pkg/ai"
	"github.com/chatlens/chatlens/pkg/apis/cache"
	"github.com/chatlens/chatlens/pkg/auth"
	"github.com/chatlens/chatlens/pkg/flags"
	"github.com/chatlens/chatlens/pkg/pipeline"
	"github.com/chatlens/chatlens/pkg/server"
	"github.com/chatlens/chatlens/pkg/server/metrics"
)

const (
	metricsRefreshInterval = 5 * time.Minute
	authSweepInterval      = 10 * time.Minute
)

type ServerFlags struct {
	*AppFlags
	APIFlags *flags.APIFlags

	CacheCleanupInterval time.Duration
}

func NewServerFlags() *ServerFlags {
	return &ServerFlags{
		AppFlags:             NewAppFlags(),
		APIFlags:             flags.NewAPIFlags(),
		CacheCleanupInterval: time.Hour,
	}
}

func (f *ServerFlags) BindFlags(fs *pflag.FlagSet) {
	f.AppFlags.BindFlags(fs)
	f.APIFlags.BindFlags(fs)
	fs.DurationVar(&f.CacheCleanupInterval, "cache-cleanup-interval", f.CacheCleanupInterval, "Purge expired cache entries on this interval, disabled when 0")
}

func NewServeCommand() *cobra.Command {
	f := NewServerFlags()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the chatlens API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := f.newApp(ctx)
			if err != nil {
				return err
			}
			defer a.dbc.Close()

			if err := a.dbc.Ping(ctx); err != nil {
				return errors.WithMessage(err, "database is not reachable, has it been initialized with migrate?")
			}

			authService := auth.NewService(auth.NewDBUserStore(a.dbc), auth.NewLoginLimiter(), auth.NewSessionStore())
			srv := server.NewServer(server.Config{
				ListenAddr:     f.APIFlags.ListenAddr,
				Auth:           authService,
				Reports:        a.reports,
				Pipeline:       a.pipeline,
				Assistant:      a.assistant,
				Settings:       a.settings,
				Database:       a.dbc,
				EmbeddingProbe: a.ai.EmbeddingProbe,
				ChatProbe:      a.ai.ChatProbe,
			})

			processes := []server.DaemonProcess{
				server.Periodic{
					Name:     "auth-sweep",
					Interval: authSweepInterval,
					Fn: func(context.Context) {
						sessions, identities := authService.Sweep()
						log.WithFields(log.Fields{"sessions": sessions, "identities": identities}).Debug("expired auth state removed")
					},
				},
			}
			if f.AnalysisFlags.ProcessInterval > 0 {
				processes = append(processes, pipeline.NewSweeper(a.pipeline, f.AnalysisFlags.ProcessInterval, f.AnalysisFlags.BatchLimit))
			}
			if cleaner, ok := a.cache.(cache.Cleaner); ok && f.CacheCleanupInterval > 0 {
				processes = append(processes, server.Periodic{
					Name:     "cache-cleanup",
					Interval: f.CacheCleanupInterval,
					Fn: func(ctx context.Context) {
						if _, err := cleaner.DeleteExpired(ctx); err != nil {
							log.WithError(err).Error("could not purge expired cache entries")
						}
					},
				})
			}
			if f.APIFlags.MetricsAddr != "" {
				probes := map[string]ai.Prober{
					ai.EmbeddingService:  a.ai.EmbeddingProbe,
					ai.GenerationService: a.ai.ChatProbe,
				}
				processes = append(processes, server.Periodic{
					Name:     "metrics-refresh",
					Interval: metricsRefreshInterval,
					Fn: func(ctx context.Context) {
						metrics.RefreshMetrics(ctx, a.reports, probes)
					},
				})

				// Serve our metrics endpoint for prometheus to scrape
				go func() {
					http.Handle("/metrics", promhttp.Handler())
					err := http.ListenAndServe(f.APIFlags.MetricsAddr, nil) //nolint
					if err != nil {
						log.WithError(err).Error("metrics listener exited")
					}
				}()
			}

			daemon := server.NewDaemonServer(processes)
			daemonDone := make(chan struct{})
			go func() {
				defer close(daemonDone)
				daemon.Run(ctx)
			}()

			go func() {
				<-ctx.Done()
				if err := srv.Shutdown(context.Background()); err != nil {
					log.WithError(err).Error("error shutting down API server")
				}
			}()

			srv.Serve()
			stop()
			<-daemonDone
			return nil
		},
	}

	f.BindFlags(cmd.Flags())
	return cmd
}
