package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/timvw/pane-deck/internal/api"
	"github.com/timvw/pane-deck/internal/logging"
)

var flagListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the session view over HTTP",
	Long: `Serve the unified session view, pane captures, keystroke injection and
the agent-team event feed to the web dashboard.

The server holds no state between requests: every request re-reads tmux,
the metadata file and the event log.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagListen, "listen", "", "listen address (default from config: 127.0.0.1:7420)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := setup(cmd)
	if err != nil {
		return err
	}
	defer d.close(ctx)

	listen := d.cfg.Listen
	if cmd.Flags().Changed("listen") {
		listen = flagListen
	}

	if d.logger.GetLevel() < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	log := logging.Component(d.logger, "api")
	router := api.NewRouter(d.tracker, d.events, api.Options{
		CORSOrigins: d.cfg.CORSOrigins,
		RateLimit: api.RateLimitConfig{
			RequestsPerSecond: d.cfg.RateLimit.RPS,
			Burst:             d.cfg.RateLimit.Burst,
		},
		Logger: log,
	})

	srv := &http.Server{
		Addr:              listen,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithFields(logrus.Fields{
			"listen": listen,
			"mux":    d.tracker.Mux.Name(),
		}).Info("serving session view")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), 5*time.Second)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
