package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ritzau/trust-graph/pkg/config"
	"github.com/ritzau/trust-graph/pkg/lens"
	"github.com/ritzau/trust-graph/pkg/logging"
	"github.com/ritzau/trust-graph/pkg/metrics"
	"github.com/ritzau/trust-graph/pkg/notify"
	"github.com/ritzau/trust-graph/pkg/session"
	"github.com/ritzau/trust-graph/pkg/watcher"
	"github.com/ritzau/trust-graph/pkg/web"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the interactive web UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}

	flags := cmd.Flags()
	flags.IntP("port", "p", 8080, "Port for the web server")
	flags.Bool("open", false, "Open the UI in a browser")
	flags.String("watch", "", "CSV file to import now and re-import whenever it changes")
	flags.Bool("seed", true, "Start with the demo graph")
	flags.Int("notification-ms", 3000, "How long notifications stay visible")
	flags.StringSlice("cors-origins", []string{"*"}, "Allowed CORS origins")
	flags.Bool("physics", true, "Enable layout physics in the browser")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	publisher := web.NewPublisher()
	defer publisher.Close()

	surface := lens.NewBroadcastSurface(publisher)
	collector := metrics.NewCollector()

	lensOpts := lens.DefaultOptions()
	lensOpts.Physics = cfg.Physics
	lensOpts.DefaultBorderWidth = cfg.BorderWidth
	lensOpts.NodeSize = cfg.NodeSize

	sess := session.New(session.Options{
		Surface:   surface,
		Notifier:  notify.New(cfg.NotificationLifetime(), publisher),
		Publisher: publisher,
		Metrics:   collector,
		Lens:      lensOpts,
		Reference: cfg.Reference,
	})

	if cfg.Seed {
		sess.Seed(ctx, session.DemoEdges())
		logging.Info("seeded demo graph", "edges", len(session.DemoEdges()), "reference", cfg.Reference)
	}

	if cfg.Watch != "" {
		go func() {
			err := watcher.Run(ctx, cfg.Watch, sess, watcher.Options{Initial: true})
			if err != nil {
				logging.Error("file watcher stopped", "path", cfg.Watch, "error", err)
			}
		}()
	}

	server := web.NewServer(sess, surface, publisher, web.Options{
		CORSOrigins: cfg.CORSOrigins,
		Metrics:     collector,
	})

	if cfg.OpenBrowser {
		url := fmt.Sprintf("http://localhost:%d", cfg.Port)
		go func() {
			// Give the listener a moment to come up
			time.Sleep(500 * time.Millisecond)
			openBrowser(url)
		}()
	}

	return server.Start(ctx, cfg.Port)
}
