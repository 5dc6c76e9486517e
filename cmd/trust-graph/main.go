package main

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/ritzau/trust-graph/pkg/config"
	"github.com/ritzau/trust-graph/pkg/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "trust-graph",
		Short:         "Explore transitive trust in a weighted directed graph",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.CountP("verbose", "v", "Increase log verbosity (-v debug, -vv trace)")
	flags.String("verbosity", "", "Log level: trace, debug, info, warn, error")
	flags.Bool("json-logs", false, "Log as JSON instead of the compact console format")
	flags.String("reference", "A", "Reference node scores are computed for")

	root.AddCommand(newServeCmd(), newScoresCmd())
	return root
}

// loadConfig reads the layered configuration and sets up logging.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	logging.Configure(logging.Options{
		Level: logging.ParseLevel(cfg.Verbosity, cfg.VerboseCnt),
		JSON:  cfg.JSONLogs,
	})
	logging.Debug("configuration loaded", "port", cfg.Port, "reference", cfg.Reference, "watch", cfg.Watch)
	return cfg, nil
}

func openBrowser(url string) {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
		args = []string{url}
	case "linux":
		cmd = "xdg-open"
		args = []string{url}
	case "windows":
		cmd = "cmd"
		args = []string{"/c", "start", url}
	default:
		logging.Warn("cannot open browser on this platform", "os", runtime.GOOS)
		return
	}

	if err := exec.Command(cmd, args...).Start(); err != nil {
		logging.Warn("failed to open browser", "error", err)
	}
}
