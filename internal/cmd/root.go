// Package cmd implements the agentstatus command line.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/groblegark/agentstatus/internal/cluster"
	"github.com/groblegark/agentstatus/internal/config"
	"github.com/groblegark/agentstatus/internal/logging"
	"github.com/groblegark/agentstatus/internal/statusreport"
	"github.com/groblegark/agentstatus/internal/view"
)

// Global flags
var (
	configPath     string
	flagNamespace  string
	flagKubeConfig string
	flagLogLevel   string
)

// Resolved in PersistentPreRunE.
var (
	cfg    *config.Config
	logger *slog.Logger
)

// newClientset builds the cluster clientset; tests swap in a fake.
var newClientset = cluster.NewClientset

var rootCmd = &cobra.Command{
	Use:   "agentstatus",
	Short: "Status reports for Kubernetes elastic build agents",
	Long: `agentstatus reports the live status of one elastic build agent running
as a pod: its phase, containers, events, recent logs, and configuration.

Settings come from defaults, then the --config TOML file, then environment
variables (NAMESPACE, KUBECONFIG, LOG_LEVEL, REPORT_FORMAT, LOG_TAIL_LINES,
NATS_URL, NATS_TOKEN, NATS_SUBJECT), then flags.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Path to a TOML settings file")
	pf.StringVar(&flagNamespace, "namespace", "", "Kubernetes namespace of agent pods (empty flag keeps the configured one)")
	pf.StringVar(&flagKubeConfig, "kubeconfig", "", "Path to kubeconfig (empty for in-cluster)")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
}

// Execute runs the root command.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("namespace") {
		loaded.Namespace = flagNamespace
	}
	if flags.Changed("kubeconfig") {
		loaded.KubeConfig = flagKubeConfig
	}
	if flags.Changed("log-level") {
		loaded.LogLevel = flagLogLevel
	}
	if err := loaded.Validate(); err != nil {
		return err
	}

	cfg = loaded
	logger = logging.New(cfg.LogLevel, os.Stderr)
	return nil
}

// newController wires a status report controller to the configured cluster.
func newController(format view.Format) (*statusreport.Controller, error) {
	cs, err := newClientset(cfg.KubeConfig)
	if err != nil {
		return nil, fmt.Errorf("connecting to cluster: %w", err)
	}
	views, err := view.New(format)
	if err != nil {
		return nil, err
	}
	return statusreport.New(statusreport.Options{
		Cluster:      cluster.New(cs, cfg.Namespace, logger),
		Views:        views,
		Logger:       logger,
		LogTailLines: cfg.LogTailLines,
	}), nil
}
