package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/groblegark/agentstatus/internal/transport"
	"github.com/groblegark/agentstatus/internal/view"
)

var serveQueue string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Answer status report requests over NATS",
	Long: `Answer status report requests arriving on the configured NATS subject
until interrupted.

Each request is a JSON document:
  {"elastic_agent_id": "k8s-ea-5f2c"}
  {"job_identifier": {"pipeline_name": "up42", "job_id": 42, ...}}

and is answered with {"code": 200, "body": "{\"view\": ...}"}.

Examples:
  agentstatus serve
  NATS_URL=nats://nats:4222 agentstatus serve --queue agentstatus`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveQueue, "queue", "", "NATS queue group shared by replicas")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	controller, err := newController(view.Format(cfg.Format))
	if err != nil {
		return err
	}

	responder := transport.NewResponder(transport.Config{
		NatsURL:   cfg.NatsURL,
		NatsToken: cfg.NatsToken,
		Subject:   cfg.NatsSubject,
		Queue:     serveQueue,
	}, controller, logger)

	err = responder.Start(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info("shutting down")
		return nil
	}
	return err
}
