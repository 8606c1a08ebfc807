package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/groblegark/agentstatus/internal/agent"
	"github.com/groblegark/agentstatus/internal/statusreport"
	"github.com/groblegark/agentstatus/internal/transport"
	"github.com/groblegark/agentstatus/internal/ui"
	"github.com/groblegark/agentstatus/internal/view"
)

// Report command flags
var (
	reportAgentID         string
	reportJobID           int64
	reportPipeline        string
	reportPipelineCounter int64
	reportPipelineLabel   string
	reportStage           string
	reportStageCounter    string
	reportJob             string
	reportFormat          string
	reportJSON            bool
	reportViaNATS         bool
	reportTimeout         time.Duration
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show the status report of one elastic agent",
	Long: `Show the status report of one elastic agent.

The agent is found by pod name (--agent-id) or, when no agent id is given,
by the pod labeled with the job id (--job-id). The agent id wins when both
are set.

Over --via-nats the responder renders the view in its own configured format
and it is printed as received.

Examples:
  agentstatus report --agent-id k8s-ea-5f2c               # HTML view
  agentstatus report --agent-id k8s-ea-5f2c --format markdown
  agentstatus report --job-id 42 --pipeline up42 --pipeline-counter 7 \
      --stage build --stage-counter 1 --job compile
  agentstatus report --job-id 42 --via-nats               # ask a running 'agentstatus serve'
  agentstatus report --agent-id k8s-ea-5f2c --json        # raw response envelope`,
	RunE: runReport,
}

func init() {
	f := reportCmd.Flags()
	f.StringVar(&reportAgentID, "agent-id", "", "Elastic agent id (pod name)")
	f.Int64Var(&reportJobID, "job-id", 0, "Numeric job id")
	f.StringVar(&reportPipeline, "pipeline", "", "Pipeline name of the job")
	f.Int64Var(&reportPipelineCounter, "pipeline-counter", 0, "Pipeline counter of the job")
	f.StringVar(&reportPipelineLabel, "pipeline-label", "", "Pipeline label of the job")
	f.StringVar(&reportStage, "stage", "", "Stage name of the job")
	f.StringVar(&reportStageCounter, "stage-counter", "", "Stage counter of the job")
	f.StringVar(&reportJob, "job", "", "Job name")
	f.StringVar(&reportFormat, "format", "", "View format: html or markdown (default from config; not allowed with --via-nats)")
	f.BoolVar(&reportJSON, "json", false, "Print the raw response envelope as JSON")
	f.BoolVar(&reportViaNATS, "via-nats", false, "Request the report from a responder over NATS")
	f.DurationVar(&reportTimeout, "timeout", 30*time.Second, "Timeout for the report request")

	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, _ []string) error {
	req := buildReportRequest(cmd)
	if req.ElasticAgentID == "" && req.JobIdentifier == nil {
		return fmt.Errorf("one of --agent-id or --job-id is required")
	}

	format, err := resolveReportFormat(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), reportTimeout)
	defer cancel()

	var resp statusreport.Response
	if reportViaNATS {
		resp, err = requestOverNATS(ctx, req)
		if err != nil {
			return err
		}
	} else {
		controller, err := newController(format)
		if err != nil {
			return err
		}
		resp = controller.Execute(ctx, req)
	}

	return writeResponse(cmd.OutOrStdout(), resp, format, reportJSON)
}

// resolveReportFormat picks the view format for a local report. Over NATS the
// responder renders with its own configured format, which the client cannot
// know, so --format is rejected there and the view is printed as received.
func resolveReportFormat(cmd *cobra.Command) (view.Format, error) {
	if reportViaNATS {
		if cmd.Flags().Changed("format") {
			return "", fmt.Errorf("--format cannot be combined with --via-nats: the responder's REPORT_FORMAT decides the view format")
		}
		return "", nil
	}
	if reportFormat != "" {
		return view.Format(reportFormat), nil
	}
	return view.Format(cfg.Format), nil
}

// buildReportRequest turns the report flags into a request. The job
// identifier is only set when --job-id was given.
func buildReportRequest(cmd *cobra.Command) statusreport.Request {
	req := statusreport.Request{ElasticAgentID: reportAgentID}
	if cmd.Flags().Changed("job-id") {
		req.JobIdentifier = &agent.JobIdentifier{
			PipelineName:    reportPipeline,
			PipelineCounter: reportPipelineCounter,
			PipelineLabel:   reportPipelineLabel,
			StageName:       reportStage,
			StageCounter:    reportStageCounter,
			JobName:         reportJob,
			JobID:           reportJobID,
		}
	}
	return req
}

func requestOverNATS(ctx context.Context, req statusreport.Request) (statusreport.Response, error) {
	opts := []nats.Option{nats.Name("agentstatus-cli")}
	if cfg.NatsToken != "" {
		opts = append(opts, nats.Token(cfg.NatsToken))
	}
	nc, err := nats.Connect(cfg.NatsURL, opts...)
	if err != nil {
		return statusreport.Response{}, fmt.Errorf("NATS connect: %w", err)
	}
	defer nc.Close()
	return transport.Request(ctx, nc, cfg.NatsSubject, req)
}

func writeResponse(w io.Writer, resp statusreport.Response, format view.Format, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	if resp.Code != http.StatusOK {
		fmt.Fprintln(w, ui.Error(ui.WrapText(resp.Body, 80)))
		return fmt.Errorf("status report failed with code %d", resp.Code)
	}
	out, err := resp.View()
	if err != nil {
		return err
	}
	if format == view.FormatMarkdown {
		out = ui.RenderMarkdown(out)
	}
	_, err = fmt.Fprintln(w, out)
	return err
}
