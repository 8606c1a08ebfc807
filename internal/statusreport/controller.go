// Package statusreport generates the status report of a single elastic agent.
//
// A report runs linearly: select the lookup strategy, locate the pod, build
// its snapshot, render the view. Any failure along the way short-circuits to
// the error handler, so callers always get a Response and never a raw error.
package statusreport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	corev1 "k8s.io/api/core/v1"

	"github.com/groblegark/agentstatus/internal/agent"
	"github.com/groblegark/agentstatus/internal/cluster"
	"github.com/groblegark/agentstatus/internal/locator"
	"github.com/groblegark/agentstatus/internal/snapshot"
	"github.com/groblegark/agentstatus/internal/view"
)

// Request asks for the status of one elastic agent.
type Request struct {
	ElasticAgentID string               `json:"elastic_agent_id,omitempty"`
	JobIdentifier  *agent.JobIdentifier `json:"job_identifier,omitempty"`
}

// ParseRequest decodes a JSON status report request.
func ParseRequest(data []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Request{}, fmt.Errorf("decoding status report request: %w", err)
	}
	return req, nil
}

// Views looks up and renders report templates.
type Views interface {
	Template(name string) (view.Template, error)
	Render(t view.Template, data any) (string, error)
}

// FailureHandler converts a failed report into a response.
type FailureHandler interface {
	Handle(err error) Response
}

// Options configures a Controller. Cluster and Views are required.
type Options struct {
	Cluster cluster.Client
	Views   Views
	Errors  FailureHandler
	Logger  *slog.Logger

	// LogTailLines is how many lines of each container's log to include.
	// Zero or less leaves logs out of the report.
	LogTailLines int64
}

// Controller generates status reports. It holds no per-request state and is
// safe for concurrent use.
type Controller struct {
	cluster   cluster.Client
	views     Views
	errors    FailureHandler
	logger    *slog.Logger
	tailLines int64
}

// New creates a Controller from opts.
func New(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	errs := opts.Errors
	if errs == nil {
		errs = NewErrorHandler(opts.Views, logger)
	}
	return &Controller{
		cluster:   opts.Cluster,
		views:     opts.Views,
		errors:    errs,
		logger:    logger,
		tailLines: opts.LogTailLines,
	}
}

// Execute generates the report for req.
func (c *Controller) Execute(ctx context.Context, req Request) (resp Response) {
	logger := c.logger.With("request", uuid.NewString())
	logger.Info("generating status report",
		"agent", req.ElasticAgentID, "job", req.JobIdentifier)

	defer func() {
		if r := recover(); r != nil {
			resp = c.errors.Handle(fmt.Errorf("status report aborted: %v", r))
		}
	}()

	out, err := c.generate(ctx, logger, req)
	if err != nil {
		return c.errors.Handle(err)
	}
	return Success(out)
}

func (c *Controller) generate(ctx context.Context, logger *slog.Logger, req Request) (string, error) {
	key, err := agent.NewLookupKey(req.ElasticAgentID, req.JobIdentifier)
	if err != nil {
		return "", err
	}

	pod, err := locator.Locate(ctx, c.cluster, key)
	if err != nil {
		return "", err
	}
	logger.Debug("located agent pod", "key", key.Kind(), "pod", pod.Name, "namespace", pod.Namespace)

	snap, err := snapshot.Build(pod, req.JobIdentifier, c.enrich(ctx, logger, pod))
	if err != nil {
		return "", err
	}

	tmpl, err := c.views.Template(view.AgentStatusReport)
	if err != nil {
		return "", err
	}
	return c.views.Render(tmpl, snap)
}

// enrich gathers events and logs for pod. Failures only cost the report
// that section.
func (c *Controller) enrich(ctx context.Context, logger *slog.Logger, pod *corev1.Pod) snapshot.Enrichment {
	var extra snapshot.Enrichment

	events, err := c.cluster.PodEvents(ctx, pod)
	if err != nil {
		logger.Warn("skipping pod events", "pod", pod.Name, "error", err)
	} else {
		extra.Events = events
	}

	if c.tailLines <= 0 {
		return extra
	}
	for _, cs := range pod.Status.ContainerStatuses {
		out, err := c.cluster.PodLogs(ctx, pod, cs.Name, c.tailLines)
		if err != nil {
			logger.Warn("skipping container logs", "pod", pod.Name, "container", cs.Name, "error", err)
			continue
		}
		if extra.Logs == nil {
			extra.Logs = make(map[string]string)
		}
		extra.Logs[cs.Name] = out
	}
	return extra
}
