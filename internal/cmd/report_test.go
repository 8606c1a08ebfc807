package cmd

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/groblegark/agentstatus/internal/config"
	"github.com/groblegark/agentstatus/internal/statusreport"
	"github.com/groblegark/agentstatus/internal/view"
)

func TestBuildReportRequest(t *testing.T) {
	t.Run("agent id only", func(t *testing.T) {
		c := &cobra.Command{}
		c.Flags().Int64Var(&reportJobID, "job-id", 0, "")
		reportAgentID = "k8s-ea-1"
		defer func() { reportAgentID = "" }()

		req := buildReportRequest(c)
		if req.ElasticAgentID != "k8s-ea-1" {
			t.Errorf("ElasticAgentID = %q, want k8s-ea-1", req.ElasticAgentID)
		}
		if req.JobIdentifier != nil {
			t.Errorf("JobIdentifier = %v, want nil without --job-id", req.JobIdentifier)
		}
	})

	t.Run("job id", func(t *testing.T) {
		c := &cobra.Command{}
		c.Flags().Int64Var(&reportJobID, "job-id", 0, "")
		if err := c.Flags().Set("job-id", "42"); err != nil {
			t.Fatal(err)
		}
		reportPipeline, reportStage, reportJob = "up42", "build", "compile"
		defer func() { reportPipeline, reportStage, reportJob, reportJobID = "", "", "", 0 }()

		req := buildReportRequest(c)
		if req.JobIdentifier == nil {
			t.Fatal("JobIdentifier = nil, want set by --job-id")
		}
		if req.JobIdentifier.JobID != 42 || req.JobIdentifier.PipelineName != "up42" {
			t.Errorf("JobIdentifier = %+v", req.JobIdentifier)
		}
	})
}

func TestResolveReportFormat(t *testing.T) {
	origCfg := cfg
	defer func() { reportViaNATS, reportFormat, cfg = false, "", origCfg }()
	cfg = &config.Config{Format: "html"}

	newCmd := func(args ...string) *cobra.Command {
		c := &cobra.Command{}
		c.Flags().StringVar(&reportFormat, "format", "", "")
		c.Flags().BoolVar(&reportViaNATS, "via-nats", false, "")
		if err := c.Flags().Parse(args); err != nil {
			t.Fatal(err)
		}
		return c
	}

	tests := []struct {
		name    string
		args    []string
		want    view.Format
		wantErr bool
	}{
		{"config default", nil, view.FormatHTML, false},
		{"flag overrides config", []string{"--format", "markdown"}, view.FormatMarkdown, false},
		{"nats prints as received", []string{"--via-nats"}, "", false},
		{"nats rejects format", []string{"--via-nats", "--format", "markdown"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reportViaNATS, reportFormat = false, ""
			got, err := resolveReportFormat(newCmd(tt.args...))
			if (err != nil) != tt.wantErr {
				t.Fatalf("resolveReportFormat() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("resolveReportFormat() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWriteResponse(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	tests := []struct {
		name    string
		resp    statusreport.Response
		format  view.Format
		asJSON  bool
		want    string
		wantErr bool
	}{
		{"html view", statusreport.Success("<div>ok</div>"), view.FormatHTML, false, "<div>ok</div>\n", false},
		{"markdown view", statusreport.Success("# agent"), view.FormatMarkdown, false, "# agent\n", false},
		{"json envelope", statusreport.Success("v"), view.FormatHTML, true, `"code": 200`, false},
		{"error response", statusreport.ErrorResponse("template missing"), view.FormatHTML, false, "template missing", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := writeResponse(&buf, tt.resp, tt.format, tt.asJSON)
			if (err != nil) != tt.wantErr {
				t.Fatalf("writeResponse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("output = %q, want it to contain %q", buf.String(), tt.want)
			}
		})
	}
}

func TestReportCommand_AgainstFakeCluster(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	for _, key := range []string{"NAMESPACE", "KUBECONFIG", "LOG_LEVEL", "REPORT_FORMAT", "LOG_TAIL_LINES"} {
		t.Setenv(key, "")
	}

	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: "k8s-ea-1", Namespace: "gocd"},
		Status: corev1.PodStatus{
			Phase: corev1.PodRunning,
			ContainerStatuses: []corev1.ContainerStatus{
				{Name: "gocd-agent", State: corev1.ContainerState{Running: &corev1.ContainerStateRunning{}}},
			},
		},
	}
	orig := newClientset
	newClientset = func(string) (kubernetes.Interface, error) {
		return fake.NewSimpleClientset(pod), nil
	}
	defer func() { newClientset = orig }()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs([]string{"report", "--agent-id", "k8s-ea-1", "--namespace", "gocd", "--format", "markdown", "--log-level", "error"})
	defer rootCmd.SetArgs(nil)

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("report error: %v", err)
	}
	if !strings.Contains(out.String(), "# Elastic agent k8s-ea-1") {
		t.Errorf("output missing report header:\n%s", out.String())
	}
	if cfg.Namespace != "gocd" {
		t.Errorf("Namespace = %q, want --namespace to override config", cfg.Namespace)
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetArgs(nil)

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("version error: %v", err)
	}
	if !strings.HasPrefix(out.String(), "agentstatus ") {
		t.Errorf("version output = %q", out.String())
	}
}
