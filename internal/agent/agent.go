// Package agent models the identifiers an elastic agent status report is
// requested with, and the pod metadata keys that tie a pod to its agent.
package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	corev1 "k8s.io/api/core/v1"
)

const (
	// LabelJobID carries the numeric job id on every elastic agent pod.
	LabelJobID = "Elastic-Agent-Job-Id"

	// AnnotationJobIdentifier holds the full JSON job identifier.
	AnnotationJobIdentifier = "Elastic-Agent-Job-Identifier"
)

// JobIdentifier correlates a build job with the pod that runs it.
type JobIdentifier struct {
	PipelineName    string `json:"pipeline_name"`
	PipelineCounter int64  `json:"pipeline_counter"`
	PipelineLabel   string `json:"pipeline_label"`
	StageName       string `json:"stage_name"`
	StageCounter    string `json:"stage_counter"`
	JobName         string `json:"job_name"`
	JobID           int64  `json:"job_id"`
}

// Representation returns the human-readable job locator:
// pipeline/counter/stage/stageCounter/job.
func (j *JobIdentifier) Representation() string {
	if j == nil {
		return ""
	}
	return fmt.Sprintf("%s/%d/%s/%s/%s",
		j.PipelineName, j.PipelineCounter, j.StageName, j.StageCounter, j.JobName)
}

func (j *JobIdentifier) String() string {
	if j == nil {
		return "<none>"
	}
	return fmt.Sprintf("%s (job id %d)", j.Representation(), j.JobID)
}

// JobIdentifierFromPod decodes the job identifier annotation of a pod.
// It returns nil, nil when the pod carries no annotation.
func JobIdentifierFromPod(pod *corev1.Pod) (*JobIdentifier, error) {
	if pod == nil {
		return nil, nil
	}
	raw, ok := pod.Annotations[AnnotationJobIdentifier]
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var job JobIdentifier
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return nil, fmt.Errorf("decoding %s annotation on pod %s: %w", AnnotationJobIdentifier, pod.Name, err)
	}
	return &job, nil
}

// ErrNoLookupKey is returned when a request names neither an elastic agent
// nor a job.
var ErrNoLookupKey = errors.New("status report request carries neither an elastic agent id nor a job identifier")

// KeyKind discriminates a LookupKey.
type KeyKind int

const (
	// ByElasticAgentID looks a pod up by its name.
	ByElasticAgentID KeyKind = iota + 1

	// ByJobIdentifier looks a pod up by its job id label.
	ByJobIdentifier
)

func (k KeyKind) String() string {
	switch k {
	case ByElasticAgentID:
		return "elastic-agent-id"
	case ByJobIdentifier:
		return "job-identifier"
	default:
		return "unknown"
	}
}

// LookupKey names the pod a status report is for. Exactly one of the
// variants is populated; build it with NewLookupKey.
type LookupKey struct {
	kind    KeyKind
	agentID string
	job     *JobIdentifier
}

// NewLookupKey picks the lookup strategy for a request. A non-blank elastic
// agent id always wins over a job identifier and is matched as given.
func NewLookupKey(elasticAgentID string, job *JobIdentifier) (LookupKey, error) {
	if strings.TrimSpace(elasticAgentID) != "" {
		return ElasticAgentKey(elasticAgentID), nil
	}
	if job != nil {
		return JobKey(job), nil
	}
	return LookupKey{}, ErrNoLookupKey
}

// ElasticAgentKey returns a key that matches the pod named id.
func ElasticAgentKey(id string) LookupKey {
	return LookupKey{kind: ByElasticAgentID, agentID: id}
}

// JobKey returns a key that matches the pod labeled with job's id.
func JobKey(job *JobIdentifier) LookupKey {
	return LookupKey{kind: ByJobIdentifier, job: job}
}

// Kind reports which variant is populated.
func (k LookupKey) Kind() KeyKind { return k.kind }

// ElasticAgentID returns the agent id for ByElasticAgentID keys.
func (k LookupKey) ElasticAgentID() string { return k.agentID }

// Job returns the job identifier for ByJobIdentifier keys.
func (k LookupKey) Job() *JobIdentifier { return k.job }

func (k LookupKey) String() string {
	switch k.kind {
	case ByElasticAgentID:
		return "elastic agent id " + k.agentID
	case ByJobIdentifier:
		return "job identifier " + k.job.Representation()
	default:
		return "empty lookup key"
	}
}
