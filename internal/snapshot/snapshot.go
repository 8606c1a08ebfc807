// Package snapshot turns a located elastic agent pod into the normalized,
// presentation-ready view of its status. Building a snapshot never talks to
// the cluster; anything fetched from it arrives through Enrichment.
package snapshot

import (
	"fmt"
	"sort"
	"time"

	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/yaml"

	"github.com/groblegark/agentstatus/internal/agent"
)

// AgentSnapshot is the status of one elastic agent at one point in time.
type AgentSnapshot struct {
	ElasticAgentID string
	JobIdentifier  *agent.JobIdentifier
	Pod            PodDetails
	Conditions     []Condition
	Containers     []ContainerState
	Events         []Event
	Logs           []ContainerLog

	// Configuration is the pod manifest rendered as YAML.
	Configuration string
}

// PodDetails is the identity and lifecycle summary of the agent's pod.
type PodDetails struct {
	Name        string
	Namespace   string
	NodeName    string
	PodIP       string
	HostIP      string
	Phase       string
	AgentState  string // spawning, working, done, failed
	Status      string
	Ready       bool
	CreatedAt   time.Time
	StartedAt   time.Time
	Labels      map[string]string
	Annotations map[string]string
}

type Condition struct {
	Type               string
	Status             string
	Reason             string
	Message            string
	LastTransitionTime time.Time
}

// ContainerState is one container's status. State is running, waiting, or
// terminated.
type ContainerState struct {
	Name         string
	Image        string
	Ready        bool
	RestartCount int32
	State        string
	Reason       string
	Message      string
	ExitCode     int32
	StartedAt    time.Time
	FinishedAt   time.Time
}

type Event struct {
	Type      string
	Reason    string
	Message   string
	Count     int32
	FirstSeen time.Time
	LastSeen  time.Time
}

type ContainerLog struct {
	Container string
	Log       string
}

// Enrichment carries optional data gathered from the cluster for the pod.
type Enrichment struct {
	Events []corev1.Event
	Logs   map[string]string // container name -> log tail
}

// GenerationError reports a pod record too incomplete to build a snapshot from.
type GenerationError struct {
	Pod    string
	Reason string
	Err    error
}

func (e *GenerationError) Error() string {
	if e.Pod == "" {
		return "generating agent status snapshot: " + e.Reason
	}
	return fmt.Sprintf("generating agent status snapshot for pod %s: %s", e.Pod, e.Reason)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Build assembles the snapshot for pod. job is the identifier the report was
// requested with; when nil, the pod's job identifier annotation is used.
func Build(pod *corev1.Pod, job *agent.JobIdentifier, extra Enrichment) (*AgentSnapshot, error) {
	if pod == nil {
		return nil, &GenerationError{Reason: "no pod"}
	}
	if pod.Name == "" {
		return nil, &GenerationError{Reason: "pod has no name"}
	}
	if len(pod.Status.ContainerStatuses) == 0 {
		return nil, &GenerationError{Pod: pod.Name, Reason: "pod reports no container statuses"}
	}

	if job == nil {
		fromPod, err := agent.JobIdentifierFromPod(pod)
		if err != nil {
			return nil, &GenerationError{Pod: pod.Name, Reason: "unreadable job identifier", Err: err}
		}
		job = fromPod
	}

	containers, err := containerStates(pod)
	if err != nil {
		return nil, err
	}

	config, err := yaml.Marshal(pod)
	if err != nil {
		return nil, &GenerationError{Pod: pod.Name, Reason: "serializing pod configuration", Err: err}
	}

	return &AgentSnapshot{
		ElasticAgentID: pod.Name,
		JobIdentifier:  job,
		Pod:            podDetails(pod),
		Conditions:     conditions(pod),
		Containers:     containers,
		Events:         events(extra.Events),
		Logs:           logs(pod, extra.Logs),
		Configuration:  string(config),
	}, nil
}

func podDetails(pod *corev1.Pod) PodDetails {
	d := PodDetails{
		Name:        pod.Name,
		Namespace:   pod.Namespace,
		NodeName:    pod.Spec.NodeName,
		PodIP:       pod.Status.PodIP,
		HostIP:      pod.Status.HostIP,
		Phase:       string(pod.Status.Phase),
		AgentState:  PhaseToAgentState(string(pod.Status.Phase)),
		Status:      podStatus(pod),
		Ready:       isPodReady(pod),
		CreatedAt:   pod.CreationTimestamp.Time,
		Labels:      pod.Labels,
		Annotations: pod.Annotations,
	}
	if pod.Status.StartTime != nil {
		d.StartedAt = pod.Status.StartTime.Time
	}
	return d
}

func conditions(pod *corev1.Pod) []Condition {
	out := make([]Condition, 0, len(pod.Status.Conditions))
	for _, c := range pod.Status.Conditions {
		out = append(out, Condition{
			Type:               string(c.Type),
			Status:             string(c.Status),
			Reason:             c.Reason,
			Message:            c.Message,
			LastTransitionTime: c.LastTransitionTime.Time,
		})
	}
	return out
}

func containerStates(pod *corev1.Pod) ([]ContainerState, error) {
	out := make([]ContainerState, 0, len(pod.Status.ContainerStatuses))
	for i, cs := range pod.Status.ContainerStatuses {
		if cs.Name == "" {
			return nil, &GenerationError{
				Pod:    pod.Name,
				Reason: fmt.Sprintf("container status %d has no name", i),
			}
		}
		s := ContainerState{
			Name:         cs.Name,
			Image:        cs.Image,
			Ready:        cs.Ready,
			RestartCount: cs.RestartCount,
		}
		switch {
		case cs.State.Running != nil:
			s.State = "running"
			s.StartedAt = cs.State.Running.StartedAt.Time
		case cs.State.Terminated != nil:
			t := cs.State.Terminated
			s.State = "terminated"
			s.Reason = t.Reason
			s.Message = t.Message
			s.ExitCode = t.ExitCode
			s.StartedAt = t.StartedAt.Time
			s.FinishedAt = t.FinishedAt.Time
		case cs.State.Waiting != nil:
			s.State = "waiting"
			s.Reason = cs.State.Waiting.Reason
			s.Message = cs.State.Waiting.Message
		default:
			s.State = "unknown"
		}
		out = append(out, s)
	}
	return out, nil
}

// events returns the pod's events newest first.
func events(in []corev1.Event) []Event {
	out := make([]Event, 0, len(in))
	for i := range in {
		ev := &in[i]
		first := ev.FirstTimestamp.Time
		if first.IsZero() {
			first = EventTimestamp(ev)
		}
		out = append(out, Event{
			Type:      ev.Type,
			Reason:    ev.Reason,
			Message:   ev.Message,
			Count:     ev.Count,
			FirstSeen: first,
			LastSeen:  EventTimestamp(ev),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastSeen.After(out[j].LastSeen)
	})
	return out
}

// logs orders container logs by the pod's container status order.
func logs(pod *corev1.Pod, in map[string]string) []ContainerLog {
	if len(in) == 0 {
		return nil
	}
	out := make([]ContainerLog, 0, len(in))
	for _, cs := range pod.Status.ContainerStatuses {
		if l, ok := in[cs.Name]; ok {
			out = append(out, ContainerLog{Container: cs.Name, Log: l})
		}
	}
	return out
}

// EventTimestamp returns the best available timestamp for an event:
// LastTimestamp, then EventTime, then CreationTimestamp.
func EventTimestamp(ev *corev1.Event) time.Time {
	if !ev.LastTimestamp.IsZero() {
		return ev.LastTimestamp.Time
	}
	if !ev.EventTime.Time.IsZero() {
		return ev.EventTime.Time
	}
	return ev.CreationTimestamp.Time
}
