// Package locator resolves a status report lookup key to exactly one pod.
//
// Locate is a pure function of the cluster listing and the key: it keeps no
// state between calls and never retries, so repeated lookups against an
// unchanged listing return the same pod.
package locator

import (
	"context"
	"fmt"
	"strconv"

	corev1 "k8s.io/api/core/v1"

	"github.com/groblegark/agentstatus/internal/agent"
)

// PodSource is the part of the cluster client the locator queries.
type PodSource interface {
	ListPods(ctx context.Context) ([]corev1.Pod, error)
	ListPodsByLabel(ctx context.Context, key, value string) ([]corev1.Pod, error)
}

// LookupFailure reports that no running pod matches a lookup key. Err holds
// the query error when the lookup failed in the cluster rather than by
// coming back empty; Message is the same either way.
type LookupFailure struct {
	Key     agent.LookupKey
	Message string
	Err     error
}

func (f *LookupFailure) Error() string {
	return f.Message
}

func (f *LookupFailure) Unwrap() error {
	return f.Err
}

// Locate returns the pod matching key. When several pods match, the first
// in listing order wins.
func Locate(ctx context.Context, source PodSource, key agent.LookupKey) (*corev1.Pod, error) {
	switch key.Kind() {
	case agent.ByElasticAgentID:
		return byElasticAgentID(ctx, source, key)
	case agent.ByJobIdentifier:
		return byJobIdentifier(ctx, source, key)
	default:
		return nil, agent.ErrNoLookupKey
	}
}

func byElasticAgentID(ctx context.Context, source PodSource, key agent.LookupKey) (*corev1.Pod, error) {
	pods, err := source.ListPods(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing pods for %s: %w", key, err)
	}
	id := key.ElasticAgentID()
	for i := range pods {
		if pods[i].Name == id {
			return &pods[i], nil
		}
	}
	return nil, &LookupFailure{
		Key:     key,
		Message: fmt.Sprintf("can not find a running pod for the provided elastic agent id: %s", id),
	}
}

// byJobIdentifier folds a failed label query into the same failure as an
// empty result.
func byJobIdentifier(ctx context.Context, source PodSource, key agent.LookupKey) (*corev1.Pod, error) {
	job := key.Job()
	pods, err := source.ListPodsByLabel(ctx, agent.LabelJobID, strconv.FormatInt(job.JobID, 10))
	if err == nil && len(pods) > 0 {
		return &pods[0], nil
	}
	return nil, &LookupFailure{
		Key:     key,
		Message: fmt.Sprintf("can not find a running pod for the provided job identifier: %s", job.Representation()),
		Err:     err,
	}
}
