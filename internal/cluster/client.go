// Package cluster reads elastic agent pods, their events, and their logs from
// Kubernetes. It never mutates cluster state.
package cluster

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/fields"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/client-go/kubernetes"
)

// Client is the read-only view of the cluster used by status reports.
type Client interface {
	ListPods(ctx context.Context) ([]corev1.Pod, error)
	ListPodsByLabel(ctx context.Context, key, value string) ([]corev1.Pod, error)
	PodEvents(ctx context.Context, pod *corev1.Pod) ([]corev1.Event, error)
	PodLogs(ctx context.Context, pod *corev1.Pod, container string, tailLines int64) (string, error)
}

// Error describes a failed cluster operation.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("cluster %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// K8sClient implements Client using client-go.
type K8sClient struct {
	client    kubernetes.Interface
	namespace string
	logger    *slog.Logger
}

// New creates a cluster client scoped to namespace. An empty namespace
// lists across all namespaces.
func New(client kubernetes.Interface, namespace string, logger *slog.Logger) *K8sClient {
	if namespace == "" {
		namespace = metav1.NamespaceAll
	}
	return &K8sClient{client: client, namespace: namespace, logger: logger}
}

// ListPods lists every pod visible in the configured namespace.
func (c *K8sClient) ListPods(ctx context.Context) ([]corev1.Pod, error) {
	list, err := c.client.CoreV1().Pods(c.namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, &Error{Op: "list pods", Err: err}
	}
	c.logger.Debug("listed pods", "namespace", c.namespace, "count", len(list.Items))
	return list.Items, nil
}

// ListPodsByLabel lists pods whose label key equals value.
func (c *K8sClient) ListPodsByLabel(ctx context.Context, key, value string) ([]corev1.Pod, error) {
	sel := labels.Set{key: value}.String()
	list, err := c.client.CoreV1().Pods(c.namespace).List(ctx, metav1.ListOptions{
		LabelSelector: sel,
	})
	if err != nil {
		return nil, &Error{Op: "list pods with selector " + sel, Err: err}
	}
	c.logger.Debug("listed pods by label", "selector", sel, "count", len(list.Items))
	return list.Items, nil
}

// PodEvents lists the events whose involved object is pod.
func (c *K8sClient) PodEvents(ctx context.Context, pod *corev1.Pod) ([]corev1.Event, error) {
	sel := fields.OneTermEqualSelector("involvedObject.name", pod.Name).String()
	list, err := c.client.CoreV1().Events(pod.Namespace).List(ctx, metav1.ListOptions{
		FieldSelector: sel,
	})
	if err != nil {
		return nil, &Error{Op: "list events for pod " + pod.Name, Err: err}
	}
	return list.Items, nil
}

// PodLogs returns the last tailLines lines logged by container. A
// non-positive tailLines returns the full log.
func (c *K8sClient) PodLogs(ctx context.Context, pod *corev1.Pod, container string, tailLines int64) (string, error) {
	opts := &corev1.PodLogOptions{Container: container}
	if tailLines > 0 {
		opts.TailLines = &tailLines
	}
	stream, err := c.client.CoreV1().Pods(pod.Namespace).GetLogs(pod.Name, opts).Stream(ctx)
	if err != nil {
		return "", &Error{Op: fmt.Sprintf("logs for %s/%s", pod.Name, container), Err: err}
	}
	defer func() { _ = stream.Close() }()

	out, err := readLogs(stream)
	if err != nil {
		return out, &Error{Op: fmt.Sprintf("reading logs for %s/%s", pod.Name, container), Err: err}
	}
	return out, nil
}

// readLogs drains a log stream. Lines of any length are kept whole.
func readLogs(r io.Reader) (string, error) {
	var b strings.Builder
	_, err := io.Copy(&b, r)
	return b.String(), err
}
