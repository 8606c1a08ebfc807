package snapshot

import corev1 "k8s.io/api/core/v1"

// PhaseToAgentState maps a pod phase to the elastic agent state shown in
// reports. Unknown phases map to "".
func PhaseToAgentState(phase string) string {
	switch phase {
	case "Pending":
		return "spawning"
	case "Running":
		return "working"
	case "Succeeded":
		return "done"
	case "Failed":
		return "failed"
	default:
		return ""
	}
}

// isPodReady checks if the pod has a Ready condition set to True.
func isPodReady(pod *corev1.Pod) bool {
	for _, c := range pod.Status.Conditions {
		if c.Type == corev1.PodReady {
			return c.Status == corev1.ConditionTrue
		}
	}
	return false
}

// podStatus summarizes a pod the way kubectl's STATUS column does: a
// waiting or terminated container reason beats the phase.
func podStatus(pod *corev1.Pod) string {
	for _, cs := range pod.Status.ContainerStatuses {
		if cs.State.Waiting != nil && cs.State.Waiting.Reason != "" {
			return cs.State.Waiting.Reason
		}
	}
	for _, cs := range pod.Status.ContainerStatuses {
		if cs.State.Terminated != nil && cs.State.Terminated.Reason != "" {
			return cs.State.Terminated.Reason
		}
	}
	if pod.Status.Reason != "" {
		return pod.Status.Reason
	}
	if pod.Status.Phase != "" {
		return string(pod.Status.Phase)
	}
	return "Unknown"
}
