package cluster

import (
	"fmt"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// RESTConfig resolves the API server configuration. An explicit kubeconfig
// path wins; otherwise in-cluster config is tried before the default
// loading rules (~/.kube/config, $KUBECONFIG).
func RESTConfig(kubeconfig string) (*rest.Config, error) {
	if kubeconfig != "" {
		cfg, err := clientcmd.BuildConfigFromFlags("", kubeconfig)
		if err != nil {
			return nil, &Error{Op: "load kubeconfig " + kubeconfig, Err: err}
		}
		return cfg, nil
	}

	cfg, err := rest.InClusterConfig()
	if err == nil {
		return cfg, nil
	}

	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	cfg, err = clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
		rules, &clientcmd.ConfigOverrides{}).ClientConfig()
	if err != nil {
		return nil, &Error{Op: "resolve kube config", Err: err}
	}
	return cfg, nil
}

// NewClientset builds a typed clientset from RESTConfig(kubeconfig).
func NewClientset(kubeconfig string) (kubernetes.Interface, error) {
	cfg, err := RESTConfig(kubeconfig)
	if err != nil {
		return nil, err
	}
	cs, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, &Error{Op: "create clientset", Err: fmt.Errorf("host %s: %w", cfg.Host, err)}
	}
	return cs, nil
}
