package factory

import (
	"context"
	"fmt"
	"os"

	"github.com/hasirciogluhq/eo-websocket-proxy/cmd/proxy/internal/config"
	"github.com/hasirciogluhq/eo-websocket-proxy/cmd/proxy/internal/core"
	"github.com/hasirciogluhq/eo-websocket-proxy/cmd/proxy/internal/discovery/kubernetes"
	"github.com/hasirciogluhq/eo-websocket-proxy/cmd/proxy/internal/discovery/memory"
	"github.com/hasirciogluhq/eo-websocket-proxy/cmd/proxy/internal/logger"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	k8s "k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// ResolverFactory creates backend resolvers based on configuration
type ResolverFactory struct {
	cfg *config.Config
}

// NewResolverFactory creates a new resolver factory
func NewResolverFactory(cfg *config.Config) *ResolverFactory {
	return &ResolverFactory{cfg: cfg}
}

// Create creates a backend resolver based on configuration.
// The Kubernetes resolver watches services until ctx is cancelled.
func (f *ResolverFactory) Create(ctx context.Context) (core.BackendResolver, error) {
	switch f.cfg.DiscoveryMode {
	case config.DiscoveryStatic:
		return f.createStaticResolver()
	case config.DiscoveryKubernetes:
		return f.createKubernetesResolver(ctx)
	default:
		return nil, fmt.Errorf("unknown discovery mode: %s", f.cfg.DiscoveryMode)
	}
}

func (f *ResolverFactory) createStaticResolver() (core.BackendResolver, error) {
	logger.Info("Creating Static Backend Resolver",
		"default", f.cfg.BackendAddr,
		"backends", f.cfg.StaticBackends)

	resolver, err := memory.NewResolver(f.cfg.BackendAddr, f.cfg.StaticBackends)
	if err != nil {
		return nil, fmt.Errorf("failed to create static resolver: %w", err)
	}

	return resolver, nil
}

func (f *ResolverFactory) createKubernetesResolver(ctx context.Context) (core.BackendResolver, error) {
	logger.Info("Creating Kubernetes Backend Resolver",
		"runtime", f.cfg.Runtime,
		"namespace", f.cfg.Namespace,
		"kubeconfig", f.cfg.KubeConfigPath,
		"context", f.cfg.KubeContext)

	restConfig, err := f.restConfig()
	if err != nil {
		return nil, err
	}

	clientset, err := k8s.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}

	resolver, err := kubernetes.NewK8sResolver(ctx, clientset, f.watchNamespace())
	if err != nil {
		return nil, fmt.Errorf("failed to start kubernetes resolver: %w", err)
	}

	logger.Info("Kubernetes resolver created successfully")
	return resolver, nil
}

// watchNamespace maps the configured namespace to the informer's namespace.
func (f *ResolverFactory) watchNamespace() string {
	if f.cfg.Namespace == config.AllNamespaces {
		return metav1.NamespaceAll
	}
	return f.cfg.Namespace
}

// restConfig prefers a kubeconfig file and falls back to in-cluster config.
func (f *ResolverFactory) restConfig() (*rest.Config, error) {
	kubeconfig := f.cfg.KubeConfigPath

	// Outside a cluster the user's kubeconfig is the only option
	if f.cfg.Runtime != config.RuntimeKubernetes && kubeconfig == "" {
		if home := os.Getenv("HOME"); home != "" {
			kubeconfig = home + "/.kube/config"
		}
	}

	configOverrides := &clientcmd.ConfigOverrides{}
	if f.cfg.KubeContext != "" {
		configOverrides.CurrentContext = f.cfg.KubeContext
		logger.Info("Using specific Kubernetes context", "context", f.cfg.KubeContext)
	}

	if kubeconfig != "" {
		restConfig, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
			&clientcmd.ClientConfigLoadingRules{ExplicitPath: kubeconfig},
			configOverrides,
		).ClientConfig()
		if err == nil {
			return restConfig, nil
		}
		logger.Warn("Failed to load kubeconfig, will try in-cluster config", "error", err)
	}

	logger.Info("Attempting in-cluster Kubernetes configuration")
	restConfig, err := clientcmd.BuildConfigFromFlags("", "")
	if err != nil {
		return nil, fmt.Errorf("failed to build kubernetes config (tried kubeconfig and in-cluster): %w", err)
	}
	return restConfig, nil
}
