package kubernetes

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/client-go/informers"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/cache"

	"github.com/hasirciogluhq/eo-websocket-proxy/cmd/proxy/internal/core"
)

// Service labels that mark a game server as a proxy backend.
const (
	LabelEnabled = "eo-proxy-enabled"
	LabelBackend = "eo-proxy-backend"
	LabelPort    = "eo-proxy-port"
)

const resyncPeriod = 10 * time.Minute

type K8sResolver struct {
	store cache.Store
}

// NewK8sResolver starts a Service informer and blocks until its cache is
// synced. The informer stops when ctx is cancelled. An empty namespace
// watches all namespaces.
func NewK8sResolver(ctx context.Context, clientset kubernetes.Interface, namespace string) (*K8sResolver, error) {
	var opts []informers.SharedInformerOption
	if namespace != "" {
		opts = append(opts, informers.WithNamespace(namespace))
	}

	factory := informers.NewSharedInformerFactoryWithOptions(clientset, resyncPeriod, opts...)
	serviceInformer := factory.Core().V1().Services().Informer()

	// Start the informer in the background
	factory.Start(ctx.Done())
	for informerType, synced := range factory.WaitForCacheSync(ctx.Done()) {
		if !synced {
			return nil, fmt.Errorf("failed to sync %v informer cache", informerType)
		}
	}

	return &K8sResolver{
		store: serviceInformer.GetStore(),
	}, nil
}

func (r *K8sResolver) Resolve(ctx context.Context, metadata core.RoutingMetadata) (string, error) {
	backend := metadata[core.MetadataBackend]
	if backend == "" {
		backend = core.DefaultBackend
	}

	var candidates []*corev1.Service

	// Scan services for matching labels
	for _, obj := range r.store.List() {
		svc, ok := obj.(*corev1.Service)
		if !ok {
			continue
		}

		labels := svc.Labels
		if labels[LabelEnabled] != "true" {
			continue
		}

		name := labels[LabelBackend]
		if name == "" {
			name = core.DefaultBackend
		}
		if name != backend {
			continue
		}

		candidates = append(candidates, svc)
	}

	// The store has no stable order; pick deterministically when several match.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Namespace != candidates[j].Namespace {
			return candidates[i].Namespace < candidates[j].Namespace
		}
		return candidates[i].Name < candidates[j].Name
	})

	for _, svc := range candidates {
		port := servicePort(svc)
		if port == 0 {
			continue
		}
		return fmt.Sprintf("%s.%s.svc.cluster.local:%d", svc.Name, svc.Namespace, port), nil
	}

	return "", fmt.Errorf("service not found for backend='%s'", backend)
}

// servicePort returns the port named or numbered by the port label, or the
// first port when the label is absent. Zero means no usable port.
func servicePort(svc *corev1.Service) int32 {
	if len(svc.Spec.Ports) == 0 {
		return 0
	}

	want, ok := svc.Labels[LabelPort]
	if !ok {
		return svc.Spec.Ports[0].Port
	}

	number, err := strconv.Atoi(want)
	for _, p := range svc.Spec.Ports {
		if p.Name == want || (err == nil && int(p.Port) == number) {
			return p.Port
		}
	}
	return 0
}
