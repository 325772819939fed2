package kubernetes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/hasirciogluhq/eo-websocket-proxy/cmd/proxy/internal/core"
)

func service(namespace, name string, labels map[string]string, ports ...corev1.ServicePort) *corev1.Service {
	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
			Labels:    labels,
		},
		Spec: corev1.ServiceSpec{Ports: ports},
	}
}

func Test_K8sResolver_Resolve(t *testing.T) {
	clientset := fake.NewSimpleClientset(
		service("games", "reoserv", map[string]string{LabelEnabled: "true"},
			corev1.ServicePort{Name: "game", Port: 8078}),
		service("games", "reoserv-test", map[string]string{LabelEnabled: "true", LabelBackend: "test", LabelPort: "game"},
			corev1.ServicePort{Name: "admin", Port: 9000},
			corev1.ServicePort{Name: "game", Port: 8079}),
		service("games", "numbered", map[string]string{LabelEnabled: "true", LabelBackend: "numbered", LabelPort: "8090"},
			corev1.ServicePort{Name: "a", Port: 8089},
			corev1.ServicePort{Name: "b", Port: 8090}),
		service("games", "disabled", map[string]string{LabelEnabled: "false", LabelBackend: "disabled"},
			corev1.ServicePort{Port: 8078}),
		service("games", "no-ports", map[string]string{LabelEnabled: "true", LabelBackend: "no-ports"}),
		service("games", "bad-port-label", map[string]string{LabelEnabled: "true", LabelBackend: "bad-port", LabelPort: "missing"},
			corev1.ServicePort{Name: "game", Port: 8078}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resolver, err := NewK8sResolver(ctx, clientset, "games")
	require.NoError(t, err)

	tests := []struct {
		name       string
		backend    string
		expected   string
		shouldFail bool
	}{
		{name: "default backend uses the first port", backend: "", expected: "reoserv.games.svc.cluster.local:8078"},
		{name: "named backend with named port", backend: "test", expected: "reoserv-test.games.svc.cluster.local:8079"},
		{name: "named backend with numbered port", backend: "numbered", expected: "numbered.games.svc.cluster.local:8090"},
		{name: "disabled service is skipped", backend: "disabled", shouldFail: true},
		{name: "service without ports is skipped", backend: "no-ports", shouldFail: true},
		{name: "port label matching nothing is skipped", backend: "bad-port", shouldFail: true},
		{name: "unknown backend", backend: "missing", shouldFail: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := require.New(t)

			addr, err := resolver.Resolve(context.Background(), core.RoutingMetadata{core.MetadataBackend: test.backend})
			if test.shouldFail {
				c.Error(err)
				return
			}
			c.NoError(err)
			c.Equal(test.expected, addr)
		})
	}
}

func Test_K8sResolver_DeterministicChoice(t *testing.T) {
	c := require.New(t)

	clientset := fake.NewSimpleClientset(
		service("zeta", "reoserv", map[string]string{LabelEnabled: "true"}, corev1.ServicePort{Port: 8078}),
		service("alpha", "reoserv-b", map[string]string{LabelEnabled: "true"}, corev1.ServicePort{Port: 8078}),
		service("alpha", "reoserv-a", map[string]string{LabelEnabled: "true"}, corev1.ServicePort{Port: 8078}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resolver, err := NewK8sResolver(ctx, clientset, "")
	c.NoError(err)

	for i := 0; i < 5; i++ {
		addr, err := resolver.Resolve(context.Background(), core.RoutingMetadata{})
		c.NoError(err)
		c.Equal("reoserv-a.alpha.svc.cluster.local:8078", addr)
	}
}
