package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func Test_Metrics_Recording(t *testing.T) {
	c := require.New(t)

	m := New()

	m.Connection(ResultAccepted)
	m.Connection(ResultAccepted)
	m.Connection(ResultHandshakeFailed)
	c.Equal(2.0, testutil.ToFloat64(m.connectionsTotal.WithLabelValues(ResultAccepted)))
	c.Equal(1.0, testutil.ToFloat64(m.connectionsTotal.WithLabelValues(ResultHandshakeFailed)))

	m.Forwarded(DirectionBackendToClient, 3)
	m.Forwarded(DirectionBackendToClient, 5)
	c.Equal(2.0, testutil.ToFloat64(m.messagesTotal.WithLabelValues(DirectionBackendToClient)))
	c.Equal(8.0, testutil.ToFloat64(m.bytesTotal.WithLabelValues(DirectionBackendToClient)))

	done := m.BridgeStarted()
	c.Equal(1.0, testutil.ToFloat64(m.bridgesActive))
	done()
	c.Equal(0.0, testutil.ToFloat64(m.bridgesActive))
}

func Test_Metrics_Nil(t *testing.T) {
	var m *Metrics

	require.NotPanics(t, func() {
		m.Connection(ResultAccepted)
		m.Forwarded(DirectionClientToBackend, 10)
		m.BridgeStarted()()
	})
}

func Test_Metrics_Handler(t *testing.T) {
	c := require.New(t)

	m := New()
	m.Connection(ResultBackendUnavailable)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	c.Equal(http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	c.NoError(err)
	c.Contains(string(body), `eo_proxy_connections_total{result="backend_unavailable"} 1`)
	c.Contains(string(body), "eo_proxy_bridges_active 0")
}
