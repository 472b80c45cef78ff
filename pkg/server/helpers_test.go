package server

import (
	"testing"

	"github.com/stretchr/testify/require"

	dto "github.com/prometheus/client_model/go"

	"github.com/recera/netgraph/pkg/metrics"
)

func counterValue(t *testing.T, reg *metrics.Registry, labels ...string) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, reg.HTTPRequestsTotal.WithLabelValues(labels...).Write(m))
	return m.GetCounter().GetValue()
}
