package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPercentile(t *testing.T) {
	samples := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	require.Equal(t, time.Duration(1), percentile(samples, 0))
	require.Equal(t, time.Duration(5), percentile(samples, 50))
	require.Equal(t, time.Duration(10), percentile(samples, 100))
	require.Zero(t, percentile(nil, 50))
}

func TestComputeStatsSortsSamples(t *testing.T) {
	s := computeStats(time.Second, []time.Duration{30, 10, 20}, 1)
	require.Equal(t, 3, s.ops)
	require.EqualValues(t, 1, s.failures)
	require.Equal(t, time.Duration(20), s.p50)
	require.InDelta(t, 3.0, s.opsPerS, 0.001)
}

func TestWriteStats(t *testing.T) {
	var buf bytes.Buffer
	writeStats(&buf, "access", computeStats(2*time.Second, []time.Duration{time.Millisecond, 3 * time.Millisecond}, 0))
	require.Contains(t, buf.String(), "access  ops=2 failures=0")
	require.Contains(t, buf.String(), "throughput=1/s")
	require.Contains(t, buf.String(), "p50=1ms")
}

func TestRunSmall(t *testing.T) {
	err := run(context.Background(), cli{Sessions: 3, Concurrency: 4, Ops: 50, Prefix: "lt"})
	require.NoError(t, err)

	require.Error(t, run(context.Background(), cli{Sessions: 0, Concurrency: 1, Ops: 1}))
}
