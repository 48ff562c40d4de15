package main

import (
	"fmt"
	"io"
	"os"
	"slices"
	"time"
)

// phaseStats summarizes one load phase. Latencies are nearest-rank below.
type phaseStats struct {
	total         time.Duration
	ops           int
	failures      int64
	p50, p95, p99 time.Duration
	opsPerS       float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	s := phaseStats{total: total, failures: failures, ops: len(samples)}
	if s.ops == 0 {
		return s
	}

	slices.Sort(samples)
	s.p50 = percentile(samples, 50)
	s.p95 = percentile(samples, 95)
	s.p99 = percentile(samples, 99)
	if secs := total.Seconds(); secs > 0 {
		s.opsPerS = float64(s.ops) / secs
	}
	return s
}

// percentile expects sorted samples.
func percentile(sorted []time.Duration, p int) time.Duration {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	p = min(max(p, 0), 100)
	return sorted[(n-1)*p/100]
}

func printStats(name string, s phaseStats) {
	writeStats(os.Stdout, name, s)
}

func writeStats(w io.Writer, name string, s phaseStats) {
	us := func(d time.Duration) time.Duration { return d.Round(time.Microsecond) }
	fmt.Fprintf(w, "%-7s ops=%d failures=%d elapsed=%s throughput=%.0f/s latency p50=%s p95=%s p99=%s\n",
		name, s.ops, s.failures, s.total.Round(time.Millisecond), s.opsPerS,
		us(s.p50), us(s.p95), us(s.p99))
}
