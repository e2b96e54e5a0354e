package perf

import (
	"context"
	"testing"
	"time"

	"github.com/driftwatch/driftwatch/internal/config"
	"github.com/driftwatch/driftwatch/internal/domain"
)

func TestSamplerStops(t *testing.T) {
	m := NewMonitor(testConfig(), nil)
	s := NewSampler(m, 10*time.Millisecond, nil)
	s.Start(context.Background())
	time.Sleep(60 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}

	before := len(m.MetricValues(domain.MetricResourceUsage))
	time.Sleep(50 * time.Millisecond)
	after := len(m.MetricValues(domain.MetricResourceUsage))
	if after != before {
		t.Errorf("samples kept arriving after Stop: %d -> %d", before, after)
	}
}

func TestSamplerStopIdempotent(t *testing.T) {
	m := NewMonitor(config.Default().Perf, nil)
	s := NewSampler(m, time.Hour, nil)
	s.Start(context.Background())
	s.Stop()
	s.Stop()
}
