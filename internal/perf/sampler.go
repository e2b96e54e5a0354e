package perf

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Sampler periodically reads host CPU and memory pressure and feeds the
// readings to a Monitor.
type Sampler struct {
	monitor  *Monitor
	interval time.Duration
	logger   *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// NewSampler creates a Sampler feeding monitor every interval.
func NewSampler(monitor *Monitor, interval time.Duration, logger *slog.Logger) *Sampler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sampler{
		monitor:  monitor,
		interval: interval,
		logger:   logger.With("component", "resource_sampler"),
	}
}

// Start launches the sampling goroutine. It returns immediately; sampling
// stops when ctx is canceled or Stop is called.
func (s *Sampler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.run(ctx)
}

// Stop cancels sampling and waits for the goroutine to exit.
func (s *Sampler) Stop() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
			<-s.done
		}
	})
}

func (s *Sampler) run(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sample, err := s.read(ctx)
			if err != nil {
				s.logger.Warn("resource sampling failed", "error", err)
				continue
			}
			s.monitor.RecordResourceSample(sample)
		}
	}
}

func (s *Sampler) read(ctx context.Context) (ResourceSample, error) {
	percents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return ResourceSample{}, err
	}
	var cpuPct float64
	if len(percents) > 0 {
		cpuPct = percents[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return ResourceSample{}, err
	}
	return ResourceSample{CPU: cpuPct, Memory: vm.UsedPercent, Timestamp: time.Now()}, nil
}
