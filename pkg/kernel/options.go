package kernel

import (
	"github.com/kgantsov/rtos/pkg/metrics"
	"github.com/kgantsov/rtos/pkg/trace"
)

type Config struct {
	MaxPriorities  uint
	MaxTaskNameLen int
	TimeSlicing    bool
	IdleTaskName   string
}

func DefaultConfig() Config {
	return Config{
		MaxPriorities:  5,
		MaxTaskNameLen: 16,
		TimeSlicing:    true,
		IdleTaskName:   "IDLE",
	}
}

type Option func(s *Scheduler)

func WithMetrics(m *metrics.PrometheusMetrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

func WithStats(stats *metrics.SchedulerStats) Option {
	return func(s *Scheduler) {
		s.stats = stats
	}
}

func WithRecorder(r trace.Recorder) Option {
	return func(s *Scheduler) {
		s.recorder = r
	}
}

// WithInitialTick starts the tick count at tick instead of zero.
func WithInitialTick(tick Tick) Option {
	return func(s *Scheduler) {
		s.tickCount = tick
	}
}
