package sim

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kgantsov/rtos/pkg/config"
	"github.com/kgantsov/rtos/pkg/errors"
	"github.com/kgantsov/rtos/pkg/kernel"
	"github.com/kgantsov/rtos/pkg/metrics"
	"github.com/kgantsov/rtos/pkg/queue"
	"github.com/rs/zerolog/log"
)

const defaultQueueLength = 8

// TaskInfo is a task status enriched with what the simulator knows about
// the task's workload.
type TaskInfo struct {
	kernel.TaskStatus
	Kind string
	Runs uint64
}

// Simulator drives a scheduler from a wall clock ticker. On every tick it
// advances the tick count, switches context when required and runs one
// step of the current task.
type Simulator struct {
	s      *kernel.Scheduler
	period time.Duration

	maxTicks uint64
	steps    atomic.Uint64

	mu        sync.RWMutex
	workloads map[uint64]workload
	queues    map[string]*queue.Queue[uint64]

	metrics *metrics.PrometheusMetrics
	stats   *metrics.SchedulerStats
}

type Option func(sim *Simulator)

// WithMaxTicks stops Run after ticks ticks.
func WithMaxTicks(ticks uint64) Option {
	return func(sim *Simulator) {
		sim.maxTicks = ticks
	}
}

// WithMetrics exports the gauges of queues created by the simulator.
func WithMetrics(m *metrics.PrometheusMetrics) Option {
	return func(sim *Simulator) {
		sim.metrics = m
	}
}

func WithStats(stats *metrics.SchedulerStats) Option {
	return func(sim *Simulator) {
		sim.stats = stats
	}
}

func New(s *kernel.Scheduler, period time.Duration, opts ...Option) *Simulator {
	sim := &Simulator{
		s:         s,
		period:    period,
		workloads: make(map[uint64]workload),
		queues:    make(map[string]*queue.Queue[uint64]),
	}

	for _, opt := range opts {
		opt(sim)
	}

	return sim
}

func (sim *Simulator) Scheduler() *kernel.Scheduler {
	return sim.s
}

// Load creates the queues and tasks described by cfg. Without tasks a
// default workload is used.
func (sim *Simulator) Load(cfg config.SimConfig) error {
	if len(cfg.Tasks) == 0 {
		cfg = DefaultWorkload()
	}

	for _, q := range cfg.Queues {
		if err := sim.CreateQueue(q.Name, q.Length); err != nil {
			return err
		}
	}

	for _, t := range cfg.Tasks {
		if _, err := sim.CreateTask(t); err != nil {
			log.Error().Err(err).Str("task", t.Name).Msg("Failed to create task")
			return err
		}
	}

	return nil
}

// DefaultWorkload has two periodic tasks at different rates and a
// producer/consumer pair sharing a queue.
func DefaultWorkload() config.SimConfig {
	return config.SimConfig{
		Queues: []config.QueueConfig{
			{Name: "jobs", Length: 4},
		},
		Tasks: []config.TaskConfig{
			{Name: "blink", Kind: KindPeriodic, Priority: 1, Period: 500},
			{Name: "sensor", Kind: KindPeriodic, Priority: 2, Period: 100},
			{Name: "producer", Kind: KindProducer, Priority: 1, Period: 50, Queue: "jobs", Timeout: 20},
			{Name: "consumer", Kind: KindConsumer, Priority: 3, Queue: "jobs"},
		},
	}
}

func (sim *Simulator) CreateQueue(name string, length uint) error {
	if length == 0 {
		length = defaultQueueLength
	}

	sim.mu.Lock()
	defer sim.mu.Unlock()

	if _, ok := sim.queues[name]; ok {
		return errors.ErrQueueExists
	}

	var opts []queue.Option
	if sim.metrics != nil {
		opts = append(opts, queue.WithMetrics(sim.metrics))
	}

	q, err := queue.New[uint64](sim.s, name, length, opts...)
	if err != nil {
		return err
	}
	sim.queues[name] = q

	return nil
}

// DeleteQueue fails while tasks wait on the queue or while a producer or
// consumer task still uses it.
func (sim *Simulator) DeleteQueue(name string) error {
	sim.mu.Lock()
	defer sim.mu.Unlock()

	q, ok := sim.queues[name]
	if !ok {
		return errors.ErrQueueNotFound
	}
	for _, w := range sim.workloads {
		if w.queue() == name {
			return errors.ErrQueueInUse
		}
	}
	if err := q.Delete(); err != nil {
		return err
	}
	delete(sim.queues, name)

	return nil
}

func (sim *Simulator) Queues() []queue.Info {
	sim.mu.RLock()
	defer sim.mu.RUnlock()

	infos := make([]queue.Info, 0, len(sim.queues))
	for _, q := range sim.queues {
		infos = append(infos, q.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

func (sim *Simulator) Queue(name string) (queue.Info, error) {
	sim.mu.RLock()
	defer sim.mu.RUnlock()

	q, ok := sim.queues[name]
	if !ok {
		return queue.Info{}, errors.ErrQueueNotFound
	}
	return q.Info(), nil
}

func timeout(ticks uint32) kernel.Tick {
	if ticks == 0 {
		return kernel.MaxDelay
	}
	return kernel.Tick(ticks)
}

func (sim *Simulator) newWorkload(cfg config.TaskConfig) (workload, error) {
	switch cfg.Kind {
	case KindPeriodic, "":
		if cfg.Period == 0 {
			return nil, errors.ErrInvalidPeriod
		}
		return newPeriodic(kernel.Tick(cfg.Period)), nil
	case KindProducer, KindConsumer:
		q, ok := sim.queues[cfg.Queue]
		if !ok {
			return nil, errors.ErrQueueNotFound
		}
		if cfg.Kind == KindProducer {
			return newProducer(q, kernel.Tick(cfg.Period), timeout(cfg.Timeout)), nil
		}
		return newConsumer(q, timeout(cfg.Timeout)), nil
	}
	return nil, errors.ErrUnknownTaskKind
}

// CreateTask creates a task running the workload described by cfg. A
// timeout of zero makes producers and consumers wait forever.
func (sim *Simulator) CreateTask(cfg config.TaskConfig) (TaskInfo, error) {
	sim.mu.Lock()
	defer sim.mu.Unlock()

	w, err := sim.newWorkload(cfg)
	if err != nil {
		return TaskInfo{}, err
	}

	t, err := sim.s.CreateTask(cfg.Name, cfg.Priority, w.step)
	if err != nil {
		return TaskInfo{}, err
	}
	sim.workloads[t.Number()] = w

	log.Info().
		Str("task", t.Name()).
		Str("kind", w.kind()).
		Uint("priority", t.Priority()).
		Msg("Task created")

	return sim.info(t), nil
}

func (sim *Simulator) info(t *kernel.Task) TaskInfo {
	info := TaskInfo{TaskStatus: sim.s.TaskStatus(t), Kind: "idle"}
	if w, ok := sim.workloads[t.Number()]; ok {
		info.Kind = w.kind()
		info.Runs = w.runs()
	}
	return info
}

func (sim *Simulator) Tasks() []TaskInfo {
	sim.mu.RLock()
	defer sim.mu.RUnlock()

	tasks := sim.s.Tasks()
	infos := make([]TaskInfo, 0, len(tasks))
	for _, t := range tasks {
		infos = append(infos, sim.info(t))
	}
	return infos
}

func (sim *Simulator) Task(number uint64) (TaskInfo, error) {
	t, err := sim.s.Task(number)
	if err != nil {
		return TaskInfo{}, err
	}

	sim.mu.RLock()
	defer sim.mu.RUnlock()

	return sim.info(t), nil
}

func (sim *Simulator) DeleteTask(number uint64) error {
	t, err := sim.s.Task(number)
	if err != nil {
		return err
	}
	if err := sim.s.DeleteTask(t); err != nil {
		return err
	}

	sim.mu.Lock()
	delete(sim.workloads, number)
	sim.mu.Unlock()

	return nil
}

func (sim *Simulator) SuspendTask(number uint64) error {
	t, err := sim.s.Task(number)
	if err != nil {
		return err
	}
	return sim.s.Suspend(t)
}

func (sim *Simulator) ResumeTask(number uint64) error {
	t, err := sim.s.Task(number)
	if err != nil {
		return err
	}
	return sim.s.Resume(t)
}

func (sim *Simulator) SetTaskPriority(number uint64, priority uint) error {
	t, err := sim.s.Task(number)
	if err != nil {
		return err
	}
	return sim.s.SetPriority(t, priority)
}

func (sim *Simulator) Snapshot() kernel.Snapshot {
	return sim.s.Snapshot()
}

// Rates returns per-second scheduler event rates, zero without stats.
func (sim *Simulator) Rates() metrics.Stats {
	if sim.stats == nil {
		return metrics.Stats{}
	}
	return *sim.stats.GetRates()
}

// Steps returns how many ticks the simulator has driven.
func (sim *Simulator) Steps() uint64 {
	return sim.steps.Load()
}

// Step processes one tick and runs the current task once.
func (sim *Simulator) Step() {
	if sim.s.Tick() {
		sim.s.SwitchContext()
	}

	if t := sim.s.Current(); t != nil {
		if step := t.Step(); step != nil {
			step(sim.s, t)
		}
	}

	if sim.s.YieldPending() {
		sim.s.SwitchContext()
	}

	sim.steps.Add(1)
}

// Run starts the scheduler and steps it once per period until ctx is done
// or the tick limit is reached.
func (sim *Simulator) Run(ctx context.Context) error {
	if !sim.s.Running() {
		sim.s.Start()
	}

	log.Info().
		Dur("tick", sim.period).
		Int("tasks", sim.s.TaskCount()).
		Msg("Simulation started")

	ticker := time.NewTicker(sim.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Uint64("ticks", sim.Steps()).Msg("Simulation stopped")
			return nil
		case <-ticker.C:
			sim.Step()

			if sim.maxTicks > 0 && sim.Steps() >= sim.maxTicks {
				log.Info().Uint64("ticks", sim.Steps()).Msg("Simulation finished")
				return nil
			}
		}
	}
}
