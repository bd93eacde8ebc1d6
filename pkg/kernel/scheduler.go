package kernel

import (
	"sort"
	"strconv"

	"github.com/kgantsov/rtos/pkg/critical"
	"github.com/kgantsov/rtos/pkg/errors"
	"github.com/kgantsov/rtos/pkg/list"
	"github.com/kgantsov/rtos/pkg/metrics"
	"github.com/kgantsov/rtos/pkg/trace"
	"github.com/rs/zerolog/log"
)

// Scheduler is a tick driven, priority based preemptive scheduler. It owns
// one ready list per priority, two delayed lists that are swapped when the
// tick count wraps, and the suspended, pending-ready and termination lists.
//
// Exported methods enter the scheduler's critical section. The *Locked
// methods expect the caller to hold it already.
type Scheduler struct {
	cfg Config
	cs  critical.Section

	ready           []list.List[*Task]
	delayedLists    [2]list.List[*Task]
	delayed         *list.List[*Task]
	overflowDelayed *list.List[*Task]
	pendingReady    list.List[*Task]
	suspended       list.List[*Task]
	terminating     list.List[*Task]

	current *Task
	idle    *Task
	tasks   map[uint64]*Task

	tickCount    Tick
	overflows    uint
	nextUnblock  Tick
	topReady     uint
	suspendDepth uint
	pendedTicks  uint
	yieldPending bool
	running      bool
	nextNumber   uint64

	metrics  *metrics.PrometheusMetrics
	stats    *metrics.SchedulerStats
	recorder trace.Recorder
}

func NewScheduler(cfg Config, cs critical.Section, opts ...Option) *Scheduler {
	if cfg.MaxPriorities == 0 {
		cfg.MaxPriorities = 1
	}
	if cfg.MaxTaskNameLen <= 0 {
		cfg.MaxTaskNameLen = DefaultConfig().MaxTaskNameLen
	}
	if cfg.IdleTaskName == "" {
		cfg.IdleTaskName = DefaultConfig().IdleTaskName
	}

	s := &Scheduler{
		cfg:         cfg,
		cs:          cs,
		ready:       make([]list.List[*Task], cfg.MaxPriorities),
		tasks:       make(map[uint64]*Task),
		nextUnblock: MaxDelay,
		recorder:    trace.NopRecorder{},
	}

	for i := range s.ready {
		s.ready[i].Init()
	}
	s.delayedLists[0].Init()
	s.delayedLists[1].Init()
	s.delayed = &s.delayedLists[0]
	s.overflowDelayed = &s.delayedLists[1]
	s.pendingReady.Init()
	s.suspended.Init()
	s.terminating.Init()

	for _, opt := range opts {
		opt(s)
	}

	s.idle = s.newTask(cfg.IdleTaskName, 0, idleStep)

	s.enter()
	defer s.exit()

	s.register(s.idle)

	return s
}

func idleStep(s *Scheduler, t *Task) {
	s.ReapTerminated()
}

func (s *Scheduler) enter() {
	s.cs.Enter()
}

func (s *Scheduler) exit() {
	s.updateGauges()
	s.cs.Exit()
}

// Critical returns the section guarding the scheduler's lists.
func (s *Scheduler) Critical() critical.Section {
	return s.cs
}

func (s *Scheduler) Config() Config {
	return s.cfg
}

func (s *Scheduler) newTask(name string, priority uint, step StepFunc) *Task {
	if len(name) > s.cfg.MaxTaskNameLen {
		name = name[:s.cfg.MaxTaskNameLen]
	}

	t := &Task{name: name, priority: priority, step: step}
	t.stateNode.Init(t)
	t.eventNode.Init(t)
	t.eventNode.SetValue(s.eventKey(priority))
	return t
}

// eventKey ranks higher priorities lower so they sort to the head of a
// wait list.
func (s *Scheduler) eventKey(priority uint) list.Key {
	return list.Key(s.cfg.MaxPriorities - priority)
}

func (s *Scheduler) register(t *Task) {
	s.nextNumber++
	t.number = s.nextNumber
	s.tasks[t.number] = t
	s.addToReady(t)

	log.Debug().
		Str("task", t.name).
		Uint64("number", t.number).
		Uint("priority", t.priority).
		Msg("Task created")
	s.record(trace.KindCreate, t, "")
}

func (s *Scheduler) addToReady(t *Task) {
	s.ready[t.priority].InsertAtEnd(&t.stateNode)
	if t.priority > s.topReady {
		s.topReady = t.priority
	}
}

func (s *Scheduler) record(kind trace.Kind, t *Task, detail string) {
	ev := trace.Event{
		Tick:       uint32(s.tickCount),
		Kind:       kind,
		Task:       t.name,
		TaskNumber: t.number,
		Priority:   t.priority,
		Detail:     detail,
	}
	if err := s.recorder.Record(ev); err != nil {
		log.Warn().Err(err).Str("kind", string(kind)).Msg("Failed to record trace event")
	}
}

func (s *Scheduler) wake(t *Task, reason string) {
	log.Trace().Str("task", t.name).Str("reason", reason).Uint32("tick", uint32(s.tickCount)).Msg("Task woken")
	s.record(trace.KindWake, t, reason)

	if s.metrics != nil {
		s.metrics.WakeTotal.WithLabelValues(reason).Inc()
	}
	if s.stats != nil {
		s.stats.IncrementWake()
	}
}

func (s *Scheduler) block(t *Task, reason string) {
	if s.metrics != nil {
		s.metrics.BlockTotal.WithLabelValues(reason).Inc()
	}
	if s.stats != nil {
		s.stats.IncrementBlock()
	}
}

func (s *Scheduler) updateGauges() {
	if s.metrics == nil {
		return
	}

	for p := range s.ready {
		s.metrics.ReadyTasks.WithLabelValues(strconv.Itoa(p)).Set(float64(s.ready[p].Len()))
	}
	s.metrics.DelayedTasks.Set(float64(s.delayed.Len() + s.overflowDelayed.Len()))
	s.metrics.SuspendedTasks.Set(float64(s.suspended.Len()))
	s.metrics.Tasks.Set(float64(len(s.tasks)))
}

// CreateTask creates a task and makes it ready.
func (s *Scheduler) CreateTask(name string, priority uint, step StepFunc) (*Task, error) {
	if priority >= s.cfg.MaxPriorities {
		return nil, errors.ErrInvalidPriority
	}

	t := s.newTask(name, priority, step)

	s.enter()
	defer s.exit()

	s.register(t)

	if s.running && s.current != nil && priority > s.current.priority {
		s.yieldPending = true
	}

	return t, nil
}

// Start selects the first task to run.
func (s *Scheduler) Start() {
	s.enter()
	defer s.exit()

	s.running = true
	s.switchContext()

	log.Info().Str("task", s.current.name).Msg("Scheduler started")
}

func (s *Scheduler) Running() bool {
	s.enter()
	defer s.exit()

	return s.running
}

// DeleteTask removes t from every list it occupies. A nil t deletes the
// current task, which then waits on the termination list until the idle
// task reaps it.
func (s *Scheduler) DeleteTask(t *Task) error {
	s.enter()
	defer s.exit()

	if t == nil {
		if s.current == nil {
			return errors.ErrSchedulerNotStarted
		}
		t = s.current
	}
	if t.deleted {
		return errors.ErrTaskDeleted
	}
	if t == s.idle {
		return errors.ErrIdleTask
	}

	if t.stateNode.Linked() {
		t.stateNode.Unlink()
	}
	if t.eventNode.Linked() {
		t.eventNode.Unlink()
	}

	t.deleted = true
	delete(s.tasks, t.number)

	if t == s.current {
		s.terminating.InsertAtEnd(&t.stateNode)
		s.yieldPending = true
	}
	s.resetNextUnblock()

	log.Debug().Str("task", t.name).Uint64("number", t.number).Msg("Task deleted")
	s.record(trace.KindDelete, t, "")

	return nil
}

// ReapTerminated drops self-deleted tasks from the termination list.
func (s *Scheduler) ReapTerminated() int {
	s.enter()
	defer s.exit()

	reaped := 0
	for !s.terminating.Empty() {
		t := s.terminating.HeadOwner()
		if t == s.current {
			break
		}
		s.terminating.Remove(&t.stateNode)
		reaped++
	}
	return reaped
}

func (s *Scheduler) checkCurrent() error {
	if !s.running || s.current == nil {
		return errors.ErrSchedulerNotStarted
	}
	if s.current.deleted {
		return errors.ErrTaskDeleted
	}
	if s.current == s.idle {
		return errors.ErrIdleTask
	}
	return nil
}

// addCurrentToDelayed moves the current task out of its ready list. With
// canBlockIndefinitely and MaxDelay it goes to the suspended list.
func (s *Scheduler) addCurrentToDelayed(ticksToWait Tick, canBlockIndefinitely bool) {
	cur := s.current
	cur.stateNode.Unlink()

	if ticksToWait == MaxDelay && canBlockIndefinitely {
		s.suspended.InsertAtEnd(&cur.stateNode)
		s.block(cur, "event")
		return
	}

	wake := s.tickCount + ticksToWait
	cur.stateNode.SetValue(list.Key(wake))

	if wake < s.tickCount {
		s.overflowDelayed.InsertSorted(&cur.stateNode)
	} else {
		s.delayed.InsertSorted(&cur.stateNode)
		if wake < s.nextUnblock {
			s.nextUnblock = wake
		}
	}
	s.block(cur, "delay")
}

func (s *Scheduler) resetNextUnblock() {
	if s.delayed.Empty() {
		s.nextUnblock = MaxDelay
		return
	}
	s.nextUnblock = Tick(s.delayed.HeadValue())
}

// Delay blocks the current task for ticks ticks. Zero only yields.
func (s *Scheduler) Delay(ticks Tick) error {
	s.enter()
	defer s.exit()

	if err := s.checkCurrent(); err != nil {
		return err
	}

	if ticks > 0 {
		s.addCurrentToDelayed(ticks, false)
		s.record(trace.KindDelay, s.current, strconv.FormatUint(uint64(ticks), 10))
	}
	s.yieldPending = true

	return nil
}

// DelayUntil blocks the current task until *prevWake + increment and stores
// that tick back into prevWake, giving a fixed period independent of how
// long the task ran. It reports whether the task was delayed.
func (s *Scheduler) DelayUntil(prevWake *Tick, increment Tick) (bool, error) {
	s.enter()
	defer s.exit()

	if err := s.checkCurrent(); err != nil {
		return false, err
	}

	now := s.tickCount
	timeToWake := *prevWake + increment

	var shouldDelay bool
	if now < *prevWake {
		// The tick count wrapped since prevWake.
		shouldDelay = timeToWake < *prevWake && timeToWake > now
	} else {
		shouldDelay = timeToWake < *prevWake || timeToWake > now
	}

	*prevWake = timeToWake

	if shouldDelay {
		s.addCurrentToDelayed(timeToWake-now, false)
		s.record(trace.KindDelay, s.current, strconv.FormatUint(uint64(timeToWake-now), 10))
	}
	s.yieldPending = true

	return shouldDelay, nil
}

// Yield gives up the rest of the current time slice.
func (s *Scheduler) Yield() {
	s.enter()
	defer s.exit()

	s.yieldPending = true
}

func (s *Scheduler) YieldPending() bool {
	s.enter()
	defer s.exit()

	return s.yieldPending
}

// Suspend moves t (the current task when nil) to the suspended list,
// cancelling any delay or event wait.
func (s *Scheduler) Suspend(t *Task) error {
	s.enter()
	defer s.exit()

	if t == nil {
		if s.current == nil {
			return errors.ErrSchedulerNotStarted
		}
		t = s.current
	}
	if t.deleted {
		return errors.ErrTaskDeleted
	}
	if t == s.idle {
		return errors.ErrIdleTask
	}
	if s.isSuspended(t) {
		return nil
	}

	t.stateNode.Unlink()
	if t.eventNode.Linked() {
		t.eventNode.Unlink()
	}
	s.suspended.InsertAtEnd(&t.stateNode)
	s.block(t, "suspend")

	if t == s.current {
		s.yieldPending = true
	}
	s.resetNextUnblock()

	log.Debug().Str("task", t.name).Msg("Task suspended")
	s.record(trace.KindSuspend, t, "")

	return nil
}

// isSuspended is true for explicitly suspended tasks, not for tasks blocked
// on an event without timeout.
func (s *Scheduler) isSuspended(t *Task) bool {
	return s.suspended.Contains(&t.stateNode) && !t.eventNode.Linked()
}

// Resume makes a suspended task ready again.
func (s *Scheduler) Resume(t *Task) error {
	s.enter()
	defer s.exit()

	_, err := s.resume(t, true)
	return err
}

// ResumeFromISR resumes t without requesting a yield. It reports whether
// the caller should switch context. While the scheduler is suspended the
// task is parked on the pending-ready list.
func (s *Scheduler) ResumeFromISR(t *Task) (bool, error) {
	s.enter()
	defer s.exit()

	return s.resume(t, false)
}

func (s *Scheduler) resume(t *Task, yield bool) (bool, error) {
	if t.deleted {
		return false, errors.ErrTaskDeleted
	}
	if t == s.current || !s.isSuspended(t) {
		return false, errors.ErrNotSuspended
	}

	required := false
	if s.suspendDepth > 0 && !yield {
		s.pendingReady.InsertAtEnd(&t.eventNode)
	} else {
		s.suspended.Remove(&t.stateNode)
		s.addToReady(t)
		required = s.current != nil && t.priority >= s.current.priority
		if required && yield {
			s.yieldPending = true
		}
	}
	s.wake(t, "resume")

	log.Debug().Str("task", t.name).Msg("Task resumed")
	s.record(trace.KindResume, t, "")

	return required, nil
}

// SetPriority changes the priority of t (the current task when nil).
func (s *Scheduler) SetPriority(t *Task, priority uint) error {
	if priority >= s.cfg.MaxPriorities {
		return errors.ErrInvalidPriority
	}

	s.enter()
	defer s.exit()

	if t == nil {
		if s.current == nil {
			return errors.ErrSchedulerNotStarted
		}
		t = s.current
	}
	if t.deleted {
		return errors.ErrTaskDeleted
	}

	old := t.priority
	if old == priority {
		return nil
	}
	t.priority = priority

	if l := t.eventNode.Container(); l != nil && l != &s.pendingReady {
		l.Remove(&t.eventNode)
		t.eventNode.SetValue(s.eventKey(priority))
		l.InsertSorted(&t.eventNode)
	} else {
		t.eventNode.SetValue(s.eventKey(priority))
	}

	if s.ready[old].Contains(&t.stateNode) {
		s.ready[old].Remove(&t.stateNode)
		s.addToReady(t)
	}

	if s.current != nil {
		if t != s.current && priority > s.current.priority {
			s.yieldPending = true
		}
		if t == s.current && priority < old {
			s.yieldPending = true
		}
	}

	return nil
}

func (s *Scheduler) State(t *Task) TaskState {
	s.enter()
	defer s.exit()

	return s.state(t)
}

func (s *Scheduler) state(t *Task) TaskState {
	if t.deleted {
		return Deleted
	}
	if t == s.current {
		return Running
	}
	if s.pendingReady.Contains(&t.eventNode) {
		return Ready
	}

	switch c := t.stateNode.Container(); {
	case c == &s.ready[t.priority]:
		return Ready
	case c == s.delayed || c == s.overflowDelayed:
		return Blocked
	case c == &s.suspended:
		if t.eventNode.Linked() {
			return Blocked
		}
		return Suspended
	}
	return Deleted
}

// Tick advances the tick count and wakes every task whose delay expired. It
// reports whether a context switch is required.
func (s *Scheduler) Tick() bool {
	s.enter()
	defer s.exit()

	if s.metrics != nil {
		s.metrics.TickTotal.Inc()
	}
	if s.stats != nil {
		s.stats.IncrementTick()
	}

	if s.suspendDepth > 0 {
		s.pendedTicks++
		return false
	}

	return s.incrementTick()
}

func (s *Scheduler) incrementTick() bool {
	s.tickCount++
	if s.tickCount == 0 {
		s.switchDelayedLists()
	}

	switchRequired := false

	if s.tickCount >= s.nextUnblock {
		for {
			if s.delayed.Empty() {
				s.nextUnblock = MaxDelay
				break
			}

			wake := Tick(s.delayed.HeadValue())
			if s.tickCount < wake {
				s.nextUnblock = wake
				break
			}

			t := s.delayed.HeadOwner()
			s.delayed.Remove(&t.stateNode)
			reason := "timeout"
			if t.eventNode.Linked() {
				t.eventNode.Unlink()
				reason = "event_timeout"
			}
			s.addToReady(t)
			s.wake(t, reason)

			if s.current != nil && t.priority >= s.current.priority {
				switchRequired = true
			}
		}
	}

	if s.cfg.TimeSlicing && s.current != nil && s.ready[s.current.priority].Len() > 1 {
		switchRequired = true
	}

	if s.yieldPending {
		switchRequired = true
	}

	return switchRequired
}

func (s *Scheduler) switchDelayedLists() {
	if !s.delayed.Empty() {
		log.Error().Uint("tasks", s.delayed.Len()).Msg("Delayed list not empty when the tick count wrapped")
	}

	s.delayed, s.overflowDelayed = s.overflowDelayed, s.delayed
	s.overflows++
	s.resetNextUnblock()
}

// SwitchContext makes the next task of the highest non-empty priority
// current, round robin among tasks of equal priority.
func (s *Scheduler) SwitchContext() {
	s.enter()
	defer s.exit()

	s.switchContext()
}

func (s *Scheduler) switchContext() {
	if s.suspendDepth > 0 {
		s.yieldPending = true
		return
	}
	s.yieldPending = false

	// The idle task never leaves ready list 0.
	for s.ready[s.topReady].Empty() {
		s.topReady--
	}

	prev := s.current
	s.current = s.ready[s.topReady].NextOwner()

	if prev != s.current {
		log.Trace().Str("task", s.current.name).Uint32("tick", uint32(s.tickCount)).Msg("Switched in")
		s.record(trace.KindSwitch, s.current, "")

		if s.metrics != nil {
			s.metrics.ContextSwitchTotal.Inc()
		}
		if s.stats != nil {
			s.stats.IncrementSwitch()
		}
	}
}

// SuspendAll stops context switches until the matching ResumeAll. Ticks
// arriving meanwhile are counted and replayed later. Calls nest.
func (s *Scheduler) SuspendAll() {
	s.enter()
	defer s.exit()

	s.suspendDepth++
}

// ResumeAll undoes one SuspendAll. When the last one is undone, tasks
// readied in between are moved to their ready lists and pended ticks are
// processed. It reports whether a context switch is required.
func (s *Scheduler) ResumeAll() bool {
	s.enter()
	defer s.exit()

	if s.suspendDepth == 0 {
		return false
	}
	s.suspendDepth--
	if s.suspendDepth > 0 {
		return false
	}

	moved := false
	for !s.pendingReady.Empty() {
		t := s.pendingReady.HeadOwner()
		s.pendingReady.Remove(&t.eventNode)
		t.stateNode.Unlink()
		s.addToReady(t)
		moved = true

		if s.current != nil && t.priority >= s.current.priority {
			s.yieldPending = true
		}
	}
	if moved {
		s.resetNextUnblock()
	}

	for ; s.pendedTicks > 0; s.pendedTicks-- {
		if s.incrementTick() {
			s.yieldPending = true
		}
	}

	return s.yieldPending
}

// PlaceOnEventListLocked blocks the current task on eventList, ordered by
// priority, for at most ticksToWait ticks (MaxDelay waits forever).
func (s *Scheduler) PlaceOnEventListLocked(eventList *list.List[*Task], ticksToWait Tick) error {
	critical.MustHold(s.cs)

	if err := s.checkCurrent(); err != nil {
		return err
	}

	cur := s.current
	eventList.InsertSorted(&cur.eventNode)
	s.addCurrentToDelayed(ticksToWait, true)
	s.yieldPending = true

	s.record(trace.KindBlock, cur, strconv.FormatUint(uint64(ticksToWait), 10))

	return nil
}

// RemoveFromEventListLocked wakes the highest priority task waiting on
// eventList. It reports whether that task has a higher priority than the
// current one.
func (s *Scheduler) RemoveFromEventListLocked(eventList *list.List[*Task]) bool {
	critical.MustHold(s.cs)

	if eventList.Empty() {
		return false
	}

	t := eventList.HeadOwner()
	eventList.Remove(&t.eventNode)

	if s.suspendDepth == 0 {
		t.stateNode.Unlink()
		s.addToReady(t)
		s.resetNextUnblock()
	} else {
		s.pendingReady.InsertAtEnd(&t.eventNode)
	}
	s.wake(t, "event")

	if s.current != nil && t.priority > s.current.priority {
		s.yieldPending = true
		return true
	}
	return false
}

func (s *Scheduler) Current() *Task {
	s.enter()
	defer s.exit()

	return s.current
}

func (s *Scheduler) Idle() *Task {
	return s.idle
}

func (s *Scheduler) TickCount() Tick {
	s.enter()
	defer s.exit()

	return s.tickCount
}

func (s *Scheduler) TaskCount() int {
	s.enter()
	defer s.exit()

	return len(s.tasks)
}

// Task looks a live task up by number.
func (s *Scheduler) Task(number uint64) (*Task, error) {
	s.enter()
	defer s.exit()

	t, ok := s.tasks[number]
	if !ok {
		return nil, errors.ErrTaskNotFound
	}
	return t, nil
}

// Tasks returns the live tasks ordered by number.
func (s *Scheduler) Tasks() []*Task {
	s.enter()
	defer s.exit()

	tasks := make([]*Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].number < tasks[j].number })
	return tasks
}

// NextWake returns the task with the earliest wake tick in the delayed
// list.
func (s *Scheduler) NextWake() (*Task, Tick, bool) {
	s.enter()
	defer s.exit()

	if s.delayed.Empty() {
		return nil, 0, false
	}
	t := s.delayed.HeadOwner()
	return t, Tick(t.stateNode.Value()), true
}
