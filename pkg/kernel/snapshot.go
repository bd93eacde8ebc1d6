package kernel

// TaskStatus describes a task at the time it was taken.
type TaskStatus struct {
	Number   uint64
	Name     string
	State    TaskState
	Priority uint
	// WakeTick is set for tasks blocked with a timeout.
	WakeTick Tick
	Waiting  bool
}

// Snapshot describes list occupancy at the time it was taken.
type Snapshot struct {
	Tick               Tick
	Current            string
	Ready              []uint
	Delayed            uint
	OverflowDelayed    uint
	Suspended          uint
	PendingReady       uint
	Terminating        uint
	NextUnblock        Tick
	SchedulerSuspended bool
}

func (s *Scheduler) TaskStatus(t *Task) TaskStatus {
	s.enter()
	defer s.exit()

	return s.taskStatus(t)
}

func (s *Scheduler) taskStatus(t *Task) TaskStatus {
	status := TaskStatus{
		Number:   t.number,
		Name:     t.name,
		State:    s.state(t),
		Priority: t.priority,
		Waiting:  t.eventNode.Linked(),
	}

	if c := t.stateNode.Container(); c == s.delayed || c == s.overflowDelayed {
		status.WakeTick = Tick(t.stateNode.Value())
	}
	return status
}

// TaskStatuses returns the status of every live task ordered by number.
func (s *Scheduler) TaskStatuses() []TaskStatus {
	tasks := s.Tasks()

	s.enter()
	defer s.exit()

	statuses := make([]TaskStatus, 0, len(tasks))
	for _, t := range tasks {
		if t.deleted {
			continue
		}
		statuses = append(statuses, s.taskStatus(t))
	}
	return statuses
}

func (s *Scheduler) Snapshot() Snapshot {
	s.enter()
	defer s.exit()

	snap := Snapshot{
		Tick:               s.tickCount,
		Ready:              make([]uint, len(s.ready)),
		Delayed:            s.delayed.Len(),
		OverflowDelayed:    s.overflowDelayed.Len(),
		Suspended:          s.suspended.Len(),
		PendingReady:       s.pendingReady.Len(),
		Terminating:        s.terminating.Len(),
		NextUnblock:        s.nextUnblock,
		SchedulerSuspended: s.suspendDepth > 0,
	}
	if s.current != nil {
		snap.Current = s.current.name
	}
	for p := range s.ready {
		snap.Ready[p] = s.ready[p].Len()
	}
	return snap
}
