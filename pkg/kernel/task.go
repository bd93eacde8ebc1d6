package kernel

import (
	"math"

	"github.com/kgantsov/rtos/pkg/list"
)

// Tick is the kernel time unit.
type Tick uint32

// MaxDelay blocks without timeout when passed to an event wait.
const MaxDelay Tick = math.MaxUint32

type TaskState int

const (
	Running TaskState = iota
	Ready
	Blocked
	Suspended
	Deleted
)

func (s TaskState) String() string {
	switch s {
	case Running:
		return "running"
	case Ready:
		return "ready"
	case Blocked:
		return "blocked"
	case Suspended:
		return "suspended"
	case Deleted:
		return "deleted"
	}
	return "unknown"
}

// StepFunc is the body of a task. The runner calls it once per tick while
// the task is current.
type StepFunc func(s *Scheduler, t *Task)

// Task is a task control block. It carries two list nodes: stateNode links
// it into a ready, delayed, suspended or termination list; eventNode links
// it into the wait list of a queue while it is blocked on one.
type Task struct {
	name     string
	number   uint64
	priority uint
	step     StepFunc
	deleted  bool

	stateNode list.Node[*Task]
	eventNode list.Node[*Task]
}

func (t *Task) Name() string { return t.name }

// Number increments with every task created by a scheduler.
func (t *Task) Number() uint64 { return t.number }

func (t *Task) Priority() uint { return t.priority }

func (t *Task) Step() StepFunc { return t.step }

// WaitingOnEvent reports whether the task sits in a queue wait list.
func (t *Task) WaitingOnEvent() bool { return t.eventNode.Linked() }
