package errors

import "fmt"

// List contract violations. These are raised with panic.
var ErrNodeNotMember = fmt.Errorf("node is not a member of this list")
var ErrNodeLinked = fmt.Errorf("node is already linked into a list")
var ErrSentinel = fmt.Errorf("sentinel node cannot be inserted or removed")
var ErrSectionNotHeld = fmt.Errorf("critical section is not held")

var ErrInvalidPriority = fmt.Errorf("invalid task priority")
var ErrTaskNotFound = fmt.Errorf("task not found")
var ErrTaskDeleted = fmt.Errorf("task has been deleted")
var ErrIdleTask = fmt.Errorf("operation not permitted on the idle task")
var ErrNotSuspended = fmt.Errorf("task is not suspended")
var ErrSchedulerNotStarted = fmt.Errorf("scheduler is not started")

var ErrQueueFull = fmt.Errorf("queue is full")
var ErrQueueEmpty = fmt.Errorf("queue is empty")
var ErrWouldBlock = fmt.Errorf("task blocked on queue")
var ErrQueueInUse = fmt.Errorf("queue has waiting tasks")
var ErrQueueDeleted = fmt.Errorf("queue has been deleted")
var ErrInvalidLength = fmt.Errorf("queue length must be positive")

var ErrEventNotFound = fmt.Errorf("trace event not found")

var ErrQueueNotFound = fmt.Errorf("queue not found")
var ErrQueueExists = fmt.Errorf("queue already exists")
var ErrUnknownTaskKind = fmt.Errorf("unknown task kind")
var ErrInvalidPeriod = fmt.Errorf("period must be positive")
