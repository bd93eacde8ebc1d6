package http

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/kgantsov/rtos/pkg/config"
	"github.com/kgantsov/rtos/pkg/errors"
	"github.com/kgantsov/rtos/pkg/kernel"
	"github.com/kgantsov/rtos/pkg/metrics"
	"github.com/kgantsov/rtos/pkg/queue"
	"github.com/kgantsov/rtos/pkg/sim"
	"github.com/kgantsov/rtos/pkg/trace"
)

// Kernel is the scheduler as seen by the HTTP API.
type Kernel interface {
	Tasks() []sim.TaskInfo
	Task(number uint64) (sim.TaskInfo, error)
	CreateTask(cfg config.TaskConfig) (sim.TaskInfo, error)
	DeleteTask(number uint64) error
	SuspendTask(number uint64) error
	ResumeTask(number uint64) error
	SetTaskPriority(number uint64, priority uint) error
	Snapshot() kernel.Snapshot
	Rates() metrics.Stats
	Queues() []queue.Info
	Queue(name string) (queue.Info, error)
	CreateQueue(name string, length uint) error
	DeleteQueue(name string) error
}

// TraceStore reads persisted trace events.
type TraceStore interface {
	Events(limit int, lastID uint64) ([]*trace.Event, error)
	Latest(limit int) ([]*trace.Event, error)
}

type (
	Handler struct {
		kernel Kernel
		traces TraceStore
		config *config.Config
	}
)

// kernelError maps kernel errors to HTTP errors.
func kernelError(msg string, err error) error {
	switch err {
	case errors.ErrTaskNotFound, errors.ErrQueueNotFound:
		return huma.Error404NotFound(msg, err)
	case errors.ErrInvalidPriority,
		errors.ErrInvalidPeriod,
		errors.ErrInvalidLength,
		errors.ErrUnknownTaskKind,
		errors.ErrIdleTask:
		return huma.Error400BadRequest(msg, err)
	case errors.ErrQueueExists,
		errors.ErrQueueInUse,
		errors.ErrQueueDeleted,
		errors.ErrNotSuspended,
		errors.ErrTaskDeleted:
		return huma.Error409Conflict(msg, err)
	}
	return huma.Error500InternalServerError(msg, err)
}

func taskBody(info sim.TaskInfo) TaskBody {
	return TaskBody{
		Number:   info.Number,
		Name:     info.Name,
		Kind:     info.Kind,
		State:    info.State.String(),
		Priority: info.Priority,
		WakeTick: uint32(info.WakeTick),
		Waiting:  info.Waiting,
		Runs:     info.Runs,
	}
}

func queueBody(info queue.Info) QueueBody {
	return QueueBody{
		Name:             info.Name,
		Length:           info.Length,
		Messages:         info.Messages,
		WaitingToSend:    info.WaitingToSend,
		WaitingToReceive: info.WaitingToReceive,
	}
}
