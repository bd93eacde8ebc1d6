package queue

import (
	"github.com/kgantsov/rtos/pkg/critical"
	"github.com/kgantsov/rtos/pkg/errors"
	"github.com/kgantsov/rtos/pkg/kernel"
	"github.com/kgantsov/rtos/pkg/list"
	"github.com/kgantsov/rtos/pkg/metrics"
	"github.com/rs/zerolog/log"
)

// Queue is a fixed length FIFO shared between tasks. Tasks that cannot send
// or receive wait on one of two lists ordered by task priority, so the
// highest priority waiter is woken first.
//
// Blocking calls do not park the calling goroutine. When a call has to wait
// it places the current task on the wait list and returns ErrWouldBlock; the
// task yields and retries once it runs again, using kernel.TimeOut to wait
// only for what is left of its timeout.
type Queue[T any] struct {
	name string
	s    *kernel.Scheduler

	items []T
	head  int
	count int

	waitingToSend    list.List[*kernel.Task]
	waitingToReceive list.List[*kernel.Task]

	// deleted queues refuse every operation so no task can wait on them.
	deleted bool

	metrics *metrics.PrometheusMetrics
}

type Option func(o *options)

type options struct {
	metrics *metrics.PrometheusMetrics
}

func WithMetrics(m *metrics.PrometheusMetrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// Info describes a queue at the time it was taken.
type Info struct {
	Name             string
	Length           uint
	Messages         uint
	WaitingToSend    uint
	WaitingToReceive uint
}

func New[T any](s *kernel.Scheduler, name string, length uint, opts ...Option) (*Queue[T], error) {
	if length == 0 {
		return nil, errors.ErrInvalidLength
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	q := &Queue[T]{
		name:    name,
		s:       s,
		items:   make([]T, length),
		metrics: o.metrics,
	}
	q.waitingToSend.Init()
	q.waitingToReceive.Init()

	log.Debug().Str("queue", name).Uint("length", length).Msg("Queue created")

	return q, nil
}

func (q *Queue[T]) Name() string { return q.name }

func (q *Queue[T]) Length() uint { return uint(len(q.items)) }

func (q *Queue[T]) enter() {
	q.s.Critical().Enter()
}

func (q *Queue[T]) exit() {
	q.updateGauges()
	q.s.Critical().Exit()
}

func (q *Queue[T]) updateGauges() {
	if q.metrics == nil {
		return
	}

	q.metrics.QueueMessages.WithLabelValues(q.name).Set(float64(q.count))
	q.metrics.QueueWaiters.WithLabelValues(q.name, "send").Set(float64(q.waitingToSend.Len()))
	q.metrics.QueueWaiters.WithLabelValues(q.name, "receive").Set(float64(q.waitingToReceive.Len()))
}

func (q *Queue[T]) full() bool {
	return q.count == len(q.items)
}

func (q *Queue[T]) pushBack(item T) {
	q.items[(q.head+q.count)%len(q.items)] = item
	q.count++
}

func (q *Queue[T]) pushFront(item T) {
	q.head = (q.head - 1 + len(q.items)) % len(q.items)
	q.items[q.head] = item
	q.count++
}

func (q *Queue[T]) popFront() T {
	var zero T

	item := q.items[q.head]
	q.items[q.head] = zero
	q.head = (q.head + 1) % len(q.items)
	q.count--
	return item
}

func (q *Queue[T]) send(item T, ticksToWait kernel.Tick, front bool) error {
	q.enter()
	defer q.exit()

	if q.deleted {
		return errors.ErrQueueDeleted
	}

	if !q.full() {
		if front {
			q.pushFront(item)
		} else {
			q.pushBack(item)
		}
		q.s.RemoveFromEventListLocked(&q.waitingToReceive)
		return nil
	}

	if ticksToWait == 0 {
		return errors.ErrQueueFull
	}

	if err := q.s.PlaceOnEventListLocked(&q.waitingToSend, ticksToWait); err != nil {
		return err
	}

	log.Trace().
		Str("queue", q.name).
		Uint32("ticks", uint32(ticksToWait)).
		Msg("Task waiting to send")

	return errors.ErrWouldBlock
}

// Send appends item. When the queue is full and ticksToWait is not zero the
// current task is blocked for up to ticksToWait ticks and ErrWouldBlock is
// returned.
func (q *Queue[T]) Send(item T, ticksToWait kernel.Tick) error {
	return q.send(item, ticksToWait, false)
}

// SendToFront is Send for urgent items: item will be received next.
func (q *Queue[T]) SendToFront(item T, ticksToWait kernel.Tick) error {
	return q.send(item, ticksToWait, true)
}

// SendFromISR appends item without blocking. It reports whether a task of
// higher priority than the current one was woken.
func (q *Queue[T]) SendFromISR(item T) (bool, error) {
	q.enter()
	defer q.exit()

	if q.deleted {
		return false, errors.ErrQueueDeleted
	}
	if q.full() {
		return false, errors.ErrQueueFull
	}

	q.pushBack(item)
	return q.s.RemoveFromEventListLocked(&q.waitingToReceive), nil
}

// Receive removes and returns the oldest item. When the queue is empty and
// ticksToWait is not zero the current task is blocked for up to ticksToWait
// ticks and ErrWouldBlock is returned.
func (q *Queue[T]) Receive(ticksToWait kernel.Tick) (T, error) {
	var zero T

	q.enter()
	defer q.exit()

	if q.deleted {
		return zero, errors.ErrQueueDeleted
	}

	if q.count > 0 {
		item := q.popFront()
		q.s.RemoveFromEventListLocked(&q.waitingToSend)
		return item, nil
	}

	if ticksToWait == 0 {
		return zero, errors.ErrQueueEmpty
	}

	if err := q.s.PlaceOnEventListLocked(&q.waitingToReceive, ticksToWait); err != nil {
		return zero, err
	}

	log.Trace().
		Str("queue", q.name).
		Uint32("ticks", uint32(ticksToWait)).
		Msg("Task waiting to receive")

	return zero, errors.ErrWouldBlock
}

// ReceiveFromISR removes the oldest item without blocking. The bool reports
// whether a task of higher priority than the current one was woken.
func (q *Queue[T]) ReceiveFromISR() (T, bool, error) {
	var zero T

	q.enter()
	defer q.exit()

	if q.deleted {
		return zero, false, errors.ErrQueueDeleted
	}
	if q.count == 0 {
		return zero, false, errors.ErrQueueEmpty
	}

	item := q.popFront()
	return item, q.s.RemoveFromEventListLocked(&q.waitingToSend), nil
}

// Peek returns the oldest item without removing it.
func (q *Queue[T]) Peek() (T, error) {
	var zero T

	q.enter()
	defer q.exit()

	if q.deleted {
		return zero, errors.ErrQueueDeleted
	}
	if q.count == 0 {
		return zero, errors.ErrQueueEmpty
	}
	return q.items[q.head], nil
}

func (q *Queue[T]) MessagesWaiting() uint {
	q.enter()
	defer q.exit()

	return uint(q.count)
}

func (q *Queue[T]) SpacesAvailable() uint {
	q.enter()
	defer q.exit()

	return uint(len(q.items) - q.count)
}

// Reset drops every item. One task waiting to send is woken since there is
// now room for it; tasks waiting to receive keep waiting.
func (q *Queue[T]) Reset() {
	q.enter()
	defer q.exit()

	if q.deleted {
		return
	}

	var zero T
	for i := range q.items {
		q.items[i] = zero
	}
	q.head = 0
	q.count = 0

	q.s.RemoveFromEventListLocked(&q.waitingToSend)

	log.Debug().Str("queue", q.name).Msg("Queue reset")
}

// Delete releases the queue. It fails while tasks wait on it, since their
// event nodes are linked into the queue's lists. Any later call on the queue
// returns ErrQueueDeleted without blocking.
func (q *Queue[T]) Delete() error {
	q.enter()
	defer q.exit()

	if q.deleted {
		return errors.ErrQueueDeleted
	}
	if !q.waitingToSend.Empty() || !q.waitingToReceive.Empty() {
		return errors.ErrQueueInUse
	}

	q.items = q.items[:0:0]
	q.head = 0
	q.count = 0
	q.deleted = true

	if q.metrics != nil {
		q.metrics.QueueMessages.DeleteLabelValues(q.name)
		q.metrics.QueueWaiters.DeleteLabelValues(q.name, "send")
		q.metrics.QueueWaiters.DeleteLabelValues(q.name, "receive")
		q.metrics = nil
	}

	log.Debug().Str("queue", q.name).Msg("Queue deleted")

	return nil
}

func (q *Queue[T]) Info() Info {
	q.enter()
	defer q.exit()

	return Info{
		Name:             q.name,
		Length:           uint(len(q.items)),
		Messages:         uint(q.count),
		WaitingToSend:    q.waitingToSend.Len(),
		WaitingToReceive: q.waitingToReceive.Len(),
	}
}

// Waiters returns the tasks waiting to send and to receive, highest
// priority first.
func (q *Queue[T]) Waiters() (senders, receivers []*kernel.Task) {
	critical.Do(q.s.Critical(), func() {
		senders = q.waitingToSend.Owners()
		receivers = q.waitingToReceive.Owners()
	})
	return senders, receivers
}
