package sim

import (
	"sync/atomic"

	"github.com/kgantsov/rtos/pkg/errors"
	"github.com/kgantsov/rtos/pkg/kernel"
	"github.com/kgantsov/rtos/pkg/queue"
	"github.com/rs/zerolog/log"
)

const (
	KindPeriodic = "periodic"
	KindProducer = "producer"
	KindConsumer = "consumer"
)

// workload is the state behind a task's step function. Steps only ever run
// on the simulator goroutine; the counters are read from others.
type workload interface {
	step(s *kernel.Scheduler, t *kernel.Task)
	kind() string
	runs() uint64
	// queue is the name of the queue the workload uses, empty for none.
	queue() string
}

type counter struct {
	n atomic.Uint64
}

func (c *counter) inc() { c.n.Add(1) }

func (c *counter) runs() uint64 { return c.n.Load() }

// periodic runs once every period ticks, measured from its previous wake
// tick rather than from when it finished.
type periodic struct {
	counter
	period   kernel.Tick
	prevWake kernel.Tick
	started  bool
}

func newPeriodic(period kernel.Tick) *periodic {
	return &periodic{period: period}
}

func (p *periodic) kind() string { return KindPeriodic }

func (p *periodic) queue() string { return "" }

func (p *periodic) step(s *kernel.Scheduler, t *kernel.Task) {
	if !p.started {
		p.prevWake = s.TickCount()
		p.started = true
	}
	p.inc()

	delayed, err := s.DelayUntil(&p.prevWake, p.period)
	if err != nil {
		log.Debug().Err(err).Str("task", t.Name()).Msg("Periodic task failed to delay")
		return
	}
	if !delayed {
		log.Warn().Str("task", t.Name()).Uint32("wake", uint32(p.prevWake)).Msg("Periodic task missed its deadline")
	}
}

// waiter tracks a blocking queue call across retries so the task waits at
// most timeout ticks in total.
type waiter struct {
	timeout   kernel.Tick
	remaining kernel.Tick
	to        kernel.TimeOut
	waiting   bool
}

// ticksToWait returns how long the next attempt may block and whether the
// previous attempt already timed out.
func (w *waiter) ticksToWait(s *kernel.Scheduler) (kernel.Tick, bool) {
	if !w.waiting {
		s.SetTimeOut(&w.to)
		w.remaining = w.timeout
		return w.remaining, false
	}
	if s.CheckForTimeOut(&w.to, &w.remaining) {
		w.waiting = false
		return 0, true
	}
	return w.remaining, false
}

// producer sends an increasing sequence number every period ticks.
type producer struct {
	counter
	waiter
	q       *queue.Queue[uint64]
	period  kernel.Tick
	next    uint64
	dropped atomic.Uint64
}

func newProducer(q *queue.Queue[uint64], period, timeout kernel.Tick) *producer {
	return &producer{q: q, period: period, waiter: waiter{timeout: timeout}}
}

func (p *producer) kind() string { return KindProducer }

func (p *producer) queue() string { return p.q.Name() }

func (p *producer) step(s *kernel.Scheduler, t *kernel.Task) {
	ticks, timedOut := p.ticksToWait(s)
	if timedOut {
		p.drop(t)
		s.Delay(p.period)
		return
	}

	err := p.q.Send(p.next, ticks)
	switch err {
	case nil:
		p.waiting = false
		p.next++
		p.inc()
		s.Delay(p.period)
	case errors.ErrWouldBlock:
		p.waiting = true
	case errors.ErrQueueFull:
		p.waiting = false
		p.drop(t)
		s.Delay(p.period)
	case errors.ErrQueueDeleted:
		p.waiting = false
		orphan(s, t, p.q.Name())
	default:
		log.Debug().Err(err).Str("task", t.Name()).Msg("Producer failed to send")
	}
}

func (p *producer) drop(t *kernel.Task) {
	p.dropped.Add(1)
	log.Debug().Str("task", t.Name()).Str("queue", p.q.Name()).Uint64("item", p.next).Msg("Queue full, item dropped")
}

// consumer receives from its queue, blocking up to timeout ticks per item.
type consumer struct {
	counter
	waiter
	q    *queue.Queue[uint64]
	last atomic.Uint64
}

func newConsumer(q *queue.Queue[uint64], timeout kernel.Tick) *consumer {
	return &consumer{q: q, waiter: waiter{timeout: timeout}}
}

func (c *consumer) kind() string { return KindConsumer }

func (c *consumer) queue() string { return c.q.Name() }

func (c *consumer) step(s *kernel.Scheduler, t *kernel.Task) {
	ticks, timedOut := c.ticksToWait(s)
	if timedOut {
		log.Debug().Str("task", t.Name()).Str("queue", c.q.Name()).Msg("Receive timed out")
		ticks, _ = c.ticksToWait(s)
	}

	item, err := c.q.Receive(ticks)
	switch err {
	case nil:
		c.waiting = false
		c.last.Store(item)
		c.inc()
	case errors.ErrWouldBlock:
		c.waiting = true
	case errors.ErrQueueEmpty:
		c.waiting = false
		s.Yield()
	case errors.ErrQueueDeleted:
		c.waiting = false
		orphan(s, t, c.q.Name())
	default:
		log.Debug().Err(err).Str("task", t.Name()).Msg("Consumer failed to receive")
	}
}

// orphan suspends a task whose queue was deleted under it.
func orphan(s *kernel.Scheduler, t *kernel.Task, queueName string) {
	log.Warn().Str("task", t.Name()).Str("queue", queueName).Msg("Queue deleted, suspending task")
	if err := s.Suspend(t); err != nil {
		log.Debug().Err(err).Str("task", t.Name()).Msg("Failed to suspend task")
	}
}
