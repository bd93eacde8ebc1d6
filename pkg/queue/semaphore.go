package queue

import (
	"github.com/kgantsov/rtos/pkg/kernel"
)

// Semaphore is a counting semaphore built on a queue of empty items: the
// number of items waiting is the count.
type Semaphore struct {
	q *Queue[struct{}]
}

// NewSemaphore returns a semaphore that can count up to max, starting at
// initial.
func NewSemaphore(s *kernel.Scheduler, name string, max, initial uint, opts ...Option) (*Semaphore, error) {
	q, err := New[struct{}](s, name, max, opts...)
	if err != nil {
		return nil, err
	}

	for i := uint(0); i < initial && i < max; i++ {
		q.pushBack(struct{}{})
	}

	return &Semaphore{q: q}, nil
}

// NewBinarySemaphore returns a semaphore that starts empty and holds at most
// one token.
func NewBinarySemaphore(s *kernel.Scheduler, name string, opts ...Option) (*Semaphore, error) {
	return NewSemaphore(s, name, 1, 0, opts...)
}

func (sem *Semaphore) Name() string { return sem.q.Name() }

// Give releases a token. It fails with ErrQueueFull when the count is at its
// maximum.
func (sem *Semaphore) Give() error {
	return sem.q.Send(struct{}{}, 0)
}

// GiveFromISR releases a token and reports whether a higher priority task
// was woken.
func (sem *Semaphore) GiveFromISR() (bool, error) {
	return sem.q.SendFromISR(struct{}{})
}

// Take acquires a token, blocking the current task for up to ticksToWait
// ticks when none is available. See Queue.Receive.
func (sem *Semaphore) Take(ticksToWait kernel.Tick) error {
	_, err := sem.q.Receive(ticksToWait)
	return err
}

func (sem *Semaphore) Count() uint {
	return sem.q.MessagesWaiting()
}

func (sem *Semaphore) Info() Info {
	return sem.q.Info()
}

func (sem *Semaphore) Delete() error {
	return sem.q.Delete()
}
