// Package critical provides the mutual-exclusion scope that callers of the
// list engine and the scheduler hold around every mutating call.
package critical

import (
	"sync"

	"github.com/kgantsov/rtos/pkg/errors"
)

// Section is a critical section. Enter and Exit bracket a scope in which no
// other goroutine (task or interrupt context) touches the protected lists.
type Section interface {
	Enter()
	Exit()
	// Held reports whether some caller is inside the section.
	Held() bool
}

// Mutex is a Section backed by sync.Mutex. It does not nest.
type Mutex struct {
	mu sync.Mutex
}

func NewMutex() *Mutex {
	return &Mutex{}
}

func (m *Mutex) Enter() { m.mu.Lock() }

func (m *Mutex) Exit() { m.mu.Unlock() }

func (m *Mutex) Held() bool {
	if m.mu.TryLock() {
		m.mu.Unlock()
		return false
	}
	return true
}

// Do runs fn inside s.
func Do(s Section, fn func()) {
	s.Enter()
	defer s.Exit()

	fn()
}

// MustHold panics when s is not held. It cannot tell which goroutine holds
// s: with Mutex it passes while any goroutine is inside the section, so it
// catches a missing Enter only when nobody else holds the section.
func MustHold(s Section) {
	if !s.Held() {
		panic(errors.ErrSectionNotHeld)
	}
}
