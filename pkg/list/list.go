package list

import (
	"fmt"
	"math"

	"github.com/kgantsov/rtos/pkg/errors"
)

// Key is the sort key of a node: a wake tick or a priority rank.
type Key uint32

// MaxKey is held by the sentinel. Inserting a node with MaxKey places it at
// the tail without scanning.
const MaxKey Key = math.MaxUint32

// Node is an intrusive link. It is meant to be embedded in the record it
// represents (its owner) and can be linked into at most one List at a time.
type Node[T any] struct {
	value     Key
	next      *Node[T]
	prev      *Node[T]
	owner     T
	container *List[T]
}

// Init binds the node to its owner. The node must be unlinked.
func (n *Node[T]) Init(owner T) {
	if n.container != nil {
		panic(fmt.Errorf("%w: init of a linked node", errors.ErrNodeLinked))
	}
	n.owner = owner
	n.next = nil
	n.prev = nil
}

func (n *Node[T]) Owner() T { return n.owner }

func (n *Node[T]) Value() Key { return n.value }

// SetValue changes the sort key. It does not reposition a linked node.
func (n *Node[T]) SetValue(k Key) { n.value = k }

// Container returns the list currently holding n, or nil.
func (n *Node[T]) Container() *List[T] { return n.container }

func (n *Node[T]) Linked() bool { return n.container != nil }

// Next returns the following real node, or nil when n is the last one.
func (n *Node[T]) Next() *Node[T] {
	if n.container == nil || n.next == &n.container.end {
		return nil
	}
	return n.next
}

// Prev returns the preceding real node, or nil when n is the first one.
func (n *Node[T]) Prev() *Node[T] {
	if n.container == nil || n.prev == &n.container.end {
		return nil
	}
	return n.prev
}

// Unlink removes n from the list that holds it and returns that list's new
// length.
func (n *Node[T]) Unlink() uint {
	if n.container == nil {
		panic(fmt.Errorf("%w: unlink of an unlinked node", errors.ErrNodeNotMember))
	}
	return n.container.Remove(n)
}

// List is a circular doubly-linked list anchored by a sentinel node holding
// MaxKey. It keeps a cursor for round-robin traversal.
//
// List does no locking. Every mutating or cursor-advancing call has to be
// made while the caller excludes concurrent access to the list.
//
// The zero value is an empty list ready to use. A List must not be copied
// after first use: the chain points at the embedded sentinel.
type List[T any] struct {
	count  uint
	cursor *Node[T]
	end    Node[T]
}

// New returns an initialized list.
func New[T any]() *List[T] {
	return new(List[T]).Init()
}

// Init resets l to the empty state. Nodes still linked into l are left
// unlinked so they can be inserted again.
func (l *List[T]) Init() *List[T] {
	if l.end.next != nil {
		for n := l.end.next; n != &l.end; {
			next := n.next
			n.next = nil
			n.prev = nil
			n.container = nil
			n = next
		}
	}

	var zero T
	l.end.owner = zero
	l.end.container = l
	l.end.value = MaxKey
	l.end.next = &l.end
	l.end.prev = &l.end
	l.cursor = &l.end
	l.count = 0
	return l
}

func (l *List[T]) lazyInit() {
	if l.end.next == nil {
		l.Init()
	}
}

func (l *List[T]) Len() uint { return l.count }

func (l *List[T]) Empty() bool { return l.count == 0 }

func (l *List[T]) checkInsert(n *Node[T]) {
	if n == &l.end {
		panic(fmt.Errorf("%w: insert", errors.ErrSentinel))
	}
	if n.container != nil {
		panic(fmt.Errorf("%w: node with key %d", errors.ErrNodeLinked, n.value))
	}
}

// InsertSorted links n in ascending key order. Nodes with a key equal to an
// existing node's are placed after it, so equal keys keep insertion order.
func (l *List[T]) InsertSorted(n *Node[T]) {
	l.lazyInit()
	l.checkInsert(n)

	var it *Node[T]
	if n.value == MaxKey {
		it = l.end.prev
	} else {
		// The sentinel holds MaxKey, so the scan always stops before it.
		for it = &l.end; it.next.value <= n.value; it = it.next {
		}
	}

	n.next = it.next
	n.next.prev = n
	n.prev = it
	it.next = n

	n.container = l
	l.count++
}

// InsertAtEnd links n immediately before the cursor, ignoring its key. The
// node will be the last one returned by NextOwner in the current lap.
func (l *List[T]) InsertAtEnd(n *Node[T]) {
	l.lazyInit()
	l.checkInsert(n)

	at := l.cursor
	n.next = at
	n.prev = at.prev
	at.prev.next = n
	at.prev = n

	n.container = l
	l.count++
}

// NextOwner advances the cursor to the next real node, skipping the
// sentinel, and returns its owner. Repeated calls visit every node once per
// lap. Callers must check Len first: on an empty list the zero owner is
// returned.
func (l *List[T]) NextOwner() T {
	l.lazyInit()

	l.cursor = l.cursor.next
	if l.cursor == &l.end {
		l.cursor = l.cursor.next
	}
	return l.cursor.owner
}

// HeadOwner returns the owner of the first node without moving the cursor.
// On an empty list the zero owner is returned.
func (l *List[T]) HeadOwner() T {
	l.lazyInit()
	return l.end.next.owner
}

// HeadValue returns the key of the first node, MaxKey when l is empty.
func (l *List[T]) HeadValue() Key {
	l.lazyInit()
	return l.end.next.value
}

// Front returns the first node or nil.
func (l *List[T]) Front() *Node[T] {
	if l.count == 0 {
		return nil
	}
	return l.end.next
}

// Back returns the last node or nil.
func (l *List[T]) Back() *Node[T] {
	if l.count == 0 {
		return nil
	}
	return l.end.prev
}

// Contains reports whether n is currently linked into l.
func (l *List[T]) Contains(n *Node[T]) bool {
	return n.container == l
}

// Remove unlinks n and returns the new length of l. If the cursor pointed at
// n it is moved back to n's predecessor so the next NextOwner call returns
// n's former successor.
func (l *List[T]) Remove(n *Node[T]) uint {
	if n == &l.end {
		panic(fmt.Errorf("%w: remove", errors.ErrSentinel))
	}
	if n.container != l {
		panic(fmt.Errorf("%w: node with key %d", errors.ErrNodeNotMember, n.value))
	}

	n.next.prev = n.prev
	n.prev.next = n.next

	if l.cursor == n {
		l.cursor = n.prev
	}

	n.next = nil
	n.prev = nil
	n.container = nil
	l.count--

	return l.count
}

// Each calls fn for every node in chain order until fn returns false. fn
// must not mutate l.
func (l *List[T]) Each(fn func(n *Node[T]) bool) {
	for n := l.Front(); n != nil; n = n.Next() {
		if !fn(n) {
			return
		}
	}
}

// Owners returns the owners of all nodes in chain order.
func (l *List[T]) Owners() []T {
	owners := make([]T, 0, l.count)
	l.Each(func(n *Node[T]) bool {
		owners = append(owners, n.owner)
		return true
	})
	return owners
}
