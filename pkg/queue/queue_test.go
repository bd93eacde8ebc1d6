package queue

import (
	"testing"

	"github.com/kgantsov/rtos/pkg/critical"
	"github.com/kgantsov/rtos/pkg/errors"
	"github.com/kgantsov/rtos/pkg/kernel"
	"github.com/kgantsov/rtos/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScheduler() *kernel.Scheduler {
	return kernel.NewScheduler(kernel.DefaultConfig(), critical.NewMutex())
}

func mustCreate(t *testing.T, s *kernel.Scheduler, name string, priority uint) *kernel.Task {
	task, err := s.CreateTask(name, priority, nil)
	require.NoError(t, err)
	return task
}

func TestNewQueue(t *testing.T) {
	s := newScheduler()

	_, err := New[int](s, "empty", 0)
	assert.ErrorIs(t, err, errors.ErrInvalidLength)

	q, err := New[int](s, "numbers", 4)
	require.NoError(t, err)
	assert.Equal(t, "numbers", q.Name())
	assert.Equal(t, uint(4), q.Length())
	assert.Equal(t, uint(0), q.MessagesWaiting())
	assert.Equal(t, uint(4), q.SpacesAvailable())
}

func TestQueueFIFO(t *testing.T) {
	tests := []struct {
		name     string
		length   uint
		send     []int
		front    []int
		expected []int
	}{
		{
			name:     "In order",
			length:   3,
			send:     []int{1, 2, 3},
			expected: []int{1, 2, 3},
		},
		{
			name:     "Front items first",
			length:   4,
			send:     []int{1, 2},
			front:    []int{10, 20},
			expected: []int{20, 10, 1, 2},
		},
		{
			name:     "Single slot",
			length:   1,
			front:    []int{7},
			expected: []int{7},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := New[int](newScheduler(), "q", tt.length)
			require.NoError(t, err)

			for _, v := range tt.send {
				require.NoError(t, q.Send(v, 0))
			}
			for _, v := range tt.front {
				require.NoError(t, q.SendToFront(v, 0))
			}

			head, err := q.Peek()
			require.NoError(t, err)
			assert.Equal(t, tt.expected[0], head)

			received := []int{}
			for {
				v, err := q.Receive(0)
				if err != nil {
					assert.ErrorIs(t, err, errors.ErrQueueEmpty)
					break
				}
				received = append(received, v)
			}
			assert.Equal(t, tt.expected, received)
		})
	}
}

func TestQueueWrapsAround(t *testing.T) {
	q, err := New[int](newScheduler(), "q", 3)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.NoError(t, q.Send(i, 0))
		require.NoError(t, q.Send(i+100, 0))

		v, err := q.Receive(0)
		require.NoError(t, err)
		assert.Equal(t, i, v)

		v, err = q.Receive(0)
		require.NoError(t, err)
		assert.Equal(t, i+100, v)
	}
	assert.Equal(t, uint(0), q.MessagesWaiting())
}

func TestQueueFullAndEmpty(t *testing.T) {
	q, err := New[string](newScheduler(), "q", 2)
	require.NoError(t, err)

	_, err = q.Peek()
	assert.ErrorIs(t, err, errors.ErrQueueEmpty)
	_, _, err = q.ReceiveFromISR()
	assert.ErrorIs(t, err, errors.ErrQueueEmpty)

	require.NoError(t, q.Send("a", 0))
	woken, err := q.SendFromISR("b")
	require.NoError(t, err)
	assert.False(t, woken)
	assert.Equal(t, uint(0), q.SpacesAvailable())

	assert.ErrorIs(t, q.Send("c", 0), errors.ErrQueueFull)
	assert.ErrorIs(t, q.SendToFront("c", 0), errors.ErrQueueFull)
	_, err = q.SendFromISR("c")
	assert.ErrorIs(t, err, errors.ErrQueueFull)

	v, woken, err := q.ReceiveFromISR()
	require.NoError(t, err)
	assert.False(t, woken)
	assert.Equal(t, "a", v)
}

func TestQueueBlockingOutsideTask(t *testing.T) {
	q, err := New[int](newScheduler(), "q", 1)
	require.NoError(t, err)

	_, err = q.Receive(5)
	assert.ErrorIs(t, err, errors.ErrSchedulerNotStarted)
}

func TestReceiveBlocksUntilSend(t *testing.T) {
	s := newScheduler()
	producer := mustCreate(t, s, "producer", 1)
	consumer := mustCreate(t, s, "consumer", 2)

	q, err := New[int](s, "q", 2)
	require.NoError(t, err)

	s.Start()
	assert.Equal(t, consumer, s.Current())

	_, err = q.Receive(kernel.MaxDelay)
	assert.ErrorIs(t, err, errors.ErrWouldBlock)
	assert.Equal(t, kernel.Blocked, s.State(consumer))
	assert.True(t, consumer.WaitingOnEvent())

	s.SwitchContext()
	assert.Equal(t, producer, s.Current())

	require.NoError(t, q.Send(42, 0))
	assert.Equal(t, kernel.Ready, s.State(consumer))
	assert.True(t, s.YieldPending())

	s.SwitchContext()
	assert.Equal(t, consumer, s.Current())

	v, err := q.Receive(0)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestWaitersWakeByPriority(t *testing.T) {
	s := newScheduler()
	r1 := mustCreate(t, s, "r1", 1)
	r3 := mustCreate(t, s, "r3", 3)
	r2 := mustCreate(t, s, "r2", 2)

	q, err := New[int](s, "q", 3)
	require.NoError(t, err)

	s.Start()
	for _, expected := range []*kernel.Task{r3, r2, r1} {
		require.Equal(t, expected, s.Current())
		_, err := q.Receive(kernel.MaxDelay)
		require.ErrorIs(t, err, errors.ErrWouldBlock)
		s.SwitchContext()
	}
	assert.Equal(t, s.Idle(), s.Current())

	senders, receivers := q.Waiters()
	assert.Empty(t, senders)
	assert.Equal(t, []*kernel.Task{r3, r2, r1}, receivers)

	for _, expected := range []*kernel.Task{r3, r2, r1} {
		woken, err := q.SendFromISR(1)
		require.NoError(t, err)
		assert.True(t, woken)
		assert.Equal(t, kernel.Ready, s.State(expected))
		assert.False(t, expected.WaitingOnEvent())
	}

	info := q.Info()
	assert.Equal(t, uint(3), info.Messages)
	assert.Equal(t, uint(0), info.WaitingToReceive)
}

func TestSendTimesOut(t *testing.T) {
	s := newScheduler()
	task := mustCreate(t, s, "sender", 1)

	q, err := New[int](s, "q", 1)
	require.NoError(t, err)

	s.Start()
	require.NoError(t, q.Send(1, 0))

	var to kernel.TimeOut
	s.SetTimeOut(&to)
	wait := kernel.Tick(3)

	assert.ErrorIs(t, q.Send(2, wait), errors.ErrWouldBlock)
	assert.Equal(t, uint(1), q.Info().WaitingToSend)

	s.SwitchContext()
	assert.Equal(t, s.Idle(), s.Current())

	for i := 0; i < 3; i++ {
		s.Tick()
	}
	assert.Equal(t, kernel.Ready, s.State(task))
	assert.Equal(t, uint(0), q.Info().WaitingToSend)

	s.SwitchContext()
	assert.Equal(t, task, s.Current())
	assert.True(t, s.CheckForTimeOut(&to, &wait))
	assert.ErrorIs(t, q.Send(2, wait), errors.ErrQueueFull)
}

func TestReceiveWakesSender(t *testing.T) {
	s := newScheduler()
	sender := mustCreate(t, s, "sender", 2)
	receiver := mustCreate(t, s, "receiver", 1)

	q, err := New[int](s, "q", 1)
	require.NoError(t, err)

	s.Start()
	require.NoError(t, q.Send(1, 0))
	assert.ErrorIs(t, q.Send(2, 10), errors.ErrWouldBlock)

	s.SwitchContext()
	assert.Equal(t, receiver, s.Current())

	v, err := q.Receive(0)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, kernel.Ready, s.State(sender))
	assert.Equal(t, kernel.MaxDelay, s.Snapshot().NextUnblock)

	s.SwitchContext()
	assert.Equal(t, sender, s.Current())
	require.NoError(t, q.Send(2, 0))
}

func TestResetWakesSender(t *testing.T) {
	s := newScheduler()
	task := mustCreate(t, s, "sender", 1)

	q, err := New[int](s, "q", 1)
	require.NoError(t, err)

	s.Start()
	require.NoError(t, q.Send(1, 0))
	assert.ErrorIs(t, q.Send(2, kernel.MaxDelay), errors.ErrWouldBlock)
	s.SwitchContext()

	q.Reset()
	assert.Equal(t, uint(0), q.MessagesWaiting())
	assert.Equal(t, kernel.Ready, s.State(task))

	s.SwitchContext()
	assert.Equal(t, task, s.Current())
	require.NoError(t, q.Send(2, 0))
}

func TestDeleteQueue(t *testing.T) {
	s := newScheduler()
	task := mustCreate(t, s, "receiver", 1)

	q, err := New[int](s, "q", 1)
	require.NoError(t, err)

	s.Start()
	_, err = q.Receive(kernel.MaxDelay)
	require.ErrorIs(t, err, errors.ErrWouldBlock)

	assert.ErrorIs(t, q.Delete(), errors.ErrQueueInUse)

	require.NoError(t, s.DeleteTask(task))
	assert.Equal(t, uint(0), q.Info().WaitingToReceive)
	assert.NoError(t, q.Delete())
}

func TestDeletedQueueRefusesCalls(t *testing.T) {
	s := newScheduler()
	mustCreate(t, s, "worker", 1)

	q, err := New[int](s, "q", 2)
	require.NoError(t, err)
	require.NoError(t, q.Delete())

	s.Start()

	tests := []struct {
		name string
		call func() error
	}{
		{"Send", func() error { return q.Send(1, kernel.MaxDelay) }},
		{"SendToFront", func() error { return q.SendToFront(1, 5) }},
		{"SendFromISR", func() error { _, err := q.SendFromISR(1); return err }},
		{"Receive", func() error { _, err := q.Receive(kernel.MaxDelay); return err }},
		{"ReceiveFromISR", func() error { _, _, err := q.ReceiveFromISR(); return err }},
		{"Peek", func() error { _, err := q.Peek(); return err }},
		{"Delete", q.Delete},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.call(), errors.ErrQueueDeleted)

			senders, receivers := q.Waiters()
			assert.Empty(t, senders)
			assert.Empty(t, receivers)
			assert.Equal(t, kernel.Running, s.State(s.Current()))
		})
	}

	q.Reset()
	assert.Equal(t, uint(0), q.MessagesWaiting())
}

func TestQueueMetrics(t *testing.T) {
	m := metrics.NewPrometheusMetrics(prometheus.NewRegistry(), "rtos", "scheduler")
	s := newScheduler()

	q, err := New[int](s, "jobs", 4, WithMetrics(m))
	require.NoError(t, err)

	require.NoError(t, q.Send(1, 0))
	require.NoError(t, q.Send(2, 0))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.QueueMessages.WithLabelValues("jobs")))

	_, err = q.Receive(0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueueMessages.WithLabelValues("jobs")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.QueueWaiters.WithLabelValues("jobs", "receive")))

	_, err = q.Receive(0)
	require.NoError(t, err)
	require.NoError(t, q.Delete())
	assert.Equal(t, 0, testutil.CollectAndCount(m.QueueMessages))
}

func BenchmarkSendReceive(b *testing.B) {
	q, _ := New[int](newScheduler(), "bench", 64)

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_ = q.Send(i, 0)
		_, _ = q.Receive(0)
	}
}
