package mocks

import (
	"github.com/kgantsov/rtos/pkg/config"
	"github.com/kgantsov/rtos/pkg/kernel"
	"github.com/kgantsov/rtos/pkg/metrics"
	"github.com/kgantsov/rtos/pkg/queue"
	"github.com/kgantsov/rtos/pkg/sim"
	"github.com/kgantsov/rtos/pkg/trace"
	"github.com/stretchr/testify/mock"
)

type mockKernel struct {
	mock.Mock
}

func NewMockKernel() *mockKernel {
	return &mockKernel{}
}

func (k *mockKernel) Tasks() []sim.TaskInfo {
	args := k.Called()
	return args.Get(0).([]sim.TaskInfo)
}

func (k *mockKernel) Task(number uint64) (sim.TaskInfo, error) {
	args := k.Called(number)
	return args.Get(0).(sim.TaskInfo), args.Error(1)
}

func (k *mockKernel) CreateTask(cfg config.TaskConfig) (sim.TaskInfo, error) {
	args := k.Called(cfg)
	return args.Get(0).(sim.TaskInfo), args.Error(1)
}

func (k *mockKernel) DeleteTask(number uint64) error {
	args := k.Called(number)
	return args.Error(0)
}

func (k *mockKernel) SuspendTask(number uint64) error {
	args := k.Called(number)
	return args.Error(0)
}

func (k *mockKernel) ResumeTask(number uint64) error {
	args := k.Called(number)
	return args.Error(0)
}

func (k *mockKernel) SetTaskPriority(number uint64, priority uint) error {
	args := k.Called(number, priority)
	return args.Error(0)
}

func (k *mockKernel) Snapshot() kernel.Snapshot {
	args := k.Called()
	return args.Get(0).(kernel.Snapshot)
}

func (k *mockKernel) Rates() metrics.Stats {
	args := k.Called()
	return args.Get(0).(metrics.Stats)
}

func (k *mockKernel) Queues() []queue.Info {
	args := k.Called()
	return args.Get(0).([]queue.Info)
}

func (k *mockKernel) Queue(name string) (queue.Info, error) {
	args := k.Called(name)
	return args.Get(0).(queue.Info), args.Error(1)
}

func (k *mockKernel) CreateQueue(name string, length uint) error {
	args := k.Called(name, length)
	return args.Error(0)
}

func (k *mockKernel) DeleteQueue(name string) error {
	args := k.Called(name)
	return args.Error(0)
}

type mockTraceStore struct {
	mock.Mock
}

func NewMockTraceStore() *mockTraceStore {
	return &mockTraceStore{}
}

func (s *mockTraceStore) Events(limit int, lastID uint64) ([]*trace.Event, error) {
	args := s.Called(limit, lastID)
	return args.Get(0).([]*trace.Event), args.Error(1)
}

func (s *mockTraceStore) Latest(limit int) ([]*trace.Event, error) {
	args := s.Called(limit)
	return args.Get(0).([]*trace.Event), args.Error(1)
}
