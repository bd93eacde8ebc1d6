package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/kgantsov/rtos/pkg/kernel"
	"github.com/kgantsov/rtos/pkg/metrics"
	"github.com/kgantsov/rtos/pkg/mocks"
	"github.com/kgantsov/rtos/pkg/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestScheduler(t *testing.T) {
	_, api := humatest.New(t)

	mockKernel := mocks.NewMockKernel()
	h := &Handler{kernel: mockKernel}
	h.RegisterRoutes(api)

	mockKernel.On("Snapshot").Return(kernel.Snapshot{
		Tick:        1200,
		Current:     "sensor",
		Ready:       []uint{1, 0, 2, 0, 0},
		Delayed:     3,
		Suspended:   1,
		NextUnblock: 1210,
	})
	mockKernel.On("Rates").Return(metrics.Stats{TickRate: 1000, SwitchRate: 120.5})

	resp := api.Get("/API/v1/scheduler")

	schedulerOutput := &SchedulerOutputBody{}
	json.Unmarshal(resp.Body.Bytes(), schedulerOutput)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, uint32(1200), schedulerOutput.Tick)
	assert.Equal(t, "sensor", schedulerOutput.Current)
	assert.Equal(t, []uint{1, 0, 2, 0, 0}, schedulerOutput.Ready)
	assert.Equal(t, uint(3), schedulerOutput.Delayed)
	assert.Equal(t, uint32(1210), schedulerOutput.NextUnblock)
	assert.Equal(t, 1000.0, schedulerOutput.TickRate)
	assert.Equal(t, 120.5, schedulerOutput.SwitchRate)
}

func TestTraceDisabled(t *testing.T) {
	_, api := humatest.New(t)

	h := &Handler{kernel: mocks.NewMockKernel()}
	h.RegisterRoutes(api)

	resp := api.Get("/API/v1/trace")
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}

func TestTrace(t *testing.T) {
	events := []*trace.Event{
		{ID: 10, Tick: 1, Kind: trace.KindSwitch, Task: "sensor", TaskNumber: 2, Priority: 2},
		{ID: 11, Tick: 1, Kind: trace.KindDelay, Task: "sensor", TaskNumber: 2, Priority: 2, Detail: "100"},
	}

	tests := []struct {
		name  string
		url   string
		setup func(store *mock.Mock)
		code  int
		count int
	}{
		{
			name: "Default limit",
			url:  "/API/v1/trace",
			setup: func(store *mock.Mock) {
				store.On("Events", 100, uint64(0)).Return(events, nil)
			},
			code:  http.StatusOK,
			count: 2,
		},
		{
			name: "After an ID",
			url:  "/API/v1/trace?limit=5&last_id=10",
			setup: func(store *mock.Mock) {
				store.On("Events", 5, uint64(10)).Return(events[1:], nil)
			},
			code:  http.StatusOK,
			count: 1,
		},
		{
			name: "Latest",
			url:  "/API/v1/trace?latest=true&limit=2",
			setup: func(store *mock.Mock) {
				store.On("Latest", 2).Return([]*trace.Event{events[1], events[0]}, nil)
			},
			code:  http.StatusOK,
			count: 2,
		},
		{
			name: "Store failure",
			url:  "/API/v1/trace",
			setup: func(store *mock.Mock) {
				store.On("Events", 100, uint64(0)).Return([]*trace.Event{}, fmt.Errorf("closed"))
			},
			code: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, api := humatest.New(t)

			store := mocks.NewMockTraceStore()
			tt.setup(&store.Mock)

			h := &Handler{kernel: mocks.NewMockKernel(), traces: store}
			h.RegisterRoutes(api)

			resp := api.Get(tt.url)
			assert.Equal(t, tt.code, resp.Code)

			if tt.code == http.StatusOK {
				traceOutput := &TraceOutputBody{}
				json.Unmarshal(resp.Body.Bytes(), traceOutput)
				assert.Len(t, traceOutput.Events, tt.count)
				assert.Equal(t, "sensor", traceOutput.Events[0].Task)
			}
			store.AssertExpectations(t)
		})
	}
}
