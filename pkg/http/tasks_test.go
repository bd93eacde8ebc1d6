package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/kgantsov/rtos/pkg/config"
	"github.com/kgantsov/rtos/pkg/errors"
	"github.com/kgantsov/rtos/pkg/kernel"
	"github.com/kgantsov/rtos/pkg/mocks"
	"github.com/kgantsov/rtos/pkg/sim"
	"github.com/stretchr/testify/assert"
)

type ErrorOutput struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

func sensorInfo() sim.TaskInfo {
	return sim.TaskInfo{
		TaskStatus: kernel.TaskStatus{
			Number:   2,
			Name:     "sensor",
			State:    kernel.Blocked,
			Priority: 2,
			WakeTick: 300,
		},
		Kind: sim.KindPeriodic,
		Runs: 3,
	}
}

func TestTasks(t *testing.T) {
	_, api := humatest.New(t)

	mockKernel := mocks.NewMockKernel()
	h := &Handler{kernel: mockKernel}

	h.RegisterRoutes(api)

	idle := sim.TaskInfo{
		TaskStatus: kernel.TaskStatus{Number: 1, Name: "IDLE", State: kernel.Running},
		Kind:       "idle",
	}
	mockKernel.On("Tasks").Return([]sim.TaskInfo{idle, sensorInfo()})

	resp := api.Get("/API/v1/tasks")

	tasksOutput := &TasksOutputBody{}
	json.Unmarshal(resp.Body.Bytes(), tasksOutput)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, tasksOutput.Tasks, 2)
	assert.Equal(t, "IDLE", tasksOutput.Tasks[0].Name)
	assert.Equal(t, "running", tasksOutput.Tasks[0].State)
	assert.Equal(t, "sensor", tasksOutput.Tasks[1].Name)
	assert.Equal(t, "blocked", tasksOutput.Tasks[1].State)
	assert.Equal(t, uint32(300), tasksOutput.Tasks[1].WakeTick)
	assert.Equal(t, uint64(3), tasksOutput.Tasks[1].Runs)
}

func TestTask(t *testing.T) {
	tests := []struct {
		name         string
		number       uint64
		info         sim.TaskInfo
		err          error
		expectedCode int
	}{
		{
			name:         "Found",
			number:       2,
			info:         sensorInfo(),
			expectedCode: http.StatusOK,
		},
		{
			name:         "Not found",
			number:       7,
			err:          errors.ErrTaskNotFound,
			expectedCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, api := humatest.New(t)

			mockKernel := mocks.NewMockKernel()
			h := &Handler{kernel: mockKernel}
			h.RegisterRoutes(api)

			mockKernel.On("Task", tt.number).Return(tt.info, tt.err)

			resp := api.Get("/API/v1/tasks/" + strconv.FormatUint(tt.number, 10))
			assert.Equal(t, tt.expectedCode, resp.Code)

			if tt.err == nil {
				taskOutput := &TaskBody{}
				json.Unmarshal(resp.Body.Bytes(), taskOutput)
				assert.Equal(t, tt.info.Name, taskOutput.Name)
				assert.Equal(t, tt.info.Kind, taskOutput.Kind)
			} else {
				errorOutput := &ErrorOutput{}
				json.Unmarshal(resp.Body.Bytes(), errorOutput)
				assert.Equal(t, tt.expectedCode, errorOutput.Status)
				assert.Equal(t, "Failed to get a task", errorOutput.Detail)
			}
		})
	}
}

func TestCreateTask(t *testing.T) {
	tests := []struct {
		name         string
		body         map[string]any
		cfg          config.TaskConfig
		err          error
		expectedCode int
	}{
		{
			name: "Periodic",
			body: map[string]any{"name": "sensor", "kind": "periodic", "priority": 2, "period": 100},
			cfg: config.TaskConfig{
				Name: "sensor", Kind: "periodic", Priority: 2, Period: 100,
			},
			expectedCode: http.StatusCreated,
		},
		{
			name: "Consumer of a missing queue",
			body: map[string]any{"name": "cons", "kind": "consumer", "priority": 1, "queue": "jobs"},
			cfg: config.TaskConfig{
				Name: "cons", Kind: "consumer", Priority: 1, Queue: "jobs",
			},
			err:          errors.ErrQueueNotFound,
			expectedCode: http.StatusNotFound,
		},
		{
			name: "Invalid priority",
			body: map[string]any{"name": "sensor", "kind": "periodic", "priority": 20, "period": 5},
			cfg: config.TaskConfig{
				Name: "sensor", Kind: "periodic", Priority: 20, Period: 5,
			},
			err:          errors.ErrInvalidPriority,
			expectedCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, api := humatest.New(t)

			mockKernel := mocks.NewMockKernel()
			h := &Handler{kernel: mockKernel}
			h.RegisterRoutes(api)

			mockKernel.On("CreateTask", tt.cfg).Return(sensorInfo(), tt.err)

			resp := api.Post("/API/v1/tasks", tt.body)
			assert.Equal(t, tt.expectedCode, resp.Code)
			mockKernel.AssertExpectations(t)
		})
	}
}

func TestCreateTaskValidation(t *testing.T) {
	_, api := humatest.New(t)

	mockKernel := mocks.NewMockKernel()
	h := &Handler{kernel: mockKernel}
	h.RegisterRoutes(api)

	resp := api.Post("/API/v1/tasks", map[string]any{"name": "x", "kind": "sporadic", "priority": 1})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	mockKernel.AssertNotCalled(t, "CreateTask")
}

func TestDeleteTask(t *testing.T) {
	_, api := humatest.New(t)

	mockKernel := mocks.NewMockKernel()
	h := &Handler{kernel: mockKernel}
	h.RegisterRoutes(api)

	mockKernel.On("DeleteTask", uint64(2)).Return(nil)
	mockKernel.On("DeleteTask", uint64(1)).Return(errors.ErrIdleTask)

	resp := api.Delete("/API/v1/tasks/2")

	deleteOutput := &DeleteTaskOutputBody{}
	json.Unmarshal(resp.Body.Bytes(), deleteOutput)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "DELETED", deleteOutput.Status)
	assert.Equal(t, uint64(2), deleteOutput.Number)

	resp = api.Delete("/API/v1/tasks/1")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSuspendResumeTask(t *testing.T) {
	_, api := humatest.New(t)

	mockKernel := mocks.NewMockKernel()
	h := &Handler{kernel: mockKernel}
	h.RegisterRoutes(api)

	mockKernel.On("SuspendTask", uint64(2)).Return(nil)
	mockKernel.On("ResumeTask", uint64(2)).Return(nil).Once()
	mockKernel.On("ResumeTask", uint64(2)).Return(errors.ErrNotSuspended)

	resp := api.Post("/API/v1/tasks/2/suspend", map[string]any{})
	actionOutput := &TaskActionOutputBody{}
	json.Unmarshal(resp.Body.Bytes(), actionOutput)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "SUSPENDED", actionOutput.Status)

	resp = api.Post("/API/v1/tasks/2/resume", map[string]any{})
	json.Unmarshal(resp.Body.Bytes(), actionOutput)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "RESUMED", actionOutput.Status)

	resp = api.Post("/API/v1/tasks/2/resume", map[string]any{})
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestSetTaskPriority(t *testing.T) {
	_, api := humatest.New(t)

	mockKernel := mocks.NewMockKernel()
	h := &Handler{kernel: mockKernel}
	h.RegisterRoutes(api)

	updated := sensorInfo()
	updated.Priority = 4

	mockKernel.On("SetTaskPriority", uint64(2), uint(4)).Return(nil)
	mockKernel.On("Task", uint64(2)).Return(updated, nil)
	mockKernel.On("SetTaskPriority", uint64(3), uint(4)).Return(errors.ErrTaskNotFound)

	resp := api.Put("/API/v1/tasks/2/priority", map[string]any{"priority": 4})

	taskOutput := &TaskBody{}
	json.Unmarshal(resp.Body.Bytes(), taskOutput)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, uint(4), taskOutput.Priority)

	resp = api.Put("/API/v1/tasks/3/priority", map[string]any{"priority": 4})
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
