package http

import (
	"context"
	"net/http"

	"github.com/kgantsov/rtos/pkg/config"
)

func (h *Handler) Tasks(ctx context.Context, input *struct{}) (*TasksOutput, error) {
	tasks := h.kernel.Tasks()

	body := TasksOutputBody{Tasks: make([]TaskBody, 0, len(tasks))}
	for _, info := range tasks {
		body.Tasks = append(body.Tasks, taskBody(info))
	}

	return &TasksOutput{Status: http.StatusOK, Body: body}, nil
}

func (h *Handler) Task(ctx context.Context, input *TaskInput) (*TaskOutput, error) {
	info, err := h.kernel.Task(input.Number)
	if err != nil {
		return nil, kernelError("Failed to get a task", err)
	}

	return &TaskOutput{Status: http.StatusOK, Body: taskBody(info)}, nil
}

func (h *Handler) CreateTask(ctx context.Context, input *CreateTaskInput) (*TaskOutput, error) {
	info, err := h.kernel.CreateTask(config.TaskConfig{
		Name:     input.Body.Name,
		Kind:     input.Body.Kind,
		Priority: input.Body.Priority,
		Period:   input.Body.Period,
		Queue:    input.Body.Queue,
		Timeout:  input.Body.Timeout,
	})
	if err != nil {
		return nil, kernelError("Failed to create a task", err)
	}

	return &TaskOutput{Status: http.StatusCreated, Body: taskBody(info)}, nil
}

func (h *Handler) DeleteTask(ctx context.Context, input *TaskInput) (*DeleteTaskOutput, error) {
	if err := h.kernel.DeleteTask(input.Number); err != nil {
		return nil, kernelError("Failed to delete a task", err)
	}

	res := &DeleteTaskOutput{
		Status: http.StatusOK,
		Body: DeleteTaskOutputBody{
			Status: "DELETED",
			Number: input.Number,
		},
	}
	return res, nil
}

func (h *Handler) SuspendTask(ctx context.Context, input *TaskInput) (*TaskActionOutput, error) {
	if err := h.kernel.SuspendTask(input.Number); err != nil {
		return nil, kernelError("Failed to suspend a task", err)
	}

	res := &TaskActionOutput{
		Status: http.StatusOK,
		Body: TaskActionOutputBody{
			Status: "SUSPENDED",
			Number: input.Number,
		},
	}
	return res, nil
}

func (h *Handler) ResumeTask(ctx context.Context, input *TaskInput) (*TaskActionOutput, error) {
	if err := h.kernel.ResumeTask(input.Number); err != nil {
		return nil, kernelError("Failed to resume a task", err)
	}

	res := &TaskActionOutput{
		Status: http.StatusOK,
		Body: TaskActionOutputBody{
			Status: "RESUMED",
			Number: input.Number,
		},
	}
	return res, nil
}

func (h *Handler) SetTaskPriority(ctx context.Context, input *SetPriorityInput) (*TaskOutput, error) {
	if err := h.kernel.SetTaskPriority(input.Number, input.Body.Priority); err != nil {
		return nil, kernelError("Failed to update the priority of a task", err)
	}

	info, err := h.kernel.Task(input.Number)
	if err != nil {
		return nil, kernelError("Failed to get a task", err)
	}

	return &TaskOutput{Status: http.StatusOK, Body: taskBody(info)}, nil
}
