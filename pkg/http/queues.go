package http

import (
	"context"
	"net/http"
)

func (h *Handler) Queues(ctx context.Context, input *struct{}) (*QueuesOutput, error) {
	queues := h.kernel.Queues()

	body := QueuesOutputBody{Queues: make([]QueueBody, 0, len(queues))}
	for _, info := range queues {
		body.Queues = append(body.Queues, queueBody(info))
	}

	return &QueuesOutput{Status: http.StatusOK, Body: body}, nil
}

func (h *Handler) QueueInfo(ctx context.Context, input *QueueInput) (*QueueOutput, error) {
	info, err := h.kernel.Queue(input.QueueName)
	if err != nil {
		return nil, kernelError("Failed to get a queue", err)
	}

	return &QueueOutput{Status: http.StatusOK, Body: queueBody(info)}, nil
}

func (h *Handler) CreateQueue(ctx context.Context, input *CreateQueueInput) (*CreateQueueOutput, error) {
	queueName := input.Body.Name

	if err := h.kernel.CreateQueue(queueName, input.Body.Length); err != nil {
		return nil, kernelError("Failed to create a queue", err)
	}

	res := &CreateQueueOutput{
		Status: http.StatusOK,
		Body: CreateQueueOutputBody{
			Status: "CREATED",
			Name:   queueName,
		},
	}
	return res, nil
}

func (h *Handler) DeleteQueue(ctx context.Context, input *QueueInput) (*DeleteQueueOutput, error) {
	if err := h.kernel.DeleteQueue(input.QueueName); err != nil {
		return nil, kernelError("Failed to delete a queue", err)
	}

	res := &DeleteQueueOutput{
		Status: http.StatusOK,
		Body: DeleteQueueOutputBody{
			Status: "DELETED",
		},
	}
	return res, nil
}
