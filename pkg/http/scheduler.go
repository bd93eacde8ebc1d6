package http

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/kgantsov/rtos/pkg/trace"
)

func (h *Handler) Scheduler(ctx context.Context, input *struct{}) (*SchedulerOutput, error) {
	snap := h.kernel.Snapshot()
	rates := h.kernel.Rates()

	res := &SchedulerOutput{
		Status: http.StatusOK,
		Body: SchedulerOutputBody{
			Tick:               uint32(snap.Tick),
			Current:            snap.Current,
			Ready:              snap.Ready,
			Delayed:            snap.Delayed,
			OverflowDelayed:    snap.OverflowDelayed,
			Suspended:          snap.Suspended,
			PendingReady:       snap.PendingReady,
			Terminating:        snap.Terminating,
			NextUnblock:        uint32(snap.NextUnblock),
			SchedulerSuspended: snap.SchedulerSuspended,
			TickRate:           rates.TickRate,
			SwitchRate:         rates.SwitchRate,
			WakeRate:           rates.WakeRate,
			BlockRate:          rates.BlockRate,
		},
	}
	return res, nil
}

func (h *Handler) Trace(ctx context.Context, input *TraceInput) (*TraceOutput, error) {
	if h.traces == nil {
		return nil, huma.Error503ServiceUnavailable("Tracing is disabled")
	}

	limit := input.Limit
	if limit <= 0 {
		limit = 100
	}

	var err error
	var events []*trace.Event
	if input.Latest {
		events, err = h.traces.Latest(limit)
	} else {
		events, err = h.traces.Events(limit, input.LastID)
	}
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to read trace events", err)
	}

	body := TraceOutputBody{Events: make([]TraceEventBody, 0, len(events))}
	for _, ev := range events {
		body.Events = append(body.Events, TraceEventBody{
			ID:         ev.ID,
			Tick:       ev.Tick,
			Kind:       string(ev.Kind),
			Task:       ev.Task,
			TaskNumber: ev.TaskNumber,
			Priority:   ev.Priority,
			Detail:     ev.Detail,
		})
	}

	return &TraceOutput{Status: http.StatusOK, Body: body}, nil
}
