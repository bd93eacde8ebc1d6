package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humafiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/kgantsov/rtos/pkg/config"
	"github.com/kgantsov/rtos/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
)

// Service provides HTTP service.
type Service struct {
	api    huma.API
	router *fiber.App
	h      *Handler
	addr   string
}

// NewHttpService returns the inspection API of a running kernel. traces may
// be nil when tracing is disabled.
func NewHttpService(
	config *config.Config, kernel Kernel, traces TraceStore, registry prometheus.Registerer,
) *Service {
	router := fiber.New(fiber.Config{DisableStartupMessage: true})

	api := humafiber.New(
		router, huma.DefaultConfig("RTOS scheduler inspection API", "1.0.0"),
	)

	h := &Handler{
		kernel: kernel,
		traces: traces,
		config: config,
	}
	h.ConfigureMiddleware(router, registry)
	h.RegisterRoutes(api)

	return &Service{
		api:    api,
		router: router,
		h:      h,
		addr:   config.Http.Port,
	}
}

func (h *Handler) ConfigureMiddleware(router *fiber.App, registry prometheus.Registerer) {
	router.Use(logger.RequestLoggerMiddleware())

	router.Use(healthcheck.New())
	router.Use(helmet.New())

	router.Use(requestid.New())

	if h.config.Prometheus.Enabled {
		prom := fiberprometheus.NewWithRegistry(
			registry, "rtos", "rtos", "http", map[string]string{},
		)
		prom.RegisterAt(router, "/metrics")
		router.Use(prom.Middleware)
	}

	router.Get("/service/metrics", monitor.New())
	router.Use(recover.New())
}

func (h *Handler) RegisterRoutes(api huma.API) {
	huma.Register(
		api,
		huma.Operation{
			OperationID: "tasks",
			Method:      http.MethodGet,
			Path:        "/API/v1/tasks",
			Summary:     "List of tasks",
			Description: "Get every live task with its scheduling state",
			Tags:        []string{"Tasks"},
		},
		h.Tasks,
	)
	huma.Register(
		api,
		huma.Operation{
			OperationID:   "create-task",
			Method:        http.MethodPost,
			Path:          "/API/v1/tasks",
			Summary:       "Create a task",
			Description:   "Create a periodic, producer or consumer task",
			Tags:          []string{"Tasks"},
			DefaultStatus: http.StatusCreated,
		},
		h.CreateTask,
	)
	huma.Register(
		api,
		huma.Operation{
			OperationID: "task",
			Method:      http.MethodGet,
			Path:        "/API/v1/tasks/{number}",
			Summary:     "Get a task",
			Description: "Get a task by its number",
			Tags:        []string{"Tasks"},
		},
		h.Task,
	)
	huma.Register(
		api,
		huma.Operation{
			OperationID: "delete-task",
			Method:      http.MethodDelete,
			Path:        "/API/v1/tasks/{number}",
			Summary:     "Delete a task",
			Description: "Remove a task from every list it is linked into",
			Tags:        []string{"Tasks"},
		},
		h.DeleteTask,
	)
	huma.Register(
		api,
		huma.Operation{
			OperationID: "suspend-task",
			Method:      http.MethodPost,
			Path:        "/API/v1/tasks/{number}/suspend",
			Summary:     "Suspend a task",
			Description: "Move a task to the suspended list until it is resumed",
			Tags:        []string{"Tasks"},
		},
		h.SuspendTask,
	)
	huma.Register(
		api,
		huma.Operation{
			OperationID: "resume-task",
			Method:      http.MethodPost,
			Path:        "/API/v1/tasks/{number}/resume",
			Summary:     "Resume a task",
			Description: "Make a suspended task ready again",
			Tags:        []string{"Tasks"},
		},
		h.ResumeTask,
	)
	huma.Register(
		api,
		huma.Operation{
			OperationID: "task-priority",
			Method:      http.MethodPut,
			Path:        "/API/v1/tasks/{number}/priority",
			Summary:     "Update the priority of a task",
			Description: "Change the priority of a task, requeueing it if it is ready or waiting on a queue",
			Tags:        []string{"Tasks"},
		},
		h.SetTaskPriority,
	)

	huma.Register(
		api,
		huma.Operation{
			OperationID: "scheduler",
			Method:      http.MethodGet,
			Path:        "/API/v1/scheduler",
			Summary:     "Scheduler state",
			Description: "Get the occupancy of the scheduler lists and event rates",
			Tags:        []string{"Scheduler"},
		},
		h.Scheduler,
	)
	huma.Register(
		api,
		huma.Operation{
			OperationID: "trace",
			Method:      http.MethodGet,
			Path:        "/API/v1/trace",
			Summary:     "Trace events",
			Description: "Get persisted scheduling trace events",
			Tags:        []string{"Scheduler"},
		},
		h.Trace,
	)

	huma.Register(
		api,
		huma.Operation{
			OperationID: "queues",
			Method:      http.MethodGet,
			Path:        "/API/v1/queues",
			Summary:     "List of queues",
			Description: "Get the list of queues",
			Tags:        []string{"Queues"},
		},
		h.Queues,
	)
	huma.Register(
		api,
		huma.Operation{
			OperationID: "create-queue",
			Method:      http.MethodPost,
			Path:        "/API/v1/queues",
			Summary:     "Create a queue",
			Description: "Create a new queue",
			Tags:        []string{"Queues"},
		},
		h.CreateQueue,
	)
	huma.Register(
		api,
		huma.Operation{
			OperationID: "queue-info",
			Method:      http.MethodGet,
			Path:        "/API/v1/queues/{queue_name}",
			Summary:     "Info of a queue",
			Description: "Get the items and waiting tasks of a queue",
			Tags:        []string{"Queues"},
		},
		h.QueueInfo,
	)
	huma.Register(
		api,
		huma.Operation{
			OperationID: "delete-queue",
			Method:      http.MethodDelete,
			Path:        "/API/v1/queues/{queue_name}",
			Summary:     "Delete a queue",
			Description: "Delete a queue no task waits on",
			Tags:        []string{"Queues"},
		},
		h.DeleteQueue,
	)
}

// Start starts the service.
func (s *Service) Start() error {
	return s.router.Listen(fmt.Sprintf(":%s", s.addr))
}

func (s *Service) Shutdown(ctx context.Context) error {
	return s.router.ShutdownWithContext(ctx)
}
