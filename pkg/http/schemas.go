package http

type TaskBody struct {
	Number   uint64 `json:"number" example:"2" doc:"Task number"`
	Name     string `json:"name" example:"sensor" doc:"Name of the task"`
	Kind     string `json:"kind" example:"periodic" doc:"Workload the task runs"`
	State    string `json:"state" example:"ready" doc:"Scheduling state of the task"`
	Priority uint   `json:"priority" example:"2" doc:"Priority of the task"`
	WakeTick uint32 `json:"wake_tick,omitempty" example:"1200" doc:"Tick at which a delayed task wakes"`
	Waiting  bool   `json:"waiting" doc:"Whether the task waits on a queue"`
	Runs     uint64 `json:"runs" example:"42" doc:"How many times the workload completed"`
}

type TaskInput struct {
	Number uint64 `path:"number" example:"2" doc:"Task number"`
}

type TaskOutput struct {
	Status int
	Body   TaskBody
}

type TasksOutputBody struct {
	Tasks []TaskBody `json:"tasks" doc:"List of tasks"`
}

type TasksOutput struct {
	Status int
	Body   TasksOutputBody
}

type CreateTaskInputBody struct {
	Name     string `json:"name" maxLength:"64" example:"sensor" doc:"Name of the task"`
	Kind     string `json:"kind" enum:"periodic,producer,consumer" example:"periodic" doc:"Workload the task runs"`
	Priority uint   `json:"priority" example:"2" doc:"Priority of the task"`
	Period   uint32 `json:"period,omitempty" example:"100" doc:"Period in ticks of periodic tasks and producers"`
	Queue    string `json:"queue,omitempty" example:"jobs" doc:"Queue used by producers and consumers"`
	Timeout  uint32 `json:"timeout,omitempty" example:"20" doc:"Ticks to wait on the queue, 0 waits forever"`
}

type CreateTaskInput struct {
	Body CreateTaskInputBody
}

type DeleteTaskOutputBody struct {
	Status string `json:"status" example:"DELETED" doc:"Status of the delete operation"`
	Number uint64 `json:"number" example:"2" doc:"Task number"`
}

type DeleteTaskOutput struct {
	Status int
	Body   DeleteTaskOutputBody
}

type TaskActionOutputBody struct {
	Status string `json:"status" example:"SUSPENDED" doc:"Status of the operation"`
	Number uint64 `json:"number" example:"2" doc:"Task number"`
}

type TaskActionOutput struct {
	Status int
	Body   TaskActionOutputBody
}

type SetPriorityInputBody struct {
	Priority uint `json:"priority" example:"3" doc:"New priority of the task"`
}

type SetPriorityInput struct {
	Number uint64 `path:"number" example:"2" doc:"Task number"`
	Body   SetPriorityInputBody
}

type SchedulerOutputBody struct {
	Tick               uint32  `json:"tick" example:"1200" doc:"Current tick count"`
	Current            string  `json:"current" example:"sensor" doc:"Name of the running task"`
	Ready              []uint  `json:"ready" doc:"Number of ready tasks per priority"`
	Delayed            uint    `json:"delayed" doc:"Tasks in the delayed list"`
	OverflowDelayed    uint    `json:"overflow_delayed" doc:"Tasks delayed past the next tick count overflow"`
	Suspended          uint    `json:"suspended" doc:"Tasks in the suspended list"`
	PendingReady       uint    `json:"pending_ready" doc:"Tasks readied while the scheduler was suspended"`
	Terminating        uint    `json:"terminating" doc:"Deleted tasks waiting to be reaped"`
	NextUnblock        uint32  `json:"next_unblock" doc:"Tick at which the next delayed task wakes"`
	SchedulerSuspended bool    `json:"scheduler_suspended" doc:"Whether context switches are held off"`
	TickRate           float64 `json:"tick_rate" doc:"Ticks per second"`
	SwitchRate         float64 `json:"switch_rate" doc:"Context switches per second"`
	WakeRate           float64 `json:"wake_rate" doc:"Task wakeups per second"`
	BlockRate          float64 `json:"block_rate" doc:"Task blocks per second"`
}

type SchedulerOutput struct {
	Status int
	Body   SchedulerOutputBody
}

type QueueBody struct {
	Name             string `json:"name" example:"jobs" doc:"Name of the queue"`
	Length           uint   `json:"length" example:"8" doc:"Capacity of the queue"`
	Messages         uint   `json:"messages" example:"3" doc:"Items waiting in the queue"`
	WaitingToSend    uint   `json:"waiting_to_send" doc:"Tasks blocked sending to the queue"`
	WaitingToReceive uint   `json:"waiting_to_receive" doc:"Tasks blocked receiving from the queue"`
}

type QueueInput struct {
	QueueName string `path:"queue_name" maxLength:"1024" example:"jobs" doc:"Name of the queue"`
}

type QueueOutput struct {
	Status int
	Body   QueueBody
}

type QueuesOutputBody struct {
	Queues []QueueBody `json:"queues" doc:"List of queues"`
}

type QueuesOutput struct {
	Status int
	Body   QueuesOutputBody
}

type CreateQueueInputBody struct {
	Name   string `json:"name" maxLength:"1024" example:"jobs" doc:"Name of the queue"`
	Length uint   `json:"length" minimum:"1" example:"8" doc:"Capacity of the queue"`
}

type CreateQueueInput struct {
	Body CreateQueueInputBody
}

type CreateQueueOutputBody struct {
	Status string `json:"status" example:"CREATED" doc:"Status of the create operation"`
	Name   string `json:"name" example:"jobs" doc:"Name of the queue"`
}

type CreateQueueOutput struct {
	Status int
	Body   CreateQueueOutputBody
}

type DeleteQueueOutputBody struct {
	Status string `json:"status" example:"DELETED" doc:"Status of the delete operation"`
}

type DeleteQueueOutput struct {
	Status int
	Body   DeleteQueueOutputBody
}

type TraceInput struct {
	Limit  int    `query:"limit" minimum:"1" maximum:"1000" default:"100" doc:"Maximum number of events"`
	LastID uint64 `query:"last_id" doc:"Return events after this ID"`
	Latest bool   `query:"latest" doc:"Return the most recent events, newest first"`
}

type TraceEventBody struct {
	ID         uint64 `json:"id" doc:"Event ID"`
	Tick       uint32 `json:"tick" doc:"Tick at which the event happened"`
	Kind       string `json:"kind" example:"switch" doc:"Kind of the event"`
	Task       string `json:"task" example:"sensor" doc:"Name of the task"`
	TaskNumber uint64 `json:"task_number" doc:"Task number"`
	Priority   uint   `json:"priority" doc:"Priority of the task"`
	Detail     string `json:"detail,omitempty" doc:"Event details"`
}

type TraceOutputBody struct {
	Events []TraceEventBody `json:"events" doc:"Trace events"`
}

type TraceOutput struct {
	Status int
	Body   TraceOutputBody
}
