package eventbus

// TaskCreatedPayload is the schema for tasks.created events.
type TaskCreatedPayload struct {
	TaskID     string `json:"task_id"`
	Title      string `json:"title"`
	CreatedBy  string `json:"created_by"`
	AssignedTo string `json:"assigned_to,omitempty"`
}

// TaskAssignedPayload is the schema for tasks.assigned events.
type TaskAssignedPayload struct {
	TaskID  string `json:"task_id"`
	AgentID string `json:"agent_id"`
	Score   int    `json:"score"`
}

// TaskStartedPayload is the schema for tasks.started events.
type TaskStartedPayload struct {
	TaskID  string `json:"task_id"`
	AgentID string `json:"agent_id"`
}

// TaskProgressPayload is the schema for tasks.progress events.
type TaskProgressPayload struct {
	TaskID  string `json:"task_id"`
	AgentID string `json:"agent_id"`
	Kind    string `json:"kind"` // "tool-use", "thinking", "text", "processing"
	Summary string `json:"summary"`
}

// TaskCompletedPayload is the schema for tasks.completed events.
type TaskCompletedPayload struct {
	TaskID     string `json:"task_id"`
	AgentID    string `json:"agent_id"`
	Success    bool   `json:"success"`
	Output     string `json:"output,omitempty"`
	Error      string `json:"error,omitempty"`
	TokensIn   int    `json:"tokens_in"`
	TokensOut  int    `json:"tokens_out"`
	DurationMs int64  `json:"duration_ms"`
}

// SessionStartedPayload is the schema for sessions.started events.
type SessionStartedPayload struct {
	AgentID   string `json:"agent_id"`
	PID       int    `json:"pid,omitempty"`
	Sandboxed bool   `json:"sandboxed"`
}

// SessionExitedPayload is the schema for sessions.exited events.
type SessionExitedPayload struct {
	AgentID    string `json:"agent_id"`
	ExitCode   int    `json:"exit_code"`
	LastOutput string `json:"last_output,omitempty"`
}

// ScheduleFiredPayload is the schema for schedules.fired events.
type ScheduleFiredPayload struct {
	ScheduleID string `json:"schedule_id"`
	Name       string `json:"name"`
	TaskID     string `json:"task_id"`
}
