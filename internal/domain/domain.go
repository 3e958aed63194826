package domain

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	StatusPending       TaskStatus = "pending"
	StatusRunning       TaskStatus = "running"
	StatusCompleted     TaskStatus = "completed"
	StatusFailed        TaskStatus = "failed"
	StatusNeedsApproval TaskStatus = "needs_approval"
)

// Display returns the human-readable status label.
func (s TaskStatus) Display() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusRunning:
		return "Running"
	case StatusCompleted:
		return "Completed"
	case StatusFailed:
		return "Failed"
	case StatusNeedsApproval:
		return "Needs Approval"
	default:
		return string(s)
	}
}

// ExecutionMode selects where a task runs.
type ExecutionMode string

const (
	ModeLocal   ExecutionMode = "local"
	ModeCluster ExecutionMode = "cluster"
)

type TaskRequest struct {
	Prompt       string         `json:"prompt"`
	SessionID    *string        `json:"session_id,omitempty"`
	Project      *string        `json:"project,omitempty"`
	WorkingDir   *string        `json:"working_dir,omitempty"`
	UserID       *string        `json:"discord_user_id,omitempty"`
	TargetUserID *string        `json:"target_user_id,omitempty"`
	Mode         *ExecutionMode `json:"mode,omitempty"`
}

type ApprovalOption struct {
	ID          string  `json:"id"`
	Label       string  `json:"label"`
	Description *string `json:"description,omitempty"`
}

type ApprovalRequest struct {
	Action      string           `json:"action"`
	Description string           `json:"description"`
	Options     []ApprovalOption `json:"options"`
}

type ApprovalSubmission struct {
	OptionID       string  `json:"option_id"`
	CustomResponse *string `json:"custom_response,omitempty"`
}

type Task struct {
	TaskID          string           `json:"task_id"`
	SessionID       string           `json:"session_id"`
	Status          TaskStatus       `json:"status"`
	Output          string           `json:"output"`
	Error           *string          `json:"error,omitempty"`
	ApprovalRequest *ApprovalRequest `json:"approval_request,omitempty"`
	CreatedAt       string           `json:"created_at" format:"date-time"`
	UpdatedAt       string           `json:"updated_at" format:"date-time"`
}

type ProjectRequest struct {
	Name        string  `json:"name"`
	Path        string  `json:"path"`
	Description *string `json:"description,omitempty"`
	UserID      string  `json:"discord_user_id"`
}

type Project struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Description string `json:"description"`
	OwnerID     string `json:"owner_id"`
	CreatedAt   string `json:"created_at" format:"date-time"`
}

type RegisterLocalRequest struct {
	DiscordID   string  `json:"discord_id"`
	DiscordName string  `json:"discord_name"`
	WrapperURL  string  `json:"wrapper_url"`
	AuthToken   *string `json:"auth_token,omitempty"`
}

type EnableClusterRequest struct {
	DiscordID   string  `json:"discord_id"`
	DiscordName string  `json:"discord_name"`
	StoragePath *string `json:"storage_path,omitempty"`
}

type SetModeRequest struct {
	Mode ExecutionMode `json:"mode"`
}

type User struct {
	DiscordID          string        `json:"discord_id"`
	DiscordName        string        `json:"discord_name"`
	LocalWrapperURL    *string       `json:"local_wrapper_url,omitempty"`
	ClusterEnabled     bool          `json:"cluster_enabled"`
	ClusterStoragePath *string       `json:"cluster_storage_path,omitempty"`
	DefaultMode        ExecutionMode `json:"default_mode"`
	CreatedAt          string        `json:"created_at" format:"date-time"`
	LastSeen           string        `json:"last_seen" format:"date-time"`
}

type Session struct {
	SessionID    string `json:"session_id"`
	TaskCount    int    `json:"task_count"`
	CreatedAt    string `json:"created_at" format:"date-time"`
	LastActivity string `json:"last_activity" format:"date-time"`
	Status       string `json:"status"`
}

type Health struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

type ShareRequest struct {
	TargetUserID string `json:"target_user_id"`
}

type ShareList struct {
	SharedWith []string `json:"shared_with"`
}

type AccessibleWrapper struct {
	OwnerID   string `json:"owner_id"`
	OwnerName string `json:"owner_name"`
	IsOwn     bool   `json:"is_own"`
}

type AccessibleWrappers struct {
	Wrappers []AccessibleWrapper `json:"wrappers"`
}
