package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	// AssignedByEngine is recorded as the author of engine-made assignments.
	AssignedByEngine = "AI System"

	// DefaultAssignmentReason is used when no richer explanation is available.
	DefaultAssignmentReason = "AI assigned based on skill match and workload analysis"

	// UnassignedLabel is shown in place of a user for unresolved tasks.
	UnassignedLabel = "Unassigned"
)

// AssignmentRecord is the engine's verdict for one task.
// UserID is uuid.Nil when the task stays unassigned.
type AssignmentRecord struct {
	TaskID     uuid.UUID  `json:"task_id"`
	TaskTitle  string     `json:"task_title"`
	UserID     uuid.UUID  `json:"user_id"`
	UserName   string     `json:"user_name"`
	Priority   Priority   `json:"priority"`
	Deadline   *time.Time `json:"deadline,omitempty"`
	Confidence float64    `json:"confidence"`
	Score      float64    `json:"score"`
	LoadCost   float64    `json:"load_cost"`
}

// IsAssigned reports whether the record names a user.
func (r AssignmentRecord) IsAssigned() bool {
	return r.UserID != uuid.Nil
}

// AssigneeLabel returns the user name, or UnassignedLabel.
func (r AssignmentRecord) AssigneeLabel() string {
	if !r.IsAssigned() {
		return UnassignedLabel
	}
	return r.UserName
}

// Assignment is a persisted assignment made during a run.
type Assignment struct {
	ID               uuid.UUID  `json:"id"`
	RunID            uuid.UUID  `json:"run_id"`
	TaskID           uuid.UUID  `json:"task_id"`
	UserID           uuid.UUID  `json:"user_id"`
	ConfidenceScore  float64    `json:"confidence_score"`
	Priority         Priority   `json:"priority"`
	Deadline         *time.Time `json:"deadline,omitempty"`
	Reason           string     `json:"reason"`
	AssignedBy       string     `json:"assigned_by"`
	NotificationSent bool       `json:"notification_sent"`
	AssignedAt       time.Time  `json:"assigned_at"`

	// LoadCost is the workload added to the user by this assignment. It is
	// given back once, when ReleasedAt is set.
	LoadCost   float64    `json:"load_cost"`
	ReleasedAt *time.Time `json:"released_at,omitempty"`
}

// NewAssignment converts an assigned record into a persistable Assignment.
func NewAssignment(runID uuid.UUID, rec AssignmentRecord, reason string, now time.Time) (*Assignment, error) {
	if reason == "" {
		reason = DefaultAssignmentReason
	}

	a := &Assignment{
		ID:              uuid.New(),
		RunID:           runID,
		TaskID:          rec.TaskID,
		UserID:          rec.UserID,
		ConfidenceScore: rec.Confidence,
		Priority:        rec.Priority,
		Deadline:        rec.Deadline,
		Reason:          reason,
		AssignedBy:      AssignedByEngine,
		AssignedAt:      now.UTC(),
		LoadCost:        rec.LoadCost,
	}

	if err := a.Validate(); err != nil {
		return nil, err
	}

	return a, nil
}

// Validate checks if the Assignment has valid data.
func (a *Assignment) Validate() error {
	key := a.TaskID.String()

	if a.ID == uuid.Nil {
		return NewInputError(KindAssignment, key, "id", "cannot be empty")
	}
	if a.RunID == uuid.Nil {
		return NewInputError(KindAssignment, key, "run_id", "cannot be empty")
	}
	if a.TaskID == uuid.Nil {
		return NewInputError(KindAssignment, key, "task_id", "cannot be empty")
	}
	if a.UserID == uuid.Nil {
		return NewInputError(KindAssignment, key, "user_id", "cannot be empty")
	}
	if !isFinite(a.ConfidenceScore) || a.ConfidenceScore <= 0 || a.ConfidenceScore > 1 {
		return NewInputError(KindAssignment, key, "confidence_score", "must be in (0, 1]")
	}
	if a.Priority.Rank() < 0 {
		return NewInputError(KindAssignment, key, "priority", "is not a valid priority")
	}
	if !isFinite(a.LoadCost) || a.LoadCost < 0 {
		return NewInputError(KindAssignment, key, "load_cost", "must be a non-negative number")
	}

	return nil
}

// IsActive reports whether the assignment still holds workload.
func (a *Assignment) IsActive() bool {
	return a.ReleasedAt == nil
}

// AssignmentRun summarises one execution of the assignment engine.
type AssignmentRun struct {
	ID                  uuid.UUID  `json:"id"`
	StartedAt           time.Time  `json:"started_at"`
	FinishedAt          *time.Time `json:"finished_at,omitempty"`
	TotalTasks          int        `json:"total_tasks"`
	AssignedTasks       int        `json:"assigned_tasks"`
	UnassignedTasks     int        `json:"unassigned_tasks"`
	RejectedRecords     int        `json:"rejected_records"`
	NotificationsQueued int        `json:"notifications_queued"`
}

// NewAssignmentRun starts a run at now.
func NewAssignmentRun(now time.Time) *AssignmentRun {
	return &AssignmentRun{
		ID:        uuid.New(),
		StartedAt: now.UTC(),
	}
}

// Tally fills the run counters from the engine output.
func (r *AssignmentRun) Tally(records []AssignmentRecord, rejected int) {
	r.TotalTasks = len(records)
	r.AssignedTasks = 0
	for _, rec := range records {
		if rec.IsAssigned() {
			r.AssignedTasks++
		}
	}
	r.UnassignedTasks = r.TotalTasks - r.AssignedTasks
	r.RejectedRecords = rejected
}
