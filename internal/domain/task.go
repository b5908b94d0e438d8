package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Task field defaults and bounds.
const (
	DefaultStoryPoints = 5
	DefaultDifficulty  = 5
	DefaultProject     = "NetApp Project"
	MaxStoryPoints     = 100
	MaxDifficulty      = 10
)

// taskNamespace seeds deterministic task IDs derived from titles.
var taskNamespace = uuid.MustParse("0b9a7c55-4f2e-4e8d-8d0c-5a61c4d2e7f3")

// TaskStatus represents the lifecycle state of a task
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// Priority is the urgency bucket predicted for a task.
type Priority string

// Priority buckets, lowest first.
const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Rank orders priorities from 0 (low) to 3 (critical); unknown values rank -1.
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 0
	case PriorityMedium:
		return 1
	case PriorityHigh:
		return 2
	case PriorityCritical:
		return 3
	default:
		return -1
	}
}

// ParsePriority matches s against the priority buckets, ignoring case.
func ParsePriority(s string) (Priority, bool) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if p.Rank() < 0 {
		return "", false
	}
	return p, true
}

// Task is a unit of work that can be assigned to a single user.
type Task struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	StoryPoints     int        `json:"story_points"`
	DifficultyLevel int        `json:"difficulty_level"`
	RequiredSkills  []string   `json:"required_skills"`
	Project         string     `json:"project"`
	Tags            []string   `json:"tags"`
	EstimatedHours  float64    `json:"estimated_hours"`
	Status          TaskStatus `json:"status"`
	Priority        Priority   `json:"priority,omitempty"`
	AssignedTo      *uuid.UUID `json:"assigned_to,omitempty"`
	Deadline        *time.Time `json:"deadline,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// NewTask creates a new pending Task with default sizing.
// Returns an error if validation fails.
func NewTask(title, description string) (*Task, error) {
	now := time.Now().UTC()
	task := &Task{
		ID:              uuid.New(),
		Title:           title,
		Description:     description,
		StoryPoints:     DefaultStoryPoints,
		DifficultyLevel: DefaultDifficulty,
		RequiredSkills:  []string{},
		Project:         DefaultProject,
		Tags:            []string{},
		Status:          TaskStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// TaskIDFromTitle returns a stable ID for a task known only by its title.
func TaskIDFromTitle(title string) uuid.UUID {
	return uuid.NewSHA1(taskNamespace, []byte(NormalizeTitle(title)))
}

// NormalizeTitle canonicalises a title for collision checks.
func NormalizeTitle(title string) string {
	return strings.ToLower(strings.Join(strings.Fields(title), " "))
}

// Validate checks if the Task has valid data. Zero story points and zero
// difficulty are accepted and mean "use the default".
func (t *Task) Validate() error {
	key := t.Title
	if key == "" {
		key = t.ID.String()
	}

	if t.ID == uuid.Nil {
		return NewInputError(KindTask, key, "id", "cannot be empty")
	}
	if strings.TrimSpace(t.Title) == "" {
		return NewInputError(KindTask, key, "title", "cannot be empty")
	}
	if strings.TrimSpace(t.Description) == "" {
		return NewInputError(KindTask, key, "description", "cannot be empty")
	}
	if t.StoryPoints != 0 && (t.StoryPoints < 1 || t.StoryPoints > MaxStoryPoints) {
		return NewInputError(KindTask, key, "story_points", "must be between 1 and 100")
	}
	if t.DifficultyLevel != 0 && (t.DifficultyLevel < 1 || t.DifficultyLevel > MaxDifficulty) {
		return NewInputError(KindTask, key, "difficulty_level", "must be between 1 and 10")
	}
	if !isFinite(t.EstimatedHours) {
		return NewInputError(KindTask, key, "estimated_hours", "must be a finite number")
	}
	if t.EstimatedHours < 0 {
		return NewInputError(KindTask, key, "estimated_hours", "cannot be negative")
	}
	for _, s := range t.RequiredSkills {
		if NormalizeSkill(s) == "" {
			return NewInputError(KindTask, key, "required_skills", "contain an empty skill name")
		}
	}
	if t.Status != "" && !isValidTaskStatus(t.Status) {
		return NewInputError(KindTask, key, "status", "is not a valid status")
	}
	if t.Priority != "" && t.Priority.Rank() < 0 {
		return NewInputError(KindTask, key, "priority", "is not a valid priority")
	}

	return nil
}

// EffectiveStoryPoints returns the story points, or the default when unset.
func (t *Task) EffectiveStoryPoints() int {
	if t.StoryPoints == 0 {
		return DefaultStoryPoints
	}
	return t.StoryPoints
}

// EffectiveDifficulty returns the difficulty level, or the default when unset.
func (t *Task) EffectiveDifficulty() int {
	if t.DifficultyLevel == 0 {
		return DefaultDifficulty
	}
	return t.DifficultyLevel
}

// IsTerminal reports whether the status ends the task lifecycle.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusCancelled
}

// TransitionTo moves the task to status to.
//
// Completed and cancelled tasks are final. A task only becomes in-progress
// through an assignment run. Moving an in-progress task back to pending
// clears its assignee and deadline so the next run can pick it up again.
// Completing a task records now as its completion time.
func (t *Task) TransitionTo(to TaskStatus, now time.Time) error {
	from := t.Status
	if from == "" {
		from = TaskStatusPending
	}
	if !isValidTaskStatus(to) {
		return NewInputError(KindTask, t.Title, "status", "is not a valid status")
	}
	if from == to {
		return nil
	}
	if from.IsTerminal() || to == TaskStatusInProgress {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, to)
	}

	switch to {
	case TaskStatusPending:
		t.AssignedTo = nil
		t.Deadline = nil
	case TaskStatusCompleted:
		done := now.UTC()
		t.CompletedAt = &done
	}
	t.Status = to
	t.UpdatedAt = now.UTC()
	return nil
}

// IsAssignable reports whether the task is pending and has no assignee.
func (t *Task) IsAssignable() bool {
	return (t.Status == "" || t.Status == TaskStatusPending) && t.AssignedTo == nil
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	c := *t
	c.RequiredSkills = append([]string(nil), t.RequiredSkills...)
	c.Tags = append([]string(nil), t.Tags...)
	if t.AssignedTo != nil {
		id := *t.AssignedTo
		c.AssignedTo = &id
	}
	if t.Deadline != nil {
		d := *t.Deadline
		c.Deadline = &d
	}
	if t.CompletedAt != nil {
		d := *t.CompletedAt
		c.CompletedAt = &d
	}
	return &c
}

// isValidTaskStatus checks if the status is one of the defined values.
func isValidTaskStatus(status TaskStatus) bool {
	switch status {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusCancelled:
		return true
	default:
		return false
	}
}
