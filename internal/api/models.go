package api

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/skillmatch-api/internal/domain"
	"github.com/phrazzld/skillmatch-api/internal/service"
)

// TokenRequest defines the payload for the development token endpoint.
type TokenRequest struct {
	SSOID string `json:"sso_id" validate:"required,max=64"`
}

// AuthResponse defines the successful response for the token endpoint.
type AuthResponse struct {
	// UserID is the unique identifier for the authenticated user
	UserID uuid.UUID `json:"user_id"`
	// AccessToken is the JWT token used for API authorization
	AccessToken string `json:"token"`
	// ExpiresAt is the ISO 8601 timestamp when the access token expires
	ExpiresAt string `json:"expires_at,omitempty"`
}

// CreateUserRequest defines the payload for creating a user. Role and
// department are checked against the supported sets by the domain.
type CreateUserRequest struct {
	SSOID           string         `json:"sso_id"           validate:"required,max=64"`
	Name            string         `json:"name"             validate:"required,max=200"`
	Email           string         `json:"email"            validate:"required,email"`
	Role            string         `json:"role"             validate:"required"`
	Department      string         `json:"department"`
	Skills          []domain.Skill `json:"skills"           validate:"dive"`
	ExperienceYears int            `json:"experience_years" validate:"gte=0,lte=50"`
	CurrentWorkload float64        `json:"current_workload" validate:"gte=0,lte=100"`
	IsAvailable     *bool          `json:"is_available"`
}

// toDomain builds a user whose ID is derived from the SSO ID.
// IsAvailable defaults to true.
func (r CreateUserRequest) toDomain(now time.Time) *domain.User {
	available := true
	if r.IsAvailable != nil {
		available = *r.IsAvailable
	}
	department := domain.Department(r.Department)
	if department == "" {
		department = domain.DepartmentEngineering
	}
	role := domain.Role(r.Role)
	if parsed, ok := domain.ParseRole(r.Role); ok {
		role = parsed
	}
	skills := r.Skills
	if skills == nil {
		skills = []domain.Skill{}
	}

	ssoID := strings.TrimSpace(r.SSOID)
	return &domain.User{
		ID:              domain.UserIDFromSSO(ssoID),
		SSOID:           ssoID,
		Name:            strings.TrimSpace(r.Name),
		Email:           strings.ToLower(strings.TrimSpace(r.Email)),
		Role:            role,
		Department:      department,
		Skills:          skills,
		ExperienceYears: r.ExperienceYears,
		CurrentWorkload: r.CurrentWorkload,
		IsAvailable:     available,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// CreateTaskRequest defines the payload for creating a task.
type CreateTaskRequest struct {
	Title           string     `json:"title"            validate:"required,max=200"`
	Description     string     `json:"description"      validate:"required"`
	StoryPoints     int        `json:"story_points"     validate:"gte=0,lte=100"`
	DifficultyLevel int        `json:"difficulty_level" validate:"gte=0,lte=10"`
	EstimatedHours  float64    `json:"estimated_hours"  validate:"gte=0"`
	RequiredSkills  []string   `json:"required_skills"  validate:"dive,required"`
	Project         string     `json:"project"`
	Tags            []string   `json:"tags"`
	Deadline        *time.Time `json:"deadline,omitempty"`
}

// toDomain builds a pending task with a fresh ID.
func (r CreateTaskRequest) toDomain(now time.Time) *domain.Task {
	return &domain.Task{
		ID:              uuid.New(),
		Title:           strings.TrimSpace(r.Title),
		Description:     strings.TrimSpace(r.Description),
		StoryPoints:     r.StoryPoints,
		DifficultyLevel: r.DifficultyLevel,
		RequiredSkills:  nonNil(r.RequiredSkills),
		Project:         r.Project,
		Tags:            nonNil(r.Tags),
		EstimatedHours:  r.EstimatedHours,
		Status:          domain.TaskStatusPending,
		Deadline:        r.Deadline,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// UpdateTaskRequest defines the payload for updating a task. Omitted
// fields keep their stored values.
type UpdateTaskRequest struct {
	Title           *string  `json:"title"            validate:"omitempty,max=200"`
	Description     *string  `json:"description"`
	StoryPoints     *int     `json:"story_points"     validate:"omitempty,gte=0,lte=100"`
	DifficultyLevel *int     `json:"difficulty_level" validate:"omitempty,gte=0,lte=10"`
	EstimatedHours  *float64 `json:"estimated_hours"  validate:"omitempty,gte=0"`
	RequiredSkills  []string `json:"required_skills"  validate:"omitempty,dive,required"`
	Project         *string  `json:"project"`
	Tags            []string `json:"tags"`
	Status          *string  `json:"status"           validate:"omitempty,oneof=pending in-progress completed cancelled"`
}

func (r UpdateTaskRequest) toUpdate() service.TaskUpdate {
	upd := service.TaskUpdate{
		Title:           r.Title,
		Description:     r.Description,
		StoryPoints:     r.StoryPoints,
		DifficultyLevel: r.DifficultyLevel,
		EstimatedHours:  r.EstimatedHours,
		RequiredSkills:  r.RequiredSkills,
		Project:         r.Project,
		Tags:            r.Tags,
	}
	if r.Status != nil {
		status := domain.TaskStatus(*r.Status)
		upd.Status = &status
	}
	return upd
}

// PreviewUser is a user record submitted for a preview. The ID is derived
// from the SSO ID; IsAvailable defaults to true.
type PreviewUser struct {
	SSOID           string         `json:"sso_id"`
	Name            string         `json:"name"`
	Email           string         `json:"email"`
	Role            string         `json:"role"`
	Department      string         `json:"department"`
	Skills          []domain.Skill `json:"skills"`
	ExperienceYears int            `json:"experience_years"`
	CurrentWorkload float64        `json:"current_workload"`
	IsAvailable     *bool          `json:"is_available"`
}

// PreviewTask is a task record submitted for a preview. The ID is derived
// from the title.
type PreviewTask struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	StoryPoints     int      `json:"story_points"`
	DifficultyLevel int      `json:"difficulty_level"`
	RequiredSkills  []string `json:"required_skills"`
}

// PreviewRequest holds the records to resolve without persisting.
// Field-level validation is left to the engine so that every malformed
// record is reported, not just the first.
type PreviewRequest struct {
	Users []PreviewUser `json:"users"`
	Tasks []PreviewTask `json:"tasks" validate:"required,min=1"`
}

func (r PreviewRequest) toDomain() ([]*domain.User, []*domain.Task) {
	users := make([]*domain.User, 0, len(r.Users))
	for _, u := range r.Users {
		available := true
		if u.IsAvailable != nil {
			available = *u.IsAvailable
		}
		users = append(users, &domain.User{
			ID:              domain.UserIDFromSSO(u.SSOID),
			SSOID:           u.SSOID,
			Name:            u.Name,
			Email:           u.Email,
			Role:            domain.Role(u.Role),
			Department:      domain.Department(u.Department),
			Skills:          u.Skills,
			ExperienceYears: u.ExperienceYears,
			CurrentWorkload: u.CurrentWorkload,
			IsAvailable:     available,
		})
	}

	tasks := make([]*domain.Task, 0, len(r.Tasks))
	for _, t := range r.Tasks {
		tasks = append(tasks, &domain.Task{
			ID:              domain.TaskIDFromTitle(t.Title),
			Title:           t.Title,
			Description:     t.Description,
			StoryPoints:     t.StoryPoints,
			DifficultyLevel: t.DifficultyLevel,
			RequiredSkills:  nonNil(t.RequiredSkills),
			Status:          domain.TaskStatusPending,
		})
	}
	return users, tasks
}

// PreviewResponse lists one record per submitted task.
type PreviewResponse struct {
	Records []domain.AssignmentRecord `json:"records"`
}

// RunResponse reports the outcome of an assignment run.
type RunResponse struct {
	Message string `json:"message"`
	*service.RunResult
}

// AssignmentListResponse wraps an assignment listing.
type AssignmentListResponse struct {
	Assignments []*domain.Assignment `json:"assignments"`
	Count       int                  `json:"count"`
}

// ImportResponse reports the outcome of a file import.
type ImportResponse struct {
	Message string `json:"message"`
	*service.ImportReport
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
