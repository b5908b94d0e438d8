package generation

import (
	"context"
	"log/slog"
	"strings"

	"github.com/phrazzld/skillmatch-api/internal/domain"
	"github.com/phrazzld/skillmatch-api/internal/platform/logger"
)

// ExplainInput carries what an explainer may mention about one assignment.
type ExplainInput struct {
	TaskTitle       string
	UserName        string
	Role            domain.Role
	MatchedSkills   []string
	MissingSkills   []string
	ExperienceYears int
	Priority        domain.Priority
	Confidence      float64
}

// Explainer produces a one-sentence reason for an assignment.
type Explainer interface {
	Explain(ctx context.Context, in ExplainInput) (string, error)
}

// NewExplainInput collects the facts about rec's user and task.
func NewExplainInput(user *domain.User, task *domain.Task, rec domain.AssignmentRecord) ExplainInput {
	in := ExplainInput{
		TaskTitle:       task.Title,
		UserName:        user.Name,
		Role:            user.Role,
		ExperienceYears: user.ExperienceYears,
		Priority:        rec.Priority,
		Confidence:      rec.Confidence,
	}
	for _, skill := range task.RequiredSkills {
		if _, ok := user.SkillLevel(skill); ok {
			in.MatchedSkills = append(in.MatchedSkills, skill)
		} else {
			in.MissingSkills = append(in.MissingSkills, skill)
		}
	}
	return in
}

// TemplateExplainer always returns domain.DefaultAssignmentReason.
type TemplateExplainer struct{}

// Explain implements Explainer.
func (TemplateExplainer) Explain(_ context.Context, _ ExplainInput) (string, error) {
	return domain.DefaultAssignmentReason, nil
}

// FallbackExplainer delegates to a primary explainer and falls back to the
// template reason when it fails or answers with nothing.
type FallbackExplainer struct {
	primary Explainer
	logger  *slog.Logger
}

// NewFallbackExplainer wraps primary. A nil primary behaves like TemplateExplainer.
func NewFallbackExplainer(primary Explainer, log *slog.Logger) *FallbackExplainer {
	if log == nil {
		log = slog.Default()
	}
	return &FallbackExplainer{
		primary: primary,
		logger:  log.With(slog.String("component", "explainer")),
	}
}

// Explain implements Explainer. It never returns an error.
func (e *FallbackExplainer) Explain(ctx context.Context, in ExplainInput) (string, error) {
	if e.primary == nil {
		return domain.DefaultAssignmentReason, nil
	}

	reason, err := e.primary.Explain(ctx, in)
	if err != nil {
		logger.FromContextOrDefault(ctx, e.logger).Warn("explanation failed, using template reason",
			slog.String("error", err.Error()),
			slog.String("task_title", in.TaskTitle))
		return domain.DefaultAssignmentReason, nil
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.DefaultAssignmentReason, nil
	}
	return reason, nil
}

var (
	_ Explainer = TemplateExplainer{}
	_ Explainer = (*FallbackExplainer)(nil)
)
