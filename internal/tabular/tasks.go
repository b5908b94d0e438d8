package tabular

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/phrazzld/skillmatch-api/internal/domain"
)

// Difficulty labels used by the UserStory dataset.
const (
	DifficultyEasy   = 3
	DifficultyMedium = 5
	DifficultyHard   = 8
)

var taskAliases = map[string][]string{
	"title":           {"Task Title", "title"},
	"description":     {"Description (User story/ Problem description)", "description"},
	"storyPoints":     {"Story Points", "storyPoints"},
	"difficultyLevel": {"Difficulty Level", "difficultyLevel"},
	"estimatedHours":  {"Estimated Hours", "estimatedHours"},
	"priority":        {"Priority"},
	"status":          {"Status"},
	"requiredSkills":  {"Required Skills", "requiredSkills"},
	"project":         {"Project"},
	"tags":            {"Tags"},
	"deadline":        {"Deadline"},
}

var requiredTaskColumns = []string{"title", "description"}

var statusAliases = map[string]domain.TaskStatus{
	"to do":       domain.TaskStatusPending,
	"todo":        domain.TaskStatusPending,
	"pending":     domain.TaskStatusPending,
	"in progress": domain.TaskStatusInProgress,
	"in-progress": domain.TaskStatusInProgress,
	"review":      domain.TaskStatusInProgress,
	"done":        domain.TaskStatusCompleted,
	"completed":   domain.TaskStatusCompleted,
	"cancelled":   domain.TaskStatusCancelled,
	"canceled":    domain.TaskStatusCancelled,
}

var deadlineLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"Jan 2, 2006",
}

// ParseTasks converts rows (header first) into pending-import tasks. Task
// IDs are derived from titles; titles that repeat within the file are
// reported on every occurrence after the first.
func ParseTasks(rows []Row, now time.Time) ([]*domain.Task, []RowError, error) {
	if len(rows) < 2 {
		return nil, nil, ErrNoData
	}

	cols, err := resolveColumns(rows[0].Cells, taskAliases, requiredTaskColumns)
	if err != nil {
		return nil, nil, err
	}

	var (
		tasks   []*domain.Task
		rowErrs []RowError
		seen    = make(map[string]int)
	)

	for _, row := range rows[1:] {
		task, err := parseTask(cols, row.Cells, now)
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: row.Line, Reason: err.Error()})
			continue
		}

		key := domain.NormalizeTitle(task.Title)
		if first, dup := seen[key]; dup {
			rowErrs = append(rowErrs, RowError{
				Line:   row.Line,
				Reason: fmt.Sprintf("duplicate title %q (first seen on line %d)", task.Title, first),
			})
			continue
		}
		seen[key] = row.Line
		tasks = append(tasks, task)
	}

	return tasks, rowErrs, nil
}

func parseTask(cols columns, cells []string, now time.Time) (*domain.Task, error) {
	title := cols.get(cells, "title")
	description := cols.get(cells, "description")
	if title == "" || description == "" {
		return nil, errors.New("missing required field values")
	}

	skills, err := splitList(cols.get(cells, "requiredSkills"))
	if err != nil {
		return nil, err
	}
	tags, err := splitList(cols.get(cells, "tags"))
	if err != nil {
		return nil, err
	}

	project := cols.get(cells, "project")
	if project == "" {
		project = domain.DefaultProject
	}

	hours, err := optionalNumber(cols.get(cells, "estimatedHours"), "estimated hours")
	if err != nil {
		return nil, err
	}

	task := &domain.Task{
		ID:              domain.TaskIDFromTitle(title),
		Title:           title,
		Description:     description,
		StoryPoints:     parseIntOr(cols.get(cells, "storyPoints"), domain.DefaultStoryPoints),
		DifficultyLevel: ParseDifficulty(cols.get(cells, "difficultyLevel")),
		RequiredSkills:  skills,
		Project:         project,
		Tags:            tags,
		EstimatedHours:  hours,
		Status:          parseStatus(cols.get(cells, "status")),
		Deadline:        parseDeadline(cols.get(cells, "deadline")),
		CreatedAt:       now.UTC(),
		UpdatedAt:       now.UTC(),
	}

	if cols.has("priority") {
		p, ok := domain.ParsePriority(cols.get(cells, "priority"))
		if !ok {
			p = domain.PriorityMedium
		}
		task.Priority = p
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}
	return task, nil
}

// ParseDifficulty accepts Easy, Medium, Hard or a number. Anything else is
// the default difficulty.
func ParseDifficulty(value string) int {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "easy":
		return DifficultyEasy
	case "medium":
		return DifficultyMedium
	case "hard":
		return DifficultyHard
	}
	return parseIntOr(value, domain.DefaultDifficulty)
}

// DifficultyLabel buckets a numeric difficulty back into Easy, Medium or Hard.
func DifficultyLabel(level int) string {
	switch {
	case level <= DifficultyEasy:
		return "Easy"
	case level <= 6:
		return "Medium"
	default:
		return "Hard"
	}
}

func parseStatus(value string) domain.TaskStatus {
	if s, ok := statusAliases[strings.ToLower(strings.TrimSpace(value))]; ok {
		return s
	}
	return domain.TaskStatusPending
}

func parseDeadline(value string) *time.Time {
	if value == "" {
		return nil
	}
	for _, layout := range deadlineLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
