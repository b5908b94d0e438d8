package tabular

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/phrazzld/skillmatch-api/internal/domain"
)

// DefaultImportedSkillLevel is given to skills listed without a level.
const DefaultImportedSkillLevel = 7

// AvailabilityWorkloadCutoff marks users at or above this workload as
// unavailable when the input has no availability column.
const AvailabilityWorkloadCutoff = 95.0

var userAliases = map[string][]string{
	"ssoId":           {"SSO ID", "ssoId"},
	"name":            {"Full Name", "name"},
	"email":           {"Email"},
	"role":            {"Role"},
	"department":      {"Department"},
	"skills":          {"Skills"},
	"experienceYears": {"Experience (Years)", "experienceYears"},
	"currentWorkload": {"Current Workload (%)", "currentWorkload"},
	"isAvailable":     {"isAvailable", "Available"},
}

var requiredUserColumns = []string{"ssoId", "name", "email", "role"}

// ParseUsers converts rows (header first) into users. Rows that cannot be
// parsed or fail validation are returned as RowErrors. Repeated SSO IDs
// keep the first occurrence.
func ParseUsers(rows []Row, now time.Time) ([]*domain.User, []RowError, error) {
	if len(rows) < 2 {
		return nil, nil, ErrNoData
	}

	cols, err := resolveColumns(rows[0].Cells, userAliases, requiredUserColumns)
	if err != nil {
		return nil, nil, err
	}

	var (
		users   []*domain.User
		rowErrs []RowError
		seen    = make(map[string]int)
	)

	for _, row := range rows[1:] {
		user, err := parseUser(cols, row.Cells, now)
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: row.Line, Reason: err.Error()})
			continue
		}

		key := strings.ToLower(user.SSOID)
		if first, dup := seen[key]; dup {
			rowErrs = append(rowErrs, RowError{
				Line:   row.Line,
				Reason: fmt.Sprintf("duplicate SSO ID %q (first seen on line %d)", user.SSOID, first),
			})
			continue
		}
		seen[key] = row.Line
		users = append(users, user)
	}

	return users, rowErrs, nil
}

func parseUser(cols columns, cells []string, now time.Time) (*domain.User, error) {
	ssoID := cols.get(cells, "ssoId")
	name := cols.get(cells, "name")
	email := cols.get(cells, "email")
	roleValue := cols.get(cells, "role")

	required := []struct{ field, value string }{
		{"SSO ID", ssoID}, {"name", name}, {"email", email}, {"role", roleValue},
	}
	for _, r := range required {
		if r.value == "" {
			return nil, fmt.Errorf("missing required field %s", r.field)
		}
	}

	role, ok := domain.ParseRole(roleValue)
	if !ok {
		return nil, fmt.Errorf("unknown role %q", roleValue)
	}

	department := domain.DepartmentEngineering
	if v := cols.get(cells, "department"); v != "" {
		d, ok := domain.ParseDepartment(v)
		if !ok {
			return nil, fmt.Errorf("unknown department %q", v)
		}
		department = d
	}

	skills, err := parseSkills(cols.get(cells, "skills"))
	if err != nil {
		return nil, err
	}

	experience, err := optionalNumber(cols.get(cells, "experienceYears"), "experience")
	if err != nil {
		return nil, err
	}
	workload, err := optionalNumber(cols.get(cells, "currentWorkload"), "current workload")
	if err != nil {
		return nil, err
	}
	workload = clamp(workload, 0, domain.MaxWorkload)

	available := workload < AvailabilityWorkloadCutoff
	if v := cols.get(cells, "isAvailable"); cols.has("isAvailable") && v != "" {
		available = parseBool(v)
	}

	user := &domain.User{
		ID:              domain.UserIDFromSSO(ssoID),
		SSOID:           ssoID,
		Name:            name,
		Email:           strings.ToLower(email),
		Role:            role,
		Department:      department,
		Skills:          skills,
		ExperienceYears: int(clamp(experience, 0, domain.MaxExperienceYears)),
		CurrentWorkload: workload,
		IsAvailable:     available,
		CreatedAt:       now.UTC(),
		UpdatedAt:       now.UTC(),
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}
	return user, nil
}

// parseSkills accepts a JSON array of {"skill", "level"} objects or a plain
// list of names, each of which gets DefaultImportedSkillLevel.
func parseSkills(value string) ([]domain.Skill, error) {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, "[") {
		var skills []domain.Skill
		if err := json.Unmarshal([]byte(value), &skills); err == nil {
			return skills, nil
		}
	}

	names, err := splitList(value)
	if err != nil {
		return nil, err
	}

	skills := make([]domain.Skill, 0, len(names))
	for _, n := range names {
		skills = append(skills, domain.Skill{Name: n, Level: DefaultImportedSkillLevel})
	}
	return skills, nil
}
