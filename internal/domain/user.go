package domain

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Bounds for user profile fields.
const (
	MinSkillLevel      = 1
	MaxSkillLevel      = 10
	MaxExperienceYears = 50
	MaxWorkload        = 100.0
)

// Role is a job-role label from a fixed set.
type Role string

// Supported roles
const (
	RoleSoftwareEngineer Role = "Software Engineer"
	RoleDevOpsEngineer   Role = "DevOps Engineer"
	RoleDataScientist    Role = "Data Scientist"
	RoleQAEngineer       Role = "QA Engineer"
	RoleProjectManager   Role = "Project Manager"
	RoleSystemAnalyst    Role = "System Analyst"
)

// Roles lists every supported role in display order.
var Roles = []Role{
	RoleSoftwareEngineer,
	RoleDevOpsEngineer,
	RoleDataScientist,
	RoleQAEngineer,
	RoleProjectManager,
	RoleSystemAnalyst,
}

// Department groups users organisationally.
type Department string

// Supported departments
const (
	DepartmentEngineering      Department = "Engineering"
	DepartmentDataScience      Department = "Data Science"
	DepartmentQualityAssurance Department = "Quality Assurance"
	DepartmentOperations       Department = "Operations"
	DepartmentManagement       Department = "Management"
)

// Departments lists every supported department.
var Departments = []Department{
	DepartmentEngineering,
	DepartmentDataScience,
	DepartmentQualityAssurance,
	DepartmentOperations,
	DepartmentManagement,
}

// userNamespace seeds deterministic user IDs derived from SSO identifiers.
var userNamespace = uuid.MustParse("6f1c2a4e-1d7b-4c38-9a55-3e0b7d2f8c11")

// Skill is a named competency with a proficiency level between 1 and 10.
type Skill struct {
	Name  string `json:"skill"`
	Level int    `json:"level"`
}

// User is a person who can receive task assignments.
// Users with IsAvailable=false never take part in matching.
type User struct {
	ID              uuid.UUID  `json:"id"`
	SSOID           string     `json:"sso_id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Role            Role       `json:"role"`
	Department      Department `json:"department"`
	Skills          []Skill    `json:"skills"`
	ExperienceYears int        `json:"experience_years"`
	CurrentWorkload float64    `json:"current_workload"`
	IsAvailable     bool       `json:"is_available"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// NewUser creates an available User with an ID derived from ssoID.
// Returns an error if validation fails.
func NewUser(ssoID, name, email string, role Role) (*User, error) {
	now := time.Now().UTC()
	user := &User{
		ID:          UserIDFromSSO(ssoID),
		SSOID:       ssoID,
		Name:        name,
		Email:       email,
		Role:        role,
		Department:  DepartmentEngineering,
		Skills:      []Skill{},
		IsAvailable: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}

	return user, nil
}

// UserIDFromSSO returns the stable user ID for an SSO identifier.
// The same SSO identifier always maps to the same ID.
func UserIDFromSSO(ssoID string) uuid.UUID {
	return uuid.NewSHA1(userNamespace, []byte(strings.ToLower(strings.TrimSpace(ssoID))))
}

// Validate checks if the User has valid data.
// Returns an *InputError describing the first invalid field.
func (u *User) Validate() error {
	key := u.SSOID
	if key == "" {
		key = u.ID.String()
	}

	if u.ID == uuid.Nil {
		return NewInputError(KindUser, key, "id", "cannot be empty")
	}
	if strings.TrimSpace(u.Name) == "" {
		return NewInputError(KindUser, key, "name", "cannot be empty")
	}
	if u.Email == "" {
		return NewInputError(KindUser, key, "email", "cannot be empty")
	}
	if !validateEmailFormat(u.Email) {
		return NewInputError(KindUser, key, "email", "is not a valid address")
	}
	if _, ok := ParseRole(string(u.Role)); !ok {
		return NewInputError(KindUser, key, "role", "is not a supported role")
	}
	if u.Department != "" {
		if _, ok := ParseDepartment(string(u.Department)); !ok {
			return NewInputError(KindUser, key, "department", "is not a supported department")
		}
	}
	if u.ExperienceYears < 0 || u.ExperienceYears > MaxExperienceYears {
		return NewInputError(KindUser, key, "experience_years", "must be between 0 and 50")
	}
	if !isFinite(u.CurrentWorkload) || u.CurrentWorkload < 0 || u.CurrentWorkload > MaxWorkload {
		return NewInputError(KindUser, key, "current_workload", "must be between 0 and 100")
	}

	seen := make(map[string]struct{}, len(u.Skills))
	for _, s := range u.Skills {
		name := NormalizeSkill(s.Name)
		if name == "" {
			return NewInputError(KindUser, key, "skills", "contain an empty skill name")
		}
		if s.Level < MinSkillLevel || s.Level > MaxSkillLevel {
			return NewInputError(KindUser, key, "skills", "level for "+s.Name+" must be between 1 and 10")
		}
		if _, dup := seen[name]; dup {
			return NewInputError(KindUser, key, "skills", "list "+s.Name+" more than once")
		}
		seen[name] = struct{}{}
	}

	return nil
}

// SkillLevel returns the user's proficiency for the named skill.
func (u *User) SkillLevel(name string) (int, bool) {
	target := NormalizeSkill(name)
	for _, s := range u.Skills {
		if NormalizeSkill(s.Name) == target {
			return s.Level, true
		}
	}
	return 0, false
}

// Headroom returns the remaining workload capacity in percent.
func (u *User) Headroom() float64 {
	h := MaxWorkload - u.CurrentWorkload
	if h < 0 {
		return 0
	}
	if h > MaxWorkload {
		return MaxWorkload
	}
	return h
}

// Clone returns a deep copy of the user.
func (u *User) Clone() *User {
	c := *u
	c.Skills = append([]Skill(nil), u.Skills...)
	return &c
}

// NormalizeSkill canonicalises a skill name for comparison.
func NormalizeSkill(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// ParseRole matches s against the supported roles, ignoring case.
func ParseRole(s string) (Role, bool) {
	s = strings.TrimSpace(s)
	for _, r := range Roles {
		if strings.EqualFold(string(r), s) {
			return r, true
		}
	}
	return "", false
}

// ParseDepartment matches s against the supported departments, ignoring case.
func ParseDepartment(s string) (Department, bool) {
	s = strings.TrimSpace(s)
	for _, d := range Departments {
		if strings.EqualFold(string(d), s) {
			return d, true
		}
	}
	return "", false
}

// isFinite reports whether v is neither NaN nor an infinity.
func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// validateEmailFormat performs basic validation of email format:
// a non-empty local part, an @, and a domain with an inner dot.
func validateEmailFormat(email string) bool {
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 || strings.Count(email, "@") != 1 {
		return false
	}

	domainPart := email[at+1:]
	if len(domainPart) < 3 {
		return false
	}

	dot := strings.IndexByte(domainPart, '.')
	return dot > 0 && dot < len(domainPart)-1
}
