package matching

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/skillmatch-api/internal/domain"
)

// Service defines the interface for assignment engine operations
type Service interface {
	// Assign validates the inputs and resolves every task to a user or to
	// Unassigned. Any malformed record fails the whole call with an error
	// matching domain.ErrValidation before scoring starts. The result holds
	// one record per task, in task order.
	Assign(users []*domain.User, tasks []*domain.Task, now time.Time) ([]domain.AssignmentRecord, error)

	// Partition splits the inputs into valid records and rejected ones,
	// for batch callers that skip and report bad records.
	Partition(users []*domain.User, tasks []*domain.Task) ([]*domain.User, []*domain.Task, []*domain.InputError)

	// Score returns the compatibility of a single pair.
	Score(user *domain.User, task *domain.Task) float64

	// Estimate returns the priority and deadline of a task handled by user.
	Estimate(task *domain.Task, user *domain.User, now time.Time) (domain.Priority, time.Time)

	// Confidence converts a compatibility score into a confidence value.
	Confidence(score float64) float64

	// LoadCost returns the workload percentage a task adds to its assignee.
	LoadCost(task *domain.Task) float64
}

// defaultService is the standard implementation of the Service interface
type defaultService struct {
	params *Params
}

// NewDefaultService creates a new matching service with default parameters
func NewDefaultService() Service {
	return &defaultService{
		params: NewDefaultParams(),
	}
}

// NewServiceWithParams creates a new matching service with custom parameters.
// A nil params uses the defaults.
func NewServiceWithParams(params *Params) (Service, error) {
	if params == nil {
		params = NewDefaultParams()
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &defaultService{params: params}, nil
}

// Assign implements the Service interface
func (s *defaultService) Assign(
	users []*domain.User,
	tasks []*domain.Task,
	now time.Time,
) ([]domain.AssignmentRecord, error) {
	validUsers, validTasks, rejected := s.Partition(users, tasks)
	if len(rejected) > 0 {
		return nil, joinInputErrors(rejected)
	}

	available := make([]*domain.User, 0, len(validUsers))
	for _, u := range validUsers {
		if u.IsAvailable {
			available = append(available, u)
		}
	}

	resolved := resolve(available, validTasks, s.params)

	records := make([]domain.AssignmentRecord, len(validTasks))
	for i, task := range validTasks {
		r := resolved[i]
		if r.user < 0 {
			records[i] = unassignedRecord(task, s.params)
			continue
		}
		records[i] = assignedRecord(task, available[r.user], r.score, r.cost, now, s.params)
	}

	return records, nil
}

// Partition implements the Service interface. The first occurrence of a
// duplicated user ID, task ID or task title is kept; later ones are rejected.
func (s *defaultService) Partition(
	users []*domain.User,
	tasks []*domain.Task,
) ([]*domain.User, []*domain.Task, []*domain.InputError) {
	var rejected []*domain.InputError

	validUsers := make([]*domain.User, 0, len(users))
	seenUsers := make(map[uuid.UUID]struct{}, len(users))
	for i, u := range users {
		if u == nil {
			rejected = append(rejected, missingRecord(domain.KindUser, i))
			continue
		}
		if err := u.Validate(); err != nil {
			rejected = append(rejected, asInputError(domain.KindUser, u.SSOID, err))
			continue
		}
		if _, dup := seenUsers[u.ID]; dup {
			rejected = append(rejected, domain.NewInputError(domain.KindUser, u.SSOID, "id", "duplicates an earlier user"))
			continue
		}
		seenUsers[u.ID] = struct{}{}
		validUsers = append(validUsers, u)
	}

	validTasks := make([]*domain.Task, 0, len(tasks))
	seenTasks := make(map[uuid.UUID]struct{}, len(tasks))
	seenTitles := make(map[string]struct{}, len(tasks))
	for i, t := range tasks {
		if t == nil {
			rejected = append(rejected, missingRecord(domain.KindTask, i))
			continue
		}
		if err := t.Validate(); err != nil {
			rejected = append(rejected, asInputError(domain.KindTask, t.Title, err))
			continue
		}
		if _, dup := seenTasks[t.ID]; dup {
			rejected = append(rejected, domain.NewInputError(domain.KindTask, t.Title, "id", "duplicates an earlier task"))
			continue
		}
		title := domain.NormalizeTitle(t.Title)
		if _, dup := seenTitles[title]; dup {
			rejected = append(rejected, domain.NewInputError(domain.KindTask, t.Title, "title", "collides with an earlier task"))
			continue
		}
		seenTasks[t.ID] = struct{}{}
		seenTitles[title] = struct{}{}
		validTasks = append(validTasks, t)
	}

	return validUsers, validTasks, rejected
}

// Score implements the Service interface
func (s *defaultService) Score(user *domain.User, task *domain.Task) float64 {
	return compatibility(user, task, s.params)
}

// Estimate implements the Service interface
func (s *defaultService) Estimate(task *domain.Task, user *domain.User, now time.Time) (domain.Priority, time.Time) {
	return estimate(task, user, now, s.params)
}

// Confidence implements the Service interface
func (s *defaultService) Confidence(score float64) float64 {
	return confidence(score)
}

// LoadCost implements the Service interface
func (s *defaultService) LoadCost(task *domain.Task) float64 {
	return loadCost(task, s.params)
}

func missingRecord(kind string, index int) *domain.InputError {
	return domain.NewInputError(kind, fmt.Sprintf("#%d", index+1), "record", "is missing")
}

func asInputError(kind, key string, err error) *domain.InputError {
	if inputErr, ok := domain.AsInputError(err); ok {
		return inputErr
	}
	return domain.NewInputError(kind, key, "record", err.Error())
}

func joinInputErrors(rejected []*domain.InputError) error {
	errs := make([]error, len(rejected))
	for i, e := range rejected {
		errs[i] = e
	}
	return errors.Join(errs...)
}
