package matching

import (
	"math"
	"time"

	"github.com/phrazzld/skillmatch-api/internal/domain"
)

// urgency folds difficulty and story points into a single value in [0, 1].
// Story points above params.StoryPointCeiling count as the ceiling.
func urgency(task *domain.Task, params *Params) float64 {
	difficulty := float64(task.EffectiveDifficulty()) / domain.MaxDifficulty

	points := task.EffectiveStoryPoints()
	if points > params.StoryPointCeiling {
		points = params.StoryPointCeiling
	}
	size := float64(points) / float64(params.StoryPointCeiling)

	return clamp01(params.UrgencyDifficultyWeight*difficulty + params.UrgencyStoryPointWeight*size)
}

// priorityFor buckets an urgency value using the configured thresholds:
// below MediumThreshold is low, below HighThreshold is medium, below
// CriticalThreshold is high, anything else is critical.
func priorityFor(u float64, params *Params) domain.Priority {
	switch {
	case u < params.MediumThreshold:
		return domain.PriorityLow
	case u < params.HighThreshold:
		return domain.PriorityMedium
	case u < params.CriticalThreshold:
		return domain.PriorityHigh
	default:
		return domain.PriorityCritical
	}
}

// effortDays estimates how many working days the assignee needs.
//
// The base effort is storyPoints * DaysPerStoryPoint, stretched by a
// difficulty factor in [0.6, 1.5] and shortened by an experience multiplier
// of 1 - ExperienceSpeedup*years, never below MinExperienceMultiplier.
// The result is at least one day.
func effortDays(task *domain.Task, user *domain.User, params *Params) int {
	base := float64(task.EffectiveStoryPoints()) * params.DaysPerStoryPoint
	difficultyFactor := 0.5 + float64(task.EffectiveDifficulty())/domain.MaxDifficulty

	experienceFactor := 1.0
	if user != nil {
		experienceFactor = 1 - params.ExperienceSpeedup*float64(user.ExperienceYears)
		if experienceFactor < params.MinExperienceMultiplier {
			experienceFactor = params.MinExperienceMultiplier
		}
	}

	days := int(math.Ceil(base * difficultyFactor * experienceFactor))
	if days < 1 {
		days = 1
	}
	return days
}

// addBusinessDays returns the date that lies the given number of working
// days after start, skipping Saturdays and Sundays. The time of day is
// truncated to midnight in start's location.
func addBusinessDays(start time.Time, days int) time.Time {
	d := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	for days > 0 {
		d = d.AddDate(0, 0, 1)
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		days--
	}
	return d
}

// estimate derives the priority bucket and the deadline for a task handled by user.
func estimate(task *domain.Task, user *domain.User, now time.Time, params *Params) (domain.Priority, time.Time) {
	priority := priorityFor(urgency(task, params), params)
	deadline := addBusinessDays(now, effortDays(task, user, params))
	return priority, deadline
}
