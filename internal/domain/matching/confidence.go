package matching

import (
	"math"
	"time"

	"github.com/phrazzld/skillmatch-api/internal/domain"
)

// Confidence values are reported with four decimals.
const (
	confidenceScale       = 10000
	minAssignedConfidence = 1.0 / confidenceScale
)

// confidence converts a compatibility score into a reported confidence value.
func confidence(score float64) float64 {
	return math.Round(clamp01(score)*confidenceScale) / confidenceScale
}

// unassignedRecord builds the record for a task nobody could take.
// The priority is still predicted so that downstream reports can rank
// unassigned work.
func unassignedRecord(task *domain.Task, params *Params) domain.AssignmentRecord {
	return domain.AssignmentRecord{
		TaskID:    task.ID,
		TaskTitle: task.Title,
		Priority:  priorityFor(urgency(task, params), params),
	}
}

// assignedRecord builds the record for a resolved (task, user) pair.
// Confidence never rounds down to zero for an assigned task.
func assignedRecord(
	task *domain.Task,
	user *domain.User,
	score float64,
	cost float64,
	now time.Time,
	params *Params,
) domain.AssignmentRecord {
	priority, deadline := estimate(task, user, now, params)

	c := confidence(score)
	if c < minAssignedConfidence {
		c = minAssignedConfidence
	}

	return domain.AssignmentRecord{
		TaskID:     task.ID,
		TaskTitle:  task.Title,
		UserID:     user.ID,
		UserName:   user.Name,
		Priority:   priority,
		Deadline:   &deadline,
		Confidence: c,
		Score:      score,
		LoadCost:   cost,
	}
}
