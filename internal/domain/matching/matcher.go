package matching

import (
	"github.com/phrazzld/skillmatch-api/internal/domain"
)

// skillScore measures how well the user's skills cover the task's requirements.
//
// Each distinct required skill contributes the user's proficiency level / 10
// when the user has it and 0 otherwise; the sum is divided by the number of
// distinct required skills. Skill names compare case-insensitively.
//
// Returns:
//   - A value in [0, 1]
//   - params.NeutralSkillScore when the task requires no skills, so skill-less
//     tasks are neither favored nor penalized
func skillScore(user *domain.User, task *domain.Task, params *Params) float64 {
	required := distinctSkills(task.RequiredSkills)
	if len(required) == 0 {
		return params.NeutralSkillScore
	}

	var sum float64
	for _, name := range required {
		if level, ok := user.SkillLevel(name); ok {
			sum += float64(level) / domain.MaxSkillLevel
		}
	}

	return clamp01(sum / float64(len(required)))
}

// experienceScore normalizes experience years linearly against the ceiling,
// capped at 1.
func experienceScore(user *domain.User, params *Params) float64 {
	years := user.ExperienceYears
	if years > params.ExperienceCeilingYears {
		years = params.ExperienceCeilingYears
	}
	return clamp01(float64(years) / float64(params.ExperienceCeilingYears))
}

// headroomScore is the fraction of capacity the user has left.
// A fully loaded user scores 0 regardless of skill match.
func headroomScore(user *domain.User) float64 {
	return clamp01(user.Headroom() / domain.MaxWorkload)
}

// compatibility combines the three component scores into a single score.
//
//	score = w1*skill + w2*experience*(difficulty/10) + w3*headroom
//
// The experience term is scaled by the task's difficulty so that seniority
// matters little for easy work. The result is total for any well-formed pair
// and always lies in [0, 1].
func compatibility(user *domain.User, task *domain.Task, params *Params) float64 {
	difficultyFactor := float64(task.EffectiveDifficulty()) / domain.MaxDifficulty

	score := params.SkillWeight*skillScore(user, task, params) +
		params.ExperienceWeight*experienceScore(user, params)*difficultyFactor +
		params.HeadroomWeight*headroomScore(user)

	return clamp01(score)
}

// distinctSkills normalizes and deduplicates skill names, keeping first-seen order.
func distinctSkills(skills []string) []string {
	seen := make(map[string]struct{}, len(skills))
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		n := domain.NormalizeSkill(s)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
