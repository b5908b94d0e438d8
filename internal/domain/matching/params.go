package matching

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidParams is returned when a parameter set is inconsistent.
var ErrInvalidParams = errors.New("invalid matching parameters")

// Params defines all configurable parameters for the matching engine
type Params struct {
	// Compatibility weights, summing to 1
	SkillWeight      float64
	ExperienceWeight float64
	HeadroomWeight   float64

	// Skill and experience normalization
	NeutralSkillScore      float64
	ExperienceCeilingYears int

	// Capacity
	LoadPerStoryPoint float64
	MinScore          float64

	// Priority derivation
	UrgencyDifficultyWeight float64
	UrgencyStoryPointWeight float64
	StoryPointCeiling       int
	MediumThreshold         float64
	HighThreshold           float64
	CriticalThreshold       float64

	// Deadline derivation
	DaysPerStoryPoint       float64
	ExperienceSpeedup       float64
	MinExperienceMultiplier float64

	// Pair count above which scoring fans out across goroutines
	ParallelThreshold int
}

// ParamsConfig allows overriding the default parameters when creating a new
// Params instance. Only positive values override; zero or negative values
// keep the default, so a weight or threshold cannot be set to zero through
// ParamsConfig. Build a Params directly for that.
type ParamsConfig struct {
	SkillWeight      float64
	ExperienceWeight float64
	HeadroomWeight   float64

	NeutralSkillScore      float64
	ExperienceCeilingYears int

	LoadPerStoryPoint float64
	MinScore          float64

	UrgencyDifficultyWeight float64
	UrgencyStoryPointWeight float64
	StoryPointCeiling       int
	MediumThreshold         float64
	HighThreshold           float64
	CriticalThreshold       float64

	DaysPerStoryPoint       float64
	ExperienceSpeedup       float64
	MinExperienceMultiplier float64

	ParallelThreshold int
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		// Skill match dominates, headroom breaks ties, experience is tertiary
		SkillWeight:      0.60,
		HeadroomWeight:   0.25,
		ExperienceWeight: 0.15,

		NeutralSkillScore:      0.5,
		ExperienceCeilingYears: 10,

		// One story point consumes one percent of a user's capacity
		LoadPerStoryPoint: 1.0,
		MinScore:          0,

		UrgencyDifficultyWeight: 0.6,
		UrgencyStoryPointWeight: 0.4,
		StoryPointCeiling:       21,
		MediumThreshold:         0.25,
		HighThreshold:           0.50,
		CriticalThreshold:       0.75,

		DaysPerStoryPoint:       0.5,
		ExperienceSpeedup:       0.05,
		MinExperienceMultiplier: 0.5,

		ParallelThreshold: 4096,
	}
}

// NewParams creates a new Params instance with custom configuration.
// Non-positive values in config keep the defaults.
func NewParams(config ParamsConfig) *Params {
	params := NewDefaultParams()

	// Weights
	if config.SkillWeight > 0 {
		params.SkillWeight = config.SkillWeight
	}
	if config.ExperienceWeight > 0 {
		params.ExperienceWeight = config.ExperienceWeight
	}
	if config.HeadroomWeight > 0 {
		params.HeadroomWeight = config.HeadroomWeight
	}

	// Normalization
	if config.NeutralSkillScore > 0 {
		params.NeutralSkillScore = config.NeutralSkillScore
	}
	if config.ExperienceCeilingYears > 0 {
		params.ExperienceCeilingYears = config.ExperienceCeilingYears
	}

	// Capacity
	if config.LoadPerStoryPoint > 0 {
		params.LoadPerStoryPoint = config.LoadPerStoryPoint
	}
	if config.MinScore > 0 {
		params.MinScore = config.MinScore
	}

	// Priority
	if config.UrgencyDifficultyWeight > 0 {
		params.UrgencyDifficultyWeight = config.UrgencyDifficultyWeight
	}
	if config.UrgencyStoryPointWeight > 0 {
		params.UrgencyStoryPointWeight = config.UrgencyStoryPointWeight
	}
	if config.StoryPointCeiling > 0 {
		params.StoryPointCeiling = config.StoryPointCeiling
	}
	if config.MediumThreshold > 0 {
		params.MediumThreshold = config.MediumThreshold
	}
	if config.HighThreshold > 0 {
		params.HighThreshold = config.HighThreshold
	}
	if config.CriticalThreshold > 0 {
		params.CriticalThreshold = config.CriticalThreshold
	}

	// Deadline
	if config.DaysPerStoryPoint > 0 {
		params.DaysPerStoryPoint = config.DaysPerStoryPoint
	}
	if config.ExperienceSpeedup > 0 {
		params.ExperienceSpeedup = config.ExperienceSpeedup
	}
	if config.MinExperienceMultiplier > 0 {
		params.MinExperienceMultiplier = config.MinExperienceMultiplier
	}

	if config.ParallelThreshold > 0 {
		params.ParallelThreshold = config.ParallelThreshold
	}

	return params
}

// weightTolerance absorbs float rounding in weight sums.
const weightTolerance = 1e-6

// Validate reports whether the parameter set is internally consistent.
func (p *Params) Validate() error {
	weights := []float64{p.SkillWeight, p.ExperienceWeight, p.HeadroomWeight}
	for _, w := range weights {
		if w < 0 || w > 1 {
			return fmt.Errorf("%w: weights must be within [0, 1]", ErrInvalidParams)
		}
	}
	if math.Abs(p.SkillWeight+p.ExperienceWeight+p.HeadroomWeight-1) > weightTolerance {
		return fmt.Errorf("%w: skill, experience and headroom weights must sum to 1", ErrInvalidParams)
	}
	if p.SkillWeight < p.HeadroomWeight || p.SkillWeight < p.ExperienceWeight {
		return fmt.Errorf("%w: skill weight must be the largest weight", ErrInvalidParams)
	}
	if p.NeutralSkillScore < 0 || p.NeutralSkillScore > 1 {
		return fmt.Errorf("%w: neutral skill score must be within [0, 1]", ErrInvalidParams)
	}
	if p.ExperienceCeilingYears <= 0 {
		return fmt.Errorf("%w: experience ceiling must be positive", ErrInvalidParams)
	}
	if p.LoadPerStoryPoint <= 0 {
		return fmt.Errorf("%w: load per story point must be positive", ErrInvalidParams)
	}
	if p.MinScore < 0 || p.MinScore >= 1 {
		return fmt.Errorf("%w: min score must be within [0, 1)", ErrInvalidParams)
	}
	if math.Abs(p.UrgencyDifficultyWeight+p.UrgencyStoryPointWeight-1) > weightTolerance {
		return fmt.Errorf("%w: urgency weights must sum to 1", ErrInvalidParams)
	}
	if p.StoryPointCeiling <= 0 {
		return fmt.Errorf("%w: story point ceiling must be positive", ErrInvalidParams)
	}
	if !(0 < p.MediumThreshold && p.MediumThreshold < p.HighThreshold &&
		p.HighThreshold < p.CriticalThreshold && p.CriticalThreshold <= 1) {
		return fmt.Errorf("%w: priority thresholds must increase within (0, 1]", ErrInvalidParams)
	}
	if p.DaysPerStoryPoint <= 0 {
		return fmt.Errorf("%w: days per story point must be positive", ErrInvalidParams)
	}
	if p.ExperienceSpeedup < 0 {
		return fmt.Errorf("%w: experience speedup cannot be negative", ErrInvalidParams)
	}
	if p.MinExperienceMultiplier <= 0 || p.MinExperienceMultiplier > 1 {
		return fmt.Errorf("%w: minimum experience multiplier must be within (0, 1]", ErrInvalidParams)
	}
	return nil
}
