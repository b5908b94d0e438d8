package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/spf13/cobra"

	"github.com/phrazzld/skillmatch-api/internal/domain"
	"github.com/phrazzld/skillmatch-api/internal/tabular"
)

var seedSkills = []string{
	"Go", "Python", "Java", "TypeScript", "React", "SQL", "PostgreSQL",
	"Docker", "Kubernetes", "AWS", "Terraform", "Machine Learning",
	"Pandas", "Testing", "Selenium", "CI/CD", "Agile", "Scrum",
}

var seedStoryPoints = []int{1, 2, 3, 5, 8, 13}

var seedDifficulties = []int{tabular.DifficultyEasy, tabular.DifficultyMedium, tabular.DifficultyHard}

func newSeedCmd() *cobra.Command {
	var (
		userCount int
		taskCount int
		seed      int64
		outDir    string
		outFormat string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Generate sample users and tasks",
		Long: `Write randomly generated users and tasks in the import layout.
The same --seed always produces the same files.

Examples:
  skillmatch seed --users 20 --tasks 50 --out-dir ./testdata
  skillmatch seed --seed 42 --format xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := tabular.ParseFormat(outFormat)
			if err != nil {
				return err
			}
			if userCount < 1 || taskCount < 1 {
				return fmt.Errorf("--users and --tasks must be positive")
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("failed to create %s: %w", outDir, err)
			}

			faker := gofakeit.New(seed)
			now := time.Now().UTC()

			usersPath := filepath.Join(outDir, "users."+string(format))
			if err := writeFile(usersPath, func(w io.Writer) error {
				return tabular.WriteUsers(w, fakeUsers(faker, userCount, now), format)
			}); err != nil {
				return err
			}

			tasksPath := filepath.Join(outDir, "tasks."+string(format))
			if err := writeFile(tasksPath, func(w io.Writer) error {
				return tabular.WriteTasks(w, fakeTasks(faker, taskCount, now), format)
			}); err != nil {
				return err
			}

			summaryColor.Fprintf(cmd.OutOrStdout(), "Wrote %d users to %s and %d tasks to %s\n",
				userCount, usersPath, taskCount, tasksPath)
			return nil
		},
	}

	cmd.Flags().IntVar(&userCount, "users", 10, "number of users to generate")
	cmd.Flags().IntVar(&taskCount, "tasks", 25, "number of tasks to generate")
	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed (0 picks one at random)")
	cmd.Flags().StringVar(&outDir, "out-dir", ".", "directory for the generated files")
	cmd.Flags().StringVar(&outFormat, "format", "csv", "file format (csv or xlsx)")

	return cmd
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func fakeUsers(faker *gofakeit.Faker, n int, now time.Time) []*domain.User {
	users := make([]*domain.User, 0, n)
	for i := 0; i < n; i++ {
		ssoID := fmt.Sprintf("E%05d", i+1)
		workload := math.Round(faker.Float64Range(0, 90))
		users = append(users, &domain.User{
			ID:              domain.UserIDFromSSO(ssoID),
			SSOID:           ssoID,
			Name:            faker.Name(),
			Email:           strings.ToLower(fmt.Sprintf("%s@%s", ssoID, faker.DomainName())),
			Role:            domain.Roles[faker.Number(0, len(domain.Roles)-1)],
			Department:      domain.Departments[faker.Number(0, len(domain.Departments)-1)],
			Skills:          fakeSkills(faker),
			ExperienceYears: faker.Number(0, 20),
			CurrentWorkload: workload,
			IsAvailable:     workload < tabular.AvailabilityWorkloadCutoff,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}
	return users
}

func fakeSkills(faker *gofakeit.Faker) []domain.Skill {
	names := pickSkills(faker, faker.Number(1, 5))
	skills := make([]domain.Skill, 0, len(names))
	for _, name := range names {
		skills = append(skills, domain.Skill{Name: name, Level: tabular.DefaultImportedSkillLevel})
	}
	return skills
}

func fakeTasks(faker *gofakeit.Faker, n int, now time.Time) []*domain.Task {
	tasks := make([]*domain.Task, 0, n)
	for i := 0; i < n; i++ {
		title := fmt.Sprintf("%s %s #%d", faker.HackerVerb(), faker.HackerNoun(), i+1)
		points := seedStoryPoints[faker.Number(0, len(seedStoryPoints)-1)]
		tasks = append(tasks, &domain.Task{
			ID:              domain.TaskIDFromTitle(title),
			Title:           title,
			Description:     faker.Sentence(12),
			StoryPoints:     points,
			DifficultyLevel: seedDifficulties[faker.Number(0, len(seedDifficulties)-1)],
			RequiredSkills:  pickSkills(faker, faker.Number(1, 3)),
			Project:         domain.DefaultProject,
			EstimatedHours:  float64(points * 4),
			Status:          domain.TaskStatusPending,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}
	return tasks
}

// pickSkills returns n distinct skill names.
func pickSkills(faker *gofakeit.Faker, n int) []string {
	pool := append([]string(nil), seedSkills...)
	faker.ShuffleStrings(pool)
	return pool[:n]
}
