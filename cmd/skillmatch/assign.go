package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/phrazzld/skillmatch-api/internal/config"
	"github.com/phrazzld/skillmatch-api/internal/domain"
	"github.com/phrazzld/skillmatch-api/internal/domain/matching"
	"github.com/phrazzld/skillmatch-api/internal/tabular"
)

var (
	headerColor   = color.New(color.FgCyan, color.Bold)
	summaryColor  = color.New(color.FgGreen)
	warningColor  = color.New(color.FgYellow)
	priorityColor = map[domain.Priority]*color.Color{
		domain.PriorityLow:      color.New(color.FgWhite),
		domain.PriorityMedium:   color.New(color.FgBlue),
		domain.PriorityHigh:     color.New(color.FgYellow),
		domain.PriorityCritical: color.New(color.FgRed, color.Bold),
	}
)

func newAssignCmd() *cobra.Command {
	var (
		usersPath string
		tasksPath string
		outPath   string
		outFormat string
	)

	cmd := &cobra.Command{
		Use:   "assign",
		Short: "Assign tasks from files without a database",
		Long: `Read users and tasks from CSV or XLSX files, run the assignment
engine, and print one line per task.

Malformed rows and records are skipped and reported on stderr.
Engine weights and thresholds come from the matching section of
config.yaml or SKILLMATCH_MATCHING_* variables, as for the server.

Examples:
  skillmatch assign --users employees.csv --tasks stories.xlsx
  skillmatch assign --users employees.csv --tasks stories.csv --out plan.xlsx --format xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := tabular.ParseFormat(outFormat)
			if err != nil {
				return err
			}

			now := time.Now().UTC()
			users, userErrs, err := readUsers(usersPath, now)
			if err != nil {
				return err
			}
			tasks, taskErrs, err := readTasks(tasksPath, now)
			if err != nil {
				return err
			}

			stderr := cmd.ErrOrStderr()
			reportRowErrors(stderr, usersPath, userErrs)
			reportRowErrors(stderr, tasksPath, taskErrs)

			engine, err := newEngine()
			if err != nil {
				return err
			}
			users, tasks, rejected := engine.Partition(users, tasks)
			for _, r := range rejected {
				warningColor.Fprintf(stderr, "skipped %s\n", r.Error())
			}

			records, err := engine.Assign(users, tasks, now)
			if err != nil {
				return fmt.Errorf("assignment failed: %w", err)
			}

			printAssignments(cmd.OutOrStdout(), records)

			if outPath == "" {
				return nil
			}
			f, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", outPath, err)
			}
			if err := tabular.WriteAssignments(f, records, format); err != nil {
				_ = f.Close()
				return fmt.Errorf("failed to write %s: %w", outPath, err)
			}
			return f.Close()
		},
	}

	cmd.Flags().StringVar(&usersPath, "users", "", "users file (csv or xlsx)")
	cmd.Flags().StringVar(&tasksPath, "tasks", "", "tasks file (csv or xlsx)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write assignments to this file")
	cmd.Flags().StringVar(&outFormat, "format", "csv", "output file format (csv or xlsx)")
	_ = cmd.MarkFlagRequired("users")
	_ = cmd.MarkFlagRequired("tasks")

	return cmd
}

// newEngine builds the matching engine from the matching configuration.
func newEngine() (matching.Service, error) {
	cfg, err := config.LoadMatching()
	if err != nil {
		return nil, fmt.Errorf("failed to load matching config: %w", err)
	}
	engine, err := matching.NewServiceWithParams(matching.NewParams(cfg.EngineParams()))
	if err != nil {
		return nil, fmt.Errorf("failed to create matching engine: %w", err)
	}
	return engine, nil
}

func readUsers(path string, now time.Time) ([]*domain.User, []tabular.RowError, error) {
	rows, err := readRowsFromFile(path)
	if err != nil {
		return nil, nil, err
	}
	users, rowErrs, err := tabular.ParseUsers(rows, now)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return users, rowErrs, nil
}

func readTasks(path string, now time.Time) ([]*domain.Task, []tabular.RowError, error) {
	rows, err := readRowsFromFile(path)
	if err != nil {
		return nil, nil, err
	}
	tasks, rowErrs, err := tabular.ParseTasks(rows, now)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return tasks, rowErrs, nil
}

func readRowsFromFile(path string) ([]tabular.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	head, _ := r.Peek(4)
	rows, err := tabular.ReadRows(r, tabular.DetectFormat(path, head))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

func reportRowErrors(w io.Writer, path string, rowErrs []tabular.RowError) {
	for _, e := range rowErrs {
		warningColor.Fprintf(w, "%s: skipped %s\n", path, e.Error())
	}
}

func printAssignments(w io.Writer, records []domain.AssignmentRecord) {
	headerColor.Fprintf(w, "%-36s  %-24s  %-8s  %-10s  %s\n", "TASK", "ASSIGNED TO", "PRIORITY", "DEADLINE", "CONFIDENCE")

	assigned := 0
	for _, r := range records {
		deadline := "-"
		if r.Deadline != nil {
			deadline = r.Deadline.Format(tabular.DeadlineDateLayout)
		}
		priority := string(r.Priority)
		if c, ok := priorityColor[r.Priority]; ok {
			priority = c.Sprintf("%-8s", priority)
		} else {
			priority = fmt.Sprintf("%-8s", priority)
		}
		if r.IsAssigned() {
			assigned++
		}
		fmt.Fprintf(w, "%-36s  %-24s  %s  %-10s  %.2f\n",
			truncate(r.TaskTitle, 36), truncate(r.AssigneeLabel(), 24), priority, deadline, r.Confidence)
	}

	summaryColor.Fprintf(w, "\nAssigned %d of %d tasks\n", assigned, len(records))
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
