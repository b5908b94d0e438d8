package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/phrazzld/skillmatch-api/internal/domain"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Header rows written by the exporters.
var (
	TaskHeader = []string{
		"Task Title",
		"Description (User story/ Problem description)",
		"Estimated Hours",
		"Story Points",
		"Difficulty Level",
		"Priority",
		"Status",
		"Required Skills",
	}

	UserHeader = []string{
		"SSO ID",
		"Full Name",
		"Email",
		"Role",
		"Experience (Years)",
		"Current Workload (%)",
		"Department",
		"Skills",
	}

	AssignmentHeader = []string{
		"Task ID",
		"Task Title",
		"Assigned To",
		"Priority",
		"Deadline",
		"Confidence",
	}
)

// DeadlineDateLayout formats deadlines in exported files.
const DeadlineDateLayout = "2006-01-02"

var statusLabels = map[domain.TaskStatus]string{
	domain.TaskStatusPending:    "To Do",
	domain.TaskStatusInProgress: "In Progress",
	domain.TaskStatusCompleted:  "Done",
	domain.TaskStatusCancelled:  "Cancelled",
}

// WriteTasks writes tasks in the UserStory dataset layout.
func WriteTasks(w io.Writer, tasks []*domain.Task, format Format) error {
	title := cases.Title(language.English)
	records := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		records = append(records, []string{
			t.Title,
			t.Description,
			formatFloat(t.EstimatedHours),
			strconv.Itoa(t.EffectiveStoryPoints()),
			DifficultyLabel(t.EffectiveDifficulty()),
			title.String(string(t.Priority)),
			statusLabels[t.Status],
			strings.Join(t.RequiredSkills, ";"),
		})
	}
	return write(w, format, "Tasks", TaskHeader, records)
}

// WriteUsers writes users in the Employee dataset layout. Skill levels are
// not part of that layout and are dropped.
func WriteUsers(w io.Writer, users []*domain.User, format Format) error {
	records := make([][]string, 0, len(users))
	for _, u := range users {
		names := make([]string, 0, len(u.Skills))
		for _, s := range u.Skills {
			names = append(names, s.Name)
		}
		records = append(records, []string{
			u.SSOID,
			u.Name,
			u.Email,
			string(u.Role),
			strconv.Itoa(u.ExperienceYears),
			formatFloat(u.CurrentWorkload),
			string(u.Department),
			strings.Join(names, ";"),
		})
	}
	return write(w, format, "Users", UserHeader, records)
}

// WriteAssignments writes engine output, one row per task.
func WriteAssignments(w io.Writer, records []domain.AssignmentRecord, format Format) error {
	title := cases.Title(language.English)
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		deadline := ""
		if r.Deadline != nil {
			deadline = r.Deadline.Format(DeadlineDateLayout)
		}
		rows = append(rows, []string{
			r.TaskID.String(),
			r.TaskTitle,
			r.AssigneeLabel(),
			title.String(string(r.Priority)),
			deadline,
			strconv.FormatFloat(r.Confidence, 'f', 4, 64),
		})
	}
	return write(w, format, "Assignments", AssignmentHeader, rows)
}

func write(w io.Writer, format Format, sheet string, header []string, records [][]string) error {
	switch format {
	case FormatCSV, "":
		return writeCSV(w, header, records)
	case FormatXLSX:
		return writeXLSX(w, sheet, header, records)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func writeCSV(w io.Writer, header []string, records [][]string) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := writer.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write records: %w", err)
	}
	return nil
}

func writeXLSX(w io.Writer, sheet string, header []string, records [][]string) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#0067C5"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for i, h := range header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("failed to style header: %w", err)
		}
	}

	for r, record := range records {
		for c, v := range record {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("failed to write row %d: %w", r+2, err)
			}
		}
	}

	for i := range header {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, 20); err != nil {
			return fmt.Errorf("failed to size column %s: %w", col, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write xlsx: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
