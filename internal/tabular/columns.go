package tabular

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/phrazzld/skillmatch-api/internal/domain"
	"golang.org/x/text/cases"
)

// columns maps a canonical field name to its index in the header row.
type columns map[string]int

// headerKey folds a header cell and keeps only letters and digits, so
// "Experience (Years)" and "experienceYears" produce the same key.
func headerKey(s string) string {
	var b strings.Builder
	for _, r := range cases.Fold().String(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// resolveColumns finds each field in header by any of its aliases and
// fails when one of required is absent.
func resolveColumns(header []string, aliases map[string][]string, required []string) (columns, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		k := headerKey(h)
		if _, seen := index[k]; !seen {
			index[k] = i
		}
	}

	cols := make(columns, len(aliases))
	for field, names := range aliases {
		for _, name := range names {
			if i, ok := index[headerKey(name)]; ok {
				cols[field] = i
				break
			}
		}
	}

	var missing []string
	for _, field := range required {
		if _, ok := cols[field]; !ok {
			missing = append(missing, aliases[field][0])
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	return cols, nil
}

func (c columns) has(field string) bool {
	_, ok := c[field]
	return ok
}

func (c columns) get(cells []string, field string) string {
	i, ok := c[field]
	if !ok || i >= len(cells) {
		return ""
	}
	return strings.Trim(cells[i], `"'`)
}

// splitList parses a JSON string array, or a semicolon or comma separated
// list. Semicolons take precedence when present.
func splitList(value string) ([]string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return []string{}, nil
	}

	if strings.HasPrefix(value, "[") {
		var items []string
		if err := json.Unmarshal([]byte(value), &items); err != nil {
			return nil, fmt.Errorf("invalid list %q: %w", value, err)
		}
		return compact(items), nil
	}

	sep := ","
	if strings.Contains(value, ";") {
		sep = ";"
	}
	return compact(strings.Split(value, sep)), nil
}

// compact trims items and drops blanks and case-insensitive duplicates.
func compact(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		key := domain.NormalizeSkill(item)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}

// parseNumber reads a number the way spreadsheets tend to hold them:
// "5", "5.0", "40%" all parse. ok is false for blanks, garbage, NaN and
// infinities.
func parseNumber(value string) (float64, bool) {
	value = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), "%"))
	if value == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// optionalNumber parses a cell that may be blank. A blank cell yields 0;
// anything else must be a finite number.
func optionalNumber(value, field string) (float64, error) {
	if strings.TrimSpace(value) == "" {
		return 0, nil
	}
	n, ok := parseNumber(value)
	if !ok {
		return 0, fmt.Errorf("invalid %s %q: not a finite number", field, value)
	}
	return n, nil
}

func parseIntOr(value string, fallback int) int {
	n, ok := parseNumber(value)
	if !ok || int(n) == 0 {
		return fallback
	}
	return int(n)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "y":
		return true
	default:
		return false
	}
}
