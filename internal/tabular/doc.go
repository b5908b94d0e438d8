// Package tabular reads and writes the spreadsheet formats used to move
// users, tasks and assignment results in and out of the service.
//
// Two dialects are accepted on import. The "standard" dialect uses camelCase
// column names matching the JSON field names (ssoId, requiredSkills, ...).
// The "dataset" dialect uses the human-readable headers found in the
// Employee and UserStory spreadsheets (SSO ID, Task Title, ...). Headers are
// matched after case folding with punctuation and spaces removed, so both
// dialects resolve to the same columns.
//
// Parsing is skip-and-report: a malformed row produces a RowError and the
// remaining rows are still returned. Only a missing required column fails
// the whole file.
package tabular
