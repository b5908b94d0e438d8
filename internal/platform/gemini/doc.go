// Package gemini implements generation.Explainer with Google's Gemini API.
//
// The explainer renders a short prompt describing the assignment, asks the
// model for a single sentence and retries transient failures with
// exponential backoff. Blocked or empty responses are returned as
// generation errors so callers can fall back to the template reason.
package gemini
