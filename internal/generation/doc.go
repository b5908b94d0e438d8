// Package generation produces the human-readable reason stored with each
// assignment. The Explainer interface keeps the assignment service independent
// of any LLM provider; the template explainer is always available and the
// Gemini implementation lives in internal/platform/gemini.
package generation
