package gemini

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"text/template"
	"time"

	"github.com/phrazzld/skillmatch-api/internal/config"
	"github.com/phrazzld/skillmatch-api/internal/generation"
	"google.golang.org/genai"
)

// maxReasonLength caps the stored reason.
const maxReasonLength = 280

const promptText = `You explain task assignments to engineers in one short sentence.
Task: {{.TaskTitle}}
Assignee: {{.UserName}} ({{.Role}}, {{.ExperienceYears}} years of experience)
{{- if .MatchedSkills}}
Matching skills: {{join .MatchedSkills ", "}}
{{- end}}
{{- if .MissingSkills}}
Skills to grow: {{join .MissingSkills ", "}}
{{- end}}
Priority: {{.Priority}}
Match confidence: {{printf "%.0f" (percent .Confidence)}}%
Reply with the sentence only, without quotes.`

var promptTemplate = template.Must(template.New("explain").Funcs(template.FuncMap{
	"join":    strings.Join,
	"percent": func(f float64) float64 { return f * 100 },
}).Parse(promptText))

// contentGenerator is the part of *genai.Models the explainer uses.
type contentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Explainer implements generation.Explainer using the Gemini API.
type Explainer struct {
	logger     *slog.Logger
	models     contentGenerator
	model      string
	timeout    time.Duration
	maxRetries int
	baseDelay  time.Duration
}

var _ generation.Explainer = (*Explainer)(nil)

// NewExplainer creates a Gemini-backed explainer from cfg.
func NewExplainer(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Explainer, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}

	return newExplainer(logger, client.Models, cfg), nil
}

func newExplainer(logger *slog.Logger, models contentGenerator, cfg config.LLMConfig) *Explainer {
	e := &Explainer{
		logger:     logger.With(slog.String("component", "gemini_explainer")),
		models:     models,
		model:      cfg.ModelName,
		timeout:    time.Duration(cfg.TimeoutSeconds) * time.Second,
		maxRetries: cfg.MaxRetries,
		baseDelay:  time.Duration(cfg.RetryDelaySeconds) * time.Second,
	}
	if e.maxRetries < 0 {
		e.maxRetries = 0
	}
	if e.baseDelay <= 0 {
		e.baseDelay = time.Second
	}
	return e
}

// Explain implements generation.Explainer.
func (e *Explainer) Explain(ctx context.Context, in generation.ExplainInput) (string, error) {
	prompt, err := createPrompt(in)
	if err != nil {
		return "", err
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	return e.callWithRetry(ctx, prompt)
}

func createPrompt(in generation.ExplainInput) (string, error) {
	if strings.TrimSpace(in.TaskTitle) == "" {
		return "", ErrEmptyTaskTitle
	}
	var buf bytes.Buffer
	if err := promptTemplate.Execute(&buf, in); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}

// callWithRetry calls the model with exponential backoff and jitter.
// Blocked and malformed responses are not retried.
func (e *Explainer) callWithRetry(ctx context.Context, prompt string) (string, error) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	config := &genai.GenerateContentConfig{Temperature: genai.Ptr[float32](0.3)}

	for attempt := 0; ; attempt++ {
		resp, err := e.models.GenerateContent(ctx, e.model, genai.Text(prompt), config)
		if err == nil {
			reason, perr := extractReason(resp)
			if perr != nil {
				e.logger.WarnContext(ctx, "unusable Gemini response", "error", perr)
				return "", perr
			}
			e.logger.DebugContext(ctx, "Gemini explanation generated", "attempt", attempt+1)
			return reason, nil
		}

		e.logger.ErrorContext(ctx, "Gemini API call failed",
			"attempt", attempt+1,
			"error", err)

		if attempt >= e.maxRetries {
			return "", fmt.Errorf("%w: exceeded maximum retry attempts (%d): %v",
				generation.ErrTransientFailure, e.maxRetries, err)
		}

		// delay = baseDelay * 2^attempt * [0.5, 1.0)
		backoff := float64(e.baseDelay) * math.Pow(2, float64(attempt))
		delay := time.Duration(backoff * (0.5 + rng.Float64()*0.5))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", generation.ErrTransientFailure, ctx.Err())
		}
	}
}

func extractReason(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}
	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", generation.ErrContentBlocked
	}
	if candidate.Content == nil {
		return "", fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}

	reason := strings.Trim(strings.TrimSpace(sb.String()), `"'`)
	reason = strings.Join(strings.Fields(reason), " ")
	if reason == "" {
		return "", fmt.Errorf("%w: blank explanation", generation.ErrInvalidResponse)
	}
	if r := []rune(reason); len(r) > maxReasonLength {
		reason = strings.TrimSpace(string(r[:maxReasonLength-1])) + "…"
	}
	return reason, nil
}
