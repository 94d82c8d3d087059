package qa

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	_ "embed"

	"github.com/clawdbot/handshake-responder/internal/ai"
	"github.com/clawdbot/handshake-responder/internal/config"
	"github.com/clawdbot/handshake-responder/internal/handshake"
	"github.com/clawdbot/handshake-responder/internal/logger"
	"go.uber.org/zap"
)

// Answer provenance tags.
const (
	ProvenanceDefault   = "default"
	ProvenanceGenerated = "generated"
	ProvenanceEscalated = "user-escalated"
)

//go:embed choice_prompt.md
var choicePromptTemplate string

//go:embed freetext_prompt.md
var freetextPromptTemplate string

// errConstraint drives the single retry when a generated choice answer is not
// a member of the allowed set. It never leaves this package.
var errConstraint = errors.New("generated answer not in allowed choices")

const defaultMaxLogLen = 200

// Answer is the resolver's verdict for one form field. An escalated answer is
// a control signal, not an error: the caller must obtain the value from a
// human before proceeding.
type Answer struct {
	Prompt     string              `json:"prompt"`
	Type       handshake.InputType `json:"input_type"`
	Value      string              `json:"value,omitempty"`
	Values     []string            `json:"values,omitempty"`
	Provenance string              `json:"provenance"`
	Escalated  bool                `json:"escalated,omitempty"`
	Reason     string              `json:"reason,omitempty"`
}

// JobContext carries the posting metadata a generated answer may refer to.
type JobContext struct {
	Title   string
	Company string
}

// Resolver maps application form prompts to answers: configured defaults
// first, escalation for sensitive prompts, then bounded generation.
type Resolver struct {
	defaults  map[string]string
	byPrompt  map[string]string
	aliases   []config.AliasRule
	sensitive []string
	gen       ai.Generator
	maxChars  int
	maxLogLen int
	logger    *zap.Logger
}

func NewResolver(cfg *config.Config, gen ai.Generator, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}

	byPrompt := make(map[string]string, len(cfg.QA.Defaults))
	for key, value := range cfg.QA.Defaults {
		if value == "" {
			continue
		}
		byPrompt[Normalize(key)] = value
	}

	maxLogLen := defaultMaxLogLen
	if cfg.AI != nil && cfg.AI.Gemini != nil && cfg.AI.Gemini.MaxLogLength > 0 {
		maxLogLen = cfg.AI.Gemini.MaxLogLength
	}

	return &Resolver{
		defaults:  cfg.QA.Defaults,
		byPrompt:  byPrompt,
		aliases:   cfg.QA.Aliases,
		sensitive: sensitivePatterns(cfg.QA.SensitivePatterns),
		gen:       gen,
		maxChars:  cfg.QA.MaxAnswerChars,
		maxLogLen: maxLogLen,
		logger:    log,
	}
}

var normStripRe = regexp.MustCompile(`[^a-z0-9]+`)

// Normalize case-folds the prompt, strips punctuation and collapses
// whitespace, so byte-different renderings of the same question hit the same
// default.
func Normalize(prompt string) string {
	lowered := strings.ToLower(prompt)
	return strings.Join(strings.Fields(normStripRe.ReplaceAllString(lowered, " ")), " ")
}

// Resolve maps one form field to an answer. It never returns an error:
// everything that cannot be answered deterministically or generatively
// degrades to an escalated answer.
func (r *Resolver) Resolve(ctx context.Context, q *handshake.ApplicationQuestion, job JobContext) *Answer {
	norm := Normalize(q.Prompt)
	choices := cleanChoices(q.Choices)
	if q.Type == handshake.InputBoolean && len(choices) == 0 {
		choices = []string{"Yes", "No"}
	}

	// Configured defaults win over everything, for reproducibility.
	if value, ok := r.defaultFor(norm); ok {
		if len(choices) == 0 {
			return r.answered(q, r.truncate(value), nil, ProvenanceDefault)
		}
		if match := matchChoice(value, choices); match != "" {
			return r.answered(q, match, []string{match}, ProvenanceDefault)
		}
		// The default does not map onto this choice set; treat the prompt
		// as having no usable default rather than guessing.
		r.logger.Debug("default answer not among choices",
			zap.String("prompt", logger.TruncateForLog(q.Prompt, r.maxLogLen)),
			zap.String("default", value),
		)
	}

	if r.isSensitive(norm) {
		return r.escalate(q, "legal or eligibility prompt requires a user-confirmed answer")
	}

	if len(choices) > 0 {
		return r.resolveChoice(ctx, q, job, norm, choices)
	}

	return r.resolveFreeText(ctx, q, job, norm)
}

func (r *Resolver) resolveChoice(ctx context.Context, q *handshake.ApplicationQuestion, job JobContext, norm string, choices []string) *Answer {
	if r.gen != nil {
		value, err := r.generateChoice(ctx, q, job, choices)
		if err == nil {
			return r.answered(q, value, []string{value}, ProvenanceGenerated)
		}
		r.logger.Warn("choice generation failed; falling back to heuristic",
			zap.String("prompt", logger.TruncateForLog(q.Prompt, r.maxLogLen)),
			zap.Error(err),
		)
	}

	if value := affirmativeChoice(norm, choices); value != "" {
		return r.answered(q, value, []string{value}, ProvenanceGenerated)
	}

	return r.answered(q, choices[0], []string{choices[0]}, ProvenanceGenerated)
}

func (r *Resolver) resolveFreeText(ctx context.Context, q *handshake.ApplicationQuestion, job JobContext, norm string) *Answer {
	if r.gen != nil {
		value, err := r.generateFreeText(ctx, q, job)
		if err == nil {
			return r.answered(q, r.truncate(value), nil, ProvenanceGenerated)
		}
		r.logger.Warn("free text generation failed; falling back to defaults",
			zap.String("prompt", logger.TruncateForLog(q.Prompt, r.maxLogLen)),
			zap.Error(err),
		)
	}

	// Profile-style prompts can be served from contact defaults even
	// without an alias rule.
	for _, hint := range []struct{ substr, key string }{
		{"email", "email"},
		{"phone", "phone"},
		{"linkedin", "linkedin"},
		{"github", "github"},
		{"portfolio", "portfolio"},
		{"website", "portfolio"},
	} {
		if strings.Contains(norm, hint.substr) {
			if value := r.defaults[hint.key]; value != "" {
				return r.answered(q, value, nil, ProvenanceDefault)
			}
		}
	}

	if value := r.defaults["generic"]; value != "" {
		return r.answered(q, r.truncate(value), nil, ProvenanceDefault)
	}

	return r.escalate(q, "no configured default and no generative backend available")
}

// generateChoice asks the generator for one of the allowed choices and
// verifies membership. A non-member answer is retried once with an explicit
// correction, then reported as a constraint violation.
func (r *Resolver) generateChoice(ctx context.Context, q *handshake.ApplicationQuestion, job JobContext, choices []string) (string, error) {
	retryNote := ""
	for attempt := 0; attempt < 2; attempt++ {
		prompt := strings.ReplaceAll(choicePromptTemplate, "{{QUESTION}}", q.Prompt)
		prompt = strings.ReplaceAll(prompt, "{{JOB}}", describeJob(job))
		prompt = strings.ReplaceAll(prompt, "{{CHOICES}}", bulletChoices(choices))
		prompt = strings.ReplaceAll(prompt, "{{RETRY_NOTE}}", retryNote)

		raw, err := r.gen.Generate(ctx, prompt)
		if err != nil {
			return "", err
		}

		if match := matchChoice(strings.TrimSpace(raw), choices); match != "" {
			return match, nil
		}

		r.logger.Debug("generated answer outside allowed choices",
			zap.String("prompt", logger.TruncateForLog(q.Prompt, r.maxLogLen)),
			zap.String("response_preview", logger.TruncateForLog(raw, r.maxLogLen)),
			zap.Int("attempt", attempt+1),
		)
		retryNote = "Your previous answer was not one of the options. Reply with one option verbatim."
	}

	return "", errConstraint
}

func (r *Resolver) generateFreeText(ctx context.Context, q *handshake.ApplicationQuestion, job JobContext) (string, error) {
	prompt := strings.ReplaceAll(freetextPromptTemplate, "{{QUESTION}}", q.Prompt)
	prompt = strings.ReplaceAll(prompt, "{{JOB}}", describeJob(job))
	prompt = strings.ReplaceAll(prompt, "{{FACTS}}", factsBlock(r.defaults))

	raw, err := r.gen.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}

	value := strings.TrimSpace(ai.ExtractJSON(raw))
	if value == "" {
		return "", fmt.Errorf("empty generated answer")
	}
	return value, nil
}

func (r *Resolver) defaultFor(norm string) (string, bool) {
	for _, rule := range r.aliases {
		for _, pattern := range rule.Patterns {
			if pattern != "" && strings.Contains(norm, pattern) {
				if value := r.defaults[rule.Key]; value != "" {
					return value, true
				}
			}
		}
	}

	value, ok := r.byPrompt[norm]
	return value, ok
}

func (r *Resolver) isSensitive(norm string) bool {
	for _, pattern := range r.sensitive {
		if strings.Contains(norm, pattern) {
			return true
		}
	}
	return false
}

func (r *Resolver) answered(q *handshake.ApplicationQuestion, value string, values []string, provenance string) *Answer {
	return &Answer{
		Prompt:     q.Prompt,
		Type:       q.Type,
		Value:      value,
		Values:     values,
		Provenance: provenance,
	}
}

func (r *Resolver) escalate(q *handshake.ApplicationQuestion, reason string) *Answer {
	r.logger.Info("escalating question to the operator",
		zap.String("prompt", logger.TruncateForLog(q.Prompt, r.maxLogLen)),
		zap.String("reason", reason),
	)
	return &Answer{
		Prompt:     q.Prompt,
		Type:       q.Type,
		Provenance: ProvenanceEscalated,
		Escalated:  true,
		Reason:     reason,
	}
}

func (r *Resolver) truncate(value string) string {
	if r.maxChars <= 0 {
		return value
	}
	runes := []rune(value)
	if len(runes) <= r.maxChars {
		return value
	}
	return string(runes[:r.maxChars])
}

func cleanChoices(choices []string) []string {
	cleaned := make([]string, 0, len(choices))
	for _, choice := range choices {
		if choice = strings.TrimSpace(choice); choice != "" {
			cleaned = append(cleaned, choice)
		}
	}
	return cleaned
}

// matchChoice maps a candidate answer onto one of the allowed choices: exact
// normalized equality first, containment either way second.
func matchChoice(answer string, choices []string) string {
	norm := Normalize(answer)
	if norm == "" {
		return ""
	}

	for _, choice := range choices {
		if Normalize(choice) == norm {
			return choice
		}
	}
	for _, choice := range choices {
		choiceNorm := Normalize(choice)
		if strings.Contains(norm, choiceNorm) || strings.Contains(choiceNorm, norm) {
			return choice
		}
	}
	return ""
}

var willingnessTerms = []string{
	"willing", "available", "availability", "able to", "relocate",
	"relocation", "commute", "on site", "in person", "hybrid",
	"currently enrolled", "18 years", "start",
}

// affirmativeChoice prefers an explicit yes for willingness and availability
// style prompts. Anything else gets no opinion from the heuristic.
func affirmativeChoice(norm string, choices []string) string {
	willingness := false
	for _, term := range willingnessTerms {
		if strings.Contains(norm, term) {
			willingness = true
			break
		}
	}
	if !willingness {
		return ""
	}

	for _, choice := range choices {
		choiceNorm := Normalize(choice)
		if choiceNorm == "yes" || strings.HasPrefix(choiceNorm, "yes ") {
			return choice
		}
	}
	return ""
}

func describeJob(job JobContext) string {
	switch {
	case job.Title != "" && job.Company != "":
		return fmt.Sprintf("%s at %s", job.Title, job.Company)
	case job.Title != "":
		return job.Title
	case job.Company != "":
		return job.Company
	default:
		return "internship application"
	}
}

func bulletChoices(choices []string) string {
	var builder strings.Builder
	for i, choice := range choices {
		if i > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString("- ")
		builder.WriteString(choice)
	}
	return builder.String()
}

func factsBlock(defaults map[string]string) string {
	if len(defaults) == 0 {
		return "  - none provided"
	}

	keys := make([]string, 0, len(defaults))
	for key := range defaults {
		keys = append(keys, key)
	}
	// Stable prompt content keeps retries and tests deterministic.
	sort.Strings(keys)

	var builder strings.Builder
	for _, key := range keys {
		value := defaults[key]
		if value == "" {
			continue
		}
		if builder.Len() > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString("  - ")
		builder.WriteString(key)
		builder.WriteString(": ")
		builder.WriteString(value)
	}
	if builder.Len() == 0 {
		return "  - none provided"
	}
	return builder.String()
}
