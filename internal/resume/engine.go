package resume

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	_ "embed"

	"github.com/clawdbot/handshake-responder/internal/ai"
	"github.com/clawdbot/handshake-responder/internal/config"
	"github.com/clawdbot/handshake-responder/internal/handshake"
	"github.com/clawdbot/handshake-responder/internal/logger"
	"go.uber.org/zap"
)

// ErrTemplate marks rendering failures that are fatal for a single job.
var ErrTemplate = errors.New("template error")

//go:embed prompt.md
var sectionsPromptTemplate string

const (
	maxSkills          = 8
	maxHighlights      = 6
	maxPromptChars     = 5000
	defaultMaxLogLen   = 200
	minGuardedTokenLen = 4
)

var slotRe = regexp.MustCompile(`\{\{[A-Z_]+\}\}`)

// Artifact is the rendered, persisted resume for one (job, run). Never
// mutated after creation; a re-run for the same job supersedes it in place.
type Artifact struct {
	JobID       string    `json:"job_id"`
	Path        string    `json:"path"`
	Content     []byte    `json:"-"`
	GeneratedAt time.Time `json:"generated_at"`
}

type sections struct {
	summary    string
	skills     []string
	highlights []string
}

// Engine produces per-job resume artifacts from the base resume and template.
// The generator is optional; without it the engine selects and reorders base
// content deterministically.
type Engine struct {
	resumeCfg *config.Resume
	defaults  map[string]string
	gen       ai.Generator
	logger    *zap.Logger
	maxLogLen int

	base      string
	template  string
	vocab     map[string]struct{}
	inventory []string
}

// NewEngine loads and validates the base resume and template up front so each
// Tailor call works from immutable inputs.
func NewEngine(cfg *config.Config, gen ai.Generator, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}

	e := &Engine{
		resumeCfg: cfg.Resume,
		defaults:  cfg.QA.Defaults,
		gen:       gen,
		logger:    log,
		maxLogLen: defaultMaxLogLen,
	}

	if cfg.AI != nil && cfg.AI.Gemini != nil && cfg.AI.Gemini.MaxLogLength > 0 {
		e.maxLogLen = cfg.AI.Gemini.MaxLogLength
	}

	if cfg.Resume.Mode == config.ResumeModeCopy {
		if _, err := os.Stat(cfg.Resume.BasePath); err != nil {
			return nil, fmt.Errorf("%w: base resume %q: %v", config.ErrConfig, cfg.Resume.BasePath, err)
		}
		return e, nil
	}

	base, err := os.ReadFile(cfg.Resume.BasePath)
	if err != nil {
		return nil, fmt.Errorf("%w: reading base resume %q: %v", config.ErrConfig, cfg.Resume.BasePath, err)
	}
	if strings.TrimSpace(string(base)) == "" {
		return nil, fmt.Errorf("%w: base resume %q is empty", config.ErrConfig, cfg.Resume.BasePath)
	}

	tmpl, err := os.ReadFile(cfg.Resume.TemplatePath)
	if err != nil {
		return nil, fmt.Errorf("%w: reading resume template %q: %v", config.ErrConfig, cfg.Resume.TemplatePath, err)
	}

	e.base = string(base)
	e.template = string(tmpl)
	e.vocab = tokenSet(e.base)
	e.inventory = skillInventory(e.base)

	return e, nil
}

// ArtifactPath returns the deterministic output path for a job. The scheme is
// a stable contract: repeated runs for the same job land on the same path.
func ArtifactPath(outputDir string, job *handshake.JobPosting, ext string) string {
	slug := Slug(fmt.Sprintf("%s-%s-%s", job.Company, job.Title, job.ID))
	return filepath.Join(outputDir, slug+ext)
}

// Tailor renders the resume for one posting and persists it. Failures are
// fatal for this job only; the orchestrator records them and continues.
func (e *Engine) Tailor(ctx context.Context, job *handshake.JobPosting) (*Artifact, error) {
	if job == nil || job.ID == "" {
		return nil, fmt.Errorf("job with an id is required")
	}

	if e.resumeCfg.Mode == config.ResumeModeCopy {
		return e.copyBase(job)
	}

	secs := e.deterministicSections(job)
	if e.gen != nil {
		secs = e.generateSections(ctx, job, secs)
	}

	rendered, err := e.render(job, secs)
	if err != nil {
		return nil, err
	}

	path := ArtifactPath(e.resumeCfg.OutputDir, job, ".md")
	if err := e.persist(path, []byte(rendered)); err != nil {
		return nil, err
	}

	e.logger.Info("tailored resume written",
		zap.String("job_id", job.ID),
		zap.String("path", path),
	)

	return &Artifact{
		JobID:       job.ID,
		Path:        path,
		Content:     []byte(rendered),
		GeneratedAt: time.Now().UTC(),
	}, nil
}

func (e *Engine) copyBase(job *handshake.JobPosting) (*Artifact, error) {
	data, err := os.ReadFile(e.resumeCfg.BasePath)
	if err != nil {
		return nil, fmt.Errorf("%w: reading base resume %q: %v", config.ErrConfig, e.resumeCfg.BasePath, err)
	}

	path := ArtifactPath(e.resumeCfg.OutputDir, job, filepath.Ext(e.resumeCfg.BasePath))
	if err := e.persist(path, data); err != nil {
		return nil, err
	}

	return &Artifact{
		JobID:       job.ID,
		Path:        path,
		Content:     data,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

func (e *Engine) persist(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing artifact: %w", err)
	}
	return nil
}

// deterministicSections builds the tailored sections purely from base resume
// content: skills ordered by overlap with the job description, the first
// summary line, and the leading bullet points.
func (e *Engine) deterministicSections(job *handshake.JobPosting) sections {
	descTokens := tokenSet(ExtractText(job.Description))

	var matched, rest []string
	for _, skill := range e.inventory {
		overlap := false
		for _, tok := range Tokens(skill) {
			if _, ok := descTokens[tok]; ok {
				overlap = true
				break
			}
		}
		if overlap {
			matched = append(matched, skill)
		} else {
			rest = append(rest, skill)
		}
	}

	skills := append(matched, rest...)
	if len(skills) == 0 {
		// No recognizable inventory; fall back to vocabulary overlap with
		// the description, sorted for run-to-run determinism.
		for tok := range descTokens {
			if _, ok := e.vocab[tok]; ok && len(tok) >= minGuardedTokenLen {
				skills = append(skills, tok)
			}
		}
		sort.Strings(skills)
	}
	if len(skills) > maxSkills {
		skills = skills[:maxSkills]
	}

	summary := e.defaults["summary"]
	if summary == "" {
		summary = firstParagraphLine(e.base)
	}

	return sections{
		summary:    summary,
		skills:     skills,
		highlights: bulletLines(e.base, 3),
	}
}

// generateSections asks the generator for tailored sections and verifies the
// result against the base resume vocabulary. Anything the generator proposes
// that the base resume cannot back is discarded; any failure falls back to
// the deterministic sections.
func (e *Engine) generateSections(ctx context.Context, job *handshake.JobPosting, fallback sections) sections {
	jobPayload := map[string]string{
		"id":          job.ID,
		"title":       job.Title,
		"company":     job.Company,
		"location":    job.Location,
		"description": logger.TruncateForLog(ExtractText(job.Description), maxPromptChars),
	}
	jobJSON, err := json.MarshalIndent(jobPayload, "", "  ")
	if err != nil {
		return fallback
	}

	prompt := strings.ReplaceAll(sectionsPromptTemplate, "{{JOB_JSON}}", string(jobJSON))
	prompt = strings.ReplaceAll(prompt, "{{BASE_RESUME}}", logger.TruncateForLog(e.base, maxPromptChars))

	e.logger.Debug("resume sections request",
		zap.String("job_id", job.ID),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, e.maxLogLen)),
	)

	raw, err := e.gen.Generate(ctx, prompt)
	if err != nil {
		e.logger.Warn("resume section generation failed; using deterministic sections",
			zap.String("job_id", job.ID),
			zap.Error(err),
		)
		return fallback
	}

	parsed, err := ai.ParseSections(raw)
	if err != nil {
		e.logger.Warn("unparseable resume sections; using deterministic sections",
			zap.String("job_id", job.ID),
			zap.Error(err),
		)
		return fallback
	}

	allowed := e.allowedTokens(job)
	result := fallback

	if parsed.Summary != "" && e.backedByResume(parsed.Summary, allowed) {
		result.summary = parsed.Summary
	}

	var skills []string
	for _, skill := range parsed.TopSkills {
		if e.backedByResume(skill, allowed) {
			skills = append(skills, skill)
		} else {
			e.logger.Debug("dropping fabricated skill",
				zap.String("job_id", job.ID),
				zap.String("skill", skill),
			)
		}
	}
	if len(skills) > 0 {
		if len(skills) > maxSkills {
			skills = skills[:maxSkills]
		}
		result.skills = skills
	}

	var highlights []string
	for _, highlight := range parsed.Highlights {
		if e.backedByResume(highlight, allowed) {
			highlights = append(highlights, highlight)
		} else {
			e.logger.Debug("dropping fabricated highlight",
				zap.String("job_id", job.ID),
				zap.String("highlight", logger.TruncateForLog(highlight, e.maxLogLen)),
			)
		}
	}
	if len(highlights) > 0 {
		if len(highlights) > maxHighlights {
			highlights = highlights[:maxHighlights]
		}
		result.highlights = highlights
	}

	return result
}

// allowedTokens is the base resume vocabulary plus the job's own metadata,
// which legitimately appears in the rendered document via template slots.
func (e *Engine) allowedTokens(job *handshake.JobPosting) map[string]struct{} {
	allowed := make(map[string]struct{}, len(e.vocab))
	for tok := range e.vocab {
		allowed[tok] = struct{}{}
	}
	for _, tok := range Tokens(job.Title + " " + job.Company + " " + job.Location) {
		allowed[tok] = struct{}{}
	}
	return allowed
}

// backedByResume rejects text carrying substantive tokens absent from the
// base resume. Short tokens are glue words and are not checked.
func (e *Engine) backedByResume(text string, allowed map[string]struct{}) bool {
	for _, tok := range Tokens(text) {
		if len(tok) < minGuardedTokenLen {
			continue
		}
		if _, ok := allowed[tok]; !ok {
			return false
		}
	}
	return true
}

func (e *Engine) render(job *handshake.JobPosting, secs sections) (string, error) {
	values := map[string]string{
		"{{FULL_NAME}}":             e.defaults["full_name"],
		"{{EMAIL}}":                 e.defaults["email"],
		"{{PHONE}}":                 e.defaults["phone"],
		"{{LINKEDIN}}":              e.defaults["linkedin"],
		"{{GITHUB}}":                e.defaults["github"],
		"{{GRADUATION_MONTH_YEAR}}": e.defaults["graduation_month_year"],
		"{{ROLE}}":                  job.Title,
		"{{COMPANY}}":               job.Company,
		"{{LOCATION}}":              job.Location,
		"{{SUMMARY}}":               secs.summary,
		"{{TOP_SKILLS}}":            bulletize(secs.skills),
		"{{EXPERIENCE_HIGHLIGHTS}}": bulletize(secs.highlights),
	}

	rendered := e.template
	for slot, value := range values {
		if strings.TrimSpace(value) == "" {
			// Left in place so the unresolved-slot check below fails loudly
			// instead of emitting a blank section.
			continue
		}
		rendered = strings.ReplaceAll(rendered, slot, value)
	}

	if unresolved := slotRe.FindAllString(rendered, -1); len(unresolved) > 0 {
		seen := make(map[string]struct{})
		var names []string
		for _, slot := range unresolved {
			if _, ok := seen[slot]; ok {
				continue
			}
			seen[slot] = struct{}{}
			names = append(names, strings.Trim(slot, "{}"))
		}
		sort.Strings(names)
		return "", fmt.Errorf("%w: unresolved slots: %s", ErrTemplate, strings.Join(names, ", "))
	}

	return rendered, nil
}

func bulletize(items []string) string {
	var builder strings.Builder
	for i, item := range items {
		if i > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString("- ")
		builder.WriteString(item)
	}
	return builder.String()
}
