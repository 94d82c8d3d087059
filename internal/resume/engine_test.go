package resume

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/clawdbot/handshake-responder/internal/config"
	"github.com/clawdbot/handshake-responder/internal/handshake"
	"go.uber.org/zap"
)

const testBaseResume = `Jordan Avery
Software engineering student focused on backend services and data tooling.

Skills:
Go, Python, SQL, Docker, Linux

Experience:
- Built a reporting pipeline in Python and SQL for the campus registrar
- Wrote a Go service that syncs Docker build artifacts to object storage
- Automated Linux server provisioning for the robotics club
`

const testTemplate = `# {{FULL_NAME}} ({{ROLE}} at {{COMPANY}})

{{SUMMARY}}

## Top Skills
{{TOP_SKILLS}}

## Highlights
{{EXPERIENCE_HIGHLIGHTS}}
`

type stubGenerator struct {
	response string
	err      error
	calls    int
}

func (s *stubGenerator) Generate(_ context.Context, _ string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func testEngineConfig(t *testing.T, template string) *config.Config {
	t.Helper()

	dir := t.TempDir()
	basePath := filepath.Join(dir, "base_resume.txt")
	templatePath := filepath.Join(dir, "template.md")
	if err := os.WriteFile(basePath, []byte(testBaseResume), 0o644); err != nil {
		t.Fatalf("writing base resume: %v", err)
	}
	if err := os.WriteFile(templatePath, []byte(template), 0o644); err != nil {
		t.Fatalf("writing template: %v", err)
	}

	return &config.Config{
		Resume: &config.Resume{
			Mode:         config.ResumeModeTemplate,
			BasePath:     basePath,
			TemplatePath: templatePath,
			OutputDir:    filepath.Join(dir, "out"),
		},
		QA: &config.QA{
			Defaults: map[string]string{
				"full_name": "Jordan Avery",
			},
		},
	}
}

func testJob() *handshake.JobPosting {
	return &handshake.JobPosting{
		ID:          "j1",
		Title:       "Software Intern",
		Company:     "Acme Robotics",
		Location:    "Boston, MA",
		Description: "Looking for interns with Python and SQL experience.",
	}
}

func TestTailorDeterministicSections(t *testing.T) {
	cfg := testEngineConfig(t, testTemplate)
	engine, err := NewEngine(cfg, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	artifact, err := engine.Tailor(context.Background(), testJob())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantPath := filepath.Join(cfg.Resume.OutputDir, "acme-robotics-software-intern-j1.md")
	if artifact.Path != wantPath {
		t.Fatalf("expected path %q, got %q", wantPath, artifact.Path)
	}

	content := string(artifact.Content)
	if strings.Contains(content, "{{") {
		t.Fatalf("rendered resume has unresolved slots: %s", content)
	}

	// Skills overlapping the description come first.
	pythonIdx := strings.Index(content, "- Python")
	goIdx := strings.Index(content, "- Go")
	if pythonIdx == -1 || goIdx == -1 {
		t.Fatalf("expected base skills in output: %s", content)
	}
	if pythonIdx > goIdx {
		t.Fatalf("expected description-matched skills to be listed first: %s", content)
	}

	if !strings.Contains(content, "Built a reporting pipeline in Python and SQL") {
		t.Fatalf("expected base highlights in output: %s", content)
	}

	saved, err := os.ReadFile(artifact.Path)
	if err != nil {
		t.Fatalf("reading artifact: %v", err)
	}
	if string(saved) != content {
		t.Fatalf("persisted artifact differs from returned content")
	}
}

func TestTailorIsIdempotent(t *testing.T) {
	cfg := testEngineConfig(t, testTemplate)
	engine, err := NewEngine(cfg, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first, err := engine.Tailor(context.Background(), testJob())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := engine.Tailor(context.Background(), testJob())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first.Path != second.Path {
		t.Fatalf("re-running must land on the same path: %q vs %q", first.Path, second.Path)
	}
	if string(first.Content) != string(second.Content) {
		t.Fatalf("re-running must produce identical content")
	}
}

func TestTailorPrefersConfiguredSummary(t *testing.T) {
	cfg := testEngineConfig(t, testTemplate)
	cfg.QA.Defaults["summary"] = "Software engineering student focused on backend services."
	engine, err := NewEngine(cfg, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	artifact, err := engine.Tailor(context.Background(), testJob())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(artifact.Content), "Software engineering student focused on backend services.") {
		t.Fatalf("expected configured summary in output: %s", artifact.Content)
	}
}

func TestTailorFailsOnUnresolvedSlot(t *testing.T) {
	cfg := testEngineConfig(t, testTemplate+"\nContact: {{EMAIL}}\n")
	engine, err := NewEngine(cfg, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = engine.Tailor(context.Background(), testJob())
	if !errors.Is(err, ErrTemplate) {
		t.Fatalf("expected template error, got %v", err)
	}
	if !strings.Contains(err.Error(), "EMAIL") {
		t.Fatalf("expected unresolved slot name in error, got %v", err)
	}
}

func TestTailorDropsFabricatedGeneratedContent(t *testing.T) {
	cfg := testEngineConfig(t, testTemplate)
	stub := &stubGenerator{response: "```json\n" + `{
  "summary": "Student focused on backend services and data tooling.",
  "top_skills": ["Go", "Kubernetes"],
  "experience_highlights": [
    "Built a reporting pipeline in Python and SQL for the campus registrar",
    "Shipped Terraform modules for multi-region deployments"
  ]
}` + "\n```"}

	engine, err := NewEngine(cfg, stub, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	artifact, err := engine.Tailor(context.Background(), testJob())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stub.calls != 1 {
		t.Fatalf("expected 1 generator call, got %d", stub.calls)
	}

	content := string(artifact.Content)
	if strings.Contains(content, "Kubernetes") {
		t.Fatalf("fabricated skill leaked into the resume: %s", content)
	}
	if strings.Contains(content, "Terraform") {
		t.Fatalf("fabricated highlight leaked into the resume: %s", content)
	}
	if !strings.Contains(content, "- Go") {
		t.Fatalf("expected verified generated skill to survive: %s", content)
	}
	if !strings.Contains(content, "Built a reporting pipeline in Python and SQL") {
		t.Fatalf("expected verified generated highlight to survive: %s", content)
	}
}

func TestTailorFallsBackWhenGenerationFails(t *testing.T) {
	cfg := testEngineConfig(t, testTemplate)
	stub := &stubGenerator{err: errors.New("quota exceeded")}
	engine, err := NewEngine(cfg, stub, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	artifact, err := engine.Tailor(context.Background(), testJob())
	if err != nil {
		t.Fatalf("expected fallback to deterministic sections, got %v", err)
	}
	if !strings.Contains(string(artifact.Content), "- Python") {
		t.Fatalf("expected deterministic skills in output: %s", artifact.Content)
	}
}

func TestTailorCopyMode(t *testing.T) {
	dir := t.TempDir()
	basePath := filepath.Join(dir, "resume.pdf.txt")
	if err := os.WriteFile(basePath, []byte("static resume body"), 0o644); err != nil {
		t.Fatalf("writing base resume: %v", err)
	}

	cfg := &config.Config{
		Resume: &config.Resume{
			Mode:      config.ResumeModeCopy,
			BasePath:  basePath,
			OutputDir: filepath.Join(dir, "out"),
		},
		QA: &config.QA{},
	}

	engine, err := NewEngine(cfg, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	artifact, err := engine.Tailor(context.Background(), testJob())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Ext(artifact.Path) != ".txt" {
		t.Fatalf("expected copy to keep the base extension, got %q", artifact.Path)
	}
	if string(artifact.Content) != "static resume body" {
		t.Fatalf("copy mode must not alter the base resume")
	}
}

func TestNewEngineRejectsMissingBaseResume(t *testing.T) {
	cfg := testEngineConfig(t, testTemplate)
	cfg.Resume.BasePath = filepath.Join(t.TempDir(), "missing.txt")

	if _, err := NewEngine(cfg, nil, zap.NewNop()); !errors.Is(err, config.ErrConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestNewEngineRejectsEmptyBaseResume(t *testing.T) {
	cfg := testEngineConfig(t, testTemplate)
	if err := os.WriteFile(cfg.Resume.BasePath, []byte("   \n"), 0o644); err != nil {
		t.Fatalf("writing base resume: %v", err)
	}

	if _, err := NewEngine(cfg, nil, zap.NewNop()); !errors.Is(err, config.ErrConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestTailorRequiresJobID(t *testing.T) {
	cfg := testEngineConfig(t, testTemplate)
	engine, err := NewEngine(cfg, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := engine.Tailor(context.Background(), &handshake.JobPosting{Title: "Intern"}); err == nil {
		t.Fatalf("expected error for job without an id")
	}
}
