package handshake

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeDump(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jobs.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing dump: %v", err)
	}
	return path
}

func TestLoadJobsObjectForm(t *testing.T) {
	path := writeDump(t, `{
  "jobs": [
    {
      "id": "j1",
      "title": "Software Intern",
      "company": "Acme",
      "location": "Boston, MA",
      "url": "https://board.example/j1",
      "description": "<p>Backend internship in <b>Go</b>.</p>",
      "discovered_at": "2026-08-01T12:00:00Z",
      "questions": [
        {"prompt": "Why Acme?", "input_type": "free_text", "required": true},
        {"prompt": "Preferred team", "input_type": "single_choice", "choices": ["Platform", "Mobile"]}
      ]
    }
  ]
}`)

	jobs, err := LoadJobs(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if jobs.Len() != 1 {
		t.Fatalf("expected 1 job, got %d", jobs.Len())
	}

	job := jobs.Items[0]
	if job.ID != "j1" || job.Company != "Acme" {
		t.Fatalf("unexpected job: %+v", job)
	}
	want := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	if !job.DiscoveredAt.Equal(want) {
		t.Fatalf("expected discovered_at %v, got %v", want, job.DiscoveredAt)
	}

	if len(job.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(job.Questions))
	}
	if job.Questions[0].Type != InputFreeText || !job.Questions[0].Required {
		t.Fatalf("unexpected first question: %+v", job.Questions[0])
	}
	if len(job.Questions[1].Choices) != 2 {
		t.Fatalf("unexpected choices: %v", job.Questions[1].Choices)
	}
}

func TestLoadJobsBareArray(t *testing.T) {
	path := writeDump(t, `[{"id": "j1", "title": "Intern"}, {"id": "j2", "title": "Intern 2"}]`)

	jobs, err := LoadJobs(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if jobs.Len() != 2 {
		t.Fatalf("expected 2 jobs, got %d", jobs.Len())
	}
}

func TestLoadJobsRejectsUnknownShape(t *testing.T) {
	path := writeDump(t, `{"postings": []}`)

	if _, err := LoadJobs(path); err == nil {
		t.Fatalf("expected error for dump without a jobs key")
	}
}

func TestLoadJobsMissingFile(t *testing.T) {
	if _, err := LoadJobs(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for missing dump")
	}
}
