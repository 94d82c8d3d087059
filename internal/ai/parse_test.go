package ai

import "testing"

func TestParseSectionsHandlesCodeFence(t *testing.T) {
	raw := "```json\n{\"summary\": \"Backend focused student.\", \"top_skills\": [\"Go\", \"SQL\"], \"experience_highlights\": [\"Built a pipeline\"]}\n```"

	sections, err := ParseSections(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sections.Summary != "Backend focused student." {
		t.Fatalf("unexpected summary: %q", sections.Summary)
	}
	if len(sections.TopSkills) != 2 || sections.TopSkills[0] != "Go" {
		t.Fatalf("unexpected skills: %v", sections.TopSkills)
	}
	if len(sections.Highlights) != 1 {
		t.Fatalf("unexpected highlights: %v", sections.Highlights)
	}
}

func TestParseSectionsCoercesScalars(t *testing.T) {
	raw := `{"summary": "  padded  ", "top_skills": "Go", "experience_highlights": null}`

	sections, err := ParseSections(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sections.Summary != "padded" {
		t.Fatalf("expected trimmed summary, got %q", sections.Summary)
	}
	if len(sections.TopSkills) != 1 || sections.TopSkills[0] != "Go" {
		t.Fatalf("expected scalar skill coerced to a list, got %v", sections.TopSkills)
	}
	if sections.Highlights != nil {
		t.Fatalf("expected nil highlights, got %v", sections.Highlights)
	}
}

func TestParseSectionsRejectsNonJSON(t *testing.T) {
	if _, err := ParseSections("not json at all"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a": 1}`, `{"a": 1}`},
		{"fenced", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"fenced without language", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"backticked", "`{\"a\": 1}`", `{"a": 1}`},
		{"padded", "  {\"a\": 1}  ", `{"a": 1}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExtractJSON(tc.in); got != tc.want {
				t.Fatalf("ExtractJSON(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
