package ai

import "context"

// Generator is the optional generative capability injected into the resume
// engine and question resolver. Both must function fully without it.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ResumeSections is the structured output a generator proposes for a tailored
// resume. Callers verify the content against the base resume before using it.
type ResumeSections struct {
	Summary    string
	TopSkills  []string
	Highlights []string
}
