package filtering

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/clawdbot/handshake-responder/internal/config"
	"github.com/clawdbot/handshake-responder/internal/handshake"
	"github.com/clawdbot/handshake-responder/internal/ledger"
)

// toggle carries the enabled state shared by every filtering step.
type toggle struct {
	disabled bool
	reason   string
}

func (t *toggle) Disable(reason string) {
	t.disabled = true
	t.reason = reason
}

func (t *toggle) IsEnabled() bool { return !t.disabled }

type keywordsFilter struct {
	toggle

	keywords []string
}

// NewKeywords creates a filter that keeps postings matching at least one
// configured include keyword in the title or description.
func NewKeywords() Filter {
	return &keywordsFilter{}
}

func (f *keywordsFilter) Name() string { return "keywords" }

func (f *keywordsFilter) Validate(cfg *config.Config) error {
	f.keywords = nil
	if cfg != nil && cfg.Filters != nil {
		for _, kw := range cfg.Filters.IncludeKeywords {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				f.keywords = append(f.keywords, kw)
			}
		}
	}
	return nil
}

func (f *keywordsFilter) Apply(_ context.Context, deps Deps, jobs *handshake.Jobs) (*handshake.Jobs, Step, error) {
	initial := jobs.Len()
	if len(f.keywords) == 0 {
		return jobs, Step{Initial: initial, Dropped: 0, Left: initial}, nil
	}

	kept := make([]*handshake.JobPosting, 0, initial)
	var excluded []string
	for _, job := range jobs.Items {
		haystack := strings.ToLower(job.Title + " " + job.Description)
		matched := false
		for _, kw := range f.keywords {
			if strings.Contains(haystack, kw) {
				matched = true
				break
			}
		}
		if matched {
			kept = append(kept, job)
		} else {
			excluded = append(excluded, job.ID)
		}
	}
	jobs.Items = kept

	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding postings without include keywords",
			zap.Strings("excluded_jobs", excluded),
			zap.Int("jobs_left", jobs.Len()),
		)
	}

	return jobs, Step{Initial: initial, Dropped: len(excluded), Left: jobs.Len()}, nil
}

func (f *keywordsFilter) Status() Status {
	details := map[string]string{}
	if len(f.keywords) > 0 {
		details["keywords"] = strings.Join(f.keywords, ",")
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}

type excludeTermsFilter struct {
	toggle

	terms []string
}

// NewExcludeTerms creates a filter that drops postings whose title contains
// any configured exclusion term.
func NewExcludeTerms() Filter {
	return &excludeTermsFilter{}
}

func (f *excludeTermsFilter) Name() string { return "exclude_terms" }

func (f *excludeTermsFilter) Validate(cfg *config.Config) error {
	f.terms = nil
	if cfg != nil && cfg.Filters != nil {
		for _, term := range cfg.Filters.ExcludeKeywords {
			if term = strings.ToLower(strings.TrimSpace(term)); term != "" {
				f.terms = append(f.terms, term)
			}
		}
	}
	return nil
}

func (f *excludeTermsFilter) Apply(_ context.Context, deps Deps, jobs *handshake.Jobs) (*handshake.Jobs, Step, error) {
	initial := jobs.Len()
	if len(f.terms) == 0 {
		return jobs, Step{Initial: initial, Dropped: 0, Left: initial}, nil
	}

	kept := make([]*handshake.JobPosting, 0, initial)
	var excluded []string
	for _, job := range jobs.Items {
		title := strings.ToLower(job.Title)
		dropped := false
		for _, term := range f.terms {
			if strings.Contains(title, term) {
				dropped = true
				break
			}
		}
		if dropped {
			excluded = append(excluded, job.ID)
		} else {
			kept = append(kept, job)
		}
	}
	jobs.Items = kept

	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding postings by exclusion terms",
			zap.Strings("excluded_terms", f.terms),
			zap.Strings("excluded_jobs", excluded),
			zap.Int("jobs_left", jobs.Len()),
		)
	}

	return jobs, Step{Initial: initial, Dropped: len(excluded), Left: jobs.Len()}, nil
}

func (f *excludeTermsFilter) Status() Status {
	details := map[string]string{}
	if len(f.terms) > 0 {
		details["terms"] = strings.Join(f.terms, ",")
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}

type locationsFilter struct {
	toggle

	locations []string
}

// NewLocations creates a filter that keeps postings in a preferred location.
// Remote postings always pass; an empty allow-list passes everything.
func NewLocations() Filter {
	return &locationsFilter{}
}

func (f *locationsFilter) Name() string { return "locations" }

func (f *locationsFilter) Validate(cfg *config.Config) error {
	f.locations = nil
	if cfg != nil && cfg.Filters != nil {
		for _, loc := range cfg.Filters.PreferredLocations {
			if loc = strings.ToLower(strings.TrimSpace(loc)); loc != "" {
				f.locations = append(f.locations, loc)
			}
		}
	}
	return nil
}

func (f *locationsFilter) Apply(_ context.Context, deps Deps, jobs *handshake.Jobs) (*handshake.Jobs, Step, error) {
	initial := jobs.Len()
	if len(f.locations) == 0 {
		return jobs, Step{Initial: initial, Dropped: 0, Left: initial}, nil
	}

	kept := make([]*handshake.JobPosting, 0, initial)
	var excluded []string
	for _, job := range jobs.Items {
		location := strings.ToLower(job.Location)
		matched := strings.Contains(location, "remote")
		if !matched {
			for _, loc := range f.locations {
				if strings.Contains(location, loc) {
					matched = true
					break
				}
			}
		}
		if matched {
			kept = append(kept, job)
		} else {
			excluded = append(excluded, job.ID)
		}
	}
	jobs.Items = kept

	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding postings outside preferred locations",
			zap.Strings("excluded_jobs", excluded),
			zap.Int("jobs_left", jobs.Len()),
		)
	}

	return jobs, Step{Initial: initial, Dropped: len(excluded), Left: jobs.Len()}, nil
}

func (f *locationsFilter) Status() Status {
	details := map[string]string{}
	if len(f.locations) > 0 {
		details["locations"] = strings.Join(f.locations, ",")
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}

type appliedHistoryFilter struct {
	toggle
}

// NewAppliedHistory creates a filter that removes postings already recorded
// as submitted in the run ledger.
func NewAppliedHistory() Filter {
	return &appliedHistoryFilter{}
}

func (f *appliedHistoryFilter) Name() string { return "applied_history" }

func (f *appliedHistoryFilter) Validate(*config.Config) error { return nil }

func (f *appliedHistoryFilter) Apply(_ context.Context, deps Deps, jobs *handshake.Jobs) (*handshake.Jobs, Step, error) {
	initial := jobs.Len()
	if deps.Ledger == nil {
		return jobs, Step{}, fmt.Errorf("ledger is required")
	}

	applied, err := deps.Ledger.JobIDsByStatus(ledger.StatusSubmitted)
	if err != nil {
		return jobs, Step{}, fmt.Errorf("reading applied history: %w", err)
	}

	excluded := jobs.Exclude(handshake.JobIDField, applied)
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding postings recorded as submitted",
			zap.Strings("excluded_jobs", excluded),
			zap.Int("jobs_left", jobs.Len()),
		)
	}

	return jobs, Step{Initial: initial, Dropped: len(excluded), Left: jobs.Len()}, nil
}

func (f *appliedHistoryFilter) Status() Status {
	details := map[string]string{
		"exclude_applied": strconv.FormatBool(f.IsEnabled()),
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
