package handshake

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

const (
	JobIDField       = "ID"
	JobCompanyField  = "Company"
	JobLocationField = "Location"
)

// InputType classifies an application form field.
type InputType string

const (
	InputFreeText     InputType = "free_text"
	InputSingleChoice InputType = "single_choice"
	InputMultiChoice  InputType = "multi_choice"
	InputBoolean      InputType = "boolean"
)

// ApplicationQuestion is one form field the browser agent found on an
// application page.
type ApplicationQuestion struct {
	Prompt   string    `json:"prompt"`
	Type     InputType `json:"input_type"`
	Required bool      `json:"required,omitempty"`
	Choices  []string  `json:"choices,omitempty"`
}

// JobPosting is a single posting discovered on the board. Immutable once
// discovered; the description carries raw HTML as scraped.
type JobPosting struct {
	ID           string                 `json:"id"`
	Title        string                 `json:"title"`
	Company      string                 `json:"company,omitempty"`
	Location     string                 `json:"location,omitempty"`
	URL          string                 `json:"url,omitempty"`
	Description  string                 `json:"description,omitempty"`
	DiscoveredAt time.Time              `json:"discovered_at,omitempty"`
	Questions    []*ApplicationQuestion `json:"questions,omitempty"`
}

type Jobs struct {
	Items []*JobPosting
}

func (j *Jobs) Len() int {
	return len(j.Items)
}

func (j *Jobs) FindByID(id string) *JobPosting {
	for _, job := range j.Items {
		if job.ID == id {
			return job
		}
	}
	return nil
}

func (jp *JobPosting) GetStringField(name string) string {
	switch name {
	case JobIDField:
		return jp.ID
	case JobCompanyField:
		return jp.Company
	case JobLocationField:
		return jp.Location
	default:
		return ""
	}
}

// Exclude removes jobs whose named field matches any of the targets and
// returns the IDs of the removed jobs.
func (j *Jobs) Exclude(name string, targets []string) []string {
	var excluded []string
	for _, target := range targets {
		for idx, job := range j.Items {
			if job.GetStringField(name) == target {
				j.RemoveByIndex(idx)
				excluded = append(excluded, job.ID)
				break
			}
		}
	}
	return excluded
}

// RemoveByIndex removes a job from the list by index. Does not preserve order.
func (j *Jobs) RemoveByIndex(idx int) {
	j.Items[idx] = j.Items[len(j.Items)-1]
	j.Items = j.Items[:len(j.Items)-1]
}

// ReportByCompany groups postings by company for operator review.
func (j *Jobs) ReportByCompany() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, job := range j.Items {
		key := job.Company
		if key == "" {
			key = "unknown"
		}
		report[key] = append(report[key], map[string]string{
			"id":       job.ID,
			"title":    job.Title,
			"location": job.Location,
			"url":      job.URL,
		})
	}
	return report
}

func (j *Jobs) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "jobs_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(j); err != nil {
		return "", err
	}
	return file.Name(), nil
}

func (j *Jobs) Titles() []string {
	titles := make([]string, 0, len(j.Items))
	for _, job := range j.Items {
		titles = append(titles, fmt.Sprintf("%s / %s", job.Title, job.Company))
	}
	return titles
}
