package ledger

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"
)

// Outcome statuses, one per job per run.
const (
	StatusSubmitted = "submitted"
	StatusStopped   = "stopped_before_submit"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

// Outcome is the system-of-record entry for one job in one run.
type Outcome struct {
	RunID      string    `json:"run_id"`
	JobID      string    `json:"job_id"`
	Status     string    `json:"status"`
	Reason     string    `json:"reason,omitempty"`
	ResumePath string    `json:"resume_path,omitempty"`
	Answers    []string  `json:"answers,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Ledger appends outcomes to a line-per-record JSON file. Append is the only
// mutation; the file is never rewritten or compacted here.
type Ledger struct {
	path string
	mu   sync.Mutex
}

func New(path string) *Ledger {
	return &Ledger{path: path}
}

func (l *Ledger) Path() string {
	return l.path
}

// Append writes the outcome as a single line. The record is marshalled first
// and written with one Write call under the lock, so concurrent appends for
// different jobs cannot interleave.
func (l *Ledger) Append(o *Outcome) error {
	if o == nil {
		return fmt.Errorf("outcome is required")
	}
	if o.JobID == "" {
		return fmt.Errorf("outcome job id is required")
	}
	if o.RecordedAt.IsZero() {
		o.RecordedAt = time.Now().UTC()
	}

	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating ledger directory: %w", err)
		}
	}

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening ledger: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(data); err != nil {
		return fmt.Errorf("appending outcome: %w", err)
	}

	return nil
}

// JobIDsByStatus reads the ledger back and returns the job IDs recorded with
// any of the given statuses. A missing ledger file yields an empty result. A
// crash can leave a truncated final line; records that do not parse are
// skipped rather than failing the whole read.
func (l *Ledger) JobIDsByStatus(statuses ...string) ([]string, error) {
	file, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	defer file.Close()

	var ids []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var o Outcome
		if err := json.Unmarshal(line, &o); err != nil {
			continue
		}
		if slices.Contains(statuses, o.Status) {
			ids = append(ids, o.JobID)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ledger: %w", err)
	}

	return ids, nil
}
