package handshake

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mitchellh/mapstructure"
)

// LoadJobs reads a jobs dump produced by the discovery agent. The dump is
// either a bare JSON array of postings or an object with a top-level "jobs"
// key; field names are not guaranteed to be stable across agent versions, so
// the payload is decoded leniently from generic maps.
func LoadJobs(path string) (*Jobs, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading jobs dump: %w", err)
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing jobs dump %q: %w", path, err)
	}

	items := raw
	if obj, ok := raw.(map[string]any); ok {
		switch {
		case obj["jobs"] != nil:
			items = obj["jobs"]
		case obj["Items"] != nil:
			items = obj["Items"]
		default:
			return nil, fmt.Errorf("jobs dump %q has no jobs key", path)
		}
	}

	var jobs []*JobPosting
	cfg := &mapstructure.DecoderConfig{
		Result:     &jobs,
		TagName:    "json",
		DecodeHook: mapstructure.StringToTimeHookFunc(time.RFC3339),
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(items); err != nil {
		return nil, fmt.Errorf("decoding jobs dump %q: %w", path, err)
	}

	return &Jobs{Items: jobs}, nil
}
