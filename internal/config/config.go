package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// ErrConfig marks configuration problems. Callers match it with errors.Is.
var ErrConfig = errors.New("invalid configuration")

const (
	ResumeModeTemplate = "template"
	ResumeModeCopy     = "copy"

	defaultMaxDiscovered   = 150
	defaultMaxApplications = 25
	defaultPauseBetweenSec = 2
	defaultMaxAnswerChars  = 1000
	defaultLedgerFile      = "artifacts/ledger.jsonl"
	defaultOutputDir       = "artifacts/resumes"
)

// Config is the resolved, immutable configuration for a single run. It is
// constructed once at startup and passed into every core component; nothing
// in internal/ reads ambient process state.
type Config struct {
	Filters     *Filters     `mapstructure:"filters"`
	Application *Application `mapstructure:"application"`
	Resume      *Resume      `mapstructure:"resume"`
	AI          *AI          `mapstructure:"ai"`
	QA          *QA          `mapstructure:"qa"`
	LedgerFile  string       `mapstructure:"ledger-file"`
}

type Filters struct {
	SearchQuery        string   `mapstructure:"search-query"`
	IncludeKeywords    []string `mapstructure:"include-keywords"`
	ExcludeKeywords    []string `mapstructure:"exclude-keywords"`
	PreferredLocations []string `mapstructure:"preferred-locations"`
	MaxDiscovered      int      `mapstructure:"max-discovered"`
}

type Application struct {
	DryRun          bool `mapstructure:"dry-run"`
	AutoSubmit      bool `mapstructure:"auto-submit"`
	MaxApplications int  `mapstructure:"max-applications"`
	PauseBetweenSec int  `mapstructure:"pause-between-sec"`
}

type Resume struct {
	Mode         string `mapstructure:"mode"`
	BasePath     string `mapstructure:"base-path"`
	TemplatePath string `mapstructure:"template-path"`
	OutputDir    string `mapstructure:"output-dir"`
}

type AI struct {
	Enabled  bool          `mapstructure:"enabled"`
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string  `mapstructure:"api-key-file"`
	Model        string  `mapstructure:"model"`
	Temperature  float64 `mapstructure:"temperature"`
	MaxRetries   int     `mapstructure:"max-retries"`
	MaxLogLength int     `mapstructure:"max-log-length"`
}

type QA struct {
	DefaultsFile      string   `mapstructure:"defaults-file"`
	MaxAnswerChars    int      `mapstructure:"max-answer-chars"`
	SensitivePatterns []string `mapstructure:"sensitive-patterns"`

	// Resolved from DefaultsFile at load time.
	Defaults map[string]string `mapstructure:"-"`
	Aliases  []AliasRule       `mapstructure:"-"`
}

// AliasRule maps prompt substrings to a defaults key.
type AliasRule struct {
	Key      string   `yaml:"key"`
	Patterns []string `yaml:"patterns"`
}

// Load unmarshals the viper-backed configuration, fills defaults, validates,
// and resolves the QA defaults file. The returned value is treated as
// read-only for the rest of the run.
func Load() (*Config, error) {
	var cfg *Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if cfg == nil {
		cfg = &Config{}
	}

	cfg.fillDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	defaults, aliases, err := LoadQADefaults(cfg.QA.DefaultsFile)
	if err != nil {
		return nil, err
	}
	cfg.QA.Defaults = defaults
	cfg.QA.Aliases = aliases

	return cfg, nil
}

func (c *Config) fillDefaults() {
	if c.Filters == nil {
		c.Filters = &Filters{}
	}
	if c.Filters.MaxDiscovered == 0 {
		c.Filters.MaxDiscovered = defaultMaxDiscovered
	}

	if c.Application == nil {
		// Stopping before submission is the safe default.
		c.Application = &Application{DryRun: true}
	}
	if c.Application.MaxApplications == 0 {
		c.Application.MaxApplications = defaultMaxApplications
	}
	if c.Application.PauseBetweenSec == 0 {
		c.Application.PauseBetweenSec = defaultPauseBetweenSec
	}

	if c.Resume == nil {
		c.Resume = &Resume{}
	}
	if c.Resume.Mode == "" {
		c.Resume.Mode = ResumeModeTemplate
	}
	if c.Resume.OutputDir == "" {
		c.Resume.OutputDir = defaultOutputDir
	}

	if c.QA == nil {
		c.QA = &QA{}
	}
	if c.QA.MaxAnswerChars == 0 {
		c.QA.MaxAnswerChars = defaultMaxAnswerChars
	}

	if c.LedgerFile == "" {
		c.LedgerFile = defaultLedgerFile
	}
}

func (c *Config) validate() error {
	switch c.Resume.Mode {
	case ResumeModeTemplate:
		if strings.TrimSpace(c.Resume.BasePath) == "" {
			return fmt.Errorf("%w: resume.base-path is required in template mode", ErrConfig)
		}
		if strings.TrimSpace(c.Resume.TemplatePath) == "" {
			return fmt.Errorf("%w: resume.template-path is required in template mode", ErrConfig)
		}
	case ResumeModeCopy:
		if strings.TrimSpace(c.Resume.BasePath) == "" {
			return fmt.Errorf("%w: resume.base-path is required in copy mode", ErrConfig)
		}
	default:
		return fmt.Errorf("%w: unsupported resume.mode %q", ErrConfig, c.Resume.Mode)
	}

	if c.Application.MaxApplications < 0 {
		return fmt.Errorf("%w: application.max-applications must not be negative", ErrConfig)
	}

	if c.AI != nil && c.AI.Enabled {
		provider := strings.TrimSpace(strings.ToLower(c.AI.Provider))
		if provider != "" && provider != "gemini" {
			return fmt.Errorf("%w: unsupported ai provider %q", ErrConfig, c.AI.Provider)
		}
		if c.AI.Gemini == nil {
			return fmt.Errorf("%w: ai.gemini section is required when ai is enabled", ErrConfig)
		}
	}

	return nil
}
