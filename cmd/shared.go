package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/clawdbot/handshake-responder/internal/ai"
	"github.com/clawdbot/handshake-responder/internal/ai/gemini"
	"github.com/clawdbot/handshake-responder/internal/config"
	"github.com/clawdbot/handshake-responder/internal/logger"
	"github.com/clawdbot/handshake-responder/internal/secrets"

	"go.uber.org/zap"
)

// newGenerator builds the optional generative backend. A disabled or missing
// ai section yields a nil generator; every core component degrades cleanly
// without one.
func newGenerator(ctx context.Context, cfg *config.AI, log *zap.Logger) (ai.Generator, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	if cfg.Gemini == nil {
		return nil, fmt.Errorf("gemini configuration is required when ai is enabled")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: cfg.Gemini.APIKeyFile,
		Env:  "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	genLogger := logger.WithGeneratorFields(log, "gemini", cfg.Gemini.Model)
	genLogger.Debug("building gemini generator")

	temperature := cfg.Gemini.Temperature
	generator, err := gemini.New(ctx, apiKey, cfg.Gemini.Model, temperature)
	if err != nil {
		return nil, err
	}

	return generator, nil
}
