package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/clawdbot/handshake-responder/internal/config"
	"github.com/clawdbot/handshake-responder/internal/filtering"
	"github.com/clawdbot/handshake-responder/internal/handshake"
	"github.com/clawdbot/handshake-responder/internal/ledger"
	"github.com/clawdbot/handshake-responder/internal/logger"
	"github.com/clawdbot/handshake-responder/internal/qa"
	"github.com/clawdbot/handshake-responder/internal/resume"
	"github.com/clawdbot/handshake-responder/internal/utils"

	"github.com/google/uuid"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"

	reasonOperatorDeclined     = "operator declined"
	reasonConfirmationRequired = "operator confirmation required"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process a jobs dump: tailor resumes, answer form questions, and record outcomes",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("jobs", "", "jobs dump file produced by the discovery agent (required)")
	runCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for confirmation before marking applications submitted")
	runCmd.Flags().Bool("no-input", false, "never prompt the operator; escalated questions stop the job instead")
	runCmd.Flags().BoolP("do-not-exclude-applied", "f", false, "do not exclude postings already recorded as submitted")
	runCmd.Flags().Bool("dry-run", false, "override config to stop before submission")
	runCmd.Flags().Int("max-applications", 0, "override the max applications cap for this run")

	runCmd.MarkFlagRequired("jobs")
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx := context.Background()

	log := newRunLogger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("loading config", zap.Error(err))
	}

	applyOverrides(cmd, cfg)

	log.Info("starting the handshake-responder", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(cfg, "", "  ")
	log.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	jobsPath, _ := cmd.Flags().GetString("jobs")
	jobs, err := handshake.LoadJobs(jobsPath)
	if err != nil {
		log.Fatal("loading jobs dump", zap.Error(err))
	}

	log.Info("loaded postings", zap.Int("count", jobs.Len()))

	if max := cfg.Filters.MaxDiscovered; max > 0 && jobs.Len() > max {
		jobs.Items = jobs.Items[:max]
		log.Info("capped postings to max-discovered", zap.Int("count", jobs.Len()))
	}

	led := ledger.New(cfg.LedgerFile)

	steps := []filtering.Filter{
		filtering.NewKeywords(),
		filtering.NewExcludeTerms(),
		filtering.NewLocations(),
		filtering.NewAppliedHistory(),
	}

	if ignoreApplied, _ := cmd.Flags().GetBool("do-not-exclude-applied"); ignoreApplied {
		filtering.DisableByName(steps, "applied_history", "force flag is set")
	}

	log.Debug("filter status", zap.Any("filters", filtering.Describe(steps)))

	deps := filtering.Deps{Logger: log, Ledger: led}
	jobs, err = filtering.Run(ctx, cfg, deps, steps, jobs)
	if err != nil {
		log.Fatal("filtering failed", zap.Error(err))
	}

	if jobs.Len() == 0 {
		log.Info("exiting", zap.String("reason", "no postings left after filters"))
		return
	}

	generator, err := newGenerator(ctx, cfg.AI, log)
	if err != nil {
		log.Warn("continuing without a generative backend", zap.Error(err))
		generator = nil
	}

	engine, err := resume.NewEngine(cfg, generator, log)
	if err != nil {
		log.Fatal("building resume engine", zap.Error(err))
	}

	resolver := qa.NewResolver(cfg, generator, log)

	runID := uuid.NewString()
	autoApprove, _ := cmd.Flags().GetBool("auto-approve")
	noInput, _ := cmd.Flags().GetBool("no-input")

	log.Info("processing postings",
		zap.String("run_id", runID),
		zap.Int("count", jobs.Len()),
		zap.Bool("dry_run", cfg.Application.DryRun),
		zap.Bool("auto_submit", cfg.Application.AutoSubmit),
	)

	statusCounts := make(map[string]int)
	applied := 0
	for _, job := range jobs.Items {
		if applied >= cfg.Application.MaxApplications {
			log.Info("reached max applications", zap.Int("count", applied))
			break
		}

		outcome := processJob(ctx, cfg, engine, resolver, job, runID, !noInput, autoApprove, log)

		if err := led.Append(outcome); err != nil {
			log.Fatal("recording outcome", zap.Error(err))
		}

		statusCounts[outcome.Status]++
		log.Info("recorded outcome",
			zap.String("job_id", job.ID),
			zap.String("status", outcome.Status),
			zap.String("reason", outcome.Reason),
		)

		if outcome.Status == ledger.StatusSubmitted || outcome.Status == ledger.StatusStopped {
			applied++
			if err := utils.WaitFor(ctx, time.Duration(cfg.Application.PauseBetweenSec)*time.Second); err != nil {
				log.Fatal("exiting", zap.Error(err))
			}
		}
	}

	log.Info("run complete", zap.Any("status_counts", statusCounts), zap.String("ledger", led.Path()))
}

// processJob drives one posting through the core: resume first, then every
// form question, then the safety gate. Any failure marks this job only.
func processJob(ctx context.Context, cfg *config.Config, engine *resume.Engine, resolver *qa.Resolver, job *handshake.JobPosting, runID string, interactive, autoApprove bool, log *zap.Logger) *ledger.Outcome {
	outcome := &ledger.Outcome{
		RunID: runID,
		JobID: job.ID,
	}

	artifact, err := engine.Tailor(ctx, job)
	if err != nil {
		outcome.Status = ledger.StatusFailed
		outcome.Reason = fmt.Sprintf("resume tailoring: %v", err)
		return outcome
	}
	outcome.ResumePath = artifact.Path

	jobCtx := qa.JobContext{Title: job.Title, Company: job.Company}
	requiredAnswered := true
	for _, question := range job.Questions {
		answer := resolver.Resolve(ctx, question, jobCtx)

		if answer.Escalated && interactive {
			answer = askOperator(question, answer, log)
		}

		if answer.Escalated && question.Required {
			requiredAnswered = false
		}

		outcome.Answers = append(outcome.Answers, answer.Provenance)
	}

	decision := ledger.DecideSubmit(cfg.Application.DryRun, cfg.Application.AutoSubmit, requiredAnswered)
	if !decision.Proceed {
		outcome.Status = ledger.StatusStopped
		outcome.Reason = decision.Reason
		return outcome
	}

	switch {
	case autoApprove:
		outcome.Status = ledger.StatusSubmitted
	case !interactive:
		outcome.Status = ledger.StatusStopped
		outcome.Reason = reasonConfirmationRequired
	case confirmSubmit(job, log):
		outcome.Status = ledger.StatusSubmitted
	default:
		outcome.Status = ledger.StatusStopped
		outcome.Reason = reasonOperatorDeclined
	}

	return outcome
}

// askOperator collects an escalated answer from the human at the terminal.
// The result keeps the user-escalated provenance: the value was confirmed by
// a person, not generated.
func askOperator(question *handshake.ApplicationQuestion, escalated *qa.Answer, log *zap.Logger) *qa.Answer {
	log.Info("question requires operator input",
		zap.String("prompt", logger.TruncateForLog(question.Prompt, 120)),
		zap.String("reason", escalated.Reason),
	)

	var value string
	var err error
	if len(question.Choices) > 0 {
		prompt := promptui.Select{
			Label: question.Prompt,
			Items: question.Choices,
		}
		_, value, err = prompt.Run()
	} else {
		prompt := promptui.Prompt{Label: question.Prompt}
		value, err = prompt.Run()
	}

	if err != nil || value == "" {
		log.Warn("no operator answer provided; leaving question escalated", zap.Error(err))
		return escalated
	}

	return &qa.Answer{
		Prompt:     question.Prompt,
		Type:       question.Type,
		Value:      value,
		Provenance: qa.ProvenanceEscalated,
	}
}

func confirmSubmit(job *handshake.JobPosting, log *zap.Logger) bool {
	prompt := promptui.Select{
		Label: fmt.Sprintf("Submit application for %s at %s?", job.Title, job.Company),
		Items: []string{PromptYes, PromptNo},
	}

	_, action, err := prompt.Run()
	if err != nil {
		log.Warn("confirmation prompt failed; not submitting", zap.Error(err))
		return false
	}

	return action == PromptYes
}

func newRunLogger() *zap.Logger {
	l, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	return l
}

func applyOverrides(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("dry-run") {
		cfg.Application.DryRun = true
		cfg.Application.AutoSubmit = false
	}
	if cmd.Flags().Changed("max-applications") {
		if max, err := cmd.Flags().GetInt("max-applications"); err == nil && max > 0 {
			cfg.Application.MaxApplications = max
		}
	}
}
