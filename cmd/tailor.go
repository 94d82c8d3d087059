package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/clawdbot/handshake-responder/internal/config"
	"github.com/clawdbot/handshake-responder/internal/handshake"
	"github.com/clawdbot/handshake-responder/internal/resume"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var tailorCmd = &cobra.Command{
	Use:   "tailor",
	Short: "Generate a tailored resume for one posting (browser agent helper)",
	Run: func(cmd *cobra.Command, _ []string) {
		tailor(cmd)
	},
}

func init() {
	rootCmd.AddCommand(tailorCmd)

	tailorCmd.Flags().String("job-id", "", "board identifier of the posting (required)")
	tailorCmd.Flags().String("title", "", "posting title (required)")
	tailorCmd.Flags().String("company", "", "company name")
	tailorCmd.Flags().String("location", "", "posting location")
	tailorCmd.Flags().String("url", "", "posting url")
	tailorCmd.Flags().String("description", "", "posting description text or html")
	tailorCmd.Flags().String("description-file", "", "file with the posting description; takes precedence over --description")
	tailorCmd.Flags().Bool("json-output", false, "print the artifact as json")

	tailorCmd.MarkFlagRequired("job-id")
	tailorCmd.MarkFlagRequired("title")
}

func tailor(cmd *cobra.Command) {
	ctx := context.Background()

	log := newRunLogger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("loading config", zap.Error(err))
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

	job := jobFromFlags(cmd, log)

	artifact, err := engine.Tailor(ctx, job)
	if err != nil {
		log.Fatal("tailoring resume", zap.String("job_id", job.ID), zap.Error(err))
	}

	if jsonOut, _ := cmd.Flags().GetBool("json-output"); jsonOut {
		payload := map[string]string{
			"job_id":       artifact.JobID,
			"title":        job.Title,
			"company":      job.Company,
			"resume_path":  artifact.Path,
			"generated_at": artifact.GeneratedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
		out, _ := json.Marshal(payload)
		fmt.Println(string(out))
		return
	}

	fmt.Println(artifact.Path)
}

func jobFromFlags(cmd *cobra.Command, log *zap.Logger) *handshake.JobPosting {
	id, _ := cmd.Flags().GetString("job-id")
	title, _ := cmd.Flags().GetString("title")
	company, _ := cmd.Flags().GetString("company")
	location, _ := cmd.Flags().GetString("location")
	url, _ := cmd.Flags().GetString("url")
	description, _ := cmd.Flags().GetString("description")

	if file, _ := cmd.Flags().GetString("description-file"); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			log.Fatal("reading description file", zap.Error(err))
		}
		description = string(data)
	}

	return &handshake.JobPosting{
		ID:          id,
		Title:       title,
		Company:     company,
		Location:    location,
		URL:         url,
		Description: description,
	}
}
