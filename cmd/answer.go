package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/clawdbot/handshake-responder/internal/config"
	"github.com/clawdbot/handshake-responder/internal/handshake"
	"github.com/clawdbot/handshake-responder/internal/qa"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var answerCmd = &cobra.Command{
	Use:   "answer",
	Short: "Answer one application form question (browser agent helper)",
	Run: func(cmd *cobra.Command, _ []string) {
		answer(cmd)
	},
}

func init() {
	rootCmd.AddCommand(answerCmd)

	answerCmd.Flags().String("prompt", "", "the form question (required)")
	answerCmd.Flags().String("input-type", string(handshake.InputFreeText), "free_text, single_choice, multi_choice or boolean")
	answerCmd.Flags().String("choices", "", "allowed choices, pipe-separated or a json array")
	answerCmd.Flags().Bool("required", false, "whether the form marks the field as required")
	answerCmd.Flags().String("job-id", "runtime-job", "board identifier of the posting")
	answerCmd.Flags().String("title", "Software Engineer Intern", "posting title")
	answerCmd.Flags().String("company", "", "company name")
	answerCmd.Flags().Bool("json-output", false, "print the full answer as json")

	answerCmd.MarkFlagRequired("prompt")
}

func answer(cmd *cobra.Command) {
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

	resolver := qa.NewResolver(cfg, generator, log)

	prompt, _ := cmd.Flags().GetString("prompt")
	inputType, _ := cmd.Flags().GetString("input-type")
	rawChoices, _ := cmd.Flags().GetString("choices")
	required, _ := cmd.Flags().GetBool("required")
	title, _ := cmd.Flags().GetString("title")
	company, _ := cmd.Flags().GetString("company")

	question := &handshake.ApplicationQuestion{
		Prompt:   prompt,
		Type:     handshake.InputType(inputType),
		Required: required,
		Choices:  parseChoices(rawChoices),
	}

	result := resolver.Resolve(ctx, question, qa.JobContext{Title: title, Company: company})

	if jsonOut, _ := cmd.Flags().GetBool("json-output"); jsonOut {
		out, _ := json.Marshal(result)
		fmt.Println(string(out))
		return
	}

	if result.Escalated {
		log.Warn("question requires operator input", zap.String("reason", result.Reason))
	}
	fmt.Println(result.Value)
}

// parseChoices accepts either a JSON array or a pipe-separated list.
func parseChoices(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	if strings.HasPrefix(raw, "[") {
		var parsed []string
		if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
			choices := make([]string, 0, len(parsed))
			for _, item := range parsed {
				if item = strings.TrimSpace(item); item != "" {
					choices = append(choices, item)
				}
			}
			return choices
		}
	}

	var choices []string
	for _, part := range strings.Split(raw, "|") {
		if part = strings.TrimSpace(part); part != "" {
			choices = append(choices, part)
		}
	}
	return choices
}
