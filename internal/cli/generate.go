package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/studyforge/internal/client"
)

var (
	summaryLength   string
	summaryLanguage string
	summaryWait     bool

	examQuestions  int
	examDifficulty string
	examWait       bool
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize <source-job-id>",
	Short: "Generate a summary from a completed document job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		created, err := api.CreateSummary(ctx, client.SummaryRequest{
			SourceJobID: args[0],
			Length:      summaryLength,
			Language:    summaryLanguage,
		})
		if err != nil {
			return fmt.Errorf("create summary: %w", err)
		}
		fmt.Printf("Job %s accepted (estimated %.0fs)\n", created.JobID, created.EstimatedTime)
		if !summaryWait {
			return nil
		}
		return waitForJob(ctx, created.JobID)
	},
}

var examCmd = &cobra.Command{
	Use:   "exam <source-job-id>",
	Short: "Generate an exam from a completed document job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		created, err := api.CreateExam(ctx, client.ExamRequest{
			SourceJobID:   args[0],
			QuestionCount: examQuestions,
			Difficulty:    examDifficulty,
		})
		if err != nil {
			return fmt.Errorf("create exam: %w", err)
		}
		fmt.Printf("Job %s accepted (estimated %.0fs)\n", created.JobID, created.EstimatedTime)
		if !examWait {
			return nil
		}
		return waitForJob(ctx, created.JobID)
	},
}

func init() {
	summarizeCmd.Flags().StringVar(&summaryLength, "length", "", "summary length: short, medium or long")
	summarizeCmd.Flags().StringVar(&summaryLanguage, "language", "", "answer language")
	summarizeCmd.Flags().BoolVar(&summaryWait, "wait", false, "poll until the job reaches a terminal state")

	examCmd.Flags().IntVar(&examQuestions, "questions", 0, "number of questions (default 10)")
	examCmd.Flags().StringVar(&examDifficulty, "difficulty", "", "difficulty: easy, medium or hard")
	examCmd.Flags().BoolVar(&examWait, "wait", false, "poll until the job reaches a terminal state")

	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(examCmd)
}
