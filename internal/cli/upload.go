package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var uploadWait bool

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a document (pdf, markdown or text)",
	Long: `Upload a document for extraction. Pass "-" to read pasted text from stdin.

Examples:
  studyforge upload lecture.pdf
  studyforge upload notes.md --wait
  cat notes.txt | studyforge upload -`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().BoolVar(&uploadWait, "wait", false, "poll until the job reaches a terminal state")
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	var (
		jobID string
		est   float64
	)
	if args[0] == "-" {
		text, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		created, err := api.UploadText(ctx, string(text), "")
		if err != nil {
			return fmt.Errorf("upload text: %w", err)
		}
		jobID, est = created.JobID, created.EstimatedTime
	} else {
		created, err := api.UploadFile(ctx, args[0])
		if err != nil {
			return fmt.Errorf("upload file: %w", err)
		}
		jobID, est = created.JobID, created.EstimatedTime
	}

	fmt.Printf("Job %s accepted (estimated %.0fs)\n", jobID, est)
	if !uploadWait {
		return nil
	}
	return waitForJob(ctx, jobID)
}

// waitForJob polls the status API until the job is terminal.
func waitForJob(ctx context.Context, jobID string) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	last := -1
	for {
		job, err := api.GetJob(ctx, jobID)
		if err != nil {
			return fmt.Errorf("poll job: %w", err)
		}
		if job.Progress != last {
			fmt.Printf("  %s %d%%\n", job.Status, job.Progress)
			last = job.Progress
		}
		if job.Terminal() {
			if job.Error != "" {
				return fmt.Errorf("job %s: %s", job.Status, job.Error)
			}
			fmt.Printf("Job %s\n", job.Status)
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
