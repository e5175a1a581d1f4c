package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/studyforge/internal/client"
)

var (
	jobsTypeFilter   string
	jobsStatusFilter string
	jobsLimit        int
)

var jobsCmd = &cobra.Command{
	Use:   "jobs [job-id]",
	Short: "List or inspect background jobs",
	Long: `List your background jobs or inspect a specific job by ID.

Examples:
  studyforge jobs                        # List all jobs
  studyforge jobs --status processing    # Only running jobs
  studyforge jobs abc123                 # Show details for job abc123`,
	Args: cobra.MaximumNArgs(1),
	RunE: runJobs,
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Cancel a pending or processing job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		job, err := api.CancelJob(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("cancel job: %w", err)
		}
		fmt.Printf("Job %s is now %s\n", job.ID, job.Status)
		return nil
	},
}

func init() {
	jobsCmd.Flags().StringVar(&jobsTypeFilter, "type", "", "filter by job type")
	jobsCmd.Flags().StringVar(&jobsStatusFilter, "status", "", "filter by job status")
	jobsCmd.Flags().IntVar(&jobsLimit, "limit", 0, "maximum number of jobs to list")

	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(cancelCmd)
}

func runJobs(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if len(args) == 1 {
		return showJob(ctx, args[0])
	}
	return listJobs(ctx)
}

func listJobs(ctx context.Context) error {
	jobs, err := api.ListJobs(ctx, client.ListJobsOptions{
		Type:   jobsTypeFilter,
		Status: jobsStatusFilter,
		Limit:  jobsLimit,
	})
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Println("No jobs found")
		return nil
	}

	fmt.Printf("%-36s %-26s %-12s %-9s %s\n", "ID", "TYPE", "STATUS", "PROGRESS", "CREATED")
	fmt.Println("--------------------------------------------------------------------------------------------")
	for _, job := range jobs {
		fmt.Printf("%-36s %-26s %-12s %8d%% %s\n",
			job.ID, job.Type, job.Status, job.Progress, job.CreatedAt.Format("15:04:05"))
	}
	return nil
}

func showJob(ctx context.Context, id string) error {
	job, err := api.GetJob(ctx, id)
	if err != nil {
		return fmt.Errorf("get job: %w", err)
	}

	fmt.Printf("Job: %s\n", job.ID)
	fmt.Printf("  Type: %s\n", job.Type)
	fmt.Printf("  Status: %s\n", job.Status)
	fmt.Printf("  Progress: %d%%\n", job.Progress)
	fmt.Printf("  Created: %s\n", job.CreatedAt.Format(time.RFC3339))
	fmt.Printf("  Updated: %s\n", job.UpdatedAt.Format(time.RFC3339))
	if job.Terminal() {
		fmt.Printf("  Duration: %s\n", job.UpdatedAt.Sub(job.CreatedAt).Round(time.Millisecond))
	}
	if job.Error != "" {
		fmt.Printf("  Error: %s\n", job.Error)
	}

	if len(job.Data) > 0 {
		fmt.Println("\nInput:")
		printJSON(job.Data)
	}
	if len(job.Result) > 0 {
		fmt.Println("\nResult:")
		printJSON(job.Result)
	}
	return nil
}

func printJSON(raw json.RawMessage) {
	var buf map[string]any
	if err := json.Unmarshal(raw, &buf); err != nil {
		fmt.Printf("  %s\n", raw)
		return
	}
	pretty, err := json.MarshalIndent(buf, "  ", "  ")
	if err != nil {
		fmt.Printf("  %s\n", raw)
		return
	}
	fmt.Printf("  %s\n", pretty)
}
