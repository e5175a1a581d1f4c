package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/studyforge/internal/client"
)

var cleanupOlderThan time.Duration

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove finished jobs older than a threshold from the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		removed, err := api.Cleanup(context.Background(), cleanupOlderThan)
		if err != nil {
			return fmt.Errorf("cleanup: %w", err)
		}
		fmt.Printf("Removed %d job(s)\n", removed)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show server job and runtime statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := api.Stats(context.Background())
		if err != nil {
			return fmt.Errorf("stats: %w", err)
		}
		printJSON(raw)
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream push notifications until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Println("Watching for events (ctrl-c to stop)...")
		err := api.Watch(ctx, func(event client.Event) error {
			line := fmt.Sprintf("%s  %-18s %s", time.Now().Format("15:04:05"), event.Event, event.Data.Name)
			if event.Data.Error != "" {
				line += "  error: " + event.Data.Error
			}
			fmt.Println(line)
			return nil
		})
		if ctx.Err() != nil {
			return nil
		}
		return err
	},
}

func init() {
	cleanupCmd.Flags().DurationVar(&cleanupOlderThan, "older-than", 24*time.Hour, "remove terminal jobs older than this")

	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(watchCmd)
}
