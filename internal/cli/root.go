// Package cli provides the command-line interface for studyforge.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/studyforge/internal/client"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	serverURL string
	apiToken  string

	api *client.Client
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "studyforge",
	Short: "Client for the StudyForge job server",
	Long: `Studyforge talks to a running StudyForge server: upload documents,
start summary/exam/question generation jobs, poll their status and stream
push notifications.

The server address and API token come from --server/--token or the
STUDYFORGE_SERVER_URL and STUDYFORGE_API_TOKEN environment variables.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		api = client.New(serverURL, apiToken)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server base URL (default from STUDYFORGE_SERVER_URL)")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", "", "API bearer token (default from STUDYFORGE_API_TOKEN)")
}

// exitWithError prints an error message and exits with code 1.
func exitWithError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
