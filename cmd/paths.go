package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rtzll/tldl/internal"
)

// pathsCmd represents the paths command
var pathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "Show paths used by the application",
	Example: `  # Show all application paths
  tldl paths`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := internal.NewStore(config.DataDir)
		if err != nil {
			return err
		}

		fmt.Printf("Config directory: %s\n", config.ConfigDir)
		fmt.Printf("Data directory: %s\n", store.DataDir())
		fmt.Printf("Audio directory: %s\n", store.AudioDir())
		fmt.Printf("Transcripts directory: %s\n", store.TranscriptsDir())
		fmt.Printf("Summaries directory: %s\n", store.SummariesDir())
		fmt.Printf("History database: %s\n", config.HistoryPath())
		fmt.Printf("Cache directory: %s\n", config.CacheDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pathsCmd)
}
