package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rtzll/tldl/internal"
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect [URL]",
	Short: "Show how a URL would be fetched, without downloading audio",
	Example: `  # Which episode would be summarized for a feed
  tldl inspect "https://feeds.example.com/podcast.xml" --pretty

  # Video metadata for a YouTube link
  tldl inspect "https://www.youtube.com/watch?v=tAP1eZYEuKA"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := internal.NewApp(config)
		if err != nil {
			return err
		}
		defer app.Close()

		info, err := app.Inspect(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		pretty, _ := cmd.Flags().GetBool("pretty")
		return printJSON(info, pretty)
	},
}

func init() {
	inspectCmd.Flags().Bool("pretty", false, "Format output as pretty JSON")
	rootCmd.AddCommand(inspectCmd)
}
