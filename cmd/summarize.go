package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rtzll/tldl/internal"
)

// summarizeCmd represents the summarize command
var summarizeCmd = &cobra.Command{
	Use:   "summarize [transcript file or id]",
	Short: "Summarize an existing transcript",
	Example: `  # Summarize a stored transcript by id
  tldl summarize 3f2b9c0e6d8a4f1b9e7c5a3d2b1f0e9c

  # Summarize any plain text file
  tldl summarize notes.txt

  # Use a custom prompt
  tldl summarize notes.txt --prompt "Summarize in {{.MinWords}}-{{.MaxWords}} words: {{.Text}}"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		transcript, summary, err := app.SummarizeTranscript(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			return printJSON(map[string]any{
				"file_id":       transcript.ID,
				"summary":       summary.Paragraph,
				"bullet_points": summary.Bullets,
			}, true)
		}
		return printSummary("", summary, transcript.ID)
	},
}

func init() {
	internal.AddModelFlags(summarizeCmd)
	summarizeCmd.Flags().Bool("json", false, "Print the result as JSON")
	rootCmd.AddCommand(summarizeCmd)
}
