package cmd

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/rtzll/tldl/internal"
)

// cpCmd copies the summary to the system clipboard instead of printing to stdout.
var cpCmd = &cobra.Command{
	Use:   "cp [URL or audio file]",
	Short: "Summarize audio and copy the result to the clipboard",
	Example: `  # Copy the summary paragraph
  tldl cp "https://example.com/episode-42.mp3"

  # Copy the key points instead
  tldl cp ./interview.m4a --bullets

  # Copy the full transcript
  tldl cp ./interview.m4a --transcript`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		result, err := app.ProcessSource(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		bullets, _ := cmd.Flags().GetBool("bullets")
		transcript, _ := cmd.Flags().GetBool("transcript")

		what := "Summary"
		text := result.Summary.Paragraph
		switch {
		case transcript:
			what = "Transcript"
			text = result.Transcript.Text
		case bullets:
			what = "Key points"
			lines := make([]string, len(result.Summary.Bullets))
			for i, b := range result.Summary.Bullets {
				lines[i] = "- " + b
			}
			text = strings.Join(lines, "\n")
		}

		if err := clipboard.WriteAll(text); err != nil {
			return fmt.Errorf("copying to clipboard: %w", err)
		}

		if !config.Quiet {
			fmt.Printf("%s copied to clipboard (id: %s)\n", what, result.FileID)
		}

		return nil
	},
}

func init() {
	internal.AddModelFlags(cpCmd)
	cpCmd.Flags().Bool("bullets", false, "Copy the key points instead of the paragraph")
	cpCmd.Flags().Bool("transcript", false, "Copy the full transcript")
	cpCmd.MarkFlagsMutuallyExclusive("bullets", "transcript")
	rootCmd.AddCommand(cpCmd)
}
