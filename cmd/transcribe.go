package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rtzll/tldl/internal"
)

// transcribeCmd represents the transcribe command
var transcribeCmd = &cobra.Command{
	Use:   "transcribe [URL or audio file]",
	Short: "Transcribe audio with Whisper without summarizing it",
	Example: `  # Transcribe the latest episode of a feed
  tldl transcribe "https://feeds.example.com/podcast.xml"

  # Save transcript to file
  tldl transcribe ./interview.m4a -o transcript.txt`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := internal.ValidateOpenAIAPIKey(config.OpenAIAPIKey); err != nil {
			return err
		}

		app, err := internal.NewApp(config)
		if err != nil {
			return err
		}
		defer app.Close()

		audio, err := app.AcquireSource(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		transcript, err := app.Transcribe(cmd.Context(), audio)
		if err != nil {
			return err
		}

		outputFile, _ := cmd.Flags().GetString("output")
		if outputFile != "" {
			return os.WriteFile(outputFile, []byte(transcript.Text), 0644)
		}

		fmt.Println(transcript.Text)
		if !config.Quiet {
			fmt.Fprintf(os.Stderr, "id: %s\n", transcript.ID)
		}
		return nil
	},
}

func init() {
	transcribeCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	rootCmd.AddCommand(transcribeCmd)
}
