package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rtzll/tldl/internal"
)

// watchCmd summarizes every audio file dropped into a directory
var watchCmd = &cobra.Command{
	Use:   "watch [directory]",
	Short: "Summarize audio files as they appear in a directory",
	Example: `  # Process new recordings in ~/Recordings
  tldl watch ~/Recordings

  # Allow two recordings at a time
  tldl watch ~/Recordings --concurrency 2`,
	Args: cobra.ExactArgs(1),
	PreRun: func(cmd *cobra.Command, args []string) {
		longRunning.Store(true)
		if !config.Verbose {
			internal.DefaultLogger().SetLevel("info")
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := args[0]
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			return fmt.Errorf("%s is not a directory", dir)
		}

		config.Quiet = true
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		concurrency, _ := cmd.Flags().GetInt("concurrency")
		if concurrency <= 0 {
			concurrency = config.WatchConcurrency
		}

		handler := func(ctx context.Context, path string) error {
			result, err := app.ProcessFile(ctx, path)
			if err != nil {
				return err
			}
			internal.LogInfo("Summarized %s as %s", path, result.FileID)
			return nil
		}

		w, err := internal.NewWatcher(dir, handler, concurrency)
		if err != nil {
			return err
		}
		defer w.Stop()

		if err := w.Start(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	internal.AddModelFlags(watchCmd)
	watchCmd.Flags().Int("concurrency", 0, "Maximum recordings processed at once (default from config)")
	rootCmd.AddCommand(watchCmd)
}
