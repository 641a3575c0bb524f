package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rtzll/tldl/internal"
)

var (
	config     *internal.Config
	configFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tldl [audio URL, YouTube URL, feed URL or audio file]",
	Short: "Too Long; Didn't Listen - podcast and audio summarizer",
	Long: `TLDL (Too Long; Didn't Listen) summarizes podcasts and other recordings.

Audio comes from a direct link, a YouTube video, the latest episode of an
RSS/Atom feed or a local file. It is transcribed with OpenAI Whisper and
summarized into a paragraph and a short list of key points.

Transcripts and summaries are kept in the data directory and can be fetched
again by their id (see "tldl history").`,
	Example: `  # Summarize the latest episode of a podcast feed
  tldl "https://feeds.example.com/podcast.xml"

  # Summarize a direct audio link or a local file
  tldl "https://example.com/episode-42.mp3"
  tldl ./interview.m4a

  # Use a specific model or Gemini for the summaries
  tldl ./interview.m4a --model gpt-4o
  tldl ./interview.m4a --provider gemini

  # Print the result as JSON
  tldl ./interview.m4a --json`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := internal.HandleVerboseFlag(cmd, config); err != nil {
			return err
		}
		internal.InitLogging(config, false)
		return nil
	},
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		arg := strings.TrimSpace(args[0])
		if internal.IsLikelyCommand(arg) {
			return unknownCommandError(arg)
		}

		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		result, err := app.ProcessSource(cmd.Context(), arg)
		if err != nil {
			return err
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			return printJSON(result, true)
		}
		return printSummary(result.Title, result.Summary, result.FileID)
	},
}

// unknownCommandError suggests subcommands for arguments that are not a source
func unknownCommandError(arg string) error {
	var suggestions []string
	for _, c := range rootCmd.Commands() {
		name := c.Name()
		if strings.Contains(name, arg) || (len(arg) <= len(name) && strings.HasPrefix(name, arg)) {
			suggestions = append(suggestions, name)
		}
	}

	if len(suggestions) > 0 {
		return fmt.Errorf("'%s' doesn't look like a URL or audio file. Did you mean: %s?", arg, strings.Join(suggestions, ", "))
	}
	return fmt.Errorf("'%s' doesn't look like a URL or audio file. Use --help to see available commands", arg)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cobra.OnInitialize(initConfig)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nReceived interrupt signal. Cleaning up and shutting down...")

		cancel()

		if config == nil {
			os.Exit(0)
		}

		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cleanupCancel()

		cleanupDone := make(chan struct{})
		go func() {
			if err := internal.CleanupTempDir(config.TempDir); err != nil {
				fmt.Fprintf(os.Stderr, "Error cleaning up temporary files: %v\n", err)
			}
			close(cleanupDone)
		}()

		select {
		case <-cleanupDone:
		case <-cleanupCtx.Done():
			fmt.Fprintln(os.Stderr, "Warning: Cleanup timed out, forcing exit")
		}

		// long-running commands shut down on their own once ctx is cancelled
		if !longRunning.Load() {
			os.Exit(0)
		}
	}()

	rootCmd.SetContext(ctx)

	return rootCmd.Execute()
}

// longRunning is set by serve, watch and mcp, which handle cancellation themselves
var longRunning atomic.Bool

func initConfig() {
	// a local .env may carry API keys; it never overrides the real environment
	_ = godotenv.Load()

	config = internal.InitConfig(configFile)

	if err := internal.EnsureDirs(config.ConfigDir, config.DataDir, config.CacheDir); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating XDG directories: %v\n", err)
		os.Exit(1)
	}

	if err := internal.EnsureDefaultConfig(config.ConfigDir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to ensure default config: %v\n", err)
	}

	if err := internal.EnsureDefaultPrompt(config.ConfigDir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to ensure default prompt: %v\n", err)
	}
}

func init() {
	internal.AddModelFlags(rootCmd)
	rootCmd.Flags().Bool("json", false, "Print the result as JSON")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output for debugging")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default is $XDG_CONFIG_HOME/tldl/config.toml)")
}
