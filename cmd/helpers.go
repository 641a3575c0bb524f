package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rtzll/tldl/internal"
)

// newApp validates the model flags and builds an App from the global config
func newApp(cmd *cobra.Command) (*internal.App, error) {
	if err := internal.ValidateProviderRequirements(cmd, config); err != nil {
		return nil, err
	}
	if err := internal.HandlePromptFlag(cmd, config); err != nil {
		return nil, err
	}
	return internal.NewApp(config)
}

// printSummary renders a summary as markdown, falling back to plain text
func printSummary(title string, summary *internal.SummaryResult, id string) error {
	md := internal.SummaryMarkdown(title, summary)
	rendered, err := internal.RenderMarkdown(md)
	if err != nil {
		rendered = md
	}
	fmt.Print(rendered)

	if !config.Quiet {
		fmt.Fprintf(os.Stderr, "id: %s\n", id)
	}
	return nil
}

func printJSON(v any, pretty bool) error {
	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
