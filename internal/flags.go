package internal

import (
	"fmt"

	"github.com/spf13/cobra"
)

// AddModelFlags adds flags selecting the summary backend and prompt
func AddModelFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("model", "m", "", "Model to use for summaries")
	cmd.Flags().String("provider", "", "Summary provider (openai or gemini)")
	cmd.Flags().StringP("prompt", "p", "", "Custom prompt (string or file path)")
}

// HandlePromptFlag processes the --prompt flag to set custom prompt
func HandlePromptFlag(cmd *cobra.Command, config *Config) error {
	promptFlag := cmd.Flags().Lookup("prompt")
	if promptFlag == nil || !promptFlag.Changed {
		return nil
	}

	prompt, err := cmd.Flags().GetString("prompt")
	if err != nil {
		return fmt.Errorf("failed to get prompt flag: %w", err)
	}

	if prompt == "" {
		return nil
	}
	config.Prompt = prompt

	if IsLikelyFilePath(prompt) && FileExists(prompt) {
		LogDebug("Using custom prompt file: %s", prompt)
	} else {
		LogDebug("Using custom prompt string")
	}

	return nil
}

// HandleVerboseFlag processes the --verbose flag to update config
func HandleVerboseFlag(cmd *cobra.Command, config *Config) error {
	if f := cmd.Flags().Lookup("verbose"); f == nil || !f.Changed {
		return nil
	}
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return fmt.Errorf("failed to get verbose flag: %w", err)
	}
	config.Verbose = verbose
	return nil
}

// ValidateProviderRequirements checks API keys and the model for the
// configured backends. Transcription always needs an OpenAI key.
func ValidateProviderRequirements(cmd *cobra.Command, config *Config) error {
	if err := ValidateOpenAIAPIKey(config.OpenAIAPIKey); err != nil {
		return err
	}

	if f := cmd.Flags().Lookup("provider"); f != nil && f.Changed {
		config.SummaryProvider = f.Value.String()
	}

	modelFlag := ""
	if f := cmd.Flags().Lookup("model"); f != nil {
		modelFlag = f.Value.String()
	}

	switch config.SummaryProvider {
	case ProviderGemini:
		if err := ValidateGeminiAPIKey(config.GeminiAPIKey); err != nil {
			return err
		}
		if modelFlag != "" {
			config.GeminiModel = modelFlag
		}
	case ProviderOpenAI, "":
		config.SummaryProvider = ProviderOpenAI
		if modelFlag != "" {
			if err := ValidateModel(modelFlag); err != nil {
				return err
			}
			config.SummaryModel = modelFlag
		} else if err := ValidateModel(config.SummaryModel); err != nil {
			return fmt.Errorf("invalid model in config: %w", err)
		}
	default:
		return fmt.Errorf("unknown summary provider %q (use %s or %s)", config.SummaryProvider, ProviderOpenAI, ProviderGemini)
	}

	return nil
}
