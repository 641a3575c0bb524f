package internal

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// OpenAIClientInterface defines the interface for OpenAI client operations
type OpenAIClientInterface interface {
	CreateTranscription(ctx context.Context, model string, file *os.File) (string, error)
	CreateChatCompletion(ctx context.Context, model, prompt string, maxTokens int) (string, error)
}

// OpenAIClient wraps the official OpenAI Go SDK
type OpenAIClient struct {
	client *openai.Client
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(apiKey string) *OpenAIClient {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIClient{client: &client}
}

// CreateTranscription implements the transcription method
func (c *OpenAIClient) CreateTranscription(ctx context.Context, model string, file *os.File) (string, error) {
	resp, err := c.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:  file,
		Model: openai.AudioModel(model),
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// CreateChatCompletion implements the chat completion method
func (c *OpenAIClient) CreateChatCompletion(ctx context.Context, model, prompt string, maxTokens int) (string, error) {
	var oaiModel openai.ChatModel
	reasoning := false
	switch model {
	case "gpt-4o":
		oaiModel = openai.ChatModelGPT4o
	case "gpt-4o-mini":
		oaiModel = openai.ChatModelGPT4oMini
	case "o4-mini":
		oaiModel = openai.ChatModelO4Mini
		reasoning = true
	case "gpt-4.1-mini":
		oaiModel = openai.ChatModelGPT4_1Mini
	case "gpt-4.1-nano":
		oaiModel = openai.ChatModelGPT4_1Nano
	default:
		return "", fmt.Errorf("unsupported model: %s", model)
	}

	params := openai.ChatCompletionNewParams{
		Model: oaiModel,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	}
	// reasoning tokens count against the cap, so leave o-series uncapped
	if maxTokens > 0 && !reasoning {
		params.MaxCompletionTokens = openai.Int(int64(maxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices from OpenAI")
	}
	return resp.Choices[0].Message.Content, nil
}

// AI handles OpenAI API interactions for transcription and summarization.
// The client is created once and shared by every request.
type AI struct {
	client          OpenAIClientInterface
	audio           *Audio
	summaryModel    string
	transcribeModel string
	whisperLimit    int64
	whisperTimeout  time.Duration
	apiKey          string
	clientOnce      sync.Once
	clientErr       error
}

// NewAI creates a new AI processor around an existing client
func NewAI(client OpenAIClientInterface, audio *Audio, summaryModel, transcribeModel string, whisperLimit int64, whisperTimeout time.Duration) *AI {
	return &AI{
		client:          client,
		audio:           audio,
		summaryModel:    summaryModel,
		transcribeModel: transcribeModel,
		whisperLimit:    whisperLimit,
		whisperTimeout:  whisperTimeout,
	}
}

// NewAIWithKey creates a new AI processor with lazy client initialization
func NewAIWithKey(apiKey string, audio *Audio, config *Config) *AI {
	ai := NewAI(nil, audio, config.SummaryModel, config.TranscribeModel, WhisperLimit, config.WhisperTimeout)
	ai.apiKey = apiKey
	return ai
}

// ensureClient initializes the OpenAI client if needed
func (ai *AI) ensureClient() error {
	ai.clientOnce.Do(func() {
		if ai.client != nil {
			return
		}
		if ai.apiKey == "" {
			ai.clientErr = ValidateOpenAIAPIKey("")
			return
		}
		ai.client = NewOpenAIClient(ai.apiKey)
	})
	return ai.clientErr
}

// Transcribe converts an audio file to text with Whisper. Files over the
// upload limit are split with ffmpeg and transcribed chunk by chunk.
func (ai *AI) Transcribe(ctx context.Context, audioFile string) (string, error) {
	if err := ai.ensureClient(); err != nil {
		return "", err
	}

	if ai.whisperTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ai.whisperTimeout)
		defer cancel()
	}

	LogDebug("Transcribing audio file: %s", audioFile)

	info, err := os.Stat(audioFile)
	if err != nil {
		return "", fmt.Errorf("getting audio file info: %w", err)
	}

	numChunks := int(math.Ceil(float64(info.Size()) / float64(ai.whisperLimit)))
	if numChunks <= 1 {
		transcript, err := ai.transcribeFile(ctx, audioFile)
		if err != nil {
			return "", fmt.Errorf("transcribing audio: %w", err)
		}
		return transcript, nil
	}

	chunks, err := ai.audio.Split(ctx, audioFile, numChunks)
	if err != nil {
		return "", fmt.Errorf("splitting audio: %w", err)
	}
	// only the temporary chunks go; the stored audio stays
	defer cleanupFiles(chunks...)

	transcript, err := ai.processAudioChunks(ctx, chunks)
	if err != nil {
		return "", fmt.Errorf("transcribing audio: %w", err)
	}
	return transcript, nil
}

func (ai *AI) transcribeFile(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()

	return ai.client.CreateTranscription(ctx, ai.transcribeModel, file)
}

// processAudioChunks transcribes audio chunks sequentially
func (ai *AI) processAudioChunks(ctx context.Context, chunks []string) (string, error) {
	numChunks := len(chunks)
	LogDebug("Transcribing chunks (%d)", numChunks)

	var sb strings.Builder
	for i, chunkPath := range chunks {
		text, err := ai.transcribeFile(ctx, chunkPath)
		if err != nil {
			return "", fmt.Errorf("transcribing chunk %d: %w", i+1, err)
		}

		sb.WriteString(text)
		if i < numChunks-1 {
			sb.WriteString("\n")
		}

		LogDebug("Transcribed chunk %d/%d", i+1, numChunks)
	}

	return sb.String(), nil
}

// Complete sends a prepared prompt to the summary model
func (ai *AI) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if err := ai.ensureClient(); err != nil {
		return "", err
	}

	content, err := ai.client.CreateChatCompletion(ctx, ai.summaryModel, prompt, maxTokens)
	if err != nil {
		return "", fmt.Errorf("creating chat completion: %w", err)
	}

	return content, nil
}
