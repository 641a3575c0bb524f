package internal

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultChunkSize is the transcript window, in characters, sent per summarization call
	DefaultChunkSize = 3000

	// MaxBullets caps the bullet list
	MaxBullets = 8

	secondPassThreshold  = 3
	secondPassInputLimit = 4000
	bulletInstruction    = "Summarize the following text into concise bullet points:\n\n"
)

var (
	chunkLength = Length{Min: 60, Max: 180}
	finalLength = Length{Min: 80, Max: 220}
)

// Transcriber converts an audio file to text
type Transcriber interface {
	Transcribe(ctx context.Context, audioFile string) (string, error)
}

// TextSummarizer condenses text within a length bound
type TextSummarizer interface {
	Summarize(ctx context.Context, text string, length Length) (string, error)
}

// Completer sends a prompt to a language model
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// ModelSummarizer turns a Completer into a TextSummarizer using the prompt template
type ModelSummarizer struct {
	completer Completer
	prompts   *PromptManager
	timeout   time.Duration
}

// NewModelSummarizer creates a TextSummarizer backed by a language model
func NewModelSummarizer(completer Completer, prompts *PromptManager, timeout time.Duration) *ModelSummarizer {
	return &ModelSummarizer{completer: completer, prompts: prompts, timeout: timeout}
}

// Summarize implements TextSummarizer
func (m *ModelSummarizer) Summarize(ctx context.Context, text string, length Length) (string, error) {
	prompt, err := m.prompts.CreatePrompt(text, length)
	if err != nil {
		return "", fmt.Errorf("creating prompt: %w", err)
	}

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	// words to tokens, with headroom
	out, err := m.completer.Complete(ctx, prompt, length.Max*2)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// ChunkText splits text into consecutive windows of size characters. No
// overlap, no sentence awareness; the last window may be shorter.
func ChunkText(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}

	var chunks []string
	runes := []rune(text)
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

// Summarizer applies the chunk, summarize, recombine policy
type Summarizer struct {
	model     TextSummarizer
	chunkSize int
}

// NewSummarizer creates a Summarizer; a non-positive chunkSize uses DefaultChunkSize
func NewSummarizer(model TextSummarizer, chunkSize int) *Summarizer {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Summarizer{model: model, chunkSize: chunkSize}
}

// Paragraph summarizes each chunk and joins the partials. More than three
// chunks get a second pass over the first 4000 characters of the joined text.
func (s *Summarizer) Paragraph(ctx context.Context, text string) (string, error) {
	chunks := ChunkText(text, s.chunkSize)

	partials := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		out, err := s.model.Summarize(ctx, chunk, chunkLength)
		if err != nil {
			return "", fmt.Errorf("summarizing chunk %d/%d: %w", i+1, len(chunks), err)
		}
		partials = append(partials, out)
		LogDebug("Summarized chunk %d/%d", i+1, len(chunks))
	}

	combined := strings.Join(partials, "\n")
	if len(partials) <= secondPassThreshold {
		return combined, nil
	}

	LogDebug("Compressing %d partial summaries", len(partials))
	final, err := s.model.Summarize(ctx, truncateRunes(combined, secondPassInputLimit), finalLength)
	if err != nil {
		return "", fmt.Errorf("summarizing partial summaries: %w", err)
	}
	return final, nil
}

// Bullets asks for bullet points per chunk and returns up to MaxBullets
// unique points in first-seen order.
func (s *Summarizer) Bullets(ctx context.Context, text string) ([]string, error) {
	chunks := ChunkText(text, s.chunkSize)

	var points []string
	for i, chunk := range chunks {
		out, err := s.model.Summarize(ctx, bulletInstruction+chunk, chunkLength)
		if err != nil {
			return nil, fmt.Errorf("summarizing bullets for chunk %d/%d: %w", i+1, len(chunks), err)
		}
		points = append(points, ParseBullets(out)...)
	}

	return DedupeBullets(points, MaxBullets), nil
}

// ParseBullets splits model output into lines and strips bullet markers
func ParseBullets(raw string) []string {
	var lines []string
	for line := range strings.SplitSeq(raw, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		b := strings.TrimSpace(strings.Trim(line, "-• "))
		if b == "" {
			continue
		}
		lines = append(lines, b)
	}
	return lines
}

// DedupeBullets removes exact duplicates, preserving order, and stops at limit
func DedupeBullets(points []string, limit int) []string {
	seen := make(map[string]struct{}, len(points))
	result := make([]string, 0, min(len(points), limit))
	for _, p := range points {
		if len(result) >= limit {
			break
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		result = append(result, p)
	}
	return result
}

// Summarize produces both variants for a transcript text
func (s *Summarizer) Summarize(ctx context.Context, text string) (paragraph string, bullets []string, err error) {
	text = strings.TrimSpace(text)

	paragraph, err = s.Paragraph(ctx, text)
	if err != nil {
		return "", nil, err
	}

	bullets, err = s.Bullets(ctx, text)
	if err != nil {
		return "", nil, err
	}

	return paragraph, bullets, nil
}
