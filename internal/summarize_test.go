package internal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"
)

type summarizeCall struct {
	text   string
	length Length
}

// fakeModel records every call and answers through respond
type fakeModel struct {
	mu      sync.Mutex
	calls   []summarizeCall
	respond func(call int, text string, length Length) (string, error)
}

func (f *fakeModel) Summarize(ctx context.Context, text string, length Length) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, summarizeCall{text: text, length: length})
	n := len(f.calls)
	f.mu.Unlock()

	if f.respond != nil {
		return f.respond(n, text, length)
	}
	return fmt.Sprintf("summary %d", n), nil
}

func (f *fakeModel) paragraphCalls() []summarizeCall {
	var calls []summarizeCall
	for _, c := range f.calls {
		if !strings.HasPrefix(c.text, bulletInstruction) {
			calls = append(calls, c)
		}
	}
	return calls
}

func TestChunkText(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		size   int
		counts []int
	}{
		{"empty", "", 3000, nil},
		{"shorter than chunk", strings.Repeat("a", 10), 3000, []int{10}},
		{"exact multiple", strings.Repeat("a", 6000), 3000, []int{3000, 3000}},
		{"remainder", strings.Repeat("a", 7000), 3000, []int{3000, 3000, 1000}},
		{"multibyte", strings.Repeat("é", 5), 2, []int{2, 2, 1}},
		{"default size", strings.Repeat("a", 3001), 0, []int{3000, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := ChunkText(tt.text, tt.size)
			if len(chunks) != len(tt.counts) {
				t.Fatalf("expected %d chunks, got %d", len(tt.counts), len(chunks))
			}
			for i, c := range chunks {
				if n := utf8.RuneCountInString(c); n != tt.counts[i] {
					t.Fatalf("chunk %d: expected %d chars, got %d", i, tt.counts[i], n)
				}
			}
			if strings.Join(chunks, "") != tt.text {
				t.Fatalf("chunks do not reassemble the input")
			}
		})
	}
}

func TestParagraphSingleChunkHasNoSecondPass(t *testing.T) {
	model := &fakeModel{}
	s := NewSummarizer(model, 3000)

	got, err := s.Paragraph(context.Background(), "a short transcript")
	if err != nil {
		t.Fatalf("paragraph: %v", err)
	}

	if len(model.calls) != 1 {
		t.Fatalf("expected 1 model call, got %d", len(model.calls))
	}
	if got != "summary 1" {
		t.Fatalf("expected the single chunk summary, got %q", got)
	}
	if model.calls[0].length != chunkLength {
		t.Fatalf("expected chunk length bounds, got %+v", model.calls[0].length)
	}
}

func TestParagraphThreeChunksJoinsPartials(t *testing.T) {
	model := &fakeModel{}
	s := NewSummarizer(model, 10)

	got, err := s.Paragraph(context.Background(), strings.Repeat("x", 30))
	if err != nil {
		t.Fatalf("paragraph: %v", err)
	}

	if len(model.calls) != 3 {
		t.Fatalf("expected 3 model calls, got %d", len(model.calls))
	}
	if want := "summary 1\nsummary 2\nsummary 3"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestParagraphMoreThanThreeChunksSecondPass(t *testing.T) {
	model := &fakeModel{
		respond: func(call int, text string, length Length) (string, error) {
			if length == finalLength {
				return "final", nil
			}
			// partials long enough that the joined text must be truncated
			return strings.Repeat(string(rune('a'+call)), 1500), nil
		},
	}
	s := NewSummarizer(model, 10)

	got, err := s.Paragraph(context.Background(), strings.Repeat("y", 40))
	if err != nil {
		t.Fatalf("paragraph: %v", err)
	}

	if len(model.calls) != 5 {
		t.Fatalf("expected 4 chunk calls and 1 second pass, got %d calls", len(model.calls))
	}
	if got != "final" {
		t.Fatalf("expected second pass output, got %q", got)
	}

	last := model.calls[4]
	if last.length != finalLength {
		t.Fatalf("expected final length bounds, got %+v", last.length)
	}
	if n := utf8.RuneCountInString(last.text); n != secondPassInputLimit {
		t.Fatalf("expected second pass input of %d chars, got %d", secondPassInputLimit, n)
	}
}

func TestParagraphPropagatesModelError(t *testing.T) {
	boom := errors.New("model unavailable")
	model := &fakeModel{
		respond: func(int, string, Length) (string, error) { return "", boom },
	}
	s := NewSummarizer(model, 10)

	if _, err := s.Paragraph(context.Background(), "some text"); !errors.Is(err, boom) {
		t.Fatalf("expected model error, got %v", err)
	}
}

func TestBulletsPrefixDedupeAndCap(t *testing.T) {
	model := &fakeModel{
		respond: func(call int, text string, length Length) (string, error) {
			if !strings.HasPrefix(text, bulletInstruction) {
				t.Errorf("expected bullet instruction prefix, got %q", text)
			}
			var lines []string
			for i := range 4 {
				lines = append(lines, fmt.Sprintf("- point %d", (call+i)%12))
			}
			lines = append(lines, "", "• shared point", "   -   ")
			return strings.Join(lines, "\n"), nil
		},
	}
	s := NewSummarizer(model, 5)

	bullets, err := s.Bullets(context.Background(), strings.Repeat("z", 50))
	if err != nil {
		t.Fatalf("bullets: %v", err)
	}

	if len(bullets) != MaxBullets {
		t.Fatalf("expected %d bullets, got %d: %v", MaxBullets, len(bullets), bullets)
	}
	seen := make(map[string]bool)
	for _, b := range bullets {
		if seen[b] {
			t.Fatalf("duplicate bullet %q in %v", b, bullets)
		}
		seen[b] = true
		if strings.HasPrefix(b, "-") || strings.HasPrefix(b, "•") || strings.TrimSpace(b) != b || b == "" {
			t.Fatalf("bullet not cleaned: %q", b)
		}
	}
}

func TestParseBullets(t *testing.T) {
	raw := "- first\n\n• second\n  -  third -  \n---\nplain line"
	got := ParseBullets(raw)
	want := []string{"first", "second", "third", "plain line"}

	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("line %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestDedupeBulletsKeepsFirstSeenOrder(t *testing.T) {
	got := DedupeBullets([]string{"b", "a", "b", "c", "a", "d"}, 3)
	want := []string{"b", "a", "c"}

	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestSummarizeTrimsInputAndRunsBothPasses(t *testing.T) {
	model := &fakeModel{
		respond: func(call int, text string, length Length) (string, error) {
			if strings.HasPrefix(text, bulletInstruction) {
				return "- key idea", nil
			}
			return "paragraph", nil
		},
	}
	s := NewSummarizer(model, 3000)

	paragraph, bullets, err := s.Summarize(context.Background(), "\n\n  hello world  \n")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}

	if paragraph != "paragraph" {
		t.Fatalf("unexpected paragraph %q", paragraph)
	}
	if len(bullets) != 1 || bullets[0] != "key idea" {
		t.Fatalf("unexpected bullets %v", bullets)
	}

	calls := model.paragraphCalls()
	if len(calls) != 1 || calls[0].text != "hello world" {
		t.Fatalf("expected trimmed input, got %+v", calls)
	}
}

type fakeCompleter struct {
	prompt    string
	maxTokens int
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	f.prompt = prompt
	f.maxTokens = maxTokens
	return "  model output \n", nil
}

func TestModelSummarizerUsesPromptAndTokenCap(t *testing.T) {
	completer := &fakeCompleter{}
	prompts := NewPromptManager("", "Between {{.MinWords}} and {{.MaxWords}}: {{.Text}}")
	m := NewModelSummarizer(completer, prompts, 0)

	out, err := m.Summarize(context.Background(), "transcript", Length{Min: 60, Max: 180})
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}

	if out != "model output" {
		t.Fatalf("expected trimmed output, got %q", out)
	}
	if completer.prompt != "Between 60 and 180: transcript" {
		t.Fatalf("unexpected prompt %q", completer.prompt)
	}
	if completer.maxTokens != 360 {
		t.Fatalf("expected 360 max tokens, got %d", completer.maxTokens)
	}
}
