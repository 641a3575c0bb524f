package internal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type fakeOpenAIClient struct {
	transcribed []string
	models      []string
	maxTokens   int
	err         error
}

func (f *fakeOpenAIClient) CreateTranscription(ctx context.Context, model string, file *os.File) (string, error) {
	f.models = append(f.models, model)
	f.transcribed = append(f.transcribed, filepath.Base(file.Name()))
	if f.err != nil {
		return "", f.err
	}
	return "text of " + filepath.Base(file.Name()), nil
}

func (f *fakeOpenAIClient) CreateChatCompletion(ctx context.Context, model, prompt string, maxTokens int) (string, error) {
	f.models = append(f.models, model)
	f.maxTokens = maxTokens
	return "completion for " + prompt, f.err
}

// fakeRunner answers ffprobe with a fixed duration and fakes ffmpeg output files
type fakeRunner struct {
	commands [][]string
}

func (r *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	r.commands = append(r.commands, append([]string{name}, args...))
	switch name {
	case "ffprobe":
		return []byte("100.5\n"), nil
	case "ffmpeg":
		out := args[len(args)-1]
		return nil, os.WriteFile(out, []byte("part"), 0644)
	}
	return nil, errors.New("unexpected command " + name)
}

func writeAudio(t *testing.T, size int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "abc.mp3")
	if err := os.WriteFile(path, make([]byte, size), 0644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	return path
}

func TestTranscribeSmallFileSingleRequest(t *testing.T) {
	client := &fakeOpenAIClient{}
	runner := &fakeRunner{}
	ai := NewAI(client, NewAudio(runner, t.TempDir()), "gpt-4o-mini", "whisper-1", 100, 0)

	text, err := ai.Transcribe(context.Background(), writeAudio(t, 100))
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}

	if text != "text of abc.mp3" {
		t.Fatalf("unexpected transcript %q", text)
	}
	if len(runner.commands) != 0 {
		t.Fatalf("expected no ffmpeg calls, got %v", runner.commands)
	}
	if client.models[0] != "whisper-1" {
		t.Fatalf("expected whisper-1, got %s", client.models[0])
	}
}

func TestTranscribeSplitsLargeFile(t *testing.T) {
	client := &fakeOpenAIClient{}
	runner := &fakeRunner{}
	tempDir := t.TempDir()
	ai := NewAI(client, NewAudio(runner, tempDir), "gpt-4o-mini", "whisper-1", 100, 0)
	audioPath := writeAudio(t, 250)

	text, err := ai.Transcribe(context.Background(), audioPath)
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}

	want := "text of abc_part_0.mp3\ntext of abc_part_1.mp3\ntext of abc_part_2.mp3"
	if text != want {
		t.Fatalf("expected %q, got %q", want, text)
	}

	// ffprobe once, ffmpeg per part
	if len(runner.commands) != 4 {
		t.Fatalf("expected 4 commands, got %d", len(runner.commands))
	}
	if got := strings.Join(runner.commands[2], " "); !strings.Contains(got, "-ss 34 -t 34") {
		t.Fatalf("expected second part to start at 34s, got %q", got)
	}

	if !FileExists(audioPath) {
		t.Fatalf("stored audio must survive splitting")
	}
	entries, _ := os.ReadDir(tempDir)
	if len(entries) != 0 {
		t.Fatalf("expected chunk files to be cleaned up, found %d", len(entries))
	}
}

func TestTranscribeRequiresKey(t *testing.T) {
	config := &Config{SummaryModel: "gpt-4o-mini", TranscribeModel: "whisper-1"}
	ai := NewAIWithKey("", NewAudio(&fakeRunner{}, t.TempDir()), config)

	if _, err := ai.Transcribe(context.Background(), writeAudio(t, 1)); err == nil {
		t.Fatalf("expected missing key error")
	}
	if _, err := ai.Complete(context.Background(), "prompt", 10); err == nil {
		t.Fatalf("expected missing key error")
	}
}

func TestCompleteUsesSummaryModel(t *testing.T) {
	client := &fakeOpenAIClient{}
	ai := NewAI(client, nil, "gpt-4.1-mini", "whisper-1", WhisperLimit, 0)

	out, err := ai.Complete(context.Background(), "hello", 360)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if out != "completion for hello" {
		t.Fatalf("unexpected output %q", out)
	}
	if client.models[0] != "gpt-4.1-mini" || client.maxTokens != 360 {
		t.Fatalf("unexpected request: model=%s maxTokens=%d", client.models[0], client.maxTokens)
	}
}
