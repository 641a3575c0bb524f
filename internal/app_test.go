package internal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestApp(t *testing.T, transcriber Transcriber, model TextSummarizer, opts ...AppOption) *App {
	t.Helper()

	opts = append([]AppOption{WithTranscriber(transcriber), WithTextSummarizer(model)}, opts...)
	app, err := NewApp(testConfig(t), opts...)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(func() { app.Close() })
	return app
}

func TestProcessFile(t *testing.T) {
	app := newTestApp(t, &fakeTranscriber{text: strings.Repeat("word ", 1000)}, bulletModel())

	src := filepath.Join(t.TempDir(), "Team Sync.wav")
	if err := os.WriteFile(src, []byte("RIFF"), 0644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	result, err := app.ProcessFile(context.Background(), src)
	if err != nil {
		t.Fatalf("process file: %v", err)
	}

	if result.Title != "Team Sync" {
		t.Fatalf("expected title from file name, got %q", result.Title)
	}
	if n := len([]rune(result.TranscriptPreview)); n != transcriptPreviewLen {
		t.Fatalf("expected preview of %d chars, got %d", transcriptPreviewLen, n)
	}
	if result.Audio.Source != src {
		t.Fatalf("expected source path %s, got %s", src, result.Audio.Source)
	}
	if !FileExists(result.Audio.Path) || filepath.Ext(result.Audio.Path) != ".wav" {
		t.Fatalf("expected stored wav, got %s", result.Audio.Path)
	}

	// artifacts are retrievable by id alone
	tr, err := app.TranscriptByID(result.FileID)
	if err != nil || tr.Text != result.Transcript.Text {
		t.Fatalf("transcript by id: %v", err)
	}
	sum, err := app.SummaryByID(result.FileID)
	if err != nil || sum.Paragraph != result.Summary.Paragraph {
		t.Fatalf("summary by id: %v", err)
	}
}

func TestProcessFileRejectsUnsupportedType(t *testing.T) {
	transcriber := &fakeTranscriber{}
	app := newTestApp(t, transcriber, bulletModel())

	src := filepath.Join(t.TempDir(), "notes.docx")
	if err := os.WriteFile(src, []byte("PK"), 0644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	_, err := app.ProcessSource(context.Background(), src)
	var extErr *UnsupportedExtensionError
	if !errors.As(err, &extErr) {
		t.Fatalf("expected UnsupportedExtensionError, got %v", err)
	}
	if transcriber.calls != 0 {
		t.Fatalf("transcriber should not run")
	}
}

func TestSummarizeTranscript(t *testing.T) {
	app := newTestApp(t, &fakeTranscriber{}, bulletModel())

	src := filepath.Join(t.TempDir(), "meeting.txt")
	if err := os.WriteFile(src, []byte("we agreed to ship on friday"), 0644); err != nil {
		t.Fatalf("write transcript: %v", err)
	}

	tr, sum, err := app.SummarizeTranscript(context.Background(), src)
	if err != nil {
		t.Fatalf("summarize file: %v", err)
	}
	if !ValidID(tr.ID) || len(sum.Bullets) == 0 {
		t.Fatalf("unexpected result id=%s bullets=%v", tr.ID, sum.Bullets)
	}

	// the stored copy can be summarized again by id
	again, _, err := app.SummarizeTranscript(context.Background(), tr.ID)
	if err != nil {
		t.Fatalf("summarize by id: %v", err)
	}
	if again.ID != tr.ID {
		t.Fatalf("expected same id, got %s", again.ID)
	}

	if _, _, err := app.SummarizeTranscript(context.Background(), NewID()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown id, got %v", err)
	}
}

func TestInspectFeed(t *testing.T) {
	srv := newFixtureServer(t)
	app := newTestApp(t, &fakeTranscriber{}, bulletModel())

	info, err := app.Inspect(context.Background(), srv.URL+"/feed.xml")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}

	if info.Kind != "feed" || info.FeedTitle != "Test Podcast" || info.Title != "Episode 2" {
		t.Fatalf("unexpected info %+v", info)
	}
	if info.Enclosure != srv.URL+"/media/ep2" {
		t.Fatalf("unexpected enclosure %q", info.Enclosure)
	}

	entries, _ := os.ReadDir(app.Store().AudioDir())
	if len(entries) != 0 {
		t.Fatalf("inspect must not download audio")
	}
}

func TestInspectDirect(t *testing.T) {
	app := newTestApp(t, &fakeTranscriber{}, bulletModel())

	info, err := app.Inspect(context.Background(), "https://cdn.example.com/ep.ogg")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if info.Kind != "direct" {
		t.Fatalf("expected direct, got %s", info.Kind)
	}
}

func TestProcessURLSummaryFailureIsNotRecorded(t *testing.T) {
	audio := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "audiodata")
	}))
	defer audio.Close()

	boom := errors.New("rate limited")
	model := &fakeModel{respond: func(int, string, Length) (string, error) { return "", boom }}
	app := newTestApp(t, &fakeTranscriber{text: "hello"}, model)

	if _, err := app.ProcessURL(context.Background(), audio.URL+"/ep.mp3"); !errors.Is(err, boom) {
		t.Fatalf("expected model error, got %v", err)
	}

	jobs, err := app.Jobs(context.Background(), 10)
	if err != nil {
		t.Fatalf("jobs: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("failed jobs must not be recorded, got %d", len(jobs))
	}
}
