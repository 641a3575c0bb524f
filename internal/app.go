package internal

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	transcriptPreviewLen = 2000
	summaryPreviewLen    = 800
	resultMessage        = "Upload successful"
)

// App holds the application state and dependencies
type App struct {
	config      *Config
	store       *Store
	acquirer    *Acquirer
	youtube     *YouTube
	feeds       *FeedResolver
	transcriber Transcriber
	model       TextSummarizer
	summarizer  *Summarizer
	history     *History
	ui          UIManager
}

// AppOption customizes App creation
type AppOption func(*App)

// WithTranscriber sets a custom speech-to-text backend
func WithTranscriber(t Transcriber) AppOption {
	return func(a *App) {
		a.transcriber = t
	}
}

// WithTextSummarizer sets a custom summarization model
func WithTextSummarizer(m TextSummarizer) AppOption {
	return func(a *App) {
		a.model = m
	}
}

// WithAcquirer sets a custom URL acquisition strategy list
func WithAcquirer(acq *Acquirer) AppOption {
	return func(a *App) {
		a.acquirer = acq
	}
}

// WithHistory sets the history index
func WithHistory(h *History) AppOption {
	return func(a *App) {
		a.history = h
	}
}

// WithUI sets a custom UI manager
func WithUI(ui UIManager) AppOption {
	return func(a *App) {
		a.ui = ui
	}
}

// NewApp initializes the application. Model clients are created lazily on
// first use and shared by every request afterwards.
func NewApp(config *Config, options ...AppOption) (*App, error) {
	store, err := NewStore(config.DataDir)
	if err != nil {
		return nil, err
	}

	client := NewDownloadClient(config.DownloadTimeout)
	direct := NewDirectDownloader(store, client, config.DownloadTimeout)

	app := &App{
		config:  config,
		store:   store,
		youtube: NewYouTube(store),
		feeds:   NewFeedResolver(client, direct),
	}

	for _, option := range options {
		option(app)
	}

	if app.acquirer == nil {
		app.acquirer = NewAcquirer(direct, app.youtube, app.feeds)
	}

	var ai *AI
	if app.transcriber == nil || (app.model == nil && config.SummaryProvider != ProviderGemini) {
		audio := NewAudio(&DefaultCommandRunner{}, config.TempDir)
		ai = NewAIWithKey(config.OpenAIAPIKey, audio, config)
	}
	if app.transcriber == nil {
		app.transcriber = ai
	}
	if app.model == nil {
		var completer Completer = ai
		if config.SummaryProvider == ProviderGemini {
			completer = NewGemini(config.GeminiAPIKey, config.GeminiModel)
		}
		prompts := NewPromptManager(config.ConfigDir, config.Prompt)
		app.model = NewModelSummarizer(completer, prompts, config.SummaryTimeout)
	}
	app.summarizer = NewSummarizer(app.model, config.ChunkSize)

	if app.ui == nil {
		app.ui = NewUIManager(config.Verbose, config.Quiet)
	}

	if app.history == nil {
		h, err := OpenHistory(config.HistoryPath())
		if err != nil {
			LogWarn("History disabled: %v", err)
		} else {
			app.history = h
		}
	}

	return app, nil
}

// Close releases the history database
func (app *App) Close() error {
	if app.history == nil {
		return nil
	}
	return app.history.Close()
}

// Store returns the artifact store
func (app *App) Store() *Store {
	return app.store
}

// ProcessUpload stores an uploaded file and runs the full pipeline on it
func (app *App) ProcessUpload(ctx context.Context, filename string, r io.Reader) (*Result, error) {
	af, err := app.store.SaveUpload(filename, r, app.config.MaxUploadBytes())
	if err != nil {
		return nil, err
	}
	return app.process(ctx, af)
}

// ProcessURL acquires remote audio and runs the full pipeline on it
func (app *App) ProcessURL(ctx context.Context, rawURL string) (*Result, error) {
	af, err := app.acquireURL(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return app.process(ctx, af)
}

// ProcessFile copies a local audio file into the store and runs the pipeline
func (app *App) ProcessFile(ctx context.Context, path string) (*Result, error) {
	af, err := app.acquireFile(path)
	if err != nil {
		return nil, err
	}
	return app.process(ctx, af)
}

// ProcessSource dispatches on whether arg is a URL or a local path
func (app *App) ProcessSource(ctx context.Context, arg string) (*Result, error) {
	af, err := app.AcquireSource(ctx, arg)
	if err != nil {
		return nil, err
	}
	return app.process(ctx, af)
}

// AcquireSource stores the audio behind a URL or local path without processing it
func (app *App) AcquireSource(ctx context.Context, arg string) (*AudioFile, error) {
	if IsURL(arg) {
		return app.acquireURL(ctx, arg)
	}
	return app.acquireFile(arg)
}

func (app *App) acquireURL(ctx context.Context, rawURL string) (*AudioFile, error) {
	spinner := app.ui.NewSpinner("Downloading audio...")
	defer spinner.Finish()

	return app.acquirer.Acquire(ctx, rawURL)
}

func (app *App) acquireFile(path string) (*AudioFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening audio file: %w", err)
	}
	defer f.Close()

	af, err := app.store.SaveUpload(filepath.Base(path), f, app.config.MaxUploadBytes())
	if err != nil {
		return nil, err
	}
	af.Source = path
	return af, nil
}

// process runs transcription and summarization once and records the job
func (app *App) process(ctx context.Context, af *AudioFile) (*Result, error) {
	spinner := app.ui.NewSpinner("Transcribing audio...")

	transcript, err := app.Transcribe(ctx, af)
	if err != nil {
		spinner.Finish()
		return nil, err
	}

	spinner.Describe("Summarizing transcript...")
	spinner.Advance()

	summary, err := app.Summarize(ctx, transcript)
	spinner.Finish()
	if err != nil {
		return nil, err
	}

	app.record(ctx, af, transcript, summary)

	LogInfo("Processed %s (%s) from %s", af.ID, af.Kind, af.Source)
	return newResult(af, transcript, summary), nil
}

func (app *App) record(ctx context.Context, af *AudioFile, tr *Transcript, sum *SummaryResult) {
	if app.history == nil {
		return
	}
	job := &Job{
		ID:             af.ID,
		Source:         af.Source,
		Kind:           af.Kind.String(),
		Title:          af.Title,
		AudioPath:      af.Path,
		TranscriptPath: tr.Path,
		SummaryPath:    sum.ParagraphPath,
		BulletsPath:    sum.BulletsPath,
	}
	if err := app.history.Record(ctx, job); err != nil {
		LogWarn("Failed to record job %s: %v", af.ID, err)
	}
}

func newResult(af *AudioFile, tr *Transcript, sum *SummaryResult) *Result {
	return &Result{
		Message:               resultMessage,
		FileID:                af.ID,
		Title:                 af.Title,
		SourceKind:            af.Kind.String(),
		TranscriptPreview:     truncateRunes(tr.Text, transcriptPreviewLen),
		SummaryPreview:        truncateRunes(sum.Paragraph, summaryPreviewLen),
		BulletPoints:          sum.Bullets,
		DownloadTranscriptURL: DownloadURL(ArtifactTranscript, af.ID),
		DownloadSummaryURL:    DownloadURL(ArtifactSummary, af.ID),
		DownloadBulletsURL:    DownloadURL(ArtifactBullets, af.ID),
		Transcript:            tr,
		Summary:               sum,
		Audio:                 af,
	}
}

// DownloadURL is the server-relative path for one artifact
func DownloadURL(kind ArtifactKind, id string) string {
	return "/download/" + string(kind) + "/" + id
}

// Transcribe converts a stored audio file to text and persists it
func (app *App) Transcribe(ctx context.Context, af *AudioFile) (*Transcript, error) {
	text, err := app.transcriber.Transcribe(ctx, af.Path)
	if err != nil {
		return nil, fmt.Errorf("transcribing %s: %w", af.ID, err)
	}
	return app.store.WriteTranscript(af.ID, text)
}

// Summarize produces and persists both summary variants for a transcript
func (app *App) Summarize(ctx context.Context, tr *Transcript) (*SummaryResult, error) {
	paragraph, bullets, err := app.summarizer.Summarize(ctx, tr.Text)
	if err != nil {
		return nil, fmt.Errorf("summarizing %s: %w", tr.ID, err)
	}
	return app.store.WriteSummary(tr.ID, paragraph, bullets)
}

// SummarizeTranscript summarizes a stored transcript id or a plain text file.
// Text files get a fresh identifier and their transcript copied into the store.
func (app *App) SummarizeTranscript(ctx context.Context, arg string) (*Transcript, *SummaryResult, error) {
	var tr *Transcript
	if ValidID(arg) {
		t, err := app.store.ReadTranscript(arg)
		if err != nil {
			return nil, nil, err
		}
		tr = t
	} else {
		data, err := os.ReadFile(arg)
		if err != nil {
			return nil, nil, fmt.Errorf("reading transcript: %w", err)
		}
		t, err := app.store.WriteTranscript(NewID(), string(data))
		if err != nil {
			return nil, nil, err
		}
		tr = t
	}

	if strings.TrimSpace(tr.Text) == "" {
		return nil, nil, fmt.Errorf("transcript %s is empty", tr.ID)
	}

	spinner := app.ui.NewSpinner("Summarizing transcript...")
	sum, err := app.Summarize(ctx, tr)
	spinner.Finish()
	if err != nil {
		return nil, nil, err
	}
	return tr, sum, nil
}

// TranscriptByID reads a stored transcript
func (app *App) TranscriptByID(id string) (*Transcript, error) {
	return app.store.ReadTranscript(id)
}

// SummaryByID reads stored summaries
func (app *App) SummaryByID(id string) (*SummaryResult, error) {
	return app.store.ReadSummary(id)
}

// Artifact resolves a downloadable file for id
func (app *App) Artifact(kind ArtifactKind, id string) (path, name string, err error) {
	return app.store.Artifact(kind, id)
}

// Jobs lists recently processed jobs, newest first
func (app *App) Jobs(ctx context.Context, limit int) ([]Job, error) {
	if app.history == nil {
		return []Job{}, nil
	}
	return app.history.Recent(ctx, limit)
}

// Job returns the history entry for id, or ErrNotFound
func (app *App) Job(ctx context.Context, id string) (*Job, error) {
	if app.history == nil || !ValidID(id) {
		return nil, fmt.Errorf("job %q: %w", id, ErrNotFound)
	}
	return app.history.Get(ctx, id)
}

// SourceInfo describes a URL without downloading its audio
type SourceInfo struct {
	URL       string         `json:"url"`
	Kind      string         `json:"kind"`
	Title     string         `json:"title,omitempty"`
	FeedTitle string         `json:"feed_title,omitempty"`
	Enclosure string         `json:"enclosure,omitempty"`
	Video     *VideoMetadata `json:"video,omitempty"`
}

// Inspect classifies a URL and gathers the metadata its strategy can see cheaply
func (app *App) Inspect(ctx context.Context, rawURL string) (*SourceInfo, error) {
	u := strings.TrimSpace(rawURL)
	kind := app.acquirer.Classify(u)
	info := &SourceInfo{URL: u, Kind: kind.String()}

	switch kind {
	case SourceYouTube:
		meta, err := app.youtube.Metadata(ctx, u)
		if err != nil {
			return nil, err
		}
		info.Title = meta.Title
		info.Video = meta
	case SourceFeed:
		feed, item, err := app.feeds.Latest(ctx, u)
		if err != nil {
			return nil, err
		}
		info.FeedTitle = feed.Title
		info.Title = item.Title
		info.Enclosure = EnclosureURL(item)
	}

	return info, nil
}
