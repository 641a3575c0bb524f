package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/lrstanley/go-ytdlp"
)

// VideoMetadata contains the fields of yt-dlp's JSON dump we surface
type VideoMetadata struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Channel     string         `json:"channel"`
	Uploader    string         `json:"uploader"`
	Duration    float64        `json:"duration"`
	Categories  []string       `json:"categories"`
	Tags        []string       `json:"tags"`
	Chapters    []VideoChapter `json:"chapters"`
	HasCaptions bool           `json:"has_captions"`
}

// VideoChapter represents a video chapter marker
type VideoChapter struct {
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	Title     string  `json:"title"`
}

var (
	installOnce sync.Once
	installErr  error
)

// ensureYtdlp downloads the yt-dlp binary on first use if it is not on PATH
func ensureYtdlp(ctx context.Context) error {
	installOnce.Do(func() {
		if _, err := ytdlp.Install(ctx, nil); err != nil {
			installErr = fmt.Errorf("installing yt-dlp: %w", err)
		}
	})
	return installErr
}

// YouTube extracts audio from video hosting sites with yt-dlp
type YouTube struct {
	store *Store
}

// NewYouTube creates the video host strategy writing into store's audio dir
func NewYouTube(store *Store) *YouTube {
	return &YouTube{store: store}
}

func (yt *YouTube) Kind() SourceKind { return SourceYouTube }

func (yt *YouTube) Matches(rawURL string) bool {
	return looksLikeYouTube(rawURL)
}

// Fetch extracts mp3 audio to audio/{id}.mp3
func (yt *YouTube) Fetch(ctx context.Context, rawURL, id string) (*AudioFile, error) {
	if err := ensureYtdlp(ctx); err != nil {
		return nil, err
	}

	LogDebug("Extracting audio with yt-dlp: %s", rawURL)

	// -J with --no-simulate downloads and still prints the info JSON, so the
	// title comes from the same run
	dl := ytdlp.New().
		Format("bestaudio").
		ExtractAudio().
		AudioFormat("mp3").
		AudioQuality("0").
		NoPlaylist().
		DumpSingleJSON().
		NoSimulate().
		Output(filepath.Join(yt.store.AudioDir(), id+".%(ext)s"))

	result, err := dl.Run(ctx, rawURL)
	if err != nil {
		stderr := ""
		if result != nil {
			stderr = strings.TrimSpace(result.Stderr)
		}
		return nil, fmt.Errorf("%w: %v: %s", ErrExtractionFailed, err, stderr)
	}

	path := yt.store.AudioPath(id, ".mp3")
	if !FileExists(path) {
		return nil, fmt.Errorf("%w: expected %s", ErrNoAudioProduced, path)
	}

	af := &AudioFile{ID: id, Path: path, Source: rawURL, Kind: SourceYouTube}
	if meta, err := metadataFromOutput(result.Stdout); err == nil {
		af.Title = meta.Title
	} else {
		LogDebug("Skipping title for %s: %v", rawURL, err)
	}

	return af, nil
}

// metadataFromOutput parses the info JSON yt-dlp prints on its last stdout line
func metadataFromOutput(stdout string) (*VideoMetadata, error) {
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if last == "" {
		return nil, fmt.Errorf("yt-dlp printed no metadata")
	}
	return parseVideoMetadata([]byte(last))
}

// Metadata fetches video details without downloading media
func (yt *YouTube) Metadata(ctx context.Context, rawURL string) (*VideoMetadata, error) {
	if err := ensureYtdlp(ctx); err != nil {
		return nil, err
	}

	dl := ytdlp.New().
		DumpSingleJSON().
		NoPlaylist().
		SkipDownload()

	result, err := dl.Run(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("extracting video metadata: %w", err)
	}

	return parseVideoMetadata([]byte(result.Stdout))
}

func parseVideoMetadata(data []byte) (*VideoMetadata, error) {
	var metadata VideoMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, fmt.Errorf("parsing video metadata: %w", err)
	}

	var captions struct {
		Subtitles         map[string]any `json:"subtitles"`
		AutomaticCaptions map[string]any `json:"automatic_captions"`
	}
	if err := json.Unmarshal(data, &captions); err == nil {
		metadata.HasCaptions = len(captions.Subtitles) > 0 || len(captions.AutomaticCaptions) > 0
	}

	return &metadata, nil
}
