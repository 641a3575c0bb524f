package internal

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// ArtifactKind names one of the downloadable files of a job
type ArtifactKind string

const (
	ArtifactTranscript ArtifactKind = "transcript"
	ArtifactSummary    ArtifactKind = "summary"
	ArtifactBullets    ArtifactKind = "bullets"
)

var uploadExtensions = []string{".mp3", ".wav", ".m4a", ".aac", ".ogg", ".flac"}

// remote links may also point at webm audio
var urlAudioExtensions = append(slices.Clone(uploadExtensions), ".webm")

var idPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)

// AllowedUploadExtensions returns the sorted allow-list for uploads
func AllowedUploadExtensions() []string {
	exts := slices.Clone(uploadExtensions)
	slices.Sort(exts)
	return exts
}

// IsAllowedUpload reports whether filename has an allowed audio extension
func IsAllowedUpload(filename string) bool {
	return slices.Contains(uploadExtensions, strings.ToLower(filepath.Ext(filename)))
}

// NewID generates a collision-resistant identifier (uuid4 as 32 hex chars)
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ValidID checks an identifier before it is used to build a path
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// Store lays out audio, transcripts and summaries under one data directory
type Store struct {
	dataDir        string
	audioDir       string
	transcriptsDir string
	summariesDir   string
}

// NewStore creates the directory layout under dataDir
func NewStore(dataDir string) (*Store, error) {
	s := &Store{
		dataDir:        dataDir,
		audioDir:       filepath.Join(dataDir, "audio"),
		transcriptsDir: filepath.Join(dataDir, "transcripts"),
		summariesDir:   filepath.Join(dataDir, "summaries"),
	}
	if err := EnsureDirs(s.audioDir, s.transcriptsDir, s.summariesDir); err != nil {
		return nil, fmt.Errorf("creating data directories: %w", err)
	}
	return s, nil
}

func (s *Store) DataDir() string        { return s.dataDir }
func (s *Store) AudioDir() string       { return s.audioDir }
func (s *Store) TranscriptsDir() string { return s.transcriptsDir }
func (s *Store) SummariesDir() string   { return s.summariesDir }

func (s *Store) AudioPath(id, ext string) string {
	return filepath.Join(s.audioDir, id+ext)
}

func (s *Store) TranscriptPath(id string) string {
	return filepath.Join(s.transcriptsDir, id+".txt")
}

func (s *Store) SummaryPath(id string) string {
	return filepath.Join(s.summariesDir, id+"_summary.txt")
}

func (s *Store) BulletsPath(id string) string {
	return filepath.Join(s.summariesDir, id+"_bullets.txt")
}

// SaveUpload validates the extension and stores the bytes under a new identifier.
// A limit of zero disables the size check.
func (s *Store) SaveUpload(filename string, r io.Reader, limit int64) (*AudioFile, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !IsAllowedUpload(filename) {
		return nil, &UnsupportedExtensionError{Ext: ext}
	}

	id := NewID()
	path := s.AudioPath(id, ext)

	out, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating audio file: %w", err)
	}

	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	n, err := io.Copy(out, src)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err == nil && limit > 0 && n > limit {
		err = ErrUploadTooLarge
	}
	if err != nil {
		cleanupFiles(path)
		if err == ErrUploadTooLarge {
			return nil, err
		}
		return nil, fmt.Errorf("writing audio file: %w", err)
	}

	return &AudioFile{
		ID:     id,
		Path:   path,
		Source: filename,
		Kind:   SourceUpload,
		Title:  strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)),
	}, nil
}

// WriteTranscript persists transcript text verbatim as {id}.txt
func (s *Store) WriteTranscript(id, text string) (*Transcript, error) {
	path := s.TranscriptPath(id)
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return nil, fmt.Errorf("saving transcript: %w", err)
	}
	return &Transcript{ID: id, Path: path, Text: text}, nil
}

// ReadTranscript loads a previously written transcript
func (s *Store) ReadTranscript(id string) (*Transcript, error) {
	if !ValidID(id) {
		return nil, fmt.Errorf("transcript %q: %w", id, ErrNotFound)
	}
	path := s.TranscriptPath(id)
	text, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("transcript %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading transcript: %w", err)
	}
	return &Transcript{ID: id, Path: path, Text: string(text)}, nil
}

// WriteSummary persists the paragraph and the bullet list ("- " per line)
func (s *Store) WriteSummary(id, paragraph string, bullets []string) (*SummaryResult, error) {
	paragraphPath := s.SummaryPath(id)
	if err := os.WriteFile(paragraphPath, []byte(paragraph), 0644); err != nil {
		return nil, fmt.Errorf("saving summary: %w", err)
	}

	lines := make([]string, len(bullets))
	for i, b := range bullets {
		lines[i] = "- " + b
	}
	bulletsPath := s.BulletsPath(id)
	if err := os.WriteFile(bulletsPath, []byte(strings.Join(lines, "\n")), 0644); err != nil {
		return nil, fmt.Errorf("saving bullets: %w", err)
	}

	return &SummaryResult{
		Paragraph:     paragraph,
		Bullets:       bullets,
		ParagraphPath: paragraphPath,
		BulletsPath:   bulletsPath,
	}, nil
}

// ReadSummary loads both summary variants for an identifier
func (s *Store) ReadSummary(id string) (*SummaryResult, error) {
	if !ValidID(id) {
		return nil, fmt.Errorf("summary %q: %w", id, ErrNotFound)
	}
	paragraph, err := os.ReadFile(s.SummaryPath(id))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("summary %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading summary: %w", err)
	}

	result := &SummaryResult{
		Paragraph:     string(paragraph),
		ParagraphPath: s.SummaryPath(id),
		BulletsPath:   s.BulletsPath(id),
	}
	raw, err := os.ReadFile(result.BulletsPath)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading bullets: %w", err)
	}
	for line := range strings.SplitSeq(string(raw), "\n") {
		if b := strings.TrimPrefix(line, "- "); strings.TrimSpace(b) != "" {
			result.Bullets = append(result.Bullets, b)
		}
	}
	return result, nil
}

// Artifact resolves the on-disk path and download name of an artifact by identifier
func (s *Store) Artifact(kind ArtifactKind, id string) (path, name string, err error) {
	if !ValidID(id) {
		return "", "", fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
	}

	switch kind {
	case ArtifactTranscript:
		path = s.TranscriptPath(id)
	case ArtifactSummary:
		path = s.SummaryPath(id)
	case ArtifactBullets:
		path = s.BulletsPath(id)
	default:
		return "", "", fmt.Errorf("unknown artifact %q: %w", kind, ErrNotFound)
	}

	if !FileExists(path) {
		return "", "", fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return path, filepath.Base(path), nil
}
