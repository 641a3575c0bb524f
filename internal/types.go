package internal

import "time"

// SourceKind represents where a piece of audio came from
type SourceKind int

const (
	SourceUnknown SourceKind = iota
	SourceUpload
	SourceDirect
	SourceYouTube
	SourceFeed
)

// String returns a human-readable representation of the source kind
func (k SourceKind) String() string {
	switch k {
	case SourceUpload:
		return "upload"
	case SourceDirect:
		return "direct"
	case SourceYouTube:
		return "youtube"
	case SourceFeed:
		return "feed"
	default:
		return "unknown"
	}
}

// AudioFile is a locally stored audio file tagged with the identifier shared by
// its transcript and summaries.
type AudioFile struct {
	ID     string
	Path   string
	Source string
	Kind   SourceKind
	Title  string
}

// Transcript is the plain text derived from one AudioFile
type Transcript struct {
	ID   string
	Path string
	Text string
}

// SummaryResult holds both summary variants and where they were written
type SummaryResult struct {
	Paragraph     string
	Bullets       []string
	ParagraphPath string
	BulletsPath   string
}

// Result is the response payload for a processed request
type Result struct {
	Message               string   `json:"message"`
	FileID                string   `json:"file_id"`
	Title                 string   `json:"title,omitempty"`
	SourceKind            string   `json:"source_kind"`
	TranscriptPreview     string   `json:"transcript_preview"`
	SummaryPreview        string   `json:"summary_preview"`
	BulletPoints          []string `json:"bullet_points"`
	DownloadTranscriptURL string   `json:"download_transcript_url"`
	DownloadSummaryURL    string   `json:"download_summary_url"`
	DownloadBulletsURL    string   `json:"download_bullets_url"`

	// Full artifacts for local callers; never serialized.
	Transcript *Transcript    `json:"-"`
	Summary    *SummaryResult `json:"-"`
	Audio      *AudioFile     `json:"-"`
}

// Job is one processed request as recorded in the history index
type Job struct {
	ID             string    `json:"id"`
	Source         string    `json:"source"`
	Kind           string    `json:"kind"`
	Title          string    `json:"title,omitempty"`
	AudioPath      string    `json:"audio_path"`
	TranscriptPath string    `json:"transcript_path"`
	SummaryPath    string    `json:"summary_path"`
	BulletsPath    string    `json:"bullets_path"`
	CreatedAt      time.Time `json:"created_at"`
}
