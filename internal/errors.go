package internal

import (
	"errors"
	"fmt"
)

var (
	ErrDownloadFailed   = errors.New("download failed")
	ErrExtractionFailed = errors.New("audio extraction failed")
	ErrNoAudioProduced  = errors.New("yt-dlp did not produce an audio file")
	ErrNoFeedEntries    = errors.New("no entries found in feed")
	ErrNoEnclosure      = errors.New("no audio enclosure found in feed entry")
	ErrUploadTooLarge   = errors.New("audio file exceeds maximum size")
	ErrNotFound         = errors.New("not found")
)

// UnsupportedExtensionError is returned when an upload's extension is not an allowed audio type
type UnsupportedExtensionError struct {
	Ext string
}

func (e *UnsupportedExtensionError) Error() string {
	ext := e.Ext
	if ext == "" {
		ext = "(none)"
	}
	return fmt.Sprintf("Unsupported file type %s. Allowed: %v", ext, AllowedUploadExtensions())
}
