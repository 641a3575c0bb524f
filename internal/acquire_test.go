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
	"time"
)

const rssWithEnclosure = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Test Podcast</title>
    <item>
      <title>Episode 2</title>
      <enclosure url="{{server}}/media/ep2" length="9" type="audio/mpeg"/>
    </item>
    <item>
      <title>Episode 1</title>
      <enclosure url="{{server}}/media/ep1.mp3" length="9" type="audio/mpeg"/>
    </item>
  </channel>
</rss>`

const rssWithMediaContent = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/">
  <channel>
    <title>Media Podcast</title>
    <item>
      <title>Media Episode</title>
      <media:content url="{{server}}/media/ep3.m4a" type="audio/mp4"/>
    </item>
  </channel>
</rss>`

const rssEmpty = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Empty</title></channel></rss>`

const rssNoEnclosure = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Text Only</title>
    <item><title>Announcement</title><description>No audio here</description></item>
  </channel>
</rss>`

func newFixtureServer(t *testing.T) *httptest.Server {
	t.Helper()

	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/media/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		fmt.Fprint(w, "audiodata")
	})
	mux.HandleFunc("/missing.mp3", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	feeds := map[string]string{
		"/feed.xml":         rssWithEnclosure,
		"/media-feed.xml":   rssWithMediaContent,
		"/empty.xml":        rssEmpty,
		"/no-enclosure.xml": rssNoEnclosure,
	}
	for path, body := range feeds {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/rss+xml")
			fmt.Fprint(w, strings.ReplaceAll(body, "{{server}}", srv.URL))
		})
	}

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestAcquirer(t *testing.T, srv *httptest.Server) (*Acquirer, *Store) {
	t.Helper()

	store := newTestStore(t)
	return NewAcquirer(DefaultStrategies(store, srv.Client())...), store
}

func TestClassify(t *testing.T) {
	acq := NewAcquirer(DefaultStrategies(newTestStore(t), nil)...)

	tests := []struct {
		url  string
		want SourceKind
	}{
		{"https://cdn.example.com/show/ep1.mp3", SourceDirect},
		{"https://cdn.example.com/show/EP1.WAV?token=abc", SourceDirect},
		{"  https://cdn.example.com/a.webm  ", SourceDirect},
		{"https://www.youtube.com/watch?v=tAP1eZYEuKA", SourceYouTube},
		{"https://youtu.be/tAP1eZYEuKA", SourceYouTube},
		{"https://feeds.example.com/podcast.xml", SourceFeed},
		{"https://example.com/episodes/42", SourceFeed},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if got := acq.Classify(tt.url); got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestAcquireDirectDownload(t *testing.T) {
	srv := newFixtureServer(t)
	acq, store := newTestAcquirer(t, srv)

	af, err := acq.Acquire(context.Background(), srv.URL+"/media/episode.mp3")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	if af.Kind != SourceDirect {
		t.Fatalf("expected direct strategy, got %s", af.Kind)
	}
	if want := store.AudioPath(af.ID, ".mp3"); af.Path != want {
		t.Fatalf("expected %s, got %s", want, af.Path)
	}
	data, err := os.ReadFile(af.Path)
	if err != nil {
		t.Fatalf("read audio: %v", err)
	}
	if string(data) != "audiodata" {
		t.Fatalf("unexpected audio content %q", data)
	}
}

func TestAcquireDirectDownloadFailure(t *testing.T) {
	srv := newFixtureServer(t)
	acq, store := newTestAcquirer(t, srv)

	_, err := acq.Acquire(context.Background(), srv.URL+"/missing.mp3")
	if !errors.Is(err, ErrDownloadFailed) {
		t.Fatalf("expected ErrDownloadFailed, got %v", err)
	}

	entries, _ := os.ReadDir(store.AudioDir())
	if len(entries) != 0 {
		t.Fatalf("expected no audio left behind, found %d files", len(entries))
	}
}

func TestDirectDownloadSlowBodyOutlastsTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		for range 6 {
			fmt.Fprint(w, "chunk")
			flusher.Flush()
			time.Sleep(50 * time.Millisecond)
		}
	}))
	defer srv.Close()

	// the whole body takes ~300ms, each gap stays well under the timeout
	d := NewDirectDownloader(newTestStore(t), NewDownloadClient(150*time.Millisecond), 150*time.Millisecond)
	af, err := d.Fetch(context.Background(), srv.URL+"/episode.mp3", NewID())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	data, err := os.ReadFile(af.Path)
	if err != nil {
		t.Fatalf("read audio: %v", err)
	}
	if string(data) != strings.Repeat("chunk", 6) {
		t.Fatalf("unexpected audio content %q", data)
	}
}

func TestDirectDownloadStalledBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "head")
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	store := newTestStore(t)
	d := NewDirectDownloader(store, NewDownloadClient(100*time.Millisecond), 100*time.Millisecond)

	start := time.Now()
	_, err := d.Fetch(context.Background(), srv.URL+"/episode.mp3", NewID())
	if !errors.Is(err, ErrDownloadFailed) {
		t.Fatalf("expected ErrDownloadFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "no data received") {
		t.Fatalf("expected stall in error, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("stall not detected promptly: %s", elapsed)
	}

	entries, _ := os.ReadDir(store.AudioDir())
	if len(entries) != 0 {
		t.Fatalf("expected partial file removed, found %d files", len(entries))
	}
}

func TestNewDownloadClientHasNoTotalDeadline(t *testing.T) {
	c := NewDownloadClient(30 * time.Second)
	if c.Timeout != 0 {
		t.Fatalf("expected no total timeout, got %s", c.Timeout)
	}
	tr, ok := c.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("expected *http.Transport, got %T", c.Transport)
	}
	if tr.ResponseHeaderTimeout != 30*time.Second || tr.TLSHandshakeTimeout != 30*time.Second {
		t.Fatalf("unexpected transport timeouts: header=%s tls=%s", tr.ResponseHeaderTimeout, tr.TLSHandshakeTimeout)
	}
}

func TestAcquireFeedEnclosure(t *testing.T) {
	srv := newFixtureServer(t)
	acq, _ := newTestAcquirer(t, srv)

	af, err := acq.Acquire(context.Background(), srv.URL+"/feed.xml")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	if af.Kind != SourceFeed {
		t.Fatalf("expected feed strategy, got %s", af.Kind)
	}
	if af.Title != "Episode 2" {
		t.Fatalf("expected first entry, got %q", af.Title)
	}
	// enclosure path has no extension
	if filepath.Ext(af.Path) != ".mp3" {
		t.Fatalf("expected .mp3 fallback, got %s", af.Path)
	}
	if af.Source != srv.URL+"/feed.xml" {
		t.Fatalf("expected feed url as source, got %s", af.Source)
	}
}

func TestAcquireFeedMediaContent(t *testing.T) {
	srv := newFixtureServer(t)
	acq, _ := newTestAcquirer(t, srv)

	af, err := acq.Acquire(context.Background(), srv.URL+"/media-feed.xml")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if filepath.Ext(af.Path) != ".m4a" {
		t.Fatalf("expected extension from media:content url, got %s", af.Path)
	}
}

func TestAcquireFeedErrors(t *testing.T) {
	srv := newFixtureServer(t)
	acq, _ := newTestAcquirer(t, srv)

	tests := []struct {
		path string
		want error
	}{
		{"/empty.xml", ErrNoFeedEntries},
		{"/no-enclosure.xml", ErrNoEnclosure},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			_, err := acq.Acquire(context.Background(), srv.URL+tt.path)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

type stubStrategy struct {
	kind    SourceKind
	matches bool
	fetched bool
}

func (s *stubStrategy) Kind() SourceKind    { return s.kind }
func (s *stubStrategy) Matches(string) bool { return s.matches }
func (s *stubStrategy) Fetch(ctx context.Context, rawURL, id string) (*AudioFile, error) {
	s.fetched = true
	return &AudioFile{ID: id, Source: rawURL, Kind: s.kind}, nil
}

func TestAcquireUsesFirstMatchingStrategy(t *testing.T) {
	first := &stubStrategy{kind: SourceDirect}
	second := &stubStrategy{kind: SourceYouTube, matches: true}
	third := &stubStrategy{kind: SourceFeed, matches: true}
	acq := NewAcquirer(first, second, third)

	af, err := acq.Acquire(context.Background(), " https://example.com/x ")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	if first.fetched || !second.fetched || third.fetched {
		t.Fatalf("expected only the second strategy to fetch")
	}
	if af.Source != "https://example.com/x" {
		t.Fatalf("expected trimmed url, got %q", af.Source)
	}
	if !ValidID(af.ID) {
		t.Fatalf("expected generated id, got %q", af.ID)
	}
}

func TestAcquireNoStrategy(t *testing.T) {
	acq := NewAcquirer(&stubStrategy{kind: SourceDirect})

	if _, err := acq.Acquire(context.Background(), "https://example.com"); err == nil {
		t.Fatalf("expected error when no strategy matches")
	}
	if got := acq.Classify("https://example.com"); got != SourceUnknown {
		t.Fatalf("expected unknown, got %s", got)
	}
}
