package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// Strategy turns one kind of URL into a local audio file
type Strategy interface {
	Kind() SourceKind
	Matches(rawURL string) bool
	Fetch(ctx context.Context, rawURL, id string) (*AudioFile, error)
}

// Acquirer tries its strategies in order and uses the first that matches
type Acquirer struct {
	strategies []Strategy
}

// NewAcquirer creates an Acquirer over an explicit, ordered strategy list
func NewAcquirer(strategies ...Strategy) *Acquirer {
	return &Acquirer{strategies: strategies}
}

// DefaultStrategies returns direct download, video host extraction and feed
// enclosure, in that order
func DefaultStrategies(store *Store, client *http.Client) []Strategy {
	direct := NewDirectDownloader(store, client, defaultDownloadTimeout)
	return []Strategy{
		direct,
		NewYouTube(store),
		NewFeedResolver(client, direct),
	}
}

// Classify reports which strategy would serve rawURL without fetching anything
func (a *Acquirer) Classify(rawURL string) SourceKind {
	s := a.strategyFor(strings.TrimSpace(rawURL))
	if s == nil {
		return SourceUnknown
	}
	return s.Kind()
}

func (a *Acquirer) strategyFor(rawURL string) Strategy {
	for _, s := range a.strategies {
		if s.Matches(rawURL) {
			return s
		}
	}
	return nil
}

// Acquire downloads the audio behind rawURL under a new identifier
func (a *Acquirer) Acquire(ctx context.Context, rawURL string) (*AudioFile, error) {
	u := strings.TrimSpace(rawURL)
	s := a.strategyFor(u)
	if s == nil {
		return nil, fmt.Errorf("no strategy accepts %q", u)
	}

	LogDebug("Acquiring %s via %s strategy", u, s.Kind())
	af, err := s.Fetch(ctx, u, NewID())
	if err != nil {
		return nil, fmt.Errorf("acquiring %s audio: %w", s.Kind(), err)
	}
	return af, nil
}

const defaultDownloadTimeout = 60 * time.Second

var errBodyStalled = errors.New("no data received")

// NewDownloadClient bounds each phase of a download (dial, TLS, response
// headers) by timeout. The body has no overall deadline; long episodes on slow
// links are fine as long as bytes keep arriving.
func NewDownloadClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultDownloadTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}).DialContext
	transport.TLSHandshakeTimeout = timeout
	transport.ResponseHeaderTimeout = timeout
	return &http.Client{Transport: transport}
}

// DirectDownloader streams links that point straight at an audio file
type DirectDownloader struct {
	store  *Store
	client *http.Client
	idle   time.Duration
}

// NewDirectDownloader creates a downloader that gives up when the body stalls
// for longer than idle. A nil client gets NewDownloadClient(idle).
func NewDirectDownloader(store *Store, client *http.Client, idle time.Duration) *DirectDownloader {
	if client == nil {
		client = NewDownloadClient(idle)
	}
	return &DirectDownloader{store: store, client: client, idle: idle}
}

func (d *DirectDownloader) Kind() SourceKind { return SourceDirect }

func (d *DirectDownloader) Matches(rawURL string) bool {
	_, ok := audioExtFromURL(rawURL)
	return ok
}

// Fetch downloads rawURL into audio/{id}{ext}, guessing .mp3 when the path has no audio extension
func (d *DirectDownloader) Fetch(ctx context.Context, rawURL, id string) (*AudioFile, error) {
	ext, ok := audioExtFromURL(rawURL)
	if !ok {
		ext = ".mp3"
	}
	path := d.store.AudioPath(id, ext)

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned %s", ErrDownloadFailed, rawURL, resp.Status)
	}

	out, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating audio file: %w", err)
	}
	var body io.Reader = resp.Body
	if d.idle > 0 {
		stall := time.AfterFunc(d.idle, func() { cancel(errBodyStalled) })
		defer stall.Stop()
		body = &idleReader{r: resp.Body, timer: stall, idle: d.idle}
	}
	_, err = io.Copy(out, body)
	if err != nil && errors.Is(context.Cause(ctx), errBodyStalled) {
		err = fmt.Errorf("%w for %s", errBodyStalled, d.idle)
	}
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		cleanupFiles(path)
		return nil, fmt.Errorf("%w: writing body: %v", ErrDownloadFailed, err)
	}

	LogDebug("Downloaded %s to %s", rawURL, path)
	return &AudioFile{ID: id, Path: path, Source: rawURL, Kind: SourceDirect}, nil
}

// idleReader pushes the stall deadline back whenever bytes arrive
type idleReader struct {
	r     io.Reader
	timer *time.Timer
	idle  time.Duration
}

func (r *idleReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if n > 0 {
		r.timer.Reset(r.idle)
	}
	return n, err
}

// FeedResolver reads an RSS/Atom feed and downloads the first entry's audio
type FeedResolver struct {
	parser *gofeed.Parser
	direct *DirectDownloader
}

// NewFeedResolver creates a resolver that downloads enclosures through direct
func NewFeedResolver(client *http.Client, direct *DirectDownloader) *FeedResolver {
	parser := gofeed.NewParser()
	if client != nil {
		parser.Client = client
	}
	return &FeedResolver{parser: parser, direct: direct}
}

func (f *FeedResolver) Kind() SourceKind { return SourceFeed }

// Matches always reports true: feeds are the last resort
func (f *FeedResolver) Matches(string) bool { return true }

// Latest parses the feed and returns its first entry
func (f *FeedResolver) Latest(ctx context.Context, rawURL string) (*gofeed.Feed, *gofeed.Item, error) {
	feed, err := f.parser.ParseURLWithContext(rawURL, ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing feed: %w", err)
	}
	if len(feed.Items) == 0 {
		return feed, nil, ErrNoFeedEntries
	}
	return feed, feed.Items[0], nil
}

// Fetch downloads the first entry's enclosure
func (f *FeedResolver) Fetch(ctx context.Context, rawURL, id string) (*AudioFile, error) {
	_, item, err := f.Latest(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	enclosure := EnclosureURL(item)
	if enclosure == "" {
		return nil, ErrNoEnclosure
	}

	af, err := f.direct.Fetch(ctx, enclosure, id)
	if err != nil {
		return nil, err
	}
	af.Kind = SourceFeed
	af.Source = rawURL
	af.Title = item.Title
	return af, nil
}

// EnclosureURL returns the first enclosure URL of an item, falling back to media:content
func EnclosureURL(item *gofeed.Item) string {
	for _, enc := range item.Enclosures {
		if enc != nil && enc.URL != "" {
			return enc.URL
		}
	}

	for _, content := range item.Extensions["media"]["content"] {
		if u := content.Attrs["url"]; u != "" {
			return u
		}
	}

	return ""
}
