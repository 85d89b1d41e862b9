package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/wav"
	"golang.org/x/sync/singleflight"

	"go-pianoroll/debug"
)

// Leading silence detection
const (
	silenceThreshold = 0.001
	silenceSearch    = time.Second
)

// loadTimeout bounds a shared fetch, independent of any one caller
const loadTimeout = 30 * time.Second

// Status is the load state of a Sample
type Status int

const (
	StatusUnloaded Status = iota
	StatusLoading
	StatusLoaded
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusUnloaded:
		return "unloaded"
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusError:
		return "error"
	}
	return "unknown"
}

var ErrNoSource = errors.New("audio: no sample source")

// Sample is a decoded audio buffer loaded once from a file path or http(s) URL.
// A failed reload keeps the previous buffer playable.
type Sample struct {
	source string
	client *http.Client
	group  singleflight.Group

	mu     sync.RWMutex
	status Status
	name   string
	buf    *beep.Buffer
	offset int // first audible frame
	err    error
}

// SampleOption configures a Sample
type SampleOption func(*Sample)

// WithHTTPClient sets the client used for URL sources
func WithHTTPClient(c *http.Client) SampleOption {
	return func(s *Sample) { s.client = c }
}

// NewSample creates an unloaded sample for source (path or URL, may be empty)
func NewSample(source string, opts ...SampleOption) *Sample {
	s := &Sample{
		source: source,
		client: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Source returns the configured source
func (s *Sample) Source() string {
	return s.source
}

// Status returns the current load state
func (s *Sample) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Err returns the last load error
func (s *Sample) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Name returns the loaded sample's file name, or "LOAD ERROR"
func (s *Sample) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.status == StatusError {
		return "LOAD ERROR"
	}
	return s.name
}

// StartOffset is the leading silence skipped at playback
func (s *Sample) StartOffset() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.buf == nil {
		return 0
	}
	return s.buf.Format().SampleRate.D(s.offset)
}

// snapshot returns the playable buffer, if any
func (s *Sample) snapshot() (*beep.Buffer, int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.buf, s.offset, s.buf != nil
}

// EnsureLoaded loads the source once. Concurrent callers share a single fetch
// that outlives any one caller's ctx. After a failure the next call tries again;
// with a buffer already in place a retry just clears the error.
func (s *Sample) EnsureLoaded(ctx context.Context) error {
	if s.reuseBuffer() {
		return nil
	}
	if s.source == "" {
		return ErrNoSource
	}

	ch := s.group.DoChan(s.source, func() (any, error) {
		if _, _, ok := s.snapshot(); ok {
			return nil, nil
		}
		s.setStatus(StatusLoading)
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		data, err := s.fetch(fetchCtx)
		if err != nil {
			s.fail(err)
			return nil, err
		}
		return nil, s.LoadReader(s.source, bytes.NewReader(data))
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

// LoadFile replaces the sample with a file from disk
func (s *Sample) LoadFile(p string) error {
	f, err := os.Open(p)
	if err != nil {
		s.fail(err)
		return err
	}
	defer f.Close()
	return s.LoadReader(p, f)
}

// LoadReader decodes r (format picked by name's extension) and replaces the buffer
func (s *Sample) LoadReader(name string, r io.Reader) error {
	buf, err := decode(name, r)
	if err != nil {
		err = fmt.Errorf("decode %s: %w", name, err)
		s.fail(err)
		return err
	}
	offset := firstSoundOffset(buf)

	s.mu.Lock()
	s.buf = buf
	s.offset = offset
	s.name = displayName(name)
	s.status = StatusLoaded
	s.err = nil
	s.mu.Unlock()

	debug.Log("audio", "loaded %s: %d frames @ %d Hz, offset %d", name, buf.Len(), buf.Format().SampleRate, offset)
	return nil
}

// reuseBuffer reports whether a buffer is playable, marking it loaded again if a
// later upload had failed on top of it
func (s *Sample) reuseBuffer() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buf == nil {
		return false
	}
	s.status = StatusLoaded
	s.err = nil
	return true
}

func (s *Sample) setStatus(st Status) {
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
}

func (s *Sample) fail(err error) {
	s.mu.Lock()
	s.status = StatusError
	s.err = err
	s.mu.Unlock()
	debug.Log("audio", "sample %q: %v", s.source, err)
}

func (s *Sample) fetch(ctx context.Context) ([]byte, error) {
	if !isURL(s.source) {
		return os.ReadFile(s.source)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.source, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", s.source, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: %s", s.source, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

func isURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

func displayName(source string) string {
	if isURL(source) {
		if u, err := url.Parse(source); err == nil {
			return path.Base(u.Path)
		}
	}
	return filepath.Base(source)
}

func extension(source string) string {
	p := source
	if isURL(source) {
		if u, err := url.Parse(source); err == nil {
			p = u.Path
		}
	}
	return strings.ToLower(path.Ext(p))
}

// decode reads the whole stream into memory
func decode(name string, r io.Reader) (*beep.Buffer, error) {
	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
		err      error
	)
	switch extension(name) {
	case ".mp3":
		streamer, format, err = mp3.Decode(io.NopCloser(r))
	case ".wav", "":
		streamer, format, err = wav.Decode(r)
	default:
		return nil, fmt.Errorf("unsupported format %q", extension(name))
	}
	if err != nil {
		return nil, err
	}
	defer streamer.Close()

	buf := beep.NewBuffer(format)
	buf.Append(streamer)
	if err := streamer.Err(); err != nil {
		return nil, err
	}
	if buf.Len() == 0 {
		return nil, errors.New("empty sample")
	}
	return buf, nil
}

// firstSoundOffset finds the first frame whose left channel exceeds the
// silence threshold within the search window, or 0
func firstSoundOffset(buf *beep.Buffer) int {
	limit := min(buf.Len(), buf.Format().SampleRate.N(silenceSearch))
	s := buf.Streamer(0, limit)
	chunk := make([][2]float64, 512)
	pos := 0
	for pos < limit {
		n, ok := s.Stream(chunk)
		for i := 0; i < n; i++ {
			if v := chunk[i][0]; v > silenceThreshold || v < -silenceThreshold {
				return pos + i
			}
		}
		pos += n
		if !ok || n == 0 {
			break
		}
	}
	return 0
}
