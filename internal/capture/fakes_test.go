package capture

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/capture-service/internal/artifact"
	"github.com/user/capture-service/internal/browser"
	"github.com/user/capture-service/internal/monitoring"
	"github.com/user/capture-service/internal/preprocess"
	"github.com/user/capture-service/internal/sentiment"
)

type fakeSession struct {
	mu sync.Mutex

	png            []byte
	navErr         error
	waitErr        error
	lookup         browser.Lookup
	elementText    string
	elementTextErr error
	elementShotErr error
	pageHTML       string
	responses      []browser.Response
	blockNavigate  bool
	navigateDelay  time.Duration

	navigated []string
	waited    []string
	filter    browser.ResponseFilter
	closes    int
}

func (s *fakeSession) Navigate(ctx context.Context, url string) error {
	s.mu.Lock()
	s.navigated = append(s.navigated, url)
	s.mu.Unlock()
	if s.blockNavigate {
		<-ctx.Done()
		return ctx.Err()
	}
	if s.navigateDelay > 0 {
		time.Sleep(s.navigateDelay)
	}
	return s.navErr
}

func (s *fakeSession) WaitForSelector(_ context.Context, selector string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waited = append(s.waited, selector)
	return s.waitErr
}

func (s *fakeSession) QueryFirst(_ context.Context, selector string) (browser.Lookup, error) {
	if s.lookup == nil {
		return browser.NotFound{Selector: selector}, nil
	}
	return s.lookup, nil
}

func (s *fakeSession) ElementText(context.Context, browser.Found) (string, error) {
	return s.elementText, s.elementTextErr
}

func (s *fakeSession) PageHTML(context.Context) (string, error) {
	return s.pageHTML, nil
}

func (s *fakeSession) FullScreenshot(context.Context) ([]byte, error) {
	return s.png, nil
}

func (s *fakeSession) ElementScreenshot(context.Context, browser.Found) ([]byte, error) {
	if s.elementShotErr != nil {
		return nil, s.elementShotErr
	}
	return s.png, nil
}

func (s *fakeSession) ObserveResponses(filter browser.ResponseFilter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = filter
}

func (s *fakeSession) Responses() []browser.Response {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []browser.Response
	for _, r := range s.responses {
		if s.filter != nil && s.filter(r) {
			out = append(out, r)
		}
	}
	return out
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

func (s *fakeSession) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

// fakeLauncher hands out sessions built by newSession and tracks how many are
// open at once.
type fakeLauncher struct {
	mu         sync.Mutex
	newSession func() *fakeSession
	openErr    error
	sessions   []*fakeSession
	opened     []browser.Options
	open       int
	maxOpen    int
}

func (l *fakeLauncher) Open(_ context.Context, opts browser.Options) (browser.Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.opened = append(l.opened, opts)
	if l.openErr != nil {
		return nil, l.openErr
	}
	s := l.newSession()
	l.sessions = append(l.sessions, s)
	l.open++
	if l.open > l.maxOpen {
		l.maxOpen = l.open
	}
	return &trackedSession{fakeSession: s, launcher: l}, nil
}

type trackedSession struct {
	*fakeSession
	launcher *fakeLauncher
}

func (s *trackedSession) Close() error {
	s.launcher.mu.Lock()
	s.launcher.open--
	s.launcher.mu.Unlock()
	return s.fakeSession.Close()
}

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) Extract(_ context.Context, img image.Image) (string, error) {
	if _, ok := img.(*image.Gray); !ok {
		return "", nil
	}
	return f.text, f.err
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 8))
	for x := 0; x < 16; x++ {
		img.Set(x, 4, color.RGBA{R: 200, G: 40, B: 40, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, preprocess.EncodePNG(&buf, img))
	return buf.Bytes()
}

type harness struct {
	layout    artifact.Layout
	launcher  *fakeLauncher
	extractor *fakeExtractor
	metrics   *monitoring.Metrics
	service   *Service
}

func newHarness(t *testing.T, newSession func() *fakeSession, text string) *harness {
	t.Helper()
	root := t.TempDir()
	h := &harness{
		layout: artifact.Layout{
			InstagramDir: root + "/static/images",
			TweetDir:     root + "/static/tweet_screenshots",
			TextDir:      root + "/static/tweet_texts",
		},
		launcher:  &fakeLauncher{newSession: newSession},
		extractor: &fakeExtractor{text: text},
		metrics:   monitoring.NewMetrics(prometheus.NewRegistry()),
	}

	opts := Options{
		Layout:      h.layout,
		Post:        PostOptions{Selector: "article", WaitTimeout: time.Second},
		Profile:     ProfileOptions{Selector: "[data-testid='primaryColumn']", ItemSelector: `[data-testid="tweet"]`, WaitTimeout: time.Second},
		Timeout:     5 * time.Second,
		MaxSessions: 2,
	}
	svc, err := NewService(opts, Deps{
		Launcher:  h.launcher,
		Locker:    artifact.NewKeyedMutex(),
		Extractor: h.extractor,
		Scorer:    sentiment.New(),
		Metrics:   h.metrics,
		Logger:    zap.NewNop(),
	})
	require.NoError(t, err)
	h.service = svc
	return h
}

func (h *harness) session(t *testing.T) *fakeSession {
	t.Helper()
	h.launcher.mu.Lock()
	defer h.launcher.mu.Unlock()
	require.Len(t, h.launcher.sessions, 1)
	return h.launcher.sessions[0]
}
