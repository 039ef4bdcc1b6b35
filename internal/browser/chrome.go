package browser

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/user/capture-service/internal/domain"
)

// ChromeLauncher starts a fresh Chrome/Chromium process per session.
type ChromeLauncher struct {
	logger *zap.Logger
}

// NewChromeLauncher creates a launcher backed by chromedp's exec allocator.
func NewChromeLauncher(logger *zap.Logger) *ChromeLauncher {
	return &ChromeLauncher{logger: logger}
}

// Open launches the browser and opens a single page with the requested viewport.
// The browser process belongs to the returned session, not to ctx: ctx only
// bounds the launch itself. The caller must Close the session.
func (l *ChromeLauncher) Open(ctx context.Context, opts Options) (Session, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(opts.Width, opts.Height),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	sugar := l.logger.Sugar()
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Debugf),
	)

	s := &chromeSession{
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
		logger:      l.logger,
	}

	// The first Run allocates the browser and must use the tab context itself;
	// a derived deadline would kill the process when it fires.
	stop := context.AfterFunc(ctx, tabCancel)
	err := chromedp.Run(tabCtx,
		network.Enable(),
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
	)
	stop()
	if err != nil {
		_ = s.Close()
		return nil, eris.Wrapf(domain.ErrBrowserLaunch, "start browser: %v", err)
	}

	chromedp.ListenTarget(tabCtx, s.onEvent)
	l.logger.Debug("browser session opened",
		zap.Bool("headless", opts.Headless),
		zap.Int("width", opts.Width),
		zap.Int("height", opts.Height),
	)
	return s, nil
}

type chromeSession struct {
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
	logger      *zap.Logger

	responses responseLog

	closeOnce sync.Once
	closeErr  error
}

// opContext derives a per-operation context from the tab that is also
// cancelled when the caller's ctx is done.
func (s *chromeSession) opContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	opCtx, cancel := context.WithCancel(s.tabCtx)
	if timeout > 0 {
		var timeoutCancel context.CancelFunc
		opCtx, timeoutCancel = context.WithTimeout(opCtx, timeout)
		parentCancel := cancel
		cancel = func() {
			timeoutCancel()
			parentCancel()
		}
	}
	stop := context.AfterFunc(ctx, cancel)
	return opCtx, func() {
		stop()
		cancel()
	}
}

func (s *chromeSession) Navigate(ctx context.Context, url string) error {
	opCtx, cancel := s.opContext(ctx, 0)
	defer cancel()

	if err := chromedp.Run(opCtx, chromedp.Navigate(url)); err != nil {
		return eris.Wrapf(domain.ErrNavigationTimeout, "navigate to %s: %v", url, err)
	}
	return nil
}

func (s *chromeSession) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	opCtx, cancel := s.opContext(ctx, timeout)
	defer cancel()

	if err := chromedp.Run(opCtx, chromedp.WaitReady(selector, chromedp.ByQuery)); err != nil {
		return eris.Wrapf(domain.ErrNavigationTimeout, "wait for %q (%s): %v", selector, timeout, err)
	}
	return nil
}

func (s *chromeSession) QueryFirst(ctx context.Context, selector string) (Lookup, error) {
	opCtx, cancel := s.opContext(ctx, 0)
	defer cancel()

	var nodes []*cdp.Node
	if err := chromedp.Run(opCtx, chromedp.Nodes(selector, &nodes, chromedp.ByQuery, chromedp.AtLeast(0))); err != nil {
		return nil, eris.Wrapf(err, "query %q", selector)
	}
	if len(nodes) == 0 {
		return NotFound{Selector: selector}, nil
	}
	return Found{Selector: selector, Node: nodes[0]}, nil
}

func (s *chromeSession) ElementText(ctx context.Context, el Found) (string, error) {
	opCtx, cancel := s.opContext(ctx, ElementTimeout)
	defer cancel()

	var text string
	err := chromedp.Run(opCtx, chromedp.TextContent([]cdp.NodeID{el.Node.NodeID}, &text, chromedp.ByNodeID))
	if err != nil {
		return "", elementError(ctx, err, "text content of %q", el.Selector)
	}
	return text, nil
}

func (s *chromeSession) PageHTML(ctx context.Context) (string, error) {
	opCtx, cancel := s.opContext(ctx, 0)
	defer cancel()

	var html string
	if err := chromedp.Run(opCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", eris.Wrap(err, "page html")
	}
	return html, nil
}

func (s *chromeSession) FullScreenshot(ctx context.Context) ([]byte, error) {
	opCtx, cancel := s.opContext(ctx, 0)
	defer cancel()

	var buf []byte
	// quality 100 produces PNG
	if err := chromedp.Run(opCtx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, eris.Wrap(err, "full page screenshot")
	}
	return buf, nil
}

func (s *chromeSession) ElementScreenshot(ctx context.Context, el Found) ([]byte, error) {
	opCtx, cancel := s.opContext(ctx, ElementTimeout)
	defer cancel()

	var buf []byte
	err := chromedp.Run(opCtx, chromedp.Screenshot([]cdp.NodeID{el.Node.NodeID}, &buf, chromedp.ByNodeID))
	if err != nil {
		return nil, elementError(ctx, err, "element screenshot of %q", el.Selector)
	}
	return buf, nil
}

func (s *chromeSession) ObserveResponses(filter ResponseFilter) {
	s.responses.setFilter(filter)
}

func (s *chromeSession) Responses() []Response {
	return s.responses.snapshot()
}

// Close terminates the browser process. It is safe to call more than once.
func (s *chromeSession) Close() error {
	s.closeOnce.Do(func() {
		if err := chromedp.Cancel(s.tabCtx); err != nil && !eris.Is(err, context.Canceled) {
			s.closeErr = eris.Wrap(err, "close browser")
		}
		s.tabCancel()
		s.allocCancel()
	})
	return s.closeErr
}

func (s *chromeSession) onEvent(ev interface{}) {
	switch e := ev.(type) {
	case *network.EventResponseReceived:
		s.responses.record(e)
	}
}
