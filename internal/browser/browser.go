// Package browser owns the external browser process used by the capture
// pipelines: launch, navigation, selector waits, element lookup, screenshots
// and background response observation.
package browser

import (
	"context"
	"time"

	"github.com/chromedp/cdproto/cdp"
)

// Options configures a single browser session.
type Options struct {
	Width    int
	Height   int
	Headless bool
	ExecPath string // empty uses the allocator's default lookup
}

// Launcher starts browser sessions. Every session it returns must be closed.
type Launcher interface {
	Open(ctx context.Context, opts Options) (Session, error)
}

// Session is one browser with one page, alive for the duration of one capture.
type Session interface {
	Navigate(ctx context.Context, url string) error
	// WaitForSelector blocks until selector is present or timeout elapses.
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error
	// QueryFirst looks the selector up once, without waiting.
	QueryFirst(ctx context.Context, selector string) (Lookup, error)
	ElementText(ctx context.Context, el Found) (string, error)
	PageHTML(ctx context.Context) (string, error)
	FullScreenshot(ctx context.Context) ([]byte, error)
	ElementScreenshot(ctx context.Context, el Found) ([]byte, error)
	// ObserveResponses records every response matching filter from now on.
	ObserveResponses(filter ResponseFilter)
	Responses() []Response
	Close() error
}

// Lookup is the outcome of QueryFirst: either Found or NotFound.
type Lookup interface {
	lookup()
}

// Found is a located element.
type Found struct {
	Selector string
	Node     *cdp.Node
}

// NotFound records that nothing matched Selector.
type NotFound struct {
	Selector string
}

func (Found) lookup()    {}
func (NotFound) lookup() {}
