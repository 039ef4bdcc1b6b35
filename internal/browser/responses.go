package browser

import (
	"sync"

	"github.com/chromedp/cdproto/network"
)

// Response is a network response seen by the page.
type Response struct {
	RequestID    string
	URL          string
	Status       int64
	MIMEType     string
	ResourceType string
}

// ResponseFilter decides which responses are recorded.
type ResponseFilter func(Response) bool

// XHROnly keeps background XMLHttpRequest responses.
func XHROnly(r Response) bool {
	return r.ResourceType == string(network.ResourceTypeXHR)
}

// responseLog is safe for use from the CDP event goroutine.
type responseLog struct {
	mu        sync.Mutex
	filter    ResponseFilter
	responses []Response
}

func (l *responseLog) setFilter(f ResponseFilter) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.filter = f
}

func (l *responseLog) record(ev *network.EventResponseReceived) {
	if ev == nil || ev.Response == nil {
		return
	}
	r := Response{
		RequestID:    string(ev.RequestID),
		URL:          ev.Response.URL,
		Status:       ev.Response.Status,
		MIMEType:     ev.Response.MimeType,
		ResourceType: string(ev.Type),
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.filter == nil || !l.filter(r) {
		return
	}
	l.responses = append(l.responses, r)
}

func (l *responseLog) snapshot() []Response {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Response, len(l.responses))
	copy(out, l.responses)
	return out
}
