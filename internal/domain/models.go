package domain

import (
	"strings"
	"time"
)

// Kind selects which capture pipeline handles a request.
type Kind string

const (
	KindPost    Kind = "post"
	KindProfile Kind = "profile"
)

// ParseKind accepts the API spelling of a kind ("post", "profile", case-insensitive).
func ParseKind(s string) (Kind, bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindPost:
		return KindPost, true
	case KindProfile:
		return KindProfile, true
	}
	return "", false
}

// CaptureRequest is the payload for the API
type CaptureRequest struct {
	URL  string `json:"url"`
	Kind Kind   `json:"kind"`
}

// Validate checks the request invariants: a non-empty URL and a known kind.
func (r CaptureRequest) Validate() error {
	if strings.TrimSpace(r.URL) == "" {
		return ErrInvalidRequest
	}
	if _, ok := ParseKind(string(r.Kind)); !ok {
		return ErrInvalidRequest
	}
	return nil
}

// CaptureResult is produced by exactly one pipeline and handed to the caller by value.
// Sentiment is nil for profile captures; TextFilePath is empty for post captures.
type CaptureResult struct {
	Kind           Kind      `json:"kind"`
	Identifier     string    `json:"identifier"`
	ExtractedText  string    `json:"extracted_text"`
	Sentiment      *float64  `json:"sentiment,omitempty"`
	ScreenshotPath string    `json:"screenshot_path"`
	TextFilePath   string    `json:"text_file_path,omitempty"`
	CapturedAt     time.Time `json:"captured_at"`
}
