package domain

import (
	"errors"

	"github.com/rotisserie/eris"
)

var (
	ErrInvalidRequest    = eris.New("invalid capture request")
	ErrNavigationTimeout = eris.New("navigation timeout")
	ErrElementNotFound   = eris.New("element not found")
	ErrNoTextFound       = eris.New("no text found in the screenshot")
	ErrBrowserLaunch     = eris.New("browser launch failure")
	ErrFilesystem        = eris.New("filesystem error")
	ErrOCR               = eris.New("text recognition failed")
	ErrCaptureTimeout    = eris.New("capture deadline exceeded")
)

// Class returns a short label for the error kind, used for metrics and logs.
func Class(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrNavigationTimeout):
		return "navigation_timeout"
	case errors.Is(err, ErrElementNotFound):
		return "element_not_found"
	case errors.Is(err, ErrNoTextFound):
		return "no_text"
	case errors.Is(err, ErrBrowserLaunch):
		return "browser_launch"
	case errors.Is(err, ErrFilesystem):
		return "filesystem"
	case errors.Is(err, ErrOCR):
		return "ocr"
	case errors.Is(err, ErrCaptureTimeout):
		return "timeout"
	}
	return "unknown"
}

// UserMessage converts a pipeline failure into the single line shown to a user.
func UserMessage(kind Kind, err error) string {
	subject := "the page"
	switch kind {
	case KindPost:
		subject = "the Instagram post"
	case KindProfile:
		subject = "the X.com profile"
	}

	var detail string
	switch Class(err) {
	case "invalid_request":
		if kind == KindProfile {
			return "Please provide an X.com profile URL."
		}
		return "Please provide an Instagram post URL."
	case "navigation_timeout":
		detail = "the page did not finish loading in time"
	case "no_text":
		detail = "No text found in the screenshot!"
	case "browser_launch":
		detail = "the browser could not be started"
	case "filesystem":
		detail = "the capture could not be saved"
	case "ocr":
		detail = "text recognition failed"
	case "timeout":
		detail = "the capture took too long"
	default:
		detail = "an unexpected error occurred"
	}
	return "Error processing " + subject + ": " + detail
}
