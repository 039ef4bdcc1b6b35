package screenshot

import (
	"context"
	"image"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/user/capture-service/internal/browser"
	"github.com/user/capture-service/internal/domain"
	"github.com/user/capture-service/internal/preprocess"
)

// Page is the part of a browser session that can render screenshots.
type Page interface {
	FullScreenshot(ctx context.Context) ([]byte, error)
	ElementScreenshot(ctx context.Context, el browser.Found) ([]byte, error)
}

// CaptureFullPage renders the whole page to dest and returns the decoded image.
func CaptureFullPage(ctx context.Context, p Page, dest string) (image.Image, error) {
	data, err := p.FullScreenshot(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "screenshot: full page")
	}
	return save(data, dest)
}

// CaptureElement renders a single element to dest. A NotFound lookup fails with
// domain.ErrElementNotFound so callers can fall back to CaptureFullPage.
func CaptureElement(ctx context.Context, p Page, el browser.Lookup, dest string) (image.Image, error) {
	found, ok := el.(browser.Found)
	if !ok || found.Node == nil {
		return nil, eris.Wrapf(domain.ErrElementNotFound, "screenshot: element for %s", dest)
	}
	data, err := p.ElementScreenshot(ctx, found)
	if err != nil {
		return nil, eris.Wrapf(err, "screenshot: element %q", found.Selector)
	}
	return save(data, dest)
}

// save validates data as an image before it touches the filesystem, so a file
// at dest always decodes.
func save(data []byte, dest string) (image.Image, error) {
	img, err := preprocess.Decode(data)
	if err != nil {
		return nil, eris.Wrapf(err, "screenshot: invalid image for %s", dest)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, eris.Wrapf(domain.ErrFilesystem, "screenshot: mkdir %s: %v", filepath.Dir(dest), err)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return nil, eris.Wrapf(domain.ErrFilesystem, "screenshot: write %s: %v", dest, err)
	}
	return img, nil
}
