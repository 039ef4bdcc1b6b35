package ocr

import (
	"bytes"
	"context"
	"image"
	"os"
	"os/exec"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/user/capture-service/internal/domain"
	"github.com/user/capture-service/internal/preprocess"
)

// Recognition settings are fixed: a single uniform block of text (caption-sized
// regions, no full-page layout analysis) and the engine's best available model.
const (
	PageSegmentationMode = "6"
	EngineMode           = "3"
)

// Extractor converts an image into text.
type Extractor interface {
	Extract(ctx context.Context, img image.Image) (string, error)
}

// Tesseract extracts text by running the tesseract CLI.
type Tesseract struct {
	binPath string
}

// NewTesseract creates a Tesseract extractor. If binPath is empty, "tesseract" is used.
func NewTesseract(binPath string) *Tesseract {
	if binPath == "" {
		binPath = "tesseract"
	}
	return &Tesseract{binPath: binPath}
}

// Extract writes img to a temporary PNG, runs recognition on it and returns the
// trimmed output. An empty string is a valid result.
func (t *Tesseract) Extract(ctx context.Context, img image.Image) (string, error) {
	tmp, err := os.CreateTemp("", "ocr-*.png")
	if err != nil {
		return "", eris.Wrapf(domain.ErrFilesystem, "ocr: create temp file: %v", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if err := preprocess.EncodePNG(tmp, img); err != nil {
		tmp.Close() //nolint:errcheck
		return "", eris.Wrap(err, "ocr: write temp image")
	}
	if err := tmp.Close(); err != nil {
		return "", eris.Wrapf(domain.ErrFilesystem, "ocr: close temp file: %v", err)
	}

	return t.ExtractFile(ctx, tmp.Name())
}

// ExtractFile runs recognition on an image already on disk.
func (t *Tesseract) ExtractFile(ctx context.Context, path string) (string, error) {
	cmd := exec.CommandContext(ctx, t.binPath, path, "stdout",
		"--oem", EngineMode,
		"--psm", PageSegmentationMode,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", eris.Wrapf(domain.ErrOCR, "ocr: tesseract failed for %s: %v: %s", path, err, strings.TrimSpace(stderr.String()))
	}

	return strings.TrimSpace(stdout.String()), nil
}
