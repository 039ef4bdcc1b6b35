package artifact

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/user/capture-service/internal/domain"
)

// Prefix names the artifact scheme a capture used.
type Prefix string

const (
	PrefixPost  Prefix = "post"
	PrefixTweet Prefix = "tweet"
	PrefixPage  Prefix = "page"
)

// Layout resolves artifact paths. The paths are read by other components
// (downloads, exports), so the naming is fixed: {dir}/{prefix}_{identifier}.{ext}.
type Layout struct {
	InstagramDir string
	TweetDir     string
	TextDir      string
}

// Ensure creates every artifact directory.
func (l Layout) Ensure() error {
	for _, dir := range []string{l.InstagramDir, l.TweetDir, l.TextDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(domain.ErrFilesystem, "artifact: mkdir %s: %v", dir, err)
		}
	}
	return nil
}

func (l Layout) PostScreenshot(identifier string) string {
	return filepath.Join(l.InstagramDir, fileName(PrefixPost, identifier, "png"))
}

func (l Layout) ProfileScreenshot(prefix Prefix, identifier string) string {
	return filepath.Join(l.TweetDir, fileName(prefix, identifier, "png"))
}

func (l Layout) ProfileText(prefix Prefix, identifier string) string {
	return filepath.Join(l.TextDir, fileName(prefix, identifier, "txt"))
}

// ImageDirs lists the directories screenshots may live in, in lookup order.
func (l Layout) ImageDirs() []string {
	return []string{l.InstagramDir, l.TweetDir}
}

func fileName(prefix Prefix, identifier, ext string) string {
	return fmt.Sprintf("%s_%s.%s", prefix, identifier, ext)
}

// LockKey names the lock guarding every artifact of one (kind, identifier).
func LockKey(kind domain.Kind, identifier string) string {
	return fmt.Sprintf("capture:%s:%s", kind, identifier)
}

// WriteText writes UTF-8 text to path, creating the parent directory.
func WriteText(path, text string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(domain.ErrFilesystem, "artifact: mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return eris.Wrapf(domain.ErrFilesystem, "artifact: write %s: %v", path, err)
	}
	return nil
}
