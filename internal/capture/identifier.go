package capture

import (
	"net/url"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/user/capture-service/internal/domain"
)

// ParseIdentifier derives the artifact identifier from a capture URL: the last
// non-empty path segment, so "https://instagram.com/p/ABC123/" gives "ABC123"
// and "https://x.com/handle" gives "handle". Query and fragment are ignored.
func ParseIdentifier(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", eris.Wrapf(domain.ErrInvalidRequest, "parse url %q: %v", rawURL, err)
	}

	segments := strings.Split(u.Path, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		seg := segments[i]
		if seg == "" {
			continue
		}
		if seg == "." || seg == ".." {
			break
		}
		return seg, nil
	}
	return "", eris.Wrapf(domain.ErrInvalidRequest, "no identifier in url %q", rawURL)
}
