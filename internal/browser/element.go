package browser

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/user/capture-service/internal/domain"
)

// ElementTimeout bounds reads of an element that was already found. chromedp
// polls ByNodeID queries until the node is ready (visible, for screenshots), so
// a node that detached after lookup would otherwise block until the caller's
// deadline.
const ElementTimeout = 5 * time.Second

// Messages CDP returns for node ids that no longer resolve.
var missingNodeMessages = []string{
	"no node with given id",
	"could not find node with given id",
	"node is detached from document",
	"node does not have a layout object",
}

// elementError wraps err with domain.ErrElementNotFound when the element is
// gone: its own operation timed out while the caller's ctx is still live, or
// CDP no longer knows the node. Other failures are wrapped as they are.
func elementError(ctx context.Context, err error, format string, args ...interface{}) error {
	if ctx.Err() == nil && (errors.Is(err, context.DeadlineExceeded) || isMissingNode(err)) {
		return eris.Wrapf(domain.ErrElementNotFound, format+": %v", append(args, err)...)
	}
	return eris.Wrapf(err, format, args...)
}

func isMissingNode(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, m := range missingNodeMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
