package capture

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/user/capture-service/internal/artifact"
	"github.com/user/capture-service/internal/browser"
	"github.com/user/capture-service/internal/domain"
	"github.com/user/capture-service/internal/ocr"
	"github.com/user/capture-service/internal/preprocess"
	"github.com/user/capture-service/internal/screenshot"
)

// PostOptions configures the single-post pipeline.
type PostOptions struct {
	Browser     browser.Options
	Selector    string
	WaitTimeout time.Duration
	Settle      time.Duration
}

// Scorer computes a polarity in [-1, 1].
type Scorer interface {
	Polarity(text string) float64
}

// PostPipeline screenshots a single post, reads its text through OCR and
// scores the text.
type PostPipeline struct {
	launcher   browser.Launcher
	opts       PostOptions
	layout     artifact.Layout
	locker     artifact.Locker
	extractor  ocr.Extractor
	scorer     Scorer
	stabilizer Stabilizer
	logger     *zap.Logger
}

// Run captures the post at rawURL. The browser session is closed on every path.
func (p *PostPipeline) Run(ctx context.Context, rawURL string) (domain.CaptureResult, error) {
	res := domain.CaptureResult{Kind: domain.KindPost}

	id, err := ParseIdentifier(rawURL)
	if err != nil {
		return res, err
	}
	res.Identifier = id
	logger := p.logger.With(zap.String("kind", string(domain.KindPost)), zap.String("identifier", id))

	session, err := p.launcher.Open(ctx, p.opts.Browser)
	if err != nil {
		return res, err
	}
	defer closeSession(session, logger)

	if err := session.Navigate(ctx, rawURL); err != nil {
		return res, err
	}
	if err := session.WaitForSelector(ctx, p.opts.Selector, p.opts.WaitTimeout); err != nil {
		return res, err
	}
	if err := p.stabilizer.Settle(ctx, p.opts.Settle); err != nil {
		return res, eris.Wrap(err, "settle")
	}

	dest := p.layout.PostScreenshot(id)
	unlock, err := p.locker.Lock(ctx, artifact.LockKey(domain.KindPost, id))
	if err != nil {
		return res, err
	}
	img, err := screenshot.CaptureFullPage(ctx, session, dest)
	unlock()
	if err != nil {
		return res, err
	}
	res.ScreenshotPath = dest
	logger.Debug("post screenshot saved", zap.String("path", dest))

	text, err := p.extractor.Extract(ctx, preprocess.Normalize(img))
	if err != nil {
		return res, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return res, eris.Wrapf(domain.ErrNoTextFound, "post %s", id)
	}
	res.ExtractedText = text

	score := p.scorer.Polarity(text)
	res.Sentiment = &score
	res.CapturedAt = time.Now().UTC()
	return res, nil
}

// closeSession is deferred by every pipeline right after a successful Open.
func closeSession(s browser.Session, logger *zap.Logger) {
	if err := s.Close(); err != nil {
		logger.Warn("failed to close browser session", zap.Error(err))
	}
}
