package capture

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/user/capture-service/internal/artifact"
	"github.com/user/capture-service/internal/browser"
	"github.com/user/capture-service/internal/domain"
	"github.com/user/capture-service/internal/monitoring"
	"github.com/user/capture-service/internal/screenshot"
)

// ProfileOptions configures the profile pipeline.
type ProfileOptions struct {
	Browser      browser.Options
	Selector     string
	ItemSelector string
	WaitTimeout  time.Duration
	Settle       time.Duration
}

// ProfilePipeline captures the first post of a profile timeline, or the whole
// page when no post element is present.
type ProfilePipeline struct {
	launcher   browser.Launcher
	opts       ProfileOptions
	layout     artifact.Layout
	locker     artifact.Locker
	stabilizer Stabilizer
	metrics    *monitoring.Metrics
	logger     *zap.Logger
}

// Run captures the profile at rawURL. The browser session is closed on every path.
func (p *ProfilePipeline) Run(ctx context.Context, rawURL string) (domain.CaptureResult, error) {
	res := domain.CaptureResult{Kind: domain.KindProfile}

	id, err := ParseIdentifier(rawURL)
	if err != nil {
		return res, err
	}
	res.Identifier = id
	logger := p.logger.With(zap.String("kind", string(domain.KindProfile)), zap.String("identifier", id))

	session, err := p.launcher.Open(ctx, p.opts.Browser)
	if err != nil {
		return res, err
	}
	defer closeSession(session, logger)

	session.ObserveResponses(browser.XHROnly)
	defer func() {
		observed := session.Responses()
		p.metrics.AddXHRObserved(len(observed))
		logger.Debug("xhr responses observed", zap.Int("count", len(observed)))
	}()

	if err := session.Navigate(ctx, rawURL); err != nil {
		return res, err
	}
	if err := session.WaitForSelector(ctx, p.opts.Selector, p.opts.WaitTimeout); err != nil {
		return res, err
	}
	if err := p.stabilizer.Settle(ctx, p.opts.Settle); err != nil {
		return res, eris.Wrap(err, "settle")
	}

	lookup, err := session.QueryFirst(ctx, p.opts.ItemSelector)
	if err != nil {
		return res, err
	}

	unlock, err := p.locker.Lock(ctx, artifact.LockKey(domain.KindProfile, id))
	if err != nil {
		return res, err
	}
	defer unlock()

	var prefix artifact.Prefix
	var text string
	switch el := lookup.(type) {
	case browser.Found:
		prefix = artifact.PrefixTweet
		text, err = p.captureItem(ctx, session, el, id)
		if errors.Is(err, domain.ErrElementNotFound) {
			logger.Info("post element vanished, falling back to full page", zap.Error(err))
			prefix = artifact.PrefixPage
			text, err = p.captureFallback(ctx, session, id)
		}
	case browser.NotFound:
		logger.Info("no post element, falling back to full page", zap.String("selector", el.Selector))
		prefix = artifact.PrefixPage
		text, err = p.captureFallback(ctx, session, id)
	}
	if err != nil {
		return res, err
	}
	if prefix == artifact.PrefixPage {
		p.metrics.IncFallback()
	}

	res.ExtractedText = text
	res.ScreenshotPath = p.layout.ProfileScreenshot(prefix, id)
	res.TextFilePath = p.layout.ProfileText(prefix, id)
	res.CapturedAt = time.Now().UTC()
	logger.Debug("profile artifacts saved",
		zap.String("screenshot", res.ScreenshotPath),
		zap.String("text", res.TextFilePath),
	)
	return res, nil
}

// captureItem writes tweet_ artifacts. Nothing is written before the element
// screenshot succeeds, so a fallback never leaves mixed naming schemes.
func (p *ProfilePipeline) captureItem(ctx context.Context, s browser.Session, el browser.Found, id string) (string, error) {
	raw, err := s.ElementText(ctx, el)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(raw)

	if _, err := screenshot.CaptureElement(ctx, s, el, p.layout.ProfileScreenshot(artifact.PrefixTweet, id)); err != nil {
		return "", err
	}
	if err := artifact.WriteText(p.layout.ProfileText(artifact.PrefixTweet, id), text); err != nil {
		return "", err
	}
	return text, nil
}

func (p *ProfilePipeline) captureFallback(ctx context.Context, s browser.Session, id string) (string, error) {
	if _, err := screenshot.CaptureFullPage(ctx, s, p.layout.ProfileScreenshot(artifact.PrefixPage, id)); err != nil {
		return "", err
	}
	html, err := s.PageHTML(ctx)
	if err != nil {
		return "", err
	}
	text, err := ExtractPageText(html)
	if err != nil {
		return "", err
	}
	if err := artifact.WriteText(p.layout.ProfileText(artifact.PrefixPage, id), text); err != nil {
		return "", err
	}
	return text, nil
}
