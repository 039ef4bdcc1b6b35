package capture

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/user/capture-service/internal/artifact"
	"github.com/user/capture-service/internal/browser"
	"github.com/user/capture-service/internal/config"
	"github.com/user/capture-service/internal/domain"
	"github.com/user/capture-service/internal/monitoring"
	"github.com/user/capture-service/internal/ocr"
)

// Options configures a Service.
type Options struct {
	Layout      artifact.Layout
	Post        PostOptions
	Profile     ProfileOptions
	Timeout     time.Duration
	MaxSessions int
}

// OptionsFromConfig maps application configuration onto pipeline options.
func OptionsFromConfig(cfg *config.Config) Options {
	viewport := browser.Options{
		Width:    cfg.ViewportWidth,
		Height:   cfg.ViewportHeight,
		ExecPath: cfg.ChromePath,
	}
	post, profile := viewport, viewport
	post.Headless = cfg.PostHeadless
	profile.Headless = cfg.ProfileHeadless

	return Options{
		Layout: artifact.Layout{
			InstagramDir: cfg.InstagramDir,
			TweetDir:     cfg.TweetDir,
			TextDir:      cfg.TextDir,
		},
		Post: PostOptions{
			Browser:     post,
			Selector:    cfg.PostSelector,
			WaitTimeout: cfg.PostWaitTimeout(),
			Settle:      cfg.PostSettle(),
		},
		Profile: ProfileOptions{
			Browser:      profile,
			Selector:     cfg.ProfileSelector,
			ItemSelector: cfg.ProfileItemSelector,
			WaitTimeout:  cfg.ProfileWaitTimeout(),
			Settle:       cfg.ProfileSettle(),
		},
		Timeout:     cfg.CaptureTimeout(),
		MaxSessions: cfg.MaxSessions,
	}
}

// Deps are the collaborators shared by both pipelines.
type Deps struct {
	Launcher   browser.Launcher
	Locker     artifact.Locker
	Extractor  ocr.Extractor
	Scorer     Scorer
	Stabilizer Stabilizer // nil uses FixedDelay
	Metrics    *monitoring.Metrics
	Logger     *zap.Logger
}

type pipeline interface {
	Run(ctx context.Context, rawURL string) (domain.CaptureResult, error)
}

// Service is the entry point for the front end: it validates requests, caps
// concurrent browser sessions, applies the outer deadline and dispatches to the
// pipeline for the request's kind.
type Service struct {
	pipelines map[domain.Kind]pipeline
	sem       *semaphore.Weighted
	timeout   time.Duration
	metrics   *monitoring.Metrics
	logger    *zap.Logger
}

// NewService creates the artifact directories and wires both pipelines.
func NewService(opts Options, deps Deps) (*Service, error) {
	if err := opts.Layout.Ensure(); err != nil {
		return nil, err
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = 1
	}
	if deps.Stabilizer == nil {
		deps.Stabilizer = FixedDelay{}
	}

	post := &PostPipeline{
		launcher:   deps.Launcher,
		opts:       opts.Post,
		layout:     opts.Layout,
		locker:     deps.Locker,
		extractor:  deps.Extractor,
		scorer:     deps.Scorer,
		stabilizer: deps.Stabilizer,
		logger:     deps.Logger,
	}
	profile := &ProfilePipeline{
		launcher:   deps.Launcher,
		opts:       opts.Profile,
		layout:     opts.Layout,
		locker:     deps.Locker,
		stabilizer: deps.Stabilizer,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
	}

	return &Service{
		pipelines: map[domain.Kind]pipeline{
			domain.KindPost:    post,
			domain.KindProfile: profile,
		},
		sem:     semaphore.NewWeighted(int64(opts.MaxSessions)),
		timeout: opts.Timeout,
		metrics: deps.Metrics,
		logger:  deps.Logger,
	}, nil
}

// Capture runs one capture to completion. Errors wrap a domain sentinel; use
// domain.UserMessage to render them.
func (s *Service) Capture(ctx context.Context, req domain.CaptureRequest) (domain.CaptureResult, error) {
	start := time.Now()
	kind, ok := domain.ParseKind(string(req.Kind))
	label := string(kind)
	if !ok {
		label = "invalid"
	}

	res, err := s.capture(ctx, req, kind)

	elapsed := time.Since(start)
	s.metrics.ObserveCapture(label, domain.Class(err), elapsed.Seconds())
	fields := []zap.Field{
		zap.String("kind", label),
		zap.String("url", req.URL),
		zap.Duration("elapsed", elapsed),
	}
	if err != nil {
		s.logger.Warn("capture failed", append(fields, zap.String("class", domain.Class(err)), zap.Error(err))...)
		return res, err
	}
	s.logger.Info("capture completed", append(fields, zap.String("identifier", res.Identifier))...)
	return res, nil
}

func (s *Service) capture(ctx context.Context, req domain.CaptureRequest, kind domain.Kind) (domain.CaptureResult, error) {
	if err := req.Validate(); err != nil {
		return domain.CaptureResult{Kind: kind}, err
	}
	rawURL := strings.TrimSpace(req.URL)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return domain.CaptureResult{Kind: kind}, s.deadline(ctx, err)
	}
	defer s.sem.Release(1)

	res, err := s.pipelines[kind].Run(ctx, rawURL)
	if err != nil {
		return res, s.deadline(ctx, err)
	}
	return res, nil
}

// deadline reclassifies failures caused by the outer deadline.
func (s *Service) deadline(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, domain.ErrNoTextFound) {
		return eris.Wrapf(domain.ErrCaptureTimeout, "after %s: %v", s.timeout, err)
	}
	return err
}
