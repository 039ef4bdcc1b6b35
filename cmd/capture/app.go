package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/user/capture-service/internal/artifact"
	"github.com/user/capture-service/internal/browser"
	"github.com/user/capture-service/internal/capture"
	"github.com/user/capture-service/internal/config"
	"github.com/user/capture-service/internal/monitoring"
	"github.com/user/capture-service/internal/ocr"
	"github.com/user/capture-service/internal/sentiment"
	"github.com/user/capture-service/internal/storage"
)

// app is everything a command needs to run captures.
type app struct {
	service *capture.Service
	layout  artifact.Layout
	redis   *storage.RedisLocker // nil without REDIS_ADDR
	metrics *monitoring.Metrics
}

func newApp(ctx context.Context, cfg *config.Config, reg prometheus.Registerer, l *zap.Logger) (*app, error) {
	a := &app{metrics: monitoring.NewMetrics(reg)}

	var locker artifact.Locker = artifact.NewKeyedMutex()
	if cfg.RedisAddr != "" {
		rs := storage.NewRedisLocker(cfg.RedisAddr, cfg.LockTTL(), l)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rs.Ping(pingCtx); err != nil {
			_ = rs.Close()
			return nil, eris.Wrapf(err, "connect to redis at %s", cfg.RedisAddr)
		}
		a.redis = rs
		locker = rs
		l.Info("using redis artifact lock", zap.String("addr", cfg.RedisAddr))
	}

	opts := capture.OptionsFromConfig(cfg)
	a.layout = opts.Layout
	svc, err := capture.NewService(opts, capture.Deps{
		Launcher:  browser.NewChromeLauncher(l),
		Locker:    locker,
		Extractor: ocr.NewTesseract(cfg.TesseractPath),
		Scorer:    sentiment.New(),
		Metrics:   a.metrics,
		Logger:    l,
	})
	if err != nil {
		a.close()
		return nil, err
	}
	a.service = svc
	return a, nil
}

func (a *app) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
