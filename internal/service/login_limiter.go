package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/lab-issue-tracker/pkg/errors"
)

type attemptStore interface {
	Enabled() bool
	Count(ctx context.Context, subject string) (int, error)
	Increment(ctx context.Context, subject string, window time.Duration) (int, error)
	Reset(ctx context.Context, subject string) error
}

// LoginLimiterConfig bounds failed logins per email within a window.
type LoginLimiterConfig struct {
	MaxAttempts int
	Window      time.Duration
}

// LoginLimiter blocks an email after too many failed logins. Store failures never block a
// login; they are logged and the attempt proceeds.
type LoginLimiter struct {
	store  attemptStore
	config LoginLimiterConfig
	logger *zap.Logger
}

// NewLoginLimiter constructs a LoginLimiter.
func NewLoginLimiter(store attemptStore, config LoginLimiterConfig, logger *zap.Logger) *LoginLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 5
	}
	if config.Window <= 0 {
		config.Window = 15 * time.Minute
	}
	return &LoginLimiter{store: store, config: config, logger: logger}
}

func (l *LoginLimiter) enabled() bool {
	return l != nil && l.store != nil && l.store.Enabled()
}

// Allow returns ErrTooManyRequests when email has exhausted its attempts.
func (l *LoginLimiter) Allow(ctx context.Context, email string) error {
	if !l.enabled() {
		return nil
	}
	count, err := l.store.Count(ctx, normaliseSubject(email))
	if err != nil {
		l.logger.Warn("login limiter unavailable", zap.Error(err))
		return nil
	}
	if count >= l.config.MaxAttempts {
		return appErrors.Clone(appErrors.ErrTooManyRequests, "too many login attempts, try again later")
	}
	return nil
}

// RecordFailure counts a failed login for email.
func (l *LoginLimiter) RecordFailure(ctx context.Context, email string) {
	if !l.enabled() {
		return
	}
	if _, err := l.store.Increment(ctx, normaliseSubject(email), l.config.Window); err != nil {
		l.logger.Warn("failed to record login failure", zap.Error(err))
	}
}

// Reset clears the counter after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, email string) {
	if !l.enabled() {
		return
	}
	if err := l.store.Reset(ctx, normaliseSubject(email)); err != nil {
		l.logger.Warn("failed to reset login attempts", zap.Error(err))
	}
}

func normaliseSubject(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
