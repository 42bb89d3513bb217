// Package jobs runs periodic maintenance for the auth tables.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
)

const (
	// Коды подтверждения храним сутки после истечения для разбора инцидентов
	codeRetention = 24 * time.Hour
	jobTimeout    = 30 * time.Second

	defaultInterval = time.Hour
)

// TokenCleaner removes expired and revoked refresh tokens.
type TokenCleaner interface {
	CleanupExpiredTokens(ctx context.Context) (int64, error)
}

// CodePurger removes verification codes expired for longer than retention.
type CodePurger interface {
	PurgeExpired(ctx context.Context, retention time.Duration) (int64, error)
}

// Cleanup schedules the purge jobs.
type Cleanup struct {
	scheduler gocron.Scheduler
}

// NewCleanup registers both jobs. codes may be nil when email verification is off.
func NewCleanup(interval time.Duration, tokens TokenCleaner, codes CodePurger) (*Cleanup, error) {
	if tokens == nil {
		return nil, fmt.Errorf("TokenCleaner is required for cleanup jobs")
	}
	if interval <= 0 {
		interval = defaultInterval
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	if _, err := s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(purgeTokens, tokens),
		gocron.WithName("refresh-token-cleanup"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		return nil, fmt.Errorf("failed to schedule token cleanup: %w", err)
	}

	if codes != nil {
		if _, err := s.NewJob(
			gocron.DurationJob(interval),
			gocron.NewTask(purgeCodes, codes),
			gocron.WithName("verification-code-cleanup"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		); err != nil {
			return nil, fmt.Errorf("failed to schedule verification code cleanup: %w", err)
		}
	}

	return &Cleanup{scheduler: s}, nil
}

func (c *Cleanup) Start() {
	c.scheduler.Start()
	log.Info().Int("jobs", len(c.scheduler.Jobs())).Msg("[Jobs] Cleanup scheduler started")
}

// Shutdown waits for running jobs to finish.
func (c *Cleanup) Shutdown() error {
	return c.scheduler.Shutdown()
}

func purgeTokens(tokens TokenCleaner) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := tokens.CleanupExpiredTokens(ctx)
	if err != nil {
		log.Error().Err(err).Msg("[Jobs] Refresh token cleanup failed")
		return
	}
	if n > 0 {
		log.Info().Int64("removed", n).Msg("[Jobs] Expired refresh tokens removed")
	}
}

func purgeCodes(codes CodePurger) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := codes.PurgeExpired(ctx, codeRetention)
	if err != nil {
		log.Error().Err(err).Msg("[Jobs] Verification code cleanup failed")
		return
	}
	if n > 0 {
		log.Info().Int64("removed", n).Msg("[Jobs] Expired verification codes removed")
	}
}
