/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package leadership

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// Runner is a background job that runs until its context is cancelled.
type Runner interface {
	Run(ctx context.Context) error
}

// Elector is the leadership signal a LeaderAware job follows.
type Elector interface {
	IsLeader() bool
	LeaderCh() <-chan bool
}

// LeaderAware runs a job only while this instance is the leader.
type LeaderAware struct {
	job     Runner
	elector Elector
	logger  zerolog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
}

// NewLeaderAware wraps job.
func NewLeaderAware(job Runner, elector Elector, name string, logger zerolog.Logger) *LeaderAware {
	return &LeaderAware{
		job:     job,
		elector: elector,
		logger:  logger.With().Str("component", "leader_aware").Str("job", name).Logger(),
	}
}

// Run follows leadership changes until ctx is done.
func (la *LeaderAware) Run(ctx context.Context) error {
	if la.elector.IsLeader() {
		la.startJob(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			la.stopJob()
			return ctx.Err()
		case leader := <-la.elector.LeaderCh():
			if leader {
				la.logger.Info().Msg("became leader, starting job")
				la.startJob(ctx)
			} else {
				la.logger.Warn().Msg("lost leadership, stopping job")
				la.stopJob()
			}
		}
	}
}

// Running reports whether the wrapped job is active.
func (la *LeaderAware) Running() bool {
	la.mu.Lock()
	defer la.mu.Unlock()
	return la.cancel != nil
}

func (la *LeaderAware) startJob(parent context.Context) {
	la.mu.Lock()
	defer la.mu.Unlock()
	if la.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(parent)
	stopped := make(chan struct{})
	la.cancel = cancel
	la.stopped = stopped

	go func() {
		defer close(stopped)
		if err := la.job.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			la.logger.Error().Err(err).Msg("job failed")
		}
	}()
}

func (la *LeaderAware) stopJob() {
	la.mu.Lock()
	cancel, stopped := la.cancel, la.stopped
	la.cancel, la.stopped = nil, nil
	la.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-stopped
}
