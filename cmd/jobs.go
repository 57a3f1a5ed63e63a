package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"vigil/internal/jobs"
	"vigil/internal/service"
	"vigil/pkg/lock"
	"vigil/pkg/logger"
)

func (app *Application) initJobs() error {
	if app.sweeperService == nil {
		logger.WarnCtx(app.ctx, "Service layer not fully initialized yet, skipping background task registration")
		return nil
	}

	manager := jobs.NewManager(app.ctx)

	// One sweeper across all replicas. Without Redis the lock degrades to
	// single-instance mode and every replica sweeps, which is safe but noisy.
	var redisClient *redis.Client
	if app.redisClient != nil {
		redisClient = app.redisClient.GetClient()
	}
	sweepLock := lock.NewRedisDistributedLock(redisClient, "sweep:staleness-lock")

	manager.Register(newStalenessSweepJob(
		app.config.Monitor.SweepInterval(),
		app.config.Monitor.FailureBackoff(),
		app.sweeperService,
		sweepLock,
	))

	app.jobsManager = manager
	return nil
}

// stalenessSweepJob periodically escalates instances that stopped heartbeating.
type stalenessSweepJob struct {
	interval        time.Duration
	backoff         time.Duration
	sweeperService  *service.SweeperService
	distributedLock lock.DistributedLock
}

func newStalenessSweepJob(interval, backoff time.Duration, svc *service.SweeperService, distributedLock lock.DistributedLock) jobs.Job {
	return &stalenessSweepJob{
		interval:        interval,
		backoff:         backoff,
		sweeperService:  svc,
		distributedLock: distributedLock,
	}
}

func (j *stalenessSweepJob) Name() string {
	return "staleness-sweep"
}

func (j *stalenessSweepJob) Interval() time.Duration {
	return j.interval
}

// Backoff shortens the wait after a failed cycle so a transient store outage
// does not cost a whole sweep interval.
func (j *stalenessSweepJob) Backoff() time.Duration {
	return j.backoff
}

func (j *stalenessSweepJob) Run(ctx context.Context) error {
	if j.sweeperService == nil {
		return fmt.Errorf("sweeper service not configured")
	}

	// Try to acquire distributed lock
	if j.distributedLock != nil {
		acquired, err := j.distributedLock.TryLock(ctx)
		if err != nil || !acquired {
			logger.DebugCtx(ctx, "another instance is running the staleness sweep, skipping this cycle")
			return nil
		}
		defer j.distributedLock.Unlock(ctx)
	}

	logger.DebugCtx(ctx, "running staleness sweep job")
	return j.sweeperService.SweepOnce(ctx)
}
