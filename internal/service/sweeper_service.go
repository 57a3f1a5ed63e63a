package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vigil/internal/model"
	"vigil/pkg/interfaces"
	"vigil/pkg/logger"
)

// SweeperService escalates running instances that have gone silent. Each
// sweep warns a stale instance at most maxNotifications-1 times, then marks
// it crashed on the cycle that would reach the cap.
type SweeperService struct {
	store            interfaces.InstanceStore
	sink             interfaces.AlertSink
	threshold        time.Duration
	maxNotifications int
}

// NewSweeperService creates a new sweeper service
func NewSweeperService(store interfaces.InstanceStore, sink interfaces.AlertSink, threshold time.Duration, maxNotifications int) *SweeperService {
	return &SweeperService{
		store:            store,
		sink:             sink,
		threshold:        threshold,
		maxNotifications: maxNotifications,
	}
}

// SweepOnce runs a single sweep cycle. The returned error covers only the
// candidate query; escalation failures are logged per instance and never
// abort the rest of the batch.
func (s *SweeperService) SweepOnce(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-s.threshold)

	candidates, err := s.store.FindStale(ctx, cutoff, s.maxNotifications)
	if err != nil {
		return fmt.Errorf("failed to query stale instances: %w", err)
	}

	if len(candidates) == 0 {
		logger.DebugCtx(ctx, "sweep cycle completed, no stale instances")
		return nil
	}

	logger.InfoCtx(ctx, "sweep cycle found %d stale instance(s)", len(candidates))

	for _, inst := range candidates {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.escalate(ctx, inst); err != nil {
			logger.ErrorCtx(ctx, "failed to escalate stale instance, instance_id: %s, error: %v",
				inst.InstanceID, err)
		}
	}

	return nil
}

// escalate advances one stale instance a single step: warn and increment the
// counter, or mark crashed when this step would bring the counter to the cap.
// The store write lands before the alert goes out, so a failed send can never
// cause a duplicate warning on the next cycle.
func (s *SweeperService) escalate(ctx context.Context, inst *model.Instance) error {
	next := inst.NotificationCount + 1
	now := time.Now().UTC()

	if next >= s.maxNotifications {
		err := s.store.MarkCrashed(ctx, inst.InstanceID, "no heartbeat received", now)
		if errors.Is(err, model.ErrNotFound) {
			// Reactivated between the query and this write; the row now
			// belongs to a different instance_id and is no longer stale.
			logger.DebugCtx(ctx, "instance reactivated mid-sweep, skipping, instance_id: %s", inst.InstanceID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to mark instance crashed: %w", err)
		}

		logger.WarnCtx(ctx, "instance marked as crashed after %d warnings, instance_id: %s, logical_key: %s",
			inst.NotificationCount, inst.InstanceID, inst.LogicalKey)

		sendAlert(ctx, s.sink, fmt.Sprintf("🔴 Instance %s (key: %s) on %s marked as crashed - no heartbeat received",
			inst.InstanceID, inst.LogicalKey, inst.HostLabel), interfaces.SeverityCritical)

		return nil
	}

	err := s.store.IncrementNotificationCount(ctx, inst.InstanceID)
	if errors.Is(err, model.ErrNotFound) {
		logger.DebugCtx(ctx, "instance reactivated mid-sweep, skipping, instance_id: %s", inst.InstanceID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to increment notification count: %w", err)
	}

	logger.WarnCtx(ctx, "stale instance warned (%d/%d), instance_id: %s, logical_key: %s",
		next, s.maxNotifications, inst.InstanceID, inst.LogicalKey)

	sendAlert(ctx, s.sink, fmt.Sprintf("⚠️ Instance %s (key: %s) on %s has not sent heartbeat for %d+ minutes",
		inst.InstanceID, inst.LogicalKey, inst.HostLabel, int(s.threshold.Minutes())), interfaces.SeverityWarning)

	return nil
}
