package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"vigil/internal/model"
	"vigil/pkg/interfaces"
	"vigil/pkg/logger"
)

// RegistryService owns the instance lifecycle state machine
type RegistryService struct {
	store interfaces.InstanceStore
	sink  interfaces.AlertSink
}

// NewRegistryService creates a new registry service
func NewRegistryService(store interfaces.InstanceStore, sink interfaces.AlertSink) *RegistryService {
	return &RegistryService{
		store: store,
		sink:  sink,
	}
}

// newInstanceID builds the identifier for a single run of a logical key.
// Reactivations of the same key get a fresh instance_id each time.
func newInstanceID(logicalKey, hostLabel string) string {
	return fmt.Sprintf("%s_%s_%s", hostLabel, logicalKey, uuid.New().String()[:8])
}

// RegisterStart registers a running instance for logicalKey. If the key's
// previous run has crashed or stopped, the existing record is reactivated
// in place: new instance_id, counters reset, error detail cleared. A key
// that is still running is rejected with model.ErrAlreadyRunning.
func (s *RegistryService) RegisterStart(ctx context.Context, logicalKey, hostLabel string) (*model.Instance, error) {
	now := time.Now().UTC()
	inst := &model.Instance{
		InstanceID:        newInstanceID(logicalKey, hostLabel),
		LogicalKey:        logicalKey,
		HostLabel:         hostLabel,
		State:             model.StateRunning,
		CreatedAt:         now,
		LastHeartbeat:     &now,
		NotificationCount: 0,
	}

	if err := s.store.CreateOrReactivate(ctx, inst); err != nil {
		if errors.Is(err, model.ErrAlreadyRunning) {
			logger.WarnCtx(ctx, "duplicate start rejected, logical_key: %s, host: %s", logicalKey, hostLabel)
			return nil, err
		}
		return nil, fmt.Errorf("failed to register instance: %w", err)
	}

	logger.InfoCtx(ctx, "instance registered, instance_id: %s, logical_key: %s, host: %s",
		inst.InstanceID, logicalKey, hostLabel)

	sendAlert(ctx, s.sink, fmt.Sprintf("🟢 New instance started: %s (key: %s) on %s",
		inst.InstanceID, logicalKey, hostLabel), interfaces.SeverityInfo)

	return inst, nil
}

// RecordHeartbeat refreshes last_heartbeat for the given instance. The update
// is keyed by instance_id only, so a heartbeat from a superseded run finds no
// matching row and never touches the reactivated record.
func (s *RegistryService) RecordHeartbeat(ctx context.Context, instanceID string) error {
	if err := s.store.UpdateHeartbeat(ctx, instanceID, time.Now().UTC()); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			logger.WarnCtx(ctx, "heartbeat for unknown instance, instance_id: %s", instanceID)
			return err
		}
		return fmt.Errorf("failed to update heartbeat: %w", err)
	}

	logger.DebugCtx(ctx, "heartbeat received, instance_id: %s", instanceID)
	return nil
}

// RecordCrash marks the instance crashed with the reported error detail
// (default "unknown"). notification_count is left as-is; it only resets on
// the next reactivation. The critical alert goes out even when the store
// update fails, so a crash report is never silently dropped.
func (s *RegistryService) RecordCrash(ctx context.Context, instanceID, errorDetail, hostLabel string) error {
	if errorDetail == "" {
		errorDetail = "unknown"
	}

	err := s.store.MarkCrashed(ctx, instanceID, errorDetail, time.Now().UTC())
	if err != nil {
		logger.ErrorCtx(ctx, "failed to mark instance crashed, instance_id: %s, error: %v", instanceID, err)
	} else {
		logger.InfoCtx(ctx, "crash reported, instance_id: %s, error_detail: %s", instanceID, errorDetail)
	}

	sendAlert(ctx, s.sink, fmt.Sprintf("🔴 Instance crashed: %s on %s\nError: %s",
		instanceID, hostLabel, errorDetail), interfaces.SeverityCritical)

	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to mark instance crashed: %w", err)
	}
	return nil
}

// RecordStop marks the instance stopped, leaving error_detail untouched
// (a graceful shutdown is not a failure).
func (s *RegistryService) RecordStop(ctx context.Context, instanceID, hostLabel string) error {
	if err := s.store.MarkStopped(ctx, instanceID, time.Now().UTC()); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			logger.WarnCtx(ctx, "stop for unknown instance, instance_id: %s", instanceID)
			return err
		}
		return fmt.Errorf("failed to mark instance stopped: %w", err)
	}

	logger.InfoCtx(ctx, "stop reported, instance_id: %s", instanceID)

	sendAlert(ctx, s.sink, fmt.Sprintf("🟡 Instance stopped: %s on %s",
		instanceID, hostLabel), interfaces.SeverityInfo)

	return nil
}

// ListInstances returns every known record, newest first
func (s *RegistryService) ListInstances(ctx context.Context) ([]*model.Instance, error) {
	instances, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}
	return instances, nil
}

// sendAlert delivers one alert on a best-effort basis. Each alert is attempted
// at most once: sink failures are logged and swallowed, never retried, and
// never affect the outcome of the operation that triggered them.
func sendAlert(ctx context.Context, sink interfaces.AlertSink, message string, severity interfaces.Severity) {
	if sink == nil {
		return
	}
	if err := sink.Send(ctx, message, severity); err != nil {
		logger.WarnCtx(ctx, "failed to send alert (severity: %s): %v", severity, err)
	}
}
