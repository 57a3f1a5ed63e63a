package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vigil/internal/model"

	"gorm.io/gorm"
)

// InstanceRepository handles instance record operations.
// Every update is scoped by instance_id so a stale caller whose row was
// reactivated under a new id matches zero rows and reports not-found instead
// of touching the fresh instance.
type InstanceRepository struct {
	ds *Datastore
}

// NewInstanceRepository creates a new instance repository
func NewInstanceRepository(ds *Datastore) *InstanceRepository {
	return &InstanceRepository{ds: ds}
}

// CreateOrReactivate registers inst as the running instance for its logical
// key. The write is race-safe without a transaction:
//  1. a conditional UPDATE reactivates the row only while it is not running
//  2. otherwise an INSERT runs, and the unique index on logical_key turns a
//     concurrent start into ErrAlreadyRunning for the loser
func (r *InstanceRepository) CreateOrReactivate(ctx context.Context, inst *model.Instance) error {
	res := r.ds.DB(ctx).Model(&Instance{}).
		Where("logical_key = ? AND state <> ?", inst.LogicalKey, string(model.StateRunning)).
		Updates(map[string]interface{}{
			"instance_id":        inst.InstanceID,
			"host_label":         inst.HostLabel,
			"state":              string(model.StateRunning),
			"last_heartbeat":     inst.LastHeartbeat,
			"error_detail":       nil,
			"notification_count": 0,
			"updated_at":         time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to reactivate instance for logical_key %s: %w", inst.LogicalKey, res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	row := FromInstanceDomain(inst)
	row.UpdatedAt = time.Now()
	if err := r.ds.DB(ctx).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return model.ErrAlreadyRunning
		}
		return fmt.Errorf("failed to create instance for logical_key %s: %w", inst.LogicalKey, err)
	}
	return nil
}

// UpdateHeartbeat sets last_heartbeat on the record with the given
// instance_id, regardless of its current state.
func (r *InstanceRepository) UpdateHeartbeat(ctx context.Context, instanceID string, at time.Time) error {
	res := r.ds.DB(ctx).Model(&Instance{}).
		Where("instance_id = ?", instanceID).
		Updates(map[string]interface{}{
			"last_heartbeat": at,
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update heartbeat for %s: %w", instanceID, res.Error)
	}
	if res.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

// MarkCrashed moves the record to crashed. notification_count is left alone;
// it only resets on the next reactivation.
func (r *InstanceRepository) MarkCrashed(ctx context.Context, instanceID, errorDetail string, at time.Time) error {
	res := r.ds.DB(ctx).Model(&Instance{}).
		Where("instance_id = ?", instanceID).
		Updates(map[string]interface{}{
			"state":          string(model.StateCrashed),
			"error_detail":   errorDetail,
			"last_heartbeat": at,
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to mark %s crashed: %w", instanceID, res.Error)
	}
	if res.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

// MarkStopped moves the record to stopped. error_detail is left alone, a
// graceful shutdown is not a failure.
func (r *InstanceRepository) MarkStopped(ctx context.Context, instanceID string, at time.Time) error {
	res := r.ds.DB(ctx).Model(&Instance{}).
		Where("instance_id = ?", instanceID).
		Updates(map[string]interface{}{
			"state":          string(model.StateStopped),
			"last_heartbeat": at,
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to mark %s stopped: %w", instanceID, res.Error)
	}
	if res.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

// ListAll returns every instance record, newest first
func (r *InstanceRepository) ListAll(ctx context.Context) ([]*model.Instance, error) {
	var rows []*Instance
	if err := r.ds.DB(ctx).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}

	instances := make([]*model.Instance, 0, len(rows))
	for _, row := range rows {
		instances = append(instances, ToInstanceDomain(row))
	}
	return instances, nil
}

// FindStale returns running instances that have been silent since before
// cutoff and still have warnings left, oldest silence first.
func (r *InstanceRepository) FindStale(ctx context.Context, cutoff time.Time, maxNotifications int) ([]*model.Instance, error) {
	var rows []*Instance
	err := r.ds.DB(ctx).
		Where("state = ? AND last_heartbeat < ? AND notification_count < ?",
			string(model.StateRunning), cutoff, maxNotifications).
		Order("last_heartbeat ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query stale instances: %w", err)
	}

	instances := make([]*model.Instance, 0, len(rows))
	for _, row := range rows {
		instances = append(instances, ToInstanceDomain(row))
	}
	return instances, nil
}

// IncrementNotificationCount adds one to notification_count on the given
// record and touches nothing else, not even last_heartbeat.
func (r *InstanceRepository) IncrementNotificationCount(ctx context.Context, instanceID string) error {
	res := r.ds.DB(ctx).Model(&Instance{}).
		Where("instance_id = ?", instanceID).
		Updates(map[string]interface{}{
			"notification_count": gorm.Expr("notification_count + 1"),
			"updated_at":         time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to increment notification count for %s: %w", instanceID, res.Error)
	}
	if res.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}
