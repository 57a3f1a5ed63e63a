package interfaces

import (
	"context"
	"time"

	"vigil/internal/model"
)

// InstanceStore durable record store for instance lifecycle state.
// Implementations must make CreateOrReactivate a single atomic conditional
// write, and must scope every update by instance_id so a stale update racing
// a reactivation matches zero rows instead of corrupting the new instance.
type InstanceStore interface {
	// CreateOrReactivate inserts a fresh running record for inst.LogicalKey,
	// or reactivates the existing non-running row in place: instance_id and
	// host_label overwritten, state back to running, error_detail cleared,
	// notification_count reset to zero. Returns model.ErrAlreadyRunning when
	// the key already has a running instance.
	CreateOrReactivate(ctx context.Context, inst *model.Instance) error

	// UpdateHeartbeat sets last_heartbeat on the record with the given
	// instance_id, whatever its state. Returns model.ErrNotFound when no
	// record matches.
	UpdateHeartbeat(ctx context.Context, instanceID string, at time.Time) error

	// MarkCrashed moves the record to crashed with the given error detail and
	// last_heartbeat. notification_count is left as-is.
	MarkCrashed(ctx context.Context, instanceID, errorDetail string, at time.Time) error

	// MarkStopped moves the record to stopped. error_detail is left as-is.
	MarkStopped(ctx context.Context, instanceID string, at time.Time) error

	// ListAll returns every record, newest created_at first.
	ListAll(ctx context.Context) ([]*model.Instance, error)

	// FindStale returns running records whose last_heartbeat is older than
	// cutoff and whose notification_count is below maxNotifications, ordered
	// oldest silence first.
	FindStale(ctx context.Context, cutoff time.Time, maxNotifications int) ([]*model.Instance, error)

	// IncrementNotificationCount adds one to notification_count on the given
	// record, touching nothing else.
	IncrementNotificationCount(ctx context.Context, instanceID string) error
}
