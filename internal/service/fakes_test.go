package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"vigil/internal/model"
	"vigil/pkg/interfaces"
)

// fakeStore is an in-memory InstanceStore with the same conditional-write
// semantics as the MySQL repository: one row per logical_key, updates scoped
// by instance_id. Individual operations can be overridden via func fields.
type fakeStore struct {
	mu   sync.Mutex
	rows map[string]*model.Instance // keyed by logical_key

	createOrReactivateFunc func(ctx context.Context, inst *model.Instance) error
	updateHeartbeatFunc    func(ctx context.Context, instanceID string, at time.Time) error
	markCrashedFunc        func(ctx context.Context, instanceID, errorDetail string, at time.Time) error
	findStaleFunc          func(ctx context.Context, cutoff time.Time, maxNotifications int) ([]*model.Instance, error)
	incrementFunc          func(ctx context.Context, instanceID string) error
	listAllFunc            func(ctx context.Context) ([]*model.Instance, error)
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[string]*model.Instance)}
}

// seed preloads a record without going through the lifecycle operations
func (f *fakeStore) seed(inst *model.Instance) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[inst.LogicalKey] = cloneInstance(inst)
}

// get returns a copy of the record for logicalKey, or nil
func (f *fakeStore) get(logicalKey string) *model.Instance {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[logicalKey]
	if !ok {
		return nil
	}
	return cloneInstance(row)
}

func (f *fakeStore) rowCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

func (f *fakeStore) CreateOrReactivate(ctx context.Context, inst *model.Instance) error {
	if f.createOrReactivateFunc != nil {
		return f.createOrReactivateFunc(ctx, inst)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	row, ok := f.rows[inst.LogicalKey]
	if !ok {
		f.rows[inst.LogicalKey] = cloneInstance(inst)
		return nil
	}
	if row.State == model.StateRunning {
		return model.ErrAlreadyRunning
	}

	// Reactivate in place; created_at stays from the original creation.
	row.InstanceID = inst.InstanceID
	row.HostLabel = inst.HostLabel
	row.State = model.StateRunning
	row.LastHeartbeat = copyTime(inst.LastHeartbeat)
	row.ErrorDetail = nil
	row.NotificationCount = 0
	return nil
}

func (f *fakeStore) UpdateHeartbeat(ctx context.Context, instanceID string, at time.Time) error {
	if f.updateHeartbeatFunc != nil {
		return f.updateHeartbeatFunc(ctx, instanceID, at)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	row := f.findByInstanceID(instanceID)
	if row == nil {
		return model.ErrNotFound
	}
	row.LastHeartbeat = &at
	return nil
}

func (f *fakeStore) MarkCrashed(ctx context.Context, instanceID, errorDetail string, at time.Time) error {
	if f.markCrashedFunc != nil {
		return f.markCrashedFunc(ctx, instanceID, errorDetail, at)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	row := f.findByInstanceID(instanceID)
	if row == nil {
		return model.ErrNotFound
	}
	row.State = model.StateCrashed
	row.ErrorDetail = &errorDetail
	row.LastHeartbeat = &at
	return nil
}

func (f *fakeStore) MarkStopped(ctx context.Context, instanceID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	row := f.findByInstanceID(instanceID)
	if row == nil {
		return model.ErrNotFound
	}
	row.State = model.StateStopped
	row.LastHeartbeat = &at
	return nil
}

func (f *fakeStore) ListAll(ctx context.Context) ([]*model.Instance, error) {
	if f.listAllFunc != nil {
		return f.listAllFunc(ctx)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]*model.Instance, 0, len(f.rows))
	for _, row := range f.rows {
		out = append(out, cloneInstance(row))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (f *fakeStore) FindStale(ctx context.Context, cutoff time.Time, maxNotifications int) ([]*model.Instance, error) {
	if f.findStaleFunc != nil {
		return f.findStaleFunc(ctx, cutoff, maxNotifications)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]*model.Instance, 0)
	for _, row := range f.rows {
		if row.State != model.StateRunning {
			continue
		}
		if row.LastHeartbeat == nil || !row.LastHeartbeat.Before(cutoff) {
			continue
		}
		if row.NotificationCount >= maxNotifications {
			continue
		}
		out = append(out, cloneInstance(row))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastHeartbeat.Before(*out[j].LastHeartbeat)
	})
	return out, nil
}

func (f *fakeStore) IncrementNotificationCount(ctx context.Context, instanceID string) error {
	if f.incrementFunc != nil {
		return f.incrementFunc(ctx, instanceID)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	row := f.findByInstanceID(instanceID)
	if row == nil {
		return model.ErrNotFound
	}
	row.NotificationCount++
	return nil
}

// findByInstanceID must be called with f.mu held
func (f *fakeStore) findByInstanceID(instanceID string) *model.Instance {
	for _, row := range f.rows {
		if row.InstanceID == instanceID {
			return row
		}
	}
	return nil
}

func cloneInstance(inst *model.Instance) *model.Instance {
	c := *inst
	c.LastHeartbeat = copyTime(inst.LastHeartbeat)
	if inst.ErrorDetail != nil {
		d := *inst.ErrorDetail
		c.ErrorDetail = &d
	}
	return &c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// recordedAlert is one message accepted by the fake sink
type recordedAlert struct {
	message  string
	severity interfaces.Severity
}

// fakeSink records every delivery attempt. When sendErr is set, each attempt
// is still recorded and then fails, so tests can count attempts.
type fakeSink struct {
	mu      sync.Mutex
	alerts  []recordedAlert
	sendErr error
}

func (f *fakeSink) Send(ctx context.Context, message string, severity interfaces.Severity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, recordedAlert{message: message, severity: severity})
	return f.sendErr
}

func (f *fakeSink) all() []recordedAlert {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]recordedAlert, len(f.alerts))
	copy(out, f.alerts)
	return out
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.alerts)
}
