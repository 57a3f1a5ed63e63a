package mysql

import (
	"vigil/internal/model"
)

// ToInstanceDomain converts a MySQL instance row to the domain model
func ToInstanceDomain(row *Instance) *model.Instance {
	if row == nil {
		return nil
	}

	return &model.Instance{
		InstanceID:        row.InstanceID,
		LogicalKey:        row.LogicalKey,
		HostLabel:         row.HostLabel,
		State:             model.InstanceState(row.State),
		CreatedAt:         row.CreatedAt,
		LastHeartbeat:     row.LastHeartbeat,
		ErrorDetail:       row.ErrorDetail,
		NotificationCount: row.NotificationCount,
	}
}

// FromInstanceDomain converts a domain instance to a MySQL row
func FromInstanceDomain(inst *model.Instance) *Instance {
	if inst == nil {
		return nil
	}

	return &Instance{
		InstanceID:        inst.InstanceID,
		LogicalKey:        inst.LogicalKey,
		HostLabel:         inst.HostLabel,
		State:             string(inst.State),
		CreatedAt:         inst.CreatedAt,
		LastHeartbeat:     inst.LastHeartbeat,
		ErrorDetail:       inst.ErrorDetail,
		NotificationCount: inst.NotificationCount,
	}
}
