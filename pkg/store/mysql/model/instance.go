package model

import "time"

// Instance represents an instance record in database.
// One row per logical_key, reused across reactivations; the unique index on
// logical_key is what turns two concurrent starts into exactly one winner.
type Instance struct {
	ID                int64      `gorm:"column:id;primaryKey;autoIncrement"`
	InstanceID        string     `gorm:"column:instance_id;not null;uniqueIndex"`
	LogicalKey        string     `gorm:"column:logical_key;not null;uniqueIndex"`
	HostLabel         string     `gorm:"column:host_label"`
	State             string     `gorm:"column:state;not null;default:running;index:idx_state_heartbeat,priority:1"`
	CreatedAt         time.Time  `gorm:"column:created_at;not null"`
	LastHeartbeat     *time.Time `gorm:"column:last_heartbeat;index:idx_state_heartbeat,priority:2"`
	ErrorDetail       *string    `gorm:"column:error_detail;type:text"`
	NotificationCount int        `gorm:"column:notification_count;not null;default:0"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;not null"`
}

func (Instance) TableName() string {
	return "instances"
}
