package model

import (
	"errors"
	"time"
)

// InstanceState lifecycle state of a monitored instance
type InstanceState string

const (
	StateRunning InstanceState = "running" // Heartbeating, or expected to
	StateCrashed InstanceState = "crashed" // Reported failure or went silent
	StateStopped InstanceState = "stopped" // Graceful shutdown
)

var (
	// ErrAlreadyRunning is returned when a start request hits a logical key
	// that already has a running instance.
	ErrAlreadyRunning = errors.New("instance already running")

	// ErrNotFound is returned when an update targets an instance_id that no
	// longer matches any record, e.g. after the row was reactivated under a
	// new id.
	ErrNotFound = errors.New("instance not found")
)

// Instance one running lifetime of a monitored worker process.
// The record is keyed by logical_key: a single row per logical key, mutated
// in place, with instance_id rewritten on every reactivation.
type Instance struct {
	InstanceID        string        `json:"instance_id"`
	LogicalKey        string        `json:"logical_key"`
	HostLabel         string        `json:"host_label"`
	State             InstanceState `json:"state"`
	CreatedAt         time.Time     `json:"created_at"`
	LastHeartbeat     *time.Time    `json:"last_heartbeat"`
	ErrorDetail       *string       `json:"error_detail"`
	NotificationCount int           `json:"notification_count"`
}

// StartRequest registers a new instance, or reactivates the row for a
// logical key whose previous instance crashed or stopped.
type StartRequest struct {
	LogicalKey string `json:"logical_key"`
	HostLabel  string `json:"host_label"`
}

// HeartbeatRequest keeps an instance alive.
type HeartbeatRequest struct {
	InstanceID string `json:"instance_id"`
}

// CrashRequest reports a failure from the instance itself.
type CrashRequest struct {
	InstanceID  string `json:"instance_id"`
	ErrorDetail string `json:"error_detail"`
	HostLabel   string `json:"host_label"`
}

// StopRequest reports a graceful shutdown.
type StopRequest struct {
	InstanceID string `json:"instance_id"`
	HostLabel  string `json:"host_label"`
}
