package interfaces

import "context"

// Severity alert severity level
type Severity string

const (
	SeverityInfo     Severity = "info"     // Lifecycle events: started, stopped
	SeverityWarning  Severity = "warning"  // Stale heartbeat warnings
	SeverityCritical Severity = "critical" // Crashes, reported or swept
)

// AlertSink outbound alert channel.
// Delivery is best-effort and at-most-once: callers log failures and never
// retry, and a sink failure must never affect the outcome of the operation
// that triggered the alert.
type AlertSink interface {
	Send(ctx context.Context, message string, severity Severity) error
}
