package domain

import "time"

// AuditEvent records an action attempted through the public API.
type AuditEvent struct {
	Date      time.Time
	User      string
	Action    string
	Data      map[string]string
	Error     bool
	Exception string
}
