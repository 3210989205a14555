package model

import (
	"time"
)

// AuditTimeLayout is the timestamp format written to the audit sheet.
const AuditTimeLayout = "2006-01-02 15:04:05"

// AuditEvent is one usage record destined for the audit trail.
type AuditEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Identity  string    `json:"identity"`
	Action    string    `json:"action"`
}

// Row renders the event as a sheet row.
func (e AuditEvent) Row() []interface{} {
	return []interface{}{
		e.Timestamp.Local().Format(AuditTimeLayout),
		e.Identity,
		e.Action,
	}
}
