package domain

import "time"

// AuditLog represents one auth event. ActorID is empty when the actor is
// unknown (e.g. failed login for a nonexistent account); Email is recorded
// so those events remain attributable.
type AuditLog struct {
	ID        string
	ActorID   string
	Email     string
	Action    string
	Outcome   string
	Detail    string
	RemoteIP  string
	CreatedAt time.Time
}
