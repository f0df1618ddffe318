package models

import "time"

// NoticeTTL is how long a transient notice stays visible.
const NoticeTTL = 3 * time.Second

type Severity string

const (
	SeverityError   Severity = "error"
	SeveritySuccess Severity = "success"
)

// Notice is the transient, user-visible message raised by wizard operations.
type Notice struct {
	Code      string    `json:"code,omitempty"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	ExpiresAt time.Time `json:"expiresAt"`
	// ScrollIntoView asks the client to bring the notice on screen.
	ScrollIntoView bool `json:"scrollIntoView"`
}

// Active reports whether the notice is still visible at now.
func (n *Notice) Active(now time.Time) bool {
	return n != nil && now.Before(n.ExpiresAt)
}
