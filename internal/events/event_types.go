package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventLoginSucceeded EventType = "login_succeeded"
	EventLoginFailed    EventType = "login_failed"
	EventLoginThrottled EventType = "login_throttled"
	EventTokenIssued    EventType = "token_issued"
)

// Event represents an authentication event emitted by services. The subject
// is the username the event concerns; failed logins carry the attempted
// username even when it does not exist, so audit trails can spot probing.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Subject   string      `json:"subject"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// LoginFailedPayload payload.
type LoginFailedPayload struct {
	Failures int64 `json:"failures"`
}

// TokenIssuedPayload payload.
type TokenIssuedPayload struct {
	ExpiresAt time.Time `json:"expires_at"`
}
