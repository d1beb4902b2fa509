package accesslog

import "time"

// CreateRequest is the JSON body that opens a session.
type CreateRequest struct {
	ActorID   string     `json:"actor_id"`
	SessionID string     `json:"session_id"`
	UserAgent string     `json:"user_agent"`
	EntryTime *time.Time `json:"entry_time"`
}

// CreateResponse carries the id of the new access_logs row.
type CreateResponse struct {
	ID string `json:"id"`
}

// ExitRequest is the beacon body that closes a session.
type ExitRequest struct {
	ExitTime *time.Time `json:"exit_time"`
}
