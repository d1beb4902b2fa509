package accesslog

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"sync"
	"time"
)

// Transport carries recorder writes to storage.
type Transport interface {
	// Create opens a session and returns the stored row id.
	Create(ctx context.Context, e Entry) (string, error)

	// Beacon queues the exit write and returns at once. It must not depend
	// on the caller staying alive and is never retried; the return value
	// only reports whether the beacon was queued.
	Beacon(id string, exit time.Time) bool
}

const tokenAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewSessionToken returns "<unix-millis>-<7 base36 chars>", unique enough
// to tell apart concurrent tabs opened in the same millisecond.
func NewSessionToken(now time.Time) string {
	suffix := make([]byte, 7)
	for i := range suffix {
		suffix[i] = tokenAlphabet[rand.IntN(len(tokenAlphabet))]
	}
	return fmt.Sprintf("%d-%s", now.UnixMilli(), suffix)
}

// session is one open/close cycle for one subject.
type session struct {
	subjectID string
	logID     string
	closed    bool
	exitAt    time.Time
}

// Recorder tracks the viewing session of a single profile view. Create one
// per view; the session token lives and dies with it.
type Recorder struct {
	transport Transport
	userAgent string
	token     string
	now       func() time.Time

	mu  sync.Mutex
	cur *session
}

// NewRecorder creates a recorder for one view.
func NewRecorder(t Transport, userAgent string) *Recorder {
	return &Recorder{
		transport: t,
		userAgent: userAgent,
		token:     NewSessionToken(time.Now()),
		now:       time.Now,
	}
}

// SessionToken returns this view's token.
func (r *Recorder) SessionToken() string {
	return r.token
}

// Start opens a session for subjectID. It is a no-op for an empty subject
// and for the subject already being recorded. Switching to a different
// subject closes the current session first. Failures are logged and
// swallowed: the session simply stays unrecorded.
func (r *Recorder) Start(ctx context.Context, subjectID string) {
	if subjectID == "" {
		return
	}

	r.mu.Lock()
	if r.cur != nil && r.cur.subjectID == subjectID {
		r.mu.Unlock()
		return
	}
	if r.cur != nil {
		r.closeLocked(r.cur)
	}
	s := &session{subjectID: subjectID}
	r.cur = s
	entry := Entry{
		ActorID:   subjectID,
		SessionID: r.token,
		UserAgent: r.userAgent,
		EntryTime: r.now(),
	}
	r.mu.Unlock()

	id, err := r.transport.Create(ctx, entry)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		log.Printf("accesslog: start session for %s: %v", subjectID, err)
		return
	}
	s.logID = id
	// An exit signal arrived while the create was in flight.
	if s.closed {
		r.transport.Beacon(s.logID, s.exitAt)
	}
}

// RecordExit closes the current session. Only the first call per session
// sends anything.
func (r *Recorder) RecordExit() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cur != nil {
		r.closeLocked(r.cur)
	}
}

// VisibilityChanged reacts to page visibility; "hidden" is an exit signal.
func (r *Recorder) VisibilityChanged(state string) {
	if state == "hidden" {
		r.RecordExit()
	}
}

// Unload is the page-unload exit signal.
func (r *Recorder) Unload() {
	r.RecordExit()
}

// Close is the teardown exit signal for views removed without an unload.
func (r *Recorder) Close() {
	r.RecordExit()
}

func (r *Recorder) closeLocked(s *session) {
	if s.closed {
		return
	}
	s.closed = true
	s.exitAt = r.now()
	if s.logID == "" {
		return
	}
	r.transport.Beacon(s.logID, s.exitAt)
}
