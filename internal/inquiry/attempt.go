package inquiry

import (
	"fmt"
	"strings"
)

// Outcome classifies one delivery attempt.
type Outcome string

const (
	OutcomeSent             Outcome = "sent"
	OutcomeSkipped          Outcome = "skipped-no-endpoint"
	OutcomeFailedWithDetail Outcome = "failed-with-detail"
	OutcomeFailedUnknown    Outcome = "failed-unknown"
)

// Attempt is the result of notifying one assigned staff member. Detail holds
// the raw provider response for OutcomeFailedWithDetail.
type Attempt struct {
	StaffName      string
	AssignmentType string
	Outcome        Outcome
	Detail         string
}

// Result is what Dispatch returns once the inquiry is stored. Success
// reflects persistence only; delivery outcomes live in Attempts.
type Result struct {
	InquiryID string
	Success   bool
	Attempts  []Attempt
}

// TelegramLines renders attempts in the "<name>: <status>" wire form.
// Skipped attempts have no wire form and are left out.
func (r *Result) TelegramLines() []string {
	lines := make([]string, 0, len(r.Attempts))
	for _, a := range r.Attempts {
		switch a.Outcome {
		case OutcomeSent:
			lines = append(lines, a.StaffName+": sent")
		case OutcomeFailedWithDetail:
			lines = append(lines, a.StaffName+": "+a.Detail)
		case OutcomeFailedUnknown:
			lines = append(lines, a.StaffName+": error")
		}
	}
	return lines
}

// Counts tallies attempts per outcome.
func (r *Result) Counts() map[Outcome]int {
	counts := make(map[Outcome]int, 4)
	for _, a := range r.Attempts {
		counts[a.Outcome]++
	}
	return counts
}

// Summary is a one-line description used for operational logging.
func (r *Result) Summary() string {
	c := r.Counts()
	parts := []string{fmt.Sprintf("%d recipients", len(r.Attempts))}
	for _, o := range []Outcome{OutcomeSent, OutcomeSkipped, OutcomeFailedWithDetail, OutcomeFailedUnknown} {
		if c[o] > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", o, c[o]))
		}
	}
	return strings.Join(parts, " ")
}
