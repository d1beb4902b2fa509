package inquiry

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/zulandar/marquee/internal/models"
	"github.com/zulandar/marquee/internal/telegram"
)

// DefaultAttemptTimeout bounds a single delivery when none is configured.
const DefaultAttemptTimeout = 10 * time.Second

// Dispatcher stores inquiries and fans them out to assigned staff. It holds
// no per-call state, so one Dispatcher serves concurrent requests.
type Dispatcher struct {
	store   Store
	sender  telegram.Sender
	timeout time.Duration
}

// DispatcherOpts holds parameters for creating a Dispatcher.
type DispatcherOpts struct {
	Store   Store
	Sender  telegram.Sender
	Timeout time.Duration // per-attempt bound; defaults to DefaultAttemptTimeout
}

// NewDispatcher creates a Dispatcher with the given options.
func NewDispatcher(opts DispatcherOpts) (*Dispatcher, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("inquiry: store is required")
	}
	if opts.Sender == nil {
		return nil, fmt.Errorf("inquiry: sender is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultAttemptTimeout
	}
	return &Dispatcher{store: opts.Store, sender: opts.Sender, timeout: timeout}, nil
}

// Dispatch validates and stores the inquiry, then attempts one delivery per
// assigned staff member. Only validation (*ValidationError) and storage
// failures are returned as errors; delivery problems are reported in the
// Result's attempts.
func (d *Dispatcher) Dispatch(ctx context.Context, in Inquiry) (*Result, error) {
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}

	row := &models.ContactInquiry{
		ActorID:      in.ActorID,
		Name:         in.SenderName,
		Organization: in.Organization,
		Message:      in.Body,
	}
	if err := d.store.SaveInquiry(ctx, row); err != nil {
		return nil, fmt.Errorf("inquiry: save: %w", err)
	}

	// The inquiry is stored; from here on nothing fails the call, and
	// deliveries keep going even if the caller hangs up.
	ctx = context.WithoutCancel(ctx)

	assignments, err := d.store.Assignments(ctx, in.ActorID)
	if err != nil {
		log.Printf("inquiry: %s: lookup assignments: %v", row.ID, err)
		assignments = nil
	}

	res := &Result{
		InquiryID: row.ID,
		Success:   true,
		Attempts:  d.deliver(ctx, in, assignments),
	}
	log.Printf("inquiry: %s for actor %s: %s", row.ID, in.ActorID, res.Summary())
	return res, nil
}

// deliver runs one attempt per assignment concurrently. Results keep the
// assignment order and every attempt is recorded whatever the others do.
func (d *Dispatcher) deliver(ctx context.Context, in Inquiry, assignments []models.StaffAssignment) []Attempt {
	attempts := make([]Attempt, len(assignments))
	var wg sync.WaitGroup
	for i, a := range assignments {
		attempts[i] = Attempt{
			StaffName:      staffName(a),
			AssignmentType: a.AssignmentType,
		}
		if !a.Staff.HasTelegram() {
			attempts[i].Outcome = OutcomeSkipped
			continue
		}
		wg.Add(1)
		go func(i int, a models.StaffAssignment) {
			defer wg.Done()
			attempts[i].Outcome, attempts[i].Detail = d.attempt(ctx, in, a)
		}(i, a)
	}
	wg.Wait()
	return attempts
}

// attempt performs a single bounded delivery and classifies its outcome.
func (d *Dispatcher) attempt(ctx context.Context, in Inquiry, a models.StaffAssignment) (outcome Outcome, detail string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("inquiry: deliver to %s panicked: %v", staffName(a), r)
			outcome, detail = OutcomeFailedUnknown, ""
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	err := d.sender.Send(ctx, *a.Staff.TelegramToken, telegram.Message{
		ChatID: *a.Staff.TelegramChatID,
		Text:   composeText(in, a.AssignmentType),
	})
	if err == nil {
		return OutcomeSent, ""
	}

	var apiErr *telegram.APIError
	if errors.As(err, &apiErr) {
		log.Printf("inquiry: deliver to %s: status %d", staffName(a), apiErr.StatusCode)
		return OutcomeFailedWithDetail, apiErr.Body
	}
	log.Printf("inquiry: deliver to %s: %v", staffName(a), err)
	return OutcomeFailedUnknown, ""
}

func staffName(a models.StaffAssignment) string {
	if a.Staff != nil && a.Staff.Name != "" {
		return a.Staff.Name
	}
	return a.StaffID
}
