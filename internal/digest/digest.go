// Package digest sends operators a periodic Telegram summary of profile
// views and inquiries.
package digest

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/zulandar/marquee/internal/accesslog"
	"github.com/zulandar/marquee/internal/inquiry"
	"github.com/zulandar/marquee/internal/telegram"
	"gorm.io/gorm"
)

// DefaultWindow is how far back each digest looks.
const DefaultWindow = 24 * time.Hour

// Report holds the activity for one digest period.
type Report struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
	TotalViews  int
	Inquiries   int64
	Actors      []accesslog.ActorSummary
}

// Empty reports whether nothing happened in the period.
func (r *Report) Empty() bool {
	return r.TotalViews == 0 && r.Inquiries == 0
}

// Opts holds parameters for creating a Digest.
type Opts struct {
	DB     *gorm.DB
	Sender telegram.Sender
	Token  string
	ChatID string
	Cron   string        // 5-field schedule; required only for Run
	Window time.Duration // defaults to DefaultWindow
}

// Digest builds and delivers operator digests.
type Digest struct {
	logs      *accesslog.Store
	inquiries *inquiry.GormStore
	sender    telegram.Sender
	token     string
	chatID    string
	cron      string
	window    time.Duration
	now       func() time.Time
}

// New creates a Digest with the given options.
func New(opts Opts) (*Digest, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("digest: db is required")
	}
	if opts.Sender == nil {
		return nil, fmt.Errorf("digest: sender is required")
	}
	if opts.Token == "" || opts.ChatID == "" {
		return nil, fmt.Errorf("digest: telegram token and chat id are required")
	}
	if opts.Cron != "" {
		if _, err := cronParser.Parse(opts.Cron); err != nil {
			return nil, fmt.Errorf("digest: invalid cron %q: %w", opts.Cron, err)
		}
	}
	window := opts.Window
	if window <= 0 {
		window = DefaultWindow
	}
	return &Digest{
		logs:      accesslog.NewStore(opts.DB),
		inquiries: inquiry.NewStore(opts.DB),
		sender:    opts.Sender,
		token:     opts.Token,
		chatID:    opts.ChatID,
		cron:      opts.Cron,
		window:    window,
		now:       time.Now,
	}, nil
}

// BuildReport collects the activity of the window ending at until.
func (d *Digest) BuildReport(ctx context.Context, until time.Time) (*Report, error) {
	since := until.Add(-d.window)

	rows, err := d.logs.Since(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("digest: %w", err)
	}
	names, err := d.logs.ActorNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("digest: %w", err)
	}
	count, err := d.inquiries.Count(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("digest: %w", err)
	}

	return &Report{
		PeriodStart: since,
		PeriodEnd:   until,
		TotalViews:  len(rows),
		Inquiries:   count,
		Actors:      accesslog.Summarize(rows, names),
	}, nil
}

// Send builds the current report and delivers it. A period with no activity
// is suppressed and reports false.
func (d *Digest) Send(ctx context.Context) (bool, error) {
	report, err := d.BuildReport(ctx, d.now())
	if err != nil {
		return false, err
	}
	if report.Empty() {
		return false, nil
	}
	if err := d.sender.Send(ctx, d.token, telegram.Message{
		ChatID: d.chatID,
		Text:   Format(report),
	}); err != nil {
		return false, fmt.Errorf("digest: send: %w", err)
	}
	return true, nil
}

// Run fires Send on the configured cron schedule until ctx is cancelled.
// It returns immediately when no schedule is set.
func (d *Digest) Run(ctx context.Context) {
	if d.cron == "" {
		return
	}
	wait := nextCronDuration(d.cron, d.now())
	if wait <= 0 {
		return
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			d.fire(ctx)
			if wait := nextCronDuration(d.cron, d.now()); wait > 0 {
				timer.Reset(wait)
			}
		}
	}
}

func (d *Digest) fire(ctx context.Context) {
	sent, err := d.Send(ctx)
	if err != nil {
		log.Printf("digest: %v", err)
		return
	}
	if !sent {
		log.Printf("digest: no activity, skipped")
	}
}

// Format renders a report as the Telegram message text.
func Format(r *Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 프로필 조회 요약 (%s ~ %s)\n",
		r.PeriodStart.Format("2006-01-02 15:04"), r.PeriodEnd.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "조회 %d회, 문의 %d건", r.TotalViews, r.Inquiries)
	for _, a := range r.Actors {
		fmt.Fprintf(&b, "\n- %s: %d회", a.ActorName, a.TotalViews)
		if a.AvgDurationSeconds > 0 {
			fmt.Fprintf(&b, " (평균 %s)", accesslog.FormatDuration(a.AvgDurationSeconds))
		}
	}
	return b.String()
}
