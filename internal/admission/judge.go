package admission

import (
	"context"
	"time"

	"ms-admission/internal/models"
	"ms-admission/internal/utils"
)

type TicketFinder interface {
	FindTicketByNumber(ctx context.Context, passNumber string) (*models.Ticket, error)
}

type EntryCounter interface {
	CountOKEntriesInRange(ctx context.Context, passNumber string, start, end time.Time) (int, error)
}

// Judge decides whether a presented pass is admitted. It only reads.
type Judge struct {
	Tickets TicketFinder
	Entries EntryCounter
	Clock   utils.Clock
}

func NewJudge(tickets TicketFinder, entries EntryCounter, clock utils.Clock) *Judge {
	return &Judge{Tickets: tickets, Entries: entries, Clock: clock}
}

// Judge returns the verdict for passNumber. "not registered" and "expired" come back as
// verdicts; the error is reserved for storage failures.
func (j *Judge) Judge(ctx context.Context, passNumber string) (models.Verdict, error) {
	ticket, err := j.Tickets.FindTicketByNumber(ctx, passNumber)
	if err != nil {
		return models.Verdict{}, err
	}

	now := j.Clock.Now()
	if ticket == nil || IsExpired(ticket, now) {
		return Evaluate(ticket, now, 0), nil
	}

	start, end := utils.DayBounds(now)
	okToday, err := j.Entries.CountOKEntriesInRange(ctx, passNumber, start, end)
	if err != nil {
		return models.Verdict{}, err
	}
	return Evaluate(ticket, now, okToday), nil
}

// Evaluate is the admission rule. okCountToday is the number of admitted entries for the
// pass earlier on now's calendar day.
func Evaluate(ticket *models.Ticket, now time.Time, okCountToday int) models.Verdict {
	switch {
	case ticket == nil:
		return models.NotRegistered()
	case IsExpired(ticket, now):
		return models.Expired(ticket)
	default:
		return models.Admitted(ticket, okCountToday > 0)
	}
}

// IsExpired compares dates only. A pass is still valid on its expiry date; a missing
// expiry date counts as expired.
func IsExpired(ticket *models.Ticket, now time.Time) bool {
	if ticket.ExpiryDate.IsZero() {
		return true
	}
	return utils.StoredDate(ticket.ExpiryDate).Before(utils.CalendarDate(now))
}
