package models

import (
	"time"

	"github.com/uptrace/bun"
)

// TicketValidityDays is the length of an annual pass. Plain day addition, so a pass
// starting 2024-01-10 expires 2025-01-09 across the leap day.
const TicketValidityDays = 365

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

type TicketType string

const (
	TicketTypeAdult TicketType = "adult"
	TicketTypeChild TicketType = "child"
)

func (t TicketType) Valid() bool {
	return t == TicketTypeAdult || t == TicketTypeChild
}

// Ticket is one annual pass. Dates are calendar dates held as midnight UTC.
type Ticket struct {
	bun.BaseModel `bun:"table:tickets"`

	PassNumber         string     `bun:"tkt_number,pk"`
	Age                int        `bun:"age,notnull"`
	Gender             Gender     `bun:"gender,notnull"`
	TicketType         TicketType `bun:"ticket_type,notnull"`
	StartDate          time.Time  `bun:"start_date,notnull"`
	ExpiryDate         time.Time  `bun:"expiry_date,nullzero"`
	IsTransfer         bool       `bun:"is_transfer,notnull"`
	PreviousPassNumber *string    `bun:"previous_tkt_number"`
	Remarks            *string    `bun:"remarks"`
	CreatedAt          time.Time  `bun:"created_at,notnull"`
	UpdatedAt          time.Time  `bun:"updated_at,notnull"`
}

// ExpiryFor returns the expiry date of a pass starting on start.
func ExpiryFor(start time.Time) time.Time {
	return start.AddDate(0, 0, TicketValidityDays)
}
