package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Result string

const (
	ResultOK Result = "OK"
	ResultNG Result = "NG"
)

func (r Result) Valid() bool {
	return r == ResultOK || r == ResultNG
}

// Judgement comments stored on entry logs.
const (
	CommentNotRegistered = "not registered"
	CommentExpired       = "expired"
	CommentReentry       = "re-entry"
)

// EntryLog is one admission attempt. PassNumber is deliberately not a foreign key:
// attempts with unregistered numbers are logged too.
type EntryLog struct {
	bun.BaseModel `bun:"table:entry_logs"`

	ID         int64     `bun:"id,pk,autoincrement"`
	PassNumber string    `bun:"tkt_number,notnull"`
	EntryTime  time.Time `bun:"entry_time,notnull"`
	Result     Result    `bun:"result,notnull"`
	Comment    string    `bun:"comment"`
	IsReentry  bool      `bun:"is_reentry,notnull"`
	CreatedAt  time.Time `bun:"created_at,notnull"`
}

// EntryLogFilter narrows history listings. Zero values mean no filter.
type EntryLogFilter struct {
	PassNumber string
	Limit      int
}

// DailySummary aggregates one calendar day of admission attempts.
type DailySummary struct {
	Total   int `json:"total"`
	OK      int `json:"ok"`
	NG      int `json:"ng"`
	Reentry int `json:"reentry"`
}
