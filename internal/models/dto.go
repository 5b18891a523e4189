package models

import (
	"encoding/json"
	"time"
)

const dateLayout = "2006-01-02"

// ---------------- REQUESTS ----------------

type JudgeRequest struct {
	PassNumber string `json:"tkt_number"`
}

type CreateTicketRequest struct {
	PassNumber         string      `json:"tkt_number"`
	Age                json.Number `json:"age"`
	Gender             string      `json:"gender"`
	TicketType         string      `json:"ticket_type"`
	StartDate          string      `json:"start_date"`
	IsTransfer         bool        `json:"is_transfer"`
	PreviousPassNumber *string     `json:"previous_tkt_number"`
	Remarks            *string     `json:"remarks"`
}

// UpdateTicketRequest is a partial update: nil fields are left untouched.
type UpdateTicketRequest struct {
	Age                *json.Number `json:"age"`
	Gender             *string      `json:"gender"`
	TicketType         *string      `json:"ticket_type"`
	StartDate          *string      `json:"start_date"`
	ExpiryDate         *string      `json:"expiry_date"`
	IsTransfer         *bool        `json:"is_transfer"`
	PreviousPassNumber *string      `json:"previous_tkt_number"`
	Remarks            *string      `json:"remarks"`
}

// UpdateEntryLogRequest corrects a history row; nil fields are left untouched.
type UpdateEntryLogRequest struct {
	EntryTime *string `json:"entry_time"`
	Result    *string `json:"result"`
	Comment   *string `json:"comment"`
	IsReentry *bool   `json:"is_reentry"`
}

// ---------------- RESPONSES ----------------

type TicketResponse struct {
	PassNumber         string  `json:"tkt_number"`
	Age                int     `json:"age"`
	Gender             string  `json:"gender"`
	TicketType         string  `json:"ticket_type"`
	StartDate          string  `json:"start_date"`
	ExpiryDate         *string `json:"expiry_date"`
	IsTransfer         bool    `json:"is_transfer"`
	PreviousPassNumber *string `json:"previous_tkt_number"`
	Remarks            *string `json:"remarks"`
	CreatedAt          string  `json:"created_at"`
	UpdatedAt          string  `json:"updated_at"`
}

func (t *Ticket) ToResponse(loc *time.Location) *TicketResponse {
	if t == nil {
		return nil
	}
	res := &TicketResponse{
		PassNumber:         t.PassNumber,
		Age:                t.Age,
		Gender:             string(t.Gender),
		TicketType:         string(t.TicketType),
		StartDate:          t.StartDate.UTC().Format(dateLayout),
		IsTransfer:         t.IsTransfer,
		PreviousPassNumber: t.PreviousPassNumber,
		Remarks:            t.Remarks,
		CreatedAt:          t.CreatedAt.In(loc).Format(time.RFC3339),
		UpdatedAt:          t.UpdatedAt.In(loc).Format(time.RFC3339),
	}
	if !t.ExpiryDate.IsZero() {
		s := t.ExpiryDate.UTC().Format(dateLayout)
		res.ExpiryDate = &s
	}
	return res
}

type EntryLogResponse struct {
	ID         int64  `json:"id"`
	PassNumber string `json:"tkt_number"`
	EntryTime  string `json:"entry_time"`
	Result     string `json:"result"`
	Comment    string `json:"comment"`
	IsReentry  bool   `json:"is_reentry"`
	CreatedAt  string `json:"created_at"`
}

func (l *EntryLog) ToResponse(loc *time.Location) *EntryLogResponse {
	if l == nil {
		return nil
	}
	return &EntryLogResponse{
		ID:         l.ID,
		PassNumber: l.PassNumber,
		EntryTime:  l.EntryTime.In(loc).Format(time.RFC3339Nano),
		Result:     string(l.Result),
		Comment:    l.Comment,
		IsReentry:  l.IsReentry,
		CreatedAt:  l.CreatedAt.In(loc).Format(time.RFC3339Nano),
	}
}

type VerdictResponse struct {
	Valid     bool            `json:"valid"`
	Result    string          `json:"result"`
	Comment   string          `json:"comment"`
	IsReentry bool            `json:"is_reentry"`
	Ticket    *TicketResponse `json:"ticket"`
}

func (v Verdict) ToResponse(loc *time.Location) VerdictResponse {
	return VerdictResponse{
		Valid:     v.Valid,
		Result:    string(v.Result),
		Comment:   v.Comment,
		IsReentry: v.IsReentry,
		Ticket:    v.Ticket.ToResponse(loc),
	}
}

type JudgeResponse struct {
	Success   bool              `json:"success"`
	Judgement VerdictResponse   `json:"judgement"`
	EntryLog  *EntryLogResponse `json:"entry_log"`
}

// ImportResult reports a CSV import; SuccessCount+ErrorCount equals the data rows read.
type ImportResult struct {
	SuccessCount int      `json:"success_count"`
	ErrorCount   int      `json:"error_count"`
	Errors       []string `json:"errors"`
}

type DailyStats struct {
	Date         string `json:"date"`
	TotalTickets int    `json:"total_tickets"`
	DailySummary
}
