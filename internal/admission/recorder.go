package admission

import (
	"context"

	"ms-admission/internal/models"
	"ms-admission/internal/utils"
)

type EntryLogWriter interface {
	InsertEntryLog(ctx context.Context, log *models.EntryLog) error
}

// Recorder persists one entry log per judged attempt.
type Recorder struct {
	Entries EntryLogWriter
	Clock   utils.Clock
}

func NewRecorder(entries EntryLogWriter, clock utils.Clock) *Recorder {
	return &Recorder{Entries: entries, Clock: clock}
}

// Record stamps the attempt with the current time and stores it. On error nothing is stored.
func (r *Recorder) Record(ctx context.Context, passNumber string, result models.Result, comment string, isReentry bool) (*models.EntryLog, error) {
	log := &models.EntryLog{
		PassNumber: passNumber,
		EntryTime:  r.Clock.Now(),
		Result:     result,
		Comment:    comment,
		IsReentry:  isReentry,
	}
	if err := r.Entries.InsertEntryLog(ctx, log); err != nil {
		return nil, err
	}
	return log, nil
}

// RecordVerdict stores v for passNumber.
func (r *Recorder) RecordVerdict(ctx context.Context, passNumber string, v models.Verdict) (*models.EntryLog, error) {
	return r.Record(ctx, passNumber, v.Result, v.Comment, v.IsReentry)
}
