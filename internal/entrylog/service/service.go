package entrylog

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"ms-admission/internal/apperrors"
	"ms-admission/internal/logger"
	"ms-admission/internal/models"
	"ms-admission/internal/utils"
	"ms-admission/internal/validation"
)

type EntryLogDBLayer interface {
	ListEntryLogs(ctx context.Context, filter models.EntryLogFilter) ([]models.EntryLog, error)
	GetEntryLog(ctx context.Context, id int64) (*models.EntryLog, error)
	UpdateEntryLog(ctx context.Context, log *models.EntryLog) error
	DeleteEntryLog(ctx context.Context, id int64) error
	DailySummary(ctx context.Context, start, end time.Time) (models.DailySummary, error)
}

type TicketCounter interface {
	CountTickets(ctx context.Context) (int, error)
}

var historyExportHeader = []string{"ID", "TKT番号", "入園時間", "判定結果", "コメント", "再入場"}

const (
	utf8BOM          = "\uFEFF"
	exportTimeLayout = "2006/01/02 15:04:05"
	reentryMark      = "○"
)

// localTimeLayouts are accepted for corrected entry times without an offset; they are
// read in the venue zone.
var localTimeLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
}

type HistoryService struct {
	DB       EntryLogDBLayer
	Tickets  TicketCounter
	Clock    utils.Clock
	Location *time.Location
	Logger   *logger.Logger
}

func NewHistoryService(db EntryLogDBLayer, tickets TicketCounter, clock utils.Clock, loc *time.Location, log *logger.Logger) *HistoryService {
	return &HistoryService{DB: db, Tickets: tickets, Clock: clock, Location: loc, Logger: log}
}

// ListHistory returns attempts newest first. limit <= 0 means all.
func (s *HistoryService) ListHistory(ctx context.Context, passNumber string, limit int) ([]models.EntryLog, error) {
	return s.DB.ListEntryLogs(ctx, models.EntryLogFilter{
		PassNumber: strings.TrimSpace(passNumber),
		Limit:      limit,
	})
}

func (s *HistoryService) GetEntry(ctx context.Context, id int64) (*models.EntryLog, error) {
	return s.DB.GetEntryLog(ctx, id)
}

// UpdateEntry corrects a recorded attempt; only the provided fields change.
func (s *HistoryService) UpdateEntry(ctx context.Context, id int64, req models.UpdateEntryLogRequest) (*models.EntryLog, error) {
	log, err := s.DB.GetEntryLog(ctx, id)
	if err != nil {
		return nil, err
	}

	var msgs []string
	if req.EntryTime != nil {
		t, err := s.parseEntryTime(*req.EntryTime)
		if err != nil {
			msgs = append(msgs, "entry_time must be an ISO 8601 timestamp")
		} else {
			log.EntryTime = t
		}
	}
	if req.Result != nil {
		if fe := validation.Result(*req.Result); fe != nil {
			msgs = append(msgs, fe.Message)
		} else {
			log.Result = models.Result(*req.Result)
		}
	}
	if len(msgs) > 0 {
		return nil, apperrors.Validation(msgs...)
	}

	if req.Comment != nil {
		log.Comment = *req.Comment
	}
	if req.IsReentry != nil {
		log.IsReentry = *req.IsReentry
	}

	if err := s.DB.UpdateEntryLog(ctx, log); err != nil {
		return nil, err
	}
	s.Logger.LogDatabase("UPDATE", "entry_logs", strconv.FormatInt(id, 10))
	return log, nil
}

func (s *HistoryService) DeleteEntry(ctx context.Context, id int64) error {
	if err := s.DB.DeleteEntryLog(ctx, id); err != nil {
		return err
	}
	s.Logger.LogDatabase("DELETE", "entry_logs", strconv.FormatInt(id, 10))
	return nil
}

// ExportCSV writes the whole history, newest first, as UTF-8 with a BOM. Times are
// rendered in the venue zone.
func (s *HistoryService) ExportCSV(ctx context.Context, w io.Writer) error {
	logs, err := s.DB.ListEntryLogs(ctx, models.EntryLogFilter{})
	if err != nil {
		return err
	}

	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(historyExportHeader); err != nil {
		return err
	}
	for _, l := range logs {
		mark := ""
		if l.IsReentry {
			mark = reentryMark
		}
		if err := cw.Write([]string{
			strconv.FormatInt(l.ID, 10),
			l.PassNumber,
			l.EntryTime.In(s.Location).Format(exportTimeLayout),
			string(l.Result),
			l.Comment,
			mark,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// DailyStats summarises one venue calendar day; an empty date means today.
func (s *HistoryService) DailyStats(ctx context.Context, date string) (*models.DailyStats, error) {
	day := s.Clock.Now().In(s.Location)
	if date != "" {
		d, err := time.ParseInLocation(utils.DateLayout, date, s.Location)
		if err != nil {
			return nil, apperrors.Validation("date must be a date in YYYY-MM-DD format")
		}
		day = d
	}

	start, end := utils.DayBounds(day)
	summary, err := s.DB.DailySummary(ctx, start, end)
	if err != nil {
		return nil, err
	}
	total, err := s.Tickets.CountTickets(ctx)
	if err != nil {
		return nil, err
	}

	return &models.DailyStats{
		Date:         start.Format(utils.DateLayout),
		TotalTickets: total,
		DailySummary: summary,
	}, nil
}

func (s *HistoryService) parseEntryTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t, nil
	}
	var lastErr error
	for _, layout := range localTimeLayouts {
		t, err := time.ParseInLocation(layout, v, s.Location)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
