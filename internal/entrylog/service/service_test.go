package entrylog

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-admission/internal/apperrors"
	"ms-admission/internal/database/dbtest"
	entrydb "ms-admission/internal/entrylog/db"
	"ms-admission/internal/logger"
	"ms-admission/internal/models"
	ticketdb "ms-admission/internal/tickets/db"
	"ms-admission/internal/utils"
)

var tokyo = time.FixedZone("JST", 9*60*60)

type fixture struct {
	svc     *HistoryService
	entries *entrydb.DB
	tickets *ticketdb.DB
	clock   *utils.FixedClock
}

func setup(t *testing.T) *fixture {
	t.Helper()
	bunDB := dbtest.New(t)
	f := &fixture{
		entries: &entrydb.DB{Bun: bunDB},
		tickets: &ticketdb.DB{Bun: bunDB},
		clock:   &utils.FixedClock{T: time.Date(2024, 5, 1, 12, 0, 0, 0, tokyo)},
	}
	f.svc = NewHistoryService(f.entries, f.tickets, f.clock, tokyo, logger.Nop())
	return f
}

func (f *fixture) record(t *testing.T, number string, at time.Time, result models.Result, comment string, reentry bool) *models.EntryLog {
	t.Helper()
	log := &models.EntryLog{PassNumber: number, EntryTime: at, Result: result, Comment: comment, IsReentry: reentry}
	require.NoError(t, f.entries.InsertEntryLog(context.Background(), log))
	return log
}

func (f *fixture) register(t *testing.T, number string) {
	t.Helper()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Now().UTC()
	require.NoError(t, f.tickets.CreateTicket(context.Background(), &models.Ticket{
		PassNumber: number,
		Age:        20,
		Gender:     models.GenderMale,
		TicketType: models.TicketTypeAdult,
		StartDate:  start,
		ExpiryDate: models.ExpiryFor(start),
		CreatedAt:  now,
		UpdatedAt:  now,
	}))
}

func strPtr(s string) *string { return &s }

func TestListHistoryFiltersAndLimits(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, tokyo)

	f.record(t, "T001", base, models.ResultOK, "", false)
	f.record(t, "T002", base.Add(time.Hour), models.ResultNG, models.CommentNotRegistered, false)
	f.record(t, "T001", base.Add(2*time.Hour), models.ResultOK, models.CommentReentry, true)

	all, err := f.svc.ListHistory(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].IsReentry)

	own, err := f.svc.ListHistory(ctx, " T001 ", 0)
	require.NoError(t, err)
	assert.Len(t, own, 2)

	latest, err := f.svc.ListHistory(ctx, "", 1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "T001", latest[0].PassNumber)
}

func TestUpdateEntryPartial(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	log := f.record(t, "T001", time.Date(2024, 5, 1, 9, 0, 0, 0, tokyo), models.ResultOK, "", false)

	updated, err := f.svc.UpdateEntry(ctx, log.ID, models.UpdateEntryLogRequest{
		Comment: strPtr("gate 3"),
	})
	require.NoError(t, err)
	assert.Equal(t, "gate 3", updated.Comment)
	assert.Equal(t, models.ResultOK, updated.Result)

	reentry := true
	updated, err = f.svc.UpdateEntry(ctx, log.ID, models.UpdateEntryLogRequest{
		EntryTime: strPtr("2024-05-01T10:30:00"),
		Result:    strPtr("NG"),
		IsReentry: &reentry,
	})
	require.NoError(t, err)

	got, err := f.svc.GetEntry(ctx, log.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ResultNG, got.Result)
	assert.Equal(t, "gate 3", got.Comment)
	assert.True(t, got.IsReentry)
	assert.True(t, got.EntryTime.Equal(time.Date(2024, 5, 1, 10, 30, 0, 0, tokyo)), "naive time read in venue zone")
	assert.True(t, updated.EntryTime.Equal(got.EntryTime))
}

func TestUpdateEntryAcceptsOffsetTime(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	log := f.record(t, "T001", time.Date(2024, 5, 1, 9, 0, 0, 0, tokyo), models.ResultOK, "", false)

	_, err := f.svc.UpdateEntry(ctx, log.ID, models.UpdateEntryLogRequest{
		EntryTime: strPtr("2024-05-01T01:00:00Z"),
	})
	require.NoError(t, err)

	got, err := f.svc.GetEntry(ctx, log.ID)
	require.NoError(t, err)
	assert.True(t, got.EntryTime.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, tokyo)))
}

func TestUpdateEntryRejectsBadInput(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	log := f.record(t, "T001", time.Date(2024, 5, 1, 9, 0, 0, 0, tokyo), models.ResultOK, "", false)

	_, err := f.svc.UpdateEntry(ctx, log.ID, models.UpdateEntryLogRequest{
		EntryTime: strPtr("yesterday"),
		Result:    strPtr("MAYBE"),
		Comment:   strPtr("ignored"),
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	got, err := f.svc.GetEntry(ctx, log.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ResultOK, got.Result)
	assert.Empty(t, got.Comment)

	_, err = f.svc.UpdateEntry(ctx, log.ID+100, models.UpdateEntryLogRequest{Comment: strPtr("x")})
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestDeleteEntry(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	log := f.record(t, "T001", time.Date(2024, 5, 1, 9, 0, 0, 0, tokyo), models.ResultOK, "", false)

	require.NoError(t, f.svc.DeleteEntry(ctx, log.ID))

	_, err := f.svc.GetEntry(ctx, log.ID)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
	assert.True(t, apperrors.IsKind(f.svc.DeleteEntry(ctx, log.ID), apperrors.KindNotFound))
}

func TestExportCSV(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first := f.record(t, "T001", time.Date(2024, 5, 1, 9, 5, 7, 0, tokyo), models.ResultOK, "", false)
	second := f.record(t, "T001", time.Date(2024, 5, 1, 13, 0, 0, 0, tokyo), models.ResultOK, models.CommentReentry, true)

	var buf bytes.Buffer
	require.NoError(t, f.svc.ExportCSV(ctx, &buf))

	out := buf.String()
	require.True(t, strings.HasPrefix(out, "\uFEFF"))

	rows, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(out, "\uFEFF"))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"ID", "TKT番号", "入園時間", "判定結果", "コメント", "再入場"}, rows[0])
	assert.Equal(t, []string{itoa(second.ID), "T001", "2024/05/01 13:00:00", "OK", models.CommentReentry, "○"}, rows[1])
	assert.Equal(t, []string{itoa(first.ID), "T001", "2024/05/01 09:05:07", "OK", "", ""}, rows[2])
}

func TestDailyStatsDefaultsToVenueToday(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.register(t, "T001")
	f.register(t, "T002")

	// 00:30 JST on May 1st is still April 30th in UTC.
	f.record(t, "T001", time.Date(2024, 5, 1, 0, 30, 0, 0, tokyo), models.ResultOK, "", false)
	f.record(t, "T001", time.Date(2024, 5, 1, 11, 0, 0, 0, tokyo), models.ResultOK, models.CommentReentry, true)
	f.record(t, "GHOST", time.Date(2024, 5, 1, 11, 5, 0, 0, tokyo), models.ResultNG, models.CommentNotRegistered, false)
	f.record(t, "T002", time.Date(2024, 4, 30, 23, 59, 0, 0, tokyo), models.ResultOK, "", false)

	stats, err := f.svc.DailyStats(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01", stats.Date)
	assert.Equal(t, 2, stats.TotalTickets)
	assert.Equal(t, models.DailySummary{Total: 3, OK: 2, NG: 1, Reentry: 1}, stats.DailySummary)

	prev, err := f.svc.DailyStats(ctx, "2024-04-30")
	require.NoError(t, err)
	assert.Equal(t, "2024-04-30", prev.Date)
	assert.Equal(t, 1, prev.Total)

	_, err = f.svc.DailyStats(ctx, "30/04/2024")
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }
