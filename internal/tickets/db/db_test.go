package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-admission/internal/apperrors"
	"ms-admission/internal/database/dbtest"
	"ms-admission/internal/models"
	"ms-admission/internal/tickets/db"
)

func setupTestDB(t *testing.T) *db.DB {
	return &db.DB{Bun: dbtest.New(t)}
}

func newTicket(number string, start time.Time, created time.Time) *models.Ticket {
	return &models.Ticket{
		PassNumber: number,
		Age:        30,
		Gender:     models.GenderFemale,
		TicketType: models.TicketTypeAdult,
		StartDate:  start,
		ExpiryDate: models.ExpiryFor(start),
		CreatedAt:  created,
		UpdatedAt:  created,
	}
}

func TestCreateAndFindTicket(t *testing.T) {
	ctx := context.Background()
	ticketDB := setupTestDB(t)

	start := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	remarks := "front desk"
	in := newTicket("T001", start, time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC))
	in.Remarks = &remarks
	require.NoError(t, ticketDB.CreateTicket(ctx, in))

	got, err := ticketDB.FindTicketByNumber(ctx, "T001")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "T001", got.PassNumber)
	assert.Equal(t, models.GenderFemale, got.Gender)
	assert.True(t, got.StartDate.Equal(start))
	assert.True(t, got.ExpiryDate.Equal(time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC)))
	require.NotNil(t, got.Remarks)
	assert.Equal(t, "front desk", *got.Remarks)
	assert.Nil(t, got.PreviousPassNumber)

	missing, err := ticketDB.FindTicketByNumber(ctx, "NOPE")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCreateDuplicateIsConflict(t *testing.T) {
	ctx := context.Background()
	ticketDB := setupTestDB(t)
	now := time.Now().UTC()

	require.NoError(t, ticketDB.CreateTicket(ctx, newTicket("T001", now, now)))
	err := ticketDB.CreateTicket(ctx, newTicket("T001", now, now))

	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
}

func TestNullExpiryRoundTrips(t *testing.T) {
	ctx := context.Background()
	ticketDB := setupTestDB(t)
	now := time.Now().UTC()

	in := newTicket("T001", now, now)
	in.ExpiryDate = time.Time{}
	require.NoError(t, ticketDB.CreateTicket(ctx, in))

	got, err := ticketDB.FindTicketByNumber(ctx, "T001")
	require.NoError(t, err)
	assert.True(t, got.ExpiryDate.IsZero())
}

func TestListTicketsNewestFirst(t *testing.T) {
	ctx := context.Background()
	ticketDB := setupTestDB(t)
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, ticketDB.CreateTicket(ctx, newTicket("A", base, base)))
	require.NoError(t, ticketDB.CreateTicket(ctx, newTicket("B", base, base.Add(time.Hour))))
	require.NoError(t, ticketDB.CreateTicket(ctx, newTicket("C", base, base.Add(30*time.Minute))))

	tickets, err := ticketDB.ListTickets(ctx)
	require.NoError(t, err)
	require.Len(t, tickets, 3)
	assert.Equal(t, "B", tickets[0].PassNumber)
	assert.Equal(t, "C", tickets[1].PassNumber)
	assert.Equal(t, "A", tickets[2].PassNumber)

	count, err := ticketDB.CountTickets(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestUpdateTicket(t *testing.T) {
	ctx := context.Background()
	ticketDB := setupTestDB(t)
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	in := newTicket("T001", now, now)
	require.NoError(t, ticketDB.CreateTicket(ctx, in))

	in.Age = 12
	in.TicketType = models.TicketTypeChild
	in.UpdatedAt = now.Add(time.Hour)
	require.NoError(t, ticketDB.UpdateTicket(ctx, in))

	got, err := ticketDB.FindTicketByNumber(ctx, "T001")
	require.NoError(t, err)
	assert.Equal(t, 12, got.Age)
	assert.Equal(t, models.TicketTypeChild, got.TicketType)
	assert.True(t, got.UpdatedAt.Equal(now.Add(time.Hour)))

	err = ticketDB.UpdateTicket(ctx, newTicket("NOPE", now, now))
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestDeleteTicketCascadesEntryLogs(t *testing.T) {
	ctx := context.Background()
	ticketDB := setupTestDB(t)
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, ticketDB.CreateTicket(ctx, newTicket("T001", now, now)))
	for _, number := range []string{"T001", "T001", "T002"} {
		_, err := ticketDB.Bun.NewInsert().Model(&models.EntryLog{
			PassNumber: number,
			EntryTime:  now,
			Result:     models.ResultOK,
			CreatedAt:  now,
		}).Exec(ctx)
		require.NoError(t, err)
	}

	require.NoError(t, ticketDB.DeleteTicketCascade(ctx, "T001"))

	got, err := ticketDB.FindTicketByNumber(ctx, "T001")
	require.NoError(t, err)
	assert.Nil(t, got)

	remaining, err := ticketDB.Bun.NewSelect().Model((*models.EntryLog)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)

	err = ticketDB.DeleteTicketCascade(ctx, "T001")
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestDeleteMissingTicketKeepsOrphanLogs(t *testing.T) {
	ctx := context.Background()
	ticketDB := setupTestDB(t)
	now := time.Now().UTC()

	_, err := ticketDB.Bun.NewInsert().Model(&models.EntryLog{
		PassNumber: "GHOST",
		EntryTime:  now,
		Result:     models.ResultNG,
		Comment:    models.CommentNotRegistered,
		CreatedAt:  now,
	}).Exec(ctx)
	require.NoError(t, err)

	err = ticketDB.DeleteTicketCascade(ctx, "GHOST")
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))

	remaining, err := ticketDB.Bun.NewSelect().Model((*models.EntryLog)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, remaining, "rolled back")
}
