package tickets

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-admission/internal/apperrors"
	"ms-admission/internal/database/dbtest"
	"ms-admission/internal/logger"
	"ms-admission/internal/models"
	"ms-admission/internal/tickets/db"
	"ms-admission/internal/utils"
)

func setupService(t *testing.T) (*TicketService, *utils.FixedClock) {
	t.Helper()
	clock := &utils.FixedClock{T: time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)}
	return NewTicketService(&db.DB{Bun: dbtest.New(t)}, clock, logger.Nop()), clock
}

func validRequest(number string) models.CreateTicketRequest {
	return models.CreateTicketRequest{
		PassNumber: number,
		Age:        json.Number("35"),
		Gender:     "male",
		TicketType: "adult",
		StartDate:  "2024-01-10",
	}
}

func strPtr(s string) *string { return &s }

func TestRegisterTicketComputesExpiry(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	req := validRequest(" T001 ")
	req.Remarks = strPtr("gift")
	req.PreviousPassNumber = strPtr("")
	ticket, err := svc.RegisterTicket(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, "T001", ticket.PassNumber)
	assert.Equal(t, "2025-01-09", ticket.ExpiryDate.Format(utils.DateLayout))
	assert.Nil(t, ticket.PreviousPassNumber)
	require.NotNil(t, ticket.Remarks)

	stored, err := svc.GetTicket(ctx, "T001")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-09", stored.ExpiryDate.UTC().Format(utils.DateLayout))
	assert.Equal(t, 35, stored.Age)
}

func TestRegisterTicketAggregatesValidationErrors(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.RegisterTicket(context.Background(), models.CreateTicketRequest{
		PassNumber: "  ",
		Age:        json.Number("151"),
		Gender:     "unknown",
		TicketType: "senior",
		StartDate:  "2024/01/10",
	})
	require.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	_, details := apperrors.PublicMessage(err)
	assert.Len(t, details, 5)
}

func TestRegisterDuplicateIsConflict(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.RegisterTicket(ctx, validRequest("T001"))
	require.NoError(t, err)
	_, err = svc.RegisterTicket(ctx, validRequest("T001"))
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
}

func TestGetTicketNotFound(t *testing.T) {
	svc, _ := setupService(t)
	_, err := svc.GetTicket(context.Background(), "NOPE")
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestUpdateTicketPartial(t *testing.T) {
	svc, clock := setupService(t)
	ctx := context.Background()
	_, err := svc.RegisterTicket(ctx, validRequest("T001"))
	require.NoError(t, err)

	clock.Advance(time.Hour)
	age := json.Number("12")
	ticket, err := svc.UpdateTicket(ctx, "T001", models.UpdateTicketRequest{
		Age:        &age,
		TicketType: strPtr("child"),
		StartDate:  strPtr("2024-02-01"),
		Remarks:    strPtr("upgraded"),
	})
	require.NoError(t, err)

	assert.Equal(t, 12, ticket.Age)
	assert.Equal(t, models.TicketTypeChild, ticket.TicketType)
	assert.Equal(t, models.GenderMale, ticket.Gender)
	// Expiry is kept as registered.
	assert.Equal(t, "2025-01-09", ticket.ExpiryDate.UTC().Format(utils.DateLayout))
	assert.True(t, ticket.UpdatedAt.Equal(clock.Now()))

	stored, err := svc.GetTicket(ctx, "T001")
	require.NoError(t, err)
	assert.Equal(t, "upgraded", *stored.Remarks)
	assert.Equal(t, "2024-02-01", stored.StartDate.UTC().Format(utils.DateLayout))
}

func TestUpdateTicketRejectsInvalidFields(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	_, err := svc.RegisterTicket(ctx, validRequest("T001"))
	require.NoError(t, err)

	_, err = svc.UpdateTicket(ctx, "T001", models.UpdateTicketRequest{
		Gender:     strPtr("x"),
		ExpiryDate: strPtr("tomorrow"),
	})
	require.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	_, details := apperrors.PublicMessage(err)
	assert.Len(t, details, 2)

	stored, err := svc.GetTicket(ctx, "T001")
	require.NoError(t, err)
	assert.Equal(t, models.GenderMale, stored.Gender)

	_, err = svc.UpdateTicket(ctx, "NOPE", models.UpdateTicketRequest{})
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestDeleteTicket(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	_, err := svc.RegisterTicket(ctx, validRequest("T001"))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTicket(ctx, "T001"))
	assert.True(t, apperrors.IsKind(svc.DeleteTicket(ctx, "T001"), apperrors.KindNotFound))
}

func TestImportCSVPartialSuccess(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	_, err := svc.RegisterTicket(ctx, validRequest("DUP"))
	require.NoError(t, err)

	input := "tkt_number,age,gender,ticket_type,start_date,remarks\n" +
		"T001,30,male,adult,2024/01/10,first\n" +
		"T002,abc,female,adult,2024/01/10,\n" +
		"DUP,20,other,child,2024-03-01,\n" +
		"\n" +
		"T003,8,female,child,2024-03-01,\n"

	result, err := svc.ImportCSV(ctx, strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 2, result.ErrorCount)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, "TKT T002: age must be a number", result.Errors[0])
	assert.Equal(t, "TKT DUP: ticket DUP already exists", result.Errors[1])

	ticket, err := svc.GetTicket(ctx, "T001")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-09", ticket.ExpiryDate.UTC().Format(utils.DateLayout))
	assert.Equal(t, "first", *ticket.Remarks)

	count, err := svc.CountTickets(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestImportCSVToleratesBareQuotes(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	input := "tkt_number,age,gender,ticket_type,start_date,remarks\n" +
		"P1,30,male,adult,2024/01/10,ok\n" +
		"P2,40,female,adult,2024/01/10,say \"hi\" there\n" +
		"P3,8,other,child,2024/01/10,ok\n"

	result, err := svc.ImportCSV(ctx, strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 3, result.SuccessCount)
	assert.Zero(t, result.ErrorCount)

	p2, err := svc.GetTicket(ctx, "P2")
	require.NoError(t, err)
	require.NotNil(t, p2.Remarks)
	assert.Equal(t, `say "hi" there`, *p2.Remarks)

	_, err = svc.GetTicket(ctx, "P3")
	assert.NoError(t, err)
}

func TestImportCSVMalformedRowDoesNotAbortBatch(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	input := "tkt_number,age,gender,ticket_type,start_date,remarks\n" +
		"P1,30,male,adult,2024/01/10,\n" +
		"P2,4\"0,female,adult,2024/01/10,\n" +
		"P3,8,other,child,2024/01/10,\n"

	result, err := svc.ImportCSV(ctx, strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 1, result.ErrorCount)
	assert.Equal(t, 3, result.SuccessCount+result.ErrorCount)
	assert.Equal(t, []string{"TKT P2: age must be a number"}, result.Errors)

	for _, number := range []string{"P1", "P3"} {
		_, err := svc.GetTicket(ctx, number)
		assert.NoError(t, err, number)
	}
}

func TestImportCSVAcceptsUnpaddedDates(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	input := "tkt_number,age,gender,ticket_type,start_date,remarks\n" +
		"Q1,30,男性,大人,2024/1/5,\n" +
		"Q2,30,female,adult,2024-2-3,\n" +
		"Q3,30,male,adult,5 Jan 2024,\n"

	result, err := svc.ImportCSV(ctx, strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, []string{"TKT Q3: start_date must be a date in YYYY/MM/DD format"}, result.Errors)

	q1, err := svc.GetTicket(ctx, "Q1")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-05", q1.StartDate.UTC().Format(utils.DateLayout))
	assert.Equal(t, "2025-01-04", q1.ExpiryDate.UTC().Format(utils.DateLayout))

	q2, err := svc.GetTicket(ctx, "Q2")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-03", q2.StartDate.UTC().Format(utils.DateLayout))
}

func TestImportCSVJapaneseHeadersAndLabels(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	input := "\uFEFFTKT番号,年齢,性別,券種,使用開始日,備考\n" +
		"J001,40,女性,大人,2024/04/01,\n" +
		"J002,7,男性,子供,2024/04/01,family\n"

	result, err := svc.ImportCSV(ctx, strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Zero(t, result.ErrorCount)

	j1, err := svc.GetTicket(ctx, "J001")
	require.NoError(t, err)
	assert.Equal(t, models.GenderFemale, j1.Gender)
	assert.Equal(t, models.TicketTypeAdult, j1.TicketType)
	assert.Nil(t, j1.Remarks)

	j2, err := svc.GetTicket(ctx, "J002")
	require.NoError(t, err)
	assert.Equal(t, models.TicketTypeChild, j2.TicketType)
}

func TestImportCSVRejectsBadHeader(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.ImportCSV(context.Background(), strings.NewReader("number,age\nT1,3\n"))
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	_, err = svc.ImportCSV(context.Background(), strings.NewReader(""))
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestExportCSVRoundTrips(t *testing.T) {
	svc, clock := setupService(t)
	ctx := context.Background()

	req := validRequest("T001")
	req.Remarks = strPtr("note, with comma")
	_, err := svc.RegisterTicket(ctx, req)
	require.NoError(t, err)
	clock.Advance(time.Minute)
	_, err = svc.RegisterTicket(ctx, validRequest("T002"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportCSV(ctx, &buf))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "\uFEFF"))
	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(out, "\uFEFF")), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "TKT番号,年齢,性別,券種,使用開始日,有効期限,備考", lines[0])
	assert.Equal(t, "T002,35,male,adult,2024/01/10,2025/01/09,", lines[1])
	assert.Equal(t, `T001,35,male,adult,2024/01/10,2025/01/09,"note, with comma"`, lines[2])

	// The export is importable into an empty store.
	other, _ := setupService(t)
	result, err := other.ImportCSV(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 2, result.SuccessCount)
}
