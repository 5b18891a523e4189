package tickets

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"ms-admission/internal/apperrors"
	"ms-admission/internal/models"
	"ms-admission/internal/utils"
	"ms-admission/internal/validation"
)

// UTF8BOM prefixes exported files so spreadsheet tools detect the encoding.
var UTF8BOM = []byte{0xEF, 0xBB, 0xBF}

const (
	colPassNumber = "tkt_number"
	colAge        = "age"
	colGender     = "gender"
	colTicketType = "ticket_type"
	colStartDate  = "start_date"
	colRemarks    = "remarks"
)

// headerAliases maps accepted header labels onto columns. The Japanese labels are the ones
// the ticket export writes.
var headerAliases = map[string]string{
	"tkt_number":  colPassNumber,
	"TKT番号":       colPassNumber,
	"age":         colAge,
	"年齢":          colAge,
	"gender":      colGender,
	"性別":          colGender,
	"ticket_type": colTicketType,
	"券種":          colTicketType,
	"start_date":  colStartDate,
	"使用開始日":       colStartDate,
	"remarks":     colRemarks,
	"備考":          colRemarks,
}

var requiredColumns = []string{colPassNumber, colAge, colGender, colTicketType, colStartDate}

var ticketExportHeader = []string{"TKT番号", "年齢", "性別", "券種", "使用開始日", "有効期限", "備考"}

// ImportCSV registers one pass per data row. Rows are committed one at a time, so a bad
// row never undoes the good ones. Only an unreadable file or header fails the whole import.
func (s *TicketService) ImportCSV(ctx context.Context, r io.Reader) (*models.ImportResult, error) {
	reader := csv.NewReader(skipBOM(r))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	// Spreadsheet remarks often carry bare quotes.
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, apperrors.Validation("csv file is empty")
	}
	if err != nil {
		return nil, apperrors.Validation(fmt.Sprintf("csv read error: %v", err))
	}
	cols, err := mapHeader(header)
	if err != nil {
		return nil, err
	}

	result := &models.ImportResult{Errors: []string{}}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			result.ErrorCount++
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", parseErr.StartLine, parseErr.Err))
			continue
		}
		if err != nil {
			return nil, apperrors.Validation(fmt.Sprintf("csv read error: %v", err))
		}
		if blank(record) {
			continue
		}

		get := func(col string) string {
			i, ok := cols[col]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		number := get(colPassNumber)
		if err := s.importRow(ctx, get); err != nil {
			msg, details := apperrors.PublicMessage(err)
			if len(details) > 0 {
				msg = strings.Join(details, ", ")
			}
			result.ErrorCount++
			result.Errors = append(result.Errors, fmt.Sprintf("TKT %s: %s", displayNumber(number), msg))
			continue
		}
		result.SuccessCount++
	}

	s.Logger.LogImport(result.SuccessCount, result.ErrorCount)
	return result, nil
}

func (s *TicketService) importRow(ctx context.Context, get func(string) string) error {
	ticket, err := s.buildTicket(validation.TicketInput{
		PassNumber: get(colPassNumber),
		Age:        get(colAge),
		Gender:     validation.NormalizeGender(get(colGender)),
		TicketType: validation.NormalizeTicketType(get(colTicketType)),
		StartDate:  normalizeDate(get(colStartDate)),
		DateFormat: importDateFormat,
	})
	if err != nil {
		return err
	}
	remarks := get(colRemarks)
	ticket.Remarks = optional(&remarks)
	return s.DB.CreateTicket(ctx, ticket)
}

// ExportCSV writes every pass, newest registration first, as UTF-8 with a BOM.
func (s *TicketService) ExportCSV(ctx context.Context, w io.Writer) error {
	tickets, err := s.DB.ListTickets(ctx)
	if err != nil {
		return err
	}

	if _, err := w.Write(UTF8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(ticketExportHeader); err != nil {
		return err
	}
	for _, t := range tickets {
		expiry := ""
		if !t.ExpiryDate.IsZero() {
			expiry = t.ExpiryDate.UTC().Format(exportDateLayout)
		}
		remarks := ""
		if t.Remarks != nil {
			remarks = *t.Remarks
		}
		if err := cw.Write([]string{
			t.PassNumber,
			strconv.Itoa(t.Age),
			string(t.Gender),
			string(t.TicketType),
			t.StartDate.UTC().Format(exportDateLayout),
			expiry,
			remarks,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

const exportDateLayout = "2006/01/02"

func mapHeader(header []string) (map[string]int, error) {
	cols := make(map[string]int)
	for i, h := range header {
		if col, ok := headerAliases[strings.TrimSpace(h)]; ok {
			if _, dup := cols[col]; !dup {
				cols[col] = i
			}
		}
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := cols[col]; !ok {
			missing = append(missing, "missing column "+col)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.Validation(missing...)
	}
	return cols, nil
}

// importDateLayouts accept YYYY/MM/DD, the spreadsheet format, and YYYY-MM-DD, with or
// without zero padding.
var importDateLayouts = []string{"2006/1/2", "2006-1-2"}

const importDateFormat = "YYYY/MM/DD"

// normalizeDate rewrites an import date as YYYY-MM-DD. Unparseable values are returned
// as given so validation reports them.
func normalizeDate(v string) string {
	for _, layout := range importDateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format(utils.DateLayout)
		}
	}
	return v
}

func parseAge(v string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(v))
}

func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(UTF8BOM)); err == nil && bytes.Equal(b, UTF8BOM) {
		br.Discard(len(UTF8BOM))
	}
	return br
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func displayNumber(n string) string {
	if n == "" {
		return "(blank)"
	}
	return n
}
