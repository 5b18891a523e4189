package validation

import (
	"fmt"
	"strconv"
	"strings"

	"ms-admission/internal/models"
	"ms-admission/internal/utils"
)

const (
	MinAge = 0
	MaxAge = 150
)

// FieldError is a single failed check on one input field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string { return e.Message }

// Errors collects every failed field of one input.
type Errors []*FieldError

func (es Errors) Messages() []string {
	out := make([]string, 0, len(es))
	for _, e := range es {
		out = append(out, e.Message)
	}
	return out
}

// PassNumber requires a non-empty value after trimming whitespace.
func PassNumber(v string) *FieldError {
	if strings.TrimSpace(v) == "" {
		return &FieldError{Field: "tkt_number", Message: "tkt_number is required"}
	}
	return nil
}

// Age accepts the decimal form of an integer in [0,150].
func Age(v string) *FieldError {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return &FieldError{Field: "age", Message: "age must be a number"}
	}
	return AgeValue(n)
}

func AgeValue(n int) *FieldError {
	if n < MinAge || n > MaxAge {
		return &FieldError{Field: "age", Message: fmt.Sprintf("age must be between %d and %d", MinAge, MaxAge)}
	}
	return nil
}

func Gender(v string) *FieldError {
	if !models.Gender(v).Valid() {
		return &FieldError{Field: "gender", Message: "gender must be one of male, female, other"}
	}
	return nil
}

func TicketType(v string) *FieldError {
	if !models.TicketType(v).Valid() {
		return &FieldError{Field: "ticket_type", Message: "ticket_type must be one of adult, child"}
	}
	return nil
}

// Date requires YYYY-MM-DD.
func Date(field, v string) *FieldError {
	return DateIn(field, v, "YYYY-MM-DD")
}

// DateIn is Date with the format the caller documents named in the message.
func DateIn(field, v, format string) *FieldError {
	if _, err := utils.ParseDate(v); err != nil {
		return &FieldError{Field: field, Message: field + " must be a date in " + format + " format"}
	}
	return nil
}

func Result(v string) *FieldError {
	if !models.Result(v).Valid() {
		return &FieldError{Field: "result", Message: "result must be OK or NG"}
	}
	return nil
}

// TicketInput is the raw registration payload as text, shared by JSON and CSV callers.
type TicketInput struct {
	PassNumber string
	Age        string
	Gender     string
	TicketType string
	StartDate  string
	// DateFormat names the start date format in messages; empty means YYYY-MM-DD.
	DateFormat string
}

// Ticket runs every field check and returns all failures, not just the first.
func Ticket(in TicketInput) Errors {
	var errs Errors
	for _, fe := range []*FieldError{
		PassNumber(in.PassNumber),
		Age(in.Age),
		Gender(in.Gender),
		TicketType(in.TicketType),
		DateIn("start_date", in.StartDate, dateFormat(in.DateFormat)),
	} {
		if fe != nil {
			errs = append(errs, fe)
		}
	}
	return errs
}

func dateFormat(f string) string {
	if f == "" {
		return "YYYY-MM-DD"
	}
	return f
}

var genderAliases = map[string]models.Gender{
	"男性":     models.GenderMale,
	"女性":     models.GenderFemale,
	"それ以外":   models.GenderOther,
	"Male":   models.GenderMale,
	"Female": models.GenderFemale,
	"Other":  models.GenderOther,
}

var ticketTypeAliases = map[string]models.TicketType{
	"大人":    models.TicketTypeAdult,
	"子供":    models.TicketTypeChild,
	"Adult": models.TicketTypeAdult,
	"Child": models.TicketTypeChild,
}

// NormalizeGender maps legacy labels found in imported files onto the canonical values.
// Unknown values are returned unchanged so Gender can reject them.
func NormalizeGender(v string) string {
	v = strings.TrimSpace(v)
	if g, ok := genderAliases[v]; ok {
		return string(g)
	}
	return v
}

func NormalizeTicketType(v string) string {
	v = strings.TrimSpace(v)
	if tt, ok := ticketTypeAliases[v]; ok {
		return string(tt)
	}
	return v
}
