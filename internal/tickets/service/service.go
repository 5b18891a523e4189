package tickets

import (
	"context"
	"strings"

	"ms-admission/internal/apperrors"
	"ms-admission/internal/logger"
	"ms-admission/internal/models"
	"ms-admission/internal/utils"
	"ms-admission/internal/validation"
)

type TicketDBLayer interface {
	FindTicketByNumber(ctx context.Context, passNumber string) (*models.Ticket, error)
	CreateTicket(ctx context.Context, ticket *models.Ticket) error
	ListTickets(ctx context.Context) ([]models.Ticket, error)
	UpdateTicket(ctx context.Context, ticket *models.Ticket) error
	DeleteTicketCascade(ctx context.Context, passNumber string) error
	CountTickets(ctx context.Context) (int, error)
}

type TicketService struct {
	DB     TicketDBLayer
	Clock  utils.Clock
	Logger *logger.Logger
}

func NewTicketService(db TicketDBLayer, clock utils.Clock, log *logger.Logger) *TicketService {
	return &TicketService{DB: db, Clock: clock, Logger: log}
}

// RegisterTicket validates every field, then stores the pass with expiry = start + 365 days.
func (s *TicketService) RegisterTicket(ctx context.Context, req models.CreateTicketRequest) (*models.Ticket, error) {
	in := validation.TicketInput{
		PassNumber: req.PassNumber,
		Age:        req.Age.String(),
		Gender:     req.Gender,
		TicketType: req.TicketType,
		StartDate:  req.StartDate,
	}
	ticket, err := s.buildTicket(in)
	if err != nil {
		return nil, err
	}
	ticket.IsTransfer = req.IsTransfer
	ticket.PreviousPassNumber = optional(req.PreviousPassNumber)
	ticket.Remarks = optional(req.Remarks)

	if err := s.DB.CreateTicket(ctx, ticket); err != nil {
		return nil, err
	}
	s.Logger.LogDatabase("INSERT", "tickets", ticket.PassNumber)
	return ticket, nil
}

// buildTicket turns validated text input into a new pass stamped with the current time.
func (s *TicketService) buildTicket(in validation.TicketInput) (*models.Ticket, error) {
	if errs := validation.Ticket(in); len(errs) > 0 {
		return nil, apperrors.Validation(errs.Messages()...)
	}

	age, _ := parseAge(in.Age)
	start, _ := utils.ParseDate(strings.TrimSpace(in.StartDate))
	now := s.Clock.Now()

	return &models.Ticket{
		PassNumber: strings.TrimSpace(in.PassNumber),
		Age:        age,
		Gender:     models.Gender(in.Gender),
		TicketType: models.TicketType(in.TicketType),
		StartDate:  start,
		ExpiryDate: models.ExpiryFor(start),
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func (s *TicketService) GetTicket(ctx context.Context, passNumber string) (*models.Ticket, error) {
	ticket, err := s.DB.FindTicketByNumber(ctx, passNumber)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, apperrors.NotFound("ticket " + passNumber + " not found")
	}
	return ticket, nil
}

func (s *TicketService) ListTickets(ctx context.Context) ([]models.Ticket, error) {
	return s.DB.ListTickets(ctx)
}

func (s *TicketService) CountTickets(ctx context.Context) (int, error) {
	return s.DB.CountTickets(ctx)
}

// UpdateTicket applies the provided fields only. The expiry date is not recomputed when
// the start date changes.
func (s *TicketService) UpdateTicket(ctx context.Context, passNumber string, req models.UpdateTicketRequest) (*models.Ticket, error) {
	ticket, err := s.GetTicket(ctx, passNumber)
	if err != nil {
		return nil, err
	}

	var errs validation.Errors
	check := func(fe *validation.FieldError) bool {
		if fe != nil {
			errs = append(errs, fe)
			return false
		}
		return true
	}

	if req.Age != nil && check(validation.Age(req.Age.String())) {
		ticket.Age, _ = parseAge(req.Age.String())
	}
	if req.Gender != nil && check(validation.Gender(*req.Gender)) {
		ticket.Gender = models.Gender(*req.Gender)
	}
	if req.TicketType != nil && check(validation.TicketType(*req.TicketType)) {
		ticket.TicketType = models.TicketType(*req.TicketType)
	}
	if req.StartDate != nil && check(validation.Date("start_date", *req.StartDate)) {
		ticket.StartDate, _ = utils.ParseDate(*req.StartDate)
	}
	if req.ExpiryDate != nil && check(validation.Date("expiry_date", *req.ExpiryDate)) {
		ticket.ExpiryDate, _ = utils.ParseDate(*req.ExpiryDate)
	}
	if len(errs) > 0 {
		return nil, apperrors.Validation(errs.Messages()...)
	}

	if req.IsTransfer != nil {
		ticket.IsTransfer = *req.IsTransfer
	}
	if req.PreviousPassNumber != nil {
		ticket.PreviousPassNumber = optional(req.PreviousPassNumber)
	}
	if req.Remarks != nil {
		ticket.Remarks = optional(req.Remarks)
	}
	ticket.UpdatedAt = s.Clock.Now()

	if err := s.DB.UpdateTicket(ctx, ticket); err != nil {
		return nil, err
	}
	s.Logger.LogDatabase("UPDATE", "tickets", ticket.PassNumber)
	return ticket, nil
}

// DeleteTicket removes the pass together with its entry history.
func (s *TicketService) DeleteTicket(ctx context.Context, passNumber string) error {
	if err := s.DB.DeleteTicketCascade(ctx, passNumber); err != nil {
		return err
	}
	s.Logger.LogDatabase("DELETE", "tickets", passNumber)
	return nil
}

// optional maps empty strings to NULL.
func optional(v *string) *string {
	if v == nil || *v == "" {
		return nil
	}
	out := *v
	return &out
}
