package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/lib/pq"
	"github.com/uptrace/bun"

	"ms-admission/internal/apperrors"
	"ms-admission/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// FindTicketByNumber returns nil, nil when the pass is not registered.
func (d *DB) FindTicketByNumber(ctx context.Context, passNumber string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := d.Bun.NewSelect().
		Model(&ticket).
		Where("tkt_number = ?", passNumber).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Storage("find ticket", err)
	}
	return &ticket, nil
}

// CreateTicket inserts a new pass. A pass number that already exists is a conflict.
func (d *DB) CreateTicket(ctx context.Context, ticket *models.Ticket) error {
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().
			Model((*models.Ticket)(nil)).
			Where("tkt_number = ?", ticket.PassNumber).
			Exists(ctx)
		if err != nil {
			return err
		}
		if exists {
			return duplicate(ticket.PassNumber)
		}
		_, err = tx.NewInsert().Model(ticket).Exec(ctx)
		return err
	})
	return storageErr("create ticket", ticket.PassNumber, err)
}

// ListTickets returns every pass, newest registration first.
func (d *DB) ListTickets(ctx context.Context) ([]models.Ticket, error) {
	tickets := make([]models.Ticket, 0)
	err := d.Bun.NewSelect().
		Model(&tickets).
		Order("created_at DESC", "tkt_number ASC").
		Scan(ctx)
	if err != nil {
		return nil, apperrors.Storage("list tickets", err)
	}
	return tickets, nil
}

// UpdateTicket overwrites every mutable column of an existing pass.
func (d *DB) UpdateTicket(ctx context.Context, ticket *models.Ticket) error {
	res, err := d.Bun.NewUpdate().
		Model(ticket).
		Column("age", "gender", "ticket_type", "start_date", "expiry_date",
			"is_transfer", "previous_tkt_number", "remarks", "updated_at").
		Where("tkt_number = ?", ticket.PassNumber).
		Exec(ctx)
	if err != nil {
		return apperrors.Storage("update ticket", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(ticket.PassNumber)
	}
	return nil
}

// DeleteTicketCascade removes the pass and its entry logs in one transaction.
func (d *DB) DeleteTicketCascade(ctx context.Context, passNumber string) error {
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*models.EntryLog)(nil)).
			Where("tkt_number = ?", passNumber).
			Exec(ctx); err != nil {
			return err
		}

		res, err := tx.NewDelete().
			Model((*models.Ticket)(nil)).
			Where("tkt_number = ?", passNumber).
			Exec(ctx)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return notFound(passNumber)
		}
		return nil
	})
	return storageErr("delete ticket", passNumber, err)
}

func (d *DB) CountTickets(ctx context.Context) (int, error) {
	count, err := d.Bun.NewSelect().
		Model((*models.Ticket)(nil)).
		Count(ctx)
	if err != nil {
		return 0, apperrors.Storage("count tickets", err)
	}
	return count, nil
}

func notFound(passNumber string) error {
	return apperrors.NotFound("ticket " + passNumber + " not found")
}

func duplicate(passNumber string) error {
	return apperrors.Conflict("ticket " + passNumber + " already exists")
}

// storageErr passes typed errors through and wraps the rest. A unique violation that
// slipped past the existence check (concurrent insert) still reports as a conflict.
func storageErr(op, passNumber string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if isUniqueViolation(err) {
		return duplicate(passNumber)
	}
	return apperrors.Storage(op, err)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
