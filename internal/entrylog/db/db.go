package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"ms-admission/internal/apperrors"
	"ms-admission/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// CountOKEntriesInRange counts admitted entries for a pass with start <= entry_time <= end.
// NG attempts never count.
func (d *DB) CountOKEntriesInRange(ctx context.Context, passNumber string, start, end time.Time) (int, error) {
	count, err := d.Bun.NewSelect().
		Model((*models.EntryLog)(nil)).
		Where("tkt_number = ?", passNumber).
		Where("result = ?", models.ResultOK).
		Where("entry_time >= ?", start.UTC()).
		Where("entry_time <= ?", end.UTC()).
		Count(ctx)
	if err != nil {
		return 0, apperrors.Storage("count entries", err)
	}
	return count, nil
}

// InsertEntryLog appends one attempt. created_at is taken here, just before the insert,
// and the generated id is written back to log.
func (d *DB) InsertEntryLog(ctx context.Context, log *models.EntryLog) error {
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		log.CreatedAt = time.Now().UTC()
		_, err := tx.NewInsert().
			Model(log).
			Returning("id").
			Exec(ctx)
		return err
	})
	if err != nil {
		return apperrors.Storage("record entry", err)
	}
	return nil
}

// ListEntryLogs returns attempts newest first.
func (d *DB) ListEntryLogs(ctx context.Context, filter models.EntryLogFilter) ([]models.EntryLog, error) {
	logs := make([]models.EntryLog, 0)
	q := d.Bun.NewSelect().
		Model(&logs).
		Order("entry_time DESC", "id DESC")
	if filter.PassNumber != "" {
		q = q.Where("tkt_number = ?", filter.PassNumber)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, apperrors.Storage("list entry logs", err)
	}
	return logs, nil
}

func (d *DB) GetEntryLog(ctx context.Context, id int64) (*models.EntryLog, error) {
	var log models.EntryLog
	err := d.Bun.NewSelect().
		Model(&log).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, apperrors.Storage("get entry log", err)
	}
	return &log, nil
}

// UpdateEntryLog overwrites the editable columns of an existing attempt.
func (d *DB) UpdateEntryLog(ctx context.Context, log *models.EntryLog) error {
	res, err := d.Bun.NewUpdate().
		Model(log).
		Column("entry_time", "result", "comment", "is_reentry").
		Where("id = ?", log.ID).
		Exec(ctx)
	if err != nil {
		return apperrors.Storage("update entry log", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(log.ID)
	}
	return nil
}

func (d *DB) DeleteEntryLog(ctx context.Context, id int64) error {
	res, err := d.Bun.NewDelete().
		Model((*models.EntryLog)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return apperrors.Storage("delete entry log", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(id)
	}
	return nil
}

func notFound(id int64) error {
	return apperrors.NotFound(fmt.Sprintf("entry log %d not found", id))
}
