package db

import (
	"context"
	"time"

	"ms-admission/internal/apperrors"
	"ms-admission/internal/models"
)

// DailySummary aggregates attempts with start <= entry_time <= end.
func (d *DB) DailySummary(ctx context.Context, start, end time.Time) (models.DailySummary, error) {
	var summary models.DailySummary
	err := d.Bun.NewSelect().
		Model((*models.EntryLog)(nil)).
		ColumnExpr("COUNT(*) AS total").
		ColumnExpr("COALESCE(SUM(CASE WHEN result = ? THEN 1 ELSE 0 END), 0) AS ok", models.ResultOK).
		ColumnExpr("COALESCE(SUM(CASE WHEN result = ? THEN 1 ELSE 0 END), 0) AS ng", models.ResultNG).
		ColumnExpr("COALESCE(SUM(CASE WHEN is_reentry THEN 1 ELSE 0 END), 0) AS reentry").
		Where("entry_time >= ?", start.UTC()).
		Where("entry_time <= ?", end.UTC()).
		Scan(ctx, &summary.Total, &summary.OK, &summary.NG, &summary.Reentry)
	if err != nil {
		return models.DailySummary{}, apperrors.Storage("daily summary", err)
	}
	return summary, nil
}
