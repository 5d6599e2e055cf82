package analytics

import (
	"context"
	"fmt"
	"time"

	"review-bot/internal/storage"
)

// DailyReport loads the reviews of the day containing at and summarizes them.
func DailyReport(ctx context.Context, store storage.Store, at time.Time) (*DailyStats, error) {
	from, to := DayBounds(at)
	reviews, err := store.ListCreatedBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list reviews for %s: %w", from.Format("2006-01-02"), err)
	}
	return AnalyzeDay(reviews, at), nil
}

// RenderDailyReport returns the report of the day containing at as admin text,
// or as indented JSON when asJSON is set.
func RenderDailyReport(ctx context.Context, store storage.Store, at time.Time, asJSON bool) (string, error) {
	stats, err := DailyReport(ctx, store, at)
	if err != nil {
		return "", err
	}
	if asJSON {
		return stats.ToJSON()
	}
	return stats.Summary(), nil
}
