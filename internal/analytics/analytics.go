package analytics

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"review-bot/internal/identifier"
	"review-bot/internal/storage"
)

// DailyStats holds submission statistics for one day.
type DailyStats struct {
	Date              string                  `json:"date"`
	TotalReviews      int                     `json:"total_reviews"`
	UniqueSubmitters  int                     `json:"unique_submitters"`
	UniqueIdentifiers int                     `json:"unique_identifiers"`
	Rated             int                     `json:"rated"`
	AverageRating     float64                 `json:"average_rating"`
	ByKind            map[identifier.Kind]int `json:"by_kind"`
	TopIdentifiers    []IdentifierStats       `json:"top_identifiers"`
}

type IdentifierStats struct {
	Identifier string `json:"identifier"`
	Reviews    int    `json:"reviews"`
}

const topLimit = 5

// DayBounds returns the half-open [start, end) interval of day in its location.
func DayBounds(day time.Time) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return start, start.Add(24 * time.Hour)
}

// AnalyzeDay aggregates reviews created on the given day.
func AnalyzeDay(reviews []storage.Review, day time.Time) *DailyStats {
	startOfDay, endOfDay := DayBounds(day)

	stats := &DailyStats{
		Date:   startOfDay.Format("2006-01-02"),
		ByKind: make(map[identifier.Kind]int),
	}

	submitters := make(map[int64]struct{})
	perIdentifier := make(map[string]int)
	var ratingSum int

	for _, r := range reviews {
		if r.CreatedAt.Before(startOfDay) || !r.CreatedAt.Before(endOfDay) {
			continue
		}
		stats.TotalReviews++
		submitters[r.SubmitterID] = struct{}{}
		perIdentifier[r.Identifier]++
		stats.ByKind[identifier.ClassifyNormalized(r.Identifier)]++
		if r.Rating != nil {
			stats.Rated++
			ratingSum += *r.Rating
		}
	}

	stats.UniqueSubmitters = len(submitters)
	stats.UniqueIdentifiers = len(perIdentifier)
	if stats.Rated > 0 {
		stats.AverageRating = float64(ratingSum) / float64(stats.Rated)
	}

	for id, n := range perIdentifier {
		stats.TopIdentifiers = append(stats.TopIdentifiers, IdentifierStats{Identifier: id, Reviews: n})
	}
	sort.Slice(stats.TopIdentifiers, func(i, j int) bool {
		a, b := stats.TopIdentifiers[i], stats.TopIdentifiers[j]
		if a.Reviews != b.Reviews {
			return a.Reviews > b.Reviews
		}
		return a.Identifier < b.Identifier
	})
	if len(stats.TopIdentifiers) > topLimit {
		stats.TopIdentifiers = stats.TopIdentifiers[:topLimit]
	}

	return stats
}

// Summary renders the admin-facing report.
func (ds *DailyStats) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Reviews for %s\n\n", ds.Date)
	fmt.Fprintf(&b, "- submitted: %d\n", ds.TotalReviews)
	fmt.Fprintf(&b, "- submitters: %d\n", ds.UniqueSubmitters)
	fmt.Fprintf(&b, "- identifiers: %d\n", ds.UniqueIdentifiers)
	if ds.Rated > 0 {
		fmt.Fprintf(&b, "- average rating: %.1f (%d rated)\n", ds.AverageRating, ds.Rated)
	}

	if ds.TotalReviews > 0 {
		b.WriteString("\nBy shape:\n")
		for _, k := range []identifier.Kind{identifier.KindPlate, identifier.KindHandle, identifier.KindCode, identifier.KindInvalid} {
			n := ds.ByKind[k]
			if n == 0 {
				continue
			}
			name := string(k)
			if k == identifier.KindInvalid {
				name = "other"
			}
			fmt.Fprintf(&b, "- %s: %d\n", name, n)
		}
	}

	if len(ds.TopIdentifiers) > 0 {
		b.WriteString("\nMost reviewed:\n")
		for _, s := range ds.TopIdentifiers {
			fmt.Fprintf(&b, "- %s: %d\n", s.Identifier, s.Reviews)
		}
	}
	return b.String()
}

func (ds *DailyStats) ToJSON() (string, error) {
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
