package analytics

import (
	"strings"
	"testing"
	"time"

	"review-bot/internal/identifier"
	"review-bot/internal/storage"
)

func TestAnalyzeDay(t *testing.T) {
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	reviews := []storage.Review{
		{Identifier: "AA1234BB", Rating: storage.IntRating(5), SubmitterID: 1, CreatedAt: day.Add(2 * time.Hour)},
		{Identifier: "AA1234BB", Rating: storage.IntRating(3), SubmitterID: 2, CreatedAt: day.Add(4 * time.Hour)},
		{Identifier: "DRIVER_ONE", SubmitterID: 1, CreatedAt: day.Add(6 * time.Hour)},
		{Identifier: "1234", Rating: storage.IntRating(4), SubmitterID: 3, CreatedAt: day.Add(23*time.Hour + 59*time.Minute)},
		// next day
		{Identifier: "BB0000CC", Rating: storage.IntRating(1), SubmitterID: 4, CreatedAt: day.AddDate(0, 0, 1)},
		// previous day
		{Identifier: "BB0000CC", Rating: storage.IntRating(1), SubmitterID: 4, CreatedAt: day.Add(-time.Second)},
	}

	stats := AnalyzeDay(reviews, day.Add(13*time.Hour))

	if stats.Date != "2024-01-15" {
		t.Errorf("Expected date '2024-01-15', got '%s'", stats.Date)
	}
	if stats.TotalReviews != 4 {
		t.Errorf("Expected 4 reviews, got %d", stats.TotalReviews)
	}
	if stats.UniqueSubmitters != 3 {
		t.Errorf("Expected 3 submitters, got %d", stats.UniqueSubmitters)
	}
	if stats.UniqueIdentifiers != 3 {
		t.Errorf("Expected 3 identifiers, got %d", stats.UniqueIdentifiers)
	}
	if stats.Rated != 3 || stats.AverageRating != 4 {
		t.Errorf("Expected 3 rated with average 4, got %d / %v", stats.Rated, stats.AverageRating)
	}

	expectedKinds := map[identifier.Kind]int{
		identifier.KindPlate:  2,
		identifier.KindHandle: 1,
		identifier.KindCode:   1,
	}
	for k, want := range expectedKinds {
		if got := stats.ByKind[k]; got != want {
			t.Errorf("Expected %d %s reviews, got %d", want, k, got)
		}
	}

	if len(stats.TopIdentifiers) == 0 || stats.TopIdentifiers[0].Identifier != "AA1234BB" || stats.TopIdentifiers[0].Reviews != 2 {
		t.Errorf("Unexpected top identifiers: %+v", stats.TopIdentifiers)
	}
}

func TestAnalyzeDayEmptyData(t *testing.T) {
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	stats := AnalyzeDay(nil, day)

	if stats.Date != "2024-01-15" {
		t.Errorf("Expected date '2024-01-15', got '%s'", stats.Date)
	}
	if stats.TotalReviews != 0 || stats.UniqueSubmitters != 0 || stats.AverageRating != 0 {
		t.Errorf("Expected empty stats, got %+v", stats)
	}
	if s := stats.Summary(); strings.Contains(s, "By shape") || strings.Contains(s, "average") {
		t.Errorf("Empty summary has sections: %q", s)
	}
}

func TestSummary(t *testing.T) {
	stats := &DailyStats{
		Date:              "2024-01-15",
		TotalReviews:      3,
		UniqueSubmitters:  2,
		UniqueIdentifiers: 2,
		Rated:             2,
		AverageRating:     4.5,
		ByKind:            map[identifier.Kind]int{identifier.KindPlate: 2, identifier.KindInvalid: 1},
		TopIdentifiers:    []IdentifierStats{{Identifier: "AA1234BB", Reviews: 2}},
	}

	summary := stats.Summary()

	for _, want := range []string{
		"Reviews for 2024-01-15",
		"submitted: 3",
		"submitters: 2",
		"average rating: 4.5 (2 rated)",
		"- plate: 2",
		"- other: 1",
		"- AA1234BB: 2",
	} {
		if !strings.Contains(summary, want) {
			t.Errorf("Summary missing %q:\n%s", want, summary)
		}
	}
}

func TestToJSON(t *testing.T) {
	stats := AnalyzeDay([]storage.Review{
		{Identifier: "1234", Rating: storage.IntRating(2), SubmitterID: 1, CreatedAt: time.Date(2024, 1, 15, 1, 0, 0, 0, time.UTC)},
	}, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))

	out, err := stats.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	if !strings.Contains(out, `"total_reviews": 1`) || !strings.Contains(out, `"code": 1`) {
		t.Errorf("Unexpected JSON: %s", out)
	}
}
