package storage

import "strings"

// DefaultExcerptLimit is how many comments a lookup shows.
const DefaultExcerptLimit = 3

// Summary is what a lookup reports for one identifier.
type Summary struct {
	Total    int
	Rated    int
	Average  float64
	Excerpts []string
}

// Summarize computes statistics over records ordered newest-first.
// The average only covers rated records and is 0 when none is rated.
// Excerpts are the trimmed comments of the newest records that have one.
func Summarize(records []Review, limit int) Summary {
	s := Summary{Total: len(records)}
	sum := 0
	for _, r := range records {
		if r.Rating != nil {
			sum += *r.Rating
			s.Rated++
		}
		if len(s.Excerpts) >= limit {
			continue
		}
		if c := strings.TrimSpace(r.Comment); c != "" {
			s.Excerpts = append(s.Excerpts, c)
		}
	}
	if s.Rated > 0 {
		s.Average = float64(sum) / float64(s.Rated)
	}
	return s
}
