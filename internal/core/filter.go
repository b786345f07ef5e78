package core

import (
	"slices"
	"strings"
	"time"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// ListFilter narrows a List call. Zero values mean "no constraint", except
// Limit which falls back to DefaultListLimit.
type ListFilter struct {
	Kind     Kind
	Category string
	From     time.Time
	To       time.Time
	Limit    int
	Offset   int

	// Unbounded lifts the limit for internal reads such as summaries
	// and exports.
	Unbounded bool
}

// Page is one slice of a List result plus pagination metadata.
type Page struct {
	Items  []Transaction
	Total  int
	Limit  int
	Offset int
}

// Normalize applies defaults and validates bounds.
func (f ListFilter) Normalize() (ListFilter, error) {
	var verr ValidationError
	f.Category = strings.TrimSpace(f.Category)
	if f.Kind != "" && !f.Kind.Valid() {
		verr.Add("kind", "kind must be income, expense or all")
	}
	if f.Offset < 0 {
		verr.Add("offset", "offset cannot be negative")
	}
	if !f.Unbounded {
		switch {
		case f.Limit == 0:
			f.Limit = DefaultListLimit
		case f.Limit < 0:
			verr.Add("limit", "limit must be positive")
		case f.Limit > MaxListLimit:
			verr.Add("limit", "limit cannot exceed 1000")
		}
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		verr.Add("dateTo", "dateTo must not be before dateFrom")
	}
	if verr.HasErrors() {
		return f, &verr
	}
	return f, nil
}

// Matches reports whether t passes every constraint except pagination.
func (f ListFilter) Matches(t Transaction) bool {
	if f.Kind != "" && t.Kind != f.Kind {
		return false
	}
	if f.Category != "" && !strings.Contains(strings.ToLower(t.Category), strings.ToLower(f.Category)) {
		return false
	}
	if !f.From.IsZero() && t.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && t.Date.After(f.To) {
		return false
	}
	return true
}

// TotalPages is ceil(Total/Limit), and 0 for an empty result.
func (p Page) TotalPages() int {
	if p.Limit <= 0 || p.Total == 0 {
		if p.Total > 0 {
			return 1
		}
		return 0
	}
	return (p.Total + p.Limit - 1) / p.Limit
}

// CurrentPage is the 1-based page that Offset falls on.
func (p Page) CurrentPage() int {
	if p.Limit <= 0 {
		return 1
	}
	return p.Offset/p.Limit + 1
}

// EndOfDay returns the last representable instant of d's UTC calendar day.
func EndOfDay(d time.Time) time.Time {
	d = d.UTC()
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// StartOfDay truncates d to midnight UTC.
func StartOfDay(d time.Time) time.Time {
	d = d.UTC()
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

// SortNewestFirst orders txs by Date descending, then CreatedAt descending,
// then ID descending, matching the SQL store's ORDER BY so pages are
// deterministic across backends.
func SortNewestFirst(txs []Transaction) {
	slices.SortFunc(txs, func(a, b Transaction) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
}
