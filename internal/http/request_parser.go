// This file implements parsing of request bodies and query strings into the
// domain inputs. Field aliases kept for older clients: "type" for "kind",
// "startDate"/"endDate" for "dateFrom"/"dateTo", and "page" for "offset".

package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
)

const (
	maxBodyBytes = 1 << 20
	dateLayout   = "2006-01-02"
)

// transactionRequest is the body of create and update calls. Absent keys
// stay nil so updates can tell "not sent" from "sent empty".
type transactionRequest struct {
	Title    *string         `json:"title"`
	Amount   json.RawMessage `json:"amount"`
	Kind     *string         `json:"kind"`
	Type     *string         `json:"type"`
	Category *string         `json:"category"`
	Date     *string         `json:"date"`
}

// fields converts the body into domain input. Amount may be a JSON number or
// a string such as "12,50".
func (req transactionRequest) fields() (core.Fields, error) {
	var (
		f    core.Fields
		verr core.ValidationError
	)

	if req.Title != nil {
		title := sanitizeInput(*req.Title)
		f.Title = &title
	}
	if req.Category != nil {
		category := sanitizeInput(*req.Category)
		f.Category = &category
	}

	f.Kind = req.Kind
	if f.Kind == nil {
		f.Kind = req.Type
	}

	if amount, present, err := parseAmountJSON(req.Amount); err != nil {
		verr.Add("amount", "amount must be a number")
	} else if present {
		f.Amount = &amount
	}

	if req.Date != nil {
		d, err := parseDateParam(*req.Date, false)
		if err != nil {
			verr.Add("date", "date must be YYYY-MM-DD or an RFC 3339 timestamp")
		} else {
			f.Date = &d
		}
	}

	if verr.HasErrors() {
		return core.Fields{}, &verr
	}
	return f, nil
}

func parseAmountJSON(raw json.RawMessage) (decimal.Decimal, bool, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return decimal.Zero, false, nil
	}
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.Zero, true, err
		}
	}
	d, err := core.ParseAmount(s)
	return d, true, err
}

// decodeJSON reads at most maxBodyBytes into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadJSON, err)
	}
	return nil
}

// parseDateParam accepts a calendar date or an RFC 3339 timestamp. A bare
// date used as an upper bound covers the whole day.
func parseDateParam(s string, endOfDay bool) (time.Time, error) {
	s = strings.TrimSpace(s)
	if d, err := time.Parse(dateLayout, s); err == nil {
		if endOfDay {
			return core.EndOfDay(d), nil
		}
		return d.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func firstNonEmpty(q url.Values, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(q.Get(k)); v != "" {
			return v
		}
	}
	return ""
}

// ParseListFilter reads list filters from the query string. Range checks on
// limit and offset are left to core.ListFilter.Normalize.
func ParseListFilter(q url.Values) (core.ListFilter, error) {
	var (
		f    core.ListFilter
		verr core.ValidationError
	)

	if k := strings.ToLower(firstNonEmpty(q, "kind", "type")); k != "" && k != core.KindAll {
		f.Kind = core.Kind(k)
	}
	f.Category = sanitizeInput(q.Get("category"))

	if v := firstNonEmpty(q, "dateFrom", "startDate"); v != "" {
		d, err := parseDateParam(v, false)
		if err != nil {
			verr.Add("dateFrom", "dateFrom must be YYYY-MM-DD or an RFC 3339 timestamp")
		}
		f.From = d
	}
	if v := firstNonEmpty(q, "dateTo", "endDate"); v != "" {
		d, err := parseDateParam(v, true)
		if err != nil {
			verr.Add("dateTo", "dateTo must be YYYY-MM-DD or an RFC 3339 timestamp")
		}
		f.To = d
	}

	if v := firstNonEmpty(q, "limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			verr.Add("limit", "limit must be an integer")
		}
		f.Limit = n
	}

	if v := firstNonEmpty(q, "offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			verr.Add("offset", "offset must be an integer")
		}
		f.Offset = n
	} else if v := firstNonEmpty(q, "page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			verr.Add("page", "page must be a positive integer")
		} else {
			limit := f.Limit
			if limit <= 0 {
				limit = core.DefaultListLimit
			}
			f.Offset = (page - 1) * limit
		}
	}

	if verr.HasErrors() {
		return core.ListFilter{}, &verr
	}
	return f, nil
}

// ParseMonthParams reads year and month. Absent values come back as 0, which
// the service treats as the current month; an explicit month must be 1..12.
func ParseMonthParams(q url.Values) (year, month int, err error) {
	var verr core.ValidationError
	if v := strings.TrimSpace(q.Get("year")); v != "" {
		if year, err = strconv.Atoi(v); err != nil {
			verr.Add("year", "year must be an integer")
		}
	}
	if v := strings.TrimSpace(q.Get("month")); v != "" {
		if month, err = strconv.Atoi(v); err != nil {
			verr.Add("month", "month must be an integer")
		} else if month < 1 || month > 12 {
			verr.Add("month", "month must be between 1 and 12")
		}
	}
	if verr.HasErrors() {
		return 0, 0, &verr
	}
	return year, month, nil
}

// bearerToken returns the credential from the Authorization header, falling
// back to the token cookie.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(tokenCookie); err == nil {
		return c.Value
	}
	return ""
}

// sanitizeInput removes control characters other than tab and newlines, and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
