package core

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"

	// KindAll is accepted by read filters to mean "both kinds".
	KindAll = "all"

	MaxTitleLength = 100
)

type (
	Kind string

	Transaction struct {
		ID        string
		Owner     string
		Title     string
		Amount    decimal.Decimal
		Kind      Kind
		Category  string
		Date      time.Time
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// Fields carries the caller-supplied values for a create. Nil means absent.
	Fields struct {
		Title    *string
		Amount   *decimal.Decimal
		Kind     *string
		Category *string
		Date     *time.Time
	}

	// Patch carries a partial update. Nil fields are left unchanged.
	Patch Fields

	// Removed describes a deleted transaction.
	Removed struct {
		ID    string
		Title string
	}

	// UpdateFunc computes the replacement for a stored record. Returning
	// changed=false skips the write.
	UpdateFunc func(current Transaction) (next Transaction, changed bool, err error)

	User struct {
		ID           string
		Name         string
		Email        string
		PasswordHash string
		CreatedAt    time.Time
	}
)

// ParseKind lower-cases and checks s.
func ParseKind(s string) (Kind, bool) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	return k, k.Valid()
}

func (k Kind) Valid() bool {
	return k == Income || k == Expense
}

func (k Kind) String() string { return string(k) }

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Amount == nil && p.Kind == nil && p.Category == nil && p.Date == nil
}

// NewTransaction validates f against reg and builds a record owned by owner.
// All five fields are required.
func NewTransaction(reg *Registry, owner string, f Fields, now time.Time) (Transaction, error) {
	var verr ValidationError

	if f.Title == nil {
		verr.Add("title", "title is required")
	}
	if f.Amount == nil {
		verr.Add("amount", "amount is required")
	}
	if f.Kind == nil {
		verr.Add("kind", "kind is required")
	}
	if f.Category == nil {
		verr.Add("category", "category is required")
	}
	if f.Date == nil {
		verr.Add("date", "date is required")
	}
	if verr.HasErrors() {
		return Transaction{}, &verr
	}

	now = now.UTC()
	t := Transaction{
		ID:        uuid.NewString(),
		Owner:     owner,
		CreatedAt: now,
		UpdatedAt: now,
	}
	t.Title = checkTitle(&verr, *f.Title)
	t.Amount = checkAmount(&verr, *f.Amount)
	t.Kind = checkKind(&verr, *f.Kind)
	t.Category = strings.TrimSpace(*f.Category)
	t.Date = checkDate(&verr, *f.Date)
	if t.Kind.Valid() {
		checkCategory(&verr, reg, t.Kind, t.Category)
	}
	if verr.HasErrors() {
		return Transaction{}, &verr
	}
	return t, nil
}

// Apply returns a copy of t with p applied. Each supplied field is re-validated;
// when kind or category changes, the effective pair is checked against reg.
// changed is false for an empty patch, in which case t is returned untouched.
func (t Transaction) Apply(reg *Registry, p Patch, now time.Time) (Transaction, bool, error) {
	if p.IsEmpty() {
		return t, false, nil
	}

	var verr ValidationError
	out := t
	if p.Title != nil {
		out.Title = checkTitle(&verr, *p.Title)
	}
	if p.Amount != nil {
		out.Amount = checkAmount(&verr, *p.Amount)
	}
	if p.Kind != nil {
		out.Kind = checkKind(&verr, *p.Kind)
	}
	if p.Category != nil {
		out.Category = strings.TrimSpace(*p.Category)
	}
	if p.Date != nil {
		out.Date = checkDate(&verr, *p.Date)
	}
	if (p.Kind != nil || p.Category != nil) && out.Kind.Valid() {
		checkCategory(&verr, reg, out.Kind, out.Category)
	}
	if verr.HasErrors() {
		return t, false, &verr
	}
	out.UpdatedAt = now.UTC()
	return out, true, nil
}

func checkTitle(verr *ValidationError, s string) string {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		verr.Add("title", "title cannot be empty")
	case utf8.RuneCountInString(s) > MaxTitleLength:
		verr.Add("title", "title cannot exceed 100 characters")
	}
	return s
}

// checkAmount rejects extreme exponents before any comparison, since
// comparing rescales the coefficient to the smaller exponent.
func checkAmount(verr *ValidationError, d decimal.Decimal) decimal.Decimal {
	exp := d.Exponent()
	switch {
	case !d.IsPositive():
		verr.Add("amount", "amount must be greater than 0")
	case exp > maxAmountDigits, exp <= maxAmountDigits && exp >= -maxAmountDigits && d.GreaterThan(MaxAmount):
		verr.Add("amount", "amount cannot exceed 1000000000000")
	case exp < -maxAmountDigits, !d.Truncate(AmountScale).Equal(d):
		verr.Add("amount", "amount cannot have more than 2 decimal places")
	}
	return d
}

func checkKind(verr *ValidationError, s string) Kind {
	k, ok := ParseKind(s)
	if !ok {
		verr.Add("kind", "kind must be either income or expense")
	}
	return k
}

func checkDate(verr *ValidationError, d time.Time) time.Time {
	if d.IsZero() {
		verr.Add("date", "date is invalid")
	}
	return d.UTC()
}

func checkCategory(verr *ValidationError, reg *Registry, k Kind, category string) {
	if category == "" {
		verr.Add("category", "category cannot be empty")
		return
	}
	if !reg.IsValidCategory(k, category) {
		verr.Add("category", "invalid category for "+string(k))
	}
}
