package core

import (
	"errors"
	"strings"
	"time"
)

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

// DateLayout is the on-disk date format for transaction rows.
const DateLayout = "2006-01-02"

type (
	Kind string

	// Transaction is a single ledger row. Identity is positional within its
	// month table; rows are appended, never updated in place.
	Transaction struct {
		Date     time.Time
		Category string
		Amount   Money
		Kind     Kind
		Note     string
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidKind   = errors.New("invalid transaction kind")
	ErrEmptyCategory = errors.New("empty category")
)

// ParseKind validates a type column literal.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.TrimSpace(s)) {
	case KindIncome:
		return KindIncome, nil
	case KindExpense:
		return KindExpense, nil
	default:
		return "", ErrInvalidKind
	}
}

// ParseDate parses a YYYY-MM-DD date string.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// Month returns the "YYYY-MM" key of the table this transaction belongs to.
func (t Transaction) Month() string {
	return t.Date.Format(MonthLayout)
}

func (t Transaction) Validate() error {
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if t.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	if _, err := ParseKind(string(t.Kind)); err != nil {
		return err
	}
	return nil
}
