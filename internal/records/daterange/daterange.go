// Package daterange turns the optional bounds of a birth-date range query
// into one of four query shapes.
package daterange

import (
	"context"
	"fmt"

	"userdir/pkg/domain"
	dErrors "userdir/pkg/domain-errors"
)

// Kind is the shape of a resolved range.
type Kind int

const (
	KindAll Kind = iota
	KindBetween
	KindAfter
	KindBefore
)

func (k Kind) String() string {
	switch k {
	case KindAll:
		return "all"
	case KindBetween:
		return "between"
	case KindAfter:
		return "after"
	case KindBefore:
		return "before"
	default:
		return "unknown"
	}
}

// Query is a resolved range. From is set for KindBetween and KindAfter,
// To for KindBetween and KindBefore. Both bounds are inclusive.
type Query struct {
	Kind Kind
	From domain.Date
	To   domain.Date
}

// FormatError reports a bound that is not a date in the expected pattern.
type FormatError struct {
	Value   string
	Pattern string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("date %s is invalid, you should use pattern '%s'", e.Value, e.Pattern)
}

// OrderError reports a range whose start is after its end.
type OrderError struct {
	From domain.Date
	To   domain.Date
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("start date %s must not be after end date %s", e.From, e.To)
}

// Resolve parses the optional bounds and classifies the range. A nil or
// empty bound is absent. Classification order: both absent, both present,
// from only, to only.
func Resolve(from, to *string) (Query, error) {
	fromDate, hasFrom, err := parseBound(from)
	if err != nil {
		return Query{}, err
	}
	toDate, hasTo, err := parseBound(to)
	if err != nil {
		return Query{}, err
	}

	switch {
	case !hasFrom && !hasTo:
		return Query{Kind: KindAll}, nil
	case hasFrom && hasTo:
		if fromDate.After(toDate) {
			orderErr := &OrderError{From: fromDate, To: toDate}
			return Query{}, dErrors.Wrap(orderErr, dErrors.CodeInvalidRange, orderErr.Error())
		}
		return Query{Kind: KindBetween, From: fromDate, To: toDate}, nil
	case hasFrom:
		return Query{Kind: KindAfter, From: fromDate}, nil
	default:
		return Query{Kind: KindBefore, To: toDate}, nil
	}
}

func parseBound(raw *string) (domain.Date, bool, error) {
	if raw == nil || *raw == "" {
		return domain.Date{}, false, nil
	}
	d, err := domain.ParseDate(*raw)
	if err != nil {
		formatErr := &FormatError{Value: *raw, Pattern: domain.DatePattern}
		return domain.Date{}, false, dErrors.Wrap(formatErr, dErrors.CodeInvalidDate, formatErr.Error())
	}
	return d, true, nil
}

// Finder is the set of lookups a resolved Query dispatches to.
type Finder[T any] interface {
	FindAll(ctx context.Context) ([]T, error)
	FindByBirthDateBetween(ctx context.Context, from, to domain.Date) ([]T, error)
	FindByBirthDateAfter(ctx context.Context, from domain.Date) ([]T, error)
	FindByBirthDateBefore(ctx context.Context, to domain.Date) ([]T, error)
}

// Dispatch invokes exactly one Finder method for q.
func Dispatch[T any](ctx context.Context, q Query, f Finder[T]) ([]T, error) {
	switch q.Kind {
	case KindAll:
		return f.FindAll(ctx)
	case KindBetween:
		return f.FindByBirthDateBetween(ctx, q.From, q.To)
	case KindAfter:
		return f.FindByBirthDateAfter(ctx, q.From)
	case KindBefore:
		return f.FindByBirthDateBefore(ctx, q.To)
	default:
		return nil, dErrors.New(dErrors.CodeInternal, fmt.Sprintf("unknown range kind %d", q.Kind))
	}
}
