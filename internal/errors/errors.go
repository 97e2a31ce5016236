package errors

import (
	"errors"
	"fmt"
)

// Category classifies the failures the decision pipeline can produce.
type Category string

const (
	// Rejected at configuration time, never silently clamped
	CategoryConfig Category = "CONFIG"
	// Rejected before sizing (non-positive price and friends)
	CategoryInvalidInput Category = "INVALID_INPUT"
	// One opinion source faulted; demoted, never aborts the cycle
	CategoryStrategy Category = "STRATEGY"
	// Non-monotonic backtest input timestamps
	CategoryOrdering Category = "ORDERING"
	// Unreadable or invalid historical data
	CategoryData Category = "DATA"
	// Market data fetch failures
	CategoryExchange Category = "EXCHANGE"
)

// BotError is a categorized error carrying the component and operation
// that produced it. Shutdown is deliberately not represented here: it is
// a queryable risk state, not an error.
type BotError struct {
	Category   Category
	Component  string
	Operation  string
	Message    string
	Underlying error
	Retryable  bool
}

func (e *BotError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s:%s] %s: %s: %v", e.Category, e.Component, e.Operation, e.Message, e.Underlying)
	}
	return fmt.Sprintf("[%s:%s] %s: %s", e.Category, e.Component, e.Operation, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *BotError) Unwrap() error {
	return e.Underlying
}

// IsRetryable returns whether this error can be retried.
func (e *BotError) IsRetryable() bool {
	return e.Retryable
}

// New creates a categorized error without an underlying cause.
func New(category Category, component, operation, message string) *BotError {
	return &BotError{
		Category:  category,
		Component: component,
		Operation: operation,
		Message:   message,
		Retryable: retryableCategory(category),
	}
}

// Newf creates a categorized error with a formatted message.
func Newf(category Category, component, operation, format string, args ...interface{}) *BotError {
	return New(category, component, operation, fmt.Sprintf(format, args...))
}

// Wrap attaches category and context to an existing error. Returns nil
// for a nil cause so call sites can wrap unconditionally.
func Wrap(err error, category Category, component, operation, message string) *BotError {
	if err == nil {
		return nil
	}
	return &BotError{
		Category:   category,
		Component:  component,
		Operation:  operation,
		Message:    message,
		Underlying: err,
		Retryable:  retryableCategory(category),
	}
}

// WithRetryable overrides the category's default retryable flag.
func (e *BotError) WithRetryable(retryable bool) *BotError {
	e.Retryable = retryable
	return e
}

func retryableCategory(category Category) bool {
	// Only transient market-data fetches are worth retrying; everything
	// else in this core is a deterministic rejection.
	return category == CategoryExchange
}

// IsCategory reports whether err or anything it wraps is a BotError of
// the given category.
func IsCategory(err error, category Category) bool {
	var botErr *BotError
	if errors.As(err, &botErr) {
		return botErr.Category == category
	}
	return false
}

// Is re-exports the standard library matcher so callers that import this
// package under the errors name keep sentinel comparisons.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As re-exports the standard library matcher.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Taxonomy constructors. Each names the component and operation so logs
// and tests can match on origin as well as category.

func NewConfigError(component, operation, message string) *BotError {
	return New(CategoryConfig, component, operation, message)
}

func NewInvalidInputError(component, operation, message string) *BotError {
	return New(CategoryInvalidInput, component, operation, message)
}

func NewStrategyError(component, operation string, err error) *BotError {
	return Wrap(err, CategoryStrategy, component, operation, "opinion computation failed")
}

func NewOrderingError(component, operation, message string) *BotError {
	return New(CategoryOrdering, component, operation, message)
}

func NewDataError(component, operation string, err error) *BotError {
	return Wrap(err, CategoryData, component, operation, "historical data rejected")
}

func NewExchangeError(component, operation string, err error) *BotError {
	return Wrap(err, CategoryExchange, component, operation, "exchange request failed")
}
