package services

import (
	"errors"
	"fmt"
)

// ErrorKind classifies ledger failures so callers can map them to responses.
type ErrorKind string

const (
	KindNotFound     ErrorKind = "not_found"
	KindConflict     ErrorKind = "conflict"
	KindOutOfStock   ErrorKind = "out_of_stock"
	KindInvalidInput ErrorKind = "invalid_input"
)

// LedgerError is a classified, human-readable ledger error.
type LedgerError struct {
	Kind    ErrorKind
	Message string
}

func (e *LedgerError) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

// Is matches any LedgerError of the same kind against the bare sentinels below.
func (e *LedgerError) Is(target error) bool {
	t, ok := target.(*LedgerError)
	return ok && t.Message == "" && t.Kind == e.Kind
}

var (
	ErrNotFound     = &LedgerError{Kind: KindNotFound}
	ErrConflict     = &LedgerError{Kind: KindConflict}
	ErrOutOfStock   = &LedgerError{Kind: KindOutOfStock}
	ErrInvalidInput = &LedgerError{Kind: KindInvalidInput}
)

// AsLedgerError unwraps err into a LedgerError when it is one.
func AsLedgerError(err error) (*LedgerError, bool) {
	var le *LedgerError
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}

func notFound(format string, args ...any) error {
	return &LedgerError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func conflict(format string, args ...any) error {
	return &LedgerError{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func outOfStock(format string, args ...any) error {
	return &LedgerError{Kind: KindOutOfStock, Message: fmt.Sprintf(format, args...)}
}

func invalidInput(format string, args ...any) error {
	return &LedgerError{Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...)}
}
