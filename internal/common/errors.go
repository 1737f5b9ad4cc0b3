// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
	"strings"
)

// Common application errors.
var (
	// Data errors.
	ErrDataIntegrity = errors.New("data integrity violation")
	ErrInvalidInput  = errors.New("invalid input")
	ErrNoRecords     = errors.New("no records")

	// Export errors.
	ErrExportFailed = errors.New("export failed")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// IntegrityKind identifies which contract a DataIntegrityError violated.
type IntegrityKind string

// Integrity violation kinds.
const (
	// KindAmbiguousCanonical means a stock code has more than one maximal-quantity
	// description left after the known anomaly exclusions.
	KindAmbiguousCanonical IntegrityKind = "ambiguous_canonical"
	// KindCheckMapping means a "check" description could not be mapped one-to-one
	// onto a canonical description.
	KindCheckMapping IntegrityKind = "check_mapping"
	// KindOutOfRange means a value fell outside every declared bin.
	KindOutOfRange IntegrityKind = "out_of_range"
)

// DataIntegrityError is a fatal data error. A run that hits one must stop
// without producing output.
type DataIntegrityError struct {
	Kind      IntegrityKind
	StockCode string
	Detail    string
	Values    []string
}

func (e *DataIntegrityError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.StockCode != "" {
		fmt.Fprintf(&b, " for stock code %s", e.StockCode)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if len(e.Values) > 0 {
		fmt.Fprintf(&b, " %q", e.Values)
	}
	return b.String()
}

// Unwrap lets errors.Is match ErrDataIntegrity.
func (e *DataIntegrityError) Unwrap() error {
	return ErrDataIntegrity
}

// NewIntegrityError creates a DataIntegrityError.
func NewIntegrityError(kind IntegrityKind, stockCode, detail string, values ...string) error {
	return &DataIntegrityError{
		Kind:      kind,
		StockCode: stockCode,
		Detail:    detail,
		Values:    values,
	}
}

// IsIntegrityKind reports whether err is a DataIntegrityError of the given kind.
func IsIntegrityKind(err error, kind IntegrityKind) bool {
	var ie *DataIntegrityError
	return errors.As(err, &ie) && ie.Kind == kind
}

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// RowError ties an input parse failure to its 1-based row number.
type RowError struct {
	Err error
	Row int
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}
