package series

import (
	"errors"
	"fmt"
)

// Data errors raised by price suppliers and series construction. They reach
// the caller unmodified; nothing in the backtester substitutes data.
var (
	// ErrNoData is returned when a supplier yields no records.
	ErrNoData = errors.New("no data")

	// ErrMissingField is returned when no close/adjusted-close field can be
	// identified in the source.
	ErrMissingField = errors.New("missing price field")

	// ErrUnparsable is returned when a record cannot be parsed.
	ErrUnparsable = errors.New("unparsable record")

	// ErrDuplicateInstrument is returned when a Universe is built with the
	// same instrument id twice.
	ErrDuplicateInstrument = errors.New("duplicate instrument")
)

// DataError attaches the failing operation and instrument to a data error.
type DataError struct {
	Op         string
	Instrument string
	Err        error
}

// Error implements error.
func (e *DataError) Error() string {
	if e.Instrument == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Instrument, e.Err)
}

// Unwrap returns the underlying sentinel.
func (e *DataError) Unwrap() error { return e.Err }

// NewDataError is a convenience constructor.
func NewDataError(op, instrument string, err error) error {
	return &DataError{Op: op, Instrument: instrument, Err: err}
}
