package velib

import (
	"errors"
	"fmt"
)

var (
	// ErrInputUnavailable is returned when the source could not supply a batch.
	ErrInputUnavailable = errors.New("station records unavailable")
	// ErrMalformedTimestamp is returned when a surviving row has an unparsable due date.
	ErrMalformedTimestamp = errors.New("malformed timestamp")
	// ErrMalformedCount is returned when a surviving row has a count that is not an integer.
	ErrMalformedCount = errors.New("malformed count")
)

// CoercionError reports the row and column whose value could not be converted.
type CoercionError struct {
	Row    int
	Column string
	Value  any
	Err    error
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("%v: column %q at row %d: %v", e.Err, e.Column, e.Row, e.Value)
}

func (e *CoercionError) Unwrap() error { return e.Err }
