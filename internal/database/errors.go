package database

import (
	"errors"
	"fmt"
)

var (
	errNoFields   = errors.New("no fields given")
	errNoCriteria = errors.New("refusing unbounded write: no criteria given")
)

// StoreError wraps a failed store operation with a description of what was
// being attempted. Callers inside a transaction scope are expected to roll
// the scope back when they see one.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func storeErr(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}
