package service

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("not found")

// StoreError reports a failed store call. The cause stays reachable through
// errors.Is and errors.As.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
