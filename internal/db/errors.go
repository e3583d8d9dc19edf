package db

import (
	"errors"
	"fmt"
)

var (
	// ErrKeyNotFound is returned by Get for a missing or expired key.
	ErrKeyNotFound = errors.New("db: key not found")
	// ErrNotInteger means a counter key holds something other than a base-10 integer.
	ErrNotInteger = errors.New("db: value is not an integer")
)

// Op names the store operation that failed.
type Op string

const (
	OpGet     Op = "get"
	OpPut     Op = "put"
	OpAdd     Op = "add"
	OpReserve Op = "reserve"
	OpRelease Op = "release"
)

// Error carries the failed operation and key next to the driver error.
type Error struct {
	Op  Op
	Key string
	Err error
}

func (e *Error) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("db %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("db %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
