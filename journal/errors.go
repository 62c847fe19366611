package journal

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrStoreRead         = errors.New("store read failed")
	ErrStoreWrite        = errors.New("store write failed")
	ErrInvalidTradeInput = errors.New("invalid trade input")
	ErrInvalidSession    = errors.New("invalid session")
)

type StoreErrorKind int

const (
	ReadError StoreErrorKind = iota
	WriteError
)

// StoreError wraps a driver failure with the operation that hit it.
// errors.Is matches ErrStoreRead or ErrStoreWrite depending on Kind.
type StoreError struct {
	Op   string
	Kind StoreErrorKind
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool {
	switch target {
	case ErrStoreRead:
		return e.Kind == ReadError
	case ErrStoreWrite:
		return e.Kind == WriteError
	}
	return false
}

func readErr(op string, err error) error {
	return &StoreError{Op: op, Kind: ReadError, Err: err}
}

func writeErr(op string, err error) error {
	return &StoreError{Op: op, Kind: WriteError, Err: err}
}
