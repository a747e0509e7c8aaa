package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// Kind classifies a store failure.
type Kind string

const (
	// KindConnectivity means the database could not be reached or was busy.
	// Retrying later may succeed.
	KindConnectivity Kind = "connectivity"

	// KindLogic means the request itself failed (constraint, bad data).
	KindLogic Kind = "logic"
)

// Error is returned by every Store method.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("store %s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsConnectivity reports whether err is a connectivity failure.
func IsConnectivity(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == KindConnectivity
}

// wrap classifies err and attaches the operation name.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{Kind: classify(err), Op: op, Err: err}
}

func classify(err error) Kind {
	if errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return KindConnectivity
	}

	var sqlErr sqlite3.Error
	if errors.As(err, &sqlErr) {
		switch sqlErr.Code {
		case sqlite3.ErrCantOpen,
			sqlite3.ErrBusy,
			sqlite3.ErrLocked,
			sqlite3.ErrIoErr,
			sqlite3.ErrNotADB,
			sqlite3.ErrFull:
			return KindConnectivity
		}
	}

	// database/sql reports a closed pool with a plain error.
	if err.Error() == "sql: database is closed" {
		return KindConnectivity
	}
	return KindLogic
}
