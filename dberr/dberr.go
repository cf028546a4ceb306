// Package dberr carries the error taxonomy from spec.md §7: a small set
// of recoverable status sentinels the executor maps to user-visible
// messages, and a Fatal marker for core invariant violations that the
// process boundary must treat as a reason to terminate rather than
// retry.
package dberr

import "github.com/pkg/errors"

// Fatal marks an error as an unrecoverable core invariant violation
// (out-of-bounds page access, a corrupt file length, an invalid child
// pointer, an I/O failure). Continuing past one of these risks writing
// inconsistent pages to disk, so the caller at the process boundary
// must not retry or swallow it.
type Fatal struct {
	cause error
}

func (f *Fatal) Error() string { return f.cause.Error() }
func (f *Fatal) Unwrap() error { return f.cause }

// Fatalf builds a Fatal error with a stack trace attached, for
// diagnosing which invariant broke after the process has already
// exited.
func Fatalf(format string, args ...interface{}) error {
	return &Fatal{cause: errors.Errorf(format, args...)}
}

// WrapFatal promotes an existing error (e.g. an I/O failure from the
// pager) to Fatal.
func WrapFatal(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Fatal{cause: errors.Wrap(err, msg)}
}

// IsFatal reports whether err (or anything it wraps) is a Fatal.
func IsFatal(err error) bool {
	var f *Fatal
	return errors.As(err, &f)
}

// Recoverable status values (spec.md §7, Parse/prepare and Execute).
// These are compared with errors.Is by callers, the same way the
// teacher's table package compares against fmt.Errorf-wrapped errors.
var (
	ErrDuplicateKey          = errors.New("duplicate key")
	ErrTableNotFound         = errors.New("table not found")
	ErrTableExists           = errors.New("table already exists")
	ErrRowNotFound           = errors.New("row not found")
	ErrStringTooLong         = errors.New("string too long")
	ErrTableFull             = errors.New("table full")
	ErrNegativeID            = errors.New("negative id")
	ErrSyntax                = errors.New("syntax error")
	ErrUnrecognizedStatement = errors.New("unrecognized statement")
	ErrColumnNotFound        = errors.New("column not found")
	ErrTypeMismatch          = errors.New("type mismatch")
	ErrUnsupportedOperator   = errors.New("unsupported operator")
)
