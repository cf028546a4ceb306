package executor

import (
	"errors"
	"fmt"

	"vqlite/dberr"
)

// Syntax-level sentinel errors returned alongside PrepareSyntaxError /
// PrepareNegativeID, carrying a reason through to the caller.
var (
	errSyntax                   = errors.New("executor: syntax error")
	errNegativeID               = errors.New("executor: id must not be negative")
	errColumnValueCountMismatch = errors.New("executor: column list and value list have different lengths")
	errDeleteRequiresWhere      = errors.New("executor: DELETE requires a WHERE id = <value> clause")
)

func errTableNotFound(name string) error {
	return fmt.Errorf("%w: %q", dberr.ErrTableNotFound, name)
}

func errUnknownColumn(name string) error {
	return fmt.Errorf("%w: %q", dberr.ErrColumnNotFound, name)
}

func errUnsupportedComparison(col string) error {
	return fmt.Errorf("%w: comparison on non-INT column %q", dberr.ErrUnsupportedOperator, col)
}

func errRowNotFound(id int32) error {
	return fmt.Errorf("%w: id %d", dberr.ErrRowNotFound, id)
}

// PrepareResult is the status code Prepare returns, matching spec.md
// §7's "Parse/prepare" taxonomy.
type PrepareResult int

const (
	PrepareSuccess PrepareResult = iota
	PrepareUnrecognizedStatement
	PrepareSyntaxError
	PrepareStringTooLong
	PrepareNegativeID
)

func (r PrepareResult) String() string {
	switch r {
	case PrepareSuccess:
		return "success"
	case PrepareUnrecognizedStatement:
		return "unrecognized statement"
	case PrepareSyntaxError:
		return "syntax error"
	case PrepareStringTooLong:
		return "string too long"
	case PrepareNegativeID:
		return "negative id"
	default:
		return "unknown prepare result"
	}
}

// ExecuteResult is the status code Execute returns, matching spec.md
// §7's "Execute" taxonomy.
type ExecuteResult int

const (
	ExecuteSuccess ExecuteResult = iota
	ExecuteDuplicateKey
	ExecuteTableFull
	ExecuteTableExists
	ExecuteTableNotFound
	ExecuteRowNotFound
	ExecuteFailure
)

func (r ExecuteResult) String() string {
	switch r {
	case ExecuteSuccess:
		return "success"
	case ExecuteDuplicateKey:
		return "duplicate key"
	case ExecuteTableFull:
		return "table full"
	case ExecuteTableExists:
		return "table already exists"
	case ExecuteTableNotFound:
		return "table not found"
	case ExecuteRowNotFound:
		return "row not found"
	default:
		return "failure"
	}
}

// classifyExecuteErr maps a recoverable dberr sentinel to its
// ExecuteResult code. A Fatal error (or any error this function does
// not recognise) is the caller's cue to stop treating err as
// recoverable — spec.md §7 draws this line at the process boundary,
// not here.
func classifyExecuteErr(err error) ExecuteResult {
	switch {
	case err == nil:
		return ExecuteSuccess
	case errors.Is(err, dberr.ErrDuplicateKey):
		return ExecuteDuplicateKey
	case errors.Is(err, dberr.ErrTableFull):
		return ExecuteTableFull
	case errors.Is(err, dberr.ErrTableExists):
		return ExecuteTableExists
	case errors.Is(err, dberr.ErrTableNotFound):
		return ExecuteTableNotFound
	case errors.Is(err, dberr.ErrRowNotFound):
		return ExecuteRowNotFound
	default:
		return ExecuteFailure
	}
}
