package library

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrDuplicateISBN     = errors.New("book already exists")
	ErrDuplicateMember   = errors.New("member already exists")
	ErrMemberNotFound    = errors.New("member not found")
	ErrBookNotFound      = errors.New("book not found")
	ErrMemberInactive    = errors.New("member is not active")
	ErrAlreadyBorrowed   = errors.New("book already borrowed by member")
	ErrNoCopiesAvailable = errors.New("no copies available")
	ErrNotBorrowed       = errors.New("book not borrowed by member")
	ErrInvalidPayment    = errors.New("invalid payment")
	ErrStorage           = errors.New("storage failure")
)

// Reason classifies why an operation failed.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonInvalidInput
	ReasonDuplicateISBN
	ReasonDuplicateMember
	ReasonMemberNotFound
	ReasonBookNotFound
	ReasonMemberInactive
	ReasonAlreadyBorrowed
	ReasonNoCopiesAvailable
	ReasonNotBorrowed
	ReasonInvalidPayment
	ReasonStorage
)

var reasonErrors = map[Reason]error{
	ReasonInvalidInput:      ErrInvalidInput,
	ReasonDuplicateISBN:     ErrDuplicateISBN,
	ReasonDuplicateMember:   ErrDuplicateMember,
	ReasonMemberNotFound:    ErrMemberNotFound,
	ReasonBookNotFound:      ErrBookNotFound,
	ReasonMemberInactive:    ErrMemberInactive,
	ReasonAlreadyBorrowed:   ErrAlreadyBorrowed,
	ReasonNoCopiesAvailable: ErrNoCopiesAvailable,
	ReasonNotBorrowed:       ErrNotBorrowed,
	ReasonInvalidPayment:    ErrInvalidPayment,
	ReasonStorage:           ErrStorage,
}

func (r Reason) String() string {
	if err, ok := reasonErrors[r]; ok {
		return err.Error()
	}
	return "none"
}

// Outcome tells a successful Result from a failed one.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Result is what every mutating Library operation returns. Payload fields are
// copies and only set on success. Build it through succeeded or failed.
type Result struct {
	Outcome Outcome
	Reason  Reason
	Message string

	Book   *Book
	Member *Member
	Loan   *Loan
	Fine   Cents
}

func succeeded(format string, args ...any) Result {
	return Result{Outcome: OutcomeSuccess, Message: fmt.Sprintf(format, args...)}
}

func failed(reason Reason, format string, args ...any) Result {
	return Result{Outcome: OutcomeFailure, Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// OK reports whether the operation succeeded.
func (r Result) OK() bool { return r.Outcome == OutcomeSuccess }

// Err returns nil on success. Failures unwrap to the matching sentinel, so
// errors.Is(res.Err(), ErrNoCopiesAvailable) works.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	return &OperationError{Reason: r.Reason, Message: r.Message}
}

// OperationError is the error form of a failed Result.
type OperationError struct {
	Reason  Reason
	Message string
}

func (e *OperationError) Error() string { return e.Message }

func (e *OperationError) Unwrap() error { return reasonErrors[e.Reason] }
