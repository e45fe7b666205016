package store

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when no record exists at a key.
	ErrNotFound = errors.New("store: record not found")

	// ErrConditionFailed is returned when a conditional write is rejected.
	ErrConditionFailed = errors.New("store: condition check failed")

	// ErrTransactionCanceled is returned when a transactional write is aborted.
	ErrTransactionCanceled = errors.New("store: transaction canceled")

	// ErrInvalidRecord is returned when a record has no pk or sk.
	ErrInvalidRecord = errors.New("store: record is missing pk or sk")

	// ErrEmptyUpdate is returned when an update carries no attributes.
	ErrEmptyUpdate = errors.New("store: no attributes to update")
)

// ReasonConditionalCheckFailed is the cancellation code of an op whose condition failed.
const ReasonConditionalCheckFailed = "ConditionalCheckFailed"

// TransactionCanceledError reports why each op of an aborted transaction was canceled.
type TransactionCanceledError struct {
	// Reasons holds one cancellation code per op, in submission order ("None" for ops that passed).
	Reasons []string
}

func (e *TransactionCanceledError) Error() string {
	return fmt.Sprintf("store: transaction canceled [%s]", strings.Join(e.Reasons, ", "))
}

func (e *TransactionCanceledError) Is(target error) bool {
	return target == ErrTransactionCanceled
}

// FailedConditions returns the indices of ops whose condition failed.
func (e *TransactionCanceledError) FailedConditions() []int {
	var idx []int
	for i, r := range e.Reasons {
		if r == ReasonConditionalCheckFailed {
			idx = append(idx, i)
		}
	}
	return idx
}
