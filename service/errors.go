package service

import (
	"errors"
	"fmt"
)

// Error categories. Every error a service returns matches at most one of them
// with errors.Is; anything else is an infrastructure failure.
var (
	// ErrInvalidInput matches input that fails validation. The wrapped
	// *entity.ValidationError lists every offending field.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict matches writes rejected by a uniqueness or state condition.
	ErrConflict = errors.New("conflict")

	// ErrNotFound matches references to entities that do not exist.
	ErrNotFound = errors.New("not found")

	// ErrIntegrity matches stored data that breaks a structural invariant.
	ErrIntegrity = errors.New("integrity violation")

	// ErrTransactionAborted matches multi-item writes whose conditions did not all hold.
	ErrTransactionAborted = errors.New("transaction aborted")
)

var (
	ErrCustomerAlreadyExists   = fmt.Errorf("%w: customer already exists", ErrConflict)
	ErrOrderNotEditable        = fmt.Errorf("%w: order is no longer new", ErrConflict)
	ErrLineItemLimit           = fmt.Errorf("%w: order has the maximum number of line items", ErrConflict)
	ErrInvalidStatusTransition = fmt.Errorf("%w: invalid status transition", ErrConflict)

	// ErrLineItemSequenceTaken is returned when the next sequence number still
	// belongs to a line item, which happens after an earlier item was removed.
	// The order's item_count is restored and nothing is overwritten.
	ErrLineItemSequenceTaken = fmt.Errorf("%w: line item sequence number already in use", ErrConflict)

	ErrCustomerNotFound = fmt.Errorf("%w: customer", ErrNotFound)
	ErrAddressNotFound  = fmt.Errorf("%w: address", ErrNotFound)
	ErrOrderNotFound    = fmt.Errorf("%w: order", ErrNotFound)

	ErrDuplicateCustomerKey = fmt.Errorf("%w: more than one customer for username", ErrIntegrity)

	// ErrRemoveLineItem does not say whether the line item was already gone or
	// the order had left the new status; re-read the order to tell.
	ErrRemoveLineItem = fmt.Errorf("%w: could not remove line item", ErrTransactionAborted)
)

func invalidInput(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidInput, err)
}

// corrupt marks a stored record that no longer decodes.
func corrupt(err error) error {
	return fmt.Errorf("%w: %w", ErrIntegrity, err)
}
