// Package service implements the customer and order operations on top of a
// store.KeyedStore.
//
// All concurrency control is delegated to the store: conditional puts guard
// customer creation, conditional counter updates guard item_count, and line
// item removal is a two-item transaction. Services hold no mutable state and
// are safe for concurrent use.
//
// Errors returned by services match one of the category errors ([ErrInvalidInput],
// [ErrConflict], [ErrNotFound], [ErrIntegrity], [ErrTransactionAborted]) or
// are infrastructure failures passed through with context.
package service
