// Package store provides the keyed data access layer over a single DynamoDB table.
//
// Every entity lives in one table keyed by a string partition key (pk) and a
// string sort key (sk). A global secondary index inverts the two, so the same
// records can be read "upside down": the reverse index turns a child's sort key
// into a partition of its own.
//
// # Records
//
// A [Record] is the raw attribute map of one item. Records carry pk, sk and an
// entity discriminator naming the most specific entity type. Decoding a record
// into a typed value is the job of the entity package; this package never
// interprets payload attributes.
//
// # Conditions
//
// Writes accept [Condition] values that are ANDed together and evaluated
// against the record already stored at the written key:
//
//	st.Put(ctx, rec, store.AttributeNotExists("username"))
//	st.UpdateCounters(ctx, key, map[string]int64{"item_count": 1},
//	    store.RecordExists(),
//	    store.Equal("status", "new"),
//	)
//
// # Transactions
//
// [Store.TransactWrite] applies a set of counter updates and deletes all or
// nothing. When any condition fails the returned error matches
// [ErrTransactionCanceled] and unwraps to a [*TransactionCanceledError]
// carrying one cancellation code per op.
//
// # Errors
//
//   - [ErrNotFound] - no record at the key
//   - [ErrConditionFailed] - a conditional write was rejected
//   - [ErrTransactionCanceled] - a transactional write was aborted
//   - [ErrInvalidRecord] - a record without pk or sk
//   - [ErrEmptyUpdate] - an update with nothing to change
//
// The memstore subpackage implements [KeyedStore] in memory with the same
// condition and transaction semantics.
package store
