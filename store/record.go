package store

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/ordertable/internal/keyscheme"
)

// Attribute names shared by every record in the table.
const (
	AttrPK     = "pk"
	AttrSK     = "sk"
	AttrEntity = "entity"
)

// Record is the raw stored representation of an entity.
type Record map[string]types.AttributeValue

// String returns a string attribute, or false if absent or not a string.
func (r Record) String(attr string) (string, bool) {
	v, ok := r[attr].(*types.AttributeValueMemberS)
	if !ok {
		return "", false
	}
	return v.Value, true
}

// Key returns the record's primary key.
func (r Record) Key() (keyscheme.Key, bool) {
	pk, okPK := r.String(AttrPK)
	sk, okSK := r.String(AttrSK)
	if !okPK || !okSK || pk == "" || sk == "" {
		return keyscheme.Key{}, false
	}
	return keyscheme.Key{PK: pk, SK: sk}, true
}

// Entity returns the record's entity discriminator.
func (r Record) Entity() string {
	v, _ := r.String(AttrEntity)
	return v
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// KeyAttributes converts a key into its attribute form.
func KeyAttributes(key keyscheme.Key) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		AttrPK: &types.AttributeValueMemberS{Value: key.PK},
		AttrSK: &types.AttributeValueMemberS{Value: key.SK},
	}
}

// QueryInput selects the records of one partition.
type QueryInput struct {
	// PartitionValue is matched against pk, or against sk when Reverse is set.
	PartitionValue string

	// SortPrefix optionally restricts the range key with begins_with.
	SortPrefix string

	// Reverse queries the secondary index that inverts pk and sk.
	Reverse bool
}

// TransactOp is one write inside a transaction: a counter update or a delete.
type TransactOp struct {
	Key keyscheme.Key

	// Deltas are added to numeric attributes when Delete is false.
	Deltas map[string]int64

	// Delete removes the record instead of updating it.
	Delete bool

	// Conditions must all hold for the whole transaction to apply.
	Conditions []Condition
}

// CounterOp builds a transactional counter update.
func CounterOp(key keyscheme.Key, deltas map[string]int64, conds ...Condition) TransactOp {
	return TransactOp{Key: key, Deltas: deltas, Conditions: conds}
}

// DeleteOp builds a transactional delete.
func DeleteOp(key keyscheme.Key, conds ...Condition) TransactOp {
	return TransactOp{Key: key, Delete: true, Conditions: conds}
}

// KeyedStore is the contract services use against the single table.
type KeyedStore interface {
	// Get returns the record at key or ErrNotFound.
	Get(ctx context.Context, key keyscheme.Key) (Record, error)

	// Put writes a record; a failed condition returns ErrConditionFailed.
	Put(ctx context.Context, record Record, conds ...Condition) error

	// Query drains every record matching the input, ordered by range key.
	Query(ctx context.Context, input QueryInput) ([]Record, error)

	// Update sets attributes and returns the full updated record.
	Update(ctx context.Context, key keyscheme.Key, set map[string]any, conds ...Condition) (Record, error)

	// UpdateCounters atomically adds deltas and returns the updated attributes.
	UpdateCounters(ctx context.Context, key keyscheme.Key, deltas map[string]int64, conds ...Condition) (Record, error)

	// TransactWrite applies every op or none of them.
	TransactWrite(ctx context.Context, ops ...TransactOp) error
}
