// Package memstore provides an in-memory implementation of store.KeyedStore for testing.
package memstore

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/ordertable/internal/keyscheme"
	"github.com/jacentio/ordertable/store"
)

// Store is an in-memory single table. Conditions and transactions follow the
// same semantics as the DynamoDB-backed store.Store.
type Store struct {
	mu         sync.RWMutex
	records    map[keyscheme.Key]store.Record
	writeError error
}

var _ store.KeyedStore = (*Store)(nil)

// New creates an empty Store.
func New() *Store {
	return &Store{
		records: make(map[keyscheme.Key]store.Record),
	}
}

// WithWriteError makes every subsequent write return err.
func (m *Store) WithWriteError(err error) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeError = err
	return m
}

// Len returns the number of stored records.
func (m *Store) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Records returns a copy of every stored record ordered by pk then sk.
func (m *Store) Records() []store.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]keyscheme.Key, 0, len(m.records))
	for k := range m.records {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].PK != keys[j].PK {
			return keys[i].PK < keys[j].PK
		}
		return keys[i].SK < keys[j].SK
	})

	out := make([]store.Record, 0, len(keys))
	for _, k := range keys {
		out = append(out, m.records[k].Clone())
	}
	return out
}

// Get returns the record at key or store.ErrNotFound.
func (m *Store) Get(_ context.Context, key keyscheme.Key) (store.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return rec.Clone(), nil
}

// Put writes a record when every condition holds against the current one.
func (m *Store) Put(_ context.Context, record store.Record, conds ...store.Condition) error {
	key, ok := record.Key()
	if !ok {
		return store.ErrInvalidRecord
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.writeError != nil {
		return m.writeError
	}

	pass, err := evaluate(m.records[key], conds)
	if err != nil {
		return err
	}
	if !pass {
		return store.ErrConditionFailed
	}

	m.records[key] = record.Clone()
	return nil
}

// Query returns matching records ordered by range key.
func (m *Store) Query(_ context.Context, input store.QueryInput) ([]store.Record, error) {
	hashAttr, rangeAttr := store.AttrPK, store.AttrSK
	if input.Reverse {
		hashAttr, rangeAttr = store.AttrSK, store.AttrPK
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []store.Record
	for _, rec := range m.records {
		hash, _ := rec.String(hashAttr)
		if hash != input.PartitionValue {
			continue
		}
		rng, _ := rec.String(rangeAttr)
		if input.SortPrefix != "" && !strings.HasPrefix(rng, input.SortPrefix) {
			continue
		}
		out = append(out, rec.Clone())
	}

	sort.Slice(out, func(i, j int) bool {
		a, _ := out[i].String(rangeAttr)
		b, _ := out[j].String(rangeAttr)
		return a < b
	})
	return out, nil
}

// Update sets attributes, creating the record if none exists and no condition forbids it.
func (m *Store) Update(_ context.Context, key keyscheme.Key, set map[string]any, conds ...store.Condition) (store.Record, error) {
	if len(set) == 0 {
		return nil, store.ErrEmptyUpdate
	}

	values := make(map[string]types.AttributeValue, len(set))
	for attr, v := range set {
		av, err := attributevalue.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", attr, err)
		}
		values[attr] = av
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.writeError != nil {
		return nil, m.writeError
	}

	current := m.records[key]
	pass, err := evaluate(current, conds)
	if err != nil {
		return nil, err
	}
	if !pass {
		return nil, store.ErrConditionFailed
	}

	next := current.Clone()
	for attr, av := range store.KeyAttributes(key) {
		next[attr] = av
	}
	for attr, av := range values {
		next[attr] = av
	}
	m.records[key] = next
	return next.Clone(), nil
}

// UpdateCounters adds deltas to existing numeric attributes.
func (m *Store) UpdateCounters(_ context.Context, key keyscheme.Key, deltas map[string]int64, conds ...store.Condition) (store.Record, error) {
	if len(deltas) == 0 {
		return nil, store.ErrEmptyUpdate
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.writeError != nil {
		return nil, m.writeError
	}

	current := m.records[key]
	pass, err := evaluate(current, conds)
	if err != nil {
		return nil, err
	}
	if !pass {
		return nil, store.ErrConditionFailed
	}

	next, updated, err := applyCounters(key, current, deltas)
	if err != nil {
		return nil, err
	}
	m.records[key] = next
	return updated, nil
}

// TransactWrite checks every condition before applying any op.
func (m *Store) TransactWrite(_ context.Context, ops ...store.TransactOp) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.writeError != nil {
		return m.writeError
	}

	seen := make(map[keyscheme.Key]bool, len(ops))
	reasons := make([]string, len(ops))
	failed := false
	for i, op := range ops {
		if seen[op.Key] {
			return fmt.Errorf("transact write items: multiple operations on %s/%s", op.Key.PK, op.Key.SK)
		}
		seen[op.Key] = true

		pass, err := evaluate(m.records[op.Key], op.Conditions)
		if err != nil {
			return err
		}
		reasons[i] = "None"
		if !pass {
			reasons[i] = store.ReasonConditionalCheckFailed
			failed = true
		}
	}
	if failed {
		return &store.TransactionCanceledError{Reasons: reasons}
	}

	staged := make(map[keyscheme.Key]store.Record, len(ops))
	for i, op := range ops {
		if op.Delete {
			continue
		}
		next, _, err := applyCounters(op.Key, m.records[op.Key], op.Deltas)
		if err != nil {
			return fmt.Errorf("transact op %d: %w", i, err)
		}
		staged[op.Key] = next
	}

	for _, op := range ops {
		if op.Delete {
			delete(m.records, op.Key)
			continue
		}
		m.records[op.Key] = staged[op.Key]
	}
	return nil
}

// applyCounters returns the new record and the updated attributes alone.
func applyCounters(key keyscheme.Key, current store.Record, deltas map[string]int64) (store.Record, store.Record, error) {
	if len(deltas) == 0 {
		return nil, nil, store.ErrEmptyUpdate
	}

	next := current.Clone()
	updated := make(store.Record, len(deltas))
	for attr, delta := range deltas {
		n, ok := current[attr].(*types.AttributeValueMemberN)
		if !ok {
			return nil, nil, fmt.Errorf("counter %s missing on %s/%s", attr, key.PK, key.SK)
		}
		v, err := strconv.ParseInt(n.Value, 10, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("counter %s: %w", attr, err)
		}
		av := &types.AttributeValueMemberN{Value: strconv.FormatInt(v+delta, 10)}
		next[attr] = av
		updated[attr] = av
	}
	return next, updated, nil
}

// evaluate reports whether every condition holds. A nil record has no attributes.
func evaluate(rec store.Record, conds []store.Condition) (bool, error) {
	for _, c := range conds {
		current, exists := rec[c.Attr]

		switch c.Op {
		case store.OpExists:
			if !exists {
				return false, nil
			}
		case store.OpNotExists:
			if exists {
				return false, nil
			}
		case store.OpEqual, store.OpLessThan:
			if !exists {
				return false, nil
			}
			want, err := attributevalue.Marshal(c.Value)
			if err != nil {
				return false, fmt.Errorf("marshal condition %s: %w", c, err)
			}
			cmp, ok := compare(current, want)
			if !ok {
				return false, nil
			}
			if c.Op == store.OpEqual && cmp != 0 {
				return false, nil
			}
			if c.Op == store.OpLessThan && cmp >= 0 {
				return false, nil
			}
		default:
			return false, fmt.Errorf("unsupported condition %s", c)
		}
	}
	return true, nil
}

// compare orders two attribute values of the same type. Numbers compare
// numerically, strings lexically; other types only compare for equality.
func compare(a, b types.AttributeValue) (int, bool) {
	switch av := a.(type) {
	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		if !ok {
			return 0, false
		}
		x, err1 := strconv.ParseFloat(av.Value, 64)
		y, err2 := strconv.ParseFloat(bv.Value, 64)
		if err1 != nil || err2 != nil {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		if !ok {
			return 0, false
		}
		return strings.Compare(av.Value, bv.Value), true
	}

	if reflect.DeepEqual(a, b) {
		return 0, true
	}
	return 0, false
}
