package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacentio/ordertable/internal/keyscheme"
	"github.com/jacentio/ordertable/store"
)

var (
	orderKey = keyscheme.Key{PK: "Order#abc", SK: "Order#abc"}
	lineKey  = keyscheme.Key{PK: "Order#abc", SK: "LineItem#01"}
)

func s(v string) types.AttributeValue { return &types.AttributeValueMemberS{Value: v} }
func n(v string) types.AttributeValue { return &types.AttributeValueMemberN{Value: v} }

func orderRecord(status, count string) store.Record {
	return store.Record{
		"pk": s(orderKey.PK), "sk": s(orderKey.SK), "entity": s("Order"),
		"status": s(status), "item_count": n(count),
	}
}

func TestPutGet(t *testing.T) {
	ctx := context.Background()
	m := New()

	require.NoError(t, m.Put(ctx, orderRecord("new", "0")))

	rec, err := m.Get(ctx, orderKey)
	require.NoError(t, err)
	assert.Equal(t, "Order", rec.Entity())

	// returned records are copies
	rec["status"] = s("tampered")
	again, err := m.Get(ctx, orderKey)
	require.NoError(t, err)
	status, _ := again.String("status")
	assert.Equal(t, "new", status)
}

func TestGet_NotFound(t *testing.T) {
	_, err := New().Get(context.Background(), orderKey)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPut_InvalidRecord(t *testing.T) {
	err := New().Put(context.Background(), store.Record{"pk": s("x")})
	assert.ErrorIs(t, err, store.ErrInvalidRecord)
}

func TestPut_AttributeNotExists(t *testing.T) {
	ctx := context.Background()
	m := New()
	rec := store.Record{"pk": s("Customer#a@b.c"), "sk": s("User#ab"), "username": s("ab")}

	require.NoError(t, m.Put(ctx, rec, store.AttributeNotExists("username")))
	err := m.Put(ctx, rec, store.AttributeNotExists("username"))
	assert.ErrorIs(t, err, store.ErrConditionFailed)
	assert.Equal(t, 1, m.Len())
}

func TestPut_WriteError(t *testing.T) {
	boom := errors.New("boom")
	m := New().WithWriteError(boom)
	err := m.Put(context.Background(), orderRecord("new", "0"))
	assert.ErrorIs(t, err, boom)
}

func TestQuery(t *testing.T) {
	ctx := context.Background()
	m := New()

	require.NoError(t, m.Put(ctx, orderRecord("new", "2")))
	for _, sk := range []string{"LineItem#02", "LineItem#01"} {
		require.NoError(t, m.Put(ctx, store.Record{"pk": s(orderKey.PK), "sk": s(sk), "entity": s("LineItem")}))
	}
	require.NoError(t, m.Put(ctx, store.Record{"pk": s("Order#other"), "sk": s("Order#other")}))

	records, err := m.Query(ctx, store.QueryInput{PartitionValue: orderKey.PK})
	require.NoError(t, err)
	require.Len(t, records, 3)

	var sks []string
	for _, r := range records {
		sk, _ := r.String("sk")
		sks = append(sks, sk)
	}
	assert.Equal(t, []string{"LineItem#01", "LineItem#02", "Order#abc"}, sks)

	items, err := m.Query(ctx, store.QueryInput{PartitionValue: orderKey.PK, SortPrefix: "LineItem#"})
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestQuery_Reverse(t *testing.T) {
	ctx := context.Background()
	m := New()

	require.NoError(t, m.Put(ctx, store.Record{"pk": s("Customer#b@x.com"), "sk": s("User#pfry")}))
	require.NoError(t, m.Put(ctx, store.Record{"pk": s("Customer#a@x.com"), "sk": s("User#pfry")}))
	require.NoError(t, m.Put(ctx, store.Record{"pk": s("Customer#c@x.com"), "sk": s("User#bender")}))

	records, err := m.Query(ctx, store.QueryInput{PartitionValue: "User#pfry", Reverse: true})
	require.NoError(t, err)
	require.Len(t, records, 2)
	pk, _ := records[0].String("pk")
	assert.Equal(t, "Customer#a@x.com", pk)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	m := New()
	require.NoError(t, m.Put(ctx, orderRecord("new", "0")))

	rec, err := m.Update(ctx, orderKey, map[string]any{"status": "submitted"}, store.Equal("status", "new"))
	require.NoError(t, err)
	status, _ := rec.String("status")
	assert.Equal(t, "submitted", status)
	assert.Equal(t, "Order", rec.Entity())

	_, err = m.Update(ctx, orderKey, map[string]any{"status": "in_progress"}, store.Equal("status", "new"))
	assert.ErrorIs(t, err, store.ErrConditionFailed)

	_, err = m.Update(ctx, orderKey, nil)
	assert.ErrorIs(t, err, store.ErrEmptyUpdate)
}

func TestUpdate_MissingRecordWithExistsCondition(t *testing.T) {
	m := New()
	_, err := m.Update(context.Background(), orderKey, map[string]any{"status": "new"}, store.RecordExists())
	assert.ErrorIs(t, err, store.ErrConditionFailed)
	assert.Equal(t, 0, m.Len())
}

func TestUpdateCounters(t *testing.T) {
	ctx := context.Background()
	m := New()
	require.NoError(t, m.Put(ctx, orderRecord("new", "98")))

	conds := []store.Condition{store.RecordExists(), store.Equal("status", "new"), store.LessThan("item_count", 99)}

	attrs, err := m.UpdateCounters(ctx, orderKey, map[string]int64{"item_count": 1}, conds...)
	require.NoError(t, err)
	assert.Equal(t, n("99"), attrs["item_count"])
	assert.Len(t, attrs, 1)

	_, err = m.UpdateCounters(ctx, orderKey, map[string]int64{"item_count": 1}, conds...)
	assert.ErrorIs(t, err, store.ErrConditionFailed)
}

func TestUpdateCounters_MissingRecord(t *testing.T) {
	_, err := New().UpdateCounters(context.Background(), orderKey, map[string]int64{"item_count": 1}, store.RecordExists())
	assert.ErrorIs(t, err, store.ErrConditionFailed)
}

func TestUpdateCounters_MissingAttribute(t *testing.T) {
	ctx := context.Background()
	m := New()
	require.NoError(t, m.Put(ctx, store.Record{"pk": s(orderKey.PK), "sk": s(orderKey.SK)}))

	_, err := m.UpdateCounters(ctx, orderKey, map[string]int64{"item_count": 1})
	require.Error(t, err)
	assert.NotErrorIs(t, err, store.ErrConditionFailed)
}

func TestTransactWrite_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	m := New()
	require.NoError(t, m.Put(ctx, orderRecord("submitted", "1")))
	require.NoError(t, m.Put(ctx, store.Record{"pk": s(lineKey.PK), "sk": s(lineKey.SK)}))

	err := m.TransactWrite(ctx,
		store.CounterOp(orderKey, map[string]int64{"item_count": -1}, store.RecordExists(), store.Equal("status", "new")),
		store.DeleteOp(lineKey, store.RecordExists()),
	)
	require.ErrorIs(t, err, store.ErrTransactionCanceled)

	var canceled *store.TransactionCanceledError
	require.ErrorAs(t, err, &canceled)
	assert.Equal(t, []string{store.ReasonConditionalCheckFailed, "None"}, canceled.Reasons)

	// nothing applied
	_, err = m.Get(ctx, lineKey)
	assert.NoError(t, err)
	order, err := m.Get(ctx, orderKey)
	require.NoError(t, err)
	assert.Equal(t, n("1"), order["item_count"])
}

func TestTransactWrite_Applies(t *testing.T) {
	ctx := context.Background()
	m := New()
	require.NoError(t, m.Put(ctx, orderRecord("new", "1")))
	require.NoError(t, m.Put(ctx, store.Record{"pk": s(lineKey.PK), "sk": s(lineKey.SK)}))

	err := m.TransactWrite(ctx,
		store.CounterOp(orderKey, map[string]int64{"item_count": -1}, store.RecordExists(), store.Equal("status", "new")),
		store.DeleteOp(lineKey, store.RecordExists()),
	)
	require.NoError(t, err)

	_, err = m.Get(ctx, lineKey)
	assert.ErrorIs(t, err, store.ErrNotFound)
	order, err := m.Get(ctx, orderKey)
	require.NoError(t, err)
	assert.Equal(t, n("0"), order["item_count"])
}

func TestTransactWrite_DuplicateKey(t *testing.T) {
	err := New().TransactWrite(context.Background(), store.DeleteOp(lineKey), store.DeleteOp(lineKey))
	require.Error(t, err)
	assert.NotErrorIs(t, err, store.ErrTransactionCanceled)
}

func TestEvaluate(t *testing.T) {
	rec := orderRecord("new", "5")

	tests := []struct {
		name string
		cond store.Condition
		want bool
	}{
		{"exists", store.AttributeExists("status"), true},
		{"exists missing", store.AttributeExists("nope"), false},
		{"not exists", store.AttributeNotExists("nope"), true},
		{"not exists present", store.AttributeNotExists("status"), false},
		{"equal string", store.Equal("status", "new"), true},
		{"equal string mismatch", store.Equal("status", "shipped"), false},
		{"equal number", store.Equal("item_count", 5), true},
		{"equal type mismatch", store.Equal("item_count", "5"), false},
		{"less than", store.LessThan("item_count", 99), true},
		{"less than equal", store.LessThan("item_count", 5), false},
		{"less than missing", store.LessThan("nope", 99), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := evaluate(rec, []store.Condition{tt.cond})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluate_NilRecord(t *testing.T) {
	ok, err := evaluate(nil, []store.Condition{store.AttributeNotExists("pk")})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = evaluate(nil, []store.Condition{store.RecordExists()})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecords_Ordered(t *testing.T) {
	ctx := context.Background()
	m := New()
	require.NoError(t, m.Put(ctx, store.Record{"pk": s("b"), "sk": s("1")}))
	require.NoError(t, m.Put(ctx, store.Record{"pk": s("a"), "sk": s("2")}))
	require.NoError(t, m.Put(ctx, store.Record{"pk": s("a"), "sk": s("1")}))

	records := m.Records()
	require.Len(t, records, 3)
	key, _ := records[0].Key()
	assert.Equal(t, keyscheme.Key{PK: "a", SK: "1"}, key)
}
