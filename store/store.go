package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/jacentio/ordertable/internal/keyscheme"
)

// API is the subset of the DynamoDB client used by the Store.
// *dynamodb.Client satisfies it; tests substitute a mock.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// Store provides single-table DynamoDB operations.
type Store struct {
	client API
	config Config
}

var _ KeyedStore = (*Store)(nil)

// New creates a new Store instance.
func New(client API, config Config) *Store {
	config.validate()
	return &Store{
		client: client,
		config: config,
	}
}

// Config returns the effective configuration.
func (s *Store) Config() Config {
	return s.config
}

// Get retrieves a record by key, returning ErrNotFound if missing.
func (s *Store) Get(ctx context.Context, key keyscheme.Key) (Record, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.config.TableName),
		Key:            KeyAttributes(key),
		ConsistentRead: aws.Bool(s.config.ConsistentRead),
	})
	if err != nil {
		return nil, mapError("get item", err)
	}
	if result.Item == nil {
		return nil, ErrNotFound
	}
	return result.Item, nil
}

// Put writes a record. When conditions are given and one fails, ErrConditionFailed
// is returned and nothing is overwritten.
func (s *Store) Put(ctx context.Context, record Record, conds ...Condition) error {
	if _, ok := record.Key(); !ok {
		return ErrInvalidRecord
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(s.config.TableName),
		Item:      record,
	}

	cond, ok, err := conditionBuilder(conds)
	if err != nil {
		return err
	}
	if ok {
		expr, err := expression.NewBuilder().WithCondition(cond).Build()
		if err != nil {
			return fmt.Errorf("build put condition: %w", err)
		}
		input.ConditionExpression = expr.Condition()
		input.ExpressionAttributeNames = expr.Names()
		input.ExpressionAttributeValues = expr.Values()
	}

	if _, err := s.client.PutItem(ctx, input); err != nil {
		return mapError("put item", err)
	}
	return nil
}

// Query drains every page of a partition query. Records come back in range key order.
func (s *Store) Query(ctx context.Context, input QueryInput) ([]Record, error) {
	hashAttr, rangeAttr := AttrPK, AttrSK
	if input.Reverse {
		hashAttr, rangeAttr = AttrSK, AttrPK
	}

	keyCond := expression.Key(hashAttr).Equal(expression.Value(input.PartitionValue))
	if input.SortPrefix != "" {
		keyCond = keyCond.And(expression.Key(rangeAttr).BeginsWith(input.SortPrefix))
	}

	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("build key condition: %w", err)
	}

	queryInput := &dynamodb.QueryInput{
		TableName:                 aws.String(s.config.TableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}
	if input.Reverse {
		queryInput.IndexName = aws.String(s.config.ReverseIndexName)
	} else {
		queryInput.ConsistentRead = aws.Bool(s.config.ConsistentRead)
	}

	var records []Record
	paginator := dynamodb.NewQueryPaginator(s.client, queryInput)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, mapError("query", err)
		}
		for _, raw := range page.Items {
			records = append(records, raw)
		}
	}

	return records, nil
}

// Update sets attributes on an existing record and returns the full updated record.
func (s *Store) Update(ctx context.Context, key keyscheme.Key, set map[string]any, conds ...Condition) (Record, error) {
	if len(set) == 0 {
		return nil, ErrEmptyUpdate
	}

	var update expression.UpdateBuilder
	for _, attr := range sortedKeys(set) {
		update = update.Set(expression.Name(attr), expression.Value(set[attr]))
	}

	return s.updateItem(ctx, "update item", key, update, conds, types.ReturnValueAllNew)
}

// UpdateCounters atomically adds deltas to numeric attributes, guarded by conds.
// The returned record holds only the updated attributes.
func (s *Store) UpdateCounters(ctx context.Context, key keyscheme.Key, deltas map[string]int64, conds ...Condition) (Record, error) {
	update, err := counterUpdate(deltas)
	if err != nil {
		return nil, err
	}
	return s.updateItem(ctx, "update counters", key, update, conds, types.ReturnValueUpdatedNew)
}

func (s *Store) updateItem(ctx context.Context, op string, key keyscheme.Key, update expression.UpdateBuilder, conds []Condition, returnValues types.ReturnValue) (Record, error) {
	builder := expression.NewBuilder().WithUpdate(update)

	cond, ok, err := conditionBuilder(conds)
	if err != nil {
		return nil, err
	}
	if ok {
		builder = builder.WithCondition(cond)
	}

	expr, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("build %s expression: %w", op, err)
	}

	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.config.TableName),
		Key:                       KeyAttributes(key),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              returnValues,
	})
	if err != nil {
		return nil, mapError(op, err)
	}
	return out.Attributes, nil
}

// TransactWrite executes every op atomically. If any condition fails the whole
// set is rejected with a *TransactionCanceledError.
func (s *Store) TransactWrite(ctx context.Context, ops ...TransactOp) error {
	items := make([]types.TransactWriteItem, 0, len(ops))

	for i, op := range ops {
		item, err := s.transactItem(op)
		if err != nil {
			return fmt.Errorf("transact op %d: %w", i, err)
		}
		items = append(items, item)
	}

	_, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err != nil {
		return mapError("transact write items", err)
	}
	return nil
}

func (s *Store) transactItem(op TransactOp) (types.TransactWriteItem, error) {
	cond, hasCond, err := conditionBuilder(op.Conditions)
	if err != nil {
		return types.TransactWriteItem{}, err
	}

	if op.Delete {
		del := &types.Delete{
			TableName: aws.String(s.config.TableName),
			Key:       KeyAttributes(op.Key),
		}
		if hasCond {
			expr, err := expression.NewBuilder().WithCondition(cond).Build()
			if err != nil {
				return types.TransactWriteItem{}, fmt.Errorf("build delete condition: %w", err)
			}
			del.ConditionExpression = expr.Condition()
			del.ExpressionAttributeNames = expr.Names()
			del.ExpressionAttributeValues = expr.Values()
		}
		return types.TransactWriteItem{Delete: del}, nil
	}

	update, err := counterUpdate(op.Deltas)
	if err != nil {
		return types.TransactWriteItem{}, err
	}
	builder := expression.NewBuilder().WithUpdate(update)
	if hasCond {
		builder = builder.WithCondition(cond)
	}
	expr, err := builder.Build()
	if err != nil {
		return types.TransactWriteItem{}, fmt.Errorf("build update expression: %w", err)
	}

	return types.TransactWriteItem{
		Update: &types.Update{
			TableName:                 aws.String(s.config.TableName),
			Key:                       KeyAttributes(op.Key),
			UpdateExpression:          expr.Update(),
			ConditionExpression:       expr.Condition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
		},
	}, nil
}

// Verify checks that the table exists with a pk/sk composite key and that the
// reverse index inverts it.
func (s *Store) Verify(ctx context.Context) error {
	out, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.config.TableName),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return fmt.Errorf("table %s does not exist", s.config.TableName)
		}
		return mapError("describe table", err)
	}

	table := out.Table
	if table == nil {
		return fmt.Errorf("table %s has no description", s.config.TableName)
	}
	if err := verifyKeySchema("table "+s.config.TableName, table.KeySchema, AttrPK, AttrSK); err != nil {
		return err
	}

	for _, index := range table.GlobalSecondaryIndexes {
		if aws.ToString(index.IndexName) == s.config.ReverseIndexName {
			return verifyKeySchema("global secondary index "+s.config.ReverseIndexName, index.KeySchema, AttrSK, AttrPK)
		}
	}
	return fmt.Errorf("global secondary index %s not found", s.config.ReverseIndexName)
}

func verifyKeySchema(name string, schema []types.KeySchemaElement, hashKey, rangeKey string) error {
	if len(schema) != 2 {
		return fmt.Errorf("%s has %d key attributes, expected a composite key", name, len(schema))
	}
	for _, el := range schema {
		attr := aws.ToString(el.AttributeName)
		switch el.KeyType {
		case types.KeyTypeHash:
			if attr != hashKey {
				return fmt.Errorf("%s has partition key %s, expected %s", name, attr, hashKey)
			}
		case types.KeyTypeRange:
			if attr != rangeKey {
				return fmt.Errorf("%s has sort key %s, expected %s", name, attr, rangeKey)
			}
		}
	}
	return nil
}

// counterUpdate builds "SET a = a + :d" clauses in a stable attribute order.
func counterUpdate(deltas map[string]int64) (expression.UpdateBuilder, error) {
	var update expression.UpdateBuilder
	if len(deltas) == 0 {
		return update, ErrEmptyUpdate
	}
	for _, attr := range sortedKeys(deltas) {
		name := expression.Name(attr)
		update = update.Set(name, name.Plus(expression.Value(deltas[attr])))
	}
	return update, nil
}

// mapError maps DynamoDB errors to store errors.
func mapError(op string, err error) error {
	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return ErrConditionFailed
	}

	var txErr *types.TransactionCanceledException
	if errors.As(err, &txErr) {
		reasons := make([]string, len(txErr.CancellationReasons))
		for i, reason := range txErr.CancellationReasons {
			reasons[i] = aws.ToString(reason.Code)
		}
		return &TransactionCanceledError{Reasons: reasons}
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %s: %w", op, apiErr.ErrorCode(), err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
