package store

import (
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

// --- conditionBuilder Tests ---

func TestConditionBuilder_Empty(t *testing.T) {
	_, ok, err := conditionBuilder(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected no condition for empty input")
	}
}

func TestConditionBuilder_Single(t *testing.T) {
	cond, ok, err := conditionBuilder([]Condition{AttributeNotExists("username")})
	if err != nil || !ok {
		t.Fatalf("expected condition, got ok=%v err=%v", ok, err)
	}

	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.HasPrefix(aws.ToString(expr.Condition()), "attribute_not_exists") {
		t.Errorf("unexpected condition %q", aws.ToString(expr.Condition()))
	}
	if !containsValue(expr.Names(), "username") {
		t.Errorf("expected username in names, got %v", expr.Names())
	}
}

func TestConditionBuilder_Multiple(t *testing.T) {
	cond, ok, err := conditionBuilder([]Condition{
		RecordExists(),
		Equal("status", "new"),
		LessThan("item_count", 99),
	})
	if err != nil || !ok {
		t.Fatalf("expected condition, got ok=%v err=%v", ok, err)
	}

	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	got := aws.ToString(expr.Condition())
	if strings.Count(got, "AND") != 2 {
		t.Errorf("expected three conditions joined by AND, got %q", got)
	}
	if len(expr.Values()) != 2 {
		t.Errorf("expected 2 values, got %d", len(expr.Values()))
	}
}

func TestConditionBuilder_UnknownOperator(t *testing.T) {
	_, _, err := conditionBuilder([]Condition{{Attr: "x", Op: Operator(42)}})
	if err == nil {
		t.Error("expected error for unknown operator")
	}
}

func TestCondition_String(t *testing.T) {
	tests := []struct {
		cond     Condition
		expected string
	}{
		{AttributeExists("pk"), "attribute_exists(pk)"},
		{AttributeNotExists("username"), "attribute_not_exists(username)"},
		{Equal("status", "new"), "status = new"},
		{LessThan("item_count", 99), "item_count < 99"},
	}

	for _, tt := range tests {
		if got := tt.cond.String(); got != tt.expected {
			t.Errorf("expected %q, got %q", tt.expected, got)
		}
	}
}

// --- counterUpdate Tests ---

func TestCounterUpdate_Empty(t *testing.T) {
	_, err := counterUpdate(nil)
	if !errors.Is(err, ErrEmptyUpdate) {
		t.Errorf("expected ErrEmptyUpdate, got %v", err)
	}
}

func TestCounterUpdate_Increment(t *testing.T) {
	update, err := counterUpdate(map[string]int64{"item_count": 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expr, err := expression.NewBuilder().WithUpdate(update).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	got := aws.ToString(expr.Update())
	if !strings.HasPrefix(got, "SET ") || !strings.Contains(got, "+") {
		t.Errorf("expected SET ... + ... expression, got %q", got)
	}
	for _, v := range expr.Values() {
		if n, ok := v.(*types.AttributeValueMemberN); !ok || n.Value != "1" {
			t.Errorf("expected numeric delta 1, got %#v", v)
		}
	}
}

// --- mapError Tests ---

func TestMapError_ConditionalCheckFailed(t *testing.T) {
	err := mapError("put item", &types.ConditionalCheckFailedException{})
	if !errors.Is(err, ErrConditionFailed) {
		t.Errorf("expected ErrConditionFailed, got %v", err)
	}
}

func TestMapError_TransactionCanceled(t *testing.T) {
	txErr := &types.TransactionCanceledException{
		CancellationReasons: []types.CancellationReason{
			{Code: aws.String("None")},
			{Code: aws.String(ReasonConditionalCheckFailed)},
			{Code: nil},
		},
	}

	err := mapError("transact write items", txErr)
	if !errors.Is(err, ErrTransactionCanceled) {
		t.Fatalf("expected ErrTransactionCanceled, got %v", err)
	}

	var canceled *TransactionCanceledError
	if !errors.As(err, &canceled) {
		t.Fatal("expected *TransactionCanceledError")
	}
	if len(canceled.Reasons) != 3 {
		t.Errorf("expected 3 reasons, got %d", len(canceled.Reasons))
	}
	failed := canceled.FailedConditions()
	if len(failed) != 1 || failed[0] != 1 {
		t.Errorf("expected failed condition at index 1, got %v", failed)
	}
}

func TestMapError_APIError(t *testing.T) {
	apiErr := &smithy.GenericAPIError{Code: "ProvisionedThroughputExceededException", Message: "slow down"}
	err := mapError("query", apiErr)
	if !strings.Contains(err.Error(), "ProvisionedThroughputExceededException") {
		t.Errorf("expected error code in message, got %q", err.Error())
	}
	if !errors.Is(err, apiErr) {
		t.Error("expected original error to be wrapped")
	}
}

func TestMapError_Other(t *testing.T) {
	original := errors.New("connection reset")
	err := mapError("get item", original)
	if !errors.Is(err, original) {
		t.Errorf("expected wrapped original error, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "get item: ") {
		t.Errorf("expected op prefix, got %q", err.Error())
	}
}

// --- sortedKeys Tests ---

func TestSortedKeys(t *testing.T) {
	got := sortedKeys(map[string]int64{"b": 1, "c": 2, "a": 3})
	if strings.Join(got, ",") != "a,b,c" {
		t.Errorf("expected a,b,c, got %v", got)
	}
}

func TestConfigValidate_Defaults(t *testing.T) {
	cfg := Config{}
	cfg.validate()
	if cfg.TableName != "ordertable" {
		t.Errorf("expected default table name, got %q", cfg.TableName)
	}
	if cfg.ReverseIndexName != "sk_pk_index" {
		t.Errorf("expected default index name, got %q", cfg.ReverseIndexName)
	}
}

func containsValue(m map[string]string, want string) bool {
	for _, v := range m {
		if v == want {
			return true
		}
	}
	return false
}
