package store

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
)

// Operator is the comparison a Condition applies.
type Operator int

const (
	OpExists Operator = iota + 1
	OpNotExists
	OpEqual
	OpLessThan
)

// Condition is a predicate over an attribute of the record being written.
type Condition struct {
	Attr  string
	Op    Operator
	Value any
}

// AttributeExists holds when the record has the attribute.
func AttributeExists(attr string) Condition {
	return Condition{Attr: attr, Op: OpExists}
}

// AttributeNotExists holds when the record lacks the attribute (or does not exist at all).
func AttributeNotExists(attr string) Condition {
	return Condition{Attr: attr, Op: OpNotExists}
}

// Equal holds when the attribute equals value.
func Equal(attr string, value any) Condition {
	return Condition{Attr: attr, Op: OpEqual, Value: value}
}

// LessThan holds when the attribute is less than value.
func LessThan(attr string, value any) Condition {
	return Condition{Attr: attr, Op: OpLessThan, Value: value}
}

// RecordExists holds when a record exists at the written key.
func RecordExists() Condition {
	return AttributeExists(AttrPK)
}

func (c Condition) String() string {
	switch c.Op {
	case OpExists:
		return fmt.Sprintf("attribute_exists(%s)", c.Attr)
	case OpNotExists:
		return fmt.Sprintf("attribute_not_exists(%s)", c.Attr)
	case OpEqual:
		return fmt.Sprintf("%s = %v", c.Attr, c.Value)
	case OpLessThan:
		return fmt.Sprintf("%s < %v", c.Attr, c.Value)
	}
	return fmt.Sprintf("unknown(%s)", c.Attr)
}

func (c Condition) builder() (expression.ConditionBuilder, error) {
	name := expression.Name(c.Attr)
	switch c.Op {
	case OpExists:
		return name.AttributeExists(), nil
	case OpNotExists:
		return name.AttributeNotExists(), nil
	case OpEqual:
		return name.Equal(expression.Value(c.Value)), nil
	case OpLessThan:
		return name.LessThan(expression.Value(c.Value)), nil
	}
	return expression.ConditionBuilder{}, fmt.Errorf("unsupported condition operator %d on %q", c.Op, c.Attr)
}

// conditionBuilder combines conditions with AND. ok is false when there are none.
func conditionBuilder(conds []Condition) (cb expression.ConditionBuilder, ok bool, err error) {
	if len(conds) == 0 {
		return cb, false, nil
	}

	builders := make([]expression.ConditionBuilder, 0, len(conds))
	for _, c := range conds {
		b, err := c.builder()
		if err != nil {
			return cb, false, err
		}
		builders = append(builders, b)
	}

	if len(builders) == 1 {
		return builders[0], true, nil
	}
	return expression.And(builders[0], builders[1], builders[2:]...), true, nil
}
