package entity

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-playground/validator/v10"

	"github.com/jacentio/ordertable/internal/keyscheme"
	"github.com/jacentio/ordertable/store"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(attributeName)
	return v
}

// attributeName returns the stored attribute name of a struct field, or "" if
// it is not stored. Structs without dynamodbav tags are named by their json tags.
func attributeName(f reflect.StructField) string {
	tag, ok := f.Tag.Lookup("dynamodbav")
	if !ok {
		tag = f.Tag.Get("json")
	}
	name, _, _ := strings.Cut(tag, ",")
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}

// ValidateStruct checks v against its validate tags, reporting every offending
// field in a *ValidationError named name.
func ValidateStruct(name string, v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("entity: validate %s: %w", name, err)
	}

	verr := &ValidationError{Entity: name}
	for _, e := range fieldErrs {
		verr.add(fieldPath(e), e.Tag(), fieldMessage(e))
	}
	return verr
}

type attribute struct {
	index int
	name  string
}

// Factory binds a key scheme to the record encoding of T.
// T must be a struct whose dynamodbav attributes include the scheme's key fields.
type Factory[T any] struct {
	scheme     keyscheme.Scheme
	attributes []attribute
}

// NewFactory creates a Factory, failing with keyscheme.ErrMissingConfiguration
// when the scheme is incomplete or names a field T does not have.
func NewFactory[T any](scheme keyscheme.Scheme) (*Factory[T], error) {
	if err := scheme.Validate(); err != nil {
		return nil, err
	}

	typ := reflect.TypeOf((*T)(nil)).Elem()
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("entity: %s is not a struct", typ)
	}

	var attrs []attribute
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		if !f.IsExported() || f.Anonymous {
			continue
		}
		if name := attributeName(f); name != "" {
			attrs = append(attrs, attribute{index: i, name: name})
		}
	}

	f := &Factory[T]{scheme: scheme, attributes: attrs}
	for _, field := range []string{scheme.PartitionField, scheme.SortField} {
		if field != "" && !f.hasAttribute(field) {
			return nil, fmt.Errorf("%w: %s has no attribute %q", keyscheme.ErrMissingConfiguration, typ, field)
		}
	}
	return f, nil
}

// MustFactory is like NewFactory but panics on a configuration error.
func MustFactory[T any](scheme keyscheme.Scheme) *Factory[T] {
	f, err := NewFactory[T](scheme)
	if err != nil {
		panic(err)
	}
	return f
}

func (f *Factory[T]) hasAttribute(name string) bool {
	for _, a := range f.attributes {
		if a.name == name {
			return true
		}
	}
	return false
}

// Scheme returns the key scheme.
func (f *Factory[T]) Scheme() keyscheme.Scheme {
	return f.scheme
}

// Entity returns the discriminator stored on every record of T.
func (f *Factory[T]) Entity() string {
	return f.scheme.Entity()
}

// CalculateKey derives a key before any value of T exists.
func (f *Factory[T]) CalculateKey(partitionValue, sortValue string) (keyscheme.Key, error) {
	if partitionValue == "" {
		return keyscheme.Key{}, fmt.Errorf("%w: %s.%s", ErrMissingKeyValue, f.Entity(), f.scheme.PartitionField)
	}
	return f.scheme.Derive(partitionValue, sortValue)
}

// KeyOf derives the key of v from its key fields.
func (f *Factory[T]) KeyOf(v T) (keyscheme.Key, error) {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return keyscheme.Key{}, fmt.Errorf("entity: marshal %s: %w", f.Entity(), err)
	}
	return f.keyOf(item)
}

func (f *Factory[T]) keyOf(item map[string]types.AttributeValue) (keyscheme.Key, error) {
	partition := scalar(item[f.scheme.PartitionField])
	var sortValue string
	if !f.scheme.IsRoot() {
		sortValue = scalar(item[f.scheme.SortField])
	}
	return f.CalculateKey(partition, sortValue)
}

// ToRecord validates v, serializes it and overlays pk, sk and entity.
func (f *Factory[T]) ToRecord(v T) (store.Record, error) {
	if err := f.check(v); err != nil {
		return nil, err
	}

	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return nil, fmt.Errorf("entity: marshal %s: %w", f.Entity(), err)
	}
	if len(item) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyRecord, f.Entity())
	}

	key, err := f.keyOf(item)
	if err != nil {
		return nil, err
	}

	rec := store.Record(item)
	for attr, av := range store.KeyAttributes(key) {
		rec[attr] = av
	}
	rec[store.AttrEntity] = &types.AttributeValueMemberS{Value: f.Entity()}
	return rec, nil
}

// FromRecord decodes and validates a record. Every offending field is reported
// in a single *ValidationError.
func (f *Factory[T]) FromRecord(rec store.Record) (T, error) {
	var zero T
	if got := rec.Entity(); got != f.Entity() {
		return zero, fmt.Errorf("%w: expected %s, got %q", ErrEntityMismatch, f.Entity(), got)
	}

	var v T
	verr := &ValidationError{Entity: f.Entity()}
	rv := reflect.ValueOf(&v).Elem()
	for _, a := range f.attributes {
		av, ok := rec[a.name]
		if !ok {
			continue
		}
		if err := attributevalue.Unmarshal(av, rv.Field(a.index).Addr().Interface()); err != nil {
			verr.add(a.name, "type", fmt.Sprintf("%s has the wrong type", a.name))
		}
	}

	if err := f.check(v); err != nil {
		if fields, ok := err.(*ValidationError); ok {
			for _, fe := range fields.Fields {
				if !verr.has(fe.Field) {
					verr.Fields = append(verr.Fields, fe)
				}
			}
		} else {
			return zero, err
		}
	}

	if len(verr.Fields) > 0 {
		return zero, verr
	}
	return v, nil
}

// Validate checks v against its field rules.
func (f *Factory[T]) Validate(v T) error {
	return f.check(v)
}

func (f *Factory[T]) check(v T) error {
	return ValidateStruct(f.Entity(), v)
}

// fieldPath drops the struct name from a validator namespace.
func fieldPath(e validator.FieldError) string {
	_, path, ok := strings.Cut(e.Namespace(), ".")
	if !ok {
		return e.Field()
	}
	return path
}

func fieldMessage(e validator.FieldError) string {
	field := fieldPath(e)

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "len":
		return fmt.Sprintf("%s must have length %s", field, e.Param())
	case "datetime":
		return fmt.Sprintf("%s must match %s", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// scalar returns the text of a string or number attribute.
func scalar(av types.AttributeValue) string {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value
	case *types.AttributeValueMemberN:
		return v.Value
	}
	return ""
}
