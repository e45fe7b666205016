// Package keyscheme derives single-table partition and sort keys from entity identifiers.
package keyscheme

import (
	"errors"
	"fmt"
)

// Separator joins an entity tag and its identifying value.
const Separator = "#"

var (
	// ErrMissingConfiguration is returned when a scheme lacks its partition entity or field.
	ErrMissingConfiguration = errors.New("keyscheme: partition entity and field must be set")

	// ErrMissingSortValue is returned when a scheme with a sort entity is given no sort value.
	ErrMissingSortValue = errors.New("keyscheme: sort value is required")
)

// Key is the composite primary key of a record.
type Key struct {
	PK string
	SK string
}

// Scheme describes how one entity type is keyed inside the shared table.
//
// An entity without a SortEntity is the root of its partition and its sort
// key equals its partition key.
type Scheme struct {
	// PartitionEntity tags the partition key (e.g., "Customer").
	PartitionEntity string

	// PartitionField is the record attribute supplying the partition value (e.g., "email").
	PartitionField string

	// SortEntity tags the sort key (e.g., "Address"). Empty for root entities.
	SortEntity string

	// SortField is the record attribute supplying the sort value. Required with SortEntity.
	SortField string
}

// Validate reports whether the scheme carries the configuration needed to derive keys.
func (s Scheme) Validate() error {
	if s.PartitionEntity == "" || s.PartitionField == "" {
		return ErrMissingConfiguration
	}
	if s.SortEntity != "" && s.SortField == "" {
		return fmt.Errorf("%w: sort entity %q has no sort field", ErrMissingConfiguration, s.SortEntity)
	}
	return nil
}

// IsRoot returns true when the entity is the root of its partition.
func (s Scheme) IsRoot() bool {
	return s.SortEntity == ""
}

// Entity returns the discriminator stored with every record: the most specific tag.
func (s Scheme) Entity() string {
	if s.SortEntity != "" {
		return s.SortEntity
	}
	return s.PartitionEntity
}

// PartitionKey returns the partition key for a partition value.
func (s Scheme) PartitionKey(partitionValue string) string {
	return s.PartitionEntity + Separator + partitionValue
}

// SortKey returns the sort key for a sort value. Root entities have no sort key of their own.
func (s Scheme) SortKey(sortValue string) string {
	return s.SortEntity + Separator + sortValue
}

// Derive computes the primary key. sortValue is ignored for root entities and
// must be non-empty otherwise.
func (s Scheme) Derive(partitionValue, sortValue string) (Key, error) {
	if err := s.Validate(); err != nil {
		return Key{}, err
	}

	pk := s.PartitionKey(partitionValue)
	if s.IsRoot() {
		return Key{PK: pk, SK: pk}, nil
	}
	if sortValue == "" {
		return Key{}, fmt.Errorf("%w: %s", ErrMissingSortValue, s.SortEntity)
	}
	return Key{PK: pk, SK: s.SortKey(sortValue)}, nil
}

// Sequence formats a line sequence number as a zero-padded two digit string.
func Sequence(n int64) string {
	return fmt.Sprintf("%02d", n)
}
