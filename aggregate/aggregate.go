// Package aggregate assembles a root entity and its children from the records of one partition.
package aggregate

import (
	"errors"
	"fmt"
	"sort"

	"github.com/jacentio/ordertable/entity"
	"github.com/jacentio/ordertable/store"
)

// ErrMultipleRoots is returned when a partition holds more than one root record.
var ErrMultipleRoots = errors.New("aggregate: more than one root record")

// Aggregate is a root entity with its children ordered by sort key.
type Aggregate[R, C any] struct {
	Root     R
	Children []C
}

// Assemble partitions records by discriminator. found is false when no record
// matches the root's discriminator. Records of any other entity are ignored.
func Assemble[R, C any](records []store.Record, root *entity.Factory[R], child *entity.Factory[C]) (agg Aggregate[R, C], found bool, err error) {
	var rootRecords, childRecords []store.Record
	for _, rec := range records {
		switch rec.Entity() {
		case root.Entity():
			rootRecords = append(rootRecords, rec)
		case child.Entity():
			childRecords = append(childRecords, rec)
		}
	}

	switch len(rootRecords) {
	case 0:
		return agg, false, nil
	case 1:
	default:
		return agg, false, fmt.Errorf("%w: %d %s records", ErrMultipleRoots, len(rootRecords), root.Entity())
	}

	agg.Root, err = root.FromRecord(rootRecords[0])
	if err != nil {
		return agg, false, err
	}

	sort.SliceStable(childRecords, func(i, j int) bool {
		a, _ := childRecords[i].String(store.AttrSK)
		b, _ := childRecords[j].String(store.AttrSK)
		return a < b
	})

	agg.Children = make([]C, 0, len(childRecords))
	for _, rec := range childRecords {
		c, err := child.FromRecord(rec)
		if err != nil {
			return agg, false, err
		}
		agg.Children = append(agg.Children, c)
	}

	return agg, true, nil
}
