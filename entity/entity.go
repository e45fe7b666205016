// Package entity defines the domain entities stored in the shared table and
// the factories that key, encode and decode them.
//
// Each entity type is bound to a [keyscheme.Scheme] through a [Factory]:
//
//	rec, err := entity.OrderFactory.ToRecord(order)   // pk, sk and entity overlaid
//	order, err := entity.OrderFactory.FromRecord(rec) // validated, every bad field reported
//
// Customers and their addresses share the Customer#<email> partition; orders
// and their line items share the Order#<id> partition.
package entity

import "github.com/jacentio/ordertable/internal/keyscheme"

var (
	CustomerFactory = MustFactory[Customer](keyscheme.Scheme{
		PartitionEntity: "Customer",
		PartitionField:  "email",
		SortEntity:      "User",
		SortField:       "username",
	})

	AddressFactory = MustFactory[Address](keyscheme.Scheme{
		PartitionEntity: "Customer",
		PartitionField:  "email",
		SortEntity:      "Address",
		SortField:       "id",
	})

	OrderFactory = MustFactory[Order](keyscheme.Scheme{
		PartitionEntity: "Order",
		PartitionField:  "id",
	})

	LineItemFactory = MustFactory[LineItem](keyscheme.Scheme{
		PartitionEntity: "Order",
		PartitionField:  "order_id",
		SortEntity:      "LineItem",
		SortField:       "id",
	})
)

// DefaultRegistry returns a registry of every entity in the table.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	RegisterFactory(r, CustomerFactory)
	RegisterFactory(r, AddressFactory)
	RegisterFactory(r, OrderFactory)
	RegisterFactory(r, LineItemFactory)
	return r
}
