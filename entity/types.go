package entity

// Timestamp layouts for server-derived creation times.
const (
	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02T15:04:05Z"
)

// MaxLineItems is the number of line items an order can hold with two digit sequence numbers.
const MaxLineItems = 99

// Status is an order's position in its fulfilment lifecycle.
type Status string

const (
	StatusNew            Status = "new"
	StatusSubmitted      Status = "submitted"
	StatusInProgress     Status = "in_progress"
	StatusFulfilled      Status = "fulfilled"
	StatusShipped        Status = "shipped"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
)

// statusOrder is the only path an order may take.
var statusOrder = []Status{
	StatusNew,
	StatusSubmitted,
	StatusInProgress,
	StatusFulfilled,
	StatusShipped,
	StatusOutForDelivery,
	StatusDelivered,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, st := range statusOrder {
		if st == s {
			return true
		}
	}
	return false
}

// Previous returns the status an order must be in to advance to s.
// StatusNew and unknown statuses have no predecessor.
func (s Status) Previous() (Status, bool) {
	for i, st := range statusOrder {
		if st == s && i > 0 {
			return statusOrder[i-1], true
		}
	}
	return "", false
}

// AddressType distinguishes delivery and billing addresses.
type AddressType string

const (
	AddressDelivery AddressType = "delivery"
	AddressBilling  AddressType = "billing"
)

// Customer is the root of a Customer partition.
type Customer struct {
	Email       string `dynamodbav:"email" json:"email" validate:"required,email"`
	Username    string `dynamodbav:"username" json:"username" validate:"required"`
	FirstName   string `dynamodbav:"first_name" json:"first_name" validate:"required"`
	LastName    string `dynamodbav:"last_name" json:"last_name" validate:"required"`
	DateCreated string `dynamodbav:"date_created" json:"date_created" validate:"required,datetime=2006-01-02"`
}

// Address belongs to the customer partition of its owning email.
type Address struct {
	ID              string      `dynamodbav:"id" json:"id" validate:"required"`
	Line1           string      `dynamodbav:"line1" json:"line1" validate:"required"`
	Line2           string      `dynamodbav:"line2,omitempty" json:"line2,omitempty"`
	City            string      `dynamodbav:"city" json:"city" validate:"required"`
	State           string      `dynamodbav:"state" json:"state" validate:"required"`
	Zipcode         string      `dynamodbav:"zipcode" json:"zipcode" validate:"required"`
	Type            AddressType `dynamodbav:"type" json:"type" validate:"required,oneof=delivery billing"`
	Email           string      `dynamodbav:"email" json:"email" validate:"required,email"`
	DatetimeCreated string      `dynamodbav:"datetime_created" json:"datetime_created" validate:"required,datetime=2006-01-02T15:04:05Z"`
}

// DeliveryAddress is the snapshot of an Address an order owns.
type DeliveryAddress struct {
	Line1   string `dynamodbav:"line1" json:"line1" validate:"required"`
	Line2   string `dynamodbav:"line2,omitempty" json:"line2,omitempty"`
	City    string `dynamodbav:"city" json:"city" validate:"required"`
	State   string `dynamodbav:"state" json:"state" validate:"required"`
	Zipcode string `dynamodbav:"zipcode" json:"zipcode" validate:"required"`
}

// Snapshot copies the postal fields of an address.
func (a Address) Snapshot() DeliveryAddress {
	return DeliveryAddress{
		Line1:   a.Line1,
		Line2:   a.Line2,
		City:    a.City,
		State:   a.State,
		Zipcode: a.Zipcode,
	}
}

// Order is the root of an Order partition.
type Order struct {
	ID              string          `dynamodbav:"id" json:"id" validate:"required"`
	CustomerEmail   string          `dynamodbav:"customer_email" json:"customer_email" validate:"required,email"`
	DeliveryAddress DeliveryAddress `dynamodbav:"delivery_address" json:"delivery_address"`
	Status          Status          `dynamodbav:"status" json:"status" validate:"required,oneof=new submitted in_progress fulfilled shipped out_for_delivery delivered"`
	ItemCount       int             `dynamodbav:"item_count" json:"item_count" validate:"min=0,max=99"`
	DatetimeCreated string          `dynamodbav:"datetime_created" json:"datetime_created" validate:"required,datetime=2006-01-02T15:04:05Z"`
}

// LineItem belongs to the order partition of OrderID. ID is a two digit sequence number.
type LineItem struct {
	ID          string `dynamodbav:"id" json:"id" validate:"required,len=2,numeric"`
	Name        string `dynamodbav:"name" json:"name" validate:"required"`
	Description string `dynamodbav:"description" json:"description" validate:"required"`
	Quantity    int    `dynamodbav:"quantity" json:"quantity" validate:"required,min=1"`
	OrderID     string `dynamodbav:"order_id" json:"order_id" validate:"required"`
}

// DomainOrder is an order with its line items in sequence order.
type DomainOrder struct {
	Order
	LineItems []LineItem `json:"line_items"`
}

// DomainCustomer is a customer with its addresses.
type DomainCustomer struct {
	Customer
	Addresses []Address `json:"addresses"`
}
