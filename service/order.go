package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"

	"github.com/jacentio/ordertable/aggregate"
	"github.com/jacentio/ordertable/entity"
	"github.com/jacentio/ordertable/internal/keyscheme"
	"github.com/jacentio/ordertable/store"
)

const (
	attrStatus    = "status"
	attrItemCount = "item_count"
)

// NewOrder is the input of CreateOrder.
type NewOrder struct {
	CustomerEmail     string
	DeliveryAddressID string
}

// NewLineItem is the input of AddLineItem.
type NewLineItem struct {
	Name        string
	Description string
	Quantity    int
}

// OrderService manages orders and their line items.
type OrderService struct {
	store store.KeyedStore
	opts  *Options
}

// NewOrderService creates an OrderService.
func NewOrderService(st store.KeyedStore, opts ...Option) *OrderService {
	return &OrderService{store: st, opts: newOptions(opts)}
}

// CreateOrder stores a new order for a customer, embedding a copy of one of
// the customer's addresses as its delivery address.
func (s *OrderService) CreateOrder(ctx context.Context, in NewOrder) (entity.Order, error) {
	cust, found, err := loadCustomer(ctx, s.store, in.CustomerEmail)
	if err != nil {
		return entity.Order{}, err
	}
	if !found {
		return entity.Order{}, fmt.Errorf("%w: %s", ErrCustomerNotFound, in.CustomerEmail)
	}

	var address *entity.Address
	for i := range cust.Children {
		if cust.Children[i].ID == in.DeliveryAddressID {
			address = &cust.Children[i]
			break
		}
	}
	if address == nil {
		return entity.Order{}, fmt.Errorf("%w: %s", ErrAddressNotFound, in.DeliveryAddressID)
	}

	id, err := s.opts.newID()
	if err != nil {
		return entity.Order{}, fmt.Errorf("generate order id: %w", err)
	}

	o := entity.Order{
		ID:              id.String(),
		CustomerEmail:   cust.Root.Email,
		DeliveryAddress: address.Snapshot(),
		Status:          entity.StatusNew,
		ItemCount:       0,
		DatetimeCreated: createdAt(id),
	}

	rec, err := entity.OrderFactory.ToRecord(o)
	if err != nil {
		return entity.Order{}, invalidInput(err)
	}
	if err := s.store.Put(ctx, rec); err != nil {
		return entity.Order{}, fmt.Errorf("create order: %w", err)
	}

	s.opts.logger.Info("order created",
		"orderID", o.ID,
		"email", o.CustomerEmail,
	)
	return o, nil
}

// GetOrder returns the order record alone.
func (s *OrderService) GetOrder(ctx context.Context, id string) (entity.Order, error) {
	key, err := entity.OrderFactory.CalculateKey(id, "")
	if err != nil {
		return entity.Order{}, fmt.Errorf("%w: %w", ErrOrderNotFound, err)
	}

	rec, err := s.store.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return entity.Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	if err != nil {
		return entity.Order{}, fmt.Errorf("get order %s: %w", id, err)
	}
	o, err := entity.OrderFactory.FromRecord(rec)
	if err != nil {
		return entity.Order{}, corrupt(err)
	}
	return o, nil
}

// GetDomainOrder returns the order with its line items in sequence order, or
// nil if there is no such order. Line items written concurrently may or may not
// appear.
func (s *OrderService) GetDomainOrder(ctx context.Context, id string) (*entity.DomainOrder, error) {
	if id == "" {
		return nil, nil
	}

	records, err := s.store.Query(ctx, store.QueryInput{
		PartitionValue: entity.OrderFactory.Scheme().PartitionKey(id),
	})
	if err != nil {
		return nil, fmt.Errorf("query order %s: %w", id, err)
	}

	agg, found, err := aggregate.Assemble(records, entity.OrderFactory, entity.LineItemFactory)
	if err != nil {
		return nil, corrupt(fmt.Errorf("assemble order %s: %w", id, err))
	}
	if !found {
		return nil, nil
	}
	return &entity.DomainOrder{Order: agg.Root, LineItems: agg.Children}, nil
}

// AddLineItem increments the order's item_count and stores the line item under
// the new count. Only new orders with fewer than entity.MaxLineItems items accept line items.
func (s *OrderService) AddLineItem(ctx context.Context, orderID string, in NewLineItem) (entity.LineItem, error) {
	item := entity.LineItem{
		ID:          keyscheme.Sequence(1),
		Name:        in.Name,
		Description: in.Description,
		Quantity:    in.Quantity,
		OrderID:     orderID,
	}
	// validate before the counter moves
	if err := entity.LineItemFactory.Validate(item); err != nil {
		return entity.LineItem{}, invalidInput(err)
	}

	orderKey, err := entity.OrderFactory.CalculateKey(orderID, "")
	if err != nil {
		return entity.LineItem{}, invalidInput(err)
	}

	attrs, err := s.store.UpdateCounters(ctx, orderKey, map[string]int64{attrItemCount: 1},
		store.RecordExists(),
		store.Equal(attrStatus, string(entity.StatusNew)),
		store.LessThan(attrItemCount, entity.MaxLineItems),
	)
	if errors.Is(err, store.ErrConditionFailed) {
		return entity.LineItem{}, s.addLineItemRejected(ctx, orderID)
	}
	if err != nil {
		return entity.LineItem{}, fmt.Errorf("increment item count of %s: %w", orderID, err)
	}

	var seq int64
	if err := attributevalue.Unmarshal(attrs[attrItemCount], &seq); err != nil {
		return entity.LineItem{}, fmt.Errorf("read item count of %s: %w", orderID, err)
	}
	item.ID = keyscheme.Sequence(seq)

	rec, err := entity.LineItemFactory.ToRecord(item)
	if err != nil {
		return entity.LineItem{}, invalidInput(err)
	}
	err = s.store.Put(ctx, rec, store.AttributeNotExists(store.AttrSK))
	if errors.Is(err, store.ErrConditionFailed) {
		s.releaseSequence(ctx, orderKey, orderID, seq)
		return entity.LineItem{}, fmt.Errorf("%w: %s/%s", ErrLineItemSequenceTaken, orderID, item.ID)
	}
	if err != nil {
		s.opts.logger.Error("line item not stored after increment",
			"orderID", orderID,
			"itemCount", seq,
			"error", err,
		)
		return entity.LineItem{}, fmt.Errorf("add line item to %s: %w", orderID, err)
	}

	s.opts.logger.Info("line item added",
		"orderID", orderID,
		"lineItemID", item.ID,
	)
	return item, nil
}

// releaseSequence undoes the increment of an add whose sequence number was
// already taken, so item_count keeps matching the stored line items.
func (s *OrderService) releaseSequence(ctx context.Context, orderKey keyscheme.Key, orderID string, seq int64) {
	_, err := s.store.UpdateCounters(ctx, orderKey, map[string]int64{attrItemCount: -1}, store.RecordExists())
	if err != nil {
		s.opts.logger.Error("item count not restored after sequence collision",
			"orderID", orderID,
			"itemCount", seq,
			"error", err,
		)
		return
	}
	s.opts.logger.Warn("line item sequence already in use",
		"orderID", orderID,
		"itemCount", seq,
	)
}

// addLineItemRejected re-reads the order to say why the increment was refused.
func (s *OrderService) addLineItemRejected(ctx context.Context, orderID string) error {
	o, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	switch {
	case o.Status != entity.StatusNew:
		return fmt.Errorf("%w: %s is %s", ErrOrderNotEditable, orderID, o.Status)
	case o.ItemCount >= entity.MaxLineItems:
		return fmt.Errorf("%w: %s has %d", ErrLineItemLimit, orderID, o.ItemCount)
	}
	return fmt.Errorf("%w: order %s changed while adding a line item", ErrConflict, orderID)
}

// RemoveLineItem deletes a line item and decrements the order's item_count in
// one transaction. It fails with ErrRemoveLineItem, changing nothing, if the
// order is not new or the line item does not exist.
func (s *OrderService) RemoveLineItem(ctx context.Context, orderID, lineItemID string) error {
	orderKey, err := entity.OrderFactory.CalculateKey(orderID, "")
	if err != nil {
		return invalidInput(err)
	}
	lineKey, err := entity.LineItemFactory.CalculateKey(orderID, lineItemID)
	if err != nil {
		return invalidInput(err)
	}

	err = s.store.TransactWrite(ctx,
		store.CounterOp(orderKey, map[string]int64{attrItemCount: -1},
			store.Equal(attrStatus, string(entity.StatusNew)),
		),
		store.DeleteOp(lineKey, store.RecordExists()),
	)
	if errors.Is(err, store.ErrTransactionCanceled) {
		s.opts.logger.Warn("remove line item aborted",
			"orderID", orderID,
			"lineItemID", lineItemID,
			"failedConditions", failedConditions(err, "order", "lineItem"),
			"error", err,
		)
		return fmt.Errorf("%w: %w", ErrRemoveLineItem, err)
	}
	if err != nil {
		return fmt.Errorf("remove line item %s from %s: %w", lineItemID, orderID, err)
	}

	s.opts.logger.Info("line item removed",
		"orderID", orderID,
		"lineItemID", lineItemID,
	)
	return nil
}

// failedConditions names the ops of a canceled transaction whose condition failed.
func failedConditions(err error, names ...string) []string {
	var txErr *store.TransactionCanceledError
	if !errors.As(err, &txErr) {
		return nil
	}
	failed := []string{}
	for _, i := range txErr.FailedConditions() {
		if i < len(names) {
			failed = append(failed, names[i])
		}
	}
	return failed
}

// UpdateOrderStatus advances an order one step along its lifecycle.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID string, to entity.Status) (entity.Order, error) {
	if !to.Valid() {
		return entity.Order{}, invalidInput(fmt.Errorf("unknown status %q", to))
	}
	from, ok := to.Previous()
	if !ok {
		return entity.Order{}, fmt.Errorf("%w: cannot move to %s", ErrInvalidStatusTransition, to)
	}

	key, err := entity.OrderFactory.CalculateKey(orderID, "")
	if err != nil {
		return entity.Order{}, invalidInput(err)
	}

	rec, err := s.store.Update(ctx, key, map[string]any{attrStatus: string(to)},
		store.RecordExists(),
		store.Equal(attrStatus, string(from)),
	)
	if errors.Is(err, store.ErrConditionFailed) {
		current, getErr := s.GetOrder(ctx, orderID)
		if getErr != nil {
			return entity.Order{}, getErr
		}
		return entity.Order{}, fmt.Errorf("%w: %s is %s, cannot move to %s", ErrInvalidStatusTransition, orderID, current.Status, to)
	}
	if err != nil {
		return entity.Order{}, fmt.Errorf("update status of %s: %w", orderID, err)
	}

	s.opts.logger.Info("order status updated",
		"orderID", orderID,
		"from", from,
		"to", to,
	)
	o, err := entity.OrderFactory.FromRecord(rec)
	if err != nil {
		return entity.Order{}, corrupt(err)
	}
	return o, nil
}
