package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jacentio/ordertable/aggregate"
	"github.com/jacentio/ordertable/entity"
	"github.com/jacentio/ordertable/store"
)

// NewCustomer is the input of CreateCustomer.
type NewCustomer struct {
	Email     string
	Username  string
	FirstName string
	LastName  string
}

// NewAddress is the input of AddAddress.
type NewAddress struct {
	Line1   string
	Line2   string
	City    string
	State   string
	Zipcode string
	Type    entity.AddressType
}

// CustomerService manages customers and their addresses.
type CustomerService struct {
	store store.KeyedStore
	opts  *Options
}

// NewCustomerService creates a CustomerService.
func NewCustomerService(st store.KeyedStore, opts ...Option) *CustomerService {
	return &CustomerService{store: st, opts: newOptions(opts)}
}

// CreateCustomer stores a new customer dated today (UTC). A second create for
// the same email and username fails with ErrCustomerAlreadyExists and leaves
// the first record untouched.
//
// Uniqueness is only checked on the record keyed by email: the same username
// under a different email is not detected here.
func (s *CustomerService) CreateCustomer(ctx context.Context, in NewCustomer) (entity.Customer, error) {
	c := entity.Customer{
		Email:       in.Email,
		Username:    in.Username,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		DateCreated: s.opts.clock().UTC().Format(entity.DateLayout),
	}

	rec, err := entity.CustomerFactory.ToRecord(c)
	if err != nil {
		return entity.Customer{}, invalidInput(err)
	}

	if err := s.store.Put(ctx, rec, store.AttributeNotExists("username")); err != nil {
		if errors.Is(err, store.ErrConditionFailed) {
			return entity.Customer{}, fmt.Errorf("%w: %s", ErrCustomerAlreadyExists, c.Username)
		}
		return entity.Customer{}, fmt.Errorf("create customer: %w", err)
	}

	s.opts.logger.Info("customer created",
		"email", c.Email,
		"username", c.Username,
	)
	return c, nil
}

// AddAddress appends an address to the customer known by username.
func (s *CustomerService) AddAddress(ctx context.Context, username string, in NewAddress) (entity.Address, error) {
	c, err := customerByUsername(ctx, s.store, s.opts, username)
	if err != nil {
		return entity.Address{}, err
	}

	id, err := s.opts.newID()
	if err != nil {
		return entity.Address{}, fmt.Errorf("generate address id: %w", err)
	}

	a := entity.Address{
		ID:              id.String(),
		Line1:           in.Line1,
		Line2:           in.Line2,
		City:            in.City,
		State:           in.State,
		Zipcode:         in.Zipcode,
		Type:            in.Type,
		Email:           c.Email,
		DatetimeCreated: createdAt(id),
	}

	rec, err := entity.AddressFactory.ToRecord(a)
	if err != nil {
		return entity.Address{}, invalidInput(err)
	}
	if err := s.store.Put(ctx, rec); err != nil {
		return entity.Address{}, fmt.Errorf("add address: %w", err)
	}

	s.opts.logger.Info("address added",
		"email", c.Email,
		"addressID", a.ID,
		"type", a.Type,
	)
	return a, nil
}

// GetCustomerByEmail returns the customer with every address, or nil if there is no such customer.
func (s *CustomerService) GetCustomerByEmail(ctx context.Context, email string) (*entity.DomainCustomer, error) {
	agg, found, err := loadCustomer(ctx, s.store, email)
	if err != nil || !found {
		return nil, err
	}
	return &entity.DomainCustomer{Customer: agg.Root, Addresses: agg.Children}, nil
}

// customerByUsername finds a customer through the reverse index, since only
// the username is known.
func customerByUsername(ctx context.Context, st store.KeyedStore, opts *Options, username string) (entity.Customer, error) {
	if username == "" {
		return entity.Customer{}, fmt.Errorf("%w: username", ErrCustomerNotFound)
	}

	records, err := st.Query(ctx, store.QueryInput{
		PartitionValue: entity.CustomerFactory.Scheme().SortKey(username),
		Reverse:        true,
	})
	if err != nil {
		return entity.Customer{}, fmt.Errorf("query customer %s: %w", username, err)
	}

	var matches []store.Record
	for _, rec := range records {
		if rec.Entity() == entity.CustomerFactory.Entity() {
			matches = append(matches, rec)
		}
	}

	switch len(matches) {
	case 0:
		return entity.Customer{}, fmt.Errorf("%w: %s", ErrCustomerNotFound, username)
	case 1:
		c, err := entity.CustomerFactory.FromRecord(matches[0])
		if err != nil {
			return entity.Customer{}, corrupt(err)
		}
		return c, nil
	}

	opts.logger.Error("duplicate customer key",
		"username", username,
		"count", len(matches),
	)
	return entity.Customer{}, fmt.Errorf("%w: %s (%d records)", ErrDuplicateCustomerKey, username, len(matches))
}

func loadCustomer(ctx context.Context, st store.KeyedStore, email string) (aggregate.Aggregate[entity.Customer, entity.Address], bool, error) {
	var zero aggregate.Aggregate[entity.Customer, entity.Address]
	if email == "" {
		return zero, false, nil
	}

	records, err := st.Query(ctx, store.QueryInput{
		PartitionValue: entity.CustomerFactory.Scheme().PartitionKey(email),
	})
	if err != nil {
		return zero, false, fmt.Errorf("query customer %s: %w", email, err)
	}

	agg, found, err := aggregate.Assemble(records, entity.CustomerFactory, entity.AddressFactory)
	if errors.Is(err, aggregate.ErrMultipleRoots) {
		return zero, false, fmt.Errorf("%w: customer %s: %w", ErrIntegrity, email, err)
	}
	if err != nil {
		return zero, false, corrupt(fmt.Errorf("assemble customer %s: %w", email, err))
	}
	return agg, found, nil
}
