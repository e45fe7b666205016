//go:build e2e

// Package e2e runs the services against a real DynamoDB table.
// Run with: go test -tags=e2e -v ./e2e/...
//
// The AWS target comes from the usual configuration (AWS_PROFILE, AWS_REGION,
// DYNAMODB_ENDPOINT for DynamoDB Local). A fresh table is created per run.
package e2e

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacentio/ordertable/entity"
	"github.com/jacentio/ordertable/internal/config"
	"github.com/jacentio/ordertable/service"
	"github.com/jacentio/ordertable/store"
)

const tablePrefix = "ordertable-e2e"

var (
	ddbClient *dynamodb.Client
	testStore *store.Store
	customers *service.CustomerService
	orders    *service.OrderService
)

func TestMain(m *testing.M) {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg.TableName = fmt.Sprintf("%s-%s", tablePrefix, uuid.NewString()[:8])
	fmt.Printf("Table: %s\n", cfg.TableName)

	ddbClient, err = cfg.DynamoDB(ctx)
	if err != nil {
		fmt.Printf("Failed to create client: %v\n", err)
		os.Exit(1)
	}

	if err := createTable(ctx, cfg.TableName, cfg.ReverseIndexName); err != nil {
		fmt.Printf("Failed to create table: %v\n", err)
		os.Exit(1)
	}

	testStore = store.New(ddbClient, cfg.StoreConfig())
	logger := cfg.Logger()
	customers = service.NewCustomerService(testStore, service.WithLogger(logger))
	orders = service.NewOrderService(testStore, service.WithLogger(logger))

	code := m.Run()

	if _, err := ddbClient.DeleteTable(ctx, &dynamodb.DeleteTableInput{TableName: aws.String(cfg.TableName)}); err != nil {
		fmt.Printf("Warning: failed to delete table %s: %v\n", cfg.TableName, err)
	}
	os.Exit(code)
}

func createTable(ctx context.Context, name, index string) error {
	_, err := ddbClient.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(name),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(store.AttrPK), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(store.AttrSK), KeyType: types.KeyTypeRange},
		},
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(store.AttrPK), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(store.AttrSK), AttributeType: types.ScalarAttributeTypeS},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{{
			IndexName: aws.String(index),
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String(store.AttrSK), KeyType: types.KeyTypeHash},
				{AttributeName: aws.String(store.AttrPK), KeyType: types.KeyTypeRange},
			},
			Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
		}},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		return fmt.Errorf("create table %s: %w", name, err)
	}

	waiter := dynamodb.NewTableExistsWaiter(ddbClient)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)}, 2*time.Minute); err != nil {
		return fmt.Errorf("wait for table %s: %w", name, err)
	}
	return nil
}

// newCustomer creates a customer with a delivery address. The address lookup
// goes through the reverse index, which is eventually consistent.
func newCustomer(t *testing.T) (entity.Customer, entity.Address) {
	t.Helper()
	ctx := context.Background()
	suffix := uuid.NewString()[:8]

	cust, err := customers.CreateCustomer(ctx, service.NewCustomer{
		Email:     "fry-" + suffix + "@planetexpress.com",
		Username:  "pfry-" + suffix,
		FirstName: "philip",
		LastName:  "fry",
	})
	require.NoError(t, err)

	var addr entity.Address
	require.Eventually(t, func() bool {
		addr, err = customers.AddAddress(ctx, cust.Username, service.NewAddress{
			Line1:   "471 1st Street Ct",
			City:    "Gotham",
			State:   "IL",
			Zipcode: "60603",
			Type:    entity.AddressDelivery,
		})
		return !errors.Is(err, service.ErrCustomerNotFound)
	}, 10*time.Second, 200*time.Millisecond)
	require.NoError(t, err)
	return cust, addr
}

func TestVerify(t *testing.T) {
	require.NoError(t, testStore.Verify(context.Background()))
}

func TestCreateCustomer_Duplicate(t *testing.T) {
	ctx := context.Background()
	cust, _ := newCustomer(t)

	_, err := customers.CreateCustomer(ctx, service.NewCustomer{
		Email:     cust.Email,
		Username:  cust.Username,
		FirstName: "other",
		LastName:  "fry",
	})
	assert.ErrorIs(t, err, service.ErrCustomerAlreadyExists)
}

func TestCheckout(t *testing.T) {
	ctx := context.Background()
	cust, addr := newCustomer(t)

	order, err := orders.CreateOrder(ctx, service.NewOrder{CustomerEmail: cust.Email, DeliveryAddressID: addr.ID})
	require.NoError(t, err)
	assert.Equal(t, entity.StatusNew, order.Status)
	assert.Equal(t, addr.City, order.DeliveryAddress.City)

	first, err := orders.AddLineItem(ctx, order.ID, service.NewLineItem{Name: "Popplers", Description: "Omicronian snack", Quantity: 100})
	require.NoError(t, err)
	second, err := orders.AddLineItem(ctx, order.ID, service.NewLineItem{Name: "Slurm", Description: "Highly addictive", Quantity: 6})
	require.NoError(t, err)
	assert.Equal(t, "01", first.ID)
	assert.Equal(t, "02", second.ID)

	require.NoError(t, orders.RemoveLineItem(ctx, order.ID, first.ID))
	assert.ErrorIs(t, orders.RemoveLineItem(ctx, order.ID, first.ID), service.ErrRemoveLineItem)

	domain, err := orders.GetDomainOrder(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, domain)
	assert.Equal(t, 1, domain.ItemCount)
	require.Len(t, domain.LineItems, 1)
	assert.Equal(t, "Slurm", domain.LineItems[0].Name)

	submitted, err := orders.UpdateOrderStatus(ctx, order.ID, entity.StatusSubmitted)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusSubmitted, submitted.Status)

	_, err = orders.AddLineItem(ctx, order.ID, service.NewLineItem{Name: "Popplers", Description: "late", Quantity: 1})
	assert.ErrorIs(t, err, service.ErrOrderNotEditable)

	_, err = orders.UpdateOrderStatus(ctx, order.ID, entity.StatusDelivered)
	assert.ErrorIs(t, err, service.ErrInvalidStatusTransition)
}

func TestAddLineItem_ConcurrentIDsAreUnique(t *testing.T) {
	ctx := context.Background()
	cust, addr := newCustomer(t)

	order, err := orders.CreateOrder(ctx, service.NewOrder{CustomerEmail: cust.Email, DeliveryAddressID: addr.ID})
	require.NoError(t, err)

	const workers = 10
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = make(map[string]bool)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			item, err := orders.AddLineItem(ctx, order.ID, service.NewLineItem{
				Name:        fmt.Sprintf("item %d", i),
				Description: "concurrent",
				Quantity:    1,
			})
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			ids[item.ID] = true
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	assert.Len(t, ids, workers)

	domain, err := orders.GetDomainOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, workers, domain.ItemCount)
	assert.Len(t, domain.LineItems, workers)
}

func TestGetCustomerByEmail(t *testing.T) {
	ctx := context.Background()
	cust, addr := newCustomer(t)

	domain, err := customers.GetCustomerByEmail(ctx, cust.Email)
	require.NoError(t, err)
	require.NotNil(t, domain)
	assert.Equal(t, cust.Username, domain.Username)
	require.Len(t, domain.Addresses, 1)
	assert.Equal(t, addr.ID, domain.Addresses[0].ID)

	missing, err := customers.GetCustomerByEmail(ctx, "zoidberg-"+uuid.NewString()[:8]+"@planetexpress.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
