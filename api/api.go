// Package api serves the customer and order operations as API Gateway (Lambda proxy) requests.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jacentio/ordertable/entity"
	"github.com/jacentio/ordertable/service"
)

// Customers is the customer operations the API exposes.
type Customers interface {
	CreateCustomer(ctx context.Context, in service.NewCustomer) (entity.Customer, error)
	AddAddress(ctx context.Context, username string, in service.NewAddress) (entity.Address, error)
	GetCustomerByEmail(ctx context.Context, email string) (*entity.DomainCustomer, error)
}

// Orders is the order operations the API exposes.
type Orders interface {
	CreateOrder(ctx context.Context, in service.NewOrder) (entity.Order, error)
	GetDomainOrder(ctx context.Context, id string) (*entity.DomainOrder, error)
	AddLineItem(ctx context.Context, orderID string, in service.NewLineItem) (entity.LineItem, error)
	RemoveLineItem(ctx context.Context, orderID, lineItemID string) error
	UpdateOrderStatus(ctx context.Context, orderID string, to entity.Status) (entity.Order, error)
}

// Route serves one method and resource.
type Route func(ctx context.Context, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse

// FetchFunc loads the entity identified by a path parameter. A nil result means not found.
type FetchFunc[T any] func(ctx context.Context, id string) (*T, error)

// Handler routes API Gateway requests by method and resource template.
type Handler struct {
	routes map[string]Route
	logger *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(customers Customers, orders Orders, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{routes: make(map[string]Route), logger: logger}

	h.Register(http.MethodPost, "/customers", withBody(logger, "NewCustomer", http.StatusCreated,
		func(ctx context.Context, _ events.APIGatewayProxyRequest, r newCustomerRequest) (any, error) {
			return customers.CreateCustomer(ctx, r.input())
		}))
	h.Register(http.MethodGet, "/customers/{email}", GetByPath(logger, "email", customers.GetCustomerByEmail))
	h.Register(http.MethodPost, "/customers/{username}/addresses", withBody(logger, "NewAddress", http.StatusCreated,
		func(ctx context.Context, req events.APIGatewayProxyRequest, r newAddressRequest) (any, error) {
			return customers.AddAddress(ctx, req.PathParameters["username"], r.input())
		}))

	h.Register(http.MethodPost, "/orders", withBody(logger, "NewOrder", http.StatusCreated,
		func(ctx context.Context, _ events.APIGatewayProxyRequest, r newOrderRequest) (any, error) {
			return orders.CreateOrder(ctx, r.input())
		}))
	h.Register(http.MethodGet, "/orders/{order_id}", GetByPath(logger, "order_id", orders.GetDomainOrder))
	h.Register(http.MethodPost, "/orders/{order_id}/line_items", withBody(logger, "NewLineItem", http.StatusCreated,
		func(ctx context.Context, req events.APIGatewayProxyRequest, r newLineItemRequest) (any, error) {
			return orders.AddLineItem(ctx, req.PathParameters["order_id"], r.input())
		}))
	h.Register(http.MethodDelete, "/orders/{order_id}/line_items/{line_item_id}",
		func(ctx context.Context, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
			err := orders.RemoveLineItem(ctx, req.PathParameters["order_id"], req.PathParameters["line_item_id"])
			if err != nil {
				return failure(logger, err)
			}
			return respond(http.StatusNoContent, nil)
		})
	h.Register(http.MethodPatch, "/orders/{order_id}/status", withBody(logger, "UpdateStatus", http.StatusOK,
		func(ctx context.Context, req events.APIGatewayProxyRequest, r updateStatusRequest) (any, error) {
			return orders.UpdateOrderStatus(ctx, req.PathParameters["order_id"], entity.Status(r.Status))
		}))

	return h
}

// Register adds or replaces the route for method and resource.
func (h *Handler) Register(method, resource string, route Route) {
	h.routes[method+" "+resource] = route
}

// Handle is the Lambda entry point.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	route, ok := h.routes[req.HTTPMethod+" "+req.Resource]
	if !ok {
		h.logger.Warn("no route",
			"method", req.HTTPMethod,
			"resource", req.Resource,
		)
		return message(http.StatusNotFound, "route not found"), nil
	}
	return route(ctx, req), nil
}

// GetByPath serves the entity fetch resolves from the path parameter param.
func GetByPath[T any](logger *slog.Logger, param string, fetch FetchFunc[T]) Route {
	return func(ctx context.Context, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
		id := req.PathParameters[param]
		if id == "" {
			return message(http.StatusBadRequest, "missing path parameter "+param)
		}

		v, err := fetch(ctx, id)
		if err != nil {
			return failure(logger, err)
		}
		if v == nil {
			return message(http.StatusNotFound, "not found")
		}
		return respond(http.StatusOK, v)
	}
}

// withBody decodes and validates the JSON body as T before calling do.
func withBody[T any](logger *slog.Logger, name string, status int, do func(context.Context, events.APIGatewayProxyRequest, T) (any, error)) Route {
	return func(ctx context.Context, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
		in, err := decode[T](name, req.Body)
		if errors.Is(err, errMalformedBody) {
			return message(http.StatusBadRequest, err.Error())
		}
		if err != nil {
			return failure(logger, err)
		}

		out, err := do(ctx, req, in)
		if err != nil {
			return failure(logger, err)
		}
		return respond(status, out)
	}
}
