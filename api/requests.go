package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jacentio/ordertable/entity"
	"github.com/jacentio/ordertable/service"
)

// errMalformedBody marks bodies that are not a single JSON object of known fields.
var errMalformedBody = errors.New("malformed request body")

type newCustomerRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Username  string `json:"username" validate:"required"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
}

func (r newCustomerRequest) input() service.NewCustomer {
	return service.NewCustomer{
		Email:     r.Email,
		Username:  r.Username,
		FirstName: r.FirstName,
		LastName:  r.LastName,
	}
}

type newAddressRequest struct {
	Line1   string `json:"line1" validate:"required"`
	Line2   string `json:"line2"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state" validate:"required"`
	Zipcode string `json:"zipcode" validate:"required"`
	Type    string `json:"type" validate:"required,oneof=delivery billing"`
}

func (r newAddressRequest) input() service.NewAddress {
	return service.NewAddress{
		Line1:   r.Line1,
		Line2:   r.Line2,
		City:    r.City,
		State:   r.State,
		Zipcode: r.Zipcode,
		Type:    entity.AddressType(r.Type),
	}
}

type newOrderRequest struct {
	CustomerEmail     string `json:"customer_email" validate:"required,email"`
	DeliveryAddressID string `json:"delivery_address_id" validate:"required"`
}

func (r newOrderRequest) input() service.NewOrder {
	return service.NewOrder{
		CustomerEmail:     r.CustomerEmail,
		DeliveryAddressID: r.DeliveryAddressID,
	}
}

type newLineItemRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description" validate:"required"`
	Quantity    int    `json:"quantity" validate:"required,min=1"`
}

func (r newLineItemRequest) input() service.NewLineItem {
	return service.NewLineItem{
		Name:        r.Name,
		Description: r.Description,
		Quantity:    r.Quantity,
	}
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=new submitted in_progress fulfilled shipped out_for_delivery delivered"`
}

// decode parses a JSON body, rejecting unknown fields, and validates it.
func decode[T any](name, body string) (T, error) {
	var v T
	if strings.TrimSpace(body) == "" {
		return v, fmt.Errorf("%w: empty body", errMalformedBody)
	}

	dec := json.NewDecoder(strings.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return v, fmt.Errorf("%w: trailing data", errMalformedBody)
	}

	if err := entity.ValidateStruct(name, v); err != nil {
		return v, err
	}
	return v, nil
}
