package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jacentio/ordertable/entity"
	"github.com/jacentio/ordertable/service"
)

var defaultHeaders = map[string]string{
	"Access-Control-Allow-Origin":      "*",
	"Access-Control-Allow-Credentials": "true",
	"Content-Type":                     "application/json",
}

// ErrorBody is the JSON body of every error response.
type ErrorBody struct {
	Message string              `json:"message"`
	Errors  []entity.FieldError `json:"errors,omitempty"`
}

// respond encodes body as the JSON response. A nil body yields an empty response.
func respond(status int, body any) events.APIGatewayProxyResponse {
	headers := make(map[string]string, len(defaultHeaders))
	for k, v := range defaultHeaders {
		headers[k] = v
	}

	resp := events.APIGatewayProxyResponse{StatusCode: status, Headers: headers}
	if body == nil {
		return resp
	}

	b, err := json.Marshal(body)
	if err != nil {
		resp.StatusCode = http.StatusInternalServerError
		b, _ = json.Marshal(ErrorBody{Message: "unable to encode response"})
	}
	resp.Body = string(b)
	return resp
}

func message(status int, msg string) events.APIGatewayProxyResponse {
	return respond(status, ErrorBody{Message: msg})
}

// statusOf maps a service error to its HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrIntegrity):
		return http.StatusInternalServerError
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, entity.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict), errors.Is(err, service.ErrTransactionAborted):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// failure converts a service error to a response. Server errors are logged
// and their detail withheld from the caller.
func failure(logger *slog.Logger, err error) events.APIGatewayProxyResponse {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", "error", err)
		return message(status, "internal server error")
	}

	body := ErrorBody{Message: err.Error()}
	var verr *entity.ValidationError
	if errors.As(err, &verr) {
		body.Errors = verr.Fields
	}
	return respond(status, body)
}
