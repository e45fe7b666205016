// Command api is the Lambda function behind the API Gateway proxy integration.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/jacentio/ordertable/api"
	"github.com/jacentio/ordertable/internal/config"
	"github.com/jacentio/ordertable/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := cfg.Logger()

	ctx := context.Background()
	st, err := cfg.Store(ctx)
	if err != nil {
		logger.Error("failed to create store", "error", err)
		os.Exit(1)
	}
	if err := st.Verify(ctx); err != nil {
		logger.Error("table check failed", "table", cfg.TableName, "error", err)
		os.Exit(1)
	}

	handler := api.NewHandler(
		service.NewCustomerService(st, service.WithLogger(logger)),
		service.NewOrderService(st, service.WithLogger(logger)),
		logger,
	)

	logger.Info("api ready", "table", cfg.TableName, "reverseIndex", cfg.ReverseIndexName)
	lambda.Start(handler.Handle)
}
