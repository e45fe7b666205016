// Command changefeed consumes the table's DynamoDB stream and logs every entity change.
package main

import (
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/jacentio/ordertable/entity"
	"github.com/jacentio/ordertable/internal/config"
	"github.com/jacentio/ordertable/stream"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := cfg.Logger()

	h := stream.NewHandler(entity.DefaultRegistry(), logger, nil)
	lambda.Start(h.HandleChanges)
}
