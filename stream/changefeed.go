// Package stream provides a DynamoDB Streams handler that decodes table changes into entities.
package stream

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/ordertable/entity"
	"github.com/jacentio/ordertable/internal/keyscheme"
	"github.com/jacentio/ordertable/store"
)

// Stream event names.
const (
	EventInsert = "INSERT"
	EventModify = "MODIFY"
	EventRemove = "REMOVE"
)

// Change is one decoded stream record. Old is nil for inserts and New is nil for removals.
type Change struct {
	EventID   string
	EventName string
	Entity    string
	Key       keyscheme.Key
	Old       any
	New       any
}

// ChangeFunc receives every decoded change. Returning an error fails the batch.
type ChangeFunc func(ctx context.Context, change Change) error

// Handler processes DynamoDB stream events for the shared table.
type Handler struct {
	registry *entity.Registry
	logger   *slog.Logger
	onChange ChangeFunc
}

// NewHandler creates a new stream handler. onChange may be nil, in which case
// changes are only logged.
func NewHandler(registry *entity.Registry, logger *slog.Logger, onChange ChangeFunc) *Handler {
	if registry == nil {
		registry = entity.DefaultRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		registry: registry,
		logger:   logger,
		onChange: onChange,
	}
}

// HandleChanges processes a batch of stream records in order.
// This function is designed to be used as an AWS Lambda handler.
func (h *Handler) HandleChanges(ctx context.Context, event events.DynamoDBEvent) error {
	for _, record := range event.Records {
		if err := h.processRecord(ctx, record); err != nil {
			h.logger.Error("failed to process record",
				"eventID", record.EventID,
				"error", err,
			)
			return err // the batch is retried
		}
	}
	return nil
}

// processRecord decodes a single stream record and hands it to onChange.
func (h *Handler) processRecord(ctx context.Context, record events.DynamoDBEventRecord) error {
	key, ok := ConvertStreamKey(record.Change.Keys).Key()
	if !ok {
		h.logger.Warn("skipping record without pk/sk", "eventID", record.EventID)
		return nil
	}

	image := record.Change.NewImage
	if record.EventName == EventRemove {
		image = record.Change.OldImage
	}
	discriminator := ConvertImage(image).Entity()

	if _, ok := h.registry.Lookup(discriminator); !ok {
		h.logger.Debug("skipping unknown entity",
			"entity", discriminator,
			"pk", key.PK,
			"sk", key.SK,
		)
		return nil
	}

	change := Change{
		EventID:   record.EventID,
		EventName: record.EventName,
		Entity:    discriminator,
		Key:       key,
	}

	var err error
	if change.Old, err = h.decode(record.Change.OldImage); err != nil {
		h.logger.Warn("skipping undecodable old image", "eventID", record.EventID, "error", err)
		return nil
	}
	if change.New, err = h.decode(record.Change.NewImage); err != nil {
		h.logger.Warn("skipping undecodable new image", "eventID", record.EventID, "error", err)
		return nil
	}

	h.logger.Info("entity changed",
		"event", record.EventName,
		"entity", discriminator,
		"pk", key.PK,
		"sk", key.SK,
	)

	if h.onChange == nil {
		return nil
	}
	if err := h.onChange(ctx, change); err != nil {
		return fmt.Errorf("handle %s of %s: %w", record.EventName, discriminator, err)
	}
	return nil
}

// decode returns nil for an absent image.
func (h *Handler) decode(image map[string]events.DynamoDBAttributeValue) (any, error) {
	if len(image) == 0 {
		return nil, nil
	}
	return h.registry.Decode(ConvertImage(image))
}

// ConvertStreamKey converts a DynamoDB stream key to a store.Record.
func ConvertStreamKey(streamKey map[string]events.DynamoDBAttributeValue) store.Record {
	result := make(store.Record, len(streamKey))
	for k, v := range streamKey {
		switch v.DataType() {
		case events.DataTypeString:
			result[k] = &types.AttributeValueMemberS{Value: v.String()}
		case events.DataTypeNumber:
			result[k] = &types.AttributeValueMemberN{Value: v.Number()}
		case events.DataTypeBinary:
			result[k] = &types.AttributeValueMemberB{Value: v.Binary()}
		}
	}
	return result
}

// ConvertImage converts a full stream image, including nested maps, lists and sets.
func ConvertImage(image map[string]events.DynamoDBAttributeValue) store.Record {
	result := make(store.Record, len(image))
	for k, v := range image {
		if av := convertValue(v); av != nil {
			result[k] = av
		}
	}
	return result
}

func convertValue(v events.DynamoDBAttributeValue) types.AttributeValue {
	switch v.DataType() {
	case events.DataTypeString:
		return &types.AttributeValueMemberS{Value: v.String()}
	case events.DataTypeNumber:
		return &types.AttributeValueMemberN{Value: v.Number()}
	case events.DataTypeBinary:
		return &types.AttributeValueMemberB{Value: v.Binary()}
	case events.DataTypeBoolean:
		return &types.AttributeValueMemberBOOL{Value: v.Boolean()}
	case events.DataTypeNull:
		return &types.AttributeValueMemberNULL{Value: true}
	case events.DataTypeStringSet:
		return &types.AttributeValueMemberSS{Value: v.StringSet()}
	case events.DataTypeNumberSet:
		return &types.AttributeValueMemberNS{Value: v.NumberSet()}
	case events.DataTypeBinarySet:
		return &types.AttributeValueMemberBS{Value: v.BinarySet()}
	case events.DataTypeMap:
		return &types.AttributeValueMemberM{Value: ConvertImage(v.Map())}
	case events.DataTypeList:
		list := v.List()
		out := make([]types.AttributeValue, 0, len(list))
		for _, item := range list {
			if av := convertValue(item); av != nil {
				out = append(out, av)
			}
		}
		return &types.AttributeValueMemberL{Value: out}
	}
	return nil
}
