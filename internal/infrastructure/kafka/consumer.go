package kafka

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"

	pkgerrors "github.com/tomiwa-dev/creatorpay/pkg/errors"
	"github.com/segmentio/kafka-go"
)

// TransferConfirmer finalizes a payout once the provider reports a
// terminal transfer state.
type TransferConfirmer interface {
	ConfirmTransfer(ctx context.Context, reference, status string) error
}

// Consumer reads provider transfer-status confirmations and feeds them
// to the payout manager. Redelivered confirmations are safe: the
// guarded finalize makes the second delivery a no-op.
type Consumer struct {
	reader    *kafka.Reader
	confirmer TransferConfirmer
}

func NewConsumer(brokers []string, topic, groupID string, confirmer TransferConfirmer) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 10e3,
			MaxBytes: 10e6,
		}),
		confirmer: confirmer,
	}
}

func (c *Consumer) Consume(ctx context.Context) {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("failed to read Kafka message", "topic", c.reader.Config().Topic, "error", err)
			continue
		}

		slog.Info("Kafka message received", "topic", msg.Topic, "key", string(msg.Key))

		var event struct {
			Reference string `json:"reference"`
			Status    string `json:"status"`
		}
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			slog.Error("failed to unmarshal transfer event", "error", err)
			continue
		}
		if event.Reference == "" || event.Status == "" {
			slog.Error("invalid transfer event: missing reference or status")
			continue
		}
		if event.Status != "success" && event.Status != "failed" && event.Status != "reversed" {
			slog.Info("skipping non-terminal transfer status", "reference", event.Reference, "status", event.Status)
			continue
		}

		if err := c.confirmer.ConfirmTransfer(ctx, event.Reference, event.Status); err != nil {
			if stderrors.Is(err, pkgerrors.ErrAlreadyProcessed) {
				slog.Info("transfer confirmation already applied", "reference", event.Reference)
				continue
			}
			slog.Error("failed to confirm transfer", "reference", event.Reference, "error", err)
			continue
		}

		slog.Info("transfer confirmation processed", "reference", event.Reference, "status", event.Status)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
