package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/go_shop/internal/validation"
	"github.com/segmentio/kafka-go"
)

// CartClearer drops every line item of a user and its cached list.
type CartClearer interface {
	Clear(ctx context.Context, userID string) (int64, error)
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type checkoutEvent struct {
	UserID string `json:"user_id"`
}

// CheckoutConsumer clears the cart of every user whose checkout completed.
type CheckoutConsumer struct {
	reader  messageReader
	carts   CartClearer
	logger  *slog.Logger
	backoff time.Duration
}

type Config struct {
	Brokers []string
	Topic   string
	GroupID string
}

func NewCheckoutConsumer(cfg Config, carts CartClearer, logger *slog.Logger) *CheckoutConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MaxBytes: 10e6, // 10MB
	})
	return newCheckoutConsumer(reader, carts, logger)
}

func newCheckoutConsumer(reader messageReader, carts CartClearer, logger *slog.Logger) *CheckoutConsumer {
	return &CheckoutConsumer{
		reader:  reader,
		carts:   carts,
		logger:  logger,
		backoff: time.Second,
	}
}

// Run reads until ctx is cancelled. Bad messages are logged and skipped.
func (c *CheckoutConsumer) Run(ctx context.Context) {
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("error reading checkout message", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.backoff):
			}
			continue
		}

		if err := c.handle(ctx, m); err != nil {
			c.logger.Warn("skipping checkout message",
				"topic", m.Topic, "partition", m.Partition, "offset", m.Offset, "error", err)
		}
	}
}

func (c *CheckoutConsumer) handle(ctx context.Context, m kafka.Message) error {
	var event checkoutEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		return fmt.Errorf("error parsing message: %w", err)
	}
	if event.UserID == "" {
		return errors.New("missing user_id")
	}

	n, err := c.carts.Clear(ctx, event.UserID)
	if err != nil {
		if errors.Is(err, validation.ErrValidation) {
			return fmt.Errorf("invalid user_id: %w", err)
		}
		return fmt.Errorf("failed to clear cart: %w", err)
	}

	c.logger.Info("cleared cart after checkout", "user_id", event.UserID, "items", n)
	return nil
}

func (c *CheckoutConsumer) Close() error {
	if err := c.reader.Close(); err != nil {
		return fmt.Errorf("error closing reader: %w", err)
	}
	return nil
}
