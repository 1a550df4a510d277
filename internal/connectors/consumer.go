package connectors

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"offerflow/internal"
	"offerflow/internal/storage"
)

// Source first: a crash in between refetches the message instead of dropping it.
type SourceConsumer struct {
	db         *storage.DB
	connectors map[string]MailConnector
	log        *zap.Logger
}

func NewSourceConsumer(db *storage.DB, conns map[string]MailConnector, log *zap.Logger) *SourceConsumer {
	return &SourceConsumer{db: db, connectors: conns, log: log}
}

func (c *SourceConsumer) MarkConsumed(ctx context.Context, msg *internal.InboundMessage) error {
	conn, ok := c.connectors[msg.Provider]
	if !ok {
		return fmt.Errorf("no connector for provider %q", msg.Provider)
	}
	if err := conn.MarkConsumed(ctx, msg.ProviderID); err != nil {
		return err
	}

	row, err := c.db.GetMessageByProviderID(msg.Provider, msg.ProviderID)
	if err != nil {
		return err
	}
	if row == nil {
		c.log.Warn("consumed message has no bookkeeping row",
			zap.String("provider", msg.Provider),
			zap.String("id", msg.ProviderID))
		return nil
	}
	return c.db.UpdateMessageStatus(row.ID, "consumed")
}
