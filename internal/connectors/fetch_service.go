package connectors

import (
	"context"
	"os"

	"go.uber.org/zap"

	"offerflow/internal"
	"offerflow/internal/intake"
	"offerflow/internal/storage"
)

type FetchService struct {
	db        *storage.DB
	connector MailConnector
	store     *MailStoreService
	log       *zap.Logger
}

type FetchResult struct {
	Fetched int
	Stored  int
}

func NewFetchService(db *storage.DB, rawMailDir string, connector MailConnector, log *zap.Logger) *FetchService {
	return &FetchService{
		db:        db,
		connector: connector,
		store:     NewMailStoreService(db, rawMailDir),
		log:       log,
	}
}

func (s *FetchService) FetchAndStore(ctx context.Context, label string, max int) (FetchResult, error) {
	messages, err := s.connector.FetchInbox(ctx, label, max)
	if err != nil {
		return FetchResult{}, err
	}

	stored := 0
	for _, msg := range messages {
		if _, err := s.store.Store(msg); err != nil {
			return FetchResult{}, err
		}
		stored++
	}

	return FetchResult{Fetched: len(messages), Stored: stored}, nil
}

// A message whose raw file is gone or unparseable is marked failed and skipped.
func (s *FetchService) LoadPending(provider string, limit int) ([]*internal.InboundMessage, error) {
	rows, err := s.db.ListMessagesByStatus("fetched", limit)
	if err != nil {
		return nil, err
	}

	var out []*internal.InboundMessage
	for _, row := range rows {
		if provider != "" && row.Provider != provider {
			continue
		}
		raw, err := os.ReadFile(row.RawRef)
		if err != nil {
			s.log.Warn("raw message unreadable", zap.String("path", row.RawRef), zap.Error(err))
			_ = s.db.UpdateMessageStatus(row.ID, "failed")
			continue
		}
		msg, err := intake.ParseMessage(row.Provider, row.MessageID, raw)
		if err != nil {
			s.log.Warn("message undecodable",
				zap.String("provider", row.Provider),
				zap.String("id", row.MessageID),
				zap.Error(err))
			_ = s.db.UpdateMessageStatus(row.ID, "failed")
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}
