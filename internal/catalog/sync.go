package catalog

import (
	"context"
	"time"

	"go.uber.org/zap"

	"offerflow/internal"
	"offerflow/internal/storage"
)

type RowSource interface {
	FetchCatalogRows(ctx context.Context) ([]internal.CatalogRow, error)
}

type SyncService struct {
	db     *storage.DB
	source RowSource
	log    *zap.Logger
}

func NewSyncService(db *storage.DB, source RowSource, log *zap.Logger) *SyncService {
	return &SyncService{db: db, source: source, log: log}
}

func (s *SyncService) Sync(ctx context.Context) (int, error) {
	rows, err := s.source.FetchCatalogRows(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.db.UpsertCatalogRows(rows); err != nil {
		return 0, err
	}
	if err := s.db.SetMetadata("catalog.last_sync", time.Now().UTC().Format(time.RFC3339)); err != nil {
		s.log.Warn("recording sync time failed", zap.Error(err))
	}
	s.log.Info("catalog mirror synced", zap.Int("rows", len(rows)))
	return len(rows), nil
}

func LoadSearcher(db *storage.DB) (*Searcher, error) {
	rows, err := db.ListCatalogRows()
	if err != nil {
		return nil, err
	}
	return NewSearcher(rows), nil
}
