package listener

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"offerflow/internal/catalog"
	"offerflow/internal/config"
	"offerflow/internal/connectors"
	gmailconnector "offerflow/internal/connectors/gmail"
	imapconnector "offerflow/internal/connectors/imap"
	"offerflow/internal/erp"
	"offerflow/internal/erp/rest"
	"offerflow/internal/ledger"
	"offerflow/internal/match"
	"offerflow/internal/offer"
	"offerflow/internal/pricing"
	"offerflow/internal/storage"
	"offerflow/internal/workflow"
)

type Service struct {
	db       *storage.DB
	led      *ledger.Ledger
	cfg      config.Config
	registry *workflow.Registry
	log      *zap.Logger
}

func NewService(db *storage.DB, led *ledger.Ledger, cfg config.Config, log *zap.Logger) *Service {
	return &Service{db: db, led: led, cfg: cfg, registry: workflow.NewRegistry(), log: log}
}

func (s *Service) Run(ctx context.Context) error {
	for {
		if err := s.runCycle(ctx); err != nil {
			s.log.Error("listener cycle failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Duration(s.cfg.ListenerIntervalSec) * time.Second):
		}
	}
}

func (s *Service) runCycle(ctx context.Context) error {
	provider := strings.ToLower(strings.TrimSpace(s.cfg.ListenerProvider))
	conn, err := MakeConnector(s.cfg, provider)
	if err != nil {
		return err
	}

	fetch := connectors.NewFetchService(s.db, s.cfg.RawMailDir, conn, s.log)
	fetched, err := fetch.FetchAndStore(ctx, s.cfg.ListenerLabel, s.cfg.ListenerFetchMax)
	if err != nil {
		return err
	}

	result, err := s.ProcessPending(ctx, provider, s.cfg.ListenerFetchMax)
	if err != nil {
		return err
	}

	s.log.Info("listener cycle done",
		zap.String("provider", provider),
		zap.Int("fetched", fetched.Fetched),
		zap.Int("processed", result.Processed),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed))
	return nil
}

func (s *Service) ProcessPending(ctx context.Context, provider string, limit int) (*workflow.BatchResult, error) {
	conn, err := MakeConnector(s.cfg, provider)
	if err != nil {
		return nil, err
	}

	fetch := connectors.NewFetchService(s.db, s.cfg.RawMailDir, conn, s.log)
	msgs, err := fetch.LoadPending(provider, limit)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return &workflow.BatchResult{}, nil
	}

	adapter, err := MakeAdapter(s.cfg, s.db, s.log)
	if err != nil {
		return nil, err
	}
	engine, registry := s.buildProcessing(adapter, conn)
	consumer := connectors.NewSourceConsumer(s.db, map[string]connectors.MailConnector{provider: conn}, s.log)
	batch := workflow.NewBatchProcessor(engine, registry, consumer, s.cfg.WorkflowMaxConcurrent, s.log)

	result := batch.Process(ctx, msgs)
	s.recordRuns(result.Runs)
	return result, nil
}

func (s *Service) buildProcessing(adapter *erp.Adapter, conn connectors.MailConnector) (*workflow.Engine, *workflow.Registry) {
	matcher := match.NewMatcher(adapter.Products, match.Thresholds{
		OK:     s.cfg.MatchOKThreshold,
		Review: s.cfg.MatchReviewThreshold,
		Gap:    s.cfg.MatchGapThreshold,
	}, s.log)
	pricer := pricing.NewService(adapter.Pricing, s.log)
	creator := offer.NewCreateService(adapter.Offers, s.log)

	var confirm workflow.ConfirmationSender
	if sender := MakeSender(s.cfg, conn, s.log); sender != nil {
		confirm = workflow.NewConfirmationMailer(sender)
	}

	engine := workflow.NewEngine(adapter, matcher, pricer, creator, s.led, confirm, s.cfg.DefaultVATRate, s.log)
	return engine, s.registry
}

func (s *Service) recordRuns(runs []*workflow.Context) {
	for _, wc := range runs {
		row, err := s.db.GetMessageByProviderID(wc.Message.Provider, wc.Message.ProviderID)
		if err != nil || row == nil {
			continue
		}
		timings := map[string]float64{
			"total_ms": float64(time.Since(wc.StartedAt).Milliseconds()),
		}
		counts := map[string]int{
			"items":    len(wc.Items),
			"matches":  wc.ResolvedMatches(),
			"warnings": len(wc.Warnings),
			"errors":   len(wc.Errors),
		}
		if err := s.db.InsertRun(wc.TraceID, row.ID, timings, counts); err != nil {
			s.log.Warn("run not recorded", zap.String("trace", wc.TraceID), zap.Error(err))
		}
	}
}

func MakeConnector(cfg config.Config, provider string) (connectors.MailConnector, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "gmail":
		return gmailconnector.NewConnector(cfg)
	case "imap":
		return imapconnector.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported mail provider: %s", provider)
	}
}

func MakeAdapter(cfg config.Config, db *storage.DB, log *zap.Logger) (*erp.Adapter, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.ERPVendor)) {
	case "rest":
		searcher, err := catalog.LoadSearcher(db)
		if err != nil {
			return nil, err
		}
		adapter, _ := rest.NewAdapter(cfg, func() (*catalog.Searcher, error) { return searcher, nil }, log)
		return adapter, nil
	default:
		return nil, fmt.Errorf("unsupported ERP vendor: %s", cfg.ERPVendor)
	}
}

func MakeCatalogSource(cfg config.Config, log *zap.Logger) (catalog.RowSource, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.ERPVendor)) {
	case "rest":
		_, products := rest.NewAdapter(cfg, func() (*catalog.Searcher, error) {
			return nil, fmt.Errorf("catalog mirror not loaded")
		}, log)
		return products, nil
	default:
		return nil, fmt.Errorf("unsupported ERP vendor: %s", cfg.ERPVendor)
	}
}

// A nil sender means outbound mail is off and those steps are skipped.
func MakeSender(cfg config.Config, conn connectors.MailConnector, log *zap.Logger) connectors.MailSender {
	if sender, ok := conn.(connectors.MailSender); ok {
		return sender
	}
	sender, err := connectors.NewSMTPSender(cfg)
	if err != nil {
		log.Warn("outbound mail disabled", zap.Error(err))
		return nil
	}
	return sender
}
