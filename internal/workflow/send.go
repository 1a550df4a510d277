package workflow

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"offerflow/internal"
	"offerflow/internal/ledger"
	"offerflow/internal/offer"
)

// Registry is in-memory only: after a restart pending records can no longer be sent, only failed.
type Registry struct {
	mu   sync.Mutex
	byID map[string]*Context
}

func NewRegistry() *Registry {
	return &Registry{byID: map[string]*Context{}}
}

func (r *Registry) Retain(wc *Context) {
	if wc.PendingID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[wc.PendingID] = wc
}

func (r *Registry) Get(id string) (*Context, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wc, ok := r.byID[id]
	return wc, ok
}

func (r *Registry) Drop(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
}

type OfferDispatcher interface {
	DispatchOffer(ctx context.Context, record *internal.PendingOffer, wc *Context) error
}

type SendService struct {
	ledger   *ledger.Ledger
	registry *Registry
	creator  *offer.CreateService
	dispatch OfferDispatcher
	log      *zap.Logger
}

func NewSendService(led *ledger.Ledger, registry *Registry, creator *offer.CreateService, dispatch OfferDispatcher, log *zap.Logger) *SendService {
	return &SendService{ledger: led, registry: registry, creator: creator, dispatch: dispatch, log: log}
}

func (s *SendService) Approve(ctx context.Context, id string) error {
	record := s.ledger.Get(id)
	if record == nil {
		return fmt.Errorf("no pending offer %s", id)
	}
	if record.Status != internal.PendingReview {
		return fmt.Errorf("offer %s is %s, only pending offers can be approved", id, record.Status)
	}
	if err := s.ledger.UpdateStatus(id, internal.PendingProcessing); err != nil {
		return err
	}

	wc, ok := s.registry.Get(id)
	if !ok {
		s.fail(id, "workflow context lost, offer cannot be sent")
		return fmt.Errorf("workflow context for %s is gone; the record is failed", id)
	}

	if wc.OfferNumber() == "" {
		result, err := s.creator.Create(ctx, wc.Offer)
		if err != nil {
			s.fail(id, fmt.Sprintf("offer creation failed on send: %v", err))
			return fmt.Errorf("create offer for %s: %w", id, err)
		}
		wc.CreateResult = result
		wc.Offer.Number = result.Number
		record.OfferNumber = result.Number
		record.Warnings = append(record.Warnings, result.Warnings...)
		if err := s.ledger.Update(*record); err != nil {
			s.log.Warn("ledger update after create failed", zap.String("id", id), zap.Error(err))
		}
	}

	if s.dispatch != nil {
		if err := s.dispatch.DispatchOffer(ctx, record, wc); err != nil {
			s.fail(id, fmt.Sprintf("offer dispatch failed: %v", err))
			return fmt.Errorf("dispatch offer %s: %w", id, err)
		}
	}

	if err := s.ledger.UpdateStatus(id, internal.PendingSent); err != nil {
		return err
	}
	s.registry.Drop(id)
	s.log.Info("offer sent", zap.String("id", id), zap.String("offer", record.OfferNumber))
	return nil
}

func (s *SendService) Reject(id string) error {
	if s.ledger.Get(id) == nil {
		return fmt.Errorf("no pending offer %s", id)
	}
	if err := s.ledger.Delete(id); err != nil {
		return err
	}
	s.registry.Drop(id)
	s.log.Info("offer rejected", zap.String("id", id))
	return nil
}

func (s *SendService) fail(id, reason string) {
	if err := s.ledger.UpdateStatus(id, internal.PendingFailed); err != nil {
		s.log.Error("could not mark record failed", zap.String("id", id), zap.Error(err))
	}
	if err := s.ledger.AppendErrors(id, reason); err != nil {
		s.log.Error("could not append failure reason", zap.String("id", id), zap.Error(err))
	}
}
