package workflow

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"offerflow/internal"
	"offerflow/internal/intake"
)

const DefaultMaxConcurrent = 2

type Consumer interface {
	MarkConsumed(ctx context.Context, msg *internal.InboundMessage) error
}

type BatchResult struct {
	Processed int
	Skipped   int
	Failed    int
	Runs      []*Context
}

// Intake is at-most-once: every message is marked consumed after the batch, including skipped and failed ones.
type BatchProcessor struct {
	engine   *Engine
	registry *Registry
	consumer Consumer
	limit    int
	log      *zap.Logger
}

func NewBatchProcessor(engine *Engine, registry *Registry, consumer Consumer, limit int, log *zap.Logger) *BatchProcessor {
	if limit < 1 {
		limit = DefaultMaxConcurrent
	}
	return &BatchProcessor{engine: engine, registry: registry, consumer: consumer, limit: limit, log: log}
}

func (p *BatchProcessor) Process(ctx context.Context, msgs []*internal.InboundMessage) *BatchResult {
	result := &BatchResult{}
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(p.limit)
	for _, msg := range msgs {
		msg := msg
		g.Go(func() error {
			if detect := intake.DetectRequest(msg); !detect.IsRequest {
				p.log.Info("message skipped",
					zap.String("provider", msg.Provider),
					zap.String("id", msg.ProviderID),
					zap.Float64("score", detect.Score))
				mu.Lock()
				result.Skipped++
				mu.Unlock()
				return nil
			}

			wc, err := p.engine.Run(ctx, msg)
			mu.Lock()
			defer mu.Unlock()
			result.Runs = append(result.Runs, wc)
			if err != nil {
				result.Failed++
				return nil
			}
			result.Processed++
			if p.registry != nil {
				p.registry.Retain(wc)
			}
			return nil
		})
	}
	_ = g.Wait()

	if p.consumer != nil {
		for _, msg := range msgs {
			if err := p.consumer.MarkConsumed(ctx, msg); err != nil {
				p.log.Warn("message not marked consumed",
					zap.String("provider", msg.Provider),
					zap.String("id", msg.ProviderID),
					zap.Error(err))
			}
		}
	}
	return result
}
