package offer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"offerflow/internal"
	"offerflow/internal/erp"
)

// Duplicate-position remediation probes original+10 through original+49,
// in order, stopping at the first success or first non-conflict failure.
const (
	remediationMinOffset = 10
	remediationMaxOffset = 49
)

type CreateResult struct {
	Number       string
	LinesTotal   int
	LinesCreated int
	Warnings     []string
}

type CreateService struct {
	repo erp.OfferRepository
	log  *zap.Logger
}

func NewCreateService(repo erp.OfferRepository, log *zap.Logger) *CreateService {
	return &CreateService{repo: repo, log: log}
}

func (s *CreateService) Create(ctx context.Context, offer *internal.Offer) (*CreateResult, error) {
	if len(offer.Lines) == 0 {
		return nil, &erp.ValidationError{Field: "lines", Reason: "offer has no lines"}
	}

	number, err := s.repo.Create(ctx, offer.CustomerNumber)
	if err != nil {
		return nil, fmt.Errorf("create offer for customer %s: %w", offer.CustomerNumber, err)
	}
	offer.Number = number

	result := &CreateResult{Number: number, LinesTotal: len(offer.Lines)}

	// Stages two and three are best-effort.
	record, err := s.repo.Get(ctx, number)
	if err != nil || record == nil {
		warning := fmt.Sprintf("offer %s: could not fetch default shape, header fields not merged", number)
		result.Warnings = append(result.Warnings, warning)
		s.log.Warn("offer header merge skipped", zap.String("offer", number), zap.Error(err))
	} else {
		mergeOfferFields(record, offer)
		if err := s.repo.Update(ctx, record); err != nil {
			warning := fmt.Sprintf("offer %s: header update failed: %v", number, err)
			result.Warnings = append(result.Warnings, warning)
			s.log.Warn("offer header update failed", zap.String("offer", number), zap.Error(err))
		}
	}

	for _, line := range offer.Lines {
		if err := s.appendLine(ctx, number, line); err != nil {
			warning := fmt.Sprintf("line %d (%s): %v", line.Position, line.ProductCode, err)
			result.Warnings = append(result.Warnings, warning)
			s.log.Warn("offer line append failed",
				zap.String("offer", number),
				zap.Int("position", line.Position),
				zap.String("product", line.ProductCode),
				zap.Error(err))
			continue
		}
		result.LinesCreated++
	}

	if result.LinesCreated == 0 {
		if err := s.repo.Delete(ctx, number); err != nil {
			// Compensation must not mask the original failure.
			s.log.Error("compensating delete failed", zap.String("offer", number), zap.Error(err))
		}
		return nil, fmt.Errorf("offer %s creation failed: %d/%d lines appended", number, result.LinesCreated, result.LinesTotal)
	}

	return result, nil
}

func (s *CreateService) appendLine(ctx context.Context, number string, line internal.OfferLine) error {
	err := s.repo.AppendLine(ctx, number, line)
	if err == nil || !erp.IsConflict(err) {
		return err
	}

	for offset := remediationMinOffset; offset <= remediationMaxOffset; offset++ {
		retry := line
		retry.Position = line.Position + offset
		err = s.repo.AppendLine(ctx, number, retry)
		if err == nil {
			s.log.Debug("line position remediated",
				zap.String("offer", number),
				zap.Int("original", line.Position),
				zap.Int("used", retry.Position))
			return nil
		}
		if !erp.IsConflict(err) {
			return err
		}
	}
	return fmt.Errorf("position remediation exhausted: %w", err)
}

func (s *CreateService) Verify(ctx context.Context, number string) (*erp.VerifyResult, error) {
	return s.repo.Verify(ctx, number)
}

func mergeOfferFields(record *erp.OfferRecord, offer *internal.Offer) {
	if record.Fields == nil {
		record.Fields = map[string]any{}
	}
	record.Fields["date"] = offer.Date.Format(time.RFC3339)
	record.Fields["validUntil"] = offer.ValidUntil.Format(time.RFC3339)
	record.Fields["reference"] = offer.Reference
	record.Fields["yourReference"] = offer.YourReference
	record.Fields["deliveryTerms"] = offer.DeliveryTerms
	record.Fields["paymentTerms"] = offer.PaymentTerms
	record.Fields["notes"] = offer.Notes
	record.Fields["responsible"] = offer.ResponsibleRef
}
