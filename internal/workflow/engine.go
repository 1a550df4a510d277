package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"offerflow/internal"
	"offerflow/internal/erp"
	"offerflow/internal/intake"
	"offerflow/internal/ledger"
	"offerflow/internal/offer"
	"offerflow/internal/pricing"
)

type Matcher interface {
	Match(ctx context.Context, items []internal.ExtractionItem) ([]internal.ProductMatch, error)
}

type Pricer interface {
	Price(ctx context.Context, customer *internal.Customer, matches []internal.ProductMatch) (*pricing.Result, error)
}

type ConfirmationSender interface {
	SendConfirmation(ctx context.Context, wc *Context) error
}

type Engine struct {
	adapter *erp.Adapter
	matcher Matcher
	pricer  Pricer
	creator *offer.CreateService
	ledger  *ledger.Ledger
	confirm ConfirmationSender
	retry   RetryPolicy
	vatRate float64
	now     func() time.Time
	log     *zap.Logger
}

func NewEngine(adapter *erp.Adapter, matcher Matcher, pricer Pricer, creator *offer.CreateService, led *ledger.Ledger, confirm ConfirmationSender, vatRate float64, log *zap.Logger) *Engine {
	return &Engine{
		adapter: adapter,
		matcher: matcher,
		pricer:  pricer,
		creator: creator,
		ledger:  led,
		confirm: confirm,
		retry:   DefaultRetryPolicy(),
		vatRate: vatRate,
		now:     time.Now,
		log:     log,
	}
}

func (e *Engine) Run(ctx context.Context, msg *internal.InboundMessage) (*Context, error) {
	wc := NewContext(msg, e.now())
	log := e.log.With(zap.String("trace", wc.TraceID))
	log.Info("workflow started", zap.String("sender", msg.Sender), zap.String("subject", msg.Subject))

	for _, step := range Steps() {
		wc.Step = step
		run := func(ctx context.Context) error { return e.runStep(ctx, wc, step) }

		var err error
		if step.Retriable() {
			err = e.retry.Do(ctx, run)
		} else {
			err = run(ctx)
		}
		if err == nil {
			continue
		}

		if step.Critical() {
			wc.AddError(fmt.Sprintf("%s: %v", step, err))
			e.recordFailure(wc)
			log.Error("workflow failed", zap.String("step", string(step)), zap.Error(err))
			return wc, fmt.Errorf("step %s: %w", step, err)
		}
		wc.AddWarning(fmt.Sprintf("%s: %v", step, err))
		log.Warn("step degraded to warning", zap.String("step", string(step)), zap.Error(err))
	}

	log.Info("workflow completed",
		zap.String("offer", wc.OfferNumber()),
		zap.Int("warnings", len(wc.Warnings)))
	return wc, nil
}

func (e *Engine) runStep(ctx context.Context, wc *Context, step Step) error {
	switch step {
	case StepParseMessage:
		return e.parseMessage(wc)
	case StepExtractCompany:
		return e.extractCompany(wc)
	case StepFindCustomer:
		return e.findCustomer(ctx, wc)
	case StepFindSalesperson:
		return e.findSalesperson(ctx, wc)
	case StepExtractProducts:
		return e.extractProducts(wc)
	case StepMatchProducts:
		return e.matchProducts(ctx, wc)
	case StepCalculatePricing:
		return e.calculatePricing(ctx, wc)
	case StepBuildOffer:
		return e.buildOffer(wc)
	case StepCreateOffer:
		return e.createOffer(ctx, wc)
	case StepVerifyOffer:
		return e.verifyOffer(ctx, wc)
	case StepSendConfirmation:
		return e.sendConfirmation(ctx, wc)
	case StepComplete:
		return nil
	default:
		return fmt.Errorf("unknown step %q", step)
	}
}

func (e *Engine) parseMessage(wc *Context) error {
	msg := wc.Message
	if msg == nil {
		return fmt.Errorf("no message")
	}
	if intake.SenderAddress(msg.Sender) == "" {
		return fmt.Errorf("message has no sender")
	}
	if msg.Body == "" && msg.HTMLBody == "" && len(msg.Attachments) == 0 {
		return fmt.Errorf("message has no content")
	}
	return nil
}

func (e *Engine) extractCompany(wc *Context) error {
	wc.Company = intake.ExtractCompany(wc.Message)
	if wc.Company == "" {
		return fmt.Errorf("could not identify a company for %s", intake.SenderAddress(wc.Message.Sender))
	}
	return nil
}

func (e *Engine) findCustomer(ctx context.Context, wc *Context) error {
	customer, err := e.adapter.Customers.FindByName(ctx, wc.Company)
	if err != nil {
		return err
	}
	if customer == nil {
		candidates, err := e.adapter.Customers.Search(ctx, wc.Company, 5)
		if err != nil {
			return err
		}
		customer = bestCustomer(wc.Company, candidates)
	}
	if customer == nil {
		return fmt.Errorf("customer %q not found", wc.Company)
	}
	wc.Customer = customer

	if terms, err := e.adapter.Customers.PaymentTerms(ctx, customer.Number); err == nil && terms != "" {
		wc.PaymentTerms = terms
	}
	return nil
}

func (e *Engine) findSalesperson(ctx context.Context, wc *Context) error {
	if wc.Customer == nil || wc.Customer.ResponsibleRef == "" {
		return fmt.Errorf("customer has no responsible person reference")
	}
	person, err := e.adapter.Persons.FindByNumber(ctx, wc.Customer.ResponsibleRef)
	if err != nil {
		return err
	}
	if person == nil {
		return fmt.Errorf("salesperson %s not found", wc.Customer.ResponsibleRef)
	}
	wc.Salesperson = person
	return nil
}

func (e *Engine) extractProducts(wc *Context) error {
	wc.Items = intake.ExtractItems(wc.Message)
	if len(wc.Items) == 0 {
		return fmt.Errorf("no request lines found in message")
	}
	return nil
}

func (e *Engine) matchProducts(ctx context.Context, wc *Context) error {
	matches, err := e.matcher.Match(ctx, wc.Items)
	if err != nil {
		return err
	}
	wc.Matches = matches
	if wc.ResolvedMatches() == 0 {
		return fmt.Errorf("none of %d request lines matched a product", len(wc.Items))
	}
	for _, m := range matches {
		if !m.Resolved() {
			wc.AddWarning(fmt.Sprintf("no product match for %q", m.RequestedTerm))
		}
	}
	return nil
}

func (e *Engine) calculatePricing(ctx context.Context, wc *Context) error {
	res, err := e.pricer.Price(ctx, wc.Customer, wc.Matches)
	if err != nil {
		return err
	}
	wc.Pricing = res.Pricing
	wc.Warnings = append(wc.Warnings, res.Warnings...)
	return nil
}

func (e *Engine) buildOffer(wc *Context) error {
	o := offer.Build(wc.Customer, wc.Salesperson, wc.Matches, wc.Pricing, e.vatRate, e.now())
	o.Reference = wc.Message.Subject
	o.YourReference = intake.SenderName(wc.Message.Sender)
	if wc.PaymentTerms != "" {
		o.PaymentTerms = wc.PaymentTerms
	}
	if len(o.Lines) == 0 {
		return fmt.Errorf("built offer has no lines")
	}
	wc.Offer = o
	return nil
}

func (e *Engine) createOffer(ctx context.Context, wc *Context) error {
	if wc.Offer == nil {
		return fmt.Errorf("no offer was built")
	}
	result, err := e.creator.Create(ctx, wc.Offer)
	if err != nil {
		return err
	}
	wc.CreateResult = result
	wc.Offer.Number = result.Number
	wc.Warnings = append(wc.Warnings, result.Warnings...)

	wc.PendingID = wc.TraceID
	if err := e.ledger.Add(internal.PendingOffer{
		ID:            wc.PendingID,
		OfferNumber:   result.Number,
		CustomerName:  wc.Customer.Name,
		CustomerEmail: intake.SenderAddress(wc.Message.Sender),
		CreatedAt:     e.now(),
		Status:        internal.PendingReview,
		TotalAmount:   wc.Offer.GrossTotal,
		Lines:         wc.Offer.Lines,
		Warnings:      wc.Warnings,
	}); err != nil {
		wc.AddWarning(fmt.Sprintf("ledger record not added: %v", err))
	}
	return nil
}

func (e *Engine) verifyOffer(ctx context.Context, wc *Context) error {
	result, err := e.creator.Verify(ctx, wc.OfferNumber())
	if err != nil {
		return err
	}
	wc.Verified = result
	if !result.OK() {
		return fmt.Errorf("offer %s failed verification: lines=%d netTotal=%.2f",
			wc.OfferNumber(), result.LineCount, result.NetTotal)
	}
	return nil
}

func (e *Engine) sendConfirmation(ctx context.Context, wc *Context) error {
	if e.confirm == nil {
		return nil
	}
	return e.confirm.SendConfirmation(ctx, wc)
}

func (e *Engine) recordFailure(wc *Context) {
	name := wc.Company
	if wc.Customer != nil {
		name = wc.Customer.Name
	}
	record := internal.PendingOffer{
		ID:            wc.TraceID,
		OfferNumber:   wc.OfferNumber(),
		CustomerName:  name,
		CustomerEmail: intake.SenderAddress(wc.Message.Sender),
		CreatedAt:     e.now(),
		Status:        internal.PendingFailed,
		Warnings:      wc.Warnings,
		Errors:        wc.Errors,
	}
	if wc.Offer != nil {
		record.TotalAmount = wc.Offer.GrossTotal
		record.Lines = wc.Offer.Lines
	}
	if err := e.ledger.Add(record); err != nil {
		e.log.Error("failed run not recorded", zap.String("trace", wc.TraceID), zap.Error(err))
	}
}

func bestCustomer(company string, candidates []internal.Customer) *internal.Customer {
	want := strings.ToLower(company)
	for i := range candidates {
		if strings.Contains(strings.ToLower(candidates[i].Name), want) {
			return &candidates[i]
		}
	}
	return nil
}
