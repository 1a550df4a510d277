package rest

import (
	"context"
	"errors"
	"strings"

	"offerflow/internal"
	"offerflow/internal/erp"
)

type OfferService struct {
	client *Client
}

func NewOfferService(client *Client) *OfferService {
	return &OfferService{client: client}
}

func (s *OfferService) Create(ctx context.Context, customerNumber string) (string, error) {
	if strings.TrimSpace(customerNumber) == "" {
		return "", &erp.ValidationError{Field: "customerNumber", Reason: "empty"}
	}
	var payload struct {
		Number string `json:"number"`
	}
	err := s.client.post(ctx, "offers", map[string]string{"customerNumber": customerNumber}, &payload)
	if err != nil {
		return "", err
	}
	if payload.Number == "" {
		return "", erp.NewServiceError("rest", "create offer", errors.New("vendor allocated no offer number"))
	}
	return payload.Number, nil
}

func (s *OfferService) Get(ctx context.Context, number string) (*erp.OfferRecord, error) {
	var record erp.OfferRecord
	err := s.client.get(ctx, "offers/"+segment(number), nil, &record)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if record.Number == "" {
		record.Number = number
	}
	return &record, nil
}

func (s *OfferService) Update(ctx context.Context, record *erp.OfferRecord) error {
	if record == nil || record.Number == "" {
		return &erp.ValidationError{Field: "number", Reason: "empty"}
	}
	return s.client.put(ctx, "offers/"+segment(record.Number), record.Fields, nil)
}

func (s *OfferService) AppendLine(ctx context.Context, number string, line internal.OfferLine) error {
	err := s.client.post(ctx, "offers/"+segment(number)+"/lines", line, nil)
	var conflict *erp.ConflictError
	if errors.As(err, &conflict) {
		conflict.Position = line.Position
		return conflict
	}
	return err
}

func (s *OfferService) Verify(ctx context.Context, number string) (*erp.VerifyResult, error) {
	var result erp.VerifyResult
	err := s.client.get(ctx, "offers/"+segment(number)+"/verify", nil, &result)
	if errors.Is(err, errNotFound) {
		return &erp.VerifyResult{Exists: false}, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *OfferService) Delete(ctx context.Context, number string) error {
	err := s.client.delete(ctx, "offers/"+segment(number))
	if errors.Is(err, errNotFound) {
		// Already gone.
		return nil
	}
	return err
}

