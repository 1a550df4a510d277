package rest

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"offerflow/internal"
	"offerflow/internal/erp"
)

type customerDTO struct {
	ID             string         `json:"id"`
	Number         string         `json:"number"`
	Name           string         `json:"name"`
	Address        string         `json:"address"`
	PostalCode     string         `json:"postalCode"`
	City           string         `json:"city"`
	Country        string         `json:"country"`
	Email          string         `json:"email"`
	Phone          string         `json:"phone"`
	CreditAllowed  bool           `json:"creditAllowed"`
	ResponsibleRef string         `json:"responsibleRef"`
	Metadata       map[string]any `json:"metadata"`
}

func (d customerDTO) toDomain() *internal.Customer {
	return &internal.Customer{
		ID:             d.ID,
		Number:         d.Number,
		Name:           d.Name,
		Address:        d.Address,
		PostalCode:     d.PostalCode,
		City:           d.City,
		Country:        d.Country,
		Email:          d.Email,
		Phone:          d.Phone,
		CreditAllowed:  d.CreditAllowed,
		ResponsibleRef: d.ResponsibleRef,
		Metadata:       d.Metadata,
	}
}

type CustomerService struct {
	client *Client
}

func NewCustomerService(client *Client) *CustomerService {
	return &CustomerService{client: client}
}

func (s *CustomerService) FindByName(ctx context.Context, name string) (*internal.Customer, error) {
	candidates, err := s.Search(ctx, name, 10)
	if err != nil {
		return nil, err
	}
	want := strings.ToLower(strings.TrimSpace(name))
	for i := range candidates {
		if strings.ToLower(candidates[i].Name) == want {
			return &candidates[i], nil
		}
	}
	return nil, nil
}

func (s *CustomerService) FindByNumber(ctx context.Context, number string) (*internal.Customer, error) {
	var dto customerDTO
	err := s.client.get(ctx, "customers/"+segment(number), nil, &dto)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return dto.toDomain(), nil
}

func (s *CustomerService) Search(ctx context.Context, query string, limit int) ([]internal.Customer, error) {
	if limit <= 0 {
		limit = 10
	}
	var dtos []customerDTO
	err := s.client.get(ctx, "customers", map[string]string{
		"q":     query,
		"limit": strconv.Itoa(limit),
	}, &dtos)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]internal.Customer, 0, len(dtos))
	for _, dto := range dtos {
		out = append(out, *dto.toDomain())
	}
	return out, nil
}

func (s *CustomerService) PaymentTerms(ctx context.Context, customerNumber string) (string, error) {
	var payload struct {
		Terms string `json:"terms"`
	}
	err := s.client.get(ctx, "customers/"+segment(customerNumber)+"/payment-terms", nil, &payload)
	if errors.Is(err, errNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return payload.Terms, nil
}

func (s *CustomerService) InvoicingDetails(ctx context.Context, customerNumber string) (*erp.InvoicingDetails, error) {
	var details erp.InvoicingDetails
	err := s.client.get(ctx, "customers/"+segment(customerNumber)+"/invoicing", nil, &details)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &details, nil
}

func (s *CustomerService) Validate(_ context.Context, customer *internal.Customer) error {
	if customer == nil {
		return &erp.ValidationError{Field: "customer", Reason: "nil"}
	}
	if strings.TrimSpace(customer.Number) == "" {
		return &erp.ValidationError{Field: "number", Reason: "empty"}
	}
	if strings.TrimSpace(customer.Name) == "" {
		return &erp.ValidationError{Field: "name", Reason: "empty"}
	}
	return nil
}

func segment(s string) string {
	return url.PathEscape(s)
}
