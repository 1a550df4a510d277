package rest

import (
	"context"
	"errors"
	"strconv"

	"offerflow/internal"
	"offerflow/internal/catalog"
	"offerflow/internal/erp"
)

type productDTO struct {
	Code        string         `json:"code"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Unit        string         `json:"unit"`
	GroupCode   int            `json:"groupCode"`
	ListPrice   float64        `json:"listPrice"`
	UnitPrice   float64        `json:"unitPrice"`
	InStock     *float64       `json:"inStock"`
	Active      bool           `json:"active"`
	Metadata    map[string]any `json:"metadata"`
}

func (d productDTO) toDomain() *internal.Product {
	return &internal.Product{
		Code:        d.Code,
		Name:        d.Name,
		Description: d.Description,
		Unit:        d.Unit,
		GroupCode:   d.GroupCode,
		ListPrice:   d.ListPrice,
		UnitPrice:   d.UnitPrice,
		InStock:     d.InStock,
		Active:      d.Active,
		Metadata:    d.Metadata,
	}
}

type catalogRowDTO struct {
	Code      string            `json:"code"`
	GroupCode int               `json:"groupCode"`
	Columns   map[string]string `json:"columns"`
}

type SearcherSource func() (*catalog.Searcher, error)

// The search primitives run against the local mirror; the vendor has no cross-column search.
type ProductService struct {
	client   *Client
	searcher SearcherSource
}

func NewProductService(client *Client, searcher SearcherSource) *ProductService {
	return &ProductService{client: client, searcher: searcher}
}

func (s *ProductService) FindByCode(ctx context.Context, code string) (*internal.Product, error) {
	var dto productDTO
	err := s.client.get(ctx, "products/"+segment(code), nil, &dto)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return dto.toDomain(), nil
}

func (s *ProductService) Search(ctx context.Context, query string, limit int) ([]internal.Product, error) {
	if limit <= 0 {
		limit = 20
	}
	var dtos []productDTO
	err := s.client.get(ctx, "products", map[string]string{
		"q":     query,
		"limit": strconv.Itoa(limit),
	}, &dtos)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]internal.Product, 0, len(dtos))
	for _, dto := range dtos {
		out = append(out, *dto.toDomain())
	}
	return out, nil
}

func (s *ProductService) ListGroup(ctx context.Context, groupCode int) ([]internal.Product, error) {
	var dtos []productDTO
	err := s.client.get(ctx, "products", map[string]string{
		"group": strconv.Itoa(groupCode),
	}, &dtos)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]internal.Product, 0, len(dtos))
	for _, dto := range dtos {
		out = append(out, *dto.toDomain())
	}
	return out, nil
}

func (s *ProductService) CheckAvailability(ctx context.Context, code string, qty float64) (*erp.Availability, error) {
	var availability erp.Availability
	err := s.client.get(ctx, "products/"+segment(code)+"/availability", map[string]string{
		"qty": strconv.FormatFloat(qty, 'f', -1, 64),
	}, &availability)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &availability, nil
}

func (s *ProductService) LookupCodes(_ context.Context, codes []string) ([]internal.CatalogRow, []string, error) {
	searcher, err := s.searcher()
	if err != nil {
		return nil, nil, erp.NewServiceError("rest", "lookup codes", err)
	}
	found, missing := searcher.LookupCodes(codes)
	return found, missing, nil
}

func (s *ProductService) WildcardSearch(_ context.Context, pattern string) ([]internal.CatalogRow, error) {
	searcher, err := s.searcher()
	if err != nil {
		return nil, erp.NewServiceError("rest", "wildcard search", err)
	}
	return searcher.WildcardSearch(pattern), nil
}

func (s *ProductService) FetchCatalogRows(ctx context.Context) ([]internal.CatalogRow, error) {
	all := make([]internal.CatalogRow, 0)
	page := 1
	for {
		var payload struct {
			Rows     []catalogRowDTO `json:"rows"`
			NextPage *int            `json:"nextPage"`
		}
		err := s.client.get(ctx, "catalog/rows", map[string]string{
			"page": strconv.Itoa(page),
		}, &payload)
		if err != nil {
			return nil, err
		}

		for _, dto := range payload.Rows {
			all = append(all, internal.CatalogRow{
				Code:      dto.Code,
				GroupCode: dto.GroupCode,
				Columns:   dto.Columns,
				Priority:  catalog.IsPriorityGroup(dto.GroupCode),
			})
		}

		if payload.NextPage == nil || *payload.NextPage <= page || len(payload.Rows) == 0 {
			break
		}
		page = *payload.NextPage
	}
	return all, nil
}
