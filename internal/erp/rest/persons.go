package rest

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"offerflow/internal"
)

type personDTO struct {
	ID     string `json:"id"`
	Number string `json:"number"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	Role   string `json:"role"`
	Active bool   `json:"active"`
}

func (d personDTO) toDomain() *internal.Person {
	return &internal.Person{
		ID:     d.ID,
		Number: d.Number,
		Name:   d.Name,
		Email:  d.Email,
		Phone:  d.Phone,
		Role:   d.Role,
		Active: d.Active,
	}
}

type PersonService struct {
	client *Client
}

func NewPersonService(client *Client) *PersonService {
	return &PersonService{client: client}
}

func (s *PersonService) FindByEmail(ctx context.Context, email string) (*internal.Person, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	candidates, err := s.Search(ctx, email, 10)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	for i := range candidates {
		if strings.ToLower(candidates[i].Email) == email {
			return &candidates[i], nil
		}
	}
	if at := strings.LastIndex(email, "@"); at >= 0 {
		domain := email[at:]
		for i := range candidates {
			if strings.HasSuffix(strings.ToLower(candidates[i].Email), domain) {
				return &candidates[i], nil
			}
		}
	}
	return &candidates[0], nil
}

func (s *PersonService) FindByNumber(ctx context.Context, number string) (*internal.Person, error) {
	var dto personDTO
	err := s.client.get(ctx, "persons/"+segment(number), nil, &dto)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return dto.toDomain(), nil
}

func (s *PersonService) Search(ctx context.Context, query string, limit int) ([]internal.Person, error) {
	if limit <= 0 {
		limit = 10
	}
	var dtos []personDTO
	err := s.client.get(ctx, "persons", map[string]string{
		"q":     query,
		"limit": strconv.Itoa(limit),
	}, &dtos)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]internal.Person, 0, len(dtos))
	for _, dto := range dtos {
		out = append(out, *dto.toDomain())
	}
	return out, nil
}
