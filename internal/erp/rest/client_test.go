package rest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"offerflow/internal"
	"offerflow/internal/catalog"
	"offerflow/internal/erp"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func testClient(rt roundTripFunc) *Client {
	c := NewClient("https://example.test/api/v1", "test-token", 1000, 5000, zap.NewNop())
	c.httpClient = &http.Client{Transport: rt}
	return c
}

func jsonResponse(status int, payload any) *http.Response {
	blob, _ := json.Marshal(payload)
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(string(blob))),
		Header:     make(http.Header),
	}
}

func envelope(data any) map[string]any {
	return map[string]any{"success": true, "data": data}
}

func TestClientRetriesTransientStatus(t *testing.T) {
	attempt := 0
	client := testClient(func(r *http.Request) (*http.Response, error) {
		attempt++
		if attempt == 1 {
			return jsonResponse(http.StatusInternalServerError, map[string]any{"error": "boom"}), nil
		}
		return jsonResponse(http.StatusOK, envelope(map[string]any{"terms": "Net 30"})), nil
	})

	var payload struct {
		Terms string `json:"terms"`
	}
	err := client.get(context.Background(), "customers/10042/payment-terms", nil, &payload)
	require.NoError(t, err)
	assert.Equal(t, 2, attempt)
	assert.Equal(t, "Net 30", payload.Terms)
}

func TestClientMapsNotFound(t *testing.T) {
	client := testClient(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusNotFound, map[string]any{}), nil
	})
	svc := NewCustomerService(client)

	customer, err := svc.FindByNumber(context.Background(), "99999")
	require.NoError(t, err)
	assert.Nil(t, customer)
}

func TestClientMapsConflict(t *testing.T) {
	client := testClient(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusConflict, map[string]any{"success": false, "message": "duplicate position"}), nil
	})
	svc := NewOfferService(client)

	err := svc.AppendLine(context.Background(), "OF-1", internal.OfferLine{Position: 3})
	require.Error(t, err)
	assert.True(t, erp.IsConflict(err))
	var conflict *erp.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, 3, conflict.Position)
}

func TestClientMapsValidation(t *testing.T) {
	client := testClient(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusUnprocessableEntity, map[string]any{"success": false, "message": "qty must be positive"}), nil
	})
	svc := NewOfferService(client)

	err := svc.AppendLine(context.Background(), "OF-1", internal.OfferLine{Position: 1, Quantity: -2})
	require.Error(t, err)
	assert.True(t, erp.IsValidationError(err))
}

func TestClientExhaustedRetriesIsServiceError(t *testing.T) {
	attempts := 0
	client := testClient(func(*http.Request) (*http.Response, error) {
		attempts++
		return jsonResponse(http.StatusServiceUnavailable, map[string]any{}), nil
	})

	err := client.get(context.Background(), "customers", nil, nil)
	require.Error(t, err)
	assert.True(t, erp.IsServiceError(err))
	assert.Equal(t, maxAttempts, attempts)
}

func TestClientRejectsUnsuccessfulEnvelope(t *testing.T) {
	client := testClient(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, map[string]any{"success": false, "errors": []string{"bad"}}), nil
	})

	err := client.get(context.Background(), "customers", nil, nil)
	require.Error(t, err)
	assert.True(t, erp.IsServiceError(err))
}

func TestClientSendsAuthHeader(t *testing.T) {
	client := testClient(func(r *http.Request) (*http.Response, error) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		return jsonResponse(http.StatusOK, envelope(map[string]any{})), nil
	})
	require.NoError(t, client.get(context.Background(), "persons", nil, nil))
}

func TestOfferCreateReturnsAllocatedNumber(t *testing.T) {
	client := testClient(func(r *http.Request) (*http.Response, error) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/offers"))
		return jsonResponse(http.StatusOK, envelope(map[string]any{"number": "OF-2001"})), nil
	})
	svc := NewOfferService(client)

	number, err := svc.Create(context.Background(), "10042")
	require.NoError(t, err)
	assert.Equal(t, "OF-2001", number)
}

func TestPersonFindByEmailPrefersExactMatch(t *testing.T) {
	client := testClient(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, envelope([]map[string]any{
			{"id": "p-1", "number": "1", "name": "A", "email": "alex.doyle@corp.example"},
			{"id": "p-2", "number": "2", "name": "B", "email": "doyle@corp.example"},
		})), nil
	})
	svc := NewPersonService(client)

	person, err := svc.FindByEmail(context.Background(), "doyle@corp.example")
	require.NoError(t, err)
	require.NotNil(t, person)
	assert.Equal(t, "p-2", person.ID)
}

func TestProductSearchPrimitivesUseLocalMirror(t *testing.T) {
	rows := []internal.CatalogRow{
		{Code: "CBL-3X25", GroupCode: 120, Columns: map[string]string{"name": "POWER CABLE 3X25"}},
	}
	svc := NewProductService(nil, func() (*catalog.Searcher, error) {
		return catalog.NewSearcher(rows), nil
	})

	found, missing, err := svc.LookupCodes(context.Background(), []string{"CBL-3X25", "NOPE-1"})
	require.NoError(t, err)
	assert.Len(t, found, 1)
	assert.Equal(t, []string{"NOPE-1"}, missing)

	hits, err := svc.WildcardSearch(context.Background(), "power%cable")
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestFetchCatalogRowsPaginates(t *testing.T) {
	client := testClient(func(r *http.Request) (*http.Response, error) {
		switch r.URL.Query().Get("page") {
		case "1":
			return jsonResponse(http.StatusOK, envelope(map[string]any{
				"rows":     []map[string]any{{"code": "A-1", "groupCode": 100, "columns": map[string]string{"name": "A"}}},
				"nextPage": 2,
			})), nil
		default:
			return jsonResponse(http.StatusOK, envelope(map[string]any{
				"rows": []map[string]any{{"code": "B-2", "groupCode": 2000, "columns": map[string]string{"name": "B"}}},
			})), nil
		}
	})
	svc := NewProductService(client, nil)

	rows, err := svc.FetchCatalogRows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].Priority)
	assert.False(t, rows[1].Priority)
}
