package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"offerflow/internal/erp"
)

const maxAttempts = 5

// Services translate errNotFound into the (nil, nil) absence result.
var errNotFound = errors.New("not found")

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Errors  json.RawMessage `json:"errors"`
	Data    json.RawMessage `json:"data"`
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *RateLimiter
	log        *zap.Logger
}

func NewClient(baseURL, token string, rateLimitRPS, timeoutMs int, log *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: time.Duration(timeoutMs) * time.Millisecond},
		limiter:    NewRateLimiter(rateLimitRPS),
		log:        log,
	}
}

func (c *Client) get(ctx context.Context, endpoint string, params map[string]string, out any) error {
	return c.do(ctx, http.MethodGet, endpoint, params, nil, out)
}

func (c *Client) post(ctx context.Context, endpoint string, payload, out any) error {
	return c.do(ctx, http.MethodPost, endpoint, nil, payload, out)
}

func (c *Client) put(ctx context.Context, endpoint string, payload, out any) error {
	return c.do(ctx, http.MethodPut, endpoint, nil, payload, out)
}

func (c *Client) delete(ctx context.Context, endpoint string) error {
	return c.do(ctx, http.MethodDelete, endpoint, nil, nil, nil)
}

func (c *Client) do(ctx context.Context, method, endpoint string, params map[string]string, payload, out any) error {
	if strings.TrimSpace(c.token) == "" {
		return erp.NewServiceError("rest", endpoint, errors.New("missing API token"))
	}

	u, err := url.Parse(c.baseURL + "/" + strings.TrimLeft(endpoint, "/"))
	if err != nil {
		return erp.NewServiceError("rest", endpoint, err)
	}
	q := u.Query()
	for k, v := range params {
		if strings.TrimSpace(v) != "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()

	var body []byte
	if payload != nil {
		if body, err = json.Marshal(payload); err != nil {
			return erp.NewServiceError("rest", endpoint, err)
		}
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		c.limiter.WaitTurn()

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
		if err != nil {
			return erp.NewServiceError("rest", endpoint, err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return errNotFound
		case resp.StatusCode == http.StatusConflict:
			return &erp.ConflictError{Op: endpoint, Message: apiMessage(respBody)}
		case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
			return &erp.ValidationError{Field: endpoint, Reason: apiMessage(respBody)}
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			if isRetryableStatus(resp.StatusCode) && attempt < maxAttempts {
				backoff := time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
				c.log.Debug("retrying request",
					zap.String("endpoint", endpoint),
					zap.Int("status", resp.StatusCode),
					zap.Int("attempt", attempt))
				time.Sleep(backoff)
				lastErr = fmt.Errorf("status %d", resp.StatusCode)
				continue
			}
			return erp.NewServiceError("rest", endpoint,
				fmt.Errorf("status=%d body=%s", resp.StatusCode, truncate(respBody, 512)))
		}

		var envelope apiResponse
		if err := json.Unmarshal(respBody, &envelope); err != nil {
			return erp.NewServiceError("rest", endpoint, err)
		}
		if !envelope.Success {
			return erp.NewServiceError("rest", endpoint,
				fmt.Errorf("api unsuccessful: %s", string(envelope.Errors)))
		}
		if out != nil && len(envelope.Data) > 0 {
			if err := json.Unmarshal(envelope.Data, out); err != nil {
				return erp.NewServiceError("rest", endpoint, err)
			}
		}
		return nil
	}

	if lastErr == nil {
		lastErr = errors.New("request failed")
	}
	return erp.NewServiceError("rest", endpoint, lastErr)
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func apiMessage(body []byte) string {
	var envelope apiResponse
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Message != "" {
		return envelope.Message
	}
	return truncate(body, 256)
}

func truncate(body []byte, n int) string {
	s := string(body)
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
