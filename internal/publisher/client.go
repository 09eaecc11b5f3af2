package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"dealflow/internal/config"
	"dealflow/pkg/circuitbreaker"
	"dealflow/pkg/errors"
	"dealflow/pkg/ratelimit"
)

const apiVersion = "2022-06-28"

// Client talks to the workspace database API.
type Client interface {
	RetrieveDatabase(ctx context.Context) (*Database, error)
	CreatePage(ctx context.Context, properties map[string]Property) (*Page, error)
	UpdatePage(ctx context.Context, pageID string, properties map[string]Property) error
	QueryDatabase(ctx context.Context, filter map[string]interface{}) ([]Page, error)
}

type httpClient struct {
	baseURL    string
	apiKey     string
	databaseID string
	client     *http.Client
	limiter    *ratelimit.QuotaLimiter
	breaker    *circuitbreaker.Wrapper
}

// NewClient builds a workspace client from config. All calls go through the
// shared quota limiter before the request is issued, so the per-second cap
// covers every endpoint combined.
func NewClient(cfg config.WorkspaceConfig, breaker *circuitbreaker.Wrapper) Client {
	return &httpClient{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		databaseID: cfg.DatabaseID,
		client: &http.Client{
			Timeout: cfg.TimeoutSeconds,
		},
		limiter: ratelimit.PerSecond(cfg.RequestsPerSecond),
		breaker: breaker,
	}
}

func (c *httpClient) RetrieveDatabase(ctx context.Context) (*Database, error) {
	var db Database
	if err := c.do(ctx, http.MethodGet, "/v1/databases/"+c.databaseID, nil, &db); err != nil {
		return nil, err
	}
	return &db, nil
}

func (c *httpClient) CreatePage(ctx context.Context, properties map[string]Property) (*Page, error) {
	body := map[string]interface{}{
		"parent":     map[string]string{"database_id": c.databaseID},
		"properties": properties,
	}
	var page Page
	if err := c.do(ctx, http.MethodPost, "/v1/pages", body, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *httpClient) UpdatePage(ctx context.Context, pageID string, properties map[string]Property) error {
	body := map[string]interface{}{"properties": properties}
	return c.do(ctx, http.MethodPatch, "/v1/pages/"+pageID, body, nil)
}

func (c *httpClient) QueryDatabase(ctx context.Context, filter map[string]interface{}) ([]Page, error) {
	body := map[string]interface{}{}
	if filter != nil {
		body["filter"] = filter
	}
	var result struct {
		Results []Page `json:"results"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/databases/"+c.databaseID+"/query", body, &result); err != nil {
		return nil, err
	}
	return result.Results, nil
}

func (c *httpClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.ErrPublish.WithCause(err)
	}

	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return errors.ErrPublish.WithCause(err).AsFatal()
		}
		payload = bytes.NewReader(raw)
	}

	result, err := c.breaker.ExecuteWithContext(ctx, func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Notion-Version", apiVersion)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, &apiError{Status: resp.StatusCode, Body: string(raw)}
		}
		return raw, nil
	})
	if err != nil {
		// Remote rejections stay recoverable so the attempt budget applies;
		// a mismatched schema or option set may be repaired between attempts.
		return errors.ErrPublish.WithCause(err)
	}

	if out != nil {
		if err := json.Unmarshal(result.([]byte), out); err != nil {
			return errors.ErrPublish.WithCause(err)
		}
	}
	return nil
}

type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("workspace API status %d: %s", e.Status, e.Body)
}
