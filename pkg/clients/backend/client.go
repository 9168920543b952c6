package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/samber/lo"

	"github.com/mamadbah2/farmstock/internal/config"
	"github.com/mamadbah2/farmstock/internal/domain/models"
)

const defaultTimeout = 10 * time.Second

// ErrMissingToken is returned when no bearer token is available for a request.
var ErrMissingToken = errors.New("authentication token missing")

// Client exposes the farm backend inventory endpoints used by the application.
type Client interface {
	ListInventory(ctx context.Context, farmID models.ID) ([]models.InventoryRecord, error)
	GetInventory(ctx context.Context, recordID models.ID) (*models.InventoryRecord, error)
	CreateInventory(ctx context.Context, body map[string]any) error
	UpdateItem(ctx context.Context, itemType models.ItemType, itemID models.ID, body map[string]any) error
	DeleteItem(ctx context.Context, itemType models.ItemType, itemID models.ID) error
}

// TokenSource provides the bearer token for each request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func(ctx context.Context) (string, error)

// Token implements TokenSource.
func (f TokenFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// StaticToken is a TokenSource returning a fixed token.
type StaticToken string

// Token implements TokenSource.
func (t StaticToken) Token(context.Context) (string, error) {
	if t == "" {
		return "", ErrMissingToken
	}
	return string(t), nil
}

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend api error: status=%d, message=%s", e.Status, e.Message)
}

// IsNotFound reports whether err is a backend 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient *resty.Client
	tokens     TokenSource
}

// NewClient builds a backend client. Tokens are looked up per request.
func NewClient(cfg config.BackendConfig, tokens TokenSource) *APIClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if tokens == nil {
		tokens = StaticToken(cfg.Token)
	}

	restyClient := resty.New()
	restyClient.
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetTimeout(timeout)

	return &APIClient{
		httpClient: restyClient,
		tokens:     tokens,
	}
}

// ListInventory fetches the inventory records of a farm. The backend wraps
// the list in "data" or "inventory", or returns it bare.
func (c *APIClient) ListInventory(ctx context.Context, farmID models.ID) ([]models.InventoryRecord, error) {
	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := req.
		SetQueryParam("farmId", farmID.String()).
		Get("/inventory")
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	if err := checkResponse(resp); err != nil {
		return nil, err
	}

	records, err := decodeRecords(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	return records, nil
}

// GetInventory fetches one inventory record, optionally wrapped in "data".
func (c *APIClient) GetInventory(ctx context.Context, recordID models.ID) (*models.InventoryRecord, error) {
	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := req.
		SetPathParam("id", recordID.String()).
		Get("/inventory/{id}")
	if err != nil {
		return nil, fmt.Errorf("get inventory %s: %w", recordID, err)
	}
	if err := checkResponse(resp); err != nil {
		return nil, err
	}

	record, err := decodeRecord(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("get inventory %s: %w", recordID, err)
	}
	return record, nil
}

// CreateInventory posts a new sub-item, body being {farmId, <type>: {...}}.
func (c *APIClient) CreateInventory(ctx context.Context, body map[string]any) error {
	req, err := c.request(ctx)
	if err != nil {
		return err
	}

	resp, err := req.SetBody(body).Post("/inventory")
	if err != nil {
		return fmt.Errorf("create inventory item: %w", err)
	}
	return checkResponse(resp)
}

// UpdateItem patches one sub-item with a flat body.
func (c *APIClient) UpdateItem(ctx context.Context, itemType models.ItemType, itemID models.ID, body map[string]any) error {
	path, err := itemPath(itemType)
	if err != nil {
		return err
	}

	req, err := c.request(ctx)
	if err != nil {
		return err
	}

	resp, err := req.
		SetPathParam("id", itemID.String()).
		SetBody(body).
		Patch(path)
	if err != nil {
		return fmt.Errorf("update %s %s: %w", itemType, itemID, err)
	}
	return checkResponse(resp)
}

// DeleteItem removes one sub-item. Any 2xx answer is success.
func (c *APIClient) DeleteItem(ctx context.Context, itemType models.ItemType, itemID models.ID) error {
	path, err := itemPath(itemType)
	if err != nil {
		return err
	}

	req, err := c.request(ctx)
	if err != nil {
		return err
	}

	resp, err := req.
		SetPathParam("id", itemID.String()).
		Delete(path)
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", itemType, itemID, err)
	}
	return checkResponse(resp)
}

func (c *APIClient) request(ctx context.Context) (*resty.Request, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		if errors.Is(err, ErrMissingToken) {
			return nil, ErrMissingToken
		}
		return nil, fmt.Errorf("load token: %w", err)
	}
	if token == "" {
		return nil, ErrMissingToken
	}

	return c.httpClient.R().
		SetContext(ctx).
		SetAuthToken(token), nil
}

func itemPath(itemType models.ItemType) (string, error) {
	segment := itemType.Endpoint()
	if segment == "" {
		return "", fmt.Errorf("no endpoint for inventory type %q", itemType)
	}
	return "/inventory/" + segment + "/{id}", nil
}

func checkResponse(resp *resty.Response) error {
	status := resp.StatusCode()
	if status >= http.StatusOK && status < http.StatusMultipleChoices {
		return nil
	}

	var body struct {
		Message models.Text `json:"message"`
		Error   models.Text `json:"error"`
	}
	_ = json.Unmarshal(resp.Body(), &body)

	return &APIError{
		Status:  status,
		Message: lo.CoalesceOrEmpty(string(body.Message), string(body.Error), http.StatusText(status)),
	}
}

func decodeRecords(body []byte) ([]models.InventoryRecord, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil
	}
	if body[0] == '[' {
		return decodeRecordList(body)
	}

	var envelope struct {
		Data      json.RawMessage `json:"data"`
		Inventory json.RawMessage `json:"inventory"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode inventory list: %w", err)
	}

	for _, raw := range []json.RawMessage{envelope.Data, envelope.Inventory} {
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
			continue
		}
		switch raw[0] {
		case '[':
			return decodeRecordList(raw)
		case '{':
			var record models.InventoryRecord
			if err := json.Unmarshal(raw, &record); err != nil {
				return nil, fmt.Errorf("decode inventory record: %w", err)
			}
			return []models.InventoryRecord{record}, nil
		}
	}

	return nil, nil
}

// decodeRecordList skips elements that are not objects.
func decodeRecordList(body []byte) ([]models.InventoryRecord, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, fmt.Errorf("decode inventory list: %w", err)
	}

	records := make([]models.InventoryRecord, 0, len(raws))
	for _, raw := range raws {
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || raw[0] != '{' {
			continue
		}
		var record models.InventoryRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			return nil, fmt.Errorf("decode inventory record: %w", err)
		}
		records = append(records, record)
	}
	return records, nil
}

func decodeRecord(body []byte) (*models.InventoryRecord, error) {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode inventory record: %w", err)
	}

	raw := bytes.TrimSpace(envelope.Data)
	if len(raw) == 0 || raw[0] != '{' {
		raw = body
	}

	var record models.InventoryRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("decode inventory record: %w", err)
	}
	return &record, nil
}
