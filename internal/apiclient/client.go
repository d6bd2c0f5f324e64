// Package apiclient is a small typed client for the marketplace HTTP API, used by the
// bench-runner and the console.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nazeru/materials-marketplace-go/internal/httpapi"
	"github.com/nazeru/materials-marketplace-go/internal/order/domain"
	ordertx "github.com/nazeru/materials-marketplace-go/internal/order/tx"
	"github.com/nazeru/materials-marketplace-go/pkg/idempotency"
)

const tokenTTL = time.Hour

type Client struct {
	BaseURL string
	HTTP    *http.Client
	Secret  []byte
}

func New(baseURL string, secret []byte, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
		Secret:  secret,
	}
}

// StatusError is a non-2xx answer. Message is the server's error text.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Message)
}

// Code returns the HTTP status carried by err, or 0 when err is not a StatusError.
func Code(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

func (c *Client) do(ctx context.Context, as domain.Caller, method, path string, body any, headers map[string]string, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	token, err := httpapi.IssueToken(c.Secret, as, tokenTTL)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &StatusError{Code: resp.StatusCode, Message: msg}
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return nil
}

type NewMaterial struct {
	Name             string           `json:"name"`
	Price            int64            `json:"price"`
	Quantity         int              `json:"quantity"`
	Unit             string           `json:"unit"`
	Category         string           `json:"category"`
	Location         *domain.GeoPoint `json:"location,omitempty"`
	DeliveryRadiusKm float64          `json:"deliveryRadiusKm,omitempty"`
}

type materialEnvelope struct {
	Material domain.Material `json:"material"`
}

func (c *Client) CreateMaterial(ctx context.Context, as domain.Caller, m NewMaterial) (domain.Material, error) {
	var env materialEnvelope
	err := c.do(ctx, as, http.MethodPost, "/api/v1/materials", m, nil, &env)
	return env.Material, err
}

func (c *Client) GetMaterial(ctx context.Context, as domain.Caller, id domain.MaterialID) (domain.Material, error) {
	var env materialEnvelope
	err := c.do(ctx, as, http.MethodGet, "/api/v1/materials/"+url.PathEscape(string(id)), nil, nil, &env)
	return env.Material, err
}

type orderEnvelope struct {
	Order domain.Order `json:"order"`
}

// PlaceOrder submits items under a fresh idempotency key unless key is set.
func (c *Client) PlaceOrder(ctx context.Context, as domain.Caller, key string, items []ordertx.CheckoutItem) (domain.Order, error) {
	if key == "" {
		key = uuid.NewString()
	}
	var env orderEnvelope
	err := c.do(ctx, as, http.MethodPost, "/api/v1/orders", map[string]any{"materials": items},
		map[string]string{idempotency.Header: key}, &env)
	return env.Order, err
}

func (c *Client) CancelOrder(ctx context.Context, as domain.Caller, id domain.OrderID) (domain.Order, error) {
	var env orderEnvelope
	err := c.do(ctx, as, http.MethodPut, "/api/v1/orders/"+url.PathEscape(string(id))+"/cancel", nil, nil, &env)
	return env.Order, err
}

type OrderPage struct {
	Total  int            `json:"total"`
	Page   int            `json:"page"`
	Pages  int            `json:"pages"`
	Orders []domain.Order `json:"orders"`
}

// MyOrders lists the caller's own orders from the endpoint matching its role.
func (c *Client) MyOrders(ctx context.Context, as domain.Caller, page, limit int) (OrderPage, error) {
	path := "/api/v1/orders/vendor/my-orders"
	if as.Role == domain.RoleSupplier {
		path = "/api/v1/orders/supplier/my-orders"
	}
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out OrderPage
	err := c.do(ctx, as, http.MethodGet, path, nil, nil, &out)
	return out, err
}
