package shop

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"commerce-chat-bot/internal/domain"
	"commerce-chat-bot/internal/domain/model"
	"commerce-chat-bot/internal/domain/ports/adapter"
)

var (
	_ adapter.CatalogService = (*StorefrontClient)(nil)
	_ adapter.CartService    = (*StorefrontClient)(nil)
	_ adapter.OrderService   = (*StorefrontClient)(nil)
)

// StorefrontClient talks to the shop's REST backend. It covers all three
// collaborator ports because the backend exposes them under one API.
type StorefrontClient struct {
	base   string
	apiKey string
	client *http.Client
}

func NewStorefrontClient(base, apiKey string, timeout time.Duration) (*StorefrontClient, error) {
	if base == "" {
		return nil, errors.New("storefront base url empty")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &StorefrontClient{
		base:   base,
		apiKey: apiKey,
		client: &http.Client{Timeout: timeout},
	}, nil
}

func (c *StorefrontClient) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body *bytes.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.ErrNotFound
	case resp.StatusCode >= 300:
		return fmt.Errorf("storefront http %d on %s %s", resp.StatusCode, method, path)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *StorefrontClient) ListCategories(ctx context.Context) ([]model.Category, error) {
	var out []model.Category
	if err := c.do(ctx, http.MethodGet, "/categories", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *StorefrontClient) ListProducts(ctx context.Context, categoryID string) ([]model.Product, error) {
	var out []model.Product
	path := "/products?category_id=" + url.QueryEscape(categoryID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *StorefrontClient) GetProduct(ctx context.Context, productID string) (*model.Product, error) {
	var out model.Product
	if err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(productID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *StorefrontClient) Get(ctx context.Context, customerID string) (*model.Cart, error) {
	var out model.Cart
	if err := c.do(ctx, http.MethodGet, "/carts/"+url.PathEscape(customerID), nil, &out); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &model.Cart{CustomerID: customerID}, nil
		}
		return nil, err
	}
	return &out, nil
}

func (c *StorefrontClient) SetQuantity(ctx context.Context, customerID, productID, variationID string, qty int) error {
	in := struct {
		ProductID   string `json:"product_id"`
		VariationID string `json:"variation_id,omitempty"`
		Quantity    int    `json:"quantity"`
	}{ProductID: productID, VariationID: variationID, Quantity: qty}
	return c.do(ctx, http.MethodPut, "/carts/"+url.PathEscape(customerID)+"/items", in, nil)
}

func (c *StorefrontClient) Clear(ctx context.Context, customerID string) error {
	return c.do(ctx, http.MethodDelete, "/carts/"+url.PathEscape(customerID), nil, nil)
}

func (c *StorefrontClient) Place(ctx context.Context, customerID string, cart *model.Cart, address, payMethod string) (string, error) {
	in := struct {
		CustomerID    string           `json:"customer_id"`
		Items         []model.CartItem `json:"items"`
		Address       string           `json:"address"`
		PaymentMethod string           `json:"payment_method"`
	}{CustomerID: customerID, Items: cart.Items, Address: address, PaymentMethod: payMethod}

	var out struct {
		OrderID string `json:"order_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/orders", in, &out); err != nil {
		return "", err
	}
	if out.OrderID == "" {
		return "", errors.New("storefront returned empty order id")
	}
	return out.OrderID, nil
}
