package api

import (
	"context"
	"fmt"
	"net/http"
)

// OrdersAPI exposes order creation and reads.
type OrdersAPI interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*Order, error)
	GetOrder(ctx context.Context, orderID int64) (*Order, error)
	ListOpenOrders(ctx context.Context) ([]Order, error)
}

// CreateOrder snapshots the authoritative cart into a new order.
func (c *Client) CreateOrder(ctx context.Context, input CreateOrderInput) (*Order, error) {
	var order Order
	if err := c.do(ctx, http.MethodPost, "/orders", requestOptions{}, input, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrder fetches the current server state for one order.
func (c *Client) GetOrder(ctx context.Context, orderID int64) (*Order, error) {
	var order Order
	path := fmt.Sprintf("/orders/%d", orderID)
	if err := c.do(ctx, http.MethodGet, path, requestOptions{}, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

type listOrdersResponse struct {
	Orders []Order `json:"orders"`
}

// ListOpenOrders returns the caller's orders that have not reached a
// terminal payment status. The monitor uses it to seed its polling set.
func (c *Client) ListOpenOrders(ctx context.Context) ([]Order, error) {
	var resp listOrdersResponse
	opts := requestOptions{query: map[string][]string{"state": {"open"}}}
	if err := c.do(ctx, http.MethodGet, "/orders", opts, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Orders, nil
}
