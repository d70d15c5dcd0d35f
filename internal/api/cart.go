package api

import (
	"context"
	"fmt"
	"net/http"
)

// CartAPI is the server-authoritative cart surface consumed by the
// reconciler. Creating a line does not return the new line id; callers that
// need it (note attachment) must re-fetch the cart and look the line up by
// product option id.
type CartAPI interface {
	GetCart(ctx context.Context) (*RemoteCart, error)
	CreateCartLine(ctx context.Context, productOptionID int64, quantity int) error
	AttachNote(ctx context.Context, lineID int64, note string) error
}

type createCartLineRequest struct {
	ProductOptionID int64 `json:"product_option_id"`
	Quantity        int   `json:"quantity"`
}

type attachNoteRequest struct {
	Note string `json:"note"`
}

// GetCart fetches the current remote cart.
func (c *Client) GetCart(ctx context.Context) (*RemoteCart, error) {
	var cart RemoteCart
	if err := c.do(ctx, http.MethodGet, "/cart", requestOptions{}, nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// CreateCartLine adds a line to the remote cart.
func (c *Client) CreateCartLine(ctx context.Context, productOptionID int64, quantity int) error {
	body := createCartLineRequest{ProductOptionID: productOptionID, Quantity: quantity}
	return c.do(ctx, http.MethodPost, "/cart/lines", requestOptions{}, body, nil)
}

// AttachNote sets the note on an existing remote cart line.
func (c *Client) AttachNote(ctx context.Context, lineID int64, note string) error {
	path := fmt.Sprintf("/cart/lines/%d/note", lineID)
	return c.do(ctx, http.MethodPut, path, requestOptions{}, attachNoteRequest{Note: note}, nil)
}
