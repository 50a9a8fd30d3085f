package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/boostedcalls/boostedcalls/internal/apperr"
)

// ContactParams is the payload for creating or updating a contact.
type ContactParams struct {
	Name     string         `json:"name"`
	Phone    string         `json:"phone"`
	Email    *string        `json:"email"`
	Metadata map[string]any `json:"metadata"`
}

func (p ContactParams) validate() error {
	if p.Name == "" || p.Phone == "" {
		return apperr.BadRequest("Name and phone are required")
	}
	return nil
}

// ListContacts fetches all contacts.
func (c *Client) ListContacts(ctx context.Context, token string) (json.RawMessage, error) {
	return c.Do(ctx, Request{
		Method: http.MethodGet,
		Path:   "contacts/",
		Token:  token,
	})
}

// GetContact fetches a single contact by ID.
func (c *Client) GetContact(ctx context.Context, token, id string) (json.RawMessage, error) {
	return c.Do(ctx, Request{
		Method: http.MethodGet,
		Path:   "contacts/" + url.PathEscape(id) + "/",
		Token:  token,
	})
}

// CreateContact creates a contact.
func (c *Client) CreateContact(ctx context.Context, token string, params ContactParams) (json.RawMessage, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	return c.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   "contacts/",
		Token:  token,
		Body:   params,
	})
}

// UpdateContact replaces a contact.
func (c *Client) UpdateContact(ctx context.Context, token, id string, params ContactParams) (json.RawMessage, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	return c.Do(ctx, Request{
		Method: http.MethodPut,
		Path:   "contacts/" + url.PathEscape(id) + "/",
		Token:  token,
		Body:   params,
	})
}

// DeleteContact deletes a contact.
func (c *Client) DeleteContact(ctx context.Context, token, id string) error {
	_, err := c.Do(ctx, Request{
		Method: http.MethodDelete,
		Path:   "contacts/" + url.PathEscape(id) + "/",
		Token:  token,
	})
	return err
}
