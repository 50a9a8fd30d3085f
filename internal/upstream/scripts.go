package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/boostedcalls/boostedcalls/internal/apperr"
)

// ScriptParams is the payload for creating or updating a call script.
type ScriptParams struct {
	Name         string  `json:"name"`
	Description  *string `json:"description"`
	CustomPrompt *string `json:"custom_prompt"`
	FirstMessage *string `json:"first_message"`
	CallGoals    *string `json:"call_goals"`
}

// ListScripts fetches all call scripts.
func (c *Client) ListScripts(ctx context.Context, token string) (json.RawMessage, error) {
	return c.Do(ctx, Request{
		Method: http.MethodGet,
		Path:   "scripts/",
		Token:  token,
	})
}

// GetScript fetches a single call script by ID.
func (c *Client) GetScript(ctx context.Context, token, id string) (json.RawMessage, error) {
	return c.Do(ctx, Request{
		Method: http.MethodGet,
		Path:   "scripts/" + url.PathEscape(id) + "/",
		Token:  token,
	})
}

// CreateScript creates a call script.
func (c *Client) CreateScript(ctx context.Context, token string, params ScriptParams) (json.RawMessage, error) {
	if params.Name == "" {
		return nil, apperr.MissingField("name")
	}
	return c.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   "scripts/",
		Token:  token,
		Body:   params,
	})
}

// UpdateScript replaces a call script.
func (c *Client) UpdateScript(ctx context.Context, token, id string, params ScriptParams) (json.RawMessage, error) {
	if params.Name == "" {
		return nil, apperr.MissingField("name")
	}
	return c.Do(ctx, Request{
		Method: http.MethodPut,
		Path:   "scripts/" + url.PathEscape(id) + "/",
		Token:  token,
		Body:   params,
	})
}

// DeleteScript deletes a call script.
func (c *Client) DeleteScript(ctx context.Context, token, id string) error {
	_, err := c.Do(ctx, Request{
		Method: http.MethodDelete,
		Path:   "scripts/" + url.PathEscape(id) + "/",
		Token:  token,
	})
	return err
}
