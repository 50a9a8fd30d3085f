package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/boostedcalls/boostedcalls/internal/apperr"
)

// PlaceCallParams is the payload for placing an outbound call. ContactID is
// required; AssistantID and PhoneNumberID fall back to the configured
// defaults when empty.
type PlaceCallParams struct {
	ContactID     string         `json:"contact_id"`
	AssistantID   string         `json:"assistant_id"`
	PhoneNumberID string         `json:"phone_number_id"`
	ScriptID      *string        `json:"script_id"`
	CustomPrompt  *string        `json:"custom_prompt"`
	FirstMessage  *string        `json:"first_message"`
	CallGoals     *string        `json:"call_goals"`
	Metadata      map[string]any `json:"metadata"`
}

// ListCalls fetches calls, passing the query string through to the backend.
func (c *Client) ListCalls(ctx context.Context, token string, query url.Values) (json.RawMessage, error) {
	return c.Do(ctx, Request{
		Method: http.MethodGet,
		Path:   "calls/",
		Token:  token,
		Query:  query,
	})
}

// GetCall fetches a single call by ID.
func (c *Client) GetCall(ctx context.Context, token, id string) (json.RawMessage, error) {
	return c.Do(ctx, Request{
		Method: http.MethodGet,
		Path:   "calls/" + url.PathEscape(id) + "/",
		Token:  token,
	})
}

// PlaceCall places an outbound call. Missing assistant and phone number IDs
// are filled from the client config before validation.
func (c *Client) PlaceCall(ctx context.Context, token string, params PlaceCallParams) (json.RawMessage, error) {
	if params.ContactID == "" {
		return nil, apperr.BadRequest("Contact is required")
	}
	if params.AssistantID == "" {
		params.AssistantID = c.cfg.AssistantID
	}
	if params.PhoneNumberID == "" {
		params.PhoneNumberID = c.cfg.PhoneNumberID
	}
	if params.AssistantID == "" || params.PhoneNumberID == "" {
		return nil, apperr.BadRequest("Assistant and phone number are required")
	}
	return c.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   "calls/",
		Token:  token,
		Body:   params,
	})
}
