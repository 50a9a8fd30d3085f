package events

// Event type constants for the publish boundary. The hub itself never
// inspects payloads; these are the types the webhook trigger accepts plus
// the reserved stream handshake type.
const (
	// TypeConnected is the reserved acknowledgment a stream writes as its
	// first frame. It is never published through the hub.
	TypeConnected = "connected"

	TypeCallCreated   = "call.created"
	TypeCallUpdated   = "call.updated"
	TypeCallCompleted = "call.completed"
	TypeCallFailed    = "call.failed"
	TypeCallsBulk     = "calls.bulk"
	TypeRevalidateAll = "revalidate.all"
)

// Payload is an opaque event payload: a type tag plus free-form fields.
// Only the publish boundary requires the "type" key to be present.
type Payload map[string]any

// Type returns the payload's type tag, or "" if absent.
func (p Payload) Type() string {
	t, _ := p["type"].(string)
	return t
}

// ChannelCall returns the per-call channel name for a call ID.
func ChannelCall(callID string) string {
	return "call:" + callID
}

// ChannelCampaigns is the channel carrying campaign list updates.
const ChannelCampaigns = "campaigns"
