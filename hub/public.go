package hub

import "encoding/json"

// InboundMessage is the only shape a public/spectator connection may send;
// every field beyond Type is ignored on that channel.
type InboundMessage struct {
	Type string `json:"type"`
}

// RequestState is the one command type a public channel (component H)
// accepts. Anything else must be rejected by the caller before it ever
// reaches a box's Apply.
const RequestState = "REQUEST_STATE"

// IsRequestState reports whether a raw inbound frame is a well-formed
// REQUEST_STATE request. A malformed or unknown frame is simply ignored by
// the caller; the public channel never talks back about a bad frame.
func IsRequestState(raw []byte) bool {
	var msg InboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return false
	}
	return msg.Type == RequestState
}
