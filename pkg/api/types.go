package api

import "github.com/openpnp-go/controller/pkg/processing"

// --- Data Structures for WebSocket Messages ---

// JogMessage is a command sent over the jog websocket. Type is a command kind
// such as MOVE_TO or PICK and defaults to MOVE_TO. RequestID is echoed back in
// the reply.
type JogMessage struct {
	Type      string `json:"type,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	processing.CommandRequest
}

// JogReply reports the outcome of a JogMessage
type JogReply struct {
	Type      string                       `json:"type"`
	RequestID string                       `json:"request_id,omitempty"`
	CommandID string                       `json:"command_id,omitempty"`
	Status    int                          `json:"status"`
	Error     string                       `json:"error,omitempty"`
	Location  *processing.LocationResponse `json:"location,omitempty"`
}

// Reply types
const (
	JogReplyResult = "result"
	JogReplyError  = "error"
)
