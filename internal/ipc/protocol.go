// Package ipc implements the control protocol between the brailled
// daemon and its clients (braillectl): newline-delimited
// JSON request/response pairs over a Unix domain socket.
package ipc

import (
	"encoding/json"
	"fmt"
)

// Request types.
const (
	TypeStatus        = "status"
	TypeDot           = "dot"
	TypeChord         = "chord"
	TypeToggleMode    = "toggle_mode"
	TypeSetMode       = "set_mode"
	TypeToggleOverlay = "toggle_overlay"
	TypeOverlayLine   = "overlay_line"
	TypeSetTimeout    = "set_timeout"
	TypeReset         = "reset"
)

// Error codes.
const (
	ErrCodeBadRequest = "bad_request"
	ErrCodeInternal   = "internal"
	ErrCodeUnknown    = "unknown_type"
)

// Request is one client request.
type Request struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response is the daemon's reply.
type Response struct {
	Success bool            `json:"success"`
	Error   *ErrorInfo      `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// ErrorInfo describes a failed request.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DotPayload carries a single dot press.
type DotPayload struct {
	Dot int `json:"dot"`
}

// ChordPayload carries a complete chord, bypassing the aggregator.
type ChordPayload struct {
	Dots []int `json:"dots"`
}

// SetModePayload selects a mode by name.
type SetModePayload struct {
	Mode string `json:"mode"`
}

// SetTimeoutPayload changes the chord quiescence timeout.
type SetTimeoutPayload struct {
	Milliseconds int `json:"ms"`
}

// OverlayLinePayload requests one overlay line.
type OverlayLinePayload struct {
	Line int `json:"line"`
}

// StatusData reports daemon state.
type StatusData struct {
	Mode           string `json:"mode"`
	ChordTimeoutMs int    `json:"chord_timeout_ms"`
	OverlayEnabled bool   `json:"overlay_enabled"`
	Emitted        uint64 `json:"emitted"`
	EmitFailed     uint64 `json:"emit_failed"`
	Discarded      int    `json:"discarded_entries"`
	TrackedLines   []int  `json:"tracked_lines,omitempty"`
}

// ModeData reports the active mode after a mode command.
type ModeData struct {
	Mode string `json:"mode"`
}

// OverlayData reports overlay state after toggling.
type OverlayData struct {
	Enabled bool `json:"enabled"`
}

// OverlayLineData carries one rendered overlay line.
type OverlayLineData struct {
	Line    int    `json:"line"`
	Braille string `json:"braille"`
}

// NewRequest builds a request with an encoded payload.
func NewRequest(reqType string, payload any) (*Request, error) {
	req := &Request{Type: reqType}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		req.Payload = data
	}
	return req, nil
}

// OK builds a success response with an encoded data value.
func OK(data any) *Response {
	resp := &Response{Success: true}
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			return Fail(ErrCodeInternal, fmt.Sprintf("encode response: %v", err))
		}
		resp.Data = encoded
	}
	return resp
}

// Fail builds an error response.
func Fail(code, message string) *Response {
	return &Response{
		Success: false,
		Error:   &ErrorInfo{Code: code, Message: message},
	}
}

// DecodePayload decodes a request payload into out.
func DecodePayload(req *Request, out any) error {
	if len(req.Payload) == 0 {
		return fmt.Errorf("missing payload")
	}
	if err := json.Unmarshal(req.Payload, out); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

// DecodeData decodes a response data value into out.
func DecodeData(resp *Response, out any) error {
	if len(resp.Data) == 0 {
		return fmt.Errorf("empty response data")
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}
