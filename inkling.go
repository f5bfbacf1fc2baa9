// Package inkling defines the request/response types shared by the
// suggestion controller, the completion transports and the inkling daemon.
// Daemon messages are JSON-encoded and sent over a Unix domain socket, one per line.
package inkling

import "errors"

// ErrAuthenticationMissing is returned at activation when no API key is
// configured for the completion service.
var ErrAuthenticationMissing = errors.New("inkling: no API key configured; run 'inkling key set <key>' or set INKLING_API_KEY")

// Error codes carried in Error.Code.
const (
	CodeNotConfigured  = "not_configured"
	CodeAPIError       = "api_error"
	CodeInvalidRequest = "invalid_request"
	CodeConfigError    = "config_error"
	CodeUnknownAction  = "unknown_action"
)

// Request asks for a continuation of Prompt.
type Request struct {
	// RequestID is the controller's sequence number for this trigger.
	// The daemon echoes it back so the client can drop stale replies.
	RequestID int `json:"request_id"`
	// SessionID identifies the host document. A newer request in the same
	// session supersedes an older one still in flight.
	SessionID string `json:"session_id,omitempty"`
	// Prompt is the text sent to the completion service.
	Prompt string `json:"prompt"`
	// CursorPos is the caret offset (in characters) captured at trigger time.
	// It anchors the busy indicator; it is not sent to the service.
	CursorPos int `json:"cursor_pos"`
}

// Response is sent from the daemon back to the host.
type Response struct {
	// RequestID is echoed from the request.
	RequestID int `json:"request_id"`
	// Suggestion is the text to splice in at the captured cursor position.
	Suggestion string `json:"suggestion"`
	// Error is set when the daemon cannot fulfill the request.
	Error *Error `json:"error,omitempty"`
}

// Error describes a daemon-side error returned to the host.
type Error struct {
	// Code is a machine-readable error identifier (e.g. "not_configured", "api_error").
	Code string `json:"code"`
	// Message is a human-readable error description.
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// ConfigRequest is sent from the host for configuration operations.
type ConfigRequest struct {
	// Action is the config operation: "get", "reload", "defaults",
	// "default_prompt", "validate" or "status".
	Action string `json:"action"`
}

// ConfigResponse is sent from the daemon in response to a ConfigRequest.
type ConfigResponse struct {
	// Config is the current configuration (for "get" and "defaults").
	Config *Config `json:"config,omitempty"`
	// Prompt is the default system prompt (for "default_prompt").
	Prompt string `json:"prompt,omitempty"`
	// Warnings contains configuration warnings (for "validate").
	Warnings []string `json:"warnings,omitempty"`
	// Configured reports whether the daemon holds an API key (for "status"
	// and "reload").
	Configured bool `json:"configured"`
	// Error is set when the operation fails.
	Error *Error `json:"error,omitempty"`
}
