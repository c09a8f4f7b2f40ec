// Package codelet defines the request/response types for codelet IPC.
// Messages are JSON-encoded and sent over a Unix domain socket, one per line.
package codelet

import (
	"strings"
	"unicode/utf8"
)

// Request is sent from the editor to the daemon.
type Request struct {
	// RequestID is assigned by the editor and echoed back in the response.
	RequestID int `json:"request_id"`
	// Text is the full content of the document being edited.
	Text string `json:"text"`
	// CursorPos is the cursor position as a byte offset into Text.
	CursorPos int `json:"cursor_pos"`
	// LanguageID is the editor's language identifier (e.g. "python").
	LanguageID string `json:"language_id"`
	// Path is the document's file path. Empty for unsaved documents.
	Path string `json:"path,omitempty"`
}

// Response is sent from the daemon back to the editor.
//
// A non-empty Completion is inserted at the cursor. An empty Completion
// with no Error means the model had nothing to suggest.
type Response struct {
	// RequestID is echoed from the request.
	RequestID int `json:"request_id"`
	// Completion is the text to insert at the cursor.
	Completion string `json:"completion"`
	// Error is set when the daemon cannot fulfill the request.
	Error *Error `json:"error,omitempty"`
}

// Error describes a daemon-side error returned to the editor.
type Error struct {
	// Code is a machine-readable error identifier (e.g. "unsupported_language", "api_error").
	Code string `json:"code"`
	// Message is a human-readable error description.
	Message string `json:"message"`
}

// Error codes returned in Response.Error.
const (
	CodeUnsupportedLanguage = "unsupported_language"
	CodeInvalidRequest      = "invalid_request"
	CodeAPIError            = "api_error"
	CodeConfigError         = "config_error"
	CodeUnknownAction       = "unknown_action"
)

// ConfigRequest is sent from the editor for configuration operations.
type ConfigRequest struct {
	// Action is the config operation: "get", "reload", "defaults", "default_prompt" or "validate".
	Action string `json:"action"`
}

// ConfigResponse is sent from the daemon in response to a ConfigRequest.
type ConfigResponse struct {
	Config   *Config  `json:"config,omitempty"`
	Prompt   string   `json:"prompt,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
	Error    *Error   `json:"error,omitempty"`
}

// OffsetAt converts a zero-based line and character position into a byte
// offset into text. Characters are counted in runes. Positions past the
// end of a line clamp to the line end; lines past the end of the text
// clamp to len(text).
func OffsetAt(text string, line, character int) int {
	if line < 0 || character < 0 {
		return 0
	}
	off := 0
	for l := 0; l < line; l++ {
		i := strings.IndexByte(text[off:], '\n')
		if i < 0 {
			return len(text)
		}
		off += i + 1
	}
	for c := 0; c < character && off < len(text); c++ {
		if text[off] == '\n' {
			break
		}
		_, size := utf8.DecodeRuneInString(text[off:])
		off += size
	}
	return off
}
