// Package client is a Go client for the scriptdex HTTP API, plus the JSON envelope the
// client commands print.
package client

import (
	"encoding/json"
	"io"
	"time"
)

// Response is the envelope every client command prints. Data and Error are mutually
// exclusive.
type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *Error      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Error is the error half of Response.
type Error struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// WriteSuccess writes a success envelope around data.
func WriteSuccess(w io.Writer, data interface{}) error {
	return writeResponse(w, Response{Success: true, Data: data, Timestamp: time.Now()})
}

// WriteError writes an error envelope.
func WriteError(w io.Writer, code, message string, details interface{}) error {
	return writeResponse(w, Response{
		Success:   false,
		Error:     &Error{Code: code, Message: message, Details: details},
		Timestamp: time.Now(),
	})
}

func writeResponse(w io.Writer, r Response) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
