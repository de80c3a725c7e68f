// Package protocol defines the newline-delimited JSON wire format spoken
// over the bridge socket.
//
// Each message is one UTF-8 JSON object terminated by '\n', with no length
// prefix:
//
//	Request:  {"id":"<string>","method":"<string>","params":<any>}
//	Response: {"id":"<string>","result":<any>}   // success
//	       or {"id":"<string>","error":"<string>"} // failure
//
// A response carries either result or error, never both.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Request is a single inbound method invocation.
type Request struct {
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response is the reply to one Request, correlated by ID.
type Response struct {
	ID     string `json:"id"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// NewResult builds a success response.
func NewResult(id string, result any) *Response {
	return &Response{ID: id, Result: result}
}

// NewError builds a failure response.
func NewError(id string, message string) *Response {
	return &Response{ID: id, Error: message}
}

// ParseRequest decodes one wire line into a Request.
func ParseRequest(line []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return nil, fmt.Errorf("invalid request line: %w", err)
	}
	return &req, nil
}

// Encode renders the response as a single wire line including the trailing
// newline.
func (r *Response) Encode() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}
	return append(data, '\n'), nil
}
