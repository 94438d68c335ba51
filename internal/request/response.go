package request

import (
	"bytes"
	"encoding/json"
	"net/http"
)

// Result is the envelope every device-management endpoint answers with.
// Code 0 means success; Msg carries the backend's message otherwise.
type Result struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Response is the raw outcome of one HTTP exchange handed to Success and Fail
// handlers. Result is nil when the body is not a JSON envelope.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Result     *Result
}

// OK reports whether the backend accepted the request.
// Bodies without an envelope count as accepted.
func (r *Response) OK() bool {
	return r.Result == nil || r.Result.Code == 0
}

// Message returns the backend message, if any
func (r *Response) Message() string {
	if r.Result == nil {
		return ""
	}
	return r.Result.Msg
}

// DecodeData unmarshals the envelope's data field into v
func (r *Response) DecodeData(v any) error {
	if r.Result == nil {
		return NewParseError("response has no result envelope", nil)
	}
	data := bytes.TrimSpace(r.Result.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return NewParseError("failed to decode response data", err)
	}
	return nil
}

// parseResult decodes body as an envelope. Bodies that are not a JSON object
// with a code field yield nil.
func parseResult(body []byte) *Result {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil
	}
	if _, ok := fields["code"]; !ok {
		return nil
	}

	var result Result
	if err := json.Unmarshal(trimmed, &result); err != nil {
		return nil
	}
	return &result
}
