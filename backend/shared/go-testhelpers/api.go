package testhelpers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/stretchr/testify/require"
)

// BuildRequest prepares a JSON request against BaseURL. A non-empty
// jwtString is sent as a Bearer token.
func (h *TestHelper) BuildRequest(method, path, jwtString string, body any) *http.Request {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.T, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, h.BaseURL+path, reader)
	require.NoError(h.T, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if jwtString != "" {
		req.Header.Set("Authorization", "Bearer "+jwtString)
	}
	return req
}

// DoRequest performs an HTTP request and asserts that no network-level error occurred.
func (h *TestHelper) DoRequest(req *http.Request) *http.Response {
	resp, err := http.DefaultClient.Do(req)
	require.NoError(h.T, err, "HTTP request failed")
	h.T.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// DoJSON sends body and decodes the reply into out when out is non-nil.
func (h *TestHelper) DoJSON(method, path, jwtString string, body, out any) *http.Response {
	resp := h.DoRequest(h.BuildRequest(method, path, jwtString, body))
	if out != nil {
		raw := h.ReadBody(resp)
		require.NoError(h.T, json.Unmarshal([]byte(raw), out), "body: %s", raw)
	}
	return resp
}

// ReadBody reads the response body and returns it as a string for logging or inspection.
func (h *TestHelper) ReadBody(resp *http.Response) string {
	if resp == nil || resp.Body == nil {
		return "<nil response or body>"
	}
	bodyBytes, err := io.ReadAll(resp.Body)
	// Restore the body so it can be read again.
	resp.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
	require.NoError(h.T, err, "Failed to read response body")
	return string(bodyBytes)
}
