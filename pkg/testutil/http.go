// Package testutil builds requests for handler tests and decodes what the
// handlers write back.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "pixkeys/pkg/domain"
	dErrors "pixkeys/pkg/domain-errors"
	"pixkeys/pkg/requestcontext"
)

// RequestOption adjusts a request built by NewRequest.
type RequestOption func(*http.Request) *http.Request

// AsOwner authenticates the request the way the bearer middleware would.
// Use it when calling a handler method directly.
func AsOwner(ownerID id.OwnerID) RequestOption {
	return func(r *http.Request) *http.Request {
		return r.WithContext(requestcontext.WithOwnerID(r.Context(), ownerID))
	}
}

// WithBearer sets the Authorization header, for requests sent through a router.
func WithBearer(token string) RequestOption {
	return func(r *http.Request) *http.Request {
		r.Header.Set("Authorization", "Bearer "+token)
		return r
	}
}

// NewRequest builds a request. A string or []byte body is sent verbatim, an
// empty string or nil sends no body, anything else is marshalled to JSON.
// Requests with a body are marked application/json.
func NewRequest(t *testing.T, method, path string, body any, opts ...RequestOption) *http.Request {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		if b != "" {
			reader = bytes.NewBufferString(b)
		}
	case []byte:
		reader = bytes.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err, "marshal request body")
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		req = opt(req)
	}
	return req
}

// Serve runs req through h and returns what it wrote.
func Serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// DecodeBody decodes a JSON response body into T.
func DecodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), "decode response: %s", rr.Body.String())
	return out
}

// ErrorBody is the JSON error envelope written by httputil.WriteError.
type ErrorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

// RequireError checks the status and the error code of an error response and
// returns the decoded envelope.
func RequireError(t *testing.T, rr *httptest.ResponseRecorder, status int, code dErrors.Code) ErrorBody {
	t.Helper()
	assert.Equal(t, status, rr.Code, "status")
	body := DecodeBody[ErrorBody](t, rr)
	assert.Equal(t, string(code), body.Error, "error code")
	return body
}
