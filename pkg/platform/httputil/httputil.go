package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	dErrors "pixkeys/pkg/domain-errors"
)

const maxBodyBytes = 1 << 20

// errorResponse is the JSON error envelope returned by every handler.
type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

var statusByCode = map[dErrors.Code]int{
	dErrors.CodeInvalidTransition:    http.StatusConflict,
	dErrors.CodeVersionConflict:      http.StatusConflict,
	dErrors.CodeConflict:             http.StatusConflict,
	dErrors.CodeDirectoryUnavailable: http.StatusServiceUnavailable,
	dErrors.CodeDirectoryRejected:    http.StatusUnprocessableEntity,
	dErrors.CodeInvalidCode:          http.StatusUnprocessableEntity,
	dErrors.CodeCodeExpired:          http.StatusUnprocessableEntity,
	dErrors.CodeNotFound:             http.StatusNotFound,
	dErrors.CodeValidation:           http.StatusBadRequest,
	dErrors.CodeInvalidInput:         http.StatusBadRequest,
	dErrors.CodeBadRequest:           http.StatusBadRequest,
	dErrors.CodeUnauthorized:         http.StatusUnauthorized,
	dErrors.CodeForbidden:            http.StatusForbidden,
	dErrors.CodeRateLimited:          http.StatusTooManyRequests,
	dErrors.CodeTimeout:              http.StatusGatewayTimeout,
}

// StatusFor maps a domain error to an HTTP status.
func StatusFor(err error) int {
	if status, ok := statusByCode[dErrors.CodeOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// WriteError writes a domain error as JSON. Internal errors never leak their message.
func WriteError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	resp := errorResponse{Error: string(dErrors.CodeOf(err))}

	var de *dErrors.Error
	if status != http.StatusInternalServerError && errors.As(err, &de) {
		resp.ErrorDescription = de.Message
	}
	if dErrors.Retryable(err) {
		w.Header().Set("Retry-After", "1")
	}
	WriteJSON(w, status, resp)
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// DecodeJSON decodes a bounded request body into dst, rejecting unknown fields.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return dErrors.New(dErrors.CodeBadRequest, "request body is empty")
		}
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid JSON body")
	}
	return nil
}
