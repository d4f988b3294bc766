// Package httputil writes JSON responses and coded error bodies for the
// callable transport.
package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	dErrors "ringside/pkg/domain-errors"
)

const maxBodyBytes = 1 << 20

// ErrorResponse is the error body every callable returns.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteJSON writes v with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err onto its kind and HTTP status. Internal errors never
// carry a description.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	resp := ErrorResponse{Error: string(code)}
	if code != dErrors.CodeInternal {
		resp.ErrorDescription = dErrors.MessageOf(err)
	}
	WriteJSON(w, dErrors.HTTPStatus(code), resp)
}

// DecodeJSON reads a single JSON object into dst. An empty body leaves dst at
// its zero value.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return dErrors.New(dErrors.CodeInvalidArgument, "request body must be a JSON object with known fields")
	}
	if dec.More() {
		return dErrors.New(dErrors.CodeInvalidArgument, "request body must contain a single JSON object")
	}
	return nil
}
