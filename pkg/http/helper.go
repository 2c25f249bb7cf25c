package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	apperrors "transferly/pkg/errors"
)

// DecodeJSONBody decodes the request body into dst, rejecting unknown fields
// and trailing data.
func DecodeJSONBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.InvalidInput("request body is empty")
		}
		return apperrors.InvalidInput("invalid request payload: " + err.Error())
	}
	if dec.More() {
		return apperrors.InvalidInput("request body must contain a single JSON object")
	}
	return nil
}
