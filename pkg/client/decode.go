package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	apperrors "transferly/pkg/errors"
)

// checkResponse turns a transport error or non-2xx status into an AppError
// attributed to service.
func checkResponse(service string, resp *Response, err error) error {
	if err != nil {
		return apperrors.Upstream(service, err)
	}
	if resp.IsSuccess() {
		return nil
	}
	if resp.StatusCode == http.StatusNotFound {
		return apperrors.NotFound(service + " resource")
	}
	return apperrors.Upstream(service, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, GetErrorMessage(resp)))
}

// decodeData unmarshals the payload of resp into T. Payloads wrapped as
// {"data": ...} and bare payloads are both accepted.
func decodeData[T any](service string, resp *Response) (*T, error) {
	payload := resp.Body

	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &wrapper); err == nil && len(wrapper.Data) > 0 && string(wrapper.Data) != "null" {
			payload = wrapper.Data
		}
	}

	var out T
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, apperrors.Upstream(service, fmt.Errorf("could not decode response:\n%s\n%w", resp.ToString(), err))
	}
	return &out, nil
}
