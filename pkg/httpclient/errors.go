package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// UpstreamErrorResponse is the error body the upstream API sends with non-2xx
// answers. Validation failures carry the offending field under errors.
type UpstreamErrorResponse struct {
	StatusMsg string `json:"statusMsg"`
	Message   string `json:"message"`
	Errors    *struct {
		Msg   string `json:"msg"`
		Param string `json:"param"`
	} `json:"errors"`
}

// Text returns the most specific human-readable message in the body.
func (r UpstreamErrorResponse) Text() string {
	if r.Errors != nil && r.Errors.Msg != "" {
		if r.Errors.Param != "" {
			return fmt.Sprintf("%s: %s", r.Errors.Param, r.Errors.Msg)
		}
		return r.Errors.Msg
	}
	if r.Message != "" && r.Message != "fail" {
		return r.Message
	}
	return r.StatusMsg
}

// ParseResponseError reads the body of a non-2xx HTTP response and translates
// it into an AppError. The response body is fully consumed and closed.
func ParseResponseError(resp *http.Response, operation string) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apperrors.Upstream(fmt.Sprintf("%s: unreadable error response", operation), err)
	}

	message := strings.TrimSpace(string(bodyBytes))
	var body UpstreamErrorResponse
	if json.Unmarshal(bodyBytes, &body) == nil {
		if text := body.Text(); text != "" {
			message = text
		}
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	return mapUpstreamError(resp.StatusCode, message, operation)
}

func mapUpstreamError(status int, message, operation string) error {
	switch {
	case status == http.StatusNotFound:
		return &apperrors.AppError{
			Code:    "NOT_FOUND",
			Message: message,
			Status:  http.StatusNotFound,
			Err:     apperrors.ErrNotFound,
		}
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return apperrors.InvalidInput(message)
	case status == http.StatusConflict:
		return apperrors.Conflict(message)
	case status == http.StatusUnauthorized:
		return apperrors.Unauthorized(message)
	case status == http.StatusForbidden:
		return apperrors.Forbidden(message)
	case status == http.StatusTooManyRequests, status == http.StatusServiceUnavailable:
		return &apperrors.AppError{
			Code:    "SERVICE_UNAVAILABLE",
			Message: fmt.Sprintf("%s: upstream busy", operation),
			Status:  http.StatusServiceUnavailable,
			Err:     apperrors.ErrServiceUnavail,
		}
	case status >= 500:
		return apperrors.Upstream(fmt.Sprintf("%s: upstream error", operation),
			fmt.Errorf("status %d: %s", status, message))
	default:
		return &apperrors.AppError{
			Code:    "UPSTREAM_REJECTED",
			Message: message,
			Status:  status,
			Err:     apperrors.ErrUpstream,
		}
	}
}

// TransportError classifies an error returned by Do before any response was
// received. Cancellation is passed through untouched.
func TransportError(err error, operation string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}

	message := fmt.Sprintf("%s: upstream unreachable", operation)
	if errors.Is(err, ErrCircuitOpen) {
		message = fmt.Sprintf("%s: upstream temporarily disabled", operation)
	}
	return &apperrors.AppError{
		Code:    "SERVICE_UNAVAILABLE",
		Message: message,
		Status:  http.StatusServiceUnavailable,
		Err:     fmt.Errorf("%w: %w", apperrors.ErrServiceUnavail, err),
	}
}
