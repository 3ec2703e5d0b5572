package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestParseResponseError(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		code     string
		httpCode int
		message  string
	}{
		{
			name:     "expired token",
			status:   http.StatusUnauthorized,
			body:     `{"message":"Invalid Token. please login again","statusMsg":"fail"}`,
			code:     "UNAUTHORIZED",
			httpCode: http.StatusUnauthorized,
			message:  "Invalid Token. please login again",
		},
		{
			name:     "validation failure",
			status:   http.StatusBadRequest,
			body:     `{"message":"fail","errors":{"value":"x","msg":"Invalid email","param":"email","location":"body"}}`,
			code:     "INVALID_INPUT",
			httpCode: http.StatusBadRequest,
			message:  "email: Invalid email",
		},
		{
			name:     "account exists",
			status:   http.StatusConflict,
			body:     `{"statusMsg":"fail","message":"Account Already Exists"}`,
			code:     "CONFLICT",
			httpCode: http.StatusConflict,
			message:  "Account Already Exists",
		},
		{
			name:     "missing product",
			status:   http.StatusNotFound,
			body:     `{"statusMsg":"fail","message":"No product for this id 42"}`,
			code:     "NOT_FOUND",
			httpCode: http.StatusNotFound,
			message:  "No product for this id 42",
		},
		{
			name:     "plain text body",
			status:   http.StatusForbidden,
			body:     `nope`,
			code:     "FORBIDDEN",
			httpCode: http.StatusForbidden,
			message:  "nope",
		},
		{
			name:     "empty body",
			status:   http.StatusTeapot,
			body:     ``,
			code:     "UPSTREAM_REJECTED",
			httpCode: http.StatusTeapot,
			message:  "I'm a teapot",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ParseResponseError(response(tt.status, tt.body), "get cart")

			var appErr *apperrors.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.code, appErr.Code)
			assert.Equal(t, tt.httpCode, appErr.Status)
			assert.Equal(t, tt.message, appErr.Message)
		})
	}
}

func TestParseResponseError_ServerErrorIsUpstream(t *testing.T) {
	err := ParseResponseError(response(http.StatusInternalServerError, `{"message":"db down"}`), "list products")

	assert.ErrorIs(t, err, apperrors.ErrUpstream)
	assert.Equal(t, http.StatusBadGateway, apperrors.HTTPStatus(err))
	assert.Contains(t, err.Error(), "db down")
}

func TestParseResponseError_401IsUnauthorized(t *testing.T) {
	err := ParseResponseError(response(http.StatusUnauthorized, `{}`), "get wishlist")
	assert.True(t, apperrors.IsUnauthorized(err))
}

func TestTransportError(t *testing.T) {
	assert.NoError(t, TransportError(nil, "op"))

	assert.Equal(t, context.Canceled, TransportError(context.Canceled, "op"))

	err := TransportError(fmt.Errorf("dial tcp: connection refused"), "get cart")
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavail)
	assert.Equal(t, http.StatusServiceUnavailable, apperrors.HTTPStatus(err))

	err = TransportError(ErrCircuitOpen, "get cart")
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Contains(t, err.Error(), "temporarily disabled")

	upstream := apperrors.Upstream("boom", nil)
	assert.Same(t, upstream, TransportError(upstream, "op"))
}
