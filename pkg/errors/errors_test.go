package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "with cause",
			err:  &Error{Type: ErrInvalidParams, Message: "bad params", Cause: errors.New("missing name")},
			want: "invalid_params: bad params: missing name",
		},
		{
			name: "without cause",
			err:  &Error{Type: ErrInternal, Message: "boom"},
			want: "internal: boom",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := New(ErrInternal, "msg", cause)
	assert.Equal(t, cause, err.Unwrap())
	assert.Nil(t, New(ErrInternal, "msg", nil).Unwrap())
}

func TestConstructorsSetType(t *testing.T) {
	cause := errors.New("cause")
	tests := []struct {
		name        string
		constructor func(string, error) *Error
		wantType    string
	}{
		{"NewTransportTimeoutError", NewTransportTimeoutError, ErrTransportTimeout},
		{"NewTransportDecodeError", NewTransportDecodeError, ErrTransportDecodeError},
		{"NewTransportChildExitedError", NewTransportChildExitedError, ErrTransportChildExited},
		{"NewTransportHandshakeFailedError", NewTransportHandshakeFailedError, ErrTransportHandshakeFailed},
		{"NewUnknownCapabilityError", NewUnknownCapabilityError, ErrUnknownCapability},
		{"NewUnknownMethodError", NewUnknownMethodError, ErrUnknownMethod},
		{"NewInvalidJSONRPCError", NewInvalidJSONRPCError, ErrInvalidJSONRPC},
		{"NewInvalidParamsError", NewInvalidParamsError, ErrInvalidParams},
		{"NewMissingAPIKeyError", NewMissingAPIKeyError, ErrMissingAPIKey},
		{"NewInvalidAPIKeyError", NewInvalidAPIKeyError, ErrInvalidAPIKey},
		{"NewRateLimitedError", NewRateLimitedError, ErrRateLimited},
		{"NewBodyTooLargeError", NewBodyTooLargeError, ErrBodyTooLarge},
		{"NewNoHealthyInstanceError", NewNoHealthyInstanceError, ErrNoHealthyInstance},
		{"NewInternalError", NewInternalError, ErrInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.constructor("msg", cause)
			assert.Equal(t, tt.wantType, err.Type)
			assert.Equal(t, "msg", err.Message)
			assert.Equal(t, cause, err.Cause)
		})
	}
}

func TestTypeCheckers(t *testing.T) {
	assert.True(t, IsTransportTimeout(NewTransportTimeoutError("x", nil)))
	assert.False(t, IsTransportTimeout(NewInternalError("x", nil)))
	assert.False(t, IsTransportTimeout(errors.New("plain")))
	assert.True(t, IsTransportChildExited(NewTransportChildExitedError("x", nil)))
	assert.True(t, IsTransportHandshakeFailed(NewTransportHandshakeFailedError("x", nil)))
	assert.True(t, IsUnknownCapability(NewUnknownCapabilityError("x", nil)))
	assert.True(t, IsNoHealthyInstance(NewNoHealthyInstanceError("x", nil)))
	assert.True(t, IsInternal(NewInternalError("x", nil)))
}

func TestCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{NewMissingAPIKeyError("x", nil), http.StatusUnauthorized},
		{NewInvalidAPIKeyError("x", nil), http.StatusUnauthorized},
		{NewRateLimitedError("x", nil), http.StatusTooManyRequests},
		{NewBodyTooLargeError("x", nil), http.StatusRequestEntityTooLarge},
		{NewNoHealthyInstanceError("x", nil), http.StatusServiceUnavailable},
		{NewInvalidJSONRPCError("x", nil), http.StatusBadRequest},
		{NewInvalidParamsError("x", nil), http.StatusBadRequest},
		{NewInternalError("x", nil), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Code(tt.err))
	}
}

func TestJSONRPCCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{NewUnknownCapabilityError("x", nil), JSONRPCMethodNotFound},
		{NewUnknownMethodError("x", nil), JSONRPCMethodNotFound},
		{NewInvalidJSONRPCError("x", nil), JSONRPCInvalidRequest},
		{NewInvalidParamsError("x", nil), JSONRPCInvalidParams},
		{NewTransportTimeoutError("x", nil), JSONRPCUpstreamError},
		{NewTransportChildExitedError("x", nil), JSONRPCUpstreamError},
		{NewNoHealthyInstanceError("x", nil), JSONRPCNoHealthy},
		{NewInternalError("x", nil), JSONRPCInternalError},
		{errors.New("plain"), JSONRPCInternalError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, JSONRPCCode(tt.err))
	}
}
