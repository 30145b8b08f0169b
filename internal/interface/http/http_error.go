package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/drive-value/internal/domain/account"
	"github.com/yanqian/drive-value/internal/domain/auth"
	"github.com/yanqian/drive-value/internal/domain/session"
	"github.com/yanqian/drive-value/internal/domain/valuation"
	apperrors "github.com/yanqian/drive-value/pkg/errors"
)

// HTTPError captures the metadata required to serialize an error response consistently.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// NewHTTPError is a helper to build an HTTPError instance.
func NewHTTPError(status int, code, message string, err error) *HTTPError {
	return &HTTPError{Status: status, Code: code, Message: message, Err: err}
}

// statusByCode maps domain error codes to response statuses.
var statusByCode = map[string]int{
	valuation.CodeValidation:     http.StatusUnprocessableEntity,
	valuation.CodeInvalidInput:   http.StatusBadRequest,
	valuation.CodeNetwork:        http.StatusBadGateway,
	auth.CodeInvalidCredentials:  http.StatusUnauthorized,
	auth.CodeInvalidToken:        http.StatusUnauthorized,
	auth.CodeNotConfigured:       http.StatusNotImplemented,
	auth.CodeOAuthExchange:       http.StatusBadGateway,
	auth.CodeAuth:                http.StatusBadGateway,
	session.CodeCredentialDecode: http.StatusBadRequest,
	session.CodeSessionStorage:   http.StatusServiceUnavailable,
	account.CodeAccount:          http.StatusBadGateway,
	"email_exists":               http.StatusConflict,
	"history_error":              http.StatusServiceUnavailable,
}

// domainError converts an error returned by a domain service.
func domainError(err error) *HTTPError {
	code := apperrors.CodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		return asHTTPError(err)
	}
	return NewHTTPError(status, code, apperrors.MessageOf(err), err)
}

func asHTTPError(err error) *HTTPError {
	if err == nil {
		return nil
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return &HTTPError{
		Status:  http.StatusInternalServerError,
		Code:    "internal_error",
		Message: "something went wrong",
		Err:     err,
	}
}

func abortWithError(c *gin.Context, err *HTTPError) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
