package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"chatai-router/internal/provider"
	"chatai-router/internal/translator"
)

type requestError struct {
	Status    int
	Message   string
	Type      string
	Code      string
	Retryable bool
}

func (e requestError) Error() string {
	return e.Message
}

func (e requestError) body() translator.ErrorBody {
	return translator.ErrorBody{Error: translator.ErrorDetail{
		Message:   e.Message,
		Type:      e.Type,
		Code:      e.Code,
		Retryable: e.Retryable,
	}}
}

func jsonErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var reqErr requestError
	if errors.As(err, &reqErr) {
		_ = c.JSON(reqErr.Status, reqErr.body())
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg, _ := he.Message.(string)
		if msg == "" {
			msg = http.StatusText(he.Code)
		}
		_ = c.JSON(he.Code, requestError{Status: he.Code, Message: msg, Type: "invalid_request_error"}.body())
		return
	}

	_ = c.JSON(http.StatusInternalServerError, requestError{
		Status:  http.StatusInternalServerError,
		Message: "internal server error",
		Type:    "server_error",
	}.body())
}

func toHTTPError(err error) error {
	var reqErr requestError
	if errors.As(err, &reqErr) {
		return reqErr
	}

	if errors.Is(err, provider.ErrUnknownModel) {
		return requestError{
			Status:  http.StatusNotFound,
			Message: err.Error(),
			Type:    "invalid_request_error",
			Code:    "model_not_found",
		}
	}

	var perr *provider.Error
	if errors.As(err, &perr) {
		return requestError{
			Status:    statusForCode(perr.Code),
			Message:   perr.Message,
			Type:      "provider_error",
			Code:      string(perr.Code),
			Retryable: perr.Retryable,
		}
	}

	return requestError{
		Status:  http.StatusBadGateway,
		Message: "upstream provider error",
		Type:    "upstream_error",
	}
}

func statusForCode(code provider.ErrorCode) int {
	switch code {
	case provider.CodeInvalidRequest, provider.CodeContextTooLong, provider.CodeContentFiltered:
		return http.StatusBadRequest
	case provider.CodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case provider.CodeInsufficientQuota:
		return http.StatusPaymentRequired
	case provider.CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case provider.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
