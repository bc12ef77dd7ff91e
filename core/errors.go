package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	PaymentErrorBadInput            = "PAYMENT_BAD_INPUT"
	PaymentErrorWebhookInvalid      = "PAYMENT_WEBHOOK_INVALID"
	PaymentErrorGatewayNotFound     = "PAYMENT_GATEWAY_NOT_FOUND"
	PaymentErrorOrderNotFound       = "PAYMENT_ORDER_NOT_FOUND"
	PaymentErrorTransactionNotFound = "PAYMENT_TRANSACTION_NOT_FOUND"
	PaymentErrorProviderUnavailable = "PAYMENT_PROVIDER_UNAVAILABLE"
	PaymentErrorLedgerField         = "PAYMENT_LEDGER_FIELD_REJECTED"
	PaymentErrorConflict            = "PAYMENT_CONFLICT"
	PaymentErrorInternal            = "PAYMENT_INTERNAL_ERROR"
)

func newLedgerFieldError(field string) error {
	return goerrors.New("core: ledger field is not in the permitted set", goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(PaymentErrorLedgerField).
		WithMetadata(map[string]any{"field": field})
}

func newValidationError(message string, metadata map[string]any) error {
	err := goerrors.New(message, goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(PaymentErrorWebhookInvalid)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func newResolutionError(message string, textCode string, metadata map[string]any) error {
	err := goerrors.New(message, goerrors.CategoryNotFound).
		WithCode(http.StatusNotFound).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func paymentErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensurePaymentErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "gateway") && strings.Contains(msg, "not registered"):
		return newPaymentError(err.Error(), goerrors.CategoryNotFound, PaymentErrorGatewayNotFound)
	case strings.Contains(msg, "order") && strings.Contains(msg, "not found"):
		return newPaymentError(err.Error(), goerrors.CategoryNotFound, PaymentErrorOrderNotFound)
	case strings.Contains(msg, "webhook data"), strings.Contains(msg, "payload"):
		return newPaymentError(err.Error(), goerrors.CategoryBadInput, PaymentErrorWebhookInvalid)
	case strings.Contains(msg, "lease"), strings.Contains(msg, "lock"):
		return newPaymentError(err.Error(), goerrors.CategoryConflict, PaymentErrorConflict)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return newPaymentError(err.Error(), goerrors.CategoryBadInput, PaymentErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensurePaymentErrorEnvelope(mapped)
}

func newPaymentError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensurePaymentErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensurePaymentErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = paymentHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultPaymentTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultPaymentTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return PaymentErrorBadInput
	case goerrors.CategoryNotFound:
		return PaymentErrorOrderNotFound
	case goerrors.CategoryConflict:
		return PaymentErrorConflict
	case goerrors.CategoryOperation, goerrors.CategoryExternal:
		return PaymentErrorProviderUnavailable
	default:
		return PaymentErrorInternal
	}
}

func paymentHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryOperation, goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
