package myerrors

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindInternal             Kind = "internal"
	KindInvalidInput         Kind = "invalid-input"
	KindAuthentication       Kind = "authentication"
	KindNotAuthorized        Kind = "not-authorized"
	KindData                 Kind = "data"
	KindNotFound             Kind = "not-found"
	KindUnsupportedMediaType Kind = "unsupported-media-type"
	KindGateway              Kind = "gateway"
	KindUnavailable          Kind = "unavailable"
)

type httpErrorCoder interface {
	error
	GetHTTPErrorCode() int
	GetKind() Kind
}

type httpError struct {
	httpCode int
	kind     Kind
	err      error
}

func (e httpError) Error() string {
	return fmt.Sprintf("status: %d, err: %s", e.httpCode, e.err.Error())
}

func (e httpError) GetHTTPErrorCode() int {
	return e.httpCode
}

func (e httpError) GetKind() Kind {
	return e.kind
}

func (e httpError) Unwrap() error {
	return e.err
}

func newError(httpCode int, kind Kind, err error) *httpError {
	if err == nil {
		err = errors.New(string(kind))
	}
	return &httpError{
		httpCode: httpCode,
		kind:     kind,
		err:      err,
	}
}

// NewInvalidInputError signals malformed client input that is rejected before any network or store call.
func NewInvalidInputError(err error) error {
	return newError(http.StatusBadRequest, KindInvalidInput, err)
}

func NewInvalidInputErrorf(format string, args ...any) error {
	return NewInvalidInputError(fmt.Errorf(format, args...))
}

func NewUnsupportedMediaTypeError(err error) error {
	return newError(http.StatusUnsupportedMediaType, KindUnsupportedMediaType, err)
}

func NewNotFoundError(err error) error {
	return newError(http.StatusNotFound, KindNotFound, err)
}

// NewAuthenticationError signals a webhook whose signature or freshness could not be verified.
// The gateway treats the 400 as a failed delivery and retries later.
func NewAuthenticationError(err error) error {
	return newError(http.StatusBadRequest, KindAuthentication, err)
}

func NewNotAuthorizedError(err error) error {
	return newError(http.StatusUnauthorized, KindNotAuthorized, err)
}

// NewDataError signals a correctly signed payload that cannot be turned into a usable event.
func NewDataError(err error) error {
	return newError(http.StatusBadRequest, KindData, err)
}

func NewDataErrorf(format string, args ...any) error {
	return NewDataError(fmt.Errorf(format, args...))
}

func NewInternalError(err error) error {
	return newError(http.StatusInternalServerError, KindInternal, err)
}

func NewGatewayError(err error) error {
	return newError(http.StatusBadGateway, KindGateway, err)
}

func NewUnavailableError(err error) error {
	return newError(http.StatusServiceUnavailable, KindUnavailable, err)
}

func GetHTTPStatus(err error) int {
	var coder httpErrorCoder
	if err != nil && errors.As(err, &coder) {
		return coder.GetHTTPErrorCode()
	}
	return http.StatusInternalServerError
}

func GetKind(err error) Kind {
	var coder httpErrorCoder
	if err != nil && errors.As(err, &coder) {
		return coder.GetKind()
	}
	return KindInternal
}

func IsInvalidInputError(err error) bool {
	return err != nil && GetKind(err) == KindInvalidInput
}

func IsAuthenticationError(err error) bool {
	return err != nil && GetKind(err) == KindAuthentication
}

func IsDataError(err error) bool {
	return err != nil && GetKind(err) == KindData
}

func IsNotFoundError(err error) bool {
	return err != nil && GetKind(err) == KindNotFound
}

func IsGatewayError(err error) bool {
	return err != nil && GetKind(err) == KindGateway
}

func IsUnavailableError(err error) bool {
	return err != nil && GetKind(err) == KindUnavailable
}
