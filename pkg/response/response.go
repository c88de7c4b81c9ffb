package response

import (
	"github.com/socialpulse/backend/pkg/types"
)

type APIResponseCode int

const (
	APIResponseCodeOK           APIResponseCode = 0
	APIResponseCodeBadRequest   APIResponseCode = 40000
	APIResponseCodeUnauthorized APIResponseCode = 40100
	APIResponseCodeNotFound     APIResponseCode = 40400
	APIResponseCodeConflict     APIResponseCode = 40900
	APIResponseCodeError        APIResponseCode = 50000
	APIResponseCodeUpstream     APIResponseCode = 50300
)

var codeToMsg = map[APIResponseCode]string{
	APIResponseCodeOK:           "ok",
	APIResponseCodeBadRequest:   "bad request",
	APIResponseCodeUnauthorized: "unauthorized",
	APIResponseCodeNotFound:     "not found",
	APIResponseCodeConflict:     "conflict",
	APIResponseCodeError:        "unexpected error",
	APIResponseCodeUpstream:     "upstream unavailable, try again",
}

// APIResponse is the generic response envelope used by HTTP APIs.
// Use OKT / ErrorT helpers to construct instances.
type APIResponse[T any] struct {
	Code    APIResponseCode `json:"code"`
	Message string          `json:"message"`
	Data    T               `json:"data"`
}

// OKT returns a successful response with data.
func OKT[T any](data T) *APIResponse[T] {
	return &APIResponse[T]{Code: APIResponseCodeOK, Message: codeToMsg[APIResponseCodeOK], Data: data}
}

// ErrorT returns an error response with code and optional data.
func ErrorT[T any](code APIResponseCode, data T) *APIResponse[T] {
	return &APIResponse[T]{Code: code, Message: codeToMsg[code], Data: data}
}

// CodeForFault maps a typed fault kind to an envelope code so handlers can
// translate service errors mechanically.
func CodeForFault(err error) APIResponseCode {
	switch types.KindOf(err) {
	case types.FaultValidation:
		return APIResponseCodeBadRequest
	case types.FaultNotFound:
		return APIResponseCodeNotFound
	case types.FaultConflict:
		return APIResponseCodeConflict
	case types.FaultUpstreamTransient, types.FaultUpstreamPermanent:
		return APIResponseCodeUpstream
	default:
		return APIResponseCodeError
	}
}
