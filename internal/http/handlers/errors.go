// Package handlers defines the HTTP-layer error codes used across all API
// endpoints. Codes are lowercase snake_case; generic ones mirror HTTP
// status semantics, domain-specific ones cover business failures a status
// alone cannot convey. Handlers pick the most specific matching code and
// pass it to fail() with the corresponding status and message.
package handlers

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeCreateFailed     = "create_failed"
	ErrCodeListFailed       = "list_failed"
	ErrCodeUpdateFailed     = "update_failed"
	ErrCodeDeleteFailed     = "delete_failed"
	ErrCodeTriggerFailed    = "trigger_failed"
	ErrCodeDeliveryFailed   = "delivery_failed"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)
