package domain

import "errors"

var (
	ErrMissingHeaders   = errors.New("missing_webhook_headers")
	ErrInvalidSignature = errors.New("invalid_signature")
	ErrMalformedPayload = errors.New("malformed_payload")
	ErrStaleTimestamp   = errors.New("stale_timestamp")
	ErrDispatchFailed   = errors.New("dispatch_failed")
)
