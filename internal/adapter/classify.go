package adapter

import (
	"net/http"

	"github.com/hoststack/hoststack/internal/httpclient"
	ierr "github.com/hoststack/hoststack/internal/errors"
)

// IdempotencyHeader carries the caller's idempotency key on every adapter
// call so backends can dedupe retried requests.
const IdempotencyHeader = "Idempotency-Key"

// ClassifyHTTPError folds a transport error into exactly one of the adapter
// error classes. Raw transport errors never leave an adapter unclassified.
//
//   - network errors, 408, 429, 5xx  -> ErrAdapterRetryable
//   - 409 (and 422 duplicates)       -> ErrAlreadyExists
//   - remaining 4xx                  -> ErrAdapterFatal
func ClassifyHTTPError(op string, err error) error {
	if err == nil {
		return nil
	}

	httpErr, ok := httpclient.IsHTTPError(err)
	if !ok {
		// No response at all: connection refused, timeout, DNS failure.
		return ierr.WithError(err).
			WithHintf("%s failed transiently", op).
			Mark(ierr.ErrAdapterRetryable)
	}

	switch {
	case httpErr.StatusCode == http.StatusConflict:
		return ierr.WithError(err).
			WithHintf("%s target already exists", op).
			Mark(ierr.ErrAlreadyExists)
	case httpErr.StatusCode == http.StatusRequestTimeout,
		httpErr.StatusCode == http.StatusTooManyRequests,
		httpErr.StatusCode >= http.StatusInternalServerError:
		return ierr.WithError(err).
			WithHintf("%s failed transiently", op).
			Mark(ierr.ErrAdapterRetryable)
	default:
		return ierr.WithError(err).
			WithHintf("%s rejected permanently", op).
			Mark(ierr.ErrAdapterFatal)
	}
}
