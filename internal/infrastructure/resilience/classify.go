package resilience

import (
	"context"
	"errors"

	"github.com/kirillkom/graphrag-assistant/internal/core/domain"
)

// ClassifyTransient is the shared shape of client-specific classifiers.
// Caller cancellation is neutral; an open breaker or an error transient
// reports is retried; everything else counts against the breaker once.
func ClassifyTransient(err error, transient func(error) bool) ErrorClassification {
	switch {
	case err == nil:
		return ErrorClassification{}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrorClassification{}
	case IsCircuitOpen(err), transient != nil && transient(err):
		return ErrorClassification{Retryable: true, RecordFailure: true}
	default:
		return ErrorClassification{RecordFailure: true}
	}
}

// MarkTemporary tags err with domain.ErrTemporary when classifier would have
// retried it, so callers can map exhausted retries to a 503.
func MarkTemporary(operation string, err error, classifier ErrorClassifier) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if IsCircuitOpen(err) || (classifier != nil && classifier(err).Retryable) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}
