package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrTemporary    = errors.New("temporary failure")

	ErrEmbeddingUnavailable    = errors.New("embedding unavailable")
	ErrVectorSearchUnavailable = errors.New("vector search unavailable")
	ErrGenerationUnavailable   = errors.New("generation unavailable")
	ErrGraphUnavailable        = errors.New("graph store unavailable")
	ErrStoreDataUnavailable    = errors.New("store data unavailable")
	ErrQueueUnavailable        = errors.New("queue unavailable")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
