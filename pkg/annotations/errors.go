package annotations

import "github.com/pkg/errors"

var (
	ErrStoreClosed      = errors.New("annotation store is closed")
	ErrUnknownStoreKind = errors.New("unknown annotation store kind")
	ErrInvalidPayload   = errors.New("invalid annotation payload")
)
