package domain

import "errors"

var (
	// ErrParse signals a malformed remote document or entry.
	ErrParse = errors.New("parse error")
	// ErrTransport signals an unreachable remote source or a non-2xx response.
	ErrTransport = errors.New("transport error")
	// ErrEmbeddingUnavailable signals that no embedding could be computed.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrPaperNotFound signals a missing paper.
	ErrPaperNotFound = errors.New("paper not found")
	// ErrInvalidRequest signals invalid caller input.
	ErrInvalidRequest = errors.New("invalid request")
)
