package domain

import "errors"

var (
	// ErrEmbeddingUnavailable means the embedding service failed; callers
	// degrade to a zero vector.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")

	// ErrInsufficientCandidates means filtering left fewer items than the
	// minimum viable candidate count.
	ErrInsufficientCandidates = errors.New("insufficient candidates")

	// ErrGenerativeCallFailed means the generative model call errored or timed out.
	ErrGenerativeCallFailed = errors.New("generative call failed")

	// ErrResponseParseFailed means no usable recommendation list could be
	// extracted from the model response.
	ErrResponseParseFailed = errors.New("response parse failed")

	// ErrEmptyCatalog means there is nothing to recommend.
	ErrEmptyCatalog = errors.New("no recommendations possible: catalog is empty")

	// ErrItemNotFound is returned by catalog lookups.
	ErrItemNotFound = errors.New("item not found")

	// ErrDimensionMismatch is returned when a vector does not match the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)
