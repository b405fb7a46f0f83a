// Package domain holds the core types shared between layers.
package domain

import "errors"

var (
	// ErrClipNotFound signals an unknown clip identifier. Callers must be able
	// to tell a bad identifier apart from a genuinely empty result set.
	ErrClipNotFound = errors.New("clip not found")
	// ErrVectorDimMismatch signals an embedding whose length does not match
	// the configured dimension of its vector space. This is a deployment
	// defect, never a per-row data condition.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrInvalidArgument signals a malformed request parameter (bad mode,
	// negative weight, out-of-range threshold).
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrAllSignalsFailed signals that every contributing sub-search of a
	// fused operation failed with an error (as opposed to matching nothing).
	ErrAllSignalsFailed = errors.New("all search signals failed")
)
