package oceanq

import "github.com/kailas-cloud/oceanq/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	// ErrInvalidQuestion is returned for empty or oversized questions.
	ErrInvalidQuestion = domain.ErrInvalidQuestion
	// ErrRetrievalUnavailable is returned when the metadata store cannot be queried.
	ErrRetrievalUnavailable = domain.ErrRetrievalUnavailable
)
