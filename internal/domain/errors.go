package domain

import "errors"

var (
	// ErrRetrievalUnavailable signals that the metadata store could not be reached.
	// It is the only pipeline failure that crosses the answer boundary.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
	// ErrArchiveNotFound signals a missing measurement archive.
	ErrArchiveNotFound = errors.New("measurement archive not found")
	// ErrArchiveUnreadable signals a corrupt or undecodable measurement archive.
	ErrArchiveUnreadable = errors.New("measurement archive unreadable")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrInvalidQuestion signals an empty or oversized question.
	ErrInvalidQuestion = errors.New("invalid question")
)

// IsArchiveMiss reports whether err is a recoverable archive condition.
func IsArchiveMiss(err error) bool {
	return errors.Is(err, ErrArchiveNotFound) || errors.Is(err, ErrArchiveUnreadable)
}
