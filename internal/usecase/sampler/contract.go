package sampler

import (
	"context"

	"github.com/kailas-cloud/oceanq/internal/domain"
	"github.com/kailas-cloud/oceanq/internal/domain/profile"
)

// Archive reads per-profile measurement arrays. A nil or empty variable list
// requests every variable in the archive.
type Archive interface {
	ReadVariables(ctx context.Context, handle string, vars []domain.Variable) (map[domain.Variable]profile.Series, error)
}
