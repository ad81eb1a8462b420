package oceanq

import (
	"github.com/kailas-cloud/oceanq/internal/domain/response"
	"github.com/kailas-cloud/oceanq/internal/domain/stats"
)

// Response is the full answer to one question. It marshals to the same JSON as the HTTP API.
type Response = response.Response

// Aggregate holds the statistics for one variable in a Response.
type Aggregate = stats.AggregateStat
