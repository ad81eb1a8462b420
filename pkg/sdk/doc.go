// Package oceanq embeds the oceanographic question-answering pipeline in a Go
// program without running the HTTP service.
//
// The client reads profile metadata from PostgreSQL or SQLite and measurement
// arrays from an archive directory. Answers are cached in memory by default.
//
//	client, err := oceanq.New(ctx,
//	    oceanq.WithPostgres("postgres://argo@localhost/argo"),
//	    oceanq.WithArchiveRoot("/data/argo"),
//	    oceanq.WithRedisCache("localhost:6379", ""),
//	)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	resp, err := client.Ask(ctx, "average salinity in the Arabian Sea in 2019")
//
// Similarity retrieval is enabled by passing an Embedder with WithEmbedder.
// Without one, answers rely on the structured filters alone.
package oceanq
