// Package archive reads per-profile measurement arrays from parquet and JSON files.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/kailas-cloud/oceanq/internal/domain"
	"github.com/kailas-cloud/oceanq/internal/domain/profile"
)

// Reader resolves measurement handles relative to a root directory.
type Reader struct {
	root string
}

// New creates a reader rooted at root.
func New(root string) *Reader {
	return &Reader{root: filepath.Clean(root)}
}

// ReadVariables loads the requested variables from one archive.
// An empty vars list loads every variable present. Variables the archive lacks are omitted.
func (r *Reader) ReadVariables(
	ctx context.Context,
	handle string,
	vars []domain.Variable,
) (map[domain.Variable]profile.Series, error) {
	if err := ctx.Err(); err != nil {
		return nil, err //nolint:wrapcheck // caller checks context errors directly
	}

	path, err := r.resolve(handle)
	if err != nil {
		return nil, err
	}

	var out map[domain.Variable]profile.Series
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		out, err = readParquet(path)
	case ".json":
		out, err = readJSON(path)
	default:
		return nil, fmt.Errorf("archive %s: unsupported format: %w", handle, domain.ErrArchiveUnreadable)
	}
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("archive %s: %w", handle, domain.ErrArchiveNotFound)
		}
		if domain.IsArchiveMiss(err) {
			return nil, fmt.Errorf("archive %s: %w", handle, err)
		}
		return nil, fmt.Errorf("archive %s: %w: %w", handle, domain.ErrArchiveUnreadable, err)
	}

	return filterVariables(out, vars), nil
}

func (r *Reader) resolve(handle string) (string, error) {
	if handle == "" {
		return "", fmt.Errorf("empty archive handle: %w", domain.ErrArchiveNotFound)
	}
	path := filepath.Join(r.root, filepath.FromSlash(handle))
	rel, err := filepath.Rel(r.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("archive %s escapes root: %w", handle, domain.ErrArchiveUnreadable)
	}
	return path, nil
}

func filterVariables(all map[domain.Variable]profile.Series, vars []domain.Variable) map[domain.Variable]profile.Series {
	if len(vars) == 0 {
		return all
	}
	out := make(map[domain.Variable]profile.Series, len(vars))
	for _, v := range vars {
		if s, ok := all[v]; ok {
			out[v] = s
		}
	}
	return out
}
