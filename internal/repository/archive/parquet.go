package archive

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/kailas-cloud/oceanq/internal/domain"
	"github.com/kailas-cloud/oceanq/internal/domain/profile"
)

// Row is the long-format parquet layout: one measurement per row.
type Row struct {
	Variable string  `parquet:"variable"`
	Depth    float64 `parquet:"depth"`
	Value    float64 `parquet:"value"`
	QC       bool    `parquet:"qc"`
}

type rowColumns struct {
	variable, depth, value, qc int
}

// parquetHandle wraps parquet.File + underlying os.File for proper cleanup.
type parquetHandle struct {
	pf   *parquet.File
	file *os.File
}

func (h *parquetHandle) Close() {
	_ = h.file.Close()
}

func openParquet(path string) (*parquetHandle, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat: %w", err)
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	return &parquetHandle{pf: pf, file: f}, nil
}

func resolveRowColumns(pf *parquet.File) (rowColumns, error) {
	cols := rowColumns{variable: -1, depth: -1, value: -1, qc: -1}
	for i, path := range pf.Schema().Columns() {
		if len(path) == 0 {
			continue
		}
		switch strings.ToLower(path[0]) {
		case "variable":
			cols.variable = i
		case "depth":
			cols.depth = i
		case "value":
			cols.value = i
		case "qc":
			cols.qc = i
		}
	}
	if cols.variable < 0 || cols.depth < 0 || cols.value < 0 {
		return cols, fmt.Errorf("missing variable/depth/value columns: %w", domain.ErrArchiveUnreadable)
	}
	return cols, nil
}

func readParquet(path string) (map[domain.Variable]profile.Series, error) {
	h, err := openParquet(path)
	if err != nil {
		return nil, err
	}
	defer h.Close()

	cols, err := resolveRowColumns(h.pf)
	if err != nil {
		return nil, err
	}

	out := make(map[domain.Variable]profile.Series)
	for _, rg := range h.pf.RowGroups() {
		if err := readRowGroup(rg, cols, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func readRowGroup(rg parquet.RowGroup, cols rowColumns, out map[domain.Variable]profile.Series) error {
	rows := parquet.NewRowGroupReader(rg)
	buf := make([]parquet.Row, 512)

	for {
		cnt, readErr := rows.ReadRows(buf)
		for i := 0; i < cnt; i++ {
			appendRow(buf[i], cols, out)
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return nil
			}
			return fmt.Errorf("read rows: %w", readErr)
		}
	}
}

func appendRow(row parquet.Row, cols rowColumns, out map[domain.Variable]profile.Series) {
	var (
		name         string
		depth, value = math.NaN(), math.NaN()
		qc           = true
	)
	for _, v := range row {
		switch v.Column() {
		case cols.variable:
			name = strings.ToLower(v.String())
		case cols.depth:
			depth = numeric(v)
		case cols.value:
			value = numeric(v)
		case cols.qc:
			qc = !v.IsNull() && v.Boolean()
		}
	}

	variable, ok := domain.ParseVariable(name)
	if !ok {
		return
	}
	s := out[variable]
	s.Values = append(s.Values, value)
	s.Depths = append(s.Depths, depth)
	s.QCMask = append(s.QCMask, qc && isFinite(value) && isFinite(depth))
	out[variable] = s
}

func numeric(v parquet.Value) float64 {
	if v.IsNull() {
		return math.NaN()
	}
	switch v.Kind() {
	case parquet.Float:
		return float64(v.Float())
	case parquet.Double:
		return v.Double()
	case parquet.Int32:
		return float64(v.Int32())
	case parquet.Int64:
		return float64(v.Int64())
	default:
		return math.NaN()
	}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// WriteParquet writes rows in the long format. Used for fixtures and seeding.
func WriteParquet(path string, rows []Row) error {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	w := parquet.NewGenericWriter[Row](f)
	if _, err := w.Write(rows); err != nil {
		_ = f.Close()
		return fmt.Errorf("write rows: %w", err)
	}
	if err := w.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("close writer: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
