// Package tabular reads uploaded CSV and Excel tables into profiled
// datasets and serves them to the resolver as a data provider.
package tabular

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mcspec/domain/dataset"
	"mcspec/internal"
	"mcspec/ports"

	"github.com/xuri/excelize/v2"
)

// DefaultSheet is read from workbooks that have it; otherwise the first sheet is used.
const DefaultSheet = "Sheet1"

// Reader handles reading Excel and CSV files
type Reader struct {
	profiler *Profiler
	logger   *internal.Logger
}

var _ ports.ReaderPort = (*Reader)(nil)

// NewReader creates a reader that profiles every table it reads
func NewReader(profiler *Profiler) *Reader {
	if profiler == nil {
		profiler = NewProfiler(0)
	}
	return &Reader{profiler: profiler, logger: internal.DefaultLogger.With("reader")}
}

// Read reads the file at path. The format follows the extension.
func (r *Reader) Read(ctx context.Context, path string) (*dataset.Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("data file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to open data file: %w", err)
	}
	defer file.Close()
	return r.ReadFrom(ctx, filepath.Base(path), file)
}

// ReadFrom reads an upload stream named filename
func (r *Reader) ReadFrom(ctx context.Context, filename string, src io.Reader) (*dataset.Dataset, error) {
	start := time.Now()

	var rows [][]string
	var err error
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".csv":
		rows, err = readCSV(src)
	case ".xlsx", ".xlsm":
		rows, err = readExcel(src)
	default:
		return nil, fmt.Errorf("unsupported file type %q: expected .csv or .xlsx", ext)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%s must have at least a header row and one data row", filename)
	}

	ds := dataset.New(filename, rows[0], rows[1:])
	if len(ds.Columns) == 0 {
		return nil, fmt.Errorf("%s has no named columns", filename)
	}
	if err := r.profiler.Profile(ctx, ds); err != nil {
		return nil, fmt.Errorf("failed to profile %s: %w", filename, err)
	}
	r.logger.Info("read %s in %s (%d columns, %d rows)", filename, time.Since(start).Round(time.Millisecond), len(ds.Columns), ds.Rows)
	return ds, nil
}

func readCSV(src io.Reader) ([][]string, error) {
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return rows, nil
}

func readExcel(src io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := DefaultSheet
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	return rows, nil
}
