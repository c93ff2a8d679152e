// Package vitaldb loads per-case waveform CSV exports from the VitalDB open
// dataset and writes per-case Sample Entropy results.
//
// Each case lives in its own CSV file because the waves of different cases
// have different lengths. A file holds a header row followed by one row per
// sample with four fields: the case name (repeated on every row), then the
// mean, systolic, and diastolic arterial pressure samples.
package vitaldb

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"golang.org/x/sync/errgroup"
)

var (
	ErrNoFiles = errors.New("no files match the glob pattern")
	ErrNoData  = errors.New("no data rows after the header")
)

// Record holds the waveform data of a single VitalDB case.
type Record struct {
	Name string
	SBP  []float64 // systolic blood pressure
	MBP  []float64 // mean blood pressure
	DBP  []float64 // diastolic blood pressure
}

// ReadRecord parses one per-case CSV file. The header row is skipped, the
// case name is taken from the first data row, and every data row must carry
// exactly four fields in the order name, mbp, sbp, dbp. Errors are wrapped
// with the file path.
func ReadRecord(path string) (*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	record, err := readRecord(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return record, nil
}

func readRecord(r io.Reader) (*Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 4

	// Header row.
	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoData
		}
		return nil, err
	}

	record := &Record{}
	rowNum := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		rowNum++

		if record.Name == "" {
			record.Name = row[0]
		}

		mbp, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}
		sbp, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}
		dbp, err := strconv.ParseFloat(row[3], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}

		record.MBP = append(record.MBP, mbp)
		record.SBP = append(record.SBP, sbp)
		record.DBP = append(record.DBP, dbp)
	}

	if len(record.MBP) == 0 {
		return nil, ErrNoData
	}
	return record, nil
}

// ReadGlob loads every case file matching the glob pattern. Files are read
// concurrently, capped at the number of CPUs; records are returned in glob
// order, which is sorted by path. The first failing file fails the whole
// batch, and a pattern matching no files at all is an error.
func ReadGlob(ctx context.Context, pattern string) ([]*Record, error) {
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoFiles, pattern)
	}

	records := make([]*Record, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			record, err := ReadRecord(path)
			if err != nil {
				return err
			}
			records[i] = record
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return records, nil
}

// Entropies holds the per-wave Sample Entropy values computed for one case.
type Entropies struct {
	Name string
	SBP  float64
	MBP  float64
	DBP  float64
}

// WriteEntropies writes one CSV row per case in the column order name, sbp,
// mbp, dbp. No header row is written. Degenerate entropy values render as
// NaN or +Inf.
func WriteEntropies(w io.Writer, rows []Entropies) error {
	writer := csv.NewWriter(w)
	for _, row := range rows {
		fields := []string{
			row.Name,
			strconv.FormatFloat(row.SBP, 'g', -1, 64),
			strconv.FormatFloat(row.MBP, 'g', -1, 64),
			strconv.FormatFloat(row.DBP, 'g', -1, 64),
		}
		if err := writer.Write(fields); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
