// Package spectrum provides the rf-scanner spectrum capture model.
// This file contains CSV parsing for rf-scanner captures.
package spectrum

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrNoData is returned when a capture has no parseable data rows.
	ErrNoData = errors.New("no data rows found in CSV")

	// ErrNoFrequencies is returned when the header carries no frequency columns.
	ErrNoFrequencies = errors.New("header has no frequency columns")

	// ErrColumnMismatch is wrapped by ParseError for ragged data rows.
	ErrColumnMismatch = errors.New("reading count does not match header")
)

// ParseError reports a malformed field or row.
type ParseError struct {
	Line   int // 1-based line number
	Column int // 0-based field index, -1 for whole-row errors
	Err    error
}

func (e *ParseError) Error() string {
	if e.Column < 0 {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d, column %d: %v", e.Line, e.Column, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// =============================================================================
// Parse Statistics
// =============================================================================

// ParseStats holds counters for a parse.
type ParseStats struct {
	TotalRowsRead    int64 // Data rows read after the header
	FramesParsed     int64 // Rows turned into frames
	SkippedShortRows int64 // Rows with fewer than MinFields fields
}

// MinFields is the minimum number of fields a data row needs to count
// as a frame (timestamp plus one reading).
const MinFields = 2

// =============================================================================
// Streaming Reader
// =============================================================================

// Reader reads frames from an rf-scanner CSV stream one row at a time.
// The header is consumed by NewReader.
type Reader struct {
	csv         *csv.Reader
	label       string
	frequencies []float64
	stats       ParseStats
}

// NewReader reads the header from r and returns a Reader positioned at the
// first data row. An empty stream yields ErrNoData.
func NewReader(r io.Reader) (*Reader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // Short rows are skipped, not rejected
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrNoData
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	line, _ := cr.FieldPos(0)

	rd := &Reader{csv: cr, label: strings.TrimSpace(header[0])}
	for i, field := range header[1:] {
		f, err := parseFloat64(field)
		if err != nil {
			return nil, &ParseError{Line: line, Column: i + 1, Err: fmt.Errorf("invalid frequency %q: %w", field, err)}
		}
		rd.frequencies = append(rd.frequencies, f)
	}
	return rd, nil
}

// Label returns header field 0.
func (r *Reader) Label() string {
	return r.label
}

// Frequencies returns the header frequency axis in MHz.
func (r *Reader) Frequencies() []float64 {
	return r.frequencies
}

// Stats returns the counters accumulated so far.
func (r *Reader) Stats() ParseStats {
	return r.stats
}

// Next returns the next frame, or io.EOF after the last row. Rows with fewer
// than MinFields fields are skipped silently.
func (r *Reader) Next() (Frame, error) {
	for {
		record, err := r.csv.Read()
		if err == io.EOF {
			return Frame{}, io.EOF
		}
		if err != nil {
			return Frame{}, fmt.Errorf("read row: %w", err)
		}
		r.stats.TotalRowsRead++

		if len(record) < MinFields {
			r.stats.SkippedShortRows++
			continue
		}

		line, _ := r.csv.FieldPos(0)
		frame, err := r.parseRecord(record, line)
		if err != nil {
			return Frame{}, err
		}
		r.stats.FramesParsed++
		return frame, nil
	}
}

func (r *Reader) parseRecord(record []string, line int) (Frame, error) {
	if len(record)-1 != len(r.frequencies) {
		return Frame{}, &ParseError{
			Line:   line,
			Column: -1,
			Err:    fmt.Errorf("%w: got %d, want %d", ErrColumnMismatch, len(record)-1, len(r.frequencies)),
		}
	}

	ts, err := strconv.ParseInt(strings.TrimSpace(record[0]), 10, 64)
	if err != nil {
		return Frame{}, &ParseError{Line: line, Column: 0, Err: fmt.Errorf("invalid timestamp: %w", err)}
	}

	rssi := make([]float64, len(record)-1)
	for i, field := range record[1:] {
		v, err := parseFloat64(field)
		if err != nil {
			return Frame{}, &ParseError{Line: line, Column: i + 1, Err: fmt.Errorf("invalid reading: %w", err)}
		}
		rssi[i] = v
	}

	return Frame{Timestamp: ts, RSSI: rssi, Line: line}, nil
}

// =============================================================================
// Whole-file Parsing
// =============================================================================

// Parse reads a complete capture from r. It returns ErrNoData when no data
// row parsed and ErrNoFrequencies when rows exist but the header has no
// frequency columns.
func Parse(r io.Reader) (*Spectrogram, error) {
	rd, err := NewReader(r)
	if err != nil {
		return nil, err
	}

	spec := &Spectrogram{Label: rd.Label(), Frequencies: rd.Frequencies()}
	for {
		frame, err := rd.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			if len(spec.Frequencies) == 0 && errors.Is(err, ErrColumnMismatch) {
				return nil, ErrNoFrequencies
			}
			return nil, err
		}
		spec.Append(frame)
	}

	if spec.Frames() == 0 {
		return nil, ErrNoData
	}
	return spec, nil
}

// ReadFile opens path (decompressing .gz/.zst) and parses it.
func ReadFile(path string) (*Spectrogram, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	spec, err := Parse(rc)
	if err != nil {
		return nil, err
	}
	spec.Source = path
	return spec, nil
}

func parseFloat64(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
