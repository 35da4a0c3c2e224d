package sink

import (
	"fmt"
	"io"
	"strings"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"

	"github.com/KI7MT/ki7mt-spectrogram/internal/spectrum"
)

// FrameRow is one spectrum frame as stored in Parquet. Columns match the
// ClickHouse table.
type FrameRow struct {
	ScanID      string    `parquet:"scan_id"`
	SourceFile  string    `parquet:"source_file,dict"`
	Band        string    `parquet:"band,dict"`
	BandID      int32     `parquet:"band_id"`
	TimestampMs int64     `parquet:"timestamp_ms"`
	OffsetSec   float64   `parquet:"offset_sec"`
	Frequencies []float64 `parquet:"frequencies,list"`
	RSSI        []float32 `parquet:"rssi,list"`
}

// NewFrameRow converts a frame of scan into a Parquet row.
func NewFrameRow(scan *Scan, f spectrum.Frame) FrameRow {
	rssi := make([]float32, len(f.RSSI))
	for i, v := range f.RSSI {
		rssi[i] = float32(v)
	}
	return FrameRow{
		ScanID:      scan.ID.String(),
		SourceFile:  scan.SourceFile,
		Band:        scan.Band.Name,
		BandID:      scan.Band.ID,
		TimestampMs: f.Timestamp,
		OffsetSec:   scan.Offset(f.Timestamp),
		Frequencies: scan.Frequencies,
		RSSI:        rssi,
	}
}

// Codec returns the Parquet compression codec for name.
func Codec(name string) (compress.Codec, error) {
	switch strings.ToLower(name) {
	case "zstd", "":
		return &parquet.Zstd, nil
	case "snappy":
		return &parquet.Snappy, nil
	case "gzip":
		return &parquet.Gzip, nil
	case "none", "uncompressed":
		return &parquet.Uncompressed, nil
	}
	return nil, fmt.Errorf("unknown compression %q", name)
}

// ParquetWriter buffers frame rows and writes them to a Parquet stream.
type ParquetWriter struct {
	w       *parquet.GenericWriter[FrameRow]
	buf     []FrameRow
	rows    int
	maxRows int
}

// NewParquetWriter creates a writer that flushes every batchSize rows.
func NewParquetWriter(out io.Writer, codec compress.Codec, batchSize int) *ParquetWriter {
	if batchSize <= 0 {
		batchSize = 1024
	}
	return &ParquetWriter{
		w: parquet.NewGenericWriter[FrameRow](out,
			parquet.Compression(codec),
			parquet.CreatedBy("spectrum-parquet", "", ""),
		),
		buf:     make([]FrameRow, 0, batchSize),
		maxRows: batchSize,
	}
}

// Add appends one row, writing the buffer when it is full.
func (p *ParquetWriter) Add(row FrameRow) error {
	p.buf = append(p.buf, row)
	if len(p.buf) >= p.maxRows {
		return p.flush()
	}
	return nil
}

func (p *ParquetWriter) flush() error {
	if len(p.buf) == 0 {
		return nil
	}
	n, err := p.w.Write(p.buf)
	p.rows += n
	p.buf = p.buf[:0]
	return err
}

// Rows returns the number of rows written so far.
func (p *ParquetWriter) Rows() int {
	return p.rows + len(p.buf)
}

// Close flushes pending rows and writes the footer. It does not close the
// underlying writer.
func (p *ParquetWriter) Close() error {
	if err := p.flush(); err != nil {
		return err
	}
	return p.w.Close()
}
