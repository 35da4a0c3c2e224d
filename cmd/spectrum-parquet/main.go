// spectrum-parquet - Convert rf-scanner CSV captures to Parquet
//
// Writes one row per frame with the same columns as the ClickHouse table,
// so converted captures can be loaded with clickhouse-client or read by any
// Parquet tool.
//
// Usage: spectrum-parquet [-o out.parquet] [-compression zstd|snappy|gzip|none] file
//
// Build: CGO_ENABLED=0 go build -ldflags="-s -w" -o build/spectrum-parquet ./cmd/spectrum-parquet

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/KI7MT/ki7mt-spectrogram/internal/common"
	"github.com/KI7MT/ki7mt-spectrogram/internal/sink"
	"github.com/KI7MT/ki7mt-spectrogram/internal/spectrum"
)

// Version can be overridden at build time via -ldflags
var Version = "1.0.0"

// RowGroupBuffer is the number of rows buffered before each write.
const RowGroupBuffer = 4096

// defaultOutput derives "scan.parquet" from "scan.csv.gz".
func defaultOutput(input string) string {
	return spectrum.TrimExt(input) + ".parquet"
}

// convert streams input into a Parquet file at output and returns the row
// count. The file is written to output.tmp and renamed on success.
func convert(input, output, compression string) (int, error) {
	codec, err := sink.Codec(compression)
	if err != nil {
		return 0, err
	}

	rc, err := spectrum.Open(input)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	rd, err := spectrum.NewReader(rc)
	if err != nil {
		return 0, err
	}
	if len(rd.Frequencies()) == 0 {
		return 0, spectrum.ErrNoFrequencies
	}

	tmp := output + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp)

	scan := sink.NewScan(filepath.Base(input), rd.Frequencies())
	w := sink.NewParquetWriter(f, codec, RowGroupBuffer)

	for {
		frame, err := rd.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			f.Close()
			return 0, err
		}
		if err := w.Add(sink.NewFrameRow(scan, frame)); err != nil {
			f.Close()
			return 0, err
		}
	}

	if w.Rows() == 0 {
		f.Close()
		return 0, spectrum.ErrNoData
	}
	if err := w.Close(); err != nil {
		f.Close()
		return 0, err
	}
	if err := f.Close(); err != nil {
		return 0, err
	}
	if err := os.Rename(tmp, output); err != nil {
		return 0, err
	}

	log.Debug().
		Str("scan_id", scan.ID.String()).
		Str("band", scan.Band.Name).
		Int64("skipped_rows", rd.Stats().SkippedShortRows).
		Msg("converted")
	return w.Rows(), nil
}

func main() {
	output := flag.String("o", "", "Output file (default: input name with .parquet)")
	compression := flag.String("compression", "zstd", "Compression: zstd, snappy, gzip, none")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "spectrum-parquet v%s - RF Spectrum CSV to Parquet\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: %s [-o out.parquet] [-compression zstd|snappy|gzip|none] file\n\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	common.SetupLogging(common.DefaultConfig().LogLevel, os.Stderr)

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	input := flag.Arg(0)
	out := *output
	if out == "" {
		out = defaultOutput(input)
	}

	start := time.Now()
	rows, err := convert(input, out, *compression)
	if err != nil {
		log.Error().Err(err).Str("file", input).Msg("Conversion failed")
		os.Exit(1)
	}

	info, _ := os.Stat(out)
	var size int64
	if info != nil {
		size = info.Size()
	}

	fmt.Printf("Wrote %d frames to %s (%.2f KiB, %s) in %v\n",
		rows, out, float64(size)/1024, *compression, time.Since(start).Round(time.Millisecond))
}
