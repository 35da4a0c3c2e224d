// spectrum-ingest - rf-scanner spectrum captures into ClickHouse
//
// Each CSV capture (.csv, .csv.gz, .csv.zst) becomes one scan: a fresh UUID
// plus one row per frame carrying the full frequency axis and RSSI array.
// Rows are sent as ch-go native blocks with LZ4; the schema is managed
// through clickhouse-go.
//
// Build: CGO_ENABLED=0 go build -ldflags="-s -w" -o build/spectrum-ingest ./cmd/spectrum-ingest

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/KI7MT/ki7mt-spectrogram/internal/common"
	"github.com/KI7MT/ki7mt-spectrogram/internal/sink"
	"github.com/KI7MT/ki7mt-spectrogram/internal/spectrum"
)

// Version can be overridden at build time via -ldflags
var Version = "1.0.0"

// DefaultBatchSize is the number of frames per INSERT.
const DefaultBatchSize = 10_000

// flushFunc sends one batch. Swapped for a recorder in tests.
type flushFunc func(ctx context.Context, batch *sink.FrameBatch) error

// rollbackFunc removes the rows of a scan that failed part way.
type rollbackFunc func(ctx context.Context, scan *sink.Scan) error

// fileResult is the outcome of one capture.
type fileResult struct {
	Frames  int
	Flushed int // Frames already sent to ClickHouse
	Skipped int64
	Scan    *sink.Scan
}

// ingestFile streams one capture into batch, calling flush whenever the
// batch reaches batchSize and once more at the end.
func ingestFile(ctx context.Context, path string, batch *sink.FrameBatch, batchSize int, flush flushFunc, stats *common.Stats) (fileResult, error) {
	rc, err := spectrum.Open(path)
	if err != nil {
		return fileResult{}, err
	}
	defer rc.Close()

	rd, err := spectrum.NewReader(rc)
	if err != nil {
		return fileResult{}, err
	}
	if len(rd.Frequencies()) == 0 {
		return fileResult{}, spectrum.ErrNoFrequencies
	}

	scan := sink.NewScan(filepath.Base(path), rd.Frequencies())
	res := fileResult{Scan: scan}

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		frame, err := rd.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return res, err
		}

		batch.AddFrame(scan, frame)
		res.Frames++
		stats.AddFrames(1)

		if batch.Len() >= batchSize {
			n := batch.Len()
			if err := timedFlush(ctx, batch, flush, stats); err != nil {
				return res, err
			}
			res.Flushed += n
		}
	}

	n := batch.Len()
	if err := timedFlush(ctx, batch, flush, stats); err != nil {
		return res, err
	}
	res.Flushed += n

	res.Skipped = rd.Stats().SkippedShortRows
	if res.Frames == 0 {
		return res, spectrum.ErrNoData
	}
	return res, nil
}

// loadCapture ingests one capture. When it fails after some frames were
// flushed, those rows are deleted so the capture is either fully loaded or
// absent, and -skip-existing stays correct on the next run.
func loadCapture(ctx context.Context, path string, batch *sink.FrameBatch, batchSize int, flush flushFunc, rollback rollbackFunc, stats *common.Stats) (fileResult, error) {
	res, err := ingestFile(ctx, path, batch, batchSize, flush, stats)
	batch.Reset()
	if err == nil || res.Flushed == 0 {
		return res, err
	}

	// Still clean up when the run was cancelled.
	if rerr := rollback(context.WithoutCancel(ctx), res.Scan); rerr != nil {
		return res, fmt.Errorf("%w (removing %d partial frames failed: %v)", err, res.Flushed, rerr)
	}
	log.Warn().
		Str("file", res.Scan.SourceFile).
		Str("scan_id", res.Scan.ID.String()).
		Int("frames", res.Flushed).
		Msg("Removed partial load")
	return res, err
}

func timedFlush(ctx context.Context, batch *sink.FrameBatch, flush flushFunc, stats *common.Stats) error {
	if batch.Len() == 0 {
		return nil
	}
	start := time.Now()
	err := flush(ctx, batch)
	stats.SetFlushLatency(time.Since(start))
	batch.Reset()
	return err
}

// isCapture reports whether name looks like an rf-scanner capture.
func isCapture(name string) bool {
	for _, ext := range []string{".csv", ".csv.gz", ".csv.zst"} {
		if strings.HasSuffix(strings.ToLower(name), ext) {
			return true
		}
	}
	return false
}

// discoverFiles returns args if given, otherwise every capture in dir.
func discoverFiles(args []string, dir string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && isCapture(e.Name()) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func main() {
	cfg := common.DefaultConfig()

	chHost := flag.String("ch-host", cfg.ClickHouseHost, "ClickHouse address")
	chDB := flag.String("ch-db", cfg.ClickHouseDatabase, "ClickHouse database")
	chTable := flag.String("ch-table", cfg.ClickHouseTable, "ClickHouse table")
	batchSize := flag.Int("batch", DefaultBatchSize, "Frames per insert")
	createTable := flag.Bool("create-table", false, "Create the table if it does not exist")
	skipExisting := flag.Bool("skip-existing", false, "Skip captures whose source_file already has rows")
	silent := flag.Bool("silent", false, "Suppress progress output")
	sourceDir := flag.String("source-dir", cfg.SpectrumDataDir(), "Capture directory (used when no files are given)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "spectrum-ingest v%s - RF Spectrum Capture Ingester\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [files...]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Loads rf-scanner CSV captures (.csv, .csv.gz, .csv.zst) into ClickHouse.\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	common.SetupLogging(cfg.LogLevel, os.Stderr)

	fmt.Println("=========================================================")
	fmt.Printf("Spectrum Ingest v%s\n", Version)
	fmt.Println("=========================================================")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Warn().Msg("Shutdown requested...")
		cancel()
	}()

	files, err := discoverFiles(flag.Args(), *sourceDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", *sourceDir).Msg("Cannot read source directory")
	}
	if len(files) == 0 {
		log.Fatal().Msg("No files to process")
	}

	cfg.ClickHouseHost = *chHost
	cfg.ClickHouseDatabase = *chDB
	cfg.ClickHouseTable = *chTable
	tableFQN := cfg.TableFQN()
	fmt.Printf("ClickHouse: %s\n", *chHost)
	fmt.Printf("Table:      %s\n", tableFQN)
	fmt.Printf("Files:      %d\n", len(files))
	fmt.Printf("Batch:      %d frames\n", *batchSize)
	fmt.Println()

	admin, err := sink.OpenAdmin(ctx, *chHost, *chDB, cfg.ClickHouseUser, cfg.ClickHousePassword)
	if err != nil {
		log.Fatal().Err(err).Msg("ClickHouse connection failed")
	}
	defer admin.Close()
	if *createTable {
		if err := admin.EnsureTable(ctx, tableFQN); err != nil {
			log.Fatal().Err(err).Str("table", tableFQN).Msg("Create table failed")
		}
		log.Info().Str("table", tableFQN).Msg("Table ready")
	}

	conn, err := sink.DialNative(ctx, *chHost, *chDB, cfg.ClickHouseUser, cfg.ClickHousePassword)
	if err != nil {
		log.Fatal().Err(err).Msg("ClickHouse connection failed")
	}
	defer conn.Close()

	flush := func(ctx context.Context, batch *sink.FrameBatch) error {
		return sink.FlushBatch(ctx, conn, tableFQN, batch)
	}
	rollback := func(ctx context.Context, scan *sink.Scan) error {
		return admin.DeleteScan(ctx, tableFQN, scan.ID)
	}

	stats := common.NewStats()
	stats.SetSilent(*silent)
	stats.StartReporter()

	startTime := time.Now()
	batch := sink.NewFrameBatch()
	failed := 0

	for _, path := range files {
		if ctx.Err() != nil {
			break
		}
		name := filepath.Base(path)

		if *skipExisting {
			n, err := admin.CountSource(ctx, tableFQN, name)
			if err != nil {
				log.Error().Err(err).Str("file", name).Msg("Existing-row check failed")
				failed++
				continue
			}
			if n > 0 {
				log.Info().Str("file", name).Uint64("rows", n).Msg("Skipping (already loaded)")
				continue
			}
		}

		res, err := loadCapture(ctx, path, batch, *batchSize, flush, rollback, stats)
		if info, statErr := os.Stat(path); statErr == nil {
			stats.AddBytes(uint64(info.Size()))
		}
		if err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			log.Error().Err(err).Str("file", name).Msg("Ingest failed")
			failed++
			continue
		}

		stats.FileDone()
		log.Info().
			Str("file", name).
			Str("scan_id", res.Scan.ID.String()).
			Str("band", res.Scan.Band.Name).
			Int("frames", res.Frames).
			Int64("skipped_rows", res.Skipped).
			Msg("Loaded")
	}

	stats.StopReporter()
	elapsed := time.Since(startTime)

	fmt.Println()
	fmt.Println("=========================================================")
	fmt.Println("Final Statistics")
	fmt.Println("=========================================================")
	fmt.Printf("Files Loaded:  %d of %d\n", stats.Files(), len(files))
	fmt.Printf("Files Failed:  %d\n", failed)
	fmt.Printf("Total Frames:  %d\n", stats.Frames())
	fmt.Printf("Input Size:    %.2f MiB\n", float64(stats.Bytes())/(1024*1024))
	fmt.Printf("Elapsed:       %v\n", elapsed.Round(time.Millisecond))
	if elapsed.Seconds() > 0 {
		fmt.Printf("Rate:          %.0f frames/sec\n", float64(stats.Frames())/elapsed.Seconds())
	}
	fmt.Println("=========================================================")

	if failed > 0 {
		os.Exit(1)
	}
}
