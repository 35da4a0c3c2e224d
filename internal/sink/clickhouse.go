// Package sink writes parsed spectrum frames to ClickHouse and Parquet.
//
// Both sinks share one row shape: a frame tagged with its scan ID,
// source file and band, carrying the full frequency axis and the RSSI row.
package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/ch-go"
	"github.com/ClickHouse/ch-go/proto"
	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/google/uuid"

	"github.com/KI7MT/ki7mt-spectrogram/internal/spectrum"
)

// =============================================================================
// Scan Context
// =============================================================================

// Scan identifies one ingested capture.
type Scan struct {
	ID          uuid.UUID
	SourceFile  string
	Band        spectrum.BandInfo
	Frequencies []float64
	StartMs     int64 // Timestamp of the first frame
	started     bool
}

// NewScan creates a scan for a capture with the given header axis.
func NewScan(sourceFile string, frequencies []float64) *Scan {
	first, last := 0.0, 0.0
	if len(frequencies) > 0 {
		first, last = frequencies[0], frequencies[len(frequencies)-1]
	}
	return &Scan{
		ID:          uuid.New(),
		SourceFile:  sourceFile,
		Band:        spectrum.GetBand((first + last) / 2),
		Frequencies: frequencies,
	}
}

// Offset returns the frame's offset from the first frame of the scan in
// seconds. The first call fixes the scan start.
func (s *Scan) Offset(ts int64) float64 {
	if !s.started {
		s.StartMs = ts
		s.started = true
	}
	return float64(ts-s.StartMs) / 1000.0
}

// =============================================================================
// ClickHouse Batch (ch-go native columns)
// =============================================================================

// FrameBatch holds column data for native insert.
type FrameBatch struct {
	ScanID      *proto.ColUUID
	SourceFile  *proto.ColStr
	Band        *proto.ColStr
	BandID      *proto.ColInt32
	TimestampMs *proto.ColInt64
	OffsetSec   *proto.ColFloat64
	Frequencies *proto.ColArr[float64]
	RSSI        *proto.ColArr[float32]
}

// NewFrameBatch creates an empty batch.
func NewFrameBatch() *FrameBatch {
	return &FrameBatch{
		ScanID:      new(proto.ColUUID),
		SourceFile:  new(proto.ColStr),
		Band:        new(proto.ColStr),
		BandID:      new(proto.ColInt32),
		TimestampMs: new(proto.ColInt64),
		OffsetSec:   new(proto.ColFloat64),
		Frequencies: proto.NewArray[float64](new(proto.ColFloat64)),
		RSSI:        proto.NewArray[float32](new(proto.ColFloat32)),
	}
}

// Reset clears all columns for reuse.
func (b *FrameBatch) Reset() {
	b.ScanID.Reset()
	b.SourceFile.Reset()
	b.Band.Reset()
	b.BandID.Reset()
	b.TimestampMs.Reset()
	b.OffsetSec.Reset()
	b.Frequencies.Reset()
	b.RSSI.Reset()
}

// Len returns the number of buffered frames.
func (b *FrameBatch) Len() int {
	return b.TimestampMs.Rows()
}

// Input returns the ch-go insert input, in table column order.
func (b *FrameBatch) Input() proto.Input {
	return proto.Input{
		{Name: "scan_id", Data: b.ScanID},
		{Name: "source_file", Data: b.SourceFile},
		{Name: "band", Data: b.Band},
		{Name: "band_id", Data: b.BandID},
		{Name: "timestamp_ms", Data: b.TimestampMs},
		{Name: "offset_sec", Data: b.OffsetSec},
		{Name: "frequencies", Data: b.Frequencies},
		{Name: "rssi", Data: b.RSSI},
	}
}

// AddFrame appends one frame of scan.
func (b *FrameBatch) AddFrame(scan *Scan, f spectrum.Frame) {
	rssi := make([]float32, len(f.RSSI))
	for i, v := range f.RSSI {
		rssi[i] = float32(v)
	}

	b.ScanID.Append(scan.ID)
	b.SourceFile.Append(scan.SourceFile)
	b.Band.Append(scan.Band.Name)
	b.BandID.Append(scan.Band.ID)
	b.TimestampMs.Append(f.Timestamp)
	b.OffsetSec.Append(scan.Offset(f.Timestamp))
	b.Frequencies.Append(scan.Frequencies)
	b.RSSI.Append(rssi)
}

// InsertQuery returns the INSERT statement for tableFQN.
func InsertQuery(tableFQN string) string {
	return fmt.Sprintf("INSERT INTO %s (scan_id, source_file, band, band_id, timestamp_ms, offset_sec, frequencies, rssi) VALUES", tableFQN)
}

// FlushBatch sends the batch over the native protocol. Empty batches are
// skipped.
func FlushBatch(ctx context.Context, conn *ch.Client, tableFQN string, batch *FrameBatch) error {
	if batch.Len() == 0 {
		return nil
	}
	return conn.Do(ctx, ch.Query{
		Body:  InsertQuery(tableFQN),
		Input: batch.Input(),
	})
}

// DialNative opens a ch-go client with LZ4 compression.
func DialNative(ctx context.Context, host, database, user, password string) (*ch.Client, error) {
	return ch.Dial(ctx, ch.Options{
		Address:     host,
		Database:    database,
		User:        user,
		Password:    password,
		Compression: ch.CompressionLZ4,
	})
}

// =============================================================================
// Schema Management (clickhouse-go)
// =============================================================================

// CreateTableDDL returns the MergeTree DDL for the frame table.
func CreateTableDDL(tableFQN string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    scan_id      UUID,
    source_file  String,
    band         LowCardinality(String),
    band_id      Int32,
    timestamp_ms Int64,
    offset_sec   Float64,
    frequencies  Array(Float64),
    rssi         Array(Float32)
) ENGINE = MergeTree
ORDER BY (source_file, timestamp_ms)`, tableFQN)
}

// Admin wraps a clickhouse-go connection for schema work and lookups.
type Admin struct {
	conn driver.Conn
}

// OpenAdmin connects and pings.
func OpenAdmin(ctx context.Context, host, database, user, password string) (*Admin, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{host},
		Auth: clickhouse.Auth{
			Database: database,
			Username: user,
			Password: password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping failed: %w", err)
	}
	return &Admin{conn: conn}, nil
}

// EnsureTable creates the frame table if it does not exist.
func (a *Admin) EnsureTable(ctx context.Context, tableFQN string) error {
	return a.conn.Exec(ctx, CreateTableDDL(tableFQN))
}

// CountSource returns how many frames of sourceFile are already stored.
func (a *Admin) CountSource(ctx context.Context, tableFQN, sourceFile string) (uint64, error) {
	var n uint64
	query := fmt.Sprintf("SELECT count() FROM %s WHERE source_file = ?", tableFQN)
	if err := a.conn.QueryRow(ctx, query, sourceFile).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// DeleteScanQuery returns the mutation that removes one scan's rows.
func DeleteScanQuery(tableFQN string) string {
	return fmt.Sprintf("ALTER TABLE %s DELETE WHERE scan_id = toUUID(?)", tableFQN)
}

// DeleteScan removes every row of one scan. It waits for the delete to
// apply so a following count sees the result.
func (a *Admin) DeleteScan(ctx context.Context, tableFQN string, scanID uuid.UUID) error {
	ctx = clickhouse.Context(ctx, clickhouse.WithSettings(clickhouse.Settings{
		"mutations_sync": 1,
	}))
	return a.conn.Exec(ctx, DeleteScanQuery(tableFQN), scanID.String())
}

// Close closes the connection.
func (a *Admin) Close() error {
	return a.conn.Close()
}
