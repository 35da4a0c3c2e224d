package common

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestDefaultConfigFromEnv(t *testing.T) {
	t.Setenv("CLICKHOUSE_HOST", "ch.lab:9000")
	t.Setenv("CLICKHOUSE_DATABASE", "scans")
	t.Setenv("S3_ENDPOINT", "minio:9000")
	t.Setenv("KI7MT_DATA_DIR", "/data")

	cfg := DefaultConfig()
	assert.Equal(t, "ch.lab:9000", cfg.ClickHouseHost)
	assert.Equal(t, "scans", cfg.ClickHouseDatabase)
	assert.Equal(t, "spectrum_frames", cfg.ClickHouseTable)
	assert.Equal(t, "scans.spectrum_frames", cfg.TableFQN())
	assert.Equal(t, "minio:9000", cfg.S3Endpoint)
	assert.Equal(t, "/data/spectrum", cfg.SpectrumDataDir())
	assert.Equal(t, "us-east-1", cfg.S3Region)
}

func TestSetupLogging(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	SetupLogging("warn", &buf)
	log.Info().Msg("hidden")
	log.Warn().Str("file", "scan.csv").Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "file=scan.csv")

	SetupLogging("bogus", &buf)
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestStatsCounters(t *testing.T) {
	s := NewStats()
	s.AddFrames(10)
	s.AddFrames(5)
	s.AddBytes(2048)
	s.FileDone()
	s.SetFlushLatency(3 * time.Millisecond)

	assert.Equal(t, uint64(15), s.Frames())
	assert.Equal(t, uint64(2048), s.Bytes())
	assert.Equal(t, uint64(1), s.Files())
	assert.Equal(t, 3*time.Millisecond, s.FlushLatency())
}

func TestStatsPrintStatus(t *testing.T) {
	var buf bytes.Buffer
	s := NewStats()
	s.SetOutput(&buf)

	start := time.Now()
	s.lastTime = start
	s.AddFrames(500)
	s.AddBytes(1024 * 1024)
	s.printStatus(start.Add(time.Second))

	line := buf.String()
	assert.True(t, strings.HasPrefix(line, "[Progress]"))
	assert.Contains(t, line, "Read: 1.00 MiB/s")
	assert.Contains(t, line, "Parse: 500 frames/s")
	assert.Contains(t, line, "Total: 500 frames")

	buf.Reset()
	s.SetSilent(true)
	s.printStatus(start.Add(2 * time.Second))
	assert.Empty(t, buf.String())
}

func TestStatsReporterStartStop(t *testing.T) {
	var buf bytes.Buffer
	s := NewStats()
	s.SetOutput(&buf)
	s.interval = 5 * time.Millisecond

	s.StartReporter()
	s.StartReporter()
	s.AddFrames(1)
	time.Sleep(30 * time.Millisecond)
	s.StopReporter()
	s.StopReporter()

	assert.Contains(t, buf.String(), "[Progress]")
}
