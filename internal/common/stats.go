package common

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Stats holds atomic counters for ingest telemetry.
type Stats struct {
	frames     atomic.Uint64 // Frames parsed
	bytes      atomic.Uint64 // Input bytes (on-disk, compressed if applicable)
	files      atomic.Uint64 // Files completed
	flushNanos atomic.Uint64 // Latency of the most recent flush

	out      io.Writer
	interval time.Duration
	running  atomic.Bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	mu       sync.Mutex // guards reporter state below
	silent   bool

	lastFrames uint64
	lastBytes  uint64
	lastTime   time.Time

	// Moving average window for frames/s
	fpsWindow []float64
	fpsIndex  int
}

// NewStats creates a Stats that reports to stdout every 500ms.
func NewStats() *Stats {
	return &Stats{
		out:       os.Stdout,
		interval:  500 * time.Millisecond,
		fpsWindow: make([]float64, 10), // 10-sample moving average (5 seconds)
	}
}

// SetOutput redirects progress lines.
func (s *Stats) SetOutput(w io.Writer) {
	s.mu.Lock()
	s.out = w
	s.mu.Unlock()
}

// SetSilent enables or disables progress lines.
func (s *Stats) SetSilent(silent bool) {
	s.mu.Lock()
	s.silent = silent
	s.mu.Unlock()
}

// AddFrames increments the frame counter.
func (s *Stats) AddFrames(n uint64) { s.frames.Add(n) }

// AddBytes increments the byte counter.
func (s *Stats) AddBytes(n uint64) { s.bytes.Add(n) }

// FileDone increments the completed file counter.
func (s *Stats) FileDone() { s.files.Add(1) }

// SetFlushLatency records the duration of the latest flush.
func (s *Stats) SetFlushLatency(d time.Duration) { s.flushNanos.Store(uint64(d)) }

// Frames returns the total frames parsed.
func (s *Stats) Frames() uint64 { return s.frames.Load() }

// Bytes returns the total bytes read.
func (s *Stats) Bytes() uint64 { return s.bytes.Load() }

// Files returns the number of completed files.
func (s *Stats) Files() uint64 { return s.files.Load() }

// FlushLatency returns the duration of the latest flush.
func (s *Stats) FlushLatency() time.Duration { return time.Duration(s.flushNanos.Load()) }

// StartReporter starts a background goroutine that prints a progress line
// every interval. Calling it twice is a no-op.
func (s *Stats) StartReporter() {
	if !s.running.CompareAndSwap(false, true) {
		return
	}

	s.mu.Lock()
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.lastTime = time.Now()
	s.lastFrames = s.Frames()
	s.lastBytes = s.Bytes()
	s.mu.Unlock()

	go s.reporterLoop()
}

// StopReporter stops the reporter and waits for it to exit.
func (s *Stats) StopReporter() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	close(s.stopCh)
	<-s.doneCh
}

func (s *Stats) reporterLoop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer close(s.doneCh)

	for {
		select {
		case <-s.stopCh:
			return
		case now := <-ticker.C:
			s.printStatus(now)
		}
	}
}

// printStatus prints one newline-terminated progress line so it interleaves
// cleanly with log output.
func (s *Stats) printStatus(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elapsed := now.Sub(s.lastTime).Seconds()
	if elapsed < 0.001 {
		return
	}

	frames := s.Frames()
	bytes := s.Bytes()
	fps := float64(frames-s.lastFrames) / elapsed
	mibPerSec := float64(bytes-s.lastBytes) / (1024 * 1024) / elapsed

	s.fpsWindow[s.fpsIndex] = fps
	s.fpsIndex = (s.fpsIndex + 1) % len(s.fpsWindow)

	s.lastFrames = frames
	s.lastBytes = bytes
	s.lastTime = now

	if s.silent {
		return
	}

	fmt.Fprintf(s.out, "[Progress] Read: %.2f MiB/s | Parse: %.0f frames/s (avg: %.0f) | Flush: %.2f ms | Total: %d frames\n",
		mibPerSec,
		fps,
		s.smoothedFPS(),
		float64(s.FlushLatency())/float64(time.Millisecond),
		frames,
	)
}

func (s *Stats) smoothedFPS() float64 {
	var sum float64
	var count int
	for _, v := range s.fpsWindow {
		if v > 0 {
			sum += v
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
