// Package spectrum provides the rf-scanner spectrum capture model.
// This package contains the CSV reader, the in-memory spectrogram
// (frequency axis, frame timestamps, RSSI matrix) and band lookup
// shared by the plotting and ingest tools.
//
// CSV layout written by rf-scanner -csv:
//
//	timestamp_ms,433.800000,433.812500,...
//	1717171717000,-92.5,-91.0,...
//
// Frequencies are MHz, readings are dBm.
package spectrum

// =============================================================================
// Frame
// =============================================================================

// Frame is one data row of a capture: a timestamp and one RSSI reading
// per frequency bin.
type Frame struct {
	Timestamp int64     // Milliseconds since Unix epoch
	RSSI      []float64 // dBm, aligned with Spectrogram.Frequencies
	Line      int       // 1-based line in the source file
}

// =============================================================================
// Spectrogram
// =============================================================================

// Spectrogram holds a fully loaded capture. Rows are frames in file order,
// columns are frequency bins in header order.
type Spectrogram struct {
	Source      string      // Path the capture was read from
	Label       string      // Header field 0 (normally "timestamp_ms")
	Frequencies []float64   // MHz, header order
	Timestamps  []int64     // ms since epoch, one per frame
	Readings    [][]float64 // dBm, [frame][bin]
}

// Frames returns the number of data rows.
func (s *Spectrogram) Frames() int {
	return len(s.Timestamps)
}

// Bins returns the number of frequency bins.
func (s *Spectrogram) Bins() int {
	return len(s.Frequencies)
}

// Append adds a frame to the capture.
func (s *Spectrogram) Append(f Frame) {
	s.Timestamps = append(s.Timestamps, f.Timestamp)
	s.Readings = append(s.Readings, f.RSSI)
}

// RelativeTimes returns each frame's offset from the first frame in seconds.
// The first frame is always 0.
func (s *Spectrogram) RelativeTimes() []float64 {
	out := make([]float64, len(s.Timestamps))
	if len(s.Timestamps) == 0 {
		return out
	}
	start := s.Timestamps[0]
	for i, ts := range s.Timestamps {
		out[i] = float64(ts-start) / 1000.0
	}
	return out
}

// Duration returns the offset of the last frame in seconds.
func (s *Spectrogram) Duration() float64 {
	if len(s.Timestamps) == 0 {
		return 0
	}
	return float64(s.Timestamps[len(s.Timestamps)-1]-s.Timestamps[0]) / 1000.0
}

// FrequencyRange returns the first and last header frequencies (MHz).
// These are the horizontal extent of the plot, so header order is kept
// even if the scanner swept downward.
func (s *Spectrogram) FrequencyRange() (first, last float64) {
	if len(s.Frequencies) == 0 {
		return 0, 0
	}
	return s.Frequencies[0], s.Frequencies[len(s.Frequencies)-1]
}

// At returns the reading for frame row and bin col.
func (s *Spectrogram) At(row, col int) float64 {
	return s.Readings[row][col]
}

// Band classifies the centre of the frequency axis.
func (s *Spectrogram) Band() BandInfo {
	first, last := s.FrequencyRange()
	return GetBand((first + last) / 2)
}
