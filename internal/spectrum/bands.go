package spectrum

// bands.go - CC1111 band lookup for rf-scanner captures
//
// The YARD Stick One (CC1111) only tunes three windows. A capture centred
// outside them was either synthetic or taken with different hardware.

// Band IDs (stored as 'band_id' by the sinks)
const (
	BandUnknown int32 = 0
	Band300MHz  int32 = 1 // 300-348 MHz
	Band400MHz  int32 = 2 // 387-464 MHz
	Band800MHz  int32 = 3 // 779-928 MHz
)

// BandInfo describes one tunable window.
type BandInfo struct {
	ID         int32
	Name       string
	MinFreqMHz float64
	MaxFreqMHz float64
}

var cc1111Bands = []BandInfo{
	{ID: Band300MHz, Name: "300MHz", MinFreqMHz: 300, MaxFreqMHz: 348},
	{ID: Band400MHz, Name: "400MHz", MinFreqMHz: 387, MaxFreqMHz: 464},
	{ID: Band800MHz, Name: "800MHz", MinFreqMHz: 779, MaxFreqMHz: 928},
}

var unknownBand = BandInfo{ID: BandUnknown, Name: "Unknown"}

// GetBand returns the band containing freqMHz (edges inclusive), or the
// Unknown band.
func GetBand(freqMHz float64) BandInfo {
	for _, b := range cc1111Bands {
		if freqMHz >= b.MinFreqMHz && freqMHz <= b.MaxFreqMHz {
			return b
		}
	}
	return unknownBand
}
