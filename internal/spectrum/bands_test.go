package spectrum

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetBand(t *testing.T) {
	tests := []struct {
		freq float64
		want string
	}{
		{315.0, "300MHz"},
		{300.0, "300MHz"},
		{348.0, "300MHz"},
		{433.92, "400MHz"},
		{868.35, "800MHz"},
		{915.0, "800MHz"},
		{370.0, "Unknown"},
		{2.0, "Unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GetBand(tt.freq).Name, "freq %.3f", tt.freq)
	}
}

func TestSpectrogramBand(t *testing.T) {
	s := &Spectrogram{Frequencies: []float64{433.0, 433.5, 434.0}}
	assert.Equal(t, Band400MHz, s.Band().ID)

	empty := &Spectrogram{}
	assert.Equal(t, BandUnknown, empty.Band().ID)
}
