package render

import (
	"bytes"
	"errors"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/KI7MT/ki7mt-spectrogram/internal/spectrum"
)

func sampleSpectrogram() *spectrum.Spectrogram {
	return &spectrum.Spectrogram{
		Source:      "sample.csv",
		Frequencies: []float64{1.0, 2.0, 3.0},
		Timestamps:  []int64{0, 1000},
		Readings:    [][]float64{{-50, -60, -70}, {-55, -65, -75}},
	}
}

func TestColormapClamps(t *testing.T) {
	for _, name := range Colormaps() {
		t.Run(name, func(t *testing.T) {
			cm, err := LookupColormap(name, -80, -30)
			require.NoError(t, err)

			low, err := cm.At(-100)
			require.NoError(t, err)
			atMin, err := cm.At(-80)
			require.NoError(t, err)
			assert.Equal(t, atMin, low)

			high, err := cm.At(0)
			require.NoError(t, err)
			atMax, err := cm.At(-30)
			require.NoError(t, err)
			assert.Equal(t, atMax, high)

			assert.NotEqual(t, atMin, atMax)
		})
	}
}

func TestColormapReferenceColors(t *testing.T) {
	tests := []struct {
		name string
		t    float64
		want color.RGBA
	}{
		{"viridis", 0, color.RGBA{68, 1, 84, 255}},
		{"viridis", 0.5, color.RGBA{33, 145, 140, 255}},
		{"viridis", 1, color.RGBA{253, 231, 37, 255}},
		{"plasma", 0, color.RGBA{13, 8, 135, 255}},
		{"plasma", 0.5, color.RGBA{204, 71, 120, 255}},
		{"plasma", 1, color.RGBA{240, 249, 33, 255}},
		{"inferno", 0, color.RGBA{0, 0, 4, 255}},
		{"inferno", 0.5, color.RGBA{188, 55, 84, 255}},
		{"inferno", 1, color.RGBA{252, 255, 164, 255}},
		{"magma", 0, color.RGBA{0, 0, 4, 255}},
		{"magma", 0.5, color.RGBA{183, 55, 121, 255}},
		{"magma", 1, color.RGBA{252, 253, 191, 255}},
		{"turbo", 0, color.RGBA{48, 18, 59, 255}},
		{"turbo", 0.5, color.RGBA{164, 252, 60, 255}},
		{"turbo", 1, color.RGBA{122, 4, 3, 255}},
		{"grayscale", 0.5, color.RGBA{128, 128, 128, 255}},
	}
	for _, tt := range tests {
		cm, err := LookupColormap(tt.name, 0, 1)
		require.NoError(t, err)
		got, err := cm.At(tt.t)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s at %g", tt.name, tt.t)
	}
}

func TestColormapMoreland(t *testing.T) {
	for _, name := range []string{"coolwarm", "blackbody"} {
		cm, err := LookupColormap(name, 0, 1)
		require.NoError(t, err)
		lo, err := cm.At(0)
		require.NoError(t, err)
		hi, err := cm.At(1)
		require.NoError(t, err)
		assert.NotEqual(t, color.RGBA{A: 255}, hi, name)
		assert.NotEqual(t, lo, hi, name)
	}

	// Diverging: cool blue low, warm red high.
	cm, err := LookupColormap("coolwarm", 0, 1)
	require.NoError(t, err)
	lo, _ := cm.At(0)
	hi, _ := cm.At(1)
	l, h := lo.(color.RGBA), hi.(color.RGBA)
	assert.Greater(t, l.B, l.R)
	assert.Greater(t, h.R, h.B)
}

func TestColormapNormalize(t *testing.T) {
	cm, err := LookupColormap("viridis", -80, -30)
	require.NoError(t, err)

	assert.Equal(t, 0.0, cm.Normalize(-120))
	assert.InDelta(t, 0.5, cm.Normalize(-55), 1e-12)
	assert.Equal(t, 1.0, cm.Normalize(10))
}

func TestColormapPaletteEndpoints(t *testing.T) {
	cm, err := LookupColormap("grayscale", -80, -30)
	require.NoError(t, err)

	colors := cm.Palette(256).Colors()
	require.Len(t, colors, 256)
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, colors[0])
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, colors[255])
}

func TestLookupColormapUnknown(t *testing.T) {
	_, err := LookupColormap("jet-ish", -80, -30)
	assert.ErrorIs(t, err, ErrUnknownColormap)
}

func TestHeatMapClampsOutOfRange(t *testing.T) {
	fig, err := NewFigure(sampleSpectrogram(), DefaultOptions())
	require.NoError(t, err)

	colors := fig.heat.Palette.Colors()
	assert.Equal(t, -80.0, fig.heat.Min)
	assert.Equal(t, -30.0, fig.heat.Max)
	assert.Equal(t, colors[0], fig.heat.Underflow)
	assert.Equal(t, colors[len(colors)-1], fig.heat.Overflow)

	// The heatmap picks in-range colours by rounding (v-Min)*scale, so the
	// bounds themselves land on the first and last palette entries.
	scale := float64(len(colors)-1) / (fig.heat.Max - fig.heat.Min)
	assert.Equal(t, 0, int((-80-fig.heat.Min)*scale+0.5))
	assert.Equal(t, len(colors)-1, int((-30-fig.heat.Min)*scale+0.5))
}

func TestHeatMapPixelsClamp(t *testing.T) {
	// Column 0 is below vmin in frame 0 and at vmin in frame 1; column 1 is
	// above vmax then at vmax.
	spec := &spectrum.Spectrogram{
		Source:      "clamp.csv",
		Frequencies: []float64{100, 200},
		Timestamps:  []int64{0, 1000},
		Readings:    [][]float64{{-100, 0}, {-80, -30}},
	}
	opts := DefaultOptions()
	opts.DPI = 72
	fig, err := NewFigure(spec, opts)
	require.NoError(t, err)

	c := vgimg.NewWith(vgimg.UseWH(opts.Width, opts.Height), vgimg.UseDPI(opts.DPI))
	fig.Draw(c)
	img := c.Image()

	main, _ := fig.layout(draw.New(c))
	da := fig.main.DataCanvas(main)
	trX, trY := fig.main.Transforms(&da)
	scale := float64(opts.DPI) / 72
	height := img.Bounds().Dy()
	pixel := func(col, row int) color.RGBA {
		x := int(float64(trX(fig.heat.GridXYZ.X(col))) * scale)
		y := height - int(float64(trY(fig.heat.GridXYZ.Y(row)))*scale)
		return color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
	}

	colors := fig.heat.Palette.Colors()
	low := color.RGBAModel.Convert(colors[0]).(color.RGBA)
	high := color.RGBAModel.Convert(colors[len(colors)-1]).(color.RGBA)

	assert.Equal(t, pixel(0, 1), pixel(0, 0), "-100 dBm renders like vmin")
	assert.Equal(t, low, pixel(0, 0))
	assert.Equal(t, pixel(1, 1), pixel(1, 0), "0 dBm renders like vmax")
	assert.Equal(t, high, pixel(1, 0))
	assert.NotEqual(t, pixel(0, 0), pixel(1, 0))
}

func TestNewFigureRejectsBadInput(t *testing.T) {
	_, err := NewFigure(&spectrum.Spectrogram{}, DefaultOptions())
	assert.ErrorIs(t, err, spectrum.ErrNoData)

	opts := DefaultOptions()
	opts.VMin, opts.VMax = -30, -80
	_, err = NewFigure(sampleSpectrogram(), opts)
	assert.Error(t, err)

	opts = DefaultOptions()
	opts.Colormap = "nope"
	_, err = NewFigure(sampleSpectrogram(), opts)
	assert.ErrorIs(t, err, ErrUnknownColormap)
}

func TestGridGeometry(t *testing.T) {
	g := NewGrid(sampleSpectrogram())

	c, r := g.Dims()
	assert.Equal(t, 3, c)
	assert.Equal(t, 2, r)
	assert.Equal(t, -65.0, g.Z(1, 1))

	xmin, xmax, ymin, ymax := g.Extent()
	assert.Equal(t, 1.0, xmin)
	assert.InDelta(t, 3.0, xmax, 1e-12)
	assert.Equal(t, 0.0, ymin)
	assert.InDelta(t, 1.0, ymax, 1e-12)

	assert.InDelta(t, 1.0+1.0/3.0, g.X(0), 1e-12)
	assert.InDelta(t, 0.25, g.Y(0), 1e-12)
}

func TestGridSingleFrame(t *testing.T) {
	g := NewGrid(&spectrum.Spectrogram{
		Frequencies: []float64{433.9},
		Timestamps:  []int64{42},
		Readings:    [][]float64{{-70}},
	})
	xmin, xmax, ymin, ymax := g.Extent()
	assert.Less(t, xmin, xmax)
	assert.Less(t, ymin, ymax)
}

func TestFormatFor(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"out.png", "png"},
		{"OUT.PNG", "png"},
		{"dir/out.jpeg", "jpg"},
		{"out.tiff", "tif"},
		{"out.svg", "svg"},
		{"out.pdf", "pdf"},
		{"out.eps", "eps"},
	}
	for _, tt := range tests {
		got, err := FormatFor(tt.path)
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}

	_, err := FormatFor("out.bmp")
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))

	got, err := FormatFor("dir/out")
	require.NoError(t, err)
	assert.Equal(t, DefaultFormat, got)
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, "out.png", OutputPath("out"))
	assert.Equal(t, "dir/out.png", OutputPath("dir/out"))
	assert.Equal(t, "out.svg", OutputPath("out.svg"))
}

func TestSaveWithoutExtension(t *testing.T) {
	fig, err := NewFigure(sampleSpectrogram(), DefaultOptions())
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, fig.Save(filepath.Join(dir, "out")))

	f, err := os.Open(filepath.Join(dir, "out.png"))
	require.NoError(t, err)
	defer f.Close()
	_, err = png.Decode(f)
	assert.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "out"))
	assert.True(t, os.IsNotExist(err))
}

func TestSavePNGAtFixedDPI(t *testing.T) {
	opts := DefaultOptions()
	opts.Title = "RF Spectrogram - sample.csv"
	fig, err := NewFigure(sampleSpectrogram(), opts)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.png")
	require.NoError(t, fig.Save(path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 12*DefaultDPI, img.Bounds().Dx())
	assert.Equal(t, 6*DefaultDPI, img.Bounds().Dy())

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestEncodeSVG(t *testing.T) {
	fig, err := NewFigure(sampleSpectrogram(), DefaultOptions())
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = fig.Encode(&buf, "svg")
	require.NoError(t, err)
	assert.True(t, strings.Contains(buf.String(), "<svg"))
}

func TestImageBounds(t *testing.T) {
	opts := DefaultOptions()
	opts.DPI = 50
	fig, err := NewFigure(sampleSpectrogram(), opts)
	require.NoError(t, err)

	img := fig.Image()
	assert.Equal(t, 600, img.Bounds().Dx())
	assert.Equal(t, 300, img.Bounds().Dy())
}
