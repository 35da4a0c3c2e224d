package render

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"sort"

	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
)

// ErrUnknownColormap is returned by LookupColormap for unregistered names.
var ErrUnknownColormap = errors.New("unknown colormap")

// DefaultColormap is the perceptually uniform map used when none is given.
const DefaultColormap = "viridis"

// rampFunc maps t in [0,1] to a colour.
type rampFunc func(t float64) color.RGBA

var colormaps = map[string]rampFunc{
	"viridis":   viridis,
	"plasma":    plasma,
	"inferno":   inferno,
	"magma":     magma,
	"turbo":     turbo,
	"grayscale": grayscale,
	"gray":      grayscale,
	"coolwarm":  morelandRamp(moreland.SmoothBlueRed()),
	"blackbody": morelandRamp(moreland.BlackBody()),
}

// Colormaps returns the registered colormap names, sorted.
func Colormaps() []string {
	names := make([]string, 0, len(colormaps))
	for name := range colormaps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ColorMap is a palette.ColorMap over one of the named ramps. Values are
// normalised to [min,max] and clamped, so out-of-range readings take the
// extreme colours instead of failing.
type ColorMap struct {
	name     string
	ramp     rampFunc
	min, max float64
	alpha    float64
}

var _ palette.ColorMap = (*ColorMap)(nil)

// LookupColormap returns the named colormap scaled to [vmin, vmax].
func LookupColormap(name string, vmin, vmax float64) (*ColorMap, error) {
	ramp, ok := colormaps[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownColormap, name, Colormaps())
	}
	return &ColorMap{name: name, ramp: ramp, min: vmin, max: vmax, alpha: 1}, nil
}

// Name returns the colormap name.
func (c *ColorMap) Name() string { return c.name }

// Normalize maps v to [0,1] against the colormap range, clamping.
func (c *ColorMap) Normalize(v float64) float64 {
	if c.max == c.min {
		return 0
	}
	return clamp((v-c.min)/(c.max-c.min), 0, 1)
}

// At returns the colour for v. NaN yields palette.ErrNaN.
func (c *ColorMap) At(v float64) (color.Color, error) {
	if math.IsNaN(v) {
		return nil, palette.ErrNaN
	}
	col := c.ramp(c.Normalize(v))
	col.A = uint8(math.Round(c.alpha * 255))
	return col, nil
}

func (c *ColorMap) Max() float64       { return c.max }
func (c *ColorMap) SetMax(v float64)   { c.max = v }
func (c *ColorMap) Min() float64       { return c.min }
func (c *ColorMap) SetMin(v float64)   { c.min = v }
func (c *ColorMap) Alpha() float64     { return c.alpha }
func (c *ColorMap) SetAlpha(a float64) { c.alpha = a }

// Palette samples the ramp into n evenly spaced colours.
func (c *ColorMap) Palette(n int) palette.Palette {
	if n < 2 {
		n = 2
	}
	colors := make([]color.Color, n)
	for i := range colors {
		col := c.ramp(float64(i) / float64(n-1))
		col.A = uint8(math.Round(c.alpha * 255))
		colors[i] = col
	}
	return rampPalette(colors)
}

type rampPalette []color.Color

func (p rampPalette) Colors() []color.Color { return p }

// =============================================================================
// Ramps
// =============================================================================

func grayscale(t float64) color.RGBA {
	v := uint8(math.Round(t * 255))
	return color.RGBA{v, v, v, 255}
}

// Nine matplotlib samples per map, at t = 0, 1/8, ..., 1.
var (
	viridisAnchors = anchors{
		{68, 1, 84}, {71, 45, 123}, {59, 82, 139}, {44, 114, 142}, {33, 145, 140},
		{40, 174, 128}, {94, 201, 98}, {173, 220, 48}, {253, 231, 37},
	}
	plasmaAnchors = anchors{
		{13, 8, 135}, {76, 2, 161}, {126, 3, 168}, {169, 35, 149}, {204, 71, 120},
		{229, 107, 93}, {248, 149, 64}, {253, 197, 39}, {240, 249, 33},
	}
	infernoAnchors = anchors{
		{0, 0, 4}, {31, 12, 72}, {85, 15, 109}, {136, 34, 106}, {188, 55, 84},
		{227, 89, 51}, {249, 142, 9}, {248, 201, 50}, {252, 255, 164},
	}
	magmaAnchors = anchors{
		{0, 0, 4}, {28, 16, 68}, {79, 18, 123}, {129, 37, 129}, {183, 55, 121},
		{229, 89, 100}, {251, 135, 97}, {254, 194, 135}, {252, 253, 191},
	}
	turboAnchors = anchors{
		{48, 18, 59}, {68, 107, 219}, {47, 185, 232}, {59, 238, 149}, {164, 252, 60},
		{231, 205, 54}, {247, 125, 32}, {206, 49, 6}, {122, 4, 3},
	}
)

func viridis(t float64) color.RGBA { return viridisAnchors.at(t) }
func plasma(t float64) color.RGBA  { return plasmaAnchors.at(t) }
func inferno(t float64) color.RGBA { return infernoAnchors.at(t) }
func magma(t float64) color.RGBA   { return magmaAnchors.at(t) }
func turbo(t float64) color.RGBA   { return turboAnchors.at(t) }

// anchors is an evenly spaced colour table, interpolated linearly.
type anchors [][3]uint8

func (a anchors) at(t float64) color.RGBA {
	pos := clamp(t, 0, 1) * float64(len(a)-1)
	seg := int(pos)
	if seg > len(a)-2 {
		seg = len(a) - 2
	}
	f := pos - float64(seg)
	lo, hi := a[seg], a[seg+1]
	mix := func(i int) uint8 {
		return uint8(math.Round(float64(lo[i]) + f*(float64(hi[i])-float64(lo[i]))))
	}
	return color.RGBA{R: mix(0), G: mix(1), B: mix(2), A: 255}
}

// morelandRamp adapts a gonum moreland map to the unit range.
func morelandRamp(cm palette.ColorMap) rampFunc {
	cm.SetMax(1)
	cm.SetMin(0)
	return func(t float64) color.RGBA {
		c, err := cm.At(clamp(t, 0, 1))
		if err != nil {
			return color.RGBA{A: 255}
		}
		rgba := color.RGBAModel.Convert(c).(color.RGBA)
		rgba.A = 255
		return rgba
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
