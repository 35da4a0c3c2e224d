// Package render draws spectrogram heatmaps with gonum/plot.
//
// A Figure is a heatmap of the RSSI matrix (frequency horizontal, time
// vertical and growing downward) plus a colour bar, laid out on one canvas.
// Figures are written to any registered image format or rasterised for
// the interactive viewer.
package render

import (
	"fmt"
	"image"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/KI7MT/ki7mt-spectrogram/internal/spectrum"
)

// Figure defaults: 12x6 inches at 150 dpi.
const (
	DefaultWidth  = 12 * vg.Inch
	DefaultHeight = 6 * vg.Inch
	DefaultDPI    = 150

	// paletteSize is the number of discrete colours in the heatmap palette.
	paletteSize = 256

	legendWidth = 1.1 * vg.Inch
)

// Options controls how a spectrogram is drawn.
type Options struct {
	Colormap string
	VMin     float64
	VMax     float64
	Title    string
	Width    vg.Length
	Height   vg.Length
	DPI      int
}

// DefaultOptions returns the stock rf-scanner plot settings.
func DefaultOptions() Options {
	return Options{
		Colormap: DefaultColormap,
		VMin:     -80,
		VMax:     -30,
		Width:    DefaultWidth,
		Height:   DefaultHeight,
		DPI:      DefaultDPI,
	}
}

// Figure is a laid-out spectrogram ready to be drawn onto a canvas.
type Figure struct {
	opts   Options
	cmap   *ColorMap
	heat   *plotter.HeatMap
	main   *plot.Plot
	legend *plot.Plot
}

// NewFigure builds the heatmap and colour bar for spec.
func NewFigure(spec *spectrum.Spectrogram, opts Options) (*Figure, error) {
	if spec.Frames() == 0 || spec.Bins() == 0 {
		return nil, spectrum.ErrNoData
	}
	if opts.VMax <= opts.VMin {
		return nil, fmt.Errorf("invalid colour range: vmin %g must be below vmax %g", opts.VMin, opts.VMax)
	}
	if opts.Width == 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height == 0 {
		opts.Height = DefaultHeight
	}
	if opts.DPI == 0 {
		opts.DPI = DefaultDPI
	}

	cmap, err := LookupColormap(opts.Colormap, opts.VMin, opts.VMax)
	if err != nil {
		return nil, err
	}

	grid := NewGrid(spec)
	pal := cmap.Palette(paletteSize)
	colors := pal.Colors()

	hm := plotter.NewHeatMap(grid, pal)
	hm.Min = opts.VMin
	hm.Max = opts.VMax
	hm.Underflow = colors[0]
	hm.Overflow = colors[len(colors)-1]

	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = "Frequency (MHz)"
	p.Y.Label.Text = "Time (seconds)"
	p.Add(hm)

	x0, x1, y0, y1 := grid.Extent()
	p.X.Min, p.X.Max = x0, x1
	p.Y.Min, p.Y.Max = y0, y1
	p.Y.Scale = plot.InvertedScale{Normalizer: plot.LinearScale{}}

	cb := plot.New()
	cb.Add(&plotter.ColorBar{ColorMap: cmap, Vertical: true})
	cb.HideX()
	cb.Y.Label.Text = "RSSI (dBm)"
	cb.Y.Min, cb.Y.Max = opts.VMin, opts.VMax

	return &Figure{opts: opts, cmap: cmap, heat: hm, main: p, legend: cb}, nil
}

// ColorMap returns the figure's colormap.
func (f *Figure) ColorMap() *ColorMap {
	return f.cmap
}

// Draw renders the heatmap and colour bar onto c.
func (f *Figure) Draw(c vg.CanvasSizer) {
	main, legend := f.layout(draw.New(c))
	f.main.Draw(main)
	f.legend.Draw(legend)
}

// layout splits dc into the heatmap area and the colour bar strip. The bar
// is inset vertically so its ends line up with the data area rather than
// the title.
func (f *Figure) layout(dc draw.Canvas) (main, legend draw.Canvas) {
	width := dc.Max.X - dc.Min.X
	pad := vg.Points(12)
	main = draw.Crop(dc, 0, -legendWidth, 0, 0)
	legend = draw.Crop(dc, width-legendWidth+pad, -pad, 3*pad, -3*pad)
	return main, legend
}

// Image rasterises the figure at its DPI.
func (f *Figure) Image() image.Image {
	c := vgimg.NewWith(vgimg.UseWH(f.opts.Width, f.opts.Height), vgimg.UseDPI(f.opts.DPI))
	f.Draw(c)
	return c.Image()
}

// =============================================================================
// Grid
// =============================================================================

// Grid adapts a spectrogram to plotter.GridXYZ. Cells are spread evenly so
// the outer edges land exactly on the first/last frequency and first/last
// frame time, like an image extent.
type Grid struct {
	spec   *spectrum.Spectrogram
	x0, dx float64
	y0, dy float64
}

var _ plotter.GridXYZ = (*Grid)(nil)

// NewGrid computes cell geometry for spec. A zero-width axis (one bin, one
// frame, or identical endpoints) falls back to unit cells.
func NewGrid(spec *spectrum.Spectrogram) *Grid {
	first, last := spec.FrequencyRange()
	times := spec.RelativeTimes()

	g := &Grid{spec: spec, x0: first, y0: times[0]}
	g.dx = (last - first) / float64(spec.Bins())
	if g.dx == 0 {
		g.dx = 1
	}
	g.dy = (times[len(times)-1] - times[0]) / float64(spec.Frames())
	if g.dy == 0 {
		g.dy = 1
	}
	return g
}

// Dims returns columns (bins) and rows (frames).
func (g *Grid) Dims() (c, r int) {
	return g.spec.Bins(), g.spec.Frames()
}

// Z returns the reading for bin c of frame r.
func (g *Grid) Z(c, r int) float64 {
	return g.spec.At(r, c)
}

// X returns the centre frequency of column c.
func (g *Grid) X(c int) float64 {
	return g.x0 + (float64(c)+0.5)*g.dx
}

// Y returns the centre time of row r.
func (g *Grid) Y(r int) float64 {
	return g.y0 + (float64(r)+0.5)*g.dy
}

// Extent returns the outer cell edges.
func (g *Grid) Extent() (xmin, xmax, ymin, ymax float64) {
	c, r := g.Dims()
	xmin, xmax = g.x0, g.x0+float64(c)*g.dx
	ymin, ymax = g.y0, g.y0+float64(r)*g.dy
	if xmin > xmax {
		xmin, xmax = xmax, xmin
	}
	return xmin, xmax, ymin, ymax
}
