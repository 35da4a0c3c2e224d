package render

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/vgeps"
	"gonum.org/v1/plot/vg/vgimg"
	"gonum.org/v1/plot/vg/vgpdf"
	"gonum.org/v1/plot/vg/vgsvg"
)

// ErrUnsupportedFormat is returned for output paths with no registered encoder.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// canvasFactory creates an output canvas. Raster formats honour dpi.
type canvasFactory func(w, h vg.Length, dpi int) vg.CanvasWriterTo

func rasterCanvas(w, h vg.Length, dpi int) *vgimg.Canvas {
	return vgimg.NewWith(vgimg.UseWH(w, h), vgimg.UseDPI(dpi))
}

var encoders = map[string]canvasFactory{
	"png": func(w, h vg.Length, dpi int) vg.CanvasWriterTo {
		return vgimg.PngCanvas{Canvas: rasterCanvas(w, h, dpi)}
	},
	"jpg": func(w, h vg.Length, dpi int) vg.CanvasWriterTo {
		return vgimg.JpegCanvas{Canvas: rasterCanvas(w, h, dpi)}
	},
	"tif": func(w, h vg.Length, dpi int) vg.CanvasWriterTo {
		return vgimg.TiffCanvas{Canvas: rasterCanvas(w, h, dpi)}
	},
	"svg": func(w, h vg.Length, _ int) vg.CanvasWriterTo { return vgsvg.New(w, h) },
	"pdf": func(w, h vg.Length, _ int) vg.CanvasWriterTo { return vgpdf.New(w, h) },
	"eps": func(w, h vg.Length, _ int) vg.CanvasWriterTo { return vgeps.New(w, h) },
}

var formatAliases = map[string]string{
	"jpeg": "jpg",
	"tiff": "tif",
}

// Formats returns the registered format names, aliases included, sorted.
func Formats() []string {
	names := make([]string, 0, len(encoders)+len(formatAliases))
	for name := range encoders {
		names = append(names, name)
	}
	for alias := range formatAliases {
		names = append(names, alias)
	}
	sort.Strings(names)
	return names
}

// DefaultFormat is used for output paths without an extension.
const DefaultFormat = "png"

// FormatFor returns the canonical format for an output path, based on its
// extension. A path with no extension gets DefaultFormat.
func FormatFor(path string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext == "" {
		return DefaultFormat, nil
	}
	if alias, ok := formatAliases[ext]; ok {
		ext = alias
	}
	if _, ok := encoders[ext]; !ok {
		return "", fmt.Errorf("%w: .%s (supported: %s)", ErrUnsupportedFormat, ext, strings.Join(Formats(), ", "))
	}
	return ext, nil
}

// OutputPath returns path with "."+DefaultFormat appended when it has no
// extension, which is where Save writes.
func OutputPath(path string) string {
	if filepath.Ext(path) == "" {
		return path + "." + DefaultFormat
	}
	return path
}

// Encode writes the figure to w in format.
func (f *Figure) Encode(w io.Writer, format string) (int64, error) {
	if alias, ok := formatAliases[format]; ok {
		format = alias
	}
	factory, ok := encoders[format]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	c := factory(f.opts.Width, f.opts.Height, f.opts.DPI)
	f.Draw(c)
	return c.WriteTo(w)
}

// Save writes the figure to path in the format implied by its extension.
// The file is written to a temp name and renamed into place. A path with no
// extension is saved as OutputPath(path).
func (f *Figure) Save(path string) error {
	path = OutputPath(path)
	format, err := FormatFor(path)
	if err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create file failed: %w", err)
	}

	_, err = f.Encode(out, format)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("encode %s failed: %w", format, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename failed: %w", err)
	}
	return nil
}
