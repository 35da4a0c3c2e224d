// plot-spectrogram - RF spectrogram heatmap from rf-scanner CSV captures
//
// Reads a capture (header row of frequencies in MHz, then timestamped RSSI
// rows in dBm) and draws frequency against time with colour for signal
// strength. With -o the figure is written to an image file (or uploaded to
// s3://bucket/key); without it the figure opens in a window.
//
// Exit codes: 0 success, 1 no way to show output or no data rows, 2 any
// other failure.
//
// Build: go build -o build/plot-spectrogram ./cmd/plot-spectrogram
//        go build -tags headless -o build/plot-spectrogram ./cmd/plot-spectrogram

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/KI7MT/ki7mt-spectrogram/internal/common"
	"github.com/KI7MT/ki7mt-spectrogram/internal/render"
	"github.com/KI7MT/ki7mt-spectrogram/internal/spectrum"
	"github.com/KI7MT/ki7mt-spectrogram/internal/storage"
	"github.com/KI7MT/ki7mt-spectrogram/internal/viewer"
)

// Version can be overridden at build time via -ldflags
var Version = "1.0.0"

const (
	exitOK          = 0
	exitUnavailable = 1 // Output impossible on this system, or nothing to plot
	exitFailure     = 2
)

// newUploader is replaced in tests.
var newUploader = storage.NewS3Uploader

// errUsage means the usage text has already been printed.
var errUsage = errors.New("usage")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, viewer.Default()))
}

// options is the resolved command line.
type options struct {
	csvFile  string
	output   string
	cmap     string
	vmin     float64
	vmax     float64
	dpi      int
	logLevel string
}

func parseArgs(args []string, stderr io.Writer) (*options, error) {
	fs := pflag.NewFlagSet("plot-spectrogram", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringP("output", "o", "", "Output image file or s3://bucket/key (default: show window)")
	fs.String("cmap", render.DefaultColormap, "Colormap: "+strings.Join(render.Colormaps(), ", "))
	fs.Float64("vmin", -80, "Min RSSI for colour scale (dBm)")
	fs.Float64("vmax", -30, "Max RSSI for colour scale (dBm)")
	fs.Int("dpi", render.DefaultDPI, "Raster resolution for png/jpg/tif output")
	fs.String("log-level", "info", "Log level (debug, info, warn, error)")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "plot-spectrogram v%s - RF Spectrogram Plotter\n\n", Version)
		fmt.Fprintf(stderr, "Usage: plot-spectrogram [OPTIONS] csvfile\n\n")
		fmt.Fprintf(stderr, "Output formats: %s\n", strings.Join(render.Formats(), ", "))
		fmt.Fprintf(stderr, "Every option may also be set as SPECTROGRAM_<OPTION> in the environment.\n\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, err
		}
		fmt.Fprintf(stderr, "Error: %v\n\n", err)
		fs.Usage()
		return nil, errUsage
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(stderr, "Error: expected exactly one csvfile argument, got %d\n\n", fs.NArg())
		fs.Usage()
		return nil, errUsage
	}

	v := viper.New()
	v.SetEnvPrefix("SPECTROGRAM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}
	_ = v.BindEnv("log-level", "SPECTROGRAM_LOG_LEVEL", "LOG_LEVEL")

	return &options{
		csvFile:  fs.Arg(0),
		output:   v.GetString("output"),
		cmap:     v.GetString("cmap"),
		vmin:     v.GetFloat64("vmin"),
		vmax:     v.GetFloat64("vmax"),
		dpi:      v.GetInt("dpi"),
		logLevel: v.GetString("log-level"),
	}, nil
}

// checkOutput verifies the figure can be delivered before any file is read.
// It returns the encoder format, or "" for the viewer.
func checkOutput(opts *options, view viewer.Viewer) (string, error) {
	if opts.output == "" {
		if !view.IsAvailable() {
			return "", fmt.Errorf("%w (use -o to write an image file)", viewer.ErrUnavailable)
		}
		return "", nil
	}

	target := opts.output
	if storage.IsS3URL(target) {
		u, err := storage.ParseURL(target)
		if err != nil {
			return "", err
		}
		target = u.Key
	}
	return render.FormatFor(target)
}

func run(args []string, stdout, stderr io.Writer, view viewer.Viewer) int {
	opts, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return exitFailure
	}

	common.SetupLogging(opts.logLevel, stderr)

	if _, err := render.LookupColormap(opts.cmap, opts.vmin, opts.vmax); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	if opts.vmax <= opts.vmin {
		fmt.Fprintf(stderr, "Error: --vmin (%g) must be below --vmax (%g)\n", opts.vmin, opts.vmax)
		return exitFailure
	}

	format, err := checkOutput(opts, view)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if errors.Is(err, storage.ErrInvalidURL) {
			return exitFailure
		}
		return exitUnavailable
	}
	log.Debug().Str("format", format).Str("viewer", view.Name()).Msg("output check passed")

	fmt.Fprintf(stdout, "Reading %s...\n", opts.csvFile)
	spec, err := spectrum.ReadFile(opts.csvFile)
	if err != nil {
		if errors.Is(err, spectrum.ErrNoData) {
			fmt.Fprintln(stderr, "Error: No data rows found in CSV")
			return exitUnavailable
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}

	first, last := spec.FrequencyRange()
	fmt.Fprintf(stdout, "Loaded %d frames, %d frequency bins\n", spec.Frames(), spec.Bins())
	fmt.Fprintf(stdout, "Frequency range: %.3f - %.3f MHz\n", first, last)
	fmt.Fprintf(stdout, "Duration: %.2f seconds\n", spec.Duration())

	band := spec.Band()
	log.Debug().Str("band", band.Name).Str("label", spec.Label).Msg("capture loaded")

	ropts := render.DefaultOptions()
	ropts.Colormap = opts.cmap
	ropts.VMin = opts.vmin
	ropts.VMax = opts.vmax
	ropts.DPI = opts.dpi
	ropts.Title = "RF Spectrogram - " + spec.Source

	fig, err := render.NewFigure(spec, ropts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}

	if opts.output == "" {
		if err := view.Show(ropts.Title, fig.Image()); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			if errors.Is(err, viewer.ErrUnavailable) {
				return exitUnavailable
			}
			return exitFailure
		}
		return exitOK
	}

	if err := save(context.Background(), fig, opts.output); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	saved := opts.output
	if !storage.IsS3URL(saved) {
		saved = render.OutputPath(saved)
	}
	fmt.Fprintf(stdout, "Saved to %s\n", saved)
	return exitOK
}

// save writes fig to a local path, or renders to a scratch file and uploads
// it for s3:// outputs.
func save(ctx context.Context, fig *render.Figure, output string) error {
	if !storage.IsS3URL(output) {
		return fig.Save(output)
	}

	dst, err := storage.ParseURL(output)
	if err != nil {
		return err
	}

	dir, err := os.MkdirTemp("", "plot-spectrogram-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	local := render.OutputPath(filepath.Join(dir, path.Base(dst.Key)))
	if err := fig.Save(local); err != nil {
		return err
	}

	cfg := common.DefaultConfig()
	up, err := newUploader(ctx, storage.S3Config{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	})
	if err != nil {
		return err
	}

	log.Info().Str("bucket", dst.Bucket).Str("key", dst.Key).Msg("uploading")
	return up.Upload(ctx, local, dst)
}
