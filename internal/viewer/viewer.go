// Package viewer shows rendered spectrograms in an interactive window.
//
// Show blocks until the user closes the window; there is no timeout and no
// cancellation. Builds tagged "headless" carry no window toolkit, and the
// viewer reports itself unavailable.
package viewer

import (
	"errors"
	"image"
	"os"
	"runtime"
)

// ErrUnavailable is returned when no interactive display can be opened.
var ErrUnavailable = errors.New("interactive display not available")

// Viewer displays an image and waits for the user to dismiss it.
type Viewer interface {
	// Name returns the viewer name for logging.
	Name() string

	// IsAvailable returns true if Show can open a window on this system.
	IsAvailable() bool

	// Show opens a window titled title and blocks until it is closed.
	Show(title string, img image.Image) error
}

// hasDisplay reports whether a windowing session is reachable. Only X11 and
// Wayland hosts need an explicit display; macOS and Windows always have one.
func hasDisplay() bool {
	switch runtime.GOOS {
	case "linux", "freebsd", "openbsd", "netbsd":
		return os.Getenv("DISPLAY") != "" || os.Getenv("WAYLAND_DISPLAY") != ""
	}
	return true
}
