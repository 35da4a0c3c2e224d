//go:build headless

package viewer

import "image"

// HeadlessViewer stands in when the build has no window toolkit.
type HeadlessViewer struct{}

// Default returns the viewer compiled into this build.
func Default() Viewer {
	return HeadlessViewer{}
}

// Name returns the viewer name.
func (HeadlessViewer) Name() string {
	return "headless"
}

// IsAvailable returns false.
func (HeadlessViewer) IsAvailable() bool {
	return false
}

// Show always fails with ErrUnavailable.
func (HeadlessViewer) Show(string, image.Image) error {
	return ErrUnavailable
}
