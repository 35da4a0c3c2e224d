//go:build !headless

package viewer

import (
	"image"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
)

// FyneViewer shows images in a fyne window.
type FyneViewer struct{}

// Default returns the viewer compiled into this build.
func Default() Viewer {
	return FyneViewer{}
}

// Name returns the viewer name.
func (FyneViewer) Name() string {
	return "fyne"
}

// IsAvailable returns true when a display is reachable.
func (FyneViewer) IsAvailable() bool {
	return hasDisplay()
}

// Show opens a window sized to the image and runs the UI loop until the
// window is closed.
func (v FyneViewer) Show(title string, img image.Image) error {
	if !v.IsAvailable() {
		return ErrUnavailable
	}

	a := app.New()
	w := a.NewWindow(title)

	c := canvas.NewImageFromImage(img)
	c.FillMode = canvas.ImageFillContain
	c.ScaleMode = canvas.ImageScaleSmooth

	b := img.Bounds()
	size := fyne.NewSize(float32(b.Dx()), float32(b.Dy()))
	c.SetMinSize(fyne.NewSize(size.Width/2, size.Height/2))

	w.SetContent(c)
	w.Resize(size)
	w.ShowAndRun()
	return nil
}
