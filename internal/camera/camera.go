// Package camera produces the synthetic inspection frames the detection
// pipeline consumes. Frames depict a generic piece of infrastructure (a
// horizontal beam with bolts, two vertical supports, and wear patches)
// over a noisy concrete background, so a real vision model wired in later
// has plausible imagery to look at.
package camera

import (
	"image"
	"image/color"
	"math/rand"
)

const (
	// FrameWidth and FrameHeight are the fixed sensor dimensions. The
	// detector bounding-box ranges are calibrated to this geometry.
	FrameWidth  = 640
	FrameHeight = 480
)

// Source synthesizes camera frames. Noise comes from the injected random
// source, so two sources built from the same seed produce identical
// frames.
type Source struct {
	rng *rand.Rand
}

// NewSource returns a frame source backed by rng. A nil rng disables the
// speckle noise, which keeps frames fully deterministic for tests.
func NewSource(rng *rand.Rand) *Source {
	return &Source{rng: rng}
}

// Capture renders one 640x480 frame of the inspected structure.
func (s *Source) Capture() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, FrameWidth, FrameHeight))

	fillRect(img, 0, 0, FrameWidth, FrameHeight, 120)
	// Concrete slab over the background.
	fillRect(img, 50, 50, 590, 430, 140)

	if s.rng != nil {
		s.speckle(img)
	}

	// Main horizontal beam.
	fillRect(img, 80, 190, 560, 210, 80)
	// Bolt heads along the beam.
	for _, cx := range []int{150, 320, 490} {
		fillCircle(img, cx, 200, 15, 50)
	}
	// Vertical supports.
	fillRect(img, 200, 100, 220, 300, 90)
	fillRect(img, 420, 100, 440, 300, 90)
	// Elliptical wear patches.
	fillEllipse(img, 250, 150, 40, 20, 110)
	fillEllipse(img, 380, 250, 60, 30, 100)

	return img
}

// speckle perturbs each pixel channel by a uniform value in [-30, 30).
func (s *Source) speckle(img *image.RGBA) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):img.PixOffset(b.Max.X, y)]
		for i := 0; i < len(row); i += 4 {
			for c := 0; c < 3; c++ {
				v := int(row[i+c]) + s.rng.Intn(60) - 30
				row[i+c] = clamp8(v)
			}
		}
	}
}

func clamp8(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func fillRect(img *image.RGBA, x0, y0, x1, y1 int, gray uint8) {
	c := color.RGBA{gray, gray, gray, 255}
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

func fillCircle(img *image.RGBA, cx, cy, r int, gray uint8) {
	c := color.RGBA{gray, gray, gray, 255}
	for y := cy - r; y <= cy+r; y++ {
		for x := cx - r; x <= cx+r; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= r*r {
				img.SetRGBA(x, y, c)
			}
		}
	}
}

func fillEllipse(img *image.RGBA, cx, cy, rx, ry int, gray uint8) {
	c := color.RGBA{gray, gray, gray, 255}
	for y := cy - ry; y <= cy+ry; y++ {
		for x := cx - rx; x <= cx+rx; x++ {
			nx := float64(x-cx) / float64(rx)
			ny := float64(y-cy) / float64(ry)
			if nx*nx+ny*ny <= 1 {
				img.SetRGBA(x, y, c)
			}
		}
	}
}
