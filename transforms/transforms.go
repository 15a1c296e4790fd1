// Package transforms provides per-image transformations applied lazily when a
// batch is assembled: spatial augmentation (random crop with padding, random
// horizontal mirroring) on `image.Image` values, and per-channel normalization
// on the converted image tensors.
package transforms

import (
	"image"
	"image/color"
	"math/rand"

	"github.com/disintegration/imaging"
)

// Transform modifies a single image. Implementations that sample randomness
// (crop offsets, mirroring) take their *rand.Rand at construction, so
// pipelines can be made deterministic in tests.
type Transform interface {
	Apply(img image.Image) image.Image
}

// Compose applies a sequence of transforms in order.
type Compose []Transform

// Apply implements Transform.
func (c Compose) Apply(img image.Image) image.Image {
	for _, t := range c {
		img = t.Apply(img)
	}
	return img
}

var (
	_ Transform = Compose(nil)
	_ Transform = (*RandomCrop)(nil)
	_ Transform = (*RandomHorizontalFlip)(nil)
)

// RandomCrop pads the image with black pixels on every side and then crops a
// uniformly random window of the configured size.
type RandomCrop struct {
	height, width, padding int
	rng                    *rand.Rand
}

// NewRandomCrop creates a RandomCrop of the given output size, padding the
// input with `padding` black pixels on each side before cropping.
func NewRandomCrop(height, width, padding int, rng *rand.Rand) *RandomCrop {
	return &RandomCrop{height: height, width: width, padding: padding, rng: rng}
}

// Apply implements Transform.
func (rc *RandomCrop) Apply(img image.Image) image.Image {
	padded := img
	if rc.padding > 0 {
		size := img.Bounds().Size()
		canvas := imaging.New(size.X+2*rc.padding, size.Y+2*rc.padding, color.NRGBA{A: 0xFF})
		padded = imaging.Paste(canvas, img, image.Pt(rc.padding, rc.padding))
	}
	size := padded.Bounds().Size()
	var x, y int
	if slack := size.X - rc.width; slack > 0 {
		x = rc.rng.Intn(slack + 1)
	}
	if slack := size.Y - rc.height; slack > 0 {
		y = rc.rng.Intn(slack + 1)
	}
	return imaging.Crop(padded, image.Rect(x, y, x+rc.width, y+rc.height))
}

// RandomHorizontalFlip mirrors the image horizontally with probability 1/2.
type RandomHorizontalFlip struct {
	rng *rand.Rand
}

// NewRandomHorizontalFlip creates a RandomHorizontalFlip using rng.
func NewRandomHorizontalFlip(rng *rand.Rand) *RandomHorizontalFlip {
	return &RandomHorizontalFlip{rng: rng}
}

// Apply implements Transform.
func (rf *RandomHorizontalFlip) Apply(img image.Image) image.Image {
	if rf.rng.Intn(2) == 1 {
		return imaging.FlipH(img)
	}
	return img
}
