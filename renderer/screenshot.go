package renderer

import (
	"fmt"
	"image"
	"image/png"
	"os"

	"golang.org/x/image/draw"

	"kotor-render/core"
)

// ScreenshotSize is the edge of the square save game thumbnail.
const ScreenshotSize = 256

// ImageFromPixels wraps bottom-up RGBA rows, as read back from a
// framebuffer, in a top-down image.
func ImageFromPixels(width, height int, pixels []byte) (*image.RGBA, error) {
	if width <= 0 || height <= 0 || len(pixels) != width*height*4 {
		return nil, fmt.Errorf("%dx%d image from %d bytes: %w", width, height, len(pixels), core.ErrInvalidArgument)
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	stride := width * 4
	for y := 0; y < height; y++ {
		src := pixels[(height-1-y)*stride : (height-y)*stride]
		copy(img.Pix[y*img.Stride:y*img.Stride+stride], src)
	}
	return img, nil
}

// Thumbnail scales img to size×size.
func Thumbnail(img image.Image, size int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// Screenshot reads back the last presented frame as a thumbnail.
func (p *WorldPipeline) Screenshot() (*image.RGBA, error) {
	if !p.initialised {
		return nil, fmt.Errorf("screenshot before init: %w", core.ErrLogic)
	}
	w, h, pixels, err := p.backend.ReadPixels()
	if err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	img, err := ImageFromPixels(w, h, pixels)
	if err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return Thumbnail(img, ScreenshotSize), nil
}

// SavePNG writes img to path.
func SavePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create screenshot: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
