package asset

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"

	"kotor-render/graphics"
)

var textureExts = []string{".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff"}

// NewTextures returns a provider of RGBA textures read from image files in dir.
func NewTextures(dir string) *Provider[*graphics.Texture] {
	return NewProvider("texture", func(name string) (*graphics.Texture, error) {
		path, err := Resolve(dir, name, textureExts...)
		if err != nil {
			return nil, err
		}
		return LoadTexture(name, path)
	})
}

// LoadTexture decodes an image file into a texture called name.
func LoadTexture(name, path string) (*graphics.Texture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", path, err)
	}
	return DecodeTexture(name, data)
}

// DecodeTexture decodes PNG, JPEG, BMP or TIFF bytes into an RGBA texture
// with the default diffuse properties.
func DecodeTexture(name string, data []byte) (*graphics.Texture, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	rgba := ToRGBA(img)
	w, h := rgba.Bounds().Dx(), rgba.Bounds().Dy()
	tex := graphics.NewTexture(name, graphics.DefaultTextureProperties())
	if err := tex.SetPixelsSingle(w, h, graphics.PixelFormatRGBA, rgba.Pix); err != nil {
		return nil, err
	}
	return tex, nil
}

// ToRGBA returns img as a tightly packed *image.RGBA with a zero origin.
func ToRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) && rgba.Stride == 4*b.Dx() {
		return rgba
	}
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}
