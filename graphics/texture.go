package graphics

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"kotor-render/core"
)

type PixelFormat int

const (
	PixelFormatGrayscale PixelFormat = iota
	PixelFormatRGB
	PixelFormatRGBA
	PixelFormatBGR
	PixelFormatBGRA
	PixelFormatDXT1
	PixelFormatDXT5
	PixelFormatDepth
	PixelFormatDepthStencil
)

func (f PixelFormat) String() string {
	switch f {
	case PixelFormatGrayscale:
		return "Grayscale"
	case PixelFormatRGB:
		return "RGB"
	case PixelFormatRGBA:
		return "RGBA"
	case PixelFormatBGR:
		return "BGR"
	case PixelFormatBGRA:
		return "BGRA"
	case PixelFormatDXT1:
		return "DXT1"
	case PixelFormatDXT5:
		return "DXT5"
	case PixelFormatDepth:
		return "Depth"
	case PixelFormatDepthStencil:
		return "DepthStencil"
	}
	return fmt.Sprintf("PixelFormat(%d)", int(f))
}

func (f PixelFormat) IsCompressed() bool {
	return f == PixelFormatDXT1 || f == PixelFormatDXT5
}

// BytesPerPixel returns the CPU storage size of one pixel, or an error for
// formats that are not stored as plain bytes.
func (f PixelFormat) BytesPerPixel() (int, error) {
	switch f {
	case PixelFormatGrayscale:
		return 1, nil
	case PixelFormatRGB, PixelFormatBGR:
		return 3, nil
	case PixelFormatRGBA, PixelFormatBGRA:
		return 4, nil
	}
	return 0, fmt.Errorf("pixel format %v has no byte layout: %w", f, core.ErrLogic)
}

type TextureFilter int

const (
	FilterNearest TextureFilter = iota
	FilterLinear
	FilterNearestMipmapNearest
	FilterLinearMipmapNearest
	FilterNearestMipmapLinear
	FilterLinearMipmapLinear
)

func (f TextureFilter) IsMipmap() bool {
	return f >= FilterNearestMipmapNearest
}

type TextureWrap int

const (
	WrapRepeat TextureWrap = iota
	WrapClampToEdge
	WrapClampToBorder
)

type TextureProperties struct {
	MinFilter   TextureFilter
	MagFilter   TextureFilter
	Wrap        TextureWrap
	BorderColor core.Color
	CubeMap     bool
	NumSamples  int // >1 makes the texture multisample
}

// DefaultTextureProperties is what diffuse and lightmap textures use.
func DefaultTextureProperties() TextureProperties {
	return TextureProperties{
		MinFilter: FilterLinearMipmapLinear,
		MagFilter: FilterLinear,
		Wrap:      WrapRepeat,
	}
}

type MipMap struct {
	Width, Height int
	Pixels        []byte
}

// Layer is one array slice or cube face.
type Layer struct {
	MipMaps []MipMap
}

// Texture holds CPU-side image data and properties. GPU storage is managed by
// the renderer backend through GPUData.
type Texture struct {
	Name       string
	Width      int
	Height     int
	Format     PixelFormat
	Properties TextureProperties
	Layers     []Layer

	GPUData interface{}
}

func NewTexture(name string, props TextureProperties) *Texture {
	return &Texture{Name: name, Properties: props}
}

func (t *Texture) IsCubeMap() bool {
	return t.Properties.CubeMap
}

// IsMultilayer reports whether the texture is a cube map or a 2D array.
func (t *Texture) IsMultilayer() bool {
	return t.IsCubeMap() || len(t.Layers) > 1
}

func (t *Texture) IsMultisample() bool {
	return t.Properties.NumSamples > 1
}

// Clear resizes the texture and drops its pixels, keeping numLayers empty layers.
func (t *Texture) Clear(w, h int, format PixelFormat, numLayers int) {
	t.Width = w
	t.Height = h
	t.Format = format
	t.Layers = make([]Layer, numLayers)
}

// SetPixels replaces the image data. At least one layer is required.
func (t *Texture) SetPixels(w, h int, format PixelFormat, layers ...Layer) error {
	if len(layers) == 0 {
		return fmt.Errorf("set pixels of %q: no layers: %w", t.Name, core.ErrInvalidArgument)
	}
	t.Width = w
	t.Height = h
	t.Format = format
	t.Layers = layers
	return nil
}

// SetPixelsSingle is SetPixels for one layer with one mip level.
func (t *Texture) SetPixelsSingle(w, h int, format PixelFormat, pixels []byte) error {
	return t.SetPixels(w, h, format, Layer{MipMaps: []MipMap{{Width: w, Height: h, Pixels: pixels}}})
}

// CanFlush reports whether GPU contents can be read back into the texture.
func (t *Texture) CanFlush() error {
	if t.IsMultilayer() {
		return fmt.Errorf("flush %q: cube map or array textures: %w", t.Name, core.ErrLogic)
	}
	if t.IsMultisample() {
		return fmt.Errorf("flush %q: multisample textures: %w", t.Name, core.ErrLogic)
	}
	return nil
}

// Sample returns the colour at wrapped texture coordinates.
func (t *Texture) Sample(s, tc float32) (mgl32.Vec4, error) {
	fract := func(v float32) float32 { return v - math32.Floor(v) }
	x := int(math32.Round(fract(s) * float32(t.Width-1)))
	y := int(math32.Round(fract(tc) * float32(t.Height-1)))
	return t.SampleAt(x, y)
}

// SampleAt returns the colour of a texel of the base level.
func (t *Texture) SampleAt(x, y int) (mgl32.Vec4, error) {
	if t.IsMultilayer() {
		return mgl32.Vec4{}, fmt.Errorf("sample %q: cube map or array textures: %w", t.Name, core.ErrLogic)
	}
	if t.IsMultisample() {
		return mgl32.Vec4{}, fmt.Errorf("sample %q: multisample textures: %w", t.Name, core.ErrLogic)
	}
	if t.Format.IsCompressed() {
		return mgl32.Vec4{}, fmt.Errorf("sample %q: compressed textures: %w", t.Name, core.ErrLogic)
	}
	bpp, err := t.Format.BytesPerPixel()
	if err != nil {
		return mgl32.Vec4{}, err
	}
	if len(t.Layers) == 0 || len(t.Layers[0].MipMaps) == 0 {
		return mgl32.Vec4{}, fmt.Errorf("sample %q: no pixels: %w", t.Name, core.ErrLogic)
	}
	pixels := t.Layers[0].MipMaps[0].Pixels
	off := bpp * (y*t.Width + x)
	if off < 0 || off+bpp > len(pixels) {
		return mgl32.Vec4{}, fmt.Errorf("sample %q: texel (%d, %d) out of range: %w", t.Name, x, y, core.ErrInvalidArgument)
	}
	p := pixels[off : off+bpp]
	c := func(b byte) float32 { return float32(b) / 255 }

	switch t.Format {
	case PixelFormatGrayscale:
		return mgl32.Vec4{c(p[0]), c(p[0]), c(p[0]), 1}, nil
	case PixelFormatRGB:
		return mgl32.Vec4{c(p[0]), c(p[1]), c(p[2]), 1}, nil
	case PixelFormatRGBA:
		return mgl32.Vec4{c(p[0]), c(p[1]), c(p[2]), c(p[3])}, nil
	case PixelFormatBGR:
		return mgl32.Vec4{c(p[2]), c(p[1]), c(p[0]), 1}, nil
	case PixelFormatBGRA:
		return mgl32.Vec4{c(p[2]), c(p[1]), c(p[0]), c(p[3])}, nil
	}
	return mgl32.Vec4{}, fmt.Errorf("sample %q: format %v: %w", t.Name, t.Format, core.ErrLogic)
}

// NewSolidTexture creates a 1x1 RGBA texture.
func NewSolidTexture(name string, color core.Color) *Texture {
	b := func(v float32) byte { return byte(math32.Round(mgl32.Clamp(v, 0, 1) * 255)) }
	t := NewTexture(name, TextureProperties{MinFilter: FilterNearest, MagFilter: FilterNearest})
	_ = t.SetPixelsSingle(1, 1, PixelFormatRGBA, []byte{b(color.R), b(color.G), b(color.B), b(color.A)})
	return t
}
