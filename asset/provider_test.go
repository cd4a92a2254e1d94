package asset

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kotor-render/core"
	"kotor-render/graphics"
)

func TestProviderCachesLoads(t *testing.T) {
	var calls atomic.Int32
	p := NewProvider("test", func(name string) (*string, error) {
		calls.Add(1)
		if name == "missing" {
			return nil, fs.ErrNotExist
		}
		s := name
		return &s, nil
	})

	a, ok := p.Get("a")
	require.True(t, ok)
	b, ok := p.Get("a")
	require.True(t, ok)
	assert.Same(t, a, b, "stable handles")

	_, ok = p.Get("missing")
	assert.False(t, ok)
	_, ok = p.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, int32(2), calls.Load(), "failures are cached too")
	assert.Equal(t, 2, p.Len())

	p.Clear()
	assert.Equal(t, 0, p.Len())
	_, _ = p.Get("a")
	assert.Equal(t, int32(3), calls.Load())
}

func TestProviderConcurrentGet(t *testing.T) {
	var calls atomic.Int32
	p := NewProvider("test", func(name string) (int, error) {
		calls.Add(1)
		return len(name), nil
	})

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, ok := p.Get("hello")
			assert.True(t, ok)
			assert.Equal(t, 5, v)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())
}

func TestProviderPut(t *testing.T) {
	p := NewProvider("test", func(string) (int, error) {
		return 0, errors.New("no loader")
	})
	p.Put("answer", 42)
	v, ok := p.Get("answer")
	require.True(t, ok)
	assert.Equal(t, 42, v)

	seen := map[string]int{}
	_, _ = p.Get("broken")
	p.Each(func(name string, value int) { seen[name] = value })
	assert.Equal(t, map[string]int{"answer": 42}, seen)
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "door.gltf"), []byte("{}"), 0o644))

	path, err := Resolve(dir, "door", ".glb", ".gltf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "door.gltf"), path)

	_, err = Resolve(dir, "window", ".glb", ".gltf")
	assert.ErrorIs(t, err, fs.ErrNotExist)

	_, err = Resolve(dir, "", ".glb")
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

// ── Textures ─────────────────────────────────────────────────────────────────

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecodeTexture(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.NRGBA{255, 0, 0, 255})
	img.Set(1, 1, color.NRGBA{0, 0, 255, 255})

	tex, err := DecodeTexture("tile", encodePNG(t, img))
	require.NoError(t, err)
	assert.Equal(t, "tile", tex.Name)
	assert.Equal(t, 2, tex.Width)
	assert.Equal(t, 2, tex.Height)
	assert.Equal(t, graphics.PixelFormatRGBA, tex.Format)
	assert.Equal(t, graphics.FilterLinearMipmapLinear, tex.Properties.MinFilter)

	c, err := tex.SampleAt(0, 0)
	require.NoError(t, err)
	assert.InDelta(t, 1, c[0], 1e-6)
	c, err = tex.SampleAt(1, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1, c[2], 1e-6)

	_, err = DecodeTexture("junk", []byte("not an image"))
	assert.Error(t, err)
}

func TestTexturesProvider(t *testing.T) {
	dir := t.TempDir()
	img := image.NewRGBA(image.Rect(0, 0, 4, 1))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "grass.png"), encodePNG(t, img), 0o644))

	textures := NewTextures(dir)
	tex, ok := textures.Get("grass")
	require.True(t, ok)
	assert.Equal(t, 4, tex.Width)

	_, ok = textures.Get("sky")
	assert.False(t, ok)
}

func TestToRGBAResetsOrigin(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(2, 2, color.RGBA{10, 20, 30, 255})
	sub := img.SubImage(image.Rect(2, 2, 4, 4))

	rgba := ToRGBA(sub)
	assert.Equal(t, image.Rect(0, 0, 2, 2), rgba.Bounds())
	assert.Equal(t, color.RGBA{10, 20, 30, 255}, rgba.RGBAAt(0, 0))
	assert.Same(t, img, ToRGBA(img))
}
