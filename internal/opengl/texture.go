package opengl

import (
	"fmt"
	"unsafe"

	gl "github.com/go-gl/gl/v4.1-core/gl"

	"kotor-render/asset"
	"kotor-render/core"
	"kotor-render/graphics"
)

// UploadTexture uploads the first layer of a 2D texture and returns its GL
// name. Cube maps, arrays, multisample and compressed textures are not
// uploaded from the CPU.
func UploadTexture(tex *graphics.Texture) (uint32, error) {
	if tex == nil {
		return 0, fmt.Errorf("upload texture: nil texture: %w", core.ErrInvalidArgument)
	}
	if tex.IsMultilayer() || tex.IsMultisample() {
		return 0, fmt.Errorf("upload texture %q: not a 2D texture: %w", tex.Name, core.ErrLogic)
	}
	if len(tex.Layers) != 1 || len(tex.Layers[0].MipMaps) == 0 {
		return 0, fmt.Errorf("upload texture %q: %d layers: %w", tex.Name, len(tex.Layers), core.ErrLogic)
	}
	internal, format, err := glPixelFormat(tex.Format)
	if err != nil {
		return 0, fmt.Errorf("upload texture %q: %w", tex.Name, err)
	}

	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_2D, id)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)

	props := tex.Properties
	wrap := glWrap(props.Wrap)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, wrap)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, wrap)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, glFilter(props.MinFilter))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, glFilter(props.MagFilter))
	if props.Wrap == graphics.WrapClampToBorder {
		border := props.BorderColor.Vec4()
		gl.TexParameterfv(gl.TEXTURE_2D, gl.TEXTURE_BORDER_COLOR, &border[0])
	}

	mips := tex.Layers[0].MipMaps
	for level, mip := range mips {
		var pixels unsafe.Pointer
		if len(mip.Pixels) > 0 {
			pixels = gl.Ptr(mip.Pixels)
		}
		gl.TexImage2D(gl.TEXTURE_2D, int32(level), internal, int32(mip.Width), int32(mip.Height), 0, format, gl.UNSIGNED_BYTE, pixels)
	}
	if len(mips) == 1 && props.MinFilter.IsMipmap() {
		gl.GenerateMipmap(gl.TEXTURE_2D)
	}
	gl.BindTexture(gl.TEXTURE_2D, 0)

	tex.GPUData = id
	return id, nil
}

// DeleteTexture frees a texture uploaded by UploadTexture.
func DeleteTexture(tex *graphics.Texture) {
	if tex == nil {
		return
	}
	if id, ok := tex.GPUData.(uint32); ok && id != 0 {
		gl.DeleteTextures(1, &id)
	}
	tex.GPUData = nil
}

func glPixelFormat(f graphics.PixelFormat) (int32, uint32, error) {
	switch f {
	case graphics.PixelFormatGrayscale:
		return gl.R8, gl.RED, nil
	case graphics.PixelFormatRGB:
		return gl.RGB8, gl.RGB, nil
	case graphics.PixelFormatRGBA:
		return gl.RGBA8, gl.RGBA, nil
	case graphics.PixelFormatBGR:
		return gl.RGB8, gl.BGR, nil
	case graphics.PixelFormatBGRA:
		return gl.RGBA8, gl.BGRA, nil
	}
	return 0, 0, fmt.Errorf("pixel format %v: %w", f, core.ErrLogic)
}

func glFilter(f graphics.TextureFilter) int32 {
	switch f {
	case graphics.FilterNearest:
		return gl.NEAREST
	case graphics.FilterLinear:
		return gl.LINEAR
	case graphics.FilterNearestMipmapNearest:
		return gl.NEAREST_MIPMAP_NEAREST
	case graphics.FilterLinearMipmapNearest:
		return gl.LINEAR_MIPMAP_NEAREST
	case graphics.FilterNearestMipmapLinear:
		return gl.NEAREST_MIPMAP_LINEAR
	}
	return gl.LINEAR_MIPMAP_LINEAR
}

func glWrap(w graphics.TextureWrap) int32 {
	switch w {
	case graphics.WrapClampToEdge:
		return gl.CLAMP_TO_EDGE
	case graphics.WrapClampToBorder:
		return gl.CLAMP_TO_BORDER
	}
	return gl.REPEAT
}

// ── Cache ────────────────────────────────────────────────────────────────────

// textureCache uploads textures by name on first use. Names that fail to
// resolve or upload are drawn with the fallback texture.
type textureCache struct {
	textures asset.Getter[*graphics.Texture]
	ids      map[string]uint32
	white    uint32
}

func newTextureCache(textures asset.Getter[*graphics.Texture]) (*textureCache, error) {
	white, err := UploadTexture(graphics.NewSolidTexture("white", core.ColorWhite))
	if err != nil {
		return nil, fmt.Errorf("fallback texture: %w", err)
	}
	return &textureCache{textures: textures, ids: make(map[string]uint32), white: white}, nil
}

// get returns the GL name of the named texture and whether it was found.
func (c *textureCache) get(name string) (uint32, bool) {
	if name == "" {
		return c.white, false
	}
	if id, ok := c.ids[name]; ok {
		return c.orWhite(id)
	}
	var id uint32
	if c.textures != nil {
		if tex, ok := c.textures.Get(name); ok {
			var err error
			id, err = UploadTexture(tex)
			if err != nil {
				core.Logger().Warn("texture upload failed", "texture", name, "error", err)
			}
		}
	}
	c.ids[name] = id
	return c.orWhite(id)
}

func (c *textureCache) orWhite(id uint32) (uint32, bool) {
	if id == 0 {
		return c.white, false
	}
	return id, true
}

func (c *textureCache) bind(unit uint32, name string) bool {
	id, ok := c.get(name)
	gl.ActiveTexture(gl.TEXTURE0 + unit)
	gl.BindTexture(gl.TEXTURE_2D, id)
	return ok
}

func (c *textureCache) destroy() {
	for _, id := range c.ids {
		if id != 0 {
			gl.DeleteTextures(1, &id)
		}
	}
	clear(c.ids)
	if c.white != 0 {
		gl.DeleteTextures(1, &c.white)
		c.white = 0
	}
}
