package opengl

import (
	"fmt"

	gl "github.com/go-gl/gl/v4.1-core/gl"

	"kotor-render/core"
	"kotor-render/renderer"
)

// ShadowMaps holds the depth targets of both shadow kinds: a texture array
// with one layer per directional cascade and a cube map for point lights.
type ShadowMaps struct {
	FBO      uint32
	ArrayTex uint32
	CubeTex  uint32
	Size     int32
}

// NewShadowMaps creates size×size depth targets.
func NewShadowMaps(size int) (*ShadowMaps, error) {
	sm := &ShadowMaps{Size: int32(size)}

	gl.GenTextures(1, &sm.ArrayTex)
	gl.BindTexture(gl.TEXTURE_2D_ARRAY, sm.ArrayTex)
	gl.TexImage3D(gl.TEXTURE_2D_ARRAY, 0, gl.DEPTH_COMPONENT32F,
		sm.Size, sm.Size, renderer.NumShadowCascades, 0, gl.DEPTH_COMPONENT, gl.FLOAT, nil)
	gl.TexParameteri(gl.TEXTURE_2D_ARRAY, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D_ARRAY, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D_ARRAY, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_BORDER)
	gl.TexParameteri(gl.TEXTURE_2D_ARRAY, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_BORDER)
	// Fragments outside the shadow map are lit (border depth = 1.0)
	border := [4]float32{1, 1, 1, 1}
	gl.TexParameterfv(gl.TEXTURE_2D_ARRAY, gl.TEXTURE_BORDER_COLOR, &border[0])
	gl.BindTexture(gl.TEXTURE_2D_ARRAY, 0)

	gl.GenTextures(1, &sm.CubeTex)
	gl.BindTexture(gl.TEXTURE_CUBE_MAP, sm.CubeTex)
	for face := uint32(0); face < uint32(renderer.NumCubeFaces); face++ {
		gl.TexImage2D(gl.TEXTURE_CUBE_MAP_POSITIVE_X+face, 0, gl.DEPTH_COMPONENT32F,
			sm.Size, sm.Size, 0, gl.DEPTH_COMPONENT, gl.FLOAT, nil)
	}
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_WRAP_R, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_CUBE_MAP, 0)

	// Depth-only framebuffer; layers are attached per pass.
	gl.GenFramebuffers(1, &sm.FBO)
	gl.BindFramebuffer(gl.FRAMEBUFFER, sm.FBO)
	gl.FramebufferTextureLayer(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, sm.ArrayTex, 0, 0)
	gl.DrawBuffer(gl.NONE)
	gl.ReadBuffer(gl.NONE)
	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)

	if status != gl.FRAMEBUFFER_COMPLETE {
		sm.Destroy()
		return nil, fmt.Errorf("shadow FBO incomplete: status=0x%X: %w", status, core.ErrLogic)
	}
	return sm, nil
}

// attach binds layer i of the target of kind as the depth attachment.
func (sm *ShadowMaps) attach(kind renderer.ShadowKind, i int) {
	switch kind {
	case renderer.ShadowDirectional:
		gl.FramebufferTextureLayer(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, sm.ArrayTex, 0, int32(i))
	case renderer.ShadowPoint:
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT,
			gl.TEXTURE_CUBE_MAP_POSITIVE_X+uint32(i), sm.CubeTex, 0)
	}
}

// Destroy frees GPU resources.
func (sm *ShadowMaps) Destroy() {
	if sm.FBO != 0 {
		gl.DeleteFramebuffers(1, &sm.FBO)
		sm.FBO = 0
	}
	if sm.ArrayTex != 0 {
		gl.DeleteTextures(1, &sm.ArrayTex)
		sm.ArrayTex = 0
	}
	if sm.CubeTex != 0 {
		gl.DeleteTextures(1, &sm.CubeTex)
		sm.CubeTex = 0
	}
}
