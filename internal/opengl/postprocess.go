package opengl

import (
	"fmt"

	gl "github.com/go-gl/gl/v4.1-core/gl"

	"kotor-render/core"
)

// numBlurPasses is the number of horizontal+vertical blur pairs run over the
// hilights before presenting.
const numBlurPasses = 2

// worldTargets are the screen sized framebuffers of the world pipeline:
// a multisampled geometry target with colour and hilight attachments, its
// single-sample resolve, and a ping-pong pair for blurring hilights.
type worldTargets struct {
	Width   int32
	Height  int32
	Samples int32

	geometryFBO    uint32
	geometryColor  [2]uint32 // renderbuffers
	geometryDepth  uint32
	resolveFBO     uint32
	resolveTex     [2]uint32 // colour, hilights
	blurFBO        [2]uint32
	blurTex        [2]uint32
	fullscreenVAO  uint32 // empty VAO for the fullscreen triangle
	blurProgram    *program
	presentProgram *program
}

func newWorldTargets(width, height, samples int) (*worldTargets, error) {
	blur, err := newProgram("blur", fullscreenVertSrc, blurFragSrc)
	if err != nil {
		return nil, err
	}
	present, err := newProgram("present", fullscreenVertSrc, presentFragSrc)
	if err != nil {
		blur.destroy()
		return nil, err
	}
	blur.use()
	blur.setInt("blurTex", 0)
	present.use()
	present.setInt("colorTex", 0)
	present.setInt("bloomTex", 1)

	t := &worldTargets{blurProgram: blur, presentProgram: present}
	if samples < 1 {
		samples = 1
	}
	t.Samples = int32(samples)
	gl.GenVertexArrays(1, &t.fullscreenVAO)
	if err := t.alloc(width, height); err != nil {
		t.destroy()
		return nil, err
	}
	return t, nil
}

func newColorTexture(width, height int32) uint32 {
	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_2D, id)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA16F, width, height, 0, gl.RGBA, gl.HALF_FLOAT, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return id
}

func checkFramebuffer(name string) error {
	if s := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); s != gl.FRAMEBUFFER_COMPLETE {
		return fmt.Errorf("%s framebuffer incomplete: status=0x%X: %w", name, s, core.ErrLogic)
	}
	return nil
}

func (t *worldTargets) alloc(width, height int) error {
	t.Width = int32(width)
	t.Height = int32(height)
	attachments := []uint32{gl.COLOR_ATTACHMENT0, gl.COLOR_ATTACHMENT1}

	// Geometry
	gl.GenFramebuffers(1, &t.geometryFBO)
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.geometryFBO)
	gl.GenRenderbuffers(2, &t.geometryColor[0])
	for i, rb := range t.geometryColor {
		gl.BindRenderbuffer(gl.RENDERBUFFER, rb)
		gl.RenderbufferStorageMultisample(gl.RENDERBUFFER, t.Samples, gl.RGBA16F, t.Width, t.Height)
		gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, attachments[i], gl.RENDERBUFFER, rb)
	}
	gl.GenRenderbuffers(1, &t.geometryDepth)
	gl.BindRenderbuffer(gl.RENDERBUFFER, t.geometryDepth)
	gl.RenderbufferStorageMultisample(gl.RENDERBUFFER, t.Samples, gl.DEPTH_COMPONENT32F, t.Width, t.Height)
	gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.RENDERBUFFER, t.geometryDepth)
	gl.BindRenderbuffer(gl.RENDERBUFFER, 0)
	gl.DrawBuffers(2, &attachments[0])
	if err := checkFramebuffer("geometry"); err != nil {
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		return err
	}

	// Resolve
	gl.GenFramebuffers(1, &t.resolveFBO)
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.resolveFBO)
	for i := range t.resolveTex {
		t.resolveTex[i] = newColorTexture(t.Width, t.Height)
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, attachments[i], gl.TEXTURE_2D, t.resolveTex[i], 0)
	}
	gl.DrawBuffers(2, &attachments[0])
	if err := checkFramebuffer("resolve"); err != nil {
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		return err
	}

	// Blur ping-pong
	for i := range t.blurFBO {
		t.blurTex[i] = newColorTexture(t.Width, t.Height)
		gl.GenFramebuffers(1, &t.blurFBO[i])
		gl.BindFramebuffer(gl.FRAMEBUFFER, t.blurFBO[i])
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, t.blurTex[i], 0)
		if err := checkFramebuffer("blur"); err != nil {
			gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
			return err
		}
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	return nil
}

func (t *worldTargets) free() {
	if t.geometryFBO != 0 {
		gl.DeleteFramebuffers(1, &t.geometryFBO)
		gl.DeleteRenderbuffers(2, &t.geometryColor[0])
		gl.DeleteRenderbuffers(1, &t.geometryDepth)
		t.geometryFBO, t.geometryColor, t.geometryDepth = 0, [2]uint32{}, 0
	}
	if t.resolveFBO != 0 {
		gl.DeleteFramebuffers(1, &t.resolveFBO)
		gl.DeleteTextures(2, &t.resolveTex[0])
		t.resolveFBO, t.resolveTex = 0, [2]uint32{}
	}
	for i := range t.blurFBO {
		if t.blurFBO[i] != 0 {
			gl.DeleteFramebuffers(1, &t.blurFBO[i])
			gl.DeleteTextures(1, &t.blurTex[i])
			t.blurFBO[i], t.blurTex[i] = 0, 0
		}
	}
}

// resize recreates every target at the new pixel dimensions.
func (t *worldTargets) resize(width, height int) error {
	t.free()
	return t.alloc(width, height)
}

func (t *worldTargets) destroy() {
	t.free()
	t.blurProgram.destroy()
	t.presentProgram.destroy()
	if t.fullscreenVAO != 0 {
		gl.DeleteVertexArrays(1, &t.fullscreenVAO)
		t.fullscreenVAO = 0
	}
}

// ── Passes ───────────────────────────────────────────────────────────────────

func (t *worldTargets) bindGeometry() {
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.geometryFBO)
	gl.Viewport(0, 0, t.Width, t.Height)
	gl.ClearColor(0, 0, 0, 1)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// resolve blits both multisampled attachments into textures.
func (t *worldTargets) resolve() {
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, t.geometryFBO)
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, t.resolveFBO)
	for i := uint32(0); i < 2; i++ {
		gl.ReadBuffer(gl.COLOR_ATTACHMENT0 + i)
		gl.DrawBuffer(gl.COLOR_ATTACHMENT0 + i)
		gl.BlitFramebuffer(0, 0, t.Width, t.Height, 0, 0, t.Width, t.Height, gl.COLOR_BUFFER_BIT, gl.NEAREST)
	}
	attachments := []uint32{gl.COLOR_ATTACHMENT0, gl.COLOR_ATTACHMENT1}
	gl.DrawBuffers(2, &attachments[0])
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
}

// blur runs horizontal then vertical passes over the hilights. The result
// ends in blurTex[1].
func (t *worldTargets) blur() uint32 {
	gl.BindVertexArray(t.fullscreenVAO)
	t.blurProgram.use()
	gl.ActiveTexture(gl.TEXTURE0)
	src := t.resolveTex[1]
	for i := 0; i < numBlurPasses; i++ {
		gl.BindFramebuffer(gl.FRAMEBUFFER, t.blurFBO[0])
		t.blurProgram.setVec2("texelDir", [2]float32{1 / float32(t.Width), 0})
		gl.BindTexture(gl.TEXTURE_2D, src)
		gl.DrawArrays(gl.TRIANGLES, 0, 3)

		gl.BindFramebuffer(gl.FRAMEBUFFER, t.blurFBO[1])
		t.blurProgram.setVec2("texelDir", [2]float32{0, 1 / float32(t.Height)})
		gl.BindTexture(gl.TEXTURE_2D, t.blurTex[0])
		gl.DrawArrays(gl.TRIANGLES, 0, 3)
		src = t.blurTex[1]
	}
	gl.BindVertexArray(0)
	return t.blurTex[1]
}

// present composites colour and blurred hilights into the default framebuffer.
func (t *worldTargets) present(bloom bool) {
	gl.Disable(gl.DEPTH_TEST)
	gl.Disable(gl.BLEND)
	gl.Viewport(0, 0, t.Width, t.Height)

	var bloomTex uint32
	if bloom {
		bloomTex = t.blur()
	}

	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.BindVertexArray(t.fullscreenVAO)
	t.presentProgram.use()
	t.presentProgram.setBool("hasBloom", bloom)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, t.resolveTex[0])
	gl.ActiveTexture(gl.TEXTURE1)
	gl.BindTexture(gl.TEXTURE_2D, bloomTex)
	gl.DrawArrays(gl.TRIANGLES, 0, 3)
	gl.BindVertexArray(0)
	gl.Enable(gl.DEPTH_TEST)
}
