// Package opengl is the OpenGL 4.1 backend of the world pipeline. Every
// call must happen on the thread that owns the GL context.
package opengl

import (
	"fmt"

	gl "github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"kotor-render/asset"
	"kotor-render/core"
	"kotor-render/graphics"
	"kotor-render/renderer"
	"kotor-render/scene"
)

// Texture units
const (
	unitDiffuse  = 0
	unitLightmap = 1
	unitShadow   = 2
	unitCube     = 3
)

type lightUniformNames struct {
	position, color, multiplier, radius, ambientOnly string
}

var lightNames [scene.MaxLights]lightUniformNames

func init() {
	for i := range lightNames {
		lightNames[i] = lightUniformNames{
			position:    fmt.Sprintf("lightPosition[%d]", i),
			color:       fmt.Sprintf("lightColor[%d]", i),
			multiplier:  fmt.Sprintf("lightMultiplier[%d]", i),
			radius:      fmt.Sprintf("lightRadius[%d]", i),
			ambientOnly: fmt.Sprintf("lightAmbientOnly[%d]", i),
		}
	}
}

// Renderer implements renderer.Backend on OpenGL.
type Renderer struct {
	opts renderer.Options

	world     *program
	depth     *program
	walkmesh  *program
	billboard *program

	textures   *textureCache
	shadows    *ShadowMaps
	targets    *worldTargets
	billboards *streamBuffer
	triggers   *streamBuffer

	gpuMeshes     map[*graphics.Mesh]*GPUMesh
	gpuWalkmeshes map[*graphics.Walkmesh]*GPUMesh

	// Render state
	frame     *renderer.FrameUniforms
	cullFace  scene.CullFaceMode
	depthTest scene.DepthTestMode
	scratch   []float32
}

var _ renderer.Backend = (*Renderer)(nil)

// NewRenderer loads the GL entry points. The GLFW window context must be
// current. textures resolves the names meshes and billboards refer to.
func NewRenderer(textures asset.Getter[*graphics.Texture]) (*Renderer, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	core.Logger().Info("OpenGL ready",
		"version", gl.GoStr(gl.GetString(gl.VERSION)),
		"renderer", gl.GoStr(gl.GetString(gl.RENDERER)))

	tc, err := newTextureCache(textures)
	if err != nil {
		return nil, err
	}
	return &Renderer{
		textures:      tc,
		gpuMeshes:     make(map[*graphics.Mesh]*GPUMesh),
		gpuWalkmeshes: make(map[*graphics.Walkmesh]*GPUMesh),
		cullFace:      scene.CullFaceNone,
		depthTest:     scene.DepthTestLess,
	}, nil
}

// Init compiles the programs and allocates the render targets.
func (r *Renderer) Init(opts renderer.Options) error {
	r.opts = opts
	var err error
	if r.world, err = newProgram("world", worldVertSrc, worldFragSrc); err != nil {
		return err
	}
	if r.depth, err = newProgram("depth", depthVertSrc, depthFragSrc); err != nil {
		return err
	}
	if r.walkmesh, err = newProgram("walkmesh", walkmeshVertSrc, walkmeshFragSrc); err != nil {
		return err
	}
	if r.billboard, err = newProgram("billboard", billboardVertSrc, billboardFragSrc); err != nil {
		return err
	}

	r.world.use()
	r.world.setInt("diffuseTex", unitDiffuse)
	r.world.setInt("lightmapTex", unitLightmap)
	r.world.setInt("shadowMap", unitShadow)
	r.world.setInt("shadowCube", unitCube)
	r.world.setFloat("shadowFar", renderer.PointShadowFar)
	r.billboard.use()
	r.billboard.setInt("spriteTex", unitDiffuse)
	r.depth.use()
	r.depth.setFloat("shadowFar", renderer.PointShadowFar)

	if r.shadows, err = NewShadowMaps(opts.ShadowResolution); err != nil {
		return err
	}
	if r.targets, err = newWorldTargets(opts.Width, opts.Height, opts.AASamples); err != nil {
		return err
	}
	r.billboards = newStreamBuffer(3, 2, 4) // position, uv, colour
	r.triggers = newStreamBuffer(3)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	return nil
}

// Destroy frees every GPU resource, uploaded meshes and textures included.
func (r *Renderer) Destroy() {
	for _, gpu := range r.gpuMeshes {
		gpu.destroy()
	}
	for mesh := range r.gpuMeshes {
		mesh.GPUData = nil
	}
	clear(r.gpuMeshes)
	for _, gpu := range r.gpuWalkmeshes {
		gpu.destroy()
	}
	clear(r.gpuWalkmeshes)
	r.textures.destroy()

	if r.billboards != nil {
		r.billboards.destroy()
		r.triggers.destroy()
		r.billboards, r.triggers = nil, nil
	}
	if r.targets != nil {
		r.targets.destroy()
		r.targets = nil
	}
	if r.shadows != nil {
		r.shadows.Destroy()
		r.shadows = nil
	}
	for _, p := range []*program{r.world, r.depth, r.walkmesh, r.billboard} {
		p.destroy()
	}
}

func (r *Renderer) Resize(width, height int) error {
	r.opts.Width, r.opts.Height = width, height
	if r.targets == nil {
		return nil
	}
	return r.targets.resize(width, height)
}

// ── Passes ───────────────────────────────────────────────────────────────────

func (r *Renderer) ShadowPass(kind renderer.ShadowKind, lightPosition mgl32.Vec3, lightSpaces []mgl32.Mat4, draw func()) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, r.shadows.FBO)
	gl.Viewport(0, 0, r.shadows.Size, r.shadows.Size)
	r.depth.use()
	r.depth.setBool("linearDepth", kind == renderer.ShadowPoint)
	r.depth.setVec3("lightPosition", lightPosition)
	for i, lightSpace := range lightSpaces {
		r.shadows.attach(kind, i)
		gl.Clear(gl.DEPTH_BUFFER_BIT)
		r.depth.setMat4("lightSpace", lightSpace)
		draw()
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(0, 0, int32(r.opts.Width), int32(r.opts.Height))
}

func (r *Renderer) GeometryPass(frame *renderer.FrameUniforms, draw func()) {
	r.frame = frame
	r.targets.bindGeometry()
	r.setFrameUniforms(frame)
	draw()
}

func (r *Renderer) PostProcess(bloom bool) {
	r.targets.resolve()
	r.targets.present(bloom)
}

// ReadPixels reads the default framebuffer.
func (r *Renderer) ReadPixels() (int, int, []byte, error) {
	w, h := r.opts.Width, r.opts.Height
	if w <= 0 || h <= 0 {
		return 0, 0, nil, fmt.Errorf("read pixels of %dx%d framebuffer: %w", w, h, core.ErrLogic)
	}
	pixels := make([]byte, w*h*4)
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(w), int32(h), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	return w, h, pixels, nil
}

// setFrameUniforms binds camera, lighting, fog and shadow state of the world program.
func (r *Renderer) setFrameUniforms(f *renderer.FrameUniforms) {
	p := r.world
	p.use()
	p.setMat4("view", f.View)
	p.setMat4("projection", f.Projection)
	p.setVec3("cameraPosition", f.CameraPosition)

	l := &f.Lighting
	p.setVec3("ambientColor", l.AmbientColor)
	p.setInt("numLights", int32(l.NumLights))
	for i := 0; i < l.NumLights; i++ {
		light, names := l.Lights[i], lightNames[i]
		p.setVec4(names.position, light.Position)
		p.setVec3(names.color, light.Color.Vec3())
		p.setFloat(names.multiplier, light.Multiplier)
		p.setFloat(names.radius, light.Radius)
		p.setBool(names.ambientOnly, light.AmbientOnly)
	}

	p.setBool("fogEnabled", l.FogEnabled)
	p.setFloat("fogNear", l.FogNear)
	p.setFloat("fogFar", l.FogFar)
	p.setVec3("fogColor", l.FogColor)

	p.setInt("shadowKind", int32(f.Shadow))
	p.setMat4Array("shadowLightSpaces", f.ShadowLightSpaces[:])
	p.setFloatArray("cascadeFarPlanes", f.CascadeFarPlanes[:])
	p.setVec4("shadowLightPosition", f.ShadowLightPosition)
	p.setFloat("shadowStrength", l.ShadowStrength)
	p.setFloat("shadowRadius", l.ShadowRadius)

	gl.ActiveTexture(gl.TEXTURE0 + unitShadow)
	gl.BindTexture(gl.TEXTURE_2D_ARRAY, r.shadows.ArrayTex)
	gl.ActiveTexture(gl.TEXTURE0 + unitCube)
	gl.BindTexture(gl.TEXTURE_CUBE_MAP, r.shadows.CubeTex)

	r.walkmesh.use()
	r.walkmesh.setMat4("view", f.View)
	r.walkmesh.setMat4("projection", f.Projection)
	r.billboard.use()
	r.billboard.setMat4("viewProjection", f.Projection.Mul4(f.View))
}

// ── State ────────────────────────────────────────────────────────────────────

func (r *Renderer) WithFaceCulling(mode scene.CullFaceMode, draw func()) {
	prev := r.cullFace
	applyCullFace(mode)
	r.cullFace = mode
	draw()
	applyCullFace(prev)
	r.cullFace = prev
}

func applyCullFace(mode scene.CullFaceMode) {
	switch mode {
	case scene.CullFaceBack:
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.BACK)
	case scene.CullFaceFront:
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.FRONT)
	default:
		gl.Disable(gl.CULL_FACE)
	}
}

func (r *Renderer) WithDepthTest(mode scene.DepthTestMode, draw func()) {
	prev := r.depthTest
	applyDepthTest(mode)
	r.depthTest = mode
	draw()
	applyDepthTest(prev)
	r.depthTest = prev
}

func applyDepthTest(mode scene.DepthTestMode) {
	if mode == scene.DepthTestNone {
		gl.Disable(gl.DEPTH_TEST)
		return
	}
	gl.Enable(gl.DEPTH_TEST)
	switch mode {
	case scene.DepthTestEqual:
		gl.DepthFunc(gl.EQUAL)
	case scene.DepthTestLessOrEqual:
		gl.DepthFunc(gl.LEQUAL)
	default:
		gl.DepthFunc(gl.LESS)
	}
}

// ── Painter ──────────────────────────────────────────────────────────────────

func (r *Renderer) DrawShadowMesh(mesh *graphics.Mesh, transform mgl32.Mat4) {
	gpu := r.ensureUploaded(mesh)
	if gpu == nil {
		return
	}
	r.depth.setMat4("model", transform)
	gpu.draw(gl.TRIANGLES)
}

func (r *Renderer) DrawMesh(cmd scene.MeshDraw) {
	gpu := r.ensureUploaded(cmd.Mesh)
	if gpu == nil {
		return
	}
	p := r.world
	p.use()
	p.setMat4("model", cmd.Transform)
	p.setVec2("uvOffset", cmd.UVOffset)
	p.setFloat("alpha", cmd.Alpha)
	p.setVec3("selfIllumColor", cmd.SelfIllumColor)
	r.textures.bind(unitDiffuse, cmd.Diffuse)
	lightmapped := cmd.Lightmapped && r.textures.bind(unitLightmap, cmd.Lightmap)
	p.setBool("lightmapped", lightmapped)

	if cmd.Transparent {
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
		gl.DepthMask(false)
	}
	gpu.draw(gl.TRIANGLES)
	if cmd.Transparent {
		gl.DepthMask(true)
		gl.Disable(gl.BLEND)
	}
}

func (r *Renderer) SetWalkmeshMaterials(colors *[scene.MaxWalkmeshMaterials]mgl32.Vec4) {
	r.walkmesh.use()
	r.walkmesh.setVec4Array("materials", colors[:])
}

func (r *Renderer) DrawWalkmesh(walkmesh *graphics.Walkmesh, transform mgl32.Mat4) {
	gpu := r.ensureWalkmeshUploaded(walkmesh)
	if gpu == nil {
		return
	}
	r.walkmesh.use()
	r.walkmesh.setMat4("model", transform)
	gpu.draw(gl.TRIANGLES)
}

// DrawTrigger fills the trigger polygon with the last walkmesh material colour.
func (r *Renderer) DrawTrigger(geometry []mgl32.Vec3, transform mgl32.Mat4) {
	if len(geometry) < 3 {
		return
	}
	r.scratch = r.scratch[:0]
	for _, v := range geometry {
		r.scratch = append(r.scratch, v[0], v[1], v[2])
	}
	r.triggers.upload(r.scratch)

	r.walkmesh.use()
	r.walkmesh.setMat4("model", transform)
	gl.VertexAttrib2f(2, float32(scene.MaxWalkmeshMaterials-1), 0)
	gl.Disable(gl.CULL_FACE)
	r.triggers.draw(gl.TRIANGLE_FAN, int32(len(geometry)))
	applyCullFace(r.cullFace)
}

func (r *Renderer) DrawBillboards(batch scene.BillboardBatch) {
	if len(batch.Billboards) == 0 || r.frame == nil {
		return
	}
	right := r.frame.View.Row(0).Vec3()
	up := r.frame.View.Row(1).Vec3()

	r.scratch = r.scratch[:0]
	for _, b := range batch.Billboards {
		r.scratch = appendBillboard(r.scratch, b, right, up, batch.GridWidth, batch.GridHeight)
	}
	r.drawSprites(batch.Texture, batch.Blend)
}

// DrawLensFlare draws one flare sprite at the light position.
func (r *Renderer) DrawLensFlare(flare graphics.LensFlare, position mgl32.Vec3) {
	if r.frame == nil {
		return
	}
	right := r.frame.View.Row(0).Vec3()
	up := r.frame.View.Row(1).Vec3()
	b := scene.Billboard{Position: position, Size: flare.Size, Color: flare.Color.Vec4(1)}
	r.scratch = appendBillboard(r.scratch[:0], b, right, up, 1, 1)
	r.drawSprites(flare.Texture, graphics.EmitterBlendLighten)
}

// drawSprites draws the quads in r.scratch with depth test but no depth writes.
func (r *Renderer) drawSprites(texture string, blend graphics.EmitterBlend) {
	r.billboards.upload(r.scratch)

	gl.Enable(gl.BLEND)
	switch blend {
	case graphics.EmitterBlendLighten:
		gl.BlendFunc(gl.SRC_ALPHA, gl.ONE)
	case graphics.EmitterBlendPunch:
		gl.BlendFunc(gl.ONE_MINUS_DST_COLOR, gl.ONE)
	default:
		gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	}
	gl.DepthMask(false)

	r.billboard.use()
	r.billboard.setBool("hilight", blend == graphics.EmitterBlendLighten)
	r.textures.bind(unitDiffuse, texture)
	r.billboards.draw(gl.TRIANGLES, int32(len(r.scratch)/billboardFloatsPerVertex))

	gl.DepthMask(true)
	gl.Disable(gl.BLEND)
}

const (
	billboardFloatsPerVertex = 9 // position, uv, colour
	billboardVertices        = 6
)

// appendBillboard appends two triangles facing the camera. Frame selects a
// cell of a gridW×gridH sprite sheet, row-major from the top left.
func appendBillboard(buf []float32, b scene.Billboard, right, up mgl32.Vec3, gridW, gridH int) []float32 {
	gridW, gridH = max(gridW, 1), max(gridH, 1)
	frame := b.Frame % (gridW * gridH)
	if frame < 0 {
		frame = 0
	}
	col, row := frame%gridW, frame/gridW
	u0, u1 := float32(col)/float32(gridW), float32(col+1)/float32(gridW)
	v0, v1 := float32(row)/float32(gridH), float32(row+1)/float32(gridH)

	half := b.Size * 0.5
	rx, uy := right.Mul(half), up.Mul(half)
	bl := b.Position.Sub(rx).Sub(uy)
	br := b.Position.Add(rx).Sub(uy)
	tl := b.Position.Sub(rx).Add(uy)
	tr := b.Position.Add(rx).Add(uy)

	c := b.Color
	vert := func(p mgl32.Vec3, u, v float32) {
		buf = append(buf, p[0], p[1], p[2], u, v, c[0], c[1], c[2], c[3])
	}
	// Image rows are uploaded top first, so the top of a cell is v0.
	vert(tl, u0, v0)
	vert(tr, u1, v0)
	vert(br, u1, v1)
	vert(tl, u0, v0)
	vert(br, u1, v1)
	vert(bl, u0, v1)
	return buf
}
