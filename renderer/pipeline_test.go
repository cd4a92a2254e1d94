package renderer

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kotor-render/core"
	"kotor-render/graphics"
	"kotor-render/scene"
)

// ── Backend ──────────────────────────────────────────────────────────────────

type shadowPass struct {
	kind   ShadowKind
	layers int
}

type fakeBackend struct {
	opts      Options
	destroyed bool
	resized   [2]int

	passes       []string
	shadowPasses []shadowPass
	frame        FrameUniforms
	bloom        bool

	meshes       int
	shadowMeshes int
	flares       int

	pixels []byte
}

func (b *fakeBackend) Init(opts Options) error {
	b.opts = opts
	return nil
}

func (b *fakeBackend) Destroy() { b.destroyed = true }

func (b *fakeBackend) Resize(w, h int) error {
	b.resized = [2]int{w, h}
	return nil
}

func (b *fakeBackend) ShadowPass(kind ShadowKind, lightPosition mgl32.Vec3, lightSpaces []mgl32.Mat4, draw func()) {
	b.passes = append(b.passes, "shadow")
	b.shadowPasses = append(b.shadowPasses, shadowPass{kind, len(lightSpaces)})
	for range lightSpaces {
		draw()
	}
}

func (b *fakeBackend) GeometryPass(frame *FrameUniforms, draw func()) {
	b.passes = append(b.passes, "geometry")
	b.frame = *frame
	draw()
}

func (b *fakeBackend) PostProcess(bloom bool) {
	b.passes = append(b.passes, "post")
	b.bloom = bloom
}

func (b *fakeBackend) ReadPixels() (int, int, []byte, error) {
	return 2, 2, b.pixels, nil
}

func (b *fakeBackend) WithFaceCulling(_ scene.CullFaceMode, draw func()) { draw() }
func (b *fakeBackend) WithDepthTest(_ scene.DepthTestMode, draw func()) { draw() }
func (b *fakeBackend) SetWalkmeshMaterials(*[scene.MaxWalkmeshMaterials]mgl32.Vec4) {}
func (b *fakeBackend) DrawMesh(scene.MeshDraw) { b.meshes++ }
func (b *fakeBackend) DrawShadowMesh(*graphics.Mesh, mgl32.Mat4) { b.shadowMeshes++ }
func (b *fakeBackend) DrawWalkmesh(*graphics.Walkmesh, mgl32.Mat4) {}
func (b *fakeBackend) DrawTrigger([]mgl32.Vec3, mgl32.Mat4) {}
func (b *fakeBackend) DrawBillboards(scene.BillboardBatch) {}
func (b *fakeBackend) DrawLensFlare(graphics.LensFlare, mgl32.Vec3) { b.flares++ }

// ── Fixtures ─────────────────────────────────────────────────────────────────

func crate() *graphics.Model {
	root := graphics.NewModelNode("crate")
	body := graphics.NewModelNode("body")
	body.Mesh = &graphics.TriangleMesh{Mesh: graphics.NewQuad(), Render: true, Shadow: true}
	root.AddChild(body)
	return graphics.NewModel("crate", root)
}

// newTestScene is a crate five units in front of a camera at the origin,
// lit by a shadow casting light at lightPos.
func newTestScene(t *testing.T, lightPos mgl32.Vec3, directional bool) *scene.SceneGraph {
	t.Helper()
	g := scene.NewSceneGraph("test", scene.WithViewport(800, 600))

	model, err := g.NewModel(crate(), scene.UsagePlaceable, nil)
	require.NoError(t, err)
	model.SetCullable(false)
	model.SetPosition(mgl32.Vec3{0, 0, -5})
	require.NoError(t, g.AddRoot(model))

	sun, err := g.NewModel(graphics.NewLightModel("sun", graphics.Light{
		Color:       mgl32.Vec3{1, 1, 1},
		Multiplier:  1,
		Radius:      1000,
		Directional: directional,
		Shadow:      true,
	}), scene.UsageTemporary, nil)
	require.NoError(t, err)
	sun.SetCullable(false)
	sun.SetPosition(lightPos)
	require.NoError(t, g.AddRoot(sun))

	g.SetActiveCamera(g.NewCamera("camera"))
	g.Update(0.1)
	return g
}

func newTestPipeline(t *testing.T, g *scene.SceneGraph) (*WorldPipeline, *fakeBackend) {
	t.Helper()
	b := &fakeBackend{}
	p := NewWorldPipeline(g, b, Options{Width: 800, Height: 600, AASamples: 4, ShadowResolution: 1024, Bloom: true})
	require.NoError(t, p.Init())
	return p, b
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestPipelineDirectionalShadows(t *testing.T) {
	g := newTestScene(t, mgl32.Vec3{0, 100, 50}, true)
	p, b := newTestPipeline(t, g)
	assert.Equal(t, 1024, b.opts.ShadowResolution)

	require.NoError(t, p.Draw())
	assert.Equal(t, []string{"shadow", "geometry", "post"}, b.passes)
	assert.Equal(t, []shadowPass{{ShadowDirectional, NumShadowCascades}}, b.shadowPasses)
	assert.Equal(t, NumShadowCascades, b.shadowMeshes, "casters drawn once per cascade")
	assert.Equal(t, 1, b.meshes)
	assert.True(t, b.bloom)

	f := b.frame
	assert.Equal(t, float32(0), f.ShadowLightPosition[3])
	assert.Equal(t, CascadeFarPlanes(f.ZNear, f.ZFar), f.CascadeFarPlanes)
	assert.Equal(t, 1, f.Lighting.NumLights)
}

func TestPipelinePointShadows(t *testing.T) {
	g := newTestScene(t, mgl32.Vec3{0, 2, -5}, false)
	p, b := newTestPipeline(t, g)

	require.NoError(t, p.Draw())
	assert.Equal(t, []shadowPass{{ShadowPoint, int(NumCubeFaces)}}, b.shadowPasses)
	assert.Equal(t, int(NumCubeFaces), b.shadowMeshes)
	assert.Equal(t, mgl32.Vec4{0, 2, -5, 1}, b.frame.ShadowLightPosition)

	faces := PointLightSpaces(mgl32.Vec3{0, 2, -5})
	assert.Equal(t, faces[CubeFaceNegativeY], b.frame.ShadowLightSpaces[CubeFaceNegativeY])
}

func TestPipelineWithoutShadowLight(t *testing.T) {
	g := newTestScene(t, mgl32.Vec3{0, 5000, 0}, false)
	p, b := newTestPipeline(t, g)
	p.SetBloom(false)

	require.NoError(t, p.Draw())
	assert.Equal(t, []string{"geometry", "post"}, b.passes, "light out of range")
	assert.Equal(t, ShadowNone, b.frame.Shadow)
	assert.Equal(t, 0, b.frame.NumShadowLayers())
	assert.False(t, b.bloom)
}

func TestPipelineWithoutCamera(t *testing.T) {
	g := scene.NewSceneGraph("empty")
	p, b := newTestPipeline(t, g)
	require.NoError(t, p.Draw())
	assert.Empty(t, b.passes)
}

func TestPipelineLifecycle(t *testing.T) {
	g := newTestScene(t, mgl32.Vec3{0, 100, 50}, true)
	b := &fakeBackend{}
	p := NewWorldPipeline(g, b, Options{Width: 800, Height: 600})
	assert.ErrorIs(t, p.Draw(), core.ErrLogic)

	bad := NewWorldPipeline(g, b, Options{})
	assert.ErrorIs(t, bad.Init(), core.ErrInvalidArgument)

	require.NoError(t, p.Init())
	require.NoError(t, p.Resize(1000, 500))
	assert.Equal(t, [2]int{1000, 500}, b.resized)
	assert.InDelta(t, 2, g.ActiveCamera().AspectRatio(), 1e-6)
	assert.Equal(t, 1000, g.Viewport().Width)

	p.Destroy()
	assert.True(t, b.destroyed)
}

// ── Screenshots ──────────────────────────────────────────────────────────────

func TestImageFromPixelsFlipsRows(t *testing.T) {
	pixels := []byte{
		1, 1, 1, 255, 2, 2, 2, 255, // bottom row
		3, 3, 3, 255, 4, 4, 4, 255, // top row
	}
	img, err := ImageFromPixels(2, 2, pixels)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{3, 3, 3, 255}, img.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{2, 2, 2, 255}, img.RGBAAt(1, 1))

	_, err = ImageFromPixels(2, 2, pixels[:4])
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestThumbnail(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 640, 480))
	for i := range src.Pix {
		src.Pix[i] = 200
	}
	thumb := Thumbnail(src, ScreenshotSize)
	assert.Equal(t, image.Rect(0, 0, ScreenshotSize, ScreenshotSize), thumb.Bounds())
	assert.Equal(t, color.RGBA{200, 200, 200, 200}, thumb.RGBAAt(128, 128))
}

func TestScreenshot(t *testing.T) {
	g := newTestScene(t, mgl32.Vec3{0, 100, 50}, true)
	p, b := newTestPipeline(t, g)
	b.pixels = make([]byte, 2*2*4)
	for i := range b.pixels {
		b.pixels[i] = 255
	}

	img, err := p.Screenshot()
	require.NoError(t, err)
	assert.Equal(t, ScreenshotSize, img.Bounds().Dx())
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, img.RGBAAt(0, 0))

	path := filepath.Join(t.TempDir(), "shot.png")
	require.NoError(t, SavePNG(path, img))
	assert.FileExists(t, path)
}
