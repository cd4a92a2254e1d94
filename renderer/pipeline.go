// Package renderer turns a scene graph into frames: it computes the shadow
// light spaces and drives the world passes of a GPU backend.
package renderer

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"kotor-render/core"
	"kotor-render/scene"
)

// ShadowKind selects the depth target of the shadow pass.
type ShadowKind int

const (
	ShadowNone ShadowKind = iota
	ShadowDirectional
	ShadowPoint
)

func (k ShadowKind) String() string {
	switch k {
	case ShadowNone:
		return "none"
	case ShadowDirectional:
		return "directional"
	case ShadowPoint:
		return "point"
	}
	return fmt.Sprintf("ShadowKind(%d)", int(k))
}

// Options size the pipeline's render targets.
type Options struct {
	Width            int
	Height           int
	AASamples        int
	ShadowResolution int
	Bloom            bool
}

// FrameUniforms is the per-frame state shared by every world pass.
type FrameUniforms struct {
	View           mgl32.Mat4
	Projection     mgl32.Mat4
	CameraPosition mgl32.Vec3
	ZNear, ZFar    float32

	Lighting scene.LightingUniforms

	Shadow              ShadowKind
	ShadowLightPosition mgl32.Vec4 // w = 0 for directional lights
	ShadowLightSpaces   [NumShadowCascades]mgl32.Mat4
	CascadeFarPlanes    [NumShadowCascades]float32
}

// NumShadowLayers returns how many light space matrices of the frame are in use.
func (f *FrameUniforms) NumShadowLayers() int {
	switch f.Shadow {
	case ShadowDirectional:
		return NumShadowCascades
	case ShadowPoint:
		return int(NumCubeFaces)
	}
	return 0
}

// Backend is the GPU side of the world pipeline. It also paints scene nodes.
type Backend interface {
	scene.Painter

	Init(opts Options) error
	Destroy()
	Resize(width, height int) error

	// ShadowPass calls draw once per layer, with that layer's light space bound.
	// lightPosition is used by point lights for linear depth.
	ShadowPass(kind ShadowKind, lightPosition mgl32.Vec3, lightSpaces []mgl32.Mat4, draw func())
	// GeometryPass clears the multisampled target, binds frame uniforms and calls draw.
	GeometryPass(frame *FrameUniforms, draw func())
	// PostProcess resolves the geometry target, blurs its bright colour and
	// presents the composite to the default framebuffer.
	PostProcess(bloom bool)

	// ReadPixels returns the presented frame as bottom-up RGBA rows.
	ReadPixels() (width, height int, pixels []byte, err error)
}

// WorldPipeline draws one scene graph through a backend.
type WorldPipeline struct {
	graph   *scene.SceneGraph
	backend Backend
	opts    Options

	frame       FrameUniforms
	initialised bool
}

func NewWorldPipeline(graph *scene.SceneGraph, backend Backend, opts Options) *WorldPipeline {
	return &WorldPipeline{graph: graph, backend: backend, opts: opts}
}

// Init allocates the backend's render targets and programs.
func (p *WorldPipeline) Init() error {
	if p.initialised {
		return nil
	}
	if p.opts.Width <= 0 || p.opts.Height <= 0 {
		return fmt.Errorf("world pipeline: size %dx%d: %w", p.opts.Width, p.opts.Height, core.ErrInvalidArgument)
	}
	if err := p.backend.Init(p.opts); err != nil {
		return fmt.Errorf("world pipeline: %w", err)
	}
	p.graph.SetViewport(p.opts.Width, p.opts.Height)
	p.initialised = true
	core.Logger().Info("world pipeline initialised",
		"width", p.opts.Width,
		"height", p.opts.Height,
		"samples", p.opts.AASamples,
		"shadow_resolution", p.opts.ShadowResolution,
		"bloom", p.opts.Bloom)
	return nil
}

func (p *WorldPipeline) Destroy() {
	if !p.initialised {
		return
	}
	p.backend.Destroy()
	p.initialised = false
}

// Resize reallocates the screen sized targets and keeps the active
// camera's aspect ratio in step.
func (p *WorldPipeline) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return nil
	}
	p.opts.Width, p.opts.Height = width, height
	p.graph.SetViewport(width, height)
	if camera := p.graph.ActiveCamera(); camera != nil {
		camera.UpdateAspectRatio(float32(width), float32(height))
	}
	if !p.initialised {
		return nil
	}
	return p.backend.Resize(width, height)
}

func (p *WorldPipeline) SetBloom(on bool) { p.opts.Bloom = on }
func (p *WorldPipeline) Options() Options { return p.opts }

// Frame returns the uniforms of the last drawn frame.
func (p *WorldPipeline) Frame() *FrameUniforms { return &p.frame }

// Draw renders the graph as updated by its last Update. It draws nothing
// without an active camera.
func (p *WorldPipeline) Draw() error {
	if !p.initialised {
		return fmt.Errorf("world pipeline: draw before init: %w", core.ErrLogic)
	}
	camera := p.graph.ActiveCamera()
	if camera == nil {
		return nil
	}
	p.prepareFrame(camera)

	b := p.backend
	if n := p.frame.NumShadowLayers(); n > 0 {
		b.ShadowPass(p.frame.Shadow, p.frame.ShadowLightPosition.Vec3(), p.frame.ShadowLightSpaces[:n], func() {
			p.graph.DrawShadows(b)
		})
	}
	b.GeometryPass(&p.frame, func() {
		p.graph.DrawOpaque(b)
		p.graph.DrawTransparent(b)
		p.graph.DrawLensFlares(b)
	})
	b.PostProcess(p.opts.Bloom)
	return nil
}

func (p *WorldPipeline) prepareFrame(camera *scene.CameraSceneNode) {
	f := &p.frame
	f.View = camera.View()
	f.Projection = camera.Projection()
	f.CameraPosition = camera.Origin()
	f.ZNear, f.ZFar = camera.ZNear(), camera.ZFar()
	p.graph.FillLightingUniforms(&f.Lighting)

	f.Shadow = ShadowNone
	light, ok := p.graph.ShadowLight()
	if !ok {
		return
	}
	pos := light.Origin()
	if light.IsDirectional() {
		f.Shadow = ShadowDirectional
		f.ShadowLightPosition = pos.Vec4(0)
		f.ShadowLightSpaces = CascadeLightSpaces(camera.FieldOfView(), camera.AspectRatio(), f.ZNear, f.ZFar, f.View, f.CameraPosition, pos)
		f.CascadeFarPlanes = CascadeFarPlanes(f.ZNear, f.ZFar)
		return
	}
	f.Shadow = ShadowPoint
	f.ShadowLightPosition = pos.Vec4(1)
	faces := PointLightSpaces(pos)
	copy(f.ShadowLightSpaces[:], faces[:])
}
