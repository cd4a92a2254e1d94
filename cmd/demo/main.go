package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"kotor-render/asset"
	"kotor-render/audio"
	"kotor-render/config"
	"kotor-render/core"
	"kotor-render/internal/opengl"
	"kotor-render/renderer"
	"kotor-render/scene"
)

// CameraController moves the active camera with WASD and the arrow keys. In
// walk mode the camera follows walkmesh elevation and stops at walls.
type CameraController struct {
	moveSpeed  float32
	lookSpeed  float32 // radians per second for arrow keys
	mouseSpeed float32 // radians per pixel
	lastMouseX float64
	lastMouseY float64
	firstMouse bool
	yaw        float32 // radians around +Z
	pitch      float32
	eyeHeight  float32
	position   mgl32.Vec3
	Walk       bool
}

func NewCameraController(camera *scene.CameraSceneNode) *CameraController {
	f := camera.Forward()
	return &CameraController{
		moveSpeed:  6,
		lookSpeed:  1.5,
		mouseSpeed: 0.003,
		firstMouse: true,
		yaw:        math32.Atan2(f.Y(), f.X()),
		pitch:      math32.Asin(mgl32.Clamp(f.Z(), -1, 1)),
		eyeHeight:  1.7,
		position:   camera.Origin(),
	}
}

const maxPitch = 88 * math32.Pi / 180

func (cc *CameraController) Update(window *core.Window, g *scene.SceneGraph, camera *scene.CameraSceneNode, dt float32) {
	// Cap dt to avoid huge steps on hitches
	dt = math32.Min(dt, 0.05)

	if window.IsMouseButtonPressed(core.MouseButtonRight) {
		x, y := window.GetCursorPos()
		if cc.firstMouse {
			cc.lastMouseX, cc.lastMouseY = x, y
			cc.firstMouse = false
		}
		cc.yaw -= float32(x-cc.lastMouseX) * cc.mouseSpeed
		cc.pitch -= float32(y-cc.lastMouseY) * cc.mouseSpeed
		cc.lastMouseX, cc.lastMouseY = x, y
	} else {
		cc.firstMouse = true
	}
	if window.IsKeyPressed(core.KeyLeft) {
		cc.yaw += cc.lookSpeed * dt
	}
	if window.IsKeyPressed(core.KeyRight) {
		cc.yaw -= cc.lookSpeed * dt
	}
	if window.IsKeyPressed(core.KeyUp) {
		cc.pitch += cc.lookSpeed * dt
	}
	if window.IsKeyPressed(core.KeyDown) {
		cc.pitch -= cc.lookSpeed * dt
	}
	cc.pitch = mgl32.Clamp(cc.pitch, -maxPitch, maxPitch)

	sy, cy := math32.Sincos(cc.yaw)
	sp, cp := math32.Sincos(cc.pitch)
	forward := mgl32.Vec3{cp * cy, cp * sy, sp}
	flat := mgl32.Vec3{cy, sy, 0}
	right := mgl32.Vec3{sy, -cy, 0}

	speed := cc.moveSpeed * dt
	if window.IsKeyPressed(core.KeyLeftShift) {
		speed *= 3
	}
	move := forward
	if cc.Walk {
		move = flat
	}
	var delta mgl32.Vec3
	if window.IsKeyPressed(core.KeyW) {
		delta = delta.Add(move.Mul(speed))
	}
	if window.IsKeyPressed(core.KeyS) {
		delta = delta.Sub(move.Mul(speed))
	}
	if window.IsKeyPressed(core.KeyD) {
		delta = delta.Add(right.Mul(speed))
	}
	if window.IsKeyPressed(core.KeyA) {
		delta = delta.Sub(right.Mul(speed))
	}
	if !cc.Walk {
		if window.IsKeyPressed(core.KeyE) {
			delta[2] += speed
		}
		if window.IsKeyPressed(core.KeyQ) {
			delta[2] -= speed
		}
	}

	next := cc.position.Add(delta)
	if cc.Walk {
		next = cc.walk(g, next)
	}
	cc.position = next
	camera.LookAt(next, next.Add(forward), mgl32.Vec3{0, 0, 1})
}

// walk keeps the eye above walkable ground. Moves through walls or off the
// walkmesh are rejected.
func (cc *CameraController) walk(g *scene.SceneGraph, next mgl32.Vec3) mgl32.Vec3 {
	feet := mgl32.Vec3{0, 0, cc.eyeHeight}
	if _, blocked := g.TestWalk(cc.position.Sub(feet).Add(mgl32.Vec3{0, 0, 0.5}), next.Sub(feet).Add(mgl32.Vec3{0, 0, 0.5}), nil); blocked {
		return cc.position
	}
	ground, ok := g.TestElevation(mgl32.Vec2{next.X(), next.Y()})
	if !ok {
		return cc.position
	}
	next[2] = ground.Intersection.Z() + cc.eyeHeight
	return next
}

func main() {
	var (
		configPath = flag.String("config", "config.toml", "settings file")
		layoutPath = flag.String("layout", "", "area layout JSON; an empty area when unset")
		assetDir   = flag.String("assets", "assets", "directory of models, walkmeshes, textures and sounds")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	core.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := run(*configPath, *layoutPath, *assetDir); err != nil {
		core.Logger().Error("demo failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath, layoutPath, assetDir string) error {
	cfg, err := config.Load(configPath)
	if errors.Is(err, os.ErrNotExist) {
		core.Logger().Warn("config not found, using defaults", "path", configPath)
		cfg, err = config.Default(), nil
	}
	if err != nil {
		return err
	}
	surfaces := config.DefaultSurfaces()
	if cfg.Scene.Surfaces != "" {
		if surfaces, err = config.LoadSurfaces(cfg.Scene.Surfaces); err != nil {
			return err
		}
	}

	window, err := core.NewWindow(cfg.Window.CoreWindowConfig())
	if err != nil {
		return err
	}
	defer window.Destroy()

	// ── Assets ────────────────────────────────────────────────────────────────
	models := asset.NewModels(assetDir)
	walkmeshes := asset.NewWalkmeshes(assetDir)
	textures := asset.NewTextures(assetDir)

	opts := []scene.Option{
		scene.WithSurfaces(surfaces.Surfaces()),
		scene.WithUpdateRoots(cfg.Scene.UpdateRoots),
		scene.WithViewport(window.GetFramebufferSize()),
	}
	var player *audio.Player
	if cfg.Audio.Enabled {
		player, err = audio.Open(cfg.Audio, assetDir)
		if err != nil {
			core.Logger().Warn("audio disabled", "error", err)
		} else {
			defer player.Close()
			opts = append(opts, scene.WithAudioPlayer(player))
		}
	}

	// ── Scene ─────────────────────────────────────────────────────────────────
	layout := asset.NewDefaultLayout("demo")
	if layoutPath != "" {
		if layout, err = asset.LoadLayout(layoutPath); err != nil {
			return err
		}
	}
	graph := scene.NewSceneGraph(layout.Name, opts...)
	graph.SetDrawWalkmeshes(cfg.Scene.DrawWalkmeshes)
	graph.SetDrawTriggers(cfg.Scene.DrawTriggers)
	area, err := layout.Build(graph, models, walkmeshes)
	if err != nil {
		return err
	}
	if layoutPath == "" {
		graph.SetAmbientColor(mgl32.Vec3(cfg.Scene.AmbientColor))
	}
	for _, m := range area.Objects {
		m.SetDrawDistance(cfg.Graphics.DrawDistance)
	}
	camera := area.Camera
	camera.SetPerspective(mgl32.DegToRad(cfg.Graphics.FieldOfView), camera.AspectRatio(), camera.ZNear(), camera.ZFar())
	core.Logger().Info("area loaded",
		"name", layout.Name,
		"rooms", len(area.Rooms),
		"objects", len(area.Objects),
		"lights", len(area.Lights),
		"sounds", len(area.Sounds))

	dayNight, err := NewDayNight(graph)
	if err != nil {
		return err
	}
	controller := NewCameraController(camera)

	// ── Renderer ──────────────────────────────────────────────────────────────
	backend, err := opengl.NewRenderer(textures)
	if err != nil {
		return err
	}
	width, height := window.GetFramebufferSize()
	pipeline := renderer.NewWorldPipeline(graph, backend, renderer.Options{
		Width:            width,
		Height:           height,
		AASamples:        cfg.Graphics.AASamples,
		ShadowResolution: cfg.Graphics.ShadowResolution,
		Bloom:            cfg.Graphics.Bloom,
	})
	if err := pipeline.Init(); err != nil {
		return err
	}
	defer pipeline.Destroy()

	window.SetKeyCallback(func(key int) {
		switch key {
		case core.KeyEscape:
			window.SetShouldClose(true)
		case core.KeyF1:
			cfg.Scene.DrawWalkmeshes = !cfg.Scene.DrawWalkmeshes
			graph.SetDrawWalkmeshes(cfg.Scene.DrawWalkmeshes)
		case core.KeyF2:
			cfg.Scene.DrawTriggers = !cfg.Scene.DrawTriggers
			graph.SetDrawTriggers(cfg.Scene.DrawTriggers)
		case core.KeyB:
			pipeline.SetBloom(!pipeline.Options().Bloom)
		case core.KeyT:
			dayNight.Active = !dayNight.Active
		case core.KeySpace:
			controller.Walk = !controller.Walk
			core.Logger().Info("camera mode", "walk", controller.Walk)
		case core.KeyF12:
			if err := saveScreenshot(pipeline); err != nil {
				core.Logger().Error("screenshot failed", "error", err)
			}
		}
	})
	window.SetMouseButtonCallback(func(button int, x, y float64) {
		if button != core.MouseButtonLeft {
			return
		}
		if m, ok := graph.PickModelAt(int(x), int(y), nil); ok {
			core.Logger().Info("picked", "model", m.Name(), "usage", m.Usage())
		}
	})

	// ── Loop ──────────────────────────────────────────────────────────────────
	last := window.Time()
	titleTimer := float32(0)
	frames := 0
	for !window.ShouldClose() {
		window.PollEvents()
		now := window.Time()
		dt := float32(now - last)
		last = now

		if w, h := window.GetFramebufferSize(); w != width || h != height {
			width, height = w, h
			if err := pipeline.Resize(w, h); err != nil {
				return err
			}
		}

		controller.Update(window, graph, camera, dt)
		dayNight.Update(dt)
		dayNight.Apply(graph, camera.Origin())
		graph.Update(dt)
		if player != nil {
			player.SetListener(camera.Origin(), camera.Forward(), mgl32.Vec3{0, 0, 1})
		}

		if err := pipeline.Draw(); err != nil {
			return err
		}
		window.SwapBuffers()

		frames++
		titleTimer += dt
		if titleTimer >= 1 {
			window.SetTitle(fmt.Sprintf("%s | %d fps | %s | lights %d | shadows %s",
				cfg.Window.Title, frames, dayNight.TimeOfDayStr(),
				pipeline.Frame().Lighting.NumLights, pipeline.Frame().Shadow))
			frames, titleTimer = 0, 0
		}
	}
	return nil
}

func saveScreenshot(p *renderer.WorldPipeline) error {
	img, err := p.Screenshot()
	if err != nil {
		return err
	}
	name := filepath.Join("screenshots", time.Now().Format("20060102-150405")+".png")
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return err
	}
	if err := renderer.SavePNG(name, img); err != nil {
		return err
	}
	core.Logger().Info("screenshot saved", "path", name)
	return nil
}
