package core

import (
	"fmt"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
)

func init() {
	runtime.LockOSThread()
}

type Window struct {
	Handle *glfw.Window
	Width  int
	Height int
	Title  string
}

type WindowConfig struct {
	Width      int
	Height     int
	Title      string
	Resizable  bool
	VSync      bool
	Fullscreen bool
}

func DefaultWindowConfig() WindowConfig {
	return WindowConfig{
		Width:      1024,
		Height:     768,
		Title:      "KotOR Render",
		Resizable:  false,
		VSync:      true,
		Fullscreen: false,
	}
}

// NewWindow creates a window with a current OpenGL 4.1 core context.
func NewWindow(config WindowConfig) (*Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize GLFW: %w", err)
	}

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Resizable, boolToInt(config.Resizable))

	monitor := (*glfw.Monitor)(nil)
	if config.Fullscreen {
		monitor = glfw.GetPrimaryMonitor()
	}

	handle, err := glfw.CreateWindow(config.Width, config.Height, config.Title, monitor, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("failed to create window: %w", err)
	}
	handle.MakeContextCurrent()
	glfw.SwapInterval(boolToInt(config.VSync))

	window := &Window{
		Handle: handle,
		Width:  config.Width,
		Height: config.Height,
		Title:  config.Title,
	}

	handle.SetSizeCallback(func(w *glfw.Window, width, height int) {
		window.Width = width
		window.Height = height
	})

	Logger().Info("window created", "width", config.Width, "height", config.Height, "fullscreen", config.Fullscreen)
	return window, nil
}

func (w *Window) ShouldClose() bool {
	return w.Handle.ShouldClose()
}

func (w *Window) SetShouldClose(v bool) {
	w.Handle.SetShouldClose(v)
}

func (w *Window) PollEvents() {
	glfw.PollEvents()
}

func (w *Window) SwapBuffers() {
	w.Handle.SwapBuffers()
}

func (w *Window) GetFramebufferSize() (int, int) {
	return w.Handle.GetFramebufferSize()
}

// Time returns seconds since the window system was initialised.
func (w *Window) Time() float64 {
	return glfw.GetTime()
}

func (w *Window) Destroy() {
	w.Handle.Destroy()
	glfw.Terminate()
}

func (w *Window) IsKeyPressed(key int) bool {
	return w.Handle.GetKey(glfw.Key(key)) == glfw.Press
}

func (w *Window) SetTitle(title string) {
	w.Handle.SetTitle(title)
	w.Title = title
}

func (w *Window) IsMouseButtonPressed(button int) bool {
	return w.Handle.GetMouseButton(glfw.MouseButton(button)) == glfw.Press
}

func (w *Window) GetCursorPos() (float64, float64) {
	return w.Handle.GetCursorPos()
}

// KeyCallback receives key presses (not repeats or releases).
type KeyCallback func(key int)

func (w *Window) SetKeyCallback(cb KeyCallback) {
	w.Handle.SetKeyCallback(func(win *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action == glfw.Press {
			cb(int(key))
		}
	})
}

// MouseButtonCallback receives mouse button presses with the cursor position.
type MouseButtonCallback func(button int, x, y float64)

func (w *Window) SetMouseButtonCallback(cb MouseButtonCallback) {
	w.Handle.SetMouseButtonCallback(func(win *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		if action != glfw.Press {
			return
		}
		x, y := win.GetCursorPos()
		cb(int(button), x, y)
	})
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

const (
	MouseButtonLeft  = int(glfw.MouseButtonLeft)
	MouseButtonRight = int(glfw.MouseButtonRight)
)

const (
	KeySpace       = int(glfw.KeySpace)
	KeyA           = int(glfw.KeyA)
	KeyB           = int(glfw.KeyB)
	KeyD           = int(glfw.KeyD)
	KeyE           = int(glfw.KeyE)
	KeyQ           = int(glfw.KeyQ)
	KeyS           = int(glfw.KeyS)
	KeyT           = int(glfw.KeyT)
	KeyW           = int(glfw.KeyW)
	KeyEscape      = int(glfw.KeyEscape)
	KeyRight       = int(glfw.KeyRight)
	KeyLeft        = int(glfw.KeyLeft)
	KeyDown        = int(glfw.KeyDown)
	KeyUp          = int(glfw.KeyUp)
	KeyF1          = int(glfw.KeyF1)
	KeyF2          = int(glfw.KeyF2)
	KeyF12         = int(glfw.KeyF12)
	KeyLeftShift   = int(glfw.KeyLeftShift)
	KeyLeftControl = int(glfw.KeyLeftControl)
)
