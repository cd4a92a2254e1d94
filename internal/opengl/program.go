package opengl

import (
	"fmt"
	"strings"

	gl "github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

// program is a linked shader program with cached uniform locations.
type program struct {
	id        uint32
	name      string
	locations map[string]int32
}

func newProgram(name, vertSrc, fragSrc string) (*program, error) {
	vert, err := compileShader(vertSrc, gl.VERTEX_SHADER)
	if err != nil {
		return nil, fmt.Errorf("%s vertex: %w", name, err)
	}
	frag, err := compileShader(fragSrc, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vert)
		return nil, fmt.Errorf("%s fragment: %w", name, err)
	}

	id := gl.CreateProgram()
	gl.AttachShader(id, vert)
	gl.AttachShader(id, frag)
	gl.LinkProgram(id)
	gl.DeleteShader(vert)
	gl.DeleteShader(frag)

	var status int32
	gl.GetProgramiv(id, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(id, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetProgramInfoLog(id, logLen, nil, gl.Str(log))
		gl.DeleteProgram(id)
		return nil, fmt.Errorf("%s link failed: %v", name, log)
	}
	return &program{id: id, name: name, locations: make(map[string]int32)}, nil
}

func compileShader(src string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csrc, free := gl.Strs(src)
	gl.ShaderSource(shader, 1, csrc, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetShaderInfoLog(shader, logLen, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("compile failed: %v", log)
	}
	return shader, nil
}

func (p *program) use() {
	gl.UseProgram(p.id)
}

// loc returns the location of a uniform; -1 (ignored by GL) when the
// compiler optimised it away.
func (p *program) loc(name string) int32 {
	if l, ok := p.locations[name]; ok {
		return l
	}
	l := gl.GetUniformLocation(p.id, gl.Str(name+"\x00"))
	p.locations[name] = l
	return l
}

func (p *program) setInt(name string, v int32) { gl.Uniform1i(p.loc(name), v) }
func (p *program) setFloat(name string, v float32) { gl.Uniform1f(p.loc(name), v) }

func (p *program) setBool(name string, v bool) {
	if v {
		gl.Uniform1i(p.loc(name), 1)
	} else {
		gl.Uniform1i(p.loc(name), 0)
	}
}

func (p *program) setVec2(name string, v mgl32.Vec2) { gl.Uniform2f(p.loc(name), v[0], v[1]) }
func (p *program) setVec3(name string, v mgl32.Vec3) { gl.Uniform3f(p.loc(name), v[0], v[1], v[2]) }
func (p *program) setVec4(name string, v mgl32.Vec4) { gl.Uniform4f(p.loc(name), v[0], v[1], v[2], v[3]) }

func (p *program) setMat4(name string, m mgl32.Mat4) {
	gl.UniformMatrix4fv(p.loc(name), 1, false, &m[0])
}

func (p *program) setMat4Array(name string, ms []mgl32.Mat4) {
	if len(ms) == 0 {
		return
	}
	gl.UniformMatrix4fv(p.loc(name), int32(len(ms)), false, &ms[0][0])
}

func (p *program) setFloatArray(name string, vs []float32) {
	if len(vs) == 0 {
		return
	}
	gl.Uniform1fv(p.loc(name), int32(len(vs)), &vs[0])
}

func (p *program) setVec4Array(name string, vs []mgl32.Vec4) {
	if len(vs) == 0 {
		return
	}
	gl.Uniform4fv(p.loc(name), int32(len(vs)), &vs[0][0])
}

func (p *program) destroy() {
	if p != nil && p.id != 0 {
		gl.DeleteProgram(p.id)
		p.id = 0
	}
}
