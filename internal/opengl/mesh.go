package opengl

import (
	"unsafe"

	gl "github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"kotor-render/core"
	"kotor-render/graphics"
)

// GPUMesh holds the OpenGL buffer objects for an uploaded mesh.
type GPUMesh struct {
	VAO         uint32
	VBO         uint32
	EBO         uint32
	IndexCount  int32
	VertexCount int32
	HasIndices  bool
}

func (m *GPUMesh) draw(mode uint32) {
	gl.BindVertexArray(m.VAO)
	if m.HasIndices {
		gl.DrawElements(mode, m.IndexCount, gl.UNSIGNED_INT, nil)
	} else {
		gl.DrawArrays(mode, 0, m.VertexCount)
	}
	gl.BindVertexArray(0)
}

func (m *GPUMesh) destroy() {
	gl.DeleteVertexArrays(1, &m.VAO)
	gl.DeleteBuffers(1, &m.VBO)
	if m.EBO != 0 {
		gl.DeleteBuffers(1, &m.EBO)
	}
}

// uploadMesh creates the vertex array of mesh. Attribute locations follow
// the core.Vertex fields: position, normal, uv, lightmap uv, colour.
func uploadMesh(mesh *graphics.Mesh) *GPUMesh {
	if len(mesh.Vertices) == 0 {
		return nil
	}
	stride := int32(unsafe.Sizeof(core.Vertex{}))

	gpu := &GPUMesh{
		IndexCount:  int32(len(mesh.Indices)),
		VertexCount: int32(len(mesh.Vertices)),
		HasIndices:  len(mesh.Indices) > 0,
	}

	gl.GenVertexArrays(1, &gpu.VAO)
	gl.GenBuffers(1, &gpu.VBO)
	gl.BindVertexArray(gpu.VAO)

	gl.BindBuffer(gl.ARRAY_BUFFER, gpu.VBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(mesh.Vertices)*int(stride), gl.Ptr(mesh.Vertices), gl.STATIC_DRAW)

	var v core.Vertex
	posOff := int(unsafe.Offsetof(v.Position))
	normOff := int(unsafe.Offsetof(v.Normal))
	uvOff := int(unsafe.Offsetof(v.UV))
	lightmapOff := int(unsafe.Offsetof(v.LightmapUV))
	colorOff := int(unsafe.Offsetof(v.Color))

	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, stride, gl.PtrOffset(posOff))
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointer(1, 3, gl.FLOAT, false, stride, gl.PtrOffset(normOff))
	gl.EnableVertexAttribArray(2)
	gl.VertexAttribPointer(2, 2, gl.FLOAT, false, stride, gl.PtrOffset(uvOff))
	gl.EnableVertexAttribArray(3)
	gl.VertexAttribPointer(3, 2, gl.FLOAT, false, stride, gl.PtrOffset(lightmapOff))
	gl.EnableVertexAttribArray(4)
	gl.VertexAttribPointer(4, 4, gl.FLOAT, false, stride, gl.PtrOffset(colorOff))

	if gpu.HasIndices {
		gl.GenBuffers(1, &gpu.EBO)
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, gpu.EBO)
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(mesh.Indices)*4, gl.Ptr(mesh.Indices), gl.STATIC_DRAW)
	}

	gl.BindVertexArray(0)
	return gpu
}

// ensureUploaded returns the GPU copy of mesh, uploading it on first use.
func (r *Renderer) ensureUploaded(mesh *graphics.Mesh) *GPUMesh {
	if gpu, ok := r.gpuMeshes[mesh]; ok {
		return gpu
	}
	gpu := uploadMesh(mesh)
	if gpu == nil {
		return nil
	}
	r.gpuMeshes[mesh] = gpu
	mesh.GPUData = gpu
	return gpu
}

// walkmeshMesh converts walkmesh faces to a mesh whose first texture
// coordinate carries the face material.
func walkmeshMesh(w *graphics.Walkmesh) *graphics.Mesh {
	vertices := make([]core.Vertex, 0, 3*len(w.Faces))
	for _, f := range w.Faces {
		uv := mgl32.Vec2{float32(f.Material), 0}
		for _, p := range f.Vertices {
			vertices = append(vertices, core.Vertex{Position: p, Normal: f.Normal, UV: uv, Color: core.ColorWhite})
		}
	}
	return graphics.NewMesh(w.Name, vertices, nil)
}

func (r *Renderer) ensureWalkmeshUploaded(w *graphics.Walkmesh) *GPUMesh {
	if gpu, ok := r.gpuWalkmeshes[w]; ok {
		return gpu
	}
	gpu := uploadMesh(walkmeshMesh(w))
	if gpu == nil {
		return nil
	}
	r.gpuWalkmeshes[w] = gpu
	return gpu
}

// ── Streaming ────────────────────────────────────────────────────────────────

// streamBuffer is a dynamic vertex buffer of interleaved floats, grown on
// demand and refilled every draw.
type streamBuffer struct {
	vao, vbo uint32
	capacity int // floats
}

// newStreamBuffer lays out consecutive float attributes of the given sizes.
func newStreamBuffer(sizes ...int32) *streamBuffer {
	b := &streamBuffer{}
	gl.GenVertexArrays(1, &b.vao)
	gl.GenBuffers(1, &b.vbo)
	gl.BindVertexArray(b.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, b.vbo)

	var stride int32
	for _, s := range sizes {
		stride += s * 4
	}
	offset := 0
	for i, s := range sizes {
		gl.EnableVertexAttribArray(uint32(i))
		gl.VertexAttribPointer(uint32(i), s, gl.FLOAT, false, stride, gl.PtrOffset(offset))
		offset += int(s) * 4
	}
	gl.BindVertexArray(0)
	return b
}

func (b *streamBuffer) upload(data []float32) {
	gl.BindBuffer(gl.ARRAY_BUFFER, b.vbo)
	if len(data) > b.capacity {
		gl.BufferData(gl.ARRAY_BUFFER, len(data)*4, gl.Ptr(data), gl.DYNAMIC_DRAW)
		b.capacity = len(data)
	} else if len(data) > 0 {
		gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(data)*4, gl.Ptr(data))
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
}

func (b *streamBuffer) draw(mode uint32, count int32) {
	gl.BindVertexArray(b.vao)
	gl.DrawArrays(mode, 0, count)
	gl.BindVertexArray(0)
}

func (b *streamBuffer) destroy() {
	gl.DeleteVertexArrays(1, &b.vao)
	gl.DeleteBuffers(1, &b.vbo)
}
