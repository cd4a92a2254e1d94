package scene

import (
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"

	"kotor-render/graphics"
)

// GrassRadius is the distance from the camera within which grass faces get
// clusters.
const GrassRadius = 16.0

// GrassProperties describe how a grass root covers its faces.
type GrassProperties struct {
	Density       float32    // clusters per square unit
	QuadSize      float32    // billboard size
	Probabilities mgl32.Vec4 // chance of each of the four texture variants
	Materials     graphics.MaterialSet
	Texture       string
}

// GrassSceneNode materialises grass clusters on the faces of an AABB mesh
// whose material is in the grass set, but only around the camera.
type GrassSceneNode struct {
	SceneNode

	props    GrassProperties
	aabbNode *graphics.ModelNode

	faces    []grassFace
	clusters map[int][]*GrassClusterSceneNode
}

type grassFace struct {
	index    int
	vertices [3]mgl32.Vec3
	centroid mgl32.Vec3
	area     float32
}

func newGrass(graph *SceneGraph, props GrassProperties, aabbNode *graphics.ModelNode) *GrassSceneNode {
	g := &GrassSceneNode{
		props:    props,
		aabbNode: aabbNode,
		clusters: make(map[int][]*GrassClusterSceneNode),
	}
	g.init(g, NodeGrass, "grass", graph)

	if aabbNode != nil && aabbNode.Mesh != nil && aabbNode.Mesh.Mesh != nil {
		mesh := aabbNode.Mesh.Mesh
		rest := aabbNode.AbsoluteRestTransform()
		for i := 0; i < mesh.NumFaces(); i++ {
			if !props.Materials.Has(mesh.FaceMaterial(i)) {
				continue
			}
			f := graphics.Face{Vertices: mesh.Face(i)}
			for j := range f.Vertices {
				f.Vertices[j] = mgl32.TransformCoordinate(f.Vertices[j], rest)
			}
			g.faces = append(g.faces, grassFace{
				index:    i,
				vertices: f.Vertices,
				centroid: f.Centroid(),
				area:     f.Area(),
			})
		}
	}
	return g
}

func (g *GrassSceneNode) Properties() GrassProperties { return g.props }

// NumClusters returns the number of materialised clusters.
func (g *GrassSceneNode) NumClusters() int {
	return len(g.children)
}

func (g *GrassSceneNode) update(dt float32) {
	camera := g.graph.ActiveCamera()
	if camera == nil {
		return
	}
	// Work in the node's space: faces are stored relative to it.
	cameraPos := mgl32.TransformCoordinate(camera.Origin(), g.AbsoluteTransformInverse())
	const radius2 = GrassRadius * GrassRadius

	for _, face := range g.faces {
		d := face.centroid.Sub(cameraPos)
		_, materialised := g.clusters[face.index]
		inRange := d.Dot(d) < radius2
		switch {
		case inRange && !materialised:
			g.materialise(face)
		case !inRange && materialised:
			g.dematerialise(face.index)
		}
	}
}

func (g *GrassSceneNode) materialise(face grassFace) {
	count := int(face.area * g.props.Density)
	rng := rand.New(rand.NewSource(int64(face.index)))
	clusters := make([]*GrassClusterSceneNode, 0, count)
	for i := 0; i < count; i++ {
		// Uniform barycentric sample
		u, v := rng.Float32(), rng.Float32()
		if u+v > 1 {
			u, v = 1-u, 1-v
		}
		e1 := face.vertices[1].Sub(face.vertices[0])
		e2 := face.vertices[2].Sub(face.vertices[0])
		pos := face.vertices[0].Add(e1.Mul(u)).Add(e2.Mul(v))

		c := &GrassClusterSceneNode{variant: pickVariant(g.props.Probabilities, rng.Float32())}
		c.init(c, NodeGrassCluster, "grass_cluster", g.graph)
		c.localTransform = mgl32.Translate3D(pos[0], pos[1], pos[2])
		g.AddChild(c)
		clusters = append(clusters, c)
	}
	g.clusters[face.index] = clusters
}

func (g *GrassSceneNode) dematerialise(faceIndex int) {
	for _, c := range g.clusters[faceIndex] {
		g.RemoveChild(c)
	}
	delete(g.clusters, faceIndex)
}

// pickVariant maps r in [0, 1) onto the cumulative probabilities.
func pickVariant(probabilities mgl32.Vec4, r float32) int {
	var sum float32
	for i := 0; i < 3; i++ {
		sum += probabilities[i]
		if r < sum {
			return i
		}
	}
	return 3
}

func (g *GrassSceneNode) drawLeafs(p Painter, leafs []Node, scratch []Billboard) []Billboard {
	scratch = scratch[:0]
	for _, leaf := range leafs {
		c, ok := leaf.(*GrassClusterSceneNode)
		if !ok {
			continue
		}
		scratch = append(scratch, Billboard{
			Position: c.Origin(),
			Size:     g.props.QuadSize,
			Color:    mgl32.Vec4{1, 1, 1, 1},
			Frame:    c.variant,
		})
	}
	p.DrawBillboards(BillboardBatch{
		Texture:    g.props.Texture,
		Blend:      graphics.EmitterBlendNormal,
		GridWidth:  2,
		GridHeight: 2,
		Billboards: scratch,
	})
	return scratch
}

// GrassClusterSceneNode is one tuft of grass.
type GrassClusterSceneNode struct {
	SceneNode
	variant int
}

func (c *GrassClusterSceneNode) Variant() int { return c.variant }
