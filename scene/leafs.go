package scene

// prepareOpaqueLeafs groups the in-frustum clusters of each grass root into
// buckets of at most MaxGrassClusters. Buckets never span two roots.
func (g *SceneGraph) prepareOpaqueLeafs() {
	g.opaqueLeafs = g.opaqueLeafs[:0]
	pool := g.opaqueLeafPool[:0]
	camera := g.activeCamera

	for _, kv := range g.grassRoots.Order {
		grass := kv.Key
		if !grass.IsEnabled() {
			continue
		}
		start := len(pool)
		for _, child := range grass.children {
			cluster, ok := child.(*GrassClusterSceneNode)
			if !ok || !camera.IsInFrustum(cluster.Origin()) {
				continue
			}
			if len(pool)-start >= MaxGrassClusters {
				g.opaqueLeafs = append(g.opaqueLeafs, LeafBucket{Parent: grass, Leafs: pool[start:len(pool):len(pool)]})
				start = len(pool)
			}
			pool = append(pool, cluster)
		}
		if len(pool) > start {
			g.opaqueLeafs = append(g.opaqueLeafs, LeafBucket{Parent: grass, Leafs: pool[start:len(pool):len(pool)]})
		}
	}
	g.opaqueLeafPool = pool
}

// prepareTransparentLeafs collects transparent meshes, then visible particles
// of every emitter, and groups consecutive leafs with the same parent. Meshes
// are grouped under their model. Leafs are not depth sorted.
func (g *SceneGraph) prepareTransparentLeafs() {
	g.transparentLeafs = g.transparentLeafs[:0]
	leafs := g.transparentLeafPool[:0]
	camera := g.activeCamera

	for _, mesh := range g.transparentMeshes {
		leafs = append(leafs, mesh)
	}
	for _, emitter := range g.emitters {
		for _, child := range emitter.children {
			particle, ok := child.(*ParticleSceneNode)
			if !ok || !camera.IsInFrustum(particle.Origin()) {
				continue
			}
			leafs = append(leafs, particle)
		}
	}

	var bucketParent Node
	start := 0
	for i, leaf := range leafs {
		parent := leafParent(leaf)
		if i > start {
			if bucketParent != parent || i-start >= maxBucketSize(parent) {
				g.transparentLeafs = append(g.transparentLeafs, LeafBucket{Parent: bucketParent, Leafs: leafs[start:i:i]})
				start = i
			}
		}
		bucketParent = parent
	}
	if bucketParent != nil && len(leafs) > start {
		g.transparentLeafs = append(g.transparentLeafs, LeafBucket{Parent: bucketParent, Leafs: leafs[start:len(leafs):len(leafs)]})
	}
	g.transparentLeafPool = leafs
}

func leafParent(leaf Node) Node {
	if mesh, ok := leaf.(*MeshSceneNode); ok && mesh.model != nil {
		return mesh.model
	}
	return leaf.Parent()
}

func maxBucketSize(parent Node) int {
	switch parent.(type) {
	case *EmitterSceneNode:
		return MaxParticles
	case *GrassSceneNode:
		return MaxGrassClusters
	}
	return 1
}
