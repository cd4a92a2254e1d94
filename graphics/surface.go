package graphics

import "sort"

// MaterialSet is a set of walkmesh surface material indices.
type MaterialSet map[uint32]struct{}

func NewMaterialSet(materials ...uint32) MaterialSet {
	s := make(MaterialSet, len(materials))
	for _, m := range materials {
		s[m] = struct{}{}
	}
	return s
}

// Has reports whether m is in the set. A nil set contains nothing.
func (s MaterialSet) Has(m uint32) bool {
	_, ok := s[m]
	return ok
}

func (s MaterialSet) Add(m uint32) {
	s[m] = struct{}{}
}

// Sorted returns the materials in ascending order.
func (s MaterialSet) Sorted() []uint32 {
	out := make([]uint32, 0, len(s))
	for m := range s {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Surfaces groups the material sets collision queries and grass filter on.
type Surfaces struct {
	Walkable    MaterialSet
	Walkcheck   MaterialSet
	LineOfSight MaterialSet
	Grass       MaterialSet
}
