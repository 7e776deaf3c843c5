// Package importance scores mesh vertices by visual salience. Two
// analyzers contribute: a texture-space pass over material images and a
// view-space pass over software-rendered canonical viewpoints. Scores
// feed the simplifier's vertex lock mask so salient regions survive LOD
// reduction.
package importance

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/glbopt/pkg/imaging"
)

// Role identifies which material slot a texture is bound to. The role
// sets the texture's weight in the per-vertex score.
type Role int

// Texture roles.
const (
	RoleBaseColor Role = iota
	RoleNormal
	RoleMetallicRoughness
	RoleOcclusion
	RoleEmissive
)

// Weight returns the role's contribution weight.
func (r Role) Weight() float32 {
	switch r {
	case RoleBaseColor:
		return 1.0
	case RoleNormal:
		return 2.0
	case RoleMetallicRoughness:
		return 0.5
	case RoleOcclusion:
		return 0.3
	case RoleEmissive:
		return 0.5
	}
	return 0
}

// BoundTexture is a decoded material image with its role.
type BoundTexture struct {
	Role  Role
	Image *imaging.Image
}

// Primitive is the geometry an analyzer works on.
type Primitive struct {
	Positions []float32 // xyz triples
	UVs       []float32 // uv pairs, nil when the primitive has none
	Indices   []uint32
	Textures  []BoundTexture
}

// VertexCount returns the number of vertices.
func (p *Primitive) VertexCount() int {
	return len(p.Positions) / 3
}

// Merge combines two per-vertex score arrays by elementwise maximum.
// Either argument may be nil.
func Merge(a, b []float32) []float32 {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	out := make([]float32, len(a))
	for i := range a {
		out[i] = a[i]
		if i < len(b) && b[i] > out[i] {
			out[i] = b[i]
		}
	}
	return out
}

// DetectSeams marks vertex pairs that share a quantized position but
// differ in quantized UV. Collapsing such pairs tears the texture, so
// they get a reduced lock threshold.
func DetectSeams(positions, uvs []float32) []bool {
	count := len(positions) / 3
	seams := make([]bool, count)
	if uvs == nil {
		return seams
	}

	type posKey [3]int32
	byPos := make(map[posKey][]int, count)
	for v := 0; v < count; v++ {
		key := posKey{
			int32(math32.Round(positions[v*3] * 1e4)),
			int32(math32.Round(positions[v*3+1] * 1e4)),
			int32(math32.Round(positions[v*3+2] * 1e4)),
		}
		byPos[key] = append(byPos[key], v)
	}

	quantUV := func(v int) [2]int32 {
		return [2]int32{
			int32(math32.Round(uvs[v*2] * 1e3)),
			int32(math32.Round(uvs[v*2+1] * 1e3)),
		}
	}
	for _, group := range byPos {
		if len(group) < 2 {
			continue
		}
		first := quantUV(group[0])
		for _, v := range group[1:] {
			if quantUV(v) != first {
				for _, u := range group {
					seams[u] = true
				}
				break
			}
		}
	}
	return seams
}

// LockMask computes the simplifier vertex lock: seam vertices lock above
// half the threshold, others above the full threshold.
func LockMask(scores []float32, seams []bool, threshold float32) []bool {
	lock := make([]bool, len(scores))
	for v := range scores {
		t := threshold
		if seams != nil && seams[v] {
			t = threshold * 0.5
		}
		lock[v] = scores[v] > t
	}
	return lock
}

// normalizeMax scales scores so the maximum becomes 1. A zero maximum
// leaves the array untouched.
func normalizeMax(scores []float32) {
	var maxScore float32
	for _, s := range scores {
		if s > maxScore {
			maxScore = s
		}
	}
	if maxScore <= 0 {
		return
	}
	for i := range scores {
		scores[i] /= maxScore
	}
}

// triangleToVertex averages per-triangle scores onto vertices.
func triangleToVertex(indices []uint32, triScores []float32, vertexCount int) []float32 {
	out := make([]float32, vertexCount)
	counts := make([]int32, vertexCount)
	for t := 0; t*3 < len(indices); t++ {
		for k := 0; k < 3; k++ {
			v := indices[t*3+k]
			out[v] += triScores[t]
			counts[v]++
		}
	}
	for v := range out {
		if counts[v] > 0 {
			out[v] /= float32(counts[v])
		}
	}
	return out
}
