package importance

import (
	"context"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/glbopt/pkg/imaging"
)

// viewSize is the square resolution of each canonical viewpoint render.
const viewSize = 512

// viewDirections lists the 12 canonical viewpoints: the 6 axis
// directions plus 6 cube diagonals.
func viewDirections() []mgl32.Vec3 {
	dirs := []mgl32.Vec3{
		{1, 0, 0}, {-1, 0, 0},
		{0, 1, 0}, {0, -1, 0},
		{0, 0, 1}, {0, 0, -1},
		{1, 1, 1}, {-1, 1, 1}, {1, -1, 1}, {1, 1, -1}, {-1, -1, 1}, {-1, 1, -1},
	}
	for i := range dirs {
		dirs[i] = dirs[i].Normalize()
	}
	return dirs
}

// ViewScores renders every primitive from the canonical viewpoints and
// accumulates per-triangle salience: the Sobel magnitude of the shaded
// image at each pixel the triangle covers, averaged over its visible
// pixel count, then normalized per primitive and projected to vertices.
// The context is checked between views.
func ViewScores(ctx context.Context, prims []*Primitive) ([][]float32, error) {
	// Global triangle ids are contiguous in primitive order.
	var tris []rasterTri
	triBase := make([]int, len(prims))
	totalTris := 0
	for pi, p := range prims {
		triBase[pi] = totalTris
		totalTris += len(p.Indices) / 3
	}
	if totalTris == 0 {
		out := make([][]float32, len(prims))
		for pi, p := range prims {
			out[pi] = make([]float32, p.VertexCount())
		}
		return out, nil
	}

	center, scale := sceneFrame(prims)
	for pi, p := range prims {
		baseColor := primBaseColor(p)
		for t := 0; t*3 < len(p.Indices); t++ {
			var rt rasterTri
			rt.id = int32(triBase[pi] + t)
			rt.tex = baseColor
			for k := 0; k < 3; k++ {
				v := p.Indices[t*3+k]
				rt.p[k] = mgl32.Vec3{
					(p.Positions[v*3] - center[0]) * scale,
					(p.Positions[v*3+1] - center[1]) * scale,
					(p.Positions[v*3+2] - center[2]) * scale,
				}
				if p.UVs != nil {
					rt.uv[k] = mgl32.Vec2{p.UVs[v*2], p.UVs[v*2+1]}
				}
			}
			tris = append(tris, rt)
		}
	}

	accum := make([]float32, totalTris)
	visibility := make([]float32, totalTris)

	for _, dir := range viewDirections() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		luma, ids := renderView(tris, dir, viewSize)
		for y := 0; y < viewSize; y++ {
			for x := 0; x < viewSize; x++ {
				id := ids[y*viewSize+x]
				if id == 0 {
					continue
				}
				mag := sobelMagnitude(luma, viewSize, viewSize, x, y)
				accum[id-1] += mag
				visibility[id-1]++
			}
		}
	}

	// Per-triangle: mean salience over visible pixels, then split the
	// global array back per primitive.
	out := make([][]float32, len(prims))
	for pi, p := range prims {
		n := len(p.Indices) / 3
		triScores := make([]float32, n)
		for t := 0; t < n; t++ {
			g := triBase[pi] + t
			if visibility[g] > 0 {
				triScores[t] = accum[g] / visibility[g]
			}
		}
		normalizeMax(triScores)
		out[pi] = triangleToVertex(p.Indices, triScores, p.VertexCount())
	}
	return out, nil
}

// primBaseColor picks the texture used for the shaded pass: base color
// when bound, otherwise any bound image.
func primBaseColor(p *Primitive) *imaging.Image {
	for _, bt := range p.Textures {
		if bt.Role == RoleBaseColor && bt.Image != nil {
			return bt.Image
		}
	}
	for _, bt := range p.Textures {
		if bt.Image != nil {
			return bt.Image
		}
	}
	return nil
}

// sceneFrame returns the center and 2/maxDim scale that fit every
// primitive into a unit cube at the origin.
func sceneFrame(prims []*Primitive) (center [3]float32, scale float32) {
	var mins, maxs [3]float32
	for k := 0; k < 3; k++ {
		mins[k] = math32.Inf(1)
		maxs[k] = math32.Inf(-1)
	}
	any := false
	for _, p := range prims {
		for v := 0; v < p.VertexCount(); v++ {
			any = true
			for k := 0; k < 3; k++ {
				val := p.Positions[v*3+k]
				if val < mins[k] {
					mins[k] = val
				}
				if val > maxs[k] {
					maxs[k] = val
				}
			}
		}
	}
	if !any {
		return [3]float32{}, 1
	}
	maxDim := float32(0)
	for k := 0; k < 3; k++ {
		center[k] = (mins[k] + maxs[k]) / 2
		if d := maxs[k] - mins[k]; d > maxDim {
			maxDim = d
		}
	}
	if maxDim == 0 {
		return center, 1
	}
	return center, 2 / maxDim
}
