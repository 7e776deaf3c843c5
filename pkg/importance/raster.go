package importance

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/glbopt/pkg/imaging"
)

// rasterTri is one triangle prepared for rendering: scene-normalized
// positions, UVs, its base-color texture and a global triangle id.
type rasterTri struct {
	p   [3]mgl32.Vec3
	uv  [3]mgl32.Vec2
	tex *imaging.Image
	id  int32 // global triangle index
}

// frame is an orthographic view basis.
type frame struct {
	right, up, forward mgl32.Vec3
}

// viewFrame builds a right-handed basis looking along -dir.
func viewFrame(dir mgl32.Vec3) frame {
	up := mgl32.Vec3{0, 1, 0}
	if dir.Y() > 0.9 || dir.Y() < -0.9 {
		up = mgl32.Vec3{1, 0, 0}
	}
	right := up.Cross(dir).Normalize()
	up = dir.Cross(right).Normalize()
	return frame{right: right, up: up, forward: dir}
}

// orthoRange maps the unit-cube scene into the viewport with a margin
// that keeps diagonal views inside the frame.
const orthoRange = 1.8

// renderView rasterizes the triangle set from one direction into a luma
// buffer (textured lambert shading) and a triangle-id buffer (id+1, 0
// meaning background). Depth increases towards the camera.
func renderView(tris []rasterTri, dir mgl32.Vec3, size int) (luma []float32, ids []int32) {
	f := viewFrame(dir)
	luma = make([]float32, size*size)
	ids = make([]int32, size*size)
	depth := make([]float32, size*size)
	for i := range depth {
		depth[i] = -1e30
	}

	half := float32(size) / 2
	project := func(p mgl32.Vec3) (x, y, z float32) {
		x = (p.Dot(f.right)/orthoRange + 1) * half
		y = (1 - p.Dot(f.up)/orthoRange) * half
		z = p.Dot(f.forward)
		return
	}

	for ti := range tris {
		tri := &tris[ti]
		x0, y0, z0 := project(tri.p[0])
		x1, y1, z1 := project(tri.p[1])
		x2, y2, z2 := project(tri.p[2])

		area := (x1-x0)*(y2-y0) - (x2-x0)*(y1-y0)
		if area == 0 {
			continue
		}

		// Flat lambert term against the view direction.
		n := tri.p[1].Sub(tri.p[0]).Cross(tri.p[2].Sub(tri.p[0]))
		shade := float32(1)
		if l := n.Len(); l > 0 {
			d := n.Mul(1 / l).Dot(f.forward)
			if d < 0 {
				d = -d
			}
			shade = 0.2 + 0.8*d
		}

		minX := clampInt(int(min3(x0, x1, x2)), 0, size-1)
		maxX := clampInt(int(max3(x0, x1, x2))+1, 0, size-1)
		minY := clampInt(int(min3(y0, y1, y2)), 0, size-1)
		maxY := clampInt(int(max3(y0, y1, y2))+1, 0, size-1)

		for py := minY; py <= maxY; py++ {
			for px := minX; px <= maxX; px++ {
				cx := float32(px) + 0.5
				cy := float32(py) + 0.5
				w0 := ((x1-cx)*(y2-cy) - (x2-cx)*(y1-cy)) / area
				w1 := ((x2-cx)*(y0-cy) - (x0-cx)*(y2-cy)) / area
				w2 := 1 - w0 - w1
				if w0 < 0 || w1 < 0 || w2 < 0 {
					continue
				}
				z := w0*z0 + w1*z1 + w2*z2
				i := py*size + px
				if z <= depth[i] {
					continue
				}
				depth[i] = z
				ids[i] = tri.id + 1

				texLuma := float32(1)
				if tri.tex != nil {
					u := wrap01(w0*tri.uv[0].X() + w1*tri.uv[1].X() + w2*tri.uv[2].X())
					v := wrap01(w0*tri.uv[0].Y() + w1*tri.uv[1].Y() + w2*tri.uv[2].Y())
					tx := int(u * float32(tri.tex.Width-1))
					ty := int(v * float32(tri.tex.Height-1))
					texLuma = tri.tex.Luma(tx, ty)
				}
				luma[i] = shade * texLuma
			}
		}
	}
	return luma, ids
}

func min3(a, b, c float32) float32 {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

func max3(a, b, c float32) float32 {
	if b > a {
		a = b
	}
	if c > a {
		a = c
	}
	return a
}
