package importance

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/glbopt/pkg/imaging"
)

// Map-building weights: Sobel edge magnitude dominates, local variance
// fills in low-contrast detail.
const (
	sobelWeight    = 0.6
	varianceWeight = 0.4
	varianceWindow = 5
)

// BuildImageMap computes a dense per-pixel importance map for an image:
// sobelWeight·edges + varianceWeight·local variance, both clamped to
// [0,1].
func BuildImageMap(img *imaging.Image) []float32 {
	w, h := img.Width, img.Height
	luma := make([]float32, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			luma[y*w+x] = img.Luma(x, y)
		}
	}

	out := make([]float32, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			edge := clamp01(sobelMagnitude(luma, w, h, x, y))
			vari := clamp01(localVariance(luma, w, h, x, y))
			out[y*w+x] = sobelWeight*edge + varianceWeight*vari
		}
	}
	return out
}

// sobelMagnitude is the 3×3 Sobel gradient magnitude at (x, y); samples
// clamp at the border. Samples are taken relative to the center pixel so
// a constant neighborhood yields exactly 0.
func sobelMagnitude(luma []float32, w, h, x, y int) float32 {
	center := luma[y*w+x]
	at := func(dx, dy int) float32 {
		return luma[clampInt(y+dy, 0, h-1)*w+clampInt(x+dx, 0, w-1)] - center
	}
	gx := -at(-1, -1) - 2*at(-1, 0) - at(-1, 1) +
		at(1, -1) + 2*at(1, 0) + at(1, 1)
	gy := -at(-1, -1) - 2*at(0, -1) - at(1, -1) +
		at(-1, 1) + 2*at(0, 1) + at(1, 1)
	return math32.Sqrt(gx*gx + gy*gy)
}

// localVariance is the luminance variance over a 5×5 window centered at
// (x, y), accumulated relative to the center pixel so a constant window
// yields exactly 0.
func localVariance(luma []float32, w, h, x, y int) float32 {
	const r = varianceWindow / 2
	center := luma[y*w+x]
	var sum, sumSq float32
	n := float32(0)
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			v := luma[clampInt(y+dy, 0, h-1)*w+clampInt(x+dx, 0, w-1)] - center
			sum += v
			sumSq += v * v
			n++
		}
	}
	mean := sum / n
	return sumSq/n - mean*mean
}

// TextureScores samples each bound texture's importance map at every
// vertex UV and combines them by role weight. Returns nil when the
// primitive has no UVs or no textures to sample.
func TextureScores(p *Primitive) []float32 {
	if p.UVs == nil || len(p.Textures) == 0 {
		return nil
	}

	type weighted struct {
		m      []float32
		w, h   int
		weight float32
	}
	var maps []weighted
	var totalWeight float32
	for _, bt := range p.Textures {
		if bt.Image == nil || bt.Image.Width == 0 || bt.Image.Height == 0 {
			continue
		}
		weight := bt.Role.Weight()
		if weight == 0 {
			continue
		}
		maps = append(maps, weighted{
			m: BuildImageMap(bt.Image), w: bt.Image.Width, h: bt.Image.Height, weight: weight,
		})
		totalWeight += weight
	}
	if len(maps) == 0 || totalWeight == 0 {
		return nil
	}

	count := p.VertexCount()
	scores := make([]float32, count)
	for v := 0; v < count; v++ {
		u := wrap01(p.UVs[v*2])
		t := wrap01(p.UVs[v*2+1])
		var sum float32
		for _, m := range maps {
			sum += m.weight * bilinear(m.m, m.w, m.h, u, t)
		}
		scores[v] = sum / totalWeight
	}
	normalizeMax(scores)
	return scores
}

// bilinear samples a dense map at normalized coordinates.
func bilinear(m []float32, w, h int, u, v float32) float32 {
	fx := u * float32(w-1)
	fy := v * float32(h-1)
	x0 := clampInt(int(fx), 0, w-1)
	y0 := clampInt(int(fy), 0, h-1)
	x1 := clampInt(x0+1, 0, w-1)
	y1 := clampInt(y0+1, 0, h-1)
	tx := fx - float32(x0)
	ty := fy - float32(y0)

	top := m[y0*w+x0]*(1-tx) + m[y0*w+x1]*tx
	bot := m[y1*w+x0]*(1-tx) + m[y1*w+x1]*tx
	return top*(1-ty) + bot*ty
}

func wrap01(v float32) float32 {
	v -= math32.Floor(v)
	if v < 0 || v >= 1 {
		return 0
	}
	return v
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
