package optimize

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/glbopt/pkg/glb"
)

// Affine is the de-quantization transform for positions:
// p = Scale·q + Translation, componentwise.
type Affine struct {
	Scale       [3]float32
	Translation [3]float32
}

// Identity reports whether applying the affine is a no-op.
func (a Affine) Identity() bool {
	return a.Scale == [3]float32{1, 1, 1} && a.Translation == [3]float32{}
}

// UVTransform records the offset/scale applied to texture coordinates
// that fell outside [0,1] before quantization: uv = Offset + Scale·q.
// The writer does not rewrite materials to compensate; callers that care
// can.
type UVTransform struct {
	Offset [2]float32
	Scale  [2]float32
}

// QuantizePositions quantizes xyz triples to int16 (bits=16) or int8
// (bits=8) around the per-axis bounding box center. The returned affine
// reconstructs the original coordinates. Axes with zero extent quantize
// to 0 with scale 1, so constants round-trip exactly.
func QuantizePositions(pos []float32, bits int) (*AttrData, Affine) {
	maxValue := float32(32767)
	if bits == 8 {
		maxValue = 127
	}

	count := len(pos) / 3
	var mins, maxs [3]float32
	for k := 0; k < 3; k++ {
		mins[k] = math32.Inf(1)
		maxs[k] = math32.Inf(-1)
	}
	for e := 0; e < count; e++ {
		for k := 0; k < 3; k++ {
			v := pos[e*3+k]
			if v < mins[k] {
				mins[k] = v
			}
			if v > maxs[k] {
				maxs[k] = v
			}
		}
	}

	var affine Affine
	for k := 0; k < 3; k++ {
		if count == 0 {
			mins[k], maxs[k] = 0, 0
		}
		affine.Translation[k] = (mins[k] + maxs[k]) / 2
		extent := maxs[k] - mins[k]
		if extent == 0 {
			affine.Scale[k] = 1
		} else {
			affine.Scale[k] = extent / (2 * maxValue)
		}
	}

	quantize := func(e, k int) float32 {
		q := math32.Round((pos[e*3+k] - affine.Translation[k]) / affine.Scale[k])
		if q > maxValue {
			q = maxValue
		}
		if q < -maxValue {
			q = -maxValue
		}
		return q
	}

	if bits == 8 {
		out := &AttrData{ComponentType: glb.ComponentInt8, Components: 3, I8: make([]int8, count*3)}
		for e := 0; e < count; e++ {
			for k := 0; k < 3; k++ {
				out.I8[e*3+k] = int8(quantize(e, k))
			}
		}
		return out, affine
	}
	out := &AttrData{ComponentType: glb.ComponentInt16, Components: 3, I16: make([]int16, count*3)}
	for e := 0; e < count; e++ {
		for k := 0; k < 3; k++ {
			out.I16[e*3+k] = int16(quantize(e, k))
		}
	}
	return out, affine
}

// QuantizeNormals quantizes unit xyz triples to normalized int8. Inputs
// are renormalized first; zero-length normals quantize to zero.
func QuantizeNormals(normals []float32) *AttrData {
	count := len(normals) / 3
	out := &AttrData{
		ComponentType: glb.ComponentInt8,
		Components:    3,
		Normalized:    true,
		I8:            make([]int8, count*3),
	}
	for e := 0; e < count; e++ {
		x, y, z := normals[e*3], normals[e*3+1], normals[e*3+2]
		if l := math32.Sqrt(x*x + y*y + z*z); l > 0 {
			x, y, z = x/l, y/l, z/l
		}
		out.I8[e*3] = quantizeSnorm8(x)
		out.I8[e*3+1] = quantizeSnorm8(y)
		out.I8[e*3+2] = quantizeSnorm8(z)
	}
	return out
}

// QuantizeTangents quantizes vec4 tangents to normalized int8: xyz like
// a normal, w snapped to ±127 to preserve handedness.
func QuantizeTangents(tangents []float32) *AttrData {
	count := len(tangents) / 4
	out := &AttrData{
		ComponentType: glb.ComponentInt8,
		Components:    4,
		Normalized:    true,
		I8:            make([]int8, count*4),
	}
	for e := 0; e < count; e++ {
		x, y, z, w := tangents[e*4], tangents[e*4+1], tangents[e*4+2], tangents[e*4+3]
		if l := math32.Sqrt(x*x + y*y + z*z); l > 0 {
			x, y, z = x/l, y/l, z/l
		}
		out.I8[e*4] = quantizeSnorm8(x)
		out.I8[e*4+1] = quantizeSnorm8(y)
		out.I8[e*4+2] = quantizeSnorm8(z)
		if w >= 0 {
			out.I8[e*4+3] = 127
		} else {
			out.I8[e*4+3] = -127
		}
	}
	return out
}

// QuantizeUVs quantizes uv pairs to normalized uint16. Coordinates
// already inside [0,1] quantize directly and return a nil transform;
// otherwise they are offset/scaled into [0,1] first and the transform is
// returned for the caller to record.
func QuantizeUVs(uvs []float32) (*AttrData, *UVTransform) {
	count := len(uvs) / 2
	out := &AttrData{
		ComponentType: glb.ComponentUint16,
		Components:    2,
		Normalized:    true,
		U16:           make([]uint16, count*2),
	}

	inRange := true
	var mins, maxs [2]float32
	mins = [2]float32{math32.Inf(1), math32.Inf(1)}
	maxs = [2]float32{math32.Inf(-1), math32.Inf(-1)}
	for e := 0; e < count; e++ {
		for k := 0; k < 2; k++ {
			v := uvs[e*2+k]
			if v < 0 || v > 1 {
				inRange = false
			}
			if v < mins[k] {
				mins[k] = v
			}
			if v > maxs[k] {
				maxs[k] = v
			}
		}
	}

	if inRange || count == 0 {
		for i, v := range uvs {
			out.U16[i] = quantizeUnorm16(v)
		}
		return out, nil
	}

	var tr UVTransform
	for k := 0; k < 2; k++ {
		tr.Offset[k] = mins[k]
		tr.Scale[k] = maxs[k] - mins[k]
		if tr.Scale[k] == 0 {
			tr.Scale[k] = 1
		}
	}
	for e := 0; e < count; e++ {
		for k := 0; k < 2; k++ {
			out.U16[e*2+k] = quantizeUnorm16((uvs[e*2+k] - tr.Offset[k]) / tr.Scale[k])
		}
	}
	return out, &tr
}

func quantizeSnorm8(v float32) int8 {
	q := math32.Round(v * 127)
	if q > 127 {
		q = 127
	}
	if q < -127 {
		q = -127
	}
	return int8(q)
}

func quantizeUnorm16(v float32) uint16 {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return uint16(math32.Round(v * 65535))
}
