package optimize

import (
	"testing"

	"github.com/chewxy/math32"

	"github.com/Faultbox/glbopt/pkg/glb"
)

func TestQuantizePositions_RoundTripBound(t *testing.T) {
	tests := []struct {
		name string
		bits int
		max  float32 // maxValue for the width
	}{
		{"int16", 16, 32767},
		{"int8", 8, 127},
	}

	positions := []float32{
		0, 0, 0,
		1, 0, 0,
		0, 1, 0,
		-2.5, 3.25, 0.75,
		10, -10, 4.125,
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, affine := QuantizePositions(positions, tt.bits)

			// Rounding error is at most half a quantization step per
			// axis; the check allows one full step, range/(2·maxValue).
			var ranges [3]float32
			for k := 0; k < 3; k++ {
				lo, hi := math32.Inf(1), math32.Inf(-1)
				for e := 0; e*3 < len(positions); e++ {
					v := positions[e*3+k]
					if v < lo {
						lo = v
					}
					if v > hi {
						hi = v
					}
				}
				ranges[k] = hi - lo
			}

			for e := 0; e*3 < len(positions); e++ {
				for k := 0; k < 3; k++ {
					var qv float32
					if tt.bits == 8 {
						qv = float32(q.I8[e*3+k])
					} else {
						qv = float32(q.I16[e*3+k])
					}
					got := affine.Scale[k]*qv + affine.Translation[k]
					bound := ranges[k]/(2*tt.max) + 1e-5
					if diff := math32.Abs(got - positions[e*3+k]); diff > bound {
						t.Errorf("vertex %d axis %d: reconstructed %v, want %v (±%v)", e, k, got, positions[e*3+k], bound)
					}
				}
			}
		})
	}
}

func TestQuantizePositions_FlatAxis(t *testing.T) {
	// All z values identical: the axis must use scale 1 and recover the
	// constant exactly.
	positions := []float32{
		0, 0, 7.5,
		1, 0, 7.5,
		0, 1, 7.5,
	}
	q, affine := QuantizePositions(positions, 16)
	if affine.Scale[2] != 1 {
		t.Errorf("flat axis scale = %v, want 1", affine.Scale[2])
	}
	for e := 0; e < 3; e++ {
		got := affine.Scale[2]*float32(q.I16[e*3+2]) + affine.Translation[2]
		if got != 7.5 {
			t.Errorf("vertex %d: z = %v, want exactly 7.5", e, got)
		}
	}
}

func TestQuantizePositions_RangeInvariant(t *testing.T) {
	positions := []float32{-100, 0, 55, 3, -8, 0.001, 42, 42, -42}
	q, _ := QuantizePositions(positions, 16)
	for i, v := range q.I16 {
		if v > 32767 || v < -32767 {
			t.Errorf("component %d = %d outside ±32767", i, v)
		}
	}
}

func TestQuantizeNormals(t *testing.T) {
	normals := []float32{
		0, 0, 1,
		0, 3, 0, // not unit length; must renormalize
		1, 1, 1,
	}
	q := QuantizeNormals(normals)
	if !q.Normalized {
		t.Error("normal accessor must be normalized")
	}
	if q.I8[2] != 127 {
		t.Errorf("unit z component = %d, want 127", q.I8[2])
	}
	if q.I8[4] != 127 {
		t.Errorf("renormalized y component = %d, want 127", q.I8[4])
	}
	// (1,1,1)/sqrt(3) ≈ 0.577 → round(73.3) = 73.
	if q.I8[6] != 73 {
		t.Errorf("diagonal component = %d, want 73", q.I8[6])
	}
}

func TestQuantizeUVs_InRange(t *testing.T) {
	uvs := []float32{0, 0, 1, 1, 0.5, 0.25}
	q, tr := QuantizeUVs(uvs)
	if tr != nil {
		t.Fatal("in-range UVs must not produce a transform")
	}
	if !q.Normalized {
		t.Error("UV accessor must be normalized")
	}
	want := []uint16{0, 0, 65535, 65535, 32768, 16384}
	for i := range want {
		if q.U16[i] != want[i] {
			t.Errorf("component %d = %d, want %d", i, q.U16[i], want[i])
		}
	}
}

func TestQuantizeUVs_OutOfRange(t *testing.T) {
	uvs := []float32{-1, 0, 3, 2}
	q, tr := QuantizeUVs(uvs)
	if tr == nil {
		t.Fatal("out-of-range UVs must produce a transform")
	}
	// Reconstruct through the recorded transform.
	for e := 0; e < 2; e++ {
		for k := 0; k < 2; k++ {
			norm := float32(q.U16[e*2+k]) / 65535
			got := tr.Offset[k] + tr.Scale[k]*norm
			want := uvs[e*2+k]
			if diff := math32.Abs(got - want); diff > 1e-3 {
				t.Errorf("uv %d.%d: reconstructed %v, want %v", e, k, got, want)
			}
		}
	}
}

func TestQuantizeTangents_Handedness(t *testing.T) {
	tangents := []float32{
		1, 0, 0, 1,
		0, 1, 0, -1,
		0, 0, 1, 0, // w = 0 counts as positive
	}
	q := QuantizeTangents(tangents)
	if q.I8[3] != 127 || q.I8[7] != -127 || q.I8[11] != 127 {
		t.Errorf("w components = %d, %d, %d; want 127, -127, 127", q.I8[3], q.I8[7], q.I8[11])
	}
	if q.ComponentType != glb.ComponentInt8 || q.Components != 4 {
		t.Errorf("tangent layout = %d×%d, want int8 vec4", q.ComponentType, q.Components)
	}
}

func TestQuantizeUVs_HalfStep(t *testing.T) {
	// 0.5·65535 = 32767.5, which rounds half away from zero to 32768.
	q, _ := QuantizeUVs([]float32{0.5, 0.5})
	if q.U16[0] != 32768 {
		t.Errorf("0.5 quantized to %d, want 32768", q.U16[0])
	}
}
