package optimize

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Faultbox/glbopt/pkg/glb"
)

// AttrData is a tagged variant over component type × arity. Exactly one
// payload slice is populated, matching ComponentType. Every pipeline
// stage dispatches on the tag instead of reinterpreting raw bytes.
type AttrData struct {
	ComponentType int
	Components    int
	Normalized    bool

	F32 []float32
	I8  []int8
	U8  []uint8
	I16 []int16
	U16 []uint16
	U32 []uint32
}

// Count returns the number of elements (not components).
func (d *AttrData) Count() int {
	return d.componentLen() / d.Components
}

func (d *AttrData) componentLen() int {
	switch d.ComponentType {
	case glb.ComponentFloat:
		return len(d.F32)
	case glb.ComponentInt8:
		return len(d.I8)
	case glb.ComponentUint8:
		return len(d.U8)
	case glb.ComponentInt16:
		return len(d.I16)
	case glb.ComponentUint16:
		return len(d.U16)
	case glb.ComponentUint32:
		return len(d.U32)
	}
	return 0
}

// RawStride returns the tightly packed element size in bytes.
func (d *AttrData) RawStride() int {
	return glb.ComponentSize(d.ComponentType) * d.Components
}

// PaddedStride returns the element stride padded to a 4-byte multiple,
// the layout used for emitted vertex buffer views.
func (d *AttrData) PaddedStride() int {
	return (d.RawStride() + 3) &^ 3
}

// Type returns the glTF accessor type string for the arity.
func (d *AttrData) Type() (string, error) {
	switch d.Components {
	case 1:
		return glb.TypeScalar, nil
	case 2:
		return glb.TypeVec2, nil
	case 3:
		return glb.TypeVec3, nil
	case 4:
		return glb.TypeVec4, nil
	}
	return "", fmt.Errorf("attribute arity %d has no accessor type", d.Components)
}

// Remap scatters elements into a new array of newCount elements using
// remap[old] = new. Duplicate sources map to the same slot and write
// identical data, so collisions are harmless.
func (d *AttrData) Remap(remap []uint32, newCount int) *AttrData {
	out := &AttrData{
		ComponentType: d.ComponentType,
		Components:    d.Components,
		Normalized:    d.Normalized,
	}
	c := d.Components
	switch d.ComponentType {
	case glb.ComponentFloat:
		out.F32 = remapComponents(d.F32, remap, c, newCount)
	case glb.ComponentInt8:
		out.I8 = remapComponents(d.I8, remap, c, newCount)
	case glb.ComponentUint8:
		out.U8 = remapComponents(d.U8, remap, c, newCount)
	case glb.ComponentInt16:
		out.I16 = remapComponents(d.I16, remap, c, newCount)
	case glb.ComponentUint16:
		out.U16 = remapComponents(d.U16, remap, c, newCount)
	case glb.ComponentUint32:
		out.U32 = remapComponents(d.U32, remap, c, newCount)
	}
	return out
}

func remapComponents[T any](data []T, remap []uint32, components, newCount int) []T {
	out := make([]T, newCount*components)
	for old := 0; old < len(data)/components; old++ {
		nw := int(remap[old])
		if nw < 0 || nw >= newCount {
			continue
		}
		copy(out[nw*components:(nw+1)*components], data[old*components:(old+1)*components])
	}
	return out
}

// RawBytes returns the tightly packed little-endian element bytes, as
// used for dedup hashing.
func (d *AttrData) RawBytes() []byte {
	return d.packBytes(d.RawStride())
}

// PackedBytes returns element bytes laid out at the given stride with
// zero padding. stride must be at least RawStride.
func (d *AttrData) PackedBytes(stride int) []byte {
	return d.packBytes(stride)
}

func (d *AttrData) packBytes(stride int) []byte {
	count := d.Count()
	out := make([]byte, count*stride)
	c := d.Components
	for e := 0; e < count; e++ {
		base := e * stride
		switch d.ComponentType {
		case glb.ComponentFloat:
			for k := 0; k < c; k++ {
				binary.LittleEndian.PutUint32(out[base+k*4:], math.Float32bits(d.F32[e*c+k]))
			}
		case glb.ComponentInt8:
			for k := 0; k < c; k++ {
				out[base+k] = byte(d.I8[e*c+k])
			}
		case glb.ComponentUint8:
			copy(out[base:], d.U8[e*c:(e+1)*c])
		case glb.ComponentInt16:
			for k := 0; k < c; k++ {
				binary.LittleEndian.PutUint16(out[base+k*2:], uint16(d.I16[e*c+k]))
			}
		case glb.ComponentUint16:
			for k := 0; k < c; k++ {
				binary.LittleEndian.PutUint16(out[base+k*2:], d.U16[e*c+k])
			}
		case glb.ComponentUint32:
			for k := 0; k < c; k++ {
				binary.LittleEndian.PutUint32(out[base+k*4:], d.U32[e*c+k])
			}
		}
	}
	return out
}

// MinMax returns the per-component minimum and maximum as float64, the
// form accessor bounds are written in.
func (d *AttrData) MinMax() (mins, maxs []float64) {
	c := d.Components
	count := d.Count()
	mins = make([]float64, c)
	maxs = make([]float64, c)
	if count == 0 {
		return mins, maxs
	}
	get := func(i int) float64 {
		switch d.ComponentType {
		case glb.ComponentFloat:
			return float64(d.F32[i])
		case glb.ComponentInt8:
			return float64(d.I8[i])
		case glb.ComponentUint8:
			return float64(d.U8[i])
		case glb.ComponentInt16:
			return float64(d.I16[i])
		case glb.ComponentUint16:
			return float64(d.U16[i])
		case glb.ComponentUint32:
			return float64(d.U32[i])
		}
		return 0
	}
	for k := 0; k < c; k++ {
		mins[k] = get(k)
		maxs[k] = get(k)
	}
	for e := 1; e < count; e++ {
		for k := 0; k < c; k++ {
			v := get(e*c + k)
			if v < mins[k] {
				mins[k] = v
			}
			if v > maxs[k] {
				maxs[k] = v
			}
		}
	}
	return mins, maxs
}
