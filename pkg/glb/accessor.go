package glb

import (
	"encoding/binary"
	"fmt"
	"math"
)

// AccessorBytes returns the raw element bytes of accessor i, tightly
// packed. When the backing view has no interleaving stride the returned
// slice aliases the BIN chunk; otherwise elements are gather-copied.
func (a *Asset) AccessorBytes(i int) ([]byte, error) {
	acc, base, stride, err := a.accessorView(i)
	if err != nil {
		return nil, err
	}
	elem := ElementSize(acc.ComponentType, acc.Type)
	if stride == elem {
		return a.Bin[base : base+acc.Count*elem], nil
	}
	out := make([]byte, acc.Count*elem)
	for e := 0; e < acc.Count; e++ {
		copy(out[e*elem:(e+1)*elem], a.Bin[base+e*stride:base+e*stride+elem])
	}
	return out, nil
}

// AccessorFloats reads accessor i as a flat []float32, one value per
// component. Integer components are converted; normalized accessors are
// scaled into [-1,1] or [0,1] per the glTF normalization rules.
func (a *Asset) AccessorFloats(i int) ([]float32, error) {
	acc := &a.Doc.Accessors[i]
	raw, err := a.AccessorBytes(i)
	if err != nil {
		return nil, err
	}
	comps := ComponentCount(acc.Type)
	out := make([]float32, acc.Count*comps)
	n := len(out)
	switch acc.ComponentType {
	case ComponentFloat:
		for j := 0; j < n; j++ {
			out[j] = math.Float32frombits(binary.LittleEndian.Uint32(raw[j*4:]))
		}
	case ComponentInt8:
		for j := 0; j < n; j++ {
			v := float32(int8(raw[j]))
			if acc.Normalized {
				v = max32(v/127, -1)
			}
			out[j] = v
		}
	case ComponentUint8:
		for j := 0; j < n; j++ {
			v := float32(raw[j])
			if acc.Normalized {
				v /= 255
			}
			out[j] = v
		}
	case ComponentInt16:
		for j := 0; j < n; j++ {
			v := float32(int16(binary.LittleEndian.Uint16(raw[j*2:])))
			if acc.Normalized {
				v = max32(v/32767, -1)
			}
			out[j] = v
		}
	case ComponentUint16:
		for j := 0; j < n; j++ {
			v := float32(binary.LittleEndian.Uint16(raw[j*2:]))
			if acc.Normalized {
				v /= 65535
			}
			out[j] = v
		}
	case ComponentUint32:
		for j := 0; j < n; j++ {
			out[j] = float32(binary.LittleEndian.Uint32(raw[j*4:]))
		}
	default:
		return nil, fmt.Errorf("accessor %d: %w: %d", i, ErrUnsupportedComponent, acc.ComponentType)
	}
	return out, nil
}

// AccessorUints reads accessor i as unsigned 32-bit values. Used for
// index buffers and joint indices.
func (a *Asset) AccessorUints(i int) ([]uint32, error) {
	acc := &a.Doc.Accessors[i]
	raw, err := a.AccessorBytes(i)
	if err != nil {
		return nil, err
	}
	comps := ComponentCount(acc.Type)
	out := make([]uint32, acc.Count*comps)
	switch acc.ComponentType {
	case ComponentUint8:
		for j := range out {
			out[j] = uint32(raw[j])
		}
	case ComponentUint16:
		for j := range out {
			out[j] = uint32(binary.LittleEndian.Uint16(raw[j*2:]))
		}
	case ComponentUint32:
		for j := range out {
			out[j] = binary.LittleEndian.Uint32(raw[j*4:])
		}
	default:
		return nil, fmt.Errorf("accessor %d: %w: %d is not an index type", i, ErrUnsupportedComponent, acc.ComponentType)
	}
	return out, nil
}

// accessorView resolves accessor i to a base offset and per-element
// stride inside the BIN chunk.
func (a *Asset) accessorView(i int) (*Accessor, int, int, error) {
	if i < 0 || i >= len(a.Doc.Accessors) {
		return nil, 0, 0, fmt.Errorf("accessor %d: %w", i, ErrAccessorOutOfRange)
	}
	acc := &a.Doc.Accessors[i]
	if acc.Sparse != nil {
		return nil, 0, 0, fmt.Errorf("accessor %d: %w", i, ErrSparseAccessor)
	}
	if acc.BufferView == nil {
		return nil, 0, 0, fmt.Errorf("accessor %d: %w: no bufferView", i, ErrAccessorOutOfRange)
	}
	bv := &a.Doc.BufferViews[*acc.BufferView]
	if _, ok := bv.Extensions[ExtensionMeshopt]; ok {
		return nil, 0, 0, fmt.Errorf("accessor %d: %w", i, ErrCompressedInput)
	}
	stride := bv.ByteStride
	if stride == 0 {
		stride = ElementSize(acc.ComponentType, acc.Type)
	}
	return acc, bv.ByteOffset + acc.ByteOffset, stride, nil
}

func max32(v, lo float32) float32 {
	if v < lo {
		return lo
	}
	return v
}
