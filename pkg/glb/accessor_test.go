package glb

import (
	"encoding/binary"
	"math"
	"testing"
)

// buildAsset assembles an Asset around a hand-built BIN chunk.
func buildAsset(t *testing.T, doc *Document, bin []byte) *Asset {
	t.Helper()
	asset := &Asset{Doc: doc, Bin: bin}
	if err := asset.validate(); err != nil {
		t.Fatalf("test asset invalid: %v", err)
	}
	return asset
}

func f32bytes(vals ...float32) []byte {
	out := make([]byte, 0, len(vals)*4)
	for _, v := range vals {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v))
	}
	return out
}

func TestAccessorFloats_TightlyPacked(t *testing.T) {
	bin := f32bytes(1, 2, 3, 4, 5, 6)
	bv := 0
	doc := &Document{
		Buffers:     []Buffer{{ByteLength: len(bin)}},
		BufferViews: []BufferView{{Buffer: 0, ByteLength: len(bin)}},
		Accessors: []Accessor{{
			BufferView: &bv, ComponentType: ComponentFloat, Count: 2, Type: TypeVec3,
		}},
	}
	asset := buildAsset(t, doc, bin)

	got, err := asset.AccessorFloats(0)
	if err != nil {
		t.Fatal(err)
	}
	want := []float32{1, 2, 3, 4, 5, 6}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("element %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestAccessorBytes_Strided(t *testing.T) {
	// Two vec2 u16 elements interleaved with 4 bytes of padding each:
	// stride 8, element size 4.
	bin := []byte{
		1, 0, 2, 0, 0xFF, 0xFF, 0xFF, 0xFF,
		3, 0, 4, 0, 0xFF, 0xFF, 0xFF, 0xFF,
	}
	bv := 0
	doc := &Document{
		Buffers:     []Buffer{{ByteLength: len(bin)}},
		BufferViews: []BufferView{{Buffer: 0, ByteLength: len(bin), ByteStride: 8}},
		Accessors: []Accessor{{
			BufferView: &bv, ComponentType: ComponentUint16, Count: 2, Type: TypeVec2,
		}},
	}
	asset := buildAsset(t, doc, bin)

	got, err := asset.AccessorBytes(0)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{1, 0, 2, 0, 3, 0, 4, 0}
	if len(got) != len(want) {
		t.Fatalf("got %d bytes, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestAccessorFloats_Normalized(t *testing.T) {
	tests := []struct {
		name          string
		componentType int
		bin           []byte
		want          float32
	}{
		{"u8 255 -> 1", ComponentUint8, []byte{255}, 1},
		{"u16 65535 -> 1", ComponentUint16, []byte{0xFF, 0xFF}, 1},
		{"i8 127 -> 1", ComponentInt8, []byte{127}, 1},
		{"i8 -128 clamps to -1", ComponentInt8, []byte{0x80}, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bv := 0
			pad := append([]byte(nil), tt.bin...)
			for len(pad)%4 != 0 {
				pad = append(pad, 0)
			}
			doc := &Document{
				Buffers:     []Buffer{{ByteLength: len(pad)}},
				BufferViews: []BufferView{{Buffer: 0, ByteLength: len(pad)}},
				Accessors: []Accessor{{
					BufferView: &bv, ComponentType: tt.componentType,
					Count: 1, Type: TypeScalar, Normalized: true,
				}},
			}
			asset := buildAsset(t, doc, pad)
			got, err := asset.AccessorFloats(0)
			if err != nil {
				t.Fatal(err)
			}
			if diff := got[0] - tt.want; diff > 1e-6 || diff < -1e-6 {
				t.Errorf("got %v, want %v", got[0], tt.want)
			}
		})
	}
}

func TestAccessorUints_Widths(t *testing.T) {
	tests := []struct {
		name          string
		componentType int
		bin           []byte
		want          []uint32
	}{
		{"u8", ComponentUint8, []byte{0, 1, 2, 0}, []uint32{0, 1, 2}},
		{"u16", ComponentUint16, []byte{0, 0, 1, 0, 2, 0, 0, 0}, []uint32{0, 1, 2}},
		{"u32", ComponentUint32, []byte{0, 0, 0, 0, 1, 0, 0, 0, 2, 0, 0, 0}, []uint32{0, 1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bv := 0
			doc := &Document{
				Buffers:     []Buffer{{ByteLength: len(tt.bin)}},
				BufferViews: []BufferView{{Buffer: 0, ByteLength: len(tt.bin)}},
				Accessors: []Accessor{{
					BufferView: &bv, ComponentType: tt.componentType, Count: 3, Type: TypeScalar,
				}},
			}
			asset := buildAsset(t, doc, tt.bin)
			got, err := asset.AccessorUints(0)
			if err != nil {
				t.Fatal(err)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("index %d: got %d, want %d", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestAccessorUints_RejectsFloat(t *testing.T) {
	bv := 0
	bin := f32bytes(0, 1, 2)
	doc := &Document{
		Buffers:     []Buffer{{ByteLength: len(bin)}},
		BufferViews: []BufferView{{Buffer: 0, ByteLength: len(bin)}},
		Accessors: []Accessor{{
			BufferView: &bv, ComponentType: ComponentFloat, Count: 3, Type: TypeScalar,
		}},
	}
	asset := buildAsset(t, doc, bin)
	if _, err := asset.AccessorUints(0); err == nil {
		t.Error("expected error reading float accessor as indices")
	}
}
