package glb

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/qmuntal/gltf"
)

func TestWriter_AlignmentAndPadding(t *testing.T) {
	w := NewWriter("glbopt-test")
	v0 := w.AddView([]byte{1, 2, 3}, 0, TargetElementArrayBuffer, 4)
	v1 := w.AddView([]byte{4, 5, 6, 7, 8}, 0, TargetArrayBuffer, 4)

	doc := w.Doc()
	if doc.BufferViews[v0].ByteOffset != 0 {
		t.Errorf("first view offset = %d, want 0", doc.BufferViews[v0].ByteOffset)
	}
	if doc.BufferViews[v1].ByteOffset != 4 {
		t.Errorf("second view offset = %d, want 4", doc.BufferViews[v1].ByteOffset)
	}

	out, err := w.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	if len(out)%4 != 0 {
		t.Errorf("file length %d is not 4-byte aligned", len(out))
	}
	if got := binary.LittleEndian.Uint32(out[8:12]); int(got) != len(out) {
		t.Errorf("header length %d, want file length %d", got, len(out))
	}
}

func TestWriter_RoundTrip(t *testing.T) {
	w := NewWriter("glbopt-test")
	data := f32bytes(0, 0, 0, 1, 0, 0, 0, 1, 0)
	view := w.AddView(data, 0, TargetArrayBuffer, 4)
	bv := view
	acc := w.AddAccessor(Accessor{
		BufferView: &bv, ComponentType: ComponentFloat, Count: 3, Type: TypeVec3,
	})
	doc := w.Doc()
	doc.Meshes = []Mesh{{Primitives: []Primitive{{Attributes: map[string]int{"POSITION": acc}}}}}
	mesh := 0
	doc.Nodes = []Node{{Mesh: &mesh}}
	doc.Scenes = []Scene{{Nodes: []int{0}}}

	out, err := w.Finalize()
	if err != nil {
		t.Fatal(err)
	}

	parsed, err := Parse(out)
	if err != nil {
		t.Fatalf("reparsing written GLB: %v", err)
	}
	got, err := parsed.AccessorFloats(0)
	if err != nil {
		t.Fatal(err)
	}
	want := []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

// The written container must be readable by an independent glTF decoder.
func TestWriter_IndependentDecoder(t *testing.T) {
	w := NewWriter("glbopt-test")
	view := w.AddView(f32bytes(0, 0, 0, 1, 0, 0, 0, 1, 0), 0, TargetArrayBuffer, 4)
	bv := view
	acc := w.AddAccessor(Accessor{
		BufferView: &bv, ComponentType: ComponentFloat, Count: 3, Type: TypeVec3,
	})
	doc := w.Doc()
	doc.Meshes = []Mesh{{Primitives: []Primitive{{Attributes: map[string]int{"POSITION": acc}}}}}

	out, err := w.Finalize()
	if err != nil {
		t.Fatal(err)
	}

	var ref gltf.Document
	if err := gltf.NewDecoder(bytes.NewReader(out)).Decode(&ref); err != nil {
		t.Fatalf("qmuntal/gltf rejected written GLB: %v", err)
	}
	if len(ref.Meshes) != 1 || len(ref.Accessors) != 1 {
		t.Errorf("independent decode saw %d meshes, %d accessors; want 1, 1", len(ref.Meshes), len(ref.Accessors))
	}
	if ref.Asset.Version != "2.0" {
		t.Errorf("asset version %q, want 2.0", ref.Asset.Version)
	}
}

func TestWriter_CompressedViewExtension(t *testing.T) {
	w := NewWriter("glbopt-test")
	_, err := w.AddCompressedView([]byte{1, 2, 3, 4, 5}, TargetArrayBuffer, MeshoptExtension{
		ByteStride: 12,
		Count:      10,
		Mode:       MeshoptModeAttributes,
	})
	if err != nil {
		t.Fatal(err)
	}
	out, err := w.Finalize()
	if err != nil {
		t.Fatal(err)
	}

	parsed, err := Parse(out)
	if err != nil {
		t.Fatal(err)
	}
	doc := parsed.Doc
	if len(doc.BufferViews) != 1 {
		t.Fatalf("got %d views, want 1", len(doc.BufferViews))
	}
	if doc.BufferViews[0].ByteLength != 5 {
		t.Errorf("container view byteLength = %d, want compressed size 5", doc.BufferViews[0].ByteLength)
	}
	if _, ok := doc.BufferViews[0].Extensions[ExtensionMeshopt]; !ok {
		t.Error("view is missing the meshopt extension object")
	}
	if !contains(doc.ExtensionsUsed, ExtensionMeshopt) || !contains(doc.ExtensionsRequired, ExtensionMeshopt) {
		t.Errorf("meshopt extension not declared: used=%v required=%v", doc.ExtensionsUsed, doc.ExtensionsRequired)
	}
}

func TestWriter_PhaseOrdering(t *testing.T) {
	w := NewWriter("glbopt-test")
	if err := w.EnterAnimations(); err != nil {
		t.Fatal(err)
	}
	if err := w.EnterImages(); err == nil {
		t.Error("phase transition animations -> images should fail")
	}
	if _, err := w.Finalize(); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Finalize(); err == nil {
		t.Error("double finalize should fail")
	}
}

func TestWriter_Deterministic(t *testing.T) {
	build := func() []byte {
		w := NewWriter("glbopt-test")
		view := w.AddView(f32bytes(1, 2, 3), 0, TargetArrayBuffer, 4)
		bv := view
		w.AddAccessor(Accessor{BufferView: &bv, ComponentType: ComponentFloat, Count: 1, Type: TypeVec3})
		w.UseExtension(ExtensionQuantization, true)
		out, err := w.Finalize()
		if err != nil {
			t.Fatal(err)
		}
		return out
	}
	if !bytes.Equal(build(), build()) {
		t.Error("two identical writes produced different bytes")
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
