package optimize

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"

	"github.com/chewxy/math32"

	"github.com/Faultbox/glbopt/pkg/glb"
)

// gridAsset builds an n×n vertex grid mesh with 2(n-1)² triangles.
func gridAsset(t *testing.T, n int) *glb.Asset {
	t.Helper()
	positions := make([]float32, 0, n*n*3)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			positions = append(positions, float32(x), float32(y), 0)
		}
	}
	indices := make([]uint32, 0, (n-1)*(n-1)*6)
	for y := 0; y < n-1; y++ {
		for x := 0; x < n-1; x++ {
			i := uint32(y*n + x)
			indices = append(indices, i, i+1, i+uint32(n))
			indices = append(indices, i+1, i+uint32(n)+1, i+uint32(n))
		}
	}
	return buildAsset(t, positions, indices, nil, nil)
}

func TestOptimize_QuantizeOnlyFixupTolerance(t *testing.T) {
	positions := []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}
	asset := buildAsset(t, positions, []uint32{0, 1, 2}, nil, nil)

	opts := Default()
	opts.MeshoptCompression = false
	opts.LODLevels = []float32{1.0}

	result, err := New().Optimize(context.Background(), asset, opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.LODs) != 1 {
		t.Fatalf("got %d LODs, want 1", len(result.LODs))
	}
	if result.LODs[0].TriangleCount != 1 {
		t.Errorf("triangle count = %d, want 1", result.LODs[0].TriangleCount)
	}

	out, err := glb.Parse(result.LODs[0].GLB)
	if err != nil {
		t.Fatal(err)
	}

	prim := &out.Doc.Meshes[0].Primitives[0]
	posAcc := prim.Attributes["POSITION"]
	if out.Doc.Accessors[posAcc].ComponentType != glb.ComponentInt16 {
		t.Fatalf("position component type = %d, want int16", out.Doc.Accessors[posAcc].ComponentType)
	}
	quant, err := out.AccessorFloats(posAcc)
	if err != nil {
		t.Fatal(err)
	}

	node := &out.Doc.Nodes[0]
	if node.Scale == nil || node.Translation == nil {
		t.Fatal("node transform fixup missing")
	}

	// Dedupe/reorder may permute vertices; check the reconstructed set.
	reconstructed := make([][3]float32, 3)
	for v := 0; v < 3; v++ {
		for k := 0; k < 3; k++ {
			reconstructed[v][k] = node.Scale[k]*quant[v*3+k] + node.Translation[k]
		}
	}
	const tol = 1.0/32767 + 1e-6
	for v := 0; v < 3; v++ {
		orig := [3]float32{positions[v*3], positions[v*3+1], positions[v*3+2]}
		found := false
		for _, r := range reconstructed {
			ok := true
			for k := 0; k < 3; k++ {
				if math32.Abs(r[k]-orig[k]) > tol {
					ok = false
					break
				}
			}
			if ok {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("original vertex %v not reconstructed within %v: %v", orig, tol, reconstructed)
		}
	}

	// Quantization must be declared.
	if !containsString(out.Doc.ExtensionsUsed, glb.ExtensionQuantization) ||
		!containsString(out.Doc.ExtensionsRequired, glb.ExtensionQuantization) {
		t.Error("KHR_mesh_quantization not declared")
	}
}

func TestOptimize_LODChainMonotonicity(t *testing.T) {
	asset := gridAsset(t, 24) // 1058 triangles
	source := asset.Stats().Triangles

	opts := Default()
	opts.MeshoptCompression = false
	opts.LODLevels = []float32{1.0, 0.5, 0.25}

	result, err := New().Optimize(context.Background(), asset, opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.LODs) != 3 {
		t.Fatalf("got %d LODs, want 3", len(result.LODs))
	}
	t0 := result.LODs[0].TriangleCount
	t1 := result.LODs[1].TriangleCount
	t2 := result.LODs[2].TriangleCount
	if t0 != source {
		t.Errorf("ratio 1.0 changed triangle count: %d -> %d", source, t0)
	}
	if t0 < t1 || t1 < t2 {
		t.Errorf("triangle counts not monotonic: %d, %d, %d", t0, t1, t2)
	}
	if t1 > source/2+1 {
		t.Errorf("ratio 0.5: %d triangles, want ≤ %d", t1, source/2+1)
	}
	if t2 > source/4+1 {
		t.Errorf("ratio 0.25: %d triangles, want ≤ %d", t2, source/4+1)
	}
}

func TestOptimize_Deterministic(t *testing.T) {
	opts := Default()
	opts.LODLevels = []float32{1.0, 0.5}
	opts.MeshoptCompression = false

	run := func() *Result {
		asset := gridAsset(t, 12)
		result, err := New().Optimize(context.Background(), asset, opts)
		if err != nil {
			t.Fatal(err)
		}
		return result
	}
	a, b := run(), run()
	for i := range a.LODs {
		if !bytes.Equal(a.LODs[i].GLB, b.LODs[i].GLB) {
			t.Errorf("LOD %d differs between identical runs", i)
		}
	}
}

func TestOptimize_DegradesWithoutCapabilities(t *testing.T) {
	asset := gridAsset(t, 4)

	o := &Optimizer{} // no capabilities at all
	opts := Default()
	opts.LODLevels = []float32{1.0, 0.5}

	result, err := o.Optimize(context.Background(), asset, opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Degraded) == 0 {
		t.Error("capability-less run must report degradations")
	}
	// Identity degradation: both LODs keep the source triangle count.
	source := asset.Stats().Triangles
	for _, lod := range result.LODs {
		if lod.TriangleCount != source {
			t.Errorf("ratio %v: triangle count %d, want identity %d", lod.Ratio, lod.TriangleCount, source)
		}
	}
}

// stubCodec is a passthrough "compressor" for exercising the compressed
// emission path.
type stubCodec struct{}

func (stubCodec) EncodeIndexBuffer(indices []uint32) ([]byte, error) {
	out := make([]byte, 0, len(indices)*4)
	for _, v := range indices {
		out = binary.LittleEndian.AppendUint32(out, v)
	}
	return out, nil
}

func (stubCodec) EncodeVertexBuffer(data []byte, count, stride int) ([]byte, error) {
	return append([]byte(nil), data...), nil
}

func TestOptimize_CompressedViewsDeclared(t *testing.T) {
	asset := gridAsset(t, 4)

	o := New()
	o.BufferCodec = stubCodec{}
	opts := Default()
	opts.LODLevels = []float32{1.0}

	result, err := o.Optimize(context.Background(), asset, opts)
	if err != nil {
		t.Fatal(err)
	}
	out, err := glb.Parse(result.LODs[0].GLB)
	if err != nil {
		t.Fatal(err)
	}

	compressed := 0
	for _, bv := range out.Doc.BufferViews {
		if _, ok := bv.Extensions[glb.ExtensionMeshopt]; ok {
			compressed++
		}
	}
	if compressed == 0 {
		t.Error("no compressed buffer views emitted")
	}
	if !containsString(out.Doc.ExtensionsUsed, glb.ExtensionMeshopt) ||
		!containsString(out.Doc.ExtensionsRequired, glb.ExtensionMeshopt) {
		t.Error("EXT_meshopt_compression not declared")
	}
}

func TestOptimize_Cancellation(t *testing.T) {
	asset := gridAsset(t, 8)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := New().Optimize(ctx, asset, Default())
	if err == nil {
		t.Fatal("cancelled run must fail")
	}
	if result != nil {
		t.Error("cancelled run must not produce output")
	}
}

func TestOptimize_RoundTripCounts(t *testing.T) {
	asset := gridAsset(t, 6)
	opts := Default()
	opts.LODLevels = []float32{1.0}

	result, err := New().Optimize(context.Background(), asset, opts)
	if err != nil {
		t.Fatal(err)
	}
	out, err := glb.Parse(result.LODs[0].GLB)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := out.Stats().Primitives, asset.Stats().Primitives; got != want {
		t.Errorf("primitive count %d, want %d", got, want)
	}
	if got, want := len(out.Doc.Animations), len(asset.Doc.Animations); got != want {
		t.Errorf("animation count %d, want %d", got, want)
	}
	if got, want := len(out.Doc.Images), len(asset.Doc.Images); got != want {
		t.Errorf("image count %d, want %d", got, want)
	}
	if got, want := len(out.Doc.Skins), len(asset.Doc.Skins); got != want {
		t.Errorf("skin count %d, want %d", got, want)
	}

	// Universal invariant: attribute counts equal the vertex count and
	// indices stay in range.
	prim := &out.Doc.Meshes[0].Primitives[0]
	vertexCount := out.Doc.Accessors[prim.Attributes["POSITION"]].Count
	for name, acc := range prim.Attributes {
		if out.Doc.Accessors[acc].Count != vertexCount {
			t.Errorf("attribute %s count %d, want %d", name, out.Doc.Accessors[acc].Count, vertexCount)
		}
	}
	idx, err := out.AccessorUints(*prim.Indices)
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range idx {
		if int(v) >= vertexCount {
			t.Fatalf("index %d out of range %d", v, vertexCount)
		}
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
