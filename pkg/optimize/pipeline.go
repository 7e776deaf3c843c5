package optimize

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/Faultbox/glbopt/pkg/glb"
)

// PrimitiveError wraps a schema failure with the primitive it occurred
// in. Any PrimitiveError aborts the whole call: no partial asset is
// written.
type PrimitiveError struct {
	Mesh      int
	Primitive int
	Err       error
}

func (e *PrimitiveError) Error() string {
	return fmt.Sprintf("mesh %d primitive %d: %v", e.Mesh, e.Primitive, e.Err)
}

func (e *PrimitiveError) Unwrap() error {
	return e.Err
}

// primAttr is one named attribute stream of a primitive in flight.
type primAttr struct {
	Name string
	Data *AttrData
}

// primGeometry is a primitive's working copy. Stages never mutate it in
// place; each returns a new value so error recovery and per-LOD cloning
// stay trivial.
type primGeometry struct {
	mesh, prim int
	material   *int
	mode       int

	indices []uint32
	attrs   []primAttr

	// passthrough geometry (points, lines) skips every stage.
	passthrough bool

	quantized   bool
	affine      *Affine
	uvTransform *UVTransform
}

func (g *primGeometry) attr(name string) *AttrData {
	for i := range g.attrs {
		if g.attrs[i].Name == name {
			return g.attrs[i].Data
		}
	}
	return nil
}

func (g *primGeometry) vertexCount() int {
	if pos := g.attr("POSITION"); pos != nil {
		return pos.Count()
	}
	return 0
}

func (g *primGeometry) triangleCount() int {
	if g.passthrough {
		return 0
	}
	return len(g.indices) / 3
}

// clone copies the mutable parts. Attribute payloads are shared: stages
// replace them wholesale, never edit them.
func (g *primGeometry) clone() *primGeometry {
	out := *g
	out.indices = append([]uint32(nil), g.indices...)
	out.attrs = append([]primAttr(nil), g.attrs...)
	return &out
}

// standardFloatAttr reports whether the named attribute is ingested as
// float32 for quantization and simplification.
func standardFloatAttr(name string) bool {
	switch name {
	case "POSITION", "NORMAL", "TANGENT",
		"TEXCOORD_0", "TEXCOORD_1", "TEXCOORD_2", "TEXCOORD_3":
		return true
	}
	return false
}

// attrOrder fixes the in-flight attribute ordering: POSITION first, the
// other standard names next, passthrough names alphabetically last.
// Primitive attribute maps have no JSON order, so this keeps the output
// deterministic.
func attrOrder(names []string) {
	rank := func(n string) int {
		switch n {
		case "POSITION":
			return 0
		case "NORMAL":
			return 1
		case "TANGENT":
			return 2
		case "TEXCOORD_0":
			return 3
		case "TEXCOORD_1", "TEXCOORD_2", "TEXCOORD_3":
			return 4
		case "COLOR_0":
			return 5
		case "JOINTS_0":
			return 6
		case "WEIGHTS_0":
			return 7
		}
		return 8
	}
	sort.Slice(names, func(i, j int) bool {
		ri, rj := rank(names[i]), rank(names[j])
		if ri != rj {
			return ri < rj
		}
		return names[i] < names[j]
	})
}

// ingestPrimitive loads a primitive's indices and attributes into owned
// arrays: standard attributes as float32, everything else in its native
// component type. Missing indices are synthesized as [0..N).
func ingestPrimitive(asset *glb.Asset, mi, pi int) (*primGeometry, error) {
	prim := &asset.Doc.Meshes[mi].Primitives[pi]
	fail := func(err error) (*primGeometry, error) {
		return nil, &PrimitiveError{Mesh: mi, Primitive: pi, Err: err}
	}

	if _, ok := prim.Attributes["POSITION"]; !ok {
		return fail(glb.ErrMissingPositionAttr)
	}

	g := &primGeometry{
		mesh:        mi,
		prim:        pi,
		material:    prim.Material,
		mode:        prim.ModeOrDefault(),
		passthrough: prim.ModeOrDefault() != glb.ModeTriangles,
	}

	names := make([]string, 0, len(prim.Attributes))
	for name := range prim.Attributes {
		names = append(names, name)
	}
	attrOrder(names)

	count := -1
	for _, name := range names {
		accIdx := prim.Attributes[name]
		if accIdx < 0 || accIdx >= len(asset.Doc.Accessors) {
			return fail(fmt.Errorf("attribute %s: %w", name, glb.ErrAccessorOutOfRange))
		}
		var data *AttrData
		var err error
		if standardFloatAttr(name) {
			data, err = loadFloatAttr(asset, accIdx)
		} else {
			data, err = loadNativeAttr(asset, accIdx)
		}
		if err != nil {
			return fail(fmt.Errorf("attribute %s: %w", name, err))
		}
		if count < 0 {
			count = data.Count()
		} else if data.Count() != count {
			return fail(fmt.Errorf("attribute %s has %d elements, POSITION has %d", name, data.Count(), count))
		}
		g.attrs = append(g.attrs, primAttr{Name: name, Data: data})
	}

	if prim.Indices != nil {
		idx, err := asset.AccessorUints(*prim.Indices)
		if err != nil {
			return fail(fmt.Errorf("indices: %w", err))
		}
		for _, v := range idx {
			if int(v) >= count {
				return fail(fmt.Errorf("index %d exceeds vertex count %d: %w", v, count, glb.ErrAccessorOutOfRange))
			}
		}
		g.indices = idx
	} else {
		g.indices = make([]uint32, count)
		for i := range g.indices {
			g.indices[i] = uint32(i)
		}
	}
	return g, nil
}

func loadFloatAttr(asset *glb.Asset, accIdx int) (*AttrData, error) {
	acc := &asset.Doc.Accessors[accIdx]
	vals, err := asset.AccessorFloats(accIdx)
	if err != nil {
		return nil, err
	}
	return &AttrData{
		ComponentType: glb.ComponentFloat,
		Components:    glb.ComponentCount(acc.Type),
		F32:           vals,
	}, nil
}

func loadNativeAttr(asset *glb.Asset, accIdx int) (*AttrData, error) {
	acc := &asset.Doc.Accessors[accIdx]
	raw, err := asset.AccessorBytes(accIdx)
	if err != nil {
		return nil, err
	}
	comps := glb.ComponentCount(acc.Type)
	n := acc.Count * comps
	out := &AttrData{
		ComponentType: acc.ComponentType,
		Components:    comps,
		Normalized:    acc.Normalized,
	}
	switch acc.ComponentType {
	case glb.ComponentFloat:
		out.F32 = make([]float32, n)
		for i := range out.F32 {
			out.F32[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
		}
	case glb.ComponentInt8:
		out.I8 = make([]int8, n)
		for i := range out.I8 {
			out.I8[i] = int8(raw[i])
		}
	case glb.ComponentUint8:
		out.U8 = append([]uint8(nil), raw[:n]...)
	case glb.ComponentInt16:
		out.I16 = make([]int16, n)
		for i := range out.I16 {
			out.I16[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
		}
	case glb.ComponentUint16:
		out.U16 = make([]uint16, n)
		for i := range out.U16 {
			out.U16[i] = binary.LittleEndian.Uint16(raw[i*2:])
		}
	case glb.ComponentUint32:
		out.U32 = make([]uint32, n)
		for i := range out.U32 {
			out.U32[i] = binary.LittleEndian.Uint32(raw[i*4:])
		}
	default:
		return nil, fmt.Errorf("%w: %d", glb.ErrUnsupportedComponent, acc.ComponentType)
	}
	return out, nil
}

// interleave packs every attribute's raw element bytes per vertex, the
// blob Compact hashes for deduplication.
func (g *primGeometry) interleave() ([]byte, int) {
	stride := 0
	for i := range g.attrs {
		stride += g.attrs[i].Data.RawStride()
	}
	count := g.vertexCount()
	blob := make([]byte, count*stride)
	offset := 0
	for i := range g.attrs {
		d := g.attrs[i].Data
		raw := d.RawBytes()
		rs := d.RawStride()
		for v := 0; v < count; v++ {
			copy(blob[v*stride+offset:], raw[v*rs:(v+1)*rs])
		}
		offset += rs
	}
	return blob, stride
}

// remapAll applies a vertex remap to every attribute and renumbers the
// indices.
func (g *primGeometry) remapAll(remap []uint32, unique int) *primGeometry {
	out := g.clone()
	out.attrs = make([]primAttr, len(g.attrs))
	for i := range g.attrs {
		out.attrs[i] = primAttr{Name: g.attrs[i].Name, Data: g.attrs[i].Data.Remap(remap, unique)}
	}
	for i, idx := range g.indices {
		out.indices[i] = remap[idx]
	}
	return out
}

// dedupe merges identical vertices. Disabled or capability-less runs
// return the input unchanged.
func (c *optimizeContext) dedupe(g *primGeometry) *primGeometry {
	if !c.opts.DeduplicateVertices || g.passthrough {
		return g
	}
	if c.simplifier == nil {
		c.degrade("simplifier unavailable; vertex deduplication skipped")
		return g
	}
	blob, stride := g.interleave()
	remap, unique := c.simplifier.Compact(g.indices, blob, stride)
	return g.remapAll(remap, unique)
}

// reorder runs vertex cache optimization.
func (c *optimizeContext) reorder(g *primGeometry) *primGeometry {
	if !c.opts.OptimizeVertexCache || g.passthrough {
		return g
	}
	if c.simplifier == nil {
		c.degrade("simplifier unavailable; vertex cache optimization skipped")
		return g
	}
	newIndices, remap, unique := c.simplifier.Reorder(g.indices, g.vertexCount())
	out := g.remapAll(remap, unique)
	copy(out.indices, newIndices)
	return out
}

// simplifyTo reduces the primitive to the ratio of its current triangle
// count, honoring the vertex lock, then compacts the result. Failures
// degrade to the identity transform.
func (c *optimizeContext) simplifyTo(g *primGeometry, ratio float32, lock []bool) *primGeometry {
	if g.passthrough || len(g.indices) < 3 {
		return g
	}
	if c.simplifier == nil {
		c.degrade("simplifier unavailable; simplification skipped")
		return g
	}

	target := int(float64(len(g.indices)) * float64(ratio))
	target -= target % 3
	if target < 3 {
		target = 3
	}
	if target >= len(g.indices) {
		return g
	}

	pos := g.attr("POSITION")
	var uvs []float32
	if uv := g.attr("TEXCOORD_0"); uv != nil {
		uvs = uv.F32
	}
	newIndices, _, err := c.simplifier.Simplify(
		g.indices, pos.F32, uvs, 1.0, lock, target, c.opts.LODErrorThreshold, true)
	if err != nil {
		c.degrade("simplification failed; original geometry preserved")
		return g
	}

	out := g.clone()
	out.indices = newIndices

	// Densify: drop vertices the reduced index list no longer uses.
	blob, stride := out.interleave()
	remap, unique := c.simplifier.Compact(out.indices, blob, stride)
	return out.remapAll(remap, unique)
}

// quantizeAll converts the standard attributes per the options. The
// POSITION affine is attached for the writer's node transform fixup.
func (c *optimizeContext) quantizeAll(g *primGeometry) *primGeometry {
	if g.passthrough {
		return g
	}
	out := g.clone()
	for i := range out.attrs {
		name := out.attrs[i].Name
		data := out.attrs[i].Data
		switch {
		case name == "POSITION" && c.opts.QuantizePositions:
			q, affine := QuantizePositions(data.F32, c.opts.PositionBits)
			out.attrs[i].Data = q
			out.affine = &affine
			out.quantized = true
		case name == "NORMAL" && c.opts.QuantizeNormals:
			out.attrs[i].Data = QuantizeNormals(data.F32)
			out.quantized = true
		case name == "TANGENT" && c.opts.QuantizeTangents:
			out.attrs[i].Data = QuantizeTangents(data.F32)
			out.quantized = true
		case len(name) >= 9 && name[:9] == "TEXCOORD_" && c.opts.QuantizeUVs:
			q, tr := QuantizeUVs(data.F32)
			out.attrs[i].Data = q
			if tr != nil && out.uvTransform == nil {
				out.uvTransform = tr
			}
			out.quantized = true
		}
	}
	return out
}

// minimizeIndexWidth re-emits indices at the narrowest component type
// that can address the vertex count.
func minimizeIndexWidth(indices []uint32, vertexCount int) *AttrData {
	switch {
	case vertexCount <= 0x100 && maxIndex(indices) <= 0xFF:
		out := &AttrData{ComponentType: glb.ComponentUint8, Components: 1, U8: make([]uint8, len(indices))}
		for i, v := range indices {
			out.U8[i] = uint8(v)
		}
		return out
	case vertexCount <= 0x10000 && maxIndex(indices) <= 0xFFFF:
		out := &AttrData{ComponentType: glb.ComponentUint16, Components: 1, U16: make([]uint16, len(indices))}
		for i, v := range indices {
			out.U16[i] = uint16(v)
		}
		return out
	}
	return &AttrData{ComponentType: glb.ComponentUint32, Components: 1, U32: append([]uint32(nil), indices...)}
}

func maxIndex(indices []uint32) uint32 {
	var m uint32
	for _, v := range indices {
		if v > m {
			m = v
		}
	}
	return m
}
