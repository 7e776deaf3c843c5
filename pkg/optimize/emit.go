package optimize

import (
	"encoding/json"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/glbopt/pkg/glb"
)

// generator is the asset.generator string stamped on output files.
const generator = "glbopt"

// emitGLB assembles one complete output container from the optimized
// primitives of a single LOD. Accessors and buffer views are laid out in
// primitive order, then images, then the accessors animations and skins
// reference, which makes the output bytewise deterministic.
func (c *optimizeContext) emitGLB(prims []*primGeometry) ([]byte, error) {
	src := c.asset.Doc
	w := glb.NewWriter(generator)
	doc := w.Doc()
	doc.Asset.Copyright = src.Asset.Copyright
	doc.Scene = copyIntPtr(src.Scene)
	doc.Scenes = append([]glb.Scene(nil), src.Scenes...)
	doc.Materials = append([]glb.Material(nil), src.Materials...)
	doc.Textures = append([]glb.Texture(nil), src.Textures...)
	doc.Samplers = append([]json.RawMessage(nil), src.Samplers...)
	doc.Cameras = append([]json.RawMessage(nil), src.Cameras...)
	doc.Extras = src.Extras

	doc.Nodes = make([]glb.Node, len(src.Nodes))
	for i := range src.Nodes {
		doc.Nodes[i] = copyNode(&src.Nodes[i])
	}

	doc.Meshes = make([]glb.Mesh, len(src.Meshes))
	for i := range src.Meshes {
		doc.Meshes[i] = glb.Mesh{
			Name:    src.Meshes[i].Name,
			Weights: src.Meshes[i].Weights,
			Extras:  src.Meshes[i].Extras,
		}
	}

	// Geometry phase: views and accessors per primitive, in order.
	meshAffine := make(map[int]*Affine)
	for _, g := range prims {
		newPrim, err := c.emitPrimitive(w, g)
		if err != nil {
			return nil, err
		}
		doc.Meshes[g.mesh].Primitives = append(doc.Meshes[g.mesh].Primitives, newPrim)
		if g.quantized {
			w.UseExtension(glb.ExtensionQuantization, true)
		}
		if g.affine != nil && !g.affine.Identity() {
			if _, ok := meshAffine[g.mesh]; !ok {
				// A mesh whose primitives disagree keeps the first
				// primitive's affine; a known limitation.
				meshAffine[g.mesh] = g.affine
			}
		}
	}

	for i := range doc.Nodes {
		node := &doc.Nodes[i]
		if node.Mesh == nil {
			continue
		}
		if aff, ok := meshAffine[*node.Mesh]; ok {
			foldAffine(node, aff)
		}
	}

	if err := w.EnterImages(); err != nil {
		return nil, err
	}
	doc.Images = c.emitImages(w)

	if err := w.EnterAnimations(); err != nil {
		return nil, err
	}
	if err := c.emitAnimationsAndSkins(w); err != nil {
		return nil, err
	}

	return w.Finalize()
}

// emitPrimitive writes a primitive's index and attribute views and
// returns the rebuilt primitive JSON.
func (c *optimizeContext) emitPrimitive(w *glb.Writer, g *primGeometry) (glb.Primitive, error) {
	out := glb.Primitive{
		Attributes: make(map[string]int, len(g.attrs)),
		Material:   copyIntPtr(g.material),
	}
	if g.mode != glb.ModeTriangles {
		mode := g.mode
		out.Mode = &mode
	}

	idxAcc, err := c.emitIndices(w, g)
	if err != nil {
		return out, err
	}
	out.Indices = &idxAcc

	for _, a := range g.attrs {
		accIdx, err := c.emitAttribute(w, g, a)
		if err != nil {
			return out, err
		}
		out.Attributes[a.Name] = accIdx
	}
	return out, nil
}

// emitIndices writes the index buffer view. Compression uses mode
// TRIANGLES with a logical stride of 4, so compressed indices stay
// 32-bit; uncompressed indices are width-minimized.
func (c *optimizeContext) emitIndices(w *glb.Writer, g *primGeometry) (int, error) {
	wantCompress := c.opts.MeshoptCompression && !g.passthrough && len(g.indices) > 0
	if wantCompress {
		if c.bufferCodec == nil {
			c.degrade("buffer codec unavailable; views written uncompressed")
		} else if encoded, err := c.bufferCodec.EncodeIndexBuffer(g.indices); err != nil {
			c.degrade("index compression failed; view written uncompressed")
		} else {
			view, err := w.AddCompressedView(encoded, glb.TargetElementArrayBuffer, glb.MeshoptExtension{
				ByteStride: 4,
				Count:      len(g.indices),
				Mode:       glb.MeshoptModeTriangles,
			})
			if err != nil {
				return 0, err
			}
			return w.AddAccessor(glb.Accessor{
				BufferView:    &view,
				ComponentType: glb.ComponentUint32,
				Count:         len(g.indices),
				Type:          glb.TypeScalar,
			}), nil
		}
	}

	data := minimizeIndexWidth(g.indices, g.vertexCount())
	view := w.AddView(data.RawBytes(), 0, glb.TargetElementArrayBuffer,
		maxInt(4, glb.ComponentSize(data.ComponentType)))
	return w.AddAccessor(glb.Accessor{
		BufferView:    &view,
		ComponentType: data.ComponentType,
		Count:         len(g.indices),
		Type:          glb.TypeScalar,
	}), nil
}

// emitAttribute writes one attribute view at its padded stride.
func (c *optimizeContext) emitAttribute(w *glb.Writer, g *primGeometry, a primAttr) (int, error) {
	typ, err := a.Data.Type()
	if err != nil {
		return 0, &PrimitiveError{Mesh: g.mesh, Primitive: g.prim, Err: fmt.Errorf("attribute %s: %w", a.Name, err)}
	}
	stride := a.Data.PaddedStride()
	count := a.Data.Count()
	packed := a.Data.PackedBytes(stride)

	viewIdx := -1
	if c.opts.MeshoptCompression && c.bufferCodec != nil && !g.passthrough && stride <= 256 {
		if encoded, err := c.bufferCodec.EncodeVertexBuffer(packed, count, stride); err != nil {
			c.degrade("vertex compression failed; view written uncompressed")
		} else {
			viewIdx, err = w.AddCompressedView(encoded, glb.TargetArrayBuffer, glb.MeshoptExtension{
				ByteStride: stride,
				Count:      count,
				Mode:       glb.MeshoptModeAttributes,
			})
			if err != nil {
				return 0, err
			}
		}
	}
	if viewIdx < 0 {
		viewIdx = w.AddView(packed, stride, glb.TargetArrayBuffer,
			maxInt(4, glb.ComponentSize(a.Data.ComponentType)))
	}

	acc := glb.Accessor{
		BufferView:    &viewIdx,
		ComponentType: a.Data.ComponentType,
		Normalized:    a.Data.Normalized,
		Count:         count,
		Type:          typ,
	}
	if a.Name == "POSITION" {
		acc.Min, acc.Max = positionBounds(a.Data)
	}
	return w.AddAccessor(acc), nil
}

// positionBounds computes accessor min/max: the real bounds for float
// positions, the symmetric quantized range for integer ones.
func positionBounds(d *AttrData) ([]float64, []float64) {
	mins, maxs := d.MinMax()
	if d.ComponentType == glb.ComponentFloat {
		return mins, maxs
	}
	for k := range mins {
		m := maxs[k]
		if -mins[k] > m {
			m = -mins[k]
		}
		mins[k] = -m
		maxs[k] = m
	}
	return mins, maxs
}

// foldAffine folds a position de-quantization affine into a node
// transform so consumers reconstruct world-space geometry without
// knowing the affine.
func foldAffine(node *glb.Node, aff *Affine) {
	if node.Matrix != nil {
		m := mgl32.Mat4(*node.Matrix)
		a := mgl32.Translate3D(aff.Translation[0], aff.Translation[1], aff.Translation[2]).
			Mul4(mgl32.Scale3D(aff.Scale[0], aff.Scale[1], aff.Scale[2]))
		folded := [16]float32(m.Mul4(a))
		node.Matrix = &folded
		return
	}

	scale := [3]float32{1, 1, 1}
	if node.Scale != nil {
		scale = *node.Scale
	}
	rotation := [4]float32{0, 0, 0, 1}
	if node.Rotation != nil {
		rotation = *node.Rotation
	}
	translation := [3]float32{}
	if node.Translation != nil {
		translation = *node.Translation
	}

	q := mgl32.Quat{
		W: rotation[3],
		V: mgl32.Vec3{rotation[0], rotation[1], rotation[2]},
	}
	moved := q.Rotate(mgl32.Vec3{
		scale[0] * aff.Translation[0],
		scale[1] * aff.Translation[1],
		scale[2] * aff.Translation[2],
	})

	newScale := [3]float32{
		scale[0] * aff.Scale[0],
		scale[1] * aff.Scale[1],
		scale[2] * aff.Scale[2],
	}
	newTranslation := [3]float32{
		translation[0] + moved.X(),
		translation[1] + moved.Y(),
		translation[2] + moved.Z(),
	}
	node.Scale = &newScale
	node.Translation = &newTranslation
}

// emitImages copies every image into the new container. Buffer-view
// images are re-embedded (optionally resized); URI images pass through.
func (c *optimizeContext) emitImages(w *glb.Writer) []glb.Image {
	src := c.asset.Doc
	out := make([]glb.Image, 0, len(src.Images))
	for i := range src.Images {
		img := src.Images[i]
		if img.BufferView == nil {
			out = append(out, img)
			continue
		}
		data, mime := c.imageBytes(i)
		if data == nil {
			out = append(out, img)
			continue
		}
		if c.opts.TextureScale < 1 {
			if c.imageCodec == nil {
				c.degrade("image codec unavailable; textures not rescaled")
			} else if resized, err := c.imageCodec.Resize(data, mime, float64(c.opts.TextureScale)); err != nil {
				c.degrade("image resize failed; original image kept")
			} else {
				data = resized.Data
			}
		}
		view := w.AddView(data, 0, 0, 4)
		out = append(out, glb.Image{Name: img.Name, MimeType: mime, BufferView: &view})
	}
	return out
}

// emitAnimationsAndSkins copies animations and skins, re-homing every
// accessor they reference into the new buffer and patching indices
// through an old-to-new remap table.
func (c *optimizeContext) emitAnimationsAndSkins(w *glb.Writer) error {
	src := c.asset.Doc
	doc := w.Doc()
	remap := make(map[int]int)

	copyAccessor := func(old int) (int, error) {
		if idx, ok := remap[old]; ok {
			return idx, nil
		}
		if old < 0 || old >= len(src.Accessors) {
			return 0, fmt.Errorf("animation accessor %d: %w", old, glb.ErrAccessorOutOfRange)
		}
		raw, err := c.asset.AccessorBytes(old)
		if err != nil {
			return 0, err
		}
		acc := src.Accessors[old]
		view := w.AddView(raw, 0, 0, maxInt(4, glb.ComponentSize(acc.ComponentType)))
		acc.BufferView = &view
		acc.ByteOffset = 0
		idx := w.AddAccessor(acc)
		remap[old] = idx
		return idx, nil
	}

	doc.Animations = make([]glb.Animation, len(src.Animations))
	for ai := range src.Animations {
		anim := src.Animations[ai]
		samplers := make([]glb.AnimationSampler, len(anim.Samplers))
		for si, s := range anim.Samplers {
			input, err := copyAccessor(s.Input)
			if err != nil {
				return err
			}
			output, err := copyAccessor(s.Output)
			if err != nil {
				return err
			}
			samplers[si] = glb.AnimationSampler{Input: input, Output: output, Interpolation: s.Interpolation}
		}
		doc.Animations[ai] = glb.Animation{
			Name:     anim.Name,
			Channels: append([]glb.AnimationChannel(nil), anim.Channels...),
			Samplers: samplers,
		}
	}

	doc.Skins = make([]glb.Skin, len(src.Skins))
	for si := range src.Skins {
		skin := src.Skins[si]
		if skin.InverseBindMatrices != nil {
			idx, err := copyAccessor(*skin.InverseBindMatrices)
			if err != nil {
				return err
			}
			skin.InverseBindMatrices = &idx
		}
		skin.Joints = append([]int(nil), skin.Joints...)
		doc.Skins[si] = skin
	}
	return nil
}

func copyNode(n *glb.Node) glb.Node {
	out := *n
	out.Children = append([]int(nil), n.Children...)
	out.Mesh = copyIntPtr(n.Mesh)
	out.Skin = copyIntPtr(n.Skin)
	out.Camera = copyIntPtr(n.Camera)
	if n.Matrix != nil {
		m := *n.Matrix
		out.Matrix = &m
	}
	if n.Translation != nil {
		t := *n.Translation
		out.Translation = &t
	}
	if n.Rotation != nil {
		r := *n.Rotation
		out.Rotation = &r
	}
	if n.Scale != nil {
		s := *n.Scale
		out.Scale = &s
	}
	return out
}

func copyIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
