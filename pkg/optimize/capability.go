package optimize

import "github.com/Faultbox/glbopt/pkg/imaging"

// Simplifier is the injected mesh processing kernel. A nil Simplifier
// degrades every geometry stage to the identity transform.
type Simplifier interface {
	// Compact builds a deduplication remap over the vertex stream:
	// vertices with identical bytes collapse to one slot, unreferenced
	// vertices are dropped. remap[old] = new; unique is the new vertex
	// count.
	Compact(indices []uint32, vertexData []byte, vertexStride int) (remap []uint32, unique int)

	// Reorder returns cache-optimized indices together with a vertex
	// remap in first-use order.
	Reorder(indices []uint32, vertexCount int) (newIndices []uint32, remap []uint32, unique int)

	// Simplify reduces the index list by edge collapse. positions holds
	// xyz triples; uvs, when non-nil, holds uv pairs folded into the
	// error metric with uvWeight per channel. Locked vertices are never
	// removed, and with lockBorder set neither are boundary vertices.
	// Collapses whose parameter-space error exceeds errorThreshold are
	// abandoned. Returns the reduced indices and the achieved error.
	Simplify(indices []uint32, positions []float32, uvs []float32, uvWeight float32,
		vertexLock []bool, targetIndexCount int, errorThreshold float32,
		lockBorder bool) ([]uint32, float32, error)
}

// BufferCodec encodes buffer views into a meshopt-compatible bitstream.
// Encoding failures make the pipeline fall back to an uncompressed view.
type BufferCodec interface {
	// EncodeIndexBuffer compresses a u32 triangle index stream
	// (mode TRIANGLES, logical stride 4).
	EncodeIndexBuffer(indices []uint32) ([]byte, error)

	// EncodeVertexBuffer compresses interleaved vertex bytes with the
	// given element stride (mode ATTRIBUTES). stride must be divisible
	// by 4 and at most 256.
	EncodeVertexBuffer(data []byte, count, stride int) ([]byte, error)
}

// ImageCodec decodes and resamples material images. A nil ImageCodec
// disables texture-space importance and texture rescaling.
type ImageCodec interface {
	// Decode decodes encoded image bytes into RGBA8 pixels.
	Decode(data []byte, mime string) (*imaging.Image, error)

	// Resize resamples the image by scale in (0,1) and re-encodes it to
	// the same mime type.
	Resize(data []byte, mime string, scale float64) (*imaging.Resized, error)
}
