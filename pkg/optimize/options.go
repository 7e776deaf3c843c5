// Package optimize implements the mesh optimization pipeline over parsed
// GLB assets: vertex deduplication, cache reordering, importance-aware
// simplification, attribute quantization and re-emission with meshopt
// compression applied per buffer view.
package optimize

// Options controls a single Optimize call.
type Options struct {
	// DeduplicateVertices merges identical vertices before any other
	// geometry stage.
	DeduplicateVertices bool

	// OptimizeVertexCache reorders triangles for post-transform cache
	// locality and vertices in first-use order.
	OptimizeVertexCache bool

	// QuantizePositions stores POSITION as int16 or int8 with a
	// de-quantization affine folded into node transforms.
	QuantizePositions bool

	// PositionBits selects the position quantization width: 8 or 16.
	PositionBits int

	QuantizeNormals  bool
	QuantizeUVs      bool
	QuantizeTangents bool

	// MeshoptCompression compresses buffer views through the injected
	// BufferCodec. Without a codec, views are written uncompressed.
	MeshoptCompression bool

	// TextureAware enables the importance analyzers; their scores
	// protect visually salient vertices during simplification.
	TextureAware bool

	// ImportanceThreshold is the lock threshold T: a non-seam vertex is
	// locked when its score exceeds T, a seam vertex when it exceeds T/2.
	ImportanceThreshold float32

	// LODErrorThreshold bounds simplification error in parameter space.
	LODErrorThreshold float32

	// TextureScale resizes every buffer-view-backed image by this factor
	// when below 1.
	TextureScale float32

	// LODLevels lists the target triangle ratios, each in (0, 1].
	LODLevels []float32
}

// Default returns the documented option defaults.
func Default() Options {
	return Options{
		DeduplicateVertices: true,
		OptimizeVertexCache: true,
		QuantizePositions:   true,
		PositionBits:        16,
		QuantizeNormals:     true,
		QuantizeUVs:         true,
		QuantizeTangents:    true,
		MeshoptCompression:  true,
		TextureAware:        false,
		ImportanceThreshold: 0.5,
		LODErrorThreshold:   0.02,
		TextureScale:        1.0,
		LODLevels:           []float32{1.0, 0.9, 0.8, 0.7, 0.5, 0.25},
	}
}

// normalized returns a copy with out-of-range values clamped to their
// documented domains.
func (o Options) normalized() Options {
	if o.PositionBits != 8 {
		o.PositionBits = 16
	}
	if o.ImportanceThreshold < 0 {
		o.ImportanceThreshold = 0
	}
	if o.ImportanceThreshold > 1 {
		o.ImportanceThreshold = 1
	}
	if o.LODErrorThreshold < 0 {
		o.LODErrorThreshold = 0
	}
	if o.TextureScale <= 0 || o.TextureScale > 1 {
		o.TextureScale = 1
	}
	if len(o.LODLevels) == 0 {
		o.LODLevels = []float32{1.0}
	}
	levels := make([]float32, 0, len(o.LODLevels))
	for _, r := range o.LODLevels {
		if r > 0 && r <= 1 {
			levels = append(levels, r)
		}
	}
	if len(levels) == 0 {
		levels = []float32{1.0}
	}
	o.LODLevels = levels
	return o
}
