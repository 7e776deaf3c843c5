package optimize

import (
	"context"

	"go.uber.org/zap"

	"github.com/Faultbox/glbopt/pkg/glb"
	"github.com/Faultbox/glbopt/pkg/imaging"
	"github.com/Faultbox/glbopt/pkg/simplify"
)

// LOD is one emitted level of detail.
type LOD struct {
	Ratio         float32
	TriangleCount int
	GLB           []byte
}

// Result is the outcome of one Optimize call: the ordered LOD chain plus
// advisory notes about degraded capabilities and parse-time warnings.
type Result struct {
	LODs        []LOD
	SourceStats glb.Stats
	Degraded    []string
	Warnings    []string
}

// Optimizer runs the optimization pipeline. Capabilities are injected;
// a nil capability degrades the corresponding stage to the identity
// transform rather than failing the call.
type Optimizer struct {
	Simplifier  Simplifier
	BufferCodec BufferCodec
	ImageCodec  ImageCodec
	Log         *zap.Logger
}

// New returns an Optimizer wired with the native simplifier and image
// codec. No buffer codec is bundled: without one, meshopt compression
// degrades to uncompressed views.
func New() *Optimizer {
	return &Optimizer{
		Simplifier: simplify.New(),
		ImageCodec: imaging.NewCodec(),
		Log:        zap.NewNop(),
	}
}

// Optimize runs the full pipeline over the asset and returns one output
// container per LOD level. The context is honored at primitive, view and
// LOD boundaries; on cancellation all partial state is discarded and no
// output is produced.
func (o *Optimizer) Optimize(ctx context.Context, asset *glb.Asset, opts Options) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	opts = opts.normalized()
	c := newOptimizeContext(o, asset, opts)

	base, err := c.buildBase(ctx)
	if err != nil {
		return nil, err
	}

	if opts.TextureAware {
		if c.imageCodec == nil {
			c.degrade("image codec unavailable; texture-space importance disabled")
		}
		if err := c.computeLocks(ctx, base); err != nil {
			return nil, err
		}
	}

	result := &Result{
		SourceStats: asset.Stats(),
		Warnings:    append([]string(nil), asset.Warnings...),
	}
	for _, ratio := range opts.LODLevels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		prims, triangles, err := c.generateLOD(ctx, base, ratio)
		if err != nil {
			return nil, err
		}
		data, err := c.emitGLB(prims)
		if err != nil {
			return nil, err
		}
		c.log.Info("lod emitted",
			zap.Float32("ratio", ratio),
			zap.Int("triangles", triangles),
			zap.Int("bytes", len(data)))
		result.LODs = append(result.LODs, LOD{Ratio: ratio, TriangleCount: triangles, GLB: data})
	}
	result.Degraded = c.degraded
	return result, nil
}
