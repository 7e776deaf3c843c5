package optimize

import (
	"context"

	"go.uber.org/zap"

	"github.com/Faultbox/glbopt/pkg/glb"
	"github.com/Faultbox/glbopt/pkg/importance"
)

// basePrim is a primitive after the shared stages (dedupe + reorder),
// the state every LOD ratio restarts from. The lock mask is computed
// once and reused across ratios.
type basePrim struct {
	geom *primGeometry
	lock []bool
}

// buildBase ingests every primitive in stable (mesh, primitive) order
// and runs the ratio-independent stages.
func (c *optimizeContext) buildBase(ctx context.Context) ([]*basePrim, error) {
	var base []*basePrim
	for mi := range c.asset.Doc.Meshes {
		for pi := range c.asset.Doc.Meshes[mi].Primitives {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			g, err := ingestPrimitive(c.asset, mi, pi)
			if err != nil {
				return nil, err
			}
			g = c.dedupe(g)
			g = c.reorder(g)
			base = append(base, &basePrim{geom: g})
		}
	}
	return base, nil
}

// computeLocks runs the importance analyzers over the base geometry and
// derives each primitive's vertex lock mask.
func (c *optimizeContext) computeLocks(ctx context.Context, base []*basePrim) error {
	prims := make([]*importance.Primitive, 0, len(base))
	analyzed := make([]int, 0, len(base))
	for i, bp := range base {
		if bp.geom.passthrough || bp.geom.triangleCount() == 0 {
			continue
		}
		prims = append(prims, c.importancePrimitive(bp.geom))
		analyzed = append(analyzed, i)
	}
	if len(prims) == 0 {
		return nil
	}

	viewScores, err := importance.ViewScores(ctx, prims)
	if err != nil {
		return err
	}

	for k, p := range prims {
		texScores := importance.TextureScores(p)
		scores := importance.Merge(texScores, viewScores[k])
		if scores == nil {
			continue
		}
		seams := importance.DetectSeams(p.Positions, p.UVs)
		bp := base[analyzed[k]]
		bp.lock = importance.LockMask(scores, seams, c.opts.ImportanceThreshold)
		c.log.Debug("importance computed",
			zap.Int("mesh", bp.geom.mesh),
			zap.Int("primitive", bp.geom.prim),
			zap.Int("locked", countTrue(bp.lock)))
	}
	return nil
}

// importancePrimitive adapts a primitive's working copy plus its
// material's decoded textures for the analyzers.
func (c *optimizeContext) importancePrimitive(g *primGeometry) *importance.Primitive {
	p := &importance.Primitive{
		Positions: g.attr("POSITION").F32,
		Indices:   g.indices,
	}
	if uv := g.attr("TEXCOORD_0"); uv != nil {
		p.UVs = uv.F32
	}
	if g.material == nil || *g.material < 0 || *g.material >= len(c.asset.Doc.Materials) {
		return p
	}
	mat := &c.asset.Doc.Materials[*g.material]
	add := func(ref *glb.TextureRef, role importance.Role) {
		if ref == nil {
			return
		}
		imgIdx := c.textureImage(ref.Index)
		if imgIdx < 0 {
			return
		}
		if img := c.decodeImage(imgIdx); img != nil {
			p.Textures = append(p.Textures, importance.BoundTexture{Role: role, Image: img})
		}
	}
	if mat.PBRMetallicRoughness != nil {
		add(mat.PBRMetallicRoughness.BaseColorTexture, importance.RoleBaseColor)
		add(mat.PBRMetallicRoughness.MetallicRoughnessTexture, importance.RoleMetallicRoughness)
	}
	add(mat.NormalTexture, importance.RoleNormal)
	add(mat.OcclusionTexture, importance.RoleOcclusion)
	add(mat.EmissiveTexture, importance.RoleEmissive)
	return p
}

// textureImage resolves a texture index to its image index, -1 when
// unresolvable.
func (c *optimizeContext) textureImage(texIdx int) int {
	if texIdx < 0 || texIdx >= len(c.asset.Doc.Textures) {
		return -1
	}
	src := c.asset.Doc.Textures[texIdx].Source
	if src == nil {
		return -1
	}
	return *src
}

// generateLOD runs the ratio-dependent stages from a fresh copy of every
// base primitive. Ratio 1 skips simplification.
func (c *optimizeContext) generateLOD(ctx context.Context, base []*basePrim, ratio float32) ([]*primGeometry, int, error) {
	out := make([]*primGeometry, 0, len(base))
	triangles := 0
	for _, bp := range base {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		g := bp.geom.clone()
		if ratio < 1 {
			g = c.simplifyTo(g, ratio, bp.lock)
		}
		g = c.quantizeAll(g)
		triangles += g.triangleCount()
		out = append(out, g)
	}
	return out, triangles, nil
}

func countTrue(mask []bool) int {
	n := 0
	for _, b := range mask {
		if b {
			n++
		}
	}
	return n
}
