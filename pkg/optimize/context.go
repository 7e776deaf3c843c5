package optimize

import (
	"encoding/base64"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/glbopt/pkg/glb"
	"github.com/Faultbox/glbopt/pkg/imaging"
)

// optimizeContext carries the per-call state: options, capabilities and
// the caches whose lifetime is exactly one Optimize call.
type optimizeContext struct {
	opts  Options
	asset *glb.Asset
	log   *zap.Logger

	simplifier  Simplifier
	bufferCodec BufferCodec
	imageCodec  ImageCodec

	// images memoizes decodes keyed by image index; a nil entry records
	// a failed decode so it is not retried.
	images map[int]*imaging.Image

	degraded     []string
	degradedSeen map[string]bool
}

func newOptimizeContext(o *Optimizer, asset *glb.Asset, opts Options) *optimizeContext {
	log := o.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &optimizeContext{
		opts:         opts,
		asset:        asset,
		log:          log,
		simplifier:   o.Simplifier,
		bufferCodec:  o.BufferCodec,
		imageCodec:   o.ImageCodec,
		images:       make(map[int]*imaging.Image),
		degradedSeen: make(map[string]bool),
	}
}

// degrade records a capability fallback once per distinct message.
func (c *optimizeContext) degrade(msg string) {
	if c.degradedSeen[msg] {
		return
	}
	c.degradedSeen[msg] = true
	c.degraded = append(c.degraded, msg)
	c.log.Warn("capability degraded", zap.String("reason", msg))
}

// imageBytes resolves an image's encoded bytes and mime type. Returns
// nil bytes for images the optimizer cannot address (external URIs).
func (c *optimizeContext) imageBytes(index int) ([]byte, string) {
	if index < 0 || index >= len(c.asset.Doc.Images) {
		return nil, ""
	}
	img := &c.asset.Doc.Images[index]
	if img.BufferView != nil {
		bv := *img.BufferView
		if bv < 0 || bv >= len(c.asset.Doc.BufferViews) {
			return nil, ""
		}
		view := &c.asset.Doc.BufferViews[bv]
		return c.asset.Bin[view.ByteOffset : view.ByteOffset+view.ByteLength], img.MimeType
	}
	if strings.HasPrefix(img.URI, "data:") {
		comma := strings.Index(img.URI, ",")
		if comma < 0 || !strings.Contains(img.URI[:comma], "base64") {
			return nil, ""
		}
		data, err := base64.StdEncoding.DecodeString(img.URI[comma+1:])
		if err != nil {
			return nil, ""
		}
		mime := img.MimeType
		if mime == "" {
			header := img.URI[5:comma]
			if semi := strings.Index(header, ";"); semi >= 0 {
				mime = header[:semi]
			}
		}
		return data, mime
	}
	return nil, ""
}

// decodeImage decodes image index through the codec, memoized for the
// lifetime of the call. Returns nil when the codec is absent or decode
// fails; failures degrade rather than abort.
func (c *optimizeContext) decodeImage(index int) *imaging.Image {
	if img, ok := c.images[index]; ok {
		return img
	}
	var decoded *imaging.Image
	if c.imageCodec != nil {
		data, mime := c.imageBytes(index)
		if data != nil {
			img, err := c.imageCodec.Decode(data, mime)
			if err != nil {
				c.degrade("image decode failed; image left untouched")
				c.log.Debug("image decode failed", zap.Int("image", index), zap.Error(err))
			} else {
				decoded = img
			}
		}
	}
	c.images[index] = decoded
	return decoded
}
