// Package imaging provides the default image codec used by the
// optimizer: PNG/JPEG decode to RGBA8 and Catmull-Rom resampling.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
)

// Image is a decoded picture as tightly packed RGBA8 rows.
type Image struct {
	Width  int
	Height int
	RGBA   []byte
}

// Resized is a resampled, re-encoded picture.
type Resized struct {
	Data   []byte
	Width  int
	Height int
}

// Codec errors.
var (
	ErrUnsupportedMime = errors.New("unsupported image mime type")
	ErrBadScale        = errors.New("resize scale must be in (0,1)")
)

// jpegQuality keeps resized JPEGs at the quality floor the optimizer
// promises (≥ 0.9).
const jpegQuality = 90

// Codec implements decode and resize on the standard image codecs.
type Codec struct{}

// NewCodec returns the default codec.
func NewCodec() *Codec {
	return &Codec{}
}

// Decode decodes PNG or JPEG bytes into RGBA8 pixels.
func (c *Codec) Decode(data []byte, mime string) (*Image, error) {
	src, err := decodeByMime(data, mime)
	if err != nil {
		return nil, err
	}
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(rgba, rgba.Bounds(), src, bounds.Min, draw.Src)
	return &Image{Width: w, Height: h, RGBA: rgba.Pix}, nil
}

// Resize resamples the image by scale and re-encodes it to the same mime
// type. Output dimensions are floored at one pixel.
func (c *Codec) Resize(data []byte, mime string, scale float64) (*Resized, error) {
	if scale <= 0 || scale >= 1 {
		return nil, fmt.Errorf("%w: %v", ErrBadScale, scale)
	}
	src, err := decodeByMime(data, mime)
	if err != nil {
		return nil, err
	}
	bounds := src.Bounds()
	w := int(float64(bounds.Dx()) * scale)
	h := int(float64(bounds.Dy()) * scale)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Src, nil)

	var buf bytes.Buffer
	switch mime {
	case "image/png":
		err = png.Encode(&buf, dst)
	case "image/jpeg":
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMime, mime)
	}
	if err != nil {
		return nil, fmt.Errorf("re-encoding %s: %w", mime, err)
	}
	return &Resized{Data: buf.Bytes(), Width: w, Height: h}, nil
}

func decodeByMime(data []byte, mime string) (image.Image, error) {
	switch mime {
	case "image/png":
		return png.Decode(bytes.NewReader(data))
	case "image/jpeg":
		return jpeg.Decode(bytes.NewReader(data))
	case "":
		img, _, err := image.Decode(bytes.NewReader(data))
		return img, err
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedMime, mime)
}

// At returns the RGBA8 pixel at (x, y). Out-of-range coordinates clamp
// to the image border.
func (m *Image) At(x, y int) (r, g, b, a uint8) {
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	if x >= m.Width {
		x = m.Width - 1
	}
	if y >= m.Height {
		y = m.Height - 1
	}
	i := (y*m.Width + x) * 4
	return m.RGBA[i], m.RGBA[i+1], m.RGBA[i+2], m.RGBA[i+3]
}

// Luma returns the pixel luminance at (x, y) in [0,1].
func (m *Image) Luma(x, y int) float32 {
	r, g, b, _ := m.At(x, y)
	return (0.299*float32(r) + 0.587*float32(g) + 0.114*float32(b)) / 255
}
