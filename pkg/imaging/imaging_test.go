package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 8), G: uint8(y * 8), B: 32, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestCodec_Decode(t *testing.T) {
	data := encodePNG(t, 8, 6)
	c := NewCodec()

	img, err := c.Decode(data, "image/png")
	if err != nil {
		t.Fatal(err)
	}
	if img.Width != 8 || img.Height != 6 {
		t.Errorf("dimensions %dx%d, want 8x6", img.Width, img.Height)
	}
	if len(img.RGBA) != 8*6*4 {
		t.Errorf("pixel buffer length %d, want %d", len(img.RGBA), 8*6*4)
	}
	if _, _, _, a := img.At(0, 0); a != 255 {
		t.Errorf("alpha = %d, want 255", a)
	}
}

func TestCodec_DecodeUnknownMime(t *testing.T) {
	c := NewCodec()
	if _, err := c.Decode([]byte{1, 2, 3}, "image/webp"); !errors.Is(err, ErrUnsupportedMime) {
		t.Errorf("got %v, want ErrUnsupportedMime", err)
	}
}

func TestCodec_Resize(t *testing.T) {
	data := encodePNG(t, 16, 16)
	c := NewCodec()

	resized, err := c.Resize(data, "image/png", 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if resized.Width != 8 || resized.Height != 8 {
		t.Errorf("dimensions %dx%d, want 8x8", resized.Width, resized.Height)
	}

	// The result must re-decode as the same mime type.
	round, err := c.Decode(resized.Data, "image/png")
	if err != nil {
		t.Fatalf("resized output does not decode: %v", err)
	}
	if round.Width != 8 || round.Height != 8 {
		t.Errorf("re-decoded dimensions %dx%d, want 8x8", round.Width, round.Height)
	}
}

func TestCodec_ResizeBadScale(t *testing.T) {
	data := encodePNG(t, 4, 4)
	c := NewCodec()
	for _, scale := range []float64{0, 1, 1.5, -0.25} {
		if _, err := c.Resize(data, "image/png", scale); !errors.Is(err, ErrBadScale) {
			t.Errorf("scale %v: got %v, want ErrBadScale", scale, err)
		}
	}
}

func TestCodec_ResizeFloorsAtOnePixel(t *testing.T) {
	data := encodePNG(t, 2, 2)
	c := NewCodec()
	resized, err := c.Resize(data, "image/png", 0.1)
	if err != nil {
		t.Fatal(err)
	}
	if resized.Width < 1 || resized.Height < 1 {
		t.Errorf("dimensions %dx%d collapsed to zero", resized.Width, resized.Height)
	}
}

func TestImage_AtClamps(t *testing.T) {
	img := &Image{Width: 2, Height: 2, RGBA: []byte{
		255, 0, 0, 255, 0, 255, 0, 255,
		0, 0, 255, 255, 255, 255, 255, 255,
	}}
	r, _, _, _ := img.At(-5, -5)
	if r != 255 {
		t.Errorf("clamped read r = %d, want 255", r)
	}
	_, _, b, _ := img.At(10, 10)
	if b != 255 {
		t.Errorf("clamped read b = %d, want 255", b)
	}
}
