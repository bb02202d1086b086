package pvr

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"os"

	"golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
)

// Texture is a decoded, cached TA texture. Like the original renderer's
// registered_texture_t, it tracks a dirty flag and the frame number it was
// last (re)registered on so a caller can decide whether a VRAM write
// since then should force a re-decode.
type Texture struct {
	Key         TextureKey
	Width       int
	Height      int
	RGBA        *image.RGBA
	Dirty       bool
	FrameStamp  uint64
	MipMapped   bool
	VQCompressed bool
}

// TextureCache decodes and caches TA textures keyed by (TSP, TCW), since
// many polygons in a frame share identical texture state.
type TextureCache struct {
	entries map[TextureKey]*Texture
	frame   uint64
}

// NewTextureCache returns an empty cache.
func NewTextureCache() *TextureCache {
	return &TextureCache{entries: make(map[TextureKey]*Texture)}
}

// BeginFrame advances the cache's frame counter, used to stamp newly
// registered textures.
func (c *TextureCache) BeginFrame() { c.frame++ }

// Lookup returns the cached texture for (tsp, tcw) if present and not
// dirty.
func (c *TextureCache) Lookup(tsp TSP, tcw TCW) (*Texture, bool) {
	t, ok := c.entries[MakeTextureKey(tsp, tcw)]
	if !ok || t.Dirty {
		return nil, false
	}
	return t, true
}

// Register decodes raw texel bytes (already extracted from VRAM by the
// caller) into an RGBA buffer and stores it under the (tsp, tcw) key,
// clearing the dirty flag and stamping the current frame number — mirroring
// tr_register_texture's handle-lifetime bookkeeping.
func (c *TextureCache) Register(tsp TSP, tcw TCW, texels []byte) (*Texture, error) {
	w, h := tsp.TextureU(), tsp.TextureV()
	decoded, err := decodeTexels(texels, w, h, tcw)
	if err != nil {
		return nil, &TAError{Operation: "Register", Details: "texel decode", Err: err}
	}

	key := MakeTextureKey(tsp, tcw)
	tex := &Texture{
		Key: key, Width: w, Height: h, RGBA: decoded,
		FrameStamp:   c.frame,
		MipMapped:    tcw.MipMapped(),
		VQCompressed: tcw.VQCompressed(),
	}
	c.entries[key] = tex
	return tex, nil
}

// MarkDirty flags the cached texture at (tsp, tcw), if present, for
// re-decode on next Register.
func (c *TextureCache) MarkDirty(tsp TSP, tcw TCW) {
	if t, ok := c.entries[MakeTextureKey(tsp, tcw)]; ok {
		t.Dirty = true
	}
}

// decodeTexels interprets a raw texel buffer according to the pixel
// format named in tcw, producing a full-size RGBA image regardless of the
// source format's bit depth. Paletted sources decode into a half-resolution
// intermediate image first and are then resampled up to the target size
// with x/image/draw; VQ sources are decoded at full size as a grayscale
// index preview (see decodeVQ).
func decodeTexels(texels []byte, w, h int, tcw TCW) (*image.RGBA, error) {
	if tcw.VQCompressed() {
		return decodeVQ(texels, w, h)
	}
	switch tcw.PixelFormat() {
	case 0, 1: // ARGB1555, RGB565 family
		return decode16bpp(texels, w, h, tcw.PixelFormat())
	case 3: // 4bpp/8bpp paletted, resampled up from a half-resolution stage buffer
		return decodePaletted(texels, w, h)
	default:
		return decode16bpp(texels, w, h, 1)
	}
}

func decode16bpp(texels []byte, w, h, format int) (*image.RGBA, error) {
	if len(texels) < w*h*2 {
		return nil, fmt.Errorf("pvr: texel buffer too short: have %d want %d", len(texels), w*h*2)
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			off := (y*w + x) * 2
			px := uint16(texels[off]) | uint16(texels[off+1])<<8
			var r, g, b, a uint8
			if format == 0 { // ARGB1555
				a = uint8(px>>15) * 255
				r = expand5(uint8(px >> 10 & 0x1f))
				g = expand5(uint8(px >> 5 & 0x1f))
				b = expand5(uint8(px & 0x1f))
			} else { // RGB565
				a = 255
				r = expand5(uint8(px >> 11 & 0x1f))
				g = expand6(uint8(px >> 5 & 0x3f))
				b = expand5(uint8(px & 0x1f))
			}
			img.SetRGBA(x, y, rgbaColor(r, g, b, a))
		}
	}
	return img, nil
}

func decodePaletted(texels []byte, w, h int) (*image.RGBA, error) {
	stageW, stageH := w/2, h/2
	if stageW == 0 || stageH == 0 {
		stageW, stageH = w, h
	}
	stage := image.NewRGBA(image.Rect(0, 0, stageW, stageH))
	for y := 0; y < stageH; y++ {
		for x := 0; x < stageW; x++ {
			idx := y*stageW + x
			var v byte
			if idx < len(texels) {
				v = texels[idx]
			}
			stage.SetRGBA(x, y, rgbaColor(v, v, v, 255))
		}
	}
	full := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(full, full.Bounds(), stage, stage.Bounds(), draw.Over, nil)
	return full, nil
}

// decodeVQ reconstructs a vector-quantized texture's codebook-indexed
// texels. Codebook lookup itself is out of scope (it depends on VRAM
// layout this package doesn't own); the index stream is decoded to a flat
// grayscale preview so the trace-viewer at least has something to render
// and dump.
func decodeVQ(texels []byte, w, h int) (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			idx := y*w + x
			var v byte
			if idx < len(texels) {
				v = texels[idx]
			}
			img.SetRGBA(x, y, rgbaColor(v, v, v, 255))
		}
	}
	return img, nil
}

func expand5(v uint8) uint8 { return (v << 3) | (v >> 2) }
func expand6(v uint8) uint8 { return (v << 2) | (v >> 4) }

func rgbaColor(r, g, b, a uint8) color.RGBA {
	return color.RGBA{R: r, G: g, B: b, A: a}
}

// DumpBMP writes a cached texture's decoded RGBA buffer to w as a BMP,
// used by the trace-viewer CLI to inspect a texture pulled from a
// captured render context.
func DumpBMP(w io.Writer, t *Texture) error {
	bw := bufio.NewWriter(w)
	if err := bmp.Encode(bw, t.RGBA); err != nil {
		return &TAError{Operation: "DumpBMP", Details: "encode", Err: err}
	}
	return bw.Flush()
}

// DumpBMPFile is a convenience wrapper around DumpBMP for the CLI.
func DumpBMPFile(path string, t *Texture) error {
	f, err := os.Create(path)
	if err != nil {
		return &TAError{Operation: "DumpBMPFile", Details: path, Err: err}
	}
	defer f.Close()
	return DumpBMP(f, t)
}
