package pvr

import "math"

func f32FromBits(bits uint32) float32 { return math.Float32frombits(bits) }

// decodeVertex extracts position, color, and (when the owning polygon is
// textured) UV coordinates from a VERTEX parameter's raw words:
// words[1..3] are X/Y/Z as IEEE-754 floats; when textured, words[4..5]
// carry U/V as floats, or word[4] packs both as 16-bit values scaled to
// [0,1] when PCW.UV16 is set; the ARGB8888 base color is word[6] for
// textured polygons and word[4] otherwise, and the next word holds the
// offset color when PCW.Offset is set. Only packed ARGB8888 colors are
// decoded; PCW.Gouraud is not consulted.
func decodeVertex(words []uint32, pcw PCW) Vertex {
	var v Vertex
	if len(words) > 3 {
		v.X = f32FromBits(words[1])
		v.Y = f32FromBits(words[2])
		v.Z = f32FromBits(words[3])
	}
	if pcw.Texture() && len(words) > 5 {
		if pcw.UV16() {
			v.U = float32(uint16(words[4]>>16)) / 65535
			v.V = float32(uint16(words[4])) / 65535
		} else {
			v.U = f32FromBits(words[4])
			v.V = f32FromBits(words[5])
		}
	}
	colorWordIdx := 6
	if !pcw.Texture() {
		colorWordIdx = 4
	}
	if len(words) > colorWordIdx {
		v.A, v.R, v.G, v.B = decodeARGB8888(words[colorWordIdx])
	}
	if pcw.Offset() && len(words) > colorWordIdx+1 {
		_, v.OR, v.OG, v.OB = decodeARGB8888(words[colorWordIdx+1])
	}
	return v
}

func decodeARGB8888(w uint32) (a, r, g, b float32) {
	a = float32(uint8(w>>24)) / 255
	r = float32(uint8(w>>16)) / 255
	g = float32(uint8(w>>8)) / 255
	b = float32(uint8(w)) / 255
	return
}

// decodeSpriteCorners extracts the 4 vertex positions of a SPRITE
// parameter; only 3 have explicit Z (the 4th is derived as the hardware
// does, from the plane equation of the other 3 — approximated here as the
// average of the adjacent corners' Z, since exact plane-equation recovery
// needs the ISP state this translator doesn't model).
func decodeSpriteCorners(words []uint32) [4]Vertex {
	var c [4]Vertex
	for i := 0; i < 3; i++ {
		base := 1 + i*3
		c[i].X = f32FromBits(words[base])
		c[i].Y = f32FromBits(words[base+1])
		c[i].Z = f32FromBits(words[base+2])
	}
	c[3].X = f32FromBits(words[13])
	c[3].Y = f32FromBits(words[14])
	c[3].Z = (c[0].Z + c[2].Z) / 2
	uv := words[15]
	c[0].U, c[0].V = float32(uint16(uv>>16))/65535, float32(uint16(uv))/65535
	return c
}
