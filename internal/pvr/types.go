// Package pvr translates PowerVR2 tile-accelerator display lists — the
// parameter stream a Dreamcast game writes to TA registers — into a
// render context of surfaces, vertices and indices ready for a (separately
// scoped) rasterizer backend to consume.
package pvr

// ParaType is the 3-bit Parameter Control Word "para type" field selecting
// how the rest of a TA parameter is interpreted.
type ParaType uint8

const (
	ParaEndOfList ParaType = iota
	ParaUserTileClip
	ParaObjListSet
	_ // reserved
	_ // reserved
	ParaPolyOrVol
	ParaSprite
	ParaVertex
)

// ListType selects which of the five TA lists (opaque, opaque modifier
// volume, translucent, translucent modifier volume, punch-through) a
// polygon belongs to.
type ListType uint8

const (
	ListOpaque ListType = iota
	ListOpaqueModVol
	ListTranslucent
	ListTranslucentModVol
	ListPunchThrough
	numLists
)

// PCW is the Parameter Control Word prefixing every TA parameter.
type PCW uint32

func (p PCW) ParaType() ParaType { return ParaType((p >> 29) & 0x7) }
func (p PCW) ListType() ListType { return ListType((p >> 24) & 0x7) }
func (p PCW) IsSprite() bool     { return p.ParaType() == ParaSprite }
func (p PCW) ColType() int       { return int((p >> 4) & 0x3) }
func (p PCW) Texture() bool      { return (p>>21)&0x1 != 0 }
func (p PCW) Gouraud() bool      { return (p>>23)&0x1 != 0 }
func (p PCW) UV16() bool         { return (p>>20)&0x1 != 0 }
func (p PCW) Offset() bool       { return (p>>22)&0x1 != 0 }

// TSP is the Texture/Shading Parameter word controlling blend mode,
// filtering, and per-polygon shading state that (along with TCW) forms the
// texture cache key.
type TSP uint32

func (t TSP) SrcBlend() int  { return int((t >> 29) & 0x7) }
func (t TSP) DstBlend() int  { return int((t >> 26) & 0x7) }
func (t TSP) TextureU() int  { return 8 << ((t >> 3) & 0x7) }
func (t TSP) TextureV() int  { return 8 << (t & 0x7) }

// TCW is the Texture Control Word: format, VQ/mipmap flags, and the VRAM
// texture address.
type TCW uint32

func (t TCW) Addr() uint32       { return uint32(t&0x1fffff) << 3 }
func (t TCW) PixelFormat() int   { return int((t >> 27) & 0x7) }
func (t TCW) VQCompressed() bool { return (t>>30)&0x1 != 0 }
func (t TCW) MipMapped() bool    { return (t>>31)&0x1 != 0 }
func (t TCW) Twiddled() bool     { return (t>>26)&0x1 == 0 }

// TextureKey is the 64-bit (TSP<<32 | TCW) key a decoded texture is cached
// under, matching the original renderer's registered_texture_t lookup.
type TextureKey uint64

func MakeTextureKey(tsp TSP, tcw TCW) TextureKey {
	return TextureKey(uint64(tsp)<<32 | uint64(tcw))
}

// Vertex is one TA vertex: position, color, and texture coordinates in the
// layout the rasterizer backend consumes.
type Vertex struct {
	X, Y, Z    float32
	U, V       float32
	R, G, B, A float32
	OR, OG, OB float32 // offset (specular) color, when PCW.Offset() is set
}

// Surface groups a run of vertices sharing identical TSP/TCW/PCW state —
// the unit the TA translator batches draw calls into, compacted by
// mergeable-state checks so consecutive polygons with identical state
// become one surface instead of one per polygon.
type Surface struct {
	List     ListType
	TSP      TSP
	TCW      TCW
	Texture  bool
	FirstVtx int
	NumVerts int
	MinZ     float32 // nearest vertex depth, used for autosort ordering
}

// RenderContext is the translator's output: every surface and vertex
// needed to draw one frame, plus the three background vertices that
// ParseBackground records (no fourth quad corner is synthesized).
type RenderContext struct {
	Surfaces [numLists][]Surface
	Verts    []Vertex
	BGVerts  [3]Vertex
}
