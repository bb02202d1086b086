package pvr

import "fmt"

// Translator consumes a stream of 32-bit TA parameter words (each display
// list parameter is 8 or 16 words; only the fields the render context
// needs are decoded) and accumulates a RenderContext. One Translator
// instance handles exactly one frame's opaque+punch-through+translucent
// lists plus the background quad, then Finish() sorts translucent/
// punch-through surfaces by depth and returns the completed context.
type Translator struct {
	ctx RenderContext

	curList    ListType
	haveList   bool
	curPCW     PCW
	curTSP     TSP
	curTCW     TCW
	pendingVerts []Vertex // strip-in-progress, for triangle-strip winding
	vertexType   int      // para words per vertex for the current polygon (8 or 16 depending on PCW)

	bgParsed bool
}

// HasBackground reports whether ParseBackground has been called for the
// current frame; the rasterizer backend uses this to decide whether to
// fall back to a default clear color instead of the synthesized quad.
func (t *Translator) HasBackground() bool { return t.bgParsed }

// NewTranslator returns an empty translator ready to consume a display list.
func NewTranslator() *Translator { return &Translator{} }

// TAError is the typed error the translator returns for malformed or
// out-of-order display-list parameters.
type TAError struct {
	Operation string
	Details   string
	Err       error
}

func (e *TAError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pvr: %s: %s: %v", e.Operation, e.Details, e.Err)
	}
	return fmt.Sprintf("pvr: %s: %s", e.Operation, e.Details)
}
func (e *TAError) Unwrap() error { return e.Err }

// Feed dispatches one TA parameter (its raw words) according to the PCW in
// words[0], the same fixed-priority dispatch the hardware's TA FIFO state
// machine performs on para_type.
func (t *Translator) Feed(words []uint32) error {
	if len(words) == 0 {
		return &TAError{Operation: "Feed", Details: "empty parameter"}
	}
	pcw := PCW(words[0])
	switch pcw.ParaType() {
	case ParaEndOfList:
		t.flushStrip()
		t.haveList = false
		return nil

	case ParaUserTileClip:
		// Tile clip rectangles scope later polygons to a tile region; the
		// render context doesn't need per-tile culling (that's the
		// rasterizer's job), so this parameter only needs to be consumed,
		// not stored.
		return nil

	case ParaObjListSet:
		return &TAError{Operation: "Feed", Details: "OBJ_LIST_SET (direct render) is fatal: compressed-mode display lists are out of scope"}

	case ParaPolyOrVol:
		t.flushStrip()
		t.beginPolygon(words, pcw)
		return nil

	case ParaSprite:
		t.flushStrip()
		t.beginPolygon(words, pcw)
		return t.feedSprite(words)

	case ParaVertex:
		return t.feedVertex(words)
	}
	return &TAError{Operation: "Feed", Details: fmt.Sprintf("unhandled para_type %d", pcw.ParaType())}
}

func (t *Translator) beginPolygon(words []uint32, pcw PCW) {
	t.curList = pcw.ListType()
	t.haveList = true
	t.curPCW = pcw
	if len(words) > 1 {
		t.curTSP = TSP(words[3])
		t.curTCW = TCW(words[4])
	}
	t.vertexType = vertexWordCount(pcw)
	t.pendingVerts = t.pendingVerts[:0]
}

// vertexWordCount returns how many 32-bit words make up one vertex
// parameter for the given polygon's PCW state: textured+offset vertices
// carry more fields than untextured ones.
func vertexWordCount(pcw PCW) int {
	switch {
	case pcw.Texture() && pcw.Offset():
		return 16
	case pcw.Texture():
		return 8
	default:
		return 8
	}
}

func (t *Translator) feedVertex(words []uint32) error {
	if !t.haveList {
		return &TAError{Operation: "feedVertex", Details: "vertex parameter before polygon header"}
	}
	v := decodeVertex(words, t.curPCW)
	t.pendingVerts = append(t.pendingVerts, v)
	if len(t.pendingVerts) >= 3 {
		t.emitTriangleFromStrip()
	}
	return nil
}

func (t *Translator) feedSprite(words []uint32) error {
	// A sprite parameter packs all 4 corners in one parameter rather than
	// a strip of VERTEX parameters; synthesize the two triangles directly.
	if len(words) < 16 {
		return &TAError{Operation: "feedSprite", Details: "short sprite parameter"}
	}
	corners := decodeSpriteCorners(words)
	// Sprite winding: (0,1,2) and (0,2,3), matching the hardware's fixed
	// sprite-quad-to-triangles split (no strip state involved).
	t.appendTriangle(corners[0], corners[1], corners[2])
	t.appendTriangle(corners[0], corners[2], corners[3])
	return nil
}

// emitTriangleFromStrip converts the running vertex strip into independent
// triangles, alternating winding order every other triangle the way a
// triangle strip must to keep front-facing orientation consistent
// (even-indexed triangles keep (n-2,n-1,n) order; odd-indexed triangles
// swap the first two to undo the strip's zig-zag).
func (t *Translator) emitTriangleFromStrip() {
	n := len(t.pendingVerts)
	a, b, c := t.pendingVerts[n-3], t.pendingVerts[n-2], t.pendingVerts[n-1]
	if n%2 == 0 {
		t.appendTriangle(b, a, c)
	} else {
		t.appendTriangle(a, b, c)
	}
}

func (t *Translator) flushStrip() {
	t.pendingVerts = t.pendingVerts[:0]
}

func (t *Translator) appendTriangle(a, b, c Vertex) {
	first := len(t.ctx.Verts)
	minZ := a.Z
	if b.Z < minZ {
		minZ = b.Z
	}
	if c.Z < minZ {
		minZ = c.Z
	}
	t.ctx.Verts = append(t.ctx.Verts, a, b, c)

	surfaces := t.ctx.Surfaces[t.curList]
	if n := len(surfaces); n > 0 && t.mergeable(&surfaces[n-1], first) {
		surfaces[n-1].NumVerts += 3
		if minZ < surfaces[n-1].MinZ {
			surfaces[n-1].MinZ = minZ
		}
	} else {
		surfaces = append(surfaces, Surface{
			List:     t.curList,
			TSP:      t.curTSP,
			TCW:      t.curTCW,
			Texture:  t.curPCW.Texture(),
			FirstVtx: first,
			NumVerts: 3,
			MinZ:     minZ,
		})
	}
	t.ctx.Surfaces[t.curList] = surfaces
}

// mergeable reports whether the in-progress triangle's state (TSP/TCW/
// texture flag) is identical to the given surface and immediately follows
// it in the vertex buffer (firstVtxOfNewTri is the vertex index the new
// triangle starts at, before it was appended), letting consecutive
// polygons that share render state compact into a single draw-call-sized
// surface instead of one per source polygon.
func (t *Translator) mergeable(s *Surface, firstVtxOfNewTri int) bool {
	return s.List == t.curList && s.TSP == t.curTSP && s.TCW == t.curTCW && s.Texture == t.curPCW.Texture() &&
		s.FirstVtx+s.NumVerts == firstVtxOfNewTri
}

// ParseBackground records the background vertices from the 3 vertex
// parameters that accompany the ISP_BACKGND_T/ISP_BACKGND_D control words,
// following tr_parse_bg/tr_parse_bg_vert: ISP_BACKGND_T's "skip" field is
// unreliable in practice (the original renderer overrides it), so all 3
// supplied vertices are always consumed regardless of what the skip count
// claims. The vertices are stored as decoded in BGVerts; no fourth quad
// corner is synthesized.
func (t *Translator) ParseBackground(ispBackgndT, ispBackgndD uint32, words [3][]uint32) {
	t.bgParsed = true
	for i := 0; i < 3; i++ {
		t.ctx.BGVerts[i] = decodeVertex(words[i], 0)
	}
	_ = ispBackgndD // depth value applied by the rasterizer, not needed here
	_ = ispBackgndT
}

// Finish sorts the punch-through and translucent lists by ascending MinZ
// (back-to-front is the rasterizer's concern; the translator's contract is
// a stable near-to-far autosort ordering) and returns the completed
// context. A stable sort preserves submission order among
// equal-depth surfaces, matching the original autosort's tie-breaking
// behavior.
func (t *Translator) Finish() RenderContext {
	t.flushStrip()
	for _, lt := range []ListType{ListPunchThrough, ListTranslucent, ListTranslucentModVol} {
		stableSortByMinZ(t.ctx.Surfaces[lt])
	}
	return t.ctx
}

// stableSortByMinZ is a straightforward stable merge sort rather than
// sort.SliceStable, so surface ordering stays deterministic with a single
// scratch-buffer allocation for the small (typically <200) per-frame
// surface counts involved.
func stableSortByMinZ(s []Surface) {
	if len(s) < 2 {
		return
	}
	buf := make([]Surface, len(s))
	mergeSort(s, buf)
}

func mergeSort(s, buf []Surface) {
	n := len(s)
	if n < 2 {
		return
	}
	mid := n / 2
	mergeSort(s[:mid], buf[:mid])
	mergeSort(s[mid:], buf[mid:])
	copy(buf, s)
	i, j, k := 0, mid, 0
	for i < mid && j < n {
		if buf[i].MinZ <= buf[j].MinZ {
			s[k] = buf[i]
			i++
		} else {
			s[k] = buf[j]
			j++
		}
		k++
	}
	for i < mid {
		s[k] = buf[i]
		i++
		k++
	}
	for j < n {
		s[k] = buf[j]
		j++
		k++
	}
}
