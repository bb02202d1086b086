package pvr

import (
	"math"
	"testing"
)

func floatBits(f float32) uint32 {
	return math.Float32bits(f)
}

func TestTriangleStripWindingAlternates(t *testing.T) {
	tr := NewTranslator()
	header := []uint32{
		uint32(ParaPolyOrVol) << 29, // untextured opaque polygon header
		0, 0,
		0, // TSP
		0, // TCW
	}
	if err := tr.Feed(header); err != nil {
		t.Fatalf("Feed(header): %v", err)
	}

	vtx := func(x, y, z float32) []uint32 {
		return []uint32{
			uint32(ParaVertex) << 29,
			floatBits(x), floatBits(y), floatBits(z),
			0xffffffff, // color
		}
	}
	for _, v := range [][3]float32{{0, 0, 1}, {1, 0, 1}, {0, 1, 1}, {1, 1, 1}} {
		if err := tr.Feed(vtx(v[0], v[1], v[2])); err != nil {
			t.Fatalf("Feed(vertex): %v", err)
		}
	}
	if err := tr.Feed([]uint32{uint32(ParaEndOfList) << 29}); err != nil {
		t.Fatalf("Feed(EOL): %v", err)
	}

	ctx := tr.Finish()
	surfaces := ctx.Surfaces[ListOpaque]
	if len(surfaces) != 1 {
		t.Fatalf("want 1 merged surface, got %d", len(surfaces))
	}
	if surfaces[0].NumVerts != 6 {
		t.Fatalf("want 6 verts (2 triangles from a 4-vertex strip), got %d", surfaces[0].NumVerts)
	}
}

func TestSurfaceStateChangeStartsNewSurface(t *testing.T) {
	tr := NewTranslator()
	polyHeader := func(tsp uint32) []uint32 {
		return []uint32{uint32(ParaPolyOrVol) << 29, 0, 0, tsp, 0}
	}
	vtx := func(x, y, z float32) []uint32 {
		return []uint32{uint32(ParaVertex) << 29, floatBits(x), floatBits(y), floatBits(z), 0xffffffff}
	}

	tr.Feed(polyHeader(1))
	for _, v := range [][3]float32{{0, 0, 1}, {1, 0, 1}, {0, 1, 1}} {
		tr.Feed(vtx(v[0], v[1], v[2]))
	}
	tr.Feed(polyHeader(2)) // different TSP -> new surface
	for _, v := range [][3]float32{{0, 0, 1}, {1, 0, 1}, {0, 1, 1}} {
		tr.Feed(vtx(v[0], v[1], v[2]))
	}
	tr.Feed([]uint32{uint32(ParaEndOfList) << 29})

	ctx := tr.Finish()
	if len(ctx.Surfaces[ListOpaque]) != 2 {
		t.Fatalf("want 2 surfaces after a TSP change, got %d", len(ctx.Surfaces[ListOpaque]))
	}
}

func TestAutosortStableByMinZ(t *testing.T) {
	surfaces := []Surface{
		{MinZ: 3, FirstVtx: 0},
		{MinZ: 1, FirstVtx: 3},
		{MinZ: 1, FirstVtx: 6}, // tie with prior: must stay after it
		{MinZ: 2, FirstVtx: 9},
	}
	stableSortByMinZ(surfaces)
	want := []float32{1, 1, 2, 3}
	for i, w := range want {
		if surfaces[i].MinZ != w {
			t.Fatalf("position %d: want MinZ %v, got %v", i, w, surfaces[i].MinZ)
		}
	}
	if surfaces[0].FirstVtx != 3 || surfaces[1].FirstVtx != 6 {
		t.Fatalf("stable sort reordered equal-depth surfaces: %+v", surfaces)
	}
}

func TestObjListSetIsFatal(t *testing.T) {
	tr := NewTranslator()
	err := tr.Feed([]uint32{uint32(ParaObjListSet) << 29})
	if err == nil {
		t.Fatalf("expected OBJ_LIST_SET to be rejected as fatal")
	}
}

func TestParseBackgroundSetsHasBackground(t *testing.T) {
	tr := NewTranslator()
	if tr.HasBackground() {
		t.Fatalf("HasBackground should be false before ParseBackground")
	}
	vtx := func(x, y, z float32) []uint32 {
		return []uint32{0, floatBits(x), floatBits(y), floatBits(z), 0xffffffff}
	}
	tr.ParseBackground(0, 0, [3][]uint32{vtx(0, 0, 1), vtx(1, 0, 1), vtx(0, 1, 1)})
	if !tr.HasBackground() {
		t.Fatalf("HasBackground should be true after ParseBackground")
	}
}

func TestTwoSeparateStripsWithSameStateStillMerge(t *testing.T) {
	tr := NewTranslator()
	header := []uint32{uint32(ParaPolyOrVol) << 29, 0, 0, 0, 0}
	vtx := func(x, y, z float32) []uint32 {
		return []uint32{uint32(ParaVertex) << 29, floatBits(x), floatBits(y), floatBits(z), 0xffffffff}
	}
	tr.Feed(header)
	for _, v := range [][3]float32{{0, 0, 1}, {1, 0, 1}, {0, 1, 1}} {
		tr.Feed(vtx(v[0], v[1], v[2]))
	}
	// A second polygon with identical TSP/TCW/texture state should merge
	// into the same surface rather than starting a new one, since nothing
	// about the render state changed between the two triangles.
	tr.Feed(header)
	for _, v := range [][3]float32{{2, 0, 1}, {3, 0, 1}, {2, 1, 1}} {
		tr.Feed(vtx(v[0], v[1], v[2]))
	}
	tr.Feed([]uint32{uint32(ParaEndOfList) << 29})

	ctx := tr.Finish()
	surfaces := ctx.Surfaces[ListOpaque]
	if len(surfaces) != 1 {
		t.Fatalf("want 1 merged surface across two same-state polygons, got %d", len(surfaces))
	}
	if surfaces[0].NumVerts != 6 {
		t.Fatalf("want 6 verts merged into one surface, got %d", surfaces[0].NumVerts)
	}
}

func TestTextureKeyPacksTSPAndTCW(t *testing.T) {
	k := MakeTextureKey(TSP(0xdeadbeef), TCW(0xcafef00d))
	if uint64(k)>>32 != 0xdeadbeef || uint32(k) != 0xcafef00d {
		t.Fatalf("texture key did not pack TSP/TCW correctly: %#x", uint64(k))
	}
}
