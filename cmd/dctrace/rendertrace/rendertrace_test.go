package rendertrace

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/dcshade/dcore/internal/pvr"
)

func writeFrame(t *testing.T, buf *bytes.Buffer, verts []pvr.Vertex, surfaces []pvr.Surface) {
	t.Helper()
	binary.Write(buf, binary.LittleEndian, uint32(len(verts)))
	for _, v := range verts {
		binary.Write(buf, binary.LittleEndian, v)
	}
	binary.Write(buf, binary.LittleEndian, uint32(len(surfaces)))
	for _, s := range surfaces {
		rec := struct {
			List     uint8
			_        [3]uint8
			FirstVtx int32
			NumVerts int32
			MinZ     float32
		}{
			List:     uint8(s.List),
			FirstVtx: int32(s.FirstVtx),
			NumVerts: int32(s.NumVerts),
			MinZ:     s.MinZ,
		}
		binary.Write(buf, binary.LittleEndian, rec)
	}
}

func TestLoadRoundTripsOneFrame(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint32(1))
	verts := []pvr.Vertex{{X: 1}, {X: 2}, {X: 3}}
	surfaces := []pvr.Surface{{List: pvr.ListOpaque, FirstVtx: 0, NumVerts: 3, MinZ: 0.5}}
	writeFrame(t, &buf, verts, surfaces)

	frames, err := Load(&buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("want 1 frame, got %d", len(frames))
	}
	if frames[0].SurfaceCount() != 1 {
		t.Fatalf("want 1 surface, got %d", frames[0].SurfaceCount())
	}
	if len(frames[0].Verts) != 3 || frames[0].Verts[1].X != 2 {
		t.Fatalf("vertex data did not round-trip: %+v", frames[0].Verts)
	}
}
