// Package rendertrace loads captured PowerVR2 render contexts from disk
// and visualizes their triangles with ebiten, purely as a debugging aid
// for dctrace. It consumes the render context pvr.Translator produces but
// is never imported back by package pvr: the rendering backend stays an
// external collaborator, not a dependency of the tile-accelerator
// translator itself.
package rendertrace

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"image/color"
	"io"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/dcshade/dcore/internal/pvr"
)

// Frame is one captured frame's worth of surfaces and vertices, decoded
// from the on-disk trace format written by the (out-of-scope) capture
// tool that taps a live pvr.Translator's Finish() output.
type Frame struct {
	Surfaces [][]pvr.Surface
	Verts    []pvr.Vertex
}

// SurfaceCount returns the total number of surfaces across all lists in
// the frame, used by dctrace's "next"/"prev" status line.
func (f Frame) SurfaceCount() int {
	n := 0
	for _, s := range f.Surfaces {
		n += len(s)
	}
	return n
}

// Load decodes a sequence of frames from r. The wire format is
// deliberately simple (a frame count, then per frame a vertex count
// followed by packed pvr.Vertex records (X/Y/Z/U/V/R/G/B/A/OR/OG/OB
// float32s), then a surface count
// followed by packed list/firstVtx/numVerts/minZ records) since it exists
// solely to round-trip what this module's own capture path writes.
func Load(r io.Reader) ([]Frame, error) {
	br := bufio.NewReader(r)
	var frameCount uint32
	if err := binary.Read(br, binary.LittleEndian, &frameCount); err != nil {
		return nil, fmt.Errorf("rendertrace: reading frame count: %w", err)
	}
	frames := make([]Frame, frameCount)
	for i := range frames {
		f, err := loadFrame(br)
		if err != nil {
			return nil, fmt.Errorf("rendertrace: frame %d: %w", i, err)
		}
		frames[i] = f
	}
	return frames, nil
}

func loadFrame(r io.Reader) (Frame, error) {
	var vertCount uint32
	if err := binary.Read(r, binary.LittleEndian, &vertCount); err != nil {
		return Frame{}, err
	}
	verts := make([]pvr.Vertex, vertCount)
	for i := range verts {
		if err := binary.Read(r, binary.LittleEndian, &verts[i]); err != nil {
			return Frame{}, err
		}
	}

	var surfCount uint32
	if err := binary.Read(r, binary.LittleEndian, &surfCount); err != nil {
		return Frame{}, err
	}
	flat := make([]pvr.Surface, surfCount)
	for i := range flat {
		var rec struct {
			List     uint8
			_        [3]uint8
			FirstVtx int32
			NumVerts int32
			MinZ     float32
		}
		if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
			return Frame{}, err
		}
		flat[i] = pvr.Surface{
			List:     pvr.ListType(rec.List),
			FirstVtx: int(rec.FirstVtx),
			NumVerts: int(rec.NumVerts),
			MinZ:     rec.MinZ,
		}
	}

	byList := make([][]pvr.Surface, 8)
	for _, s := range flat {
		byList[s.List] = append(byList[s.List], s)
	}
	return Frame{Surfaces: byList, Verts: verts}, nil
}

// Viewer is an ebiten.Game that steps through a slice of frames, drawing
// each surface's triangles as flat-shaded wireframe for inspection.
type Viewer struct {
	Frames  []Frame
	Current int
	Width   int
	Height  int
}

// NewViewer returns a viewer starting at frame 0.
func NewViewer(frames []Frame, width, height int) *Viewer {
	return &Viewer{Frames: frames, Width: width, Height: height}
}

func (v *Viewer) Update() error {
	if ebiten.IsKeyPressed(ebiten.KeyRight) && v.Current+1 < len(v.Frames) {
		v.Current++
	}
	if ebiten.IsKeyPressed(ebiten.KeyLeft) && v.Current > 0 {
		v.Current--
	}
	return nil
}

func (v *Viewer) Draw(screen *ebiten.Image) {
	if v.Current >= len(v.Frames) {
		return
	}
	f := v.Frames[v.Current]
	for _, surfaces := range f.Surfaces {
		for _, s := range surfaces {
			drawSurfaceWireframe(screen, f.Verts, s, v.Width, v.Height)
		}
	}
	ebitenutil.DebugPrint(screen, fmt.Sprintf("frame %d/%d", v.Current, len(v.Frames)))
}

func (v *Viewer) Layout(outsideWidth, outsideHeight int) (int, int) {
	return v.Width, v.Height
}

// Run opens an ebiten window and steps through frames interactively
// (Left/Right arrows) until the window is closed.
func Run(frames []Frame) error {
	v := NewViewer(frames, 640, 480)
	ebiten.SetWindowSize(v.Width, v.Height)
	ebiten.SetWindowTitle("dctrace: render context viewer")
	return ebiten.RunGame(v)
}

func drawSurfaceWireframe(screen *ebiten.Image, verts []pvr.Vertex, s pvr.Surface, w, h int) {
	for i := s.FirstVtx; i+2 < s.FirstVtx+s.NumVerts; i += 3 {
		a, b, c := verts[i], verts[i+1], verts[i+2]
		drawLine(screen, a, b, w, h)
		drawLine(screen, b, c, w, h)
		drawLine(screen, c, a, w, h)
	}
}

func drawLine(screen *ebiten.Image, a, b pvr.Vertex, w, h int) {
	x1, y1 := a.X*float32(w)/640, a.Y*float32(h)/480
	x2, y2 := b.X*float32(w)/640, b.Y*float32(h)/480
	vector.StrokeLine(screen, x1, y1, x2, y2, 1, whiteColor, false)
}

var whiteColor = color.White
