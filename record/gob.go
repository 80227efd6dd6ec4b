package record

import (
	"compress/zlib"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/quillaja/orbits"
)

/*

snapshots: the full state of a run at one frame, enough to resume it.

chunks: compact per-frame render data, buffered in memory and dumped
framesPerChunk frames at a time as one compressed gob file. gob doesn't
write 0-value fields, so still bodies at the origin cost almost nothing.

*/

// Snapshot is the state of every body at one frame.
type Snapshot struct {
	Frame  int
	Bodies []orbits.Body
}

// SnapshotName is the conventional file name for a snapshot of frame.
func SnapshotName(frame int) string {
	return fmt.Sprintf("%010d.data", frame)
}

// Save writes snap to w as a zlib-compressed gob.
func Save(w io.Writer, snap Snapshot) error {
	zw := zlib.NewWriter(w)
	if err := gob.NewEncoder(zw).Encode(snap); err != nil {
		zw.Close()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return zw.Close()
}

// Load reads a snapshot written by Save.
func Load(r io.Reader) (Snapshot, error) {
	zr, err := zlib.NewReader(r)
	if err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	defer zr.Close()

	var snap Snapshot
	if err := gob.NewDecoder(zr).Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

// SaveFile writes snap to filename. A partly written file is removed.
func SaveFile(filename string, snap Snapshot) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := Save(file, snap); err != nil {
		file.Close()
		os.Remove(filename)
		return err
	}
	return file.Close()
}

// LoadFile reads a snapshot from filename.
func LoadFile(filename string) (Snapshot, error) {
	file, err := os.Open(filename)
	if err != nil {
		return Snapshot{}, err
	}
	defer file.Close()
	return Load(file)
}

// RenderBody is the part of a body needed to draw it.
type RenderBody struct {
	X, Y   float32
	Radius float32
	Color  uint32 // 0xRRGGBBAA
}

// Chunk maps frame number to the bodies of that frame.
type Chunk map[uint32][]RenderBody

// Chunker collects frames and dumps them to dir in chunks. It is safe
// for use by several frame workers at once.
type Chunker struct {
	dir            string
	framesPerChunk int

	m       sync.Mutex
	pending Chunk
	files   []string
}

// NewChunker makes dir if needed and returns a Chunker writing into it.
func NewChunker(dir string, framesPerChunk int) (*Chunker, error) {
	if framesPerChunk < 1 {
		return nil, fmt.Errorf("chunker: need at least 1 frame per chunk, got %d", framesPerChunk)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Chunker{
		dir:            dir,
		framesPerChunk: framesPerChunk,
		pending:        make(Chunk, framesPerChunk),
	}, nil
}

// Add buffers one frame, dumping the chunk once it is full.
func (c *Chunker) Add(frame int, bodies []orbits.Body) error {
	frameData := make([]RenderBody, len(bodies))
	for i, b := range bodies {
		frameData[i] = RenderBody{
			X:      float32(b.Pos.X()),
			Y:      float32(b.Pos.Y()),
			Radius: float32(b.Radius),
			Color:  packColor(b.Color),
		}
	}

	c.m.Lock()
	defer c.m.Unlock()
	c.pending[uint32(frame)] = frameData
	if len(c.pending) < c.framesPerChunk {
		return nil
	}
	return c.dump()
}

// Flush dumps whatever frames are still buffered.
func (c *Chunker) Flush() error {
	c.m.Lock()
	defer c.m.Unlock()
	if len(c.pending) == 0 {
		return nil
	}
	return c.dump()
}

// Files lists the chunk files written so far, in the order written.
func (c *Chunker) Files() []string {
	c.m.Lock()
	defer c.m.Unlock()
	return append([]string(nil), c.files...)
}

// dump writes the pending chunk, named after its highest frame.
// c.m must be held.
func (c *Chunker) dump() error {
	frames := make([]int, 0, len(c.pending))
	for f := range c.pending {
		frames = append(frames, int(f))
	}
	sort.Ints(frames)
	name := filepath.Join(c.dir, fmt.Sprintf("%010d.chunk", frames[len(frames)-1]))

	file, err := os.Create(name)
	if err != nil {
		return err
	}
	zw := zlib.NewWriter(file)
	if err := gob.NewEncoder(zw).Encode(c.pending); err != nil {
		zw.Close()
		file.Close()
		return fmt.Errorf("dump chunk %s: %w", name, err)
	}
	if err := zw.Close(); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}

	c.files = append(c.files, name)
	c.pending = make(Chunk, c.framesPerChunk)
	return nil
}

// ReadChunk loads a chunk file written by a Chunker.
func ReadChunk(filename string) (Chunk, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	zr, err := zlib.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("read chunk %s: %w", filename, err)
	}
	defer zr.Close()

	var chunk Chunk
	if err := gob.NewDecoder(zr).Decode(&chunk); err != nil {
		return nil, fmt.Errorf("read chunk %s: %w", filename, err)
	}
	return chunk, nil
}
