package main

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/exp/rand"

	"github.com/quillaja/orbits"
	"github.com/quillaja/orbits/record"
	"github.com/quillaja/orbits/render"
)

func TestFramePipeline(t *testing.T) {
	dir := t.TempDir()
	pngDir := filepath.Join(dir, "img")
	dbFilename := filepath.Join(dir, "bodies.sqlite")
	chunkDir := filepath.Join(dir, "chunks")

	sinks, finish, err := openSinks(pngDir, dbFilename, chunkDir, 2,
		render.Options{Width: 64, Height: 48}, render.NewCamera(mgl64.Vec2{400, 300}))
	if err != nil {
		t.Fatal(err)
	}
	if len(sinks) != 3 {
		t.Fatalf("got %d sinks", len(sinks))
	}

	ch := make(chan *frameJob)
	errs := make(chan error, 1)
	var wg sync.WaitGroup
	wg.Add(1)
	go frameOutput(&wg, ch, sinks, errs)

	s := orbits.NewDefaultStore(rand.NewSource(1))
	for f := 0; f < 3; f++ {
		ch <- &frameJob{Frame: f, Bodies: s.Bodies()}
		if err := orbits.Step(s, 1.0/60); err != nil {
			t.Fatal(err)
		}
	}
	close(ch)
	wg.Wait()
	select {
	case err := <-errs:
		t.Fatal(err)
	default:
	}
	if err := finish(); err != nil {
		t.Fatal(err)
	}

	for f := 0; f < 3; f++ {
		if _, err := os.Stat(filepath.Join(pngDir, render.FrameName(f))); err != nil {
			t.Error(err)
		}
	}
	chunks, err := filepath.Glob(filepath.Join(chunkDir, "*.chunk"))
	if err != nil || len(chunks) != 2 {
		t.Errorf("chunks = %v, %v", chunks, err)
	}
	if _, err := record.OpenDB(dbFilename); !errors.Is(err, record.ErrExists) {
		t.Errorf("database was not written: %v", err)
	}
}

func TestFrameOutputKeepsFirstError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	sinks := []sink{func(*frameJob) error { calls++; return boom }}

	ch := make(chan *frameJob, 3)
	errs := make(chan error, 1)
	for f := 0; f < 3; f++ {
		ch <- &frameJob{Frame: f}
	}
	close(ch)

	var wg sync.WaitGroup
	wg.Add(1)
	frameOutput(&wg, ch, sinks, errs)

	if err := <-errs; !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
	if calls != 1 {
		t.Errorf("sink called %d times after failing", calls)
	}
}
