// Command orbits runs the asteroid-ring simulation headless, writing
// frames as images, sqlite rows or compressed chunks.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/exp/rand"

	"github.com/quillaja/orbits"
	"github.com/quillaja/orbits/record"
	"github.com/quillaja/orbits/render"
)

type frameJob struct {
	Frame  int
	Bodies []orbits.Body
}

// a sink consumes frames on one of the output workers.
type sink func(job *frameJob) error

func main() {
	log.SetFlags(0)
	log.SetPrefix("orbits: ")

	frames := flag.Int("frames", 600, "number of frames to simulate")
	dt := flag.Float64("dt", 1.0/60, "seconds per frame")
	seed := flag.Uint64("seed", 0, "random seed (0 = time)")
	workers := flag.Int("workers", 1, "goroutines for the force pass")
	configFilename := flag.String("config", "", "JSON scenario file")
	sunEarth := flag.Bool("sun", false, "add the sun and earth to the ring")
	planets := flag.Int("planets", 0, "random planets to add at the start")
	stateFilename := flag.String("state", "", "simulation state to load")
	stateSave := flag.String("save", "", "file to save the final simulation state to")

	pngDir := flag.String("png", "", "directory for png frames")
	dbFilename := flag.String("db", "", "sqlite file to record frames into")
	chunkDir := flag.String("chunks", "", "directory for compressed frame chunks")
	framesPerChunk := flag.Int("chunksize", 48, "frames per chunk")
	width := flag.Int("width", 800, "png width")
	height := flag.Int("height", 600, "png height")
	byMass := flag.Bool("bymass", false, "color png bodies by mass")
	flag.Parse()

	cfg := orbits.DefaultConfig()
	if *configFilename != "" {
		var err error
		if cfg, err = orbits.LoadConfig(*configFilename); err != nil {
			log.Fatal(err)
		}
	}
	if *sunEarth {
		cfg.Population.SunEarth = true
	}
	if *workers > 1 {
		cfg.Params.Workers = *workers
	}

	var src rand.Source
	if *seed != 0 {
		src = rand.NewSource(*seed)
	}
	store, err := orbits.NewStore(src, cfg.Population)
	if err != nil {
		log.Fatal(err)
	}
	for i := 0; i < *planets; i++ {
		if _, err := store.AddRandomPlanet(); err != nil {
			log.Fatal(err)
		}
	}

	// import data if available and update necessary simulation state
	startFrame := 0
	if *stateFilename != "" {
		snap, err := record.LoadFile(*stateFilename)
		if err != nil {
			log.Fatal(err)
		}
		if err := store.Restore(snap.Bodies); err != nil {
			log.Fatal(err)
		}
		startFrame = snap.Frame
	}
	lastFrame := startFrame + *frames

	// setup output workers
	sinks, finish, err := openSinks(*pngDir, *dbFilename, *chunkDir, *framesPerChunk,
		render.Options{Width: *width, Height: *height, ByMass: *byMass},
		render.NewCamera(cfg.Population.Center))
	if err != nil {
		log.Fatal(err)
	}
	ch := make(chan *frameJob, 32)
	wg := sync.WaitGroup{}
	errs := make(chan error, 1)
	outputWorkers := 2
	if *dbFilename != "" {
		outputWorkers = 1 // sqlite allows only 1 writer at a time
	}
	if len(sinks) > 0 {
		wg.Add(outputWorkers)
		for i := 0; i < outputWorkers; i++ {
			go frameOutput(&wg, ch, sinks, errs)
		}
	}

	// print parameters
	fmt.Printf("bodies: %d\nworkers: %d\nstep: %.4f sec\nframes: %d\nsimulation time: %.1f sec\n",
		store.Len(),
		cfg.Params.Workers,
		*dt,
		*frames,
		*dt*float64(*frames))

	stepper := orbits.Stepper{Params: cfg.Params}
	start := time.Now()
	for frame := startFrame; frame <= lastFrame; frame++ {
		// enqueue bodies for output
		if len(sinks) > 0 {
			ch <- &frameJob{Frame: frame, Bodies: store.Bodies()}
		}
		if frame == lastFrame {
			break
		}

		if err := stepper.Step(store, *dt); err != nil {
			if !errors.Is(err, orbits.ErrDegeneratePair) {
				log.Fatal(err)
			}
			log.Printf("frame %d: %v", frame, err)
		}

		// progress
		done := frame - startFrame + 1
		avgTimePerFrame := time.Since(start) / time.Duration(done)
		estTimeLeft := avgTimePerFrame * time.Duration(lastFrame-frame-1)
		sum := store.Summary()
		fmt.Printf("%.1f%%, %d bodies, KE %.3g, %s/frame, %s remaining, %s elapsed                    \r",
			100*float64(done)/float64(*frames),
			sum.Count,
			sum.KineticEnergy,
			avgTimePerFrame.Truncate(time.Microsecond),
			estTimeLeft.Truncate(time.Second),
			time.Since(start).Truncate(time.Second),
		)
	}
	close(ch)
	wg.Wait()

	select {
	case err := <-errs:
		log.Fatal(err)
	default:
	}
	if err := finish(); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("\nDone. Took %s\n", time.Since(start).Truncate(time.Millisecond))

	// export final state of simulation
	if *stateSave != "" {
		snap := record.Snapshot{Frame: lastFrame, Bodies: store.Bodies()}
		if err := record.SaveFile(*stateSave, snap); err != nil {
			log.Fatal(err)
		}
	}
}

// openSinks prepares every requested frame output. finish flushes and
// closes them once all frames are through.
func openSinks(pngDir, dbFilename, chunkDir string, framesPerChunk int, opt render.Options, cam render.Camera) (sinks []sink, finish func() error, err error) {
	var closers []func() error
	finish = func() error {
		var first error
		for _, c := range closers {
			if err := c(); err != nil && first == nil {
				first = err
			}
		}
		return first
	}

	if pngDir != "" {
		if err := os.MkdirAll(pngDir, 0755); err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, func(job *frameJob) error {
			img := render.Frame(job.Bodies, cam, opt)
			return render.WritePNG(filepath.Join(pngDir, render.FrameName(job.Frame)), img)
		})
	}

	if dbFilename != "" {
		db, err := record.OpenDB(dbFilename)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, func(job *frameJob) error {
			return db.WriteFrame(job.Frame, job.Bodies)
		})
		closers = append(closers, func() error {
			if err := db.CreateIndices(); err != nil {
				db.Close()
				return err
			}
			return db.Close()
		})
	}

	if chunkDir != "" {
		chunker, err := record.NewChunker(chunkDir, framesPerChunk)
		if err != nil {
			finish()
			return nil, nil, err
		}
		sinks = append(sinks, func(job *frameJob) error {
			return chunker.Add(job.Frame, job.Bodies)
		})
		closers = append(closers, chunker.Flush)
	}

	return sinks, finish, nil
}

// frameOutput feeds every job to every sink. The first error is kept;
// later jobs are drained so the simulation never blocks.
func frameOutput(wg *sync.WaitGroup, ch chan *frameJob, sinks []sink, errs chan<- error) {
	defer wg.Done()
	failed := false
	for job := range ch {
		if failed {
			continue
		}
		for _, out := range sinks {
			if err := out(job); err != nil {
				failed = true
				select {
				case errs <- fmt.Errorf("frame %d: %w", job.Frame, err):
				default:
				}
				break
			}
		}
	}
}
