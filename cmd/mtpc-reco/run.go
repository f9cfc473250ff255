package main

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/tdis-data/mtpc.reco/internal/fsutil"
	"github.com/tdis-data/mtpc.reco/internal/mtpc/digitized"
	"github.com/tdis-data/mtpc.reco/internal/mtpc/display"
	"github.com/tdis-data/mtpc.reco/internal/mtpc/export"
	"github.com/tdis-data/mtpc.reco/internal/mtpc/padgeom"
	"github.com/tdis-data/mtpc.reco/internal/mtpc/pipeline"
	"github.com/tdis-data/mtpc.reco/internal/mtpc/reco"
	"github.com/tdis-data/mtpc.reco/internal/mtpc/storage/sqlite"
	"github.com/tdis-data/mtpc.reco/internal/mtpc/validation"
	"github.com/tdis-data/mtpc.reco/internal/security"
)

// runOutput is what a finished run leaves for the display.
type runOutput struct {
	Layout    padgeom.Layout
	Results   []reco.EventResult
	Summary   pipeline.Summary
	Residuals *validation.Residuals
	Store     *sqlite.Store // nil without -db
	RunID     string
}

// Close releases the store, if any.
func (o *runOutput) Close() error {
	if o.Store == nil {
		return nil
	}
	return o.Store.Close()
}

func createFile(fsys fsutil.FileSystem, path string) (io.WriteCloser, error) {
	if err := security.ValidateOutputPath(path); err != nil {
		return nil, err
	}
	f, err := fsys.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return f, nil
}

// run reads the input, reconstructs every event and hands the results to
// the configured sinks.
func run(ctx context.Context, opts runOptions) (out *runOutput, err error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	rec, det, err := reco.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("reconstructor: %w", err)
	}
	log.Printf("geometry %s (%s, keyed by %s): %d planes at z=%v, %d surfaces", cfg.GetGeometry(), det.Name(), det.Key(), rec.Planes().Len(), rec.Planes().Positions(), det.Len())

	fsys := opts.FS
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	events, err := digitized.ReadFileFS(fsys, opts.Input, digitized.Options{LengthUnit: opts.Unit}, opts.Skip, opts.Limit)
	if err != nil {
		return nil, err
	}
	log.Printf("read %d events from %s", len(events), opts.Input)

	out = &runOutput{
		Layout:    rec.Layout(),
		Residuals: validation.NewResiduals(validation.DefaultHistConfig()),
	}
	defer func() {
		if err != nil {
			out.Close()
			out = nil
		}
	}()

	sinks := []pipeline.ResultSink{out.Residuals}

	if opts.DBPath != "" {
		if err := security.ValidateOutputPath(opts.DBPath); err != nil {
			return out, err
		}
		if out.Store, err = sqlite.NewStore(opts.DBPath); err != nil {
			return out, fmt.Errorf("store: %w", err)
		}
		if out.RunID, err = out.Store.StartRun(ctx, opts.Input, cfg); err != nil {
			return out, err
		}
		sinks = append(sinks, out.Store.NewRunWriter(out.RunID))
	}

	var files []io.Closer
	defer func() {
		for _, f := range files {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
	}()
	if opts.CSVPath != "" {
		f, err := createFile(fsys, opts.CSVPath)
		if err != nil {
			return out, err
		}
		files = append(files, f)
		sinks = append(sinks, export.NewHitCSVWriter(f))
	}
	if opts.JSONPath != "" {
		f, err := createFile(fsys, opts.JSONPath)
		if err != nil {
			return out, err
		}
		files = append(files, f)
		sinks = append(sinks, export.NewMeasurementJSONWriter(f))
	}

	runner, err := pipeline.NewRunner(pipeline.Config{
		Processor: rec,
		Sinks:     sinks,
		Workers:   cfg.GetWorkers(),
	})
	if err != nil {
		return out, err
	}
	if out.Results, err = runner.Run(ctx, events); err != nil {
		return out, err
	}
	out.Summary = runner.Summary()
	log.Printf("reconstruction done: %s", out.Summary)

	if out.Store != nil {
		if err := out.Store.EndRun(ctx, out.RunID); err != nil {
			return out, err
		}
		log.Printf("stored run %s in %s", out.RunID, out.Store.Path())
	}

	s := out.Residuals.Summary()
	for _, a := range validation.Axes {
		if as, ok := s.Axes[a]; ok {
			log.Printf("residual %s: mean=%.4f std=%.4f pull mean=%.3f std=%.3f (%d hits with truth)",
				a, as.Mean, as.StdDev, as.PullMean, as.PullStdDev, s.WithTruth)
		}
	}

	if opts.PadsPNG != "" {
		f, err := createFile(fsys, opts.PadsPNG)
		if err != nil {
			return out, err
		}
		files = append(files, f)
		if err := display.WritePadLayoutPNG(f, out.Layout, nil); err != nil {
			return out, err
		}
	}
	return out, nil
}
