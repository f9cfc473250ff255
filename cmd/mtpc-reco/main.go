// Command mtpc-reco reconstructs digitized mTPC events: it turns pad hits
// into 3D space points and surface measurements, optionally storing them,
// exporting them and serving an event display.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/tdis-data/mtpc.reco/internal/config"
	"github.com/tdis-data/mtpc.reco/internal/fsutil"
	"github.com/tdis-data/mtpc.reco/internal/mtpc/display"
	"github.com/tdis-data/mtpc.reco/internal/mtpc/pipeline"
	"github.com/tdis-data/mtpc.reco/internal/mtpc/storage/sqlite"
	"github.com/tdis-data/mtpc.reco/internal/units"
	"github.com/tdis-data/mtpc.reco/internal/version"
)

var (
	configPath  = flag.String("config", "", "Path to a JSON reconstruction config (defaults built in)")
	numEvents   = flag.Int("n", 0, "Number of events to process (0 for all)")
	skipEvents  = flag.Int("skip", 0, "Number of events to skip")
	dbPath      = flag.String("db", "", "SQLite database to store the run in")
	csvPath     = flag.String("csv", "", "Write reconstructed hits as CSV to this file")
	jsonPath    = flag.String("json", "", "Write measurements as JSON Lines to this file")
	padsPNG     = flag.String("pads-png", "", "Write the pad layout as PNG to this file")
	listen      = flag.String("listen", "", "Serve the event display on this address after processing")
	workers     = flag.Int("workers", 0, "Worker goroutines (0 uses the config value)")
	lengthUnit  = flag.String("unit", units.M, "Length unit of the input file ("+units.GetValidUnitsString()+")")
	truePos     = flag.Bool("true-position", false, "Use the true hit position instead of the pad centre")
	debug       = flag.Bool("debug", false, "Log per-event pipeline telemetry")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

const defaultDBPath = "mtpc.db"

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <digitized.txt>\n       %s [-db path] migrate <up|down|version>\n\n",
		os.Args[0], os.Args[0])
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	if flag.Arg(0) == "migrate" {
		path := *dbPath
		if path == "" {
			path = defaultDBPath
		}
		if err := sqlite.RunMigrateCommand(flag.Args()[1:], path, os.Stdout); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		return
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := runOptions{
		Input:        flag.Arg(0),
		ConfigPath:   *configPath,
		Unit:         *lengthUnit,
		Skip:         *skipEvents,
		Limit:        *numEvents,
		Workers:      *workers,
		TruePosition: *truePos,
		DBPath:       *dbPath,
		CSVPath:      *csvPath,
		JSONPath:     *jsonPath,
		PadsPNG:      *padsPNG,
	}

	trace := io.Writer(nil)
	if *debug {
		trace = os.Stderr
	}
	pipeline.SetLogWriters(os.Stderr, os.Stderr, trace)

	out, err := run(ctx, opts)
	if err != nil {
		log.Fatalf("reconstruction failed: %v", err)
	}
	defer out.Close()

	if *listen == "" {
		return
	}
	ws := display.NewWebServer(display.WebServerConfig{
		Address:   *listen,
		Layout:    out.Layout,
		Results:   out.Results,
		Residuals: out.Residuals,
		Store:     out.Store,
		RunID:     out.RunID,
	})
	if err := ws.Start(ctx); err != nil {
		log.Fatalf("display: %v", err)
	}
}

// runOptions are the inputs of one reconstruction run.
type runOptions struct {
	Input        string
	ConfigPath   string
	Unit         string
	Skip         int
	Limit        int
	Workers      int
	TruePosition bool
	DBPath       string
	CSVPath      string
	JSONPath     string
	PadsPNG      string
	FS           fsutil.FileSystem // nil uses the OS; the database is always on disk
}

func loadConfig(opts runOptions) (*config.RecoConfig, error) {
	cfg := config.DefaultRecoConfig()
	if opts.ConfigPath != "" {
		var err error
		if cfg, err = config.LoadRecoConfig(opts.ConfigPath); err != nil {
			return nil, err
		}
	}
	if opts.TruePosition {
		v := true
		cfg.UseTruePosition = &v
	}
	if opts.Workers > 0 {
		w := opts.Workers
		cfg.Workers = &w
	}
	return cfg, cfg.Validate()
}
