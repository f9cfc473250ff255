package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/tdis-data/mtpc.reco/internal/mtpc/hits"
	"github.com/tdis-data/mtpc.reco/internal/mtpc/reco"
	"github.com/tdis-data/mtpc.reco/internal/timeutil"
)

// ErrRunNotFound is returned for unknown run ids.
var ErrRunNotFound = errors.New("reconstruction run not found")

// Store is a migrated reconstruction database.
type Store struct {
	*sql.DB
	path  string
	clock timeutil.Clock
}

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA temp_store=MEMORY",
}

// connPragmas are per-connection and go in the DSN so every pooled
// connection gets them.
const connPragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

// Open opens (creating if needed) the database at path without migrating.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?"+connPragmas)
	if err != nil {
		return nil, err
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", p, err)
		}
	}
	return &Store{DB: db, path: path, clock: timeutil.RealClock{}}, nil
}

// NewStore opens the database at path and migrates it to the latest schema.
func NewStore(path string) (*Store, error) {
	s, err := Open(path)
	if err != nil {
		return nil, err
	}
	if err := s.MigrateUp(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// SetClock replaces the clock used for run timestamps and busy back-off.
func (s *Store) SetClock(c timeutil.Clock) { s.clock = c }

// Run is one reconstruction pass over an input file.
type Run struct {
	RunID            string          `json:"run_id"`
	Source           string          `json:"source"`
	ConfigJSON       json.RawMessage `json:"config,omitempty"`
	StartedAt        int64           `json:"started_at"`
	FinishedAt       *int64          `json:"finished_at,omitempty"`
	EventCount       int             `json:"event_count"`
	HitCount         int             `json:"hit_count"`
	MeasurementCount int             `json:"measurement_count"`
	SkippedCount     int             `json:"skipped_count"`
}

// StartRun records a new run and returns its id. cfg is stored as JSON.
func (s *Store) StartRun(ctx context.Context, source string, cfg interface{}) (string, error) {
	var cfgJSON interface{}
	if cfg != nil {
		b, err := json.Marshal(cfg)
		if err != nil {
			return "", fmt.Errorf("marshal run config: %w", err)
		}
		cfgJSON = string(b)
	}

	runID := uuid.New().String()
	err := retryOnBusy(s.clock, func() error {
		_, err := s.ExecContext(ctx, `
			INSERT INTO reco_runs (run_id, source, config_json, started_at)
			VALUES (?, ?, ?, ?)`,
			runID, source, cfgJSON, s.clock.Now().UnixNano(),
		)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("start run: %w", err)
	}
	return runID, nil
}

// SaveEvent stores one event result with its hits and measurements in a
// single transaction.
func (s *Store) SaveEvent(ctx context.Context, runID string, res *reco.EventResult) error {
	return retryOnBusy(s.clock, func() error {
		tx, err := s.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if err := saveEventTx(ctx, tx, runID, res); err != nil {
			return err
		}
		return tx.Commit()
	})
}

func saveEventTx(ctx context.Context, tx *sql.Tx, runID string, res *reco.EventResult) error {
	r, err := tx.ExecContext(ctx, `
		INSERT INTO reco_events (
			run_id, event_number, momentum, theta_deg, phi_deg, vertex_z,
			hit_count, measurement_count, skipped_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, res.Event, res.Track.Momentum, res.Track.Theta, res.Track.Phi, res.Track.VertexZ,
		len(res.Hits), len(res.Measurements), res.Skipped,
	)
	if err != nil {
		return fmt.Errorf("insert event %d: %w", res.Event, err)
	}
	eventID, err := r.LastInsertId()
	if err != nil {
		return fmt.Errorf("event id: %w", err)
	}

	hitStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO reco_hits (
			event_id, hit_index, cell_id, plane, ring, pad, x, y, z,
			cov_xx, cov_yy, cov_zz, time_ns, time_error, charge, true_x, true_y, true_z
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer hitStmt.Close()

	index := make(map[*hits.ReconstructedHit]int, len(res.Hits))
	for i := range res.Hits {
		h := &res.Hits[i]
		index[h] = i
		plane, ring, pad := hits.SplitCellID(h.CellID)
		trueX, trueY, trueZ := truthColumns(h)
		if _, err := hitStmt.ExecContext(ctx,
			eventID, i, h.CellID, plane, ring, pad, h.Position.X, h.Position.Y, h.Position.Z,
			h.Covariance.XX, h.Covariance.YY, h.Covariance.ZZ, h.Time, h.TimeError, h.Charge,
			trueX, trueY, trueZ,
		); err != nil {
			return fmt.Errorf("insert hit %d of event %d: %w", i, res.Event, err)
		}
	}

	measStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO reco_measurements (
			event_id, hit_index, surface_id, loc0, loc1, time_ns,
			cov_00, cov_11, cov_tt, cov_01, weight
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer measStmt.Close()

	for _, m := range res.Measurements {
		if len(m.Hits) == 0 {
			continue
		}
		i, ok := index[m.Hits[0]]
		if !ok {
			return fmt.Errorf("event %d: measurement on surface %d references a foreign hit", res.Event, m.Surface)
		}
		if _, err := measStmt.ExecContext(ctx,
			eventID, i, int64(m.Surface), m.Loc.X, m.Loc.Y, m.Time,
			m.Covariance.XX, m.Covariance.YY, m.Covariance.TT, m.Covariance.XY, m.Weights[0],
		); err != nil {
			return fmt.Errorf("insert measurement for hit %d of event %d: %w", i, res.Event, err)
		}
	}
	return nil
}

func truthColumns(h *hits.ReconstructedHit) (x, y, z interface{}) {
	if h.Raw == nil || !h.Raw.HasTruth() {
		return nil, nil, nil
	}
	return h.Raw.TruePosition.X, h.Raw.TruePosition.Y, h.Raw.TruePosition.Z
}

// EndRun stamps the run as finished and fills its counters from the
// stored events.
func (s *Store) EndRun(ctx context.Context, runID string) error {
	return retryOnBusy(s.clock, func() error {
		r, err := s.ExecContext(ctx, `
			UPDATE reco_runs SET
				finished_at = ?,
				event_count = (SELECT COUNT(*) FROM reco_events WHERE run_id = ?),
				hit_count = (SELECT COALESCE(SUM(hit_count), 0) FROM reco_events WHERE run_id = ?),
				measurement_count = (SELECT COALESCE(SUM(measurement_count), 0) FROM reco_events WHERE run_id = ?),
				skipped_count = (SELECT COALESCE(SUM(skipped_count), 0) FROM reco_events WHERE run_id = ?)
			WHERE run_id = ?`,
			s.clock.Now().UnixNano(), runID, runID, runID, runID, runID,
		)
		if err != nil {
			return fmt.Errorf("end run: %w", err)
		}
		if n, _ := r.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil
	})
}

const runColumns = `run_id, source, config_json, started_at, finished_at,
	event_count, hit_count, measurement_count, skipped_count`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*Run, error) {
	var r Run
	var cfg sql.NullString
	var finished sql.NullInt64
	if err := row.Scan(&r.RunID, &r.Source, &cfg, &r.StartedAt, &finished,
		&r.EventCount, &r.HitCount, &r.MeasurementCount, &r.SkippedCount); err != nil {
		return nil, err
	}
	if cfg.Valid {
		r.ConfigJSON = json.RawMessage(cfg.String)
	}
	if finished.Valid {
		r.FinishedAt = &finished.Int64
	}
	return &r, nil
}

// RunSummary returns a single run by id.
func (s *Store) RunSummary(ctx context.Context, runID string) (*Run, error) {
	row := s.QueryRowContext(ctx, `SELECT `+runColumns+` FROM reco_runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	return r, nil
}

// ListRuns returns all runs, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]*Run, error) {
	rows, err := s.QueryContext(ctx, `SELECT `+runColumns+` FROM reco_runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// HitRow is a stored reconstructed hit.
type HitRow struct {
	EventNumber int     `json:"event"`
	HitIndex    int     `json:"hit_index"`
	CellID      uint32  `json:"cell_id"`
	Plane       int     `json:"plane"`
	Ring        int     `json:"ring"`
	Pad         int     `json:"pad"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Z           float64 `json:"z"`
	CovXX       float64 `json:"cov_xx"`
	CovYY       float64 `json:"cov_yy"`
	CovZZ       float64 `json:"cov_zz"`
	Time        float64 `json:"time"`
	TimeError   float64 `json:"time_error"`
	Charge      float64 `json:"charge"`
	TrueX       float64 `json:"true_x"`
	TrueY       float64 `json:"true_y"`
	TrueZ       float64 `json:"true_z"`
	HasMeasure  bool    `json:"has_measurement"`
}

// Hits returns the stored hits of a run in event and hit order. Missing
// truth reads back as NaN.
func (s *Store) Hits(ctx context.Context, runID string) ([]HitRow, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT e.event_number, h.hit_index, h.cell_id, h.plane, h.ring, h.pad,
		       h.x, h.y, h.z, h.cov_xx, h.cov_yy, h.cov_zz, h.time_ns, h.time_error, h.charge,
		       h.true_x, h.true_y, h.true_z, m.event_id IS NOT NULL
		FROM reco_hits h
		JOIN reco_events e ON e.event_id = h.event_id
		LEFT JOIN reco_measurements m ON m.event_id = h.event_id AND m.hit_index = h.hit_index
		WHERE e.run_id = ?
		ORDER BY e.event_id, h.hit_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("query hits: %w", err)
	}
	defer rows.Close()

	var out []HitRow
	for rows.Next() {
		var h HitRow
		var tx, ty, tz sql.NullFloat64
		if err := rows.Scan(&h.EventNumber, &h.HitIndex, &h.CellID, &h.Plane, &h.Ring, &h.Pad,
			&h.X, &h.Y, &h.Z, &h.CovXX, &h.CovYY, &h.CovZZ, &h.Time, &h.TimeError, &h.Charge,
			&tx, &ty, &tz, &h.HasMeasure); err != nil {
			return nil, fmt.Errorf("scan hit: %w", err)
		}
		h.TrueX, h.TrueY, h.TrueZ = nullToNaN(tx), nullToNaN(ty), nullToNaN(tz)
		out = append(out, h)
	}
	return out, rows.Err()
}

func nullToNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

// RunWriter stores pipeline results under one run.
type RunWriter struct {
	store *Store
	runID string
}

// NewRunWriter returns a pipeline sink writing into runID.
func (s *Store) NewRunWriter(runID string) *RunWriter {
	return &RunWriter{store: s, runID: runID}
}

// WriteResult implements the pipeline result sink.
func (w *RunWriter) WriteResult(ctx context.Context, res *reco.EventResult) error {
	return w.store.SaveEvent(ctx, w.runID, res)
}
