// Package export writes reconstruction results to flat files: a CSV of
// reconstructed hits and JSON Lines of surface measurements. Both writers
// are pipeline result sinks.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"sync"

	"github.com/tdis-data/mtpc.reco/internal/mtpc/hits"
	"github.com/tdis-data/mtpc.reco/internal/mtpc/reco"
)

// HitHeader is the column layout of the hit CSV.
var HitHeader = []string{
	"event", "hit", "cell_id", "plane", "ring", "pad",
	"x", "y", "z", "cov_xx", "cov_yy", "cov_zz",
	"time", "time_error", "charge",
	"true_x", "true_y", "true_z",
}

// HitCSVWriter writes one CSV row per reconstructed hit.
type HitCSVWriter struct {
	mu     sync.Mutex
	w      *csv.Writer
	header bool
}

// NewHitCSVWriter returns a writer emitting the header before the first row.
func NewHitCSVWriter(w io.Writer) *HitCSVWriter {
	return &HitCSVWriter{w: csv.NewWriter(w)}
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteResult appends the hits of res.
func (c *HitCSVWriter) WriteResult(_ context.Context, res *reco.EventResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.header {
		if err := c.w.Write(HitHeader); err != nil {
			return fmt.Errorf("export: write header: %w", err)
		}
		c.header = true
	}

	for i := range res.Hits {
		h := &res.Hits[i]
		plane, ring, pad := hits.SplitCellID(h.CellID)
		truth := hits.NoTruth
		if h.Raw != nil {
			truth = h.Raw.TruePosition
		}
		row := []string{
			strconv.Itoa(res.Event),
			strconv.Itoa(i),
			strconv.FormatUint(uint64(h.CellID), 10),
			strconv.Itoa(plane),
			strconv.Itoa(ring),
			strconv.Itoa(pad),
			formatFloat(h.Position.X),
			formatFloat(h.Position.Y),
			formatFloat(h.Position.Z),
			formatFloat(h.Covariance.XX),
			formatFloat(h.Covariance.YY),
			formatFloat(h.Covariance.ZZ),
			formatFloat(h.Time),
			formatFloat(h.TimeError),
			formatFloat(h.Charge),
			formatFloat(truth.X),
			formatFloat(truth.Y),
			formatFloat(truth.Z),
		}
		if err := c.w.Write(row); err != nil {
			return fmt.Errorf("export: event %d hit %d: %w", res.Event, i, err)
		}
	}
	c.w.Flush()
	return c.w.Error()
}

// MeasurementRecord is the JSON form of one measurement.
type MeasurementRecord struct {
	Event   int        `json:"event"`
	Surface uint64     `json:"surface"`
	CellIDs []uint32   `json:"cell_ids"`
	Loc     [2]float64 `json:"loc"`
	Time    float64    `json:"time"`
	Cov     [4]float64 `json:"cov"` // loc0 loc0, loc1 loc1, time time, loc0 loc1
	Weights []float64  `json:"weights"`
}

// NewMeasurementRecord flattens m for event.
func NewMeasurementRecord(event int, m *hits.Measurement2D) MeasurementRecord {
	rec := MeasurementRecord{
		Event:   event,
		Surface: m.Surface,
		CellIDs: make([]uint32, 0, len(m.Hits)),
		Loc:     [2]float64{m.Loc.X, m.Loc.Y},
		Time:    m.Time,
		Cov:     [4]float64{m.Covariance.XX, m.Covariance.YY, m.Covariance.TT, m.Covariance.XY},
		Weights: append([]float64(nil), m.Weights...),
	}
	for _, h := range m.Hits {
		rec.CellIDs = append(rec.CellIDs, h.CellID)
	}
	return rec
}

// MeasurementJSONWriter writes one JSON object per line per measurement.
type MeasurementJSONWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewMeasurementJSONWriter returns a JSON Lines writer on w.
func NewMeasurementJSONWriter(w io.Writer) *MeasurementJSONWriter {
	return &MeasurementJSONWriter{enc: json.NewEncoder(w)}
}

// WriteResult appends the measurements of res.
func (j *MeasurementJSONWriter) WriteResult(_ context.Context, res *reco.EventResult) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	for i := range res.Measurements {
		if err := j.enc.Encode(NewMeasurementRecord(res.Event, &res.Measurements[i])); err != nil {
			return fmt.Errorf("export: event %d measurement %d: %w", res.Event, i, err)
		}
	}
	return nil
}
