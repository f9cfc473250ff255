package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tdis-data/mtpc.reco/internal/mtpc/hits"
	"github.com/tdis-data/mtpc.reco/internal/mtpc/reco"
)

func testResult() *reco.EventResult {
	res := &reco.EventResult{
		Event: 7,
		Hits: []hits.ReconstructedHit{
			{
				CellID:     1_020_121,
				Position:   r3.Vector{X: 1.5, Y: -2, Z: 30},
				Covariance: hits.CovDiag3{XX: 0.12, YY: 0.12, ZZ: 1},
				Time:       42, TimeError: 1, Charge: 300,
				Raw: &hits.RawHit{TruePosition: r3.Vector{X: 1.4, Y: -2.1, Z: 30.2}},
			},
			{
				CellID:     0,
				Position:   r3.Vector{X: 5},
				Covariance: hits.CovDiag3{XX: 0.01, YY: 0.01, ZZ: 1},
				Raw:        &hits.RawHit{TruePosition: hits.NoTruth},
			},
		},
	}
	m := hits.Measurement2D{
		Surface:    99,
		Loc:        r2.Point{X: 2.5, Y: 0.3},
		Time:       42,
		Covariance: hits.Cov3{XX: 0.12, YY: 0.12, TT: 1},
	}
	m.AddHit(&res.Hits[0], 1)
	res.Measurements = []hits.Measurement2D{m}
	return res
}

func TestHitCSVWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewHitCSVWriter(&buf)
	ctx := context.Background()
	require.NoError(t, w.WriteResult(ctx, testResult()))
	require.NoError(t, w.WriteResult(ctx, &reco.EventResult{Event: 8}))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3, "header written once")

	if diff := cmp.Diff(HitHeader, records[0]); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
	want := []string{
		"7", "0", "1020121", "1", "20", "121",
		"1.5", "-2", "30", "0.12", "0.12", "1",
		"42", "1", "300",
		"1.4", "-2.1", "30.2",
	}
	if diff := cmp.Diff(want, records[1]); diff != "" {
		t.Errorf("row mismatch (-want +got):\n%s", diff)
	}
	// Missing truth leaves the columns empty.
	assert.Equal(t, []string{"", "", ""}, records[2][15:])
}

func TestMeasurementJSONWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewMeasurementJSONWriter(&buf)
	require.NoError(t, w.WriteResult(context.Background(), testResult()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var got MeasurementRecord
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &got))
	want := MeasurementRecord{
		Event:   7,
		Surface: 99,
		CellIDs: []uint32{1_020_121},
		Loc:     [2]float64{2.5, 0.3},
		Time:    42,
		Cov:     [4]float64{0.12, 0.12, 1, 0},
		Weights: []float64{1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &fields))
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	assert.ElementsMatch(t, []string{"event", "surface", "cell_ids", "loc", "time", "cov", "weights"}, keys)
	assert.JSONEq(t, "99", string(fields["surface"]))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWritersReportIOErrors(t *testing.T) {
	ctx := context.Background()
	assert.Error(t, NewHitCSVWriter(failingWriter{}).WriteResult(ctx, testResult()))
	assert.Error(t, NewMeasurementJSONWriter(failingWriter{}).WriteResult(ctx, testResult()))
}
