package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tdis-data/mtpc.reco/internal/mtpc/geometry"
	"github.com/tdis-data/mtpc.reco/internal/mtpc/padgeom"
)

func TestEmptyRecoConfigDefaults(t *testing.T) {
	cfg := EmptyRecoConfig()

	if cfg.GetUseTruePosition() {
		t.Error("expected use_true_position default false")
	}
	if got := cfg.GetZVariance(); got != 1.0 {
		t.Errorf("expected z_variance 1.0, got %f", got)
	}
	if got := cfg.GetTimeError(); got != 1.0 {
		t.Errorf("expected time_error_ns 1.0, got %f", got)
	}
	if got := cfg.GetOnSurfaceTolerance(); got < 0.99e-5 || got > 1.01e-5 {
		t.Errorf("expected tolerance 1e-5 cm, got %g", got)
	}
	if got := cfg.GetGeometry(); got != GeometryDisc {
		t.Errorf("expected geometry %q, got %q", GeometryDisc, got)
	}
	if got := cfg.GetWorkers(); got != 1 {
		t.Errorf("expected workers 1, got %d", got)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("empty config should validate: %v", err)
	}
}

func TestDefaultRecoConfigMatchesEmpty(t *testing.T) {
	def := DefaultRecoConfig()
	empty := EmptyRecoConfig()

	if def.GetZVariance() != empty.GetZVariance() ||
		def.GetTimeError() != empty.GetTimeError() ||
		def.GetOnSurfaceTolerance() != empty.GetOnSurfaceTolerance() ||
		def.GetDetectorLength() != empty.GetDetectorLength() ||
		def.GetNumChambers() != empty.GetNumChambers() ||
		def.GetGeometry() != empty.GetGeometry() ||
		def.GetWorkers() != empty.GetWorkers() {
		t.Error("DefaultRecoConfig and EmptyRecoConfig getters disagree")
	}

	l1, err := def.Layout()
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	l2, err := empty.Layout()
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	if l1 != l2 || l1 != padgeom.DefaultLayout() {
		t.Errorf("layouts differ: %+v vs %+v", l1, l2)
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	if cfg.UseTruePosition == nil || *cfg.UseTruePosition {
		t.Error("defaults file should set use_true_position to false")
	}
	if cfg.NumRings == nil || *cfg.NumRings != padgeom.DefaultNumRings {
		t.Errorf("defaults file num_rings mismatch")
	}
	if cfg.NumPadsPerRing == nil || *cfg.NumPadsPerRing != padgeom.DefaultNumPadsPerRing {
		t.Errorf("defaults file num_pads_per_ring mismatch")
	}
}

func TestLoadRecoConfigPartial(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reco.json")
	body := `{"use_true_position": true, "z_variance": 0.25, "geometry": "cylinder", "plane_positions_cm": [10, 20]}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadRecoConfig(path)
	if err != nil {
		t.Fatalf("LoadRecoConfig: %v", err)
	}
	if !cfg.GetUseTruePosition() {
		t.Error("expected use_true_position true")
	}
	if cfg.GetZVariance() != 0.25 {
		t.Errorf("expected z_variance 0.25, got %f", cfg.GetZVariance())
	}
	if cfg.GetGeometry() != GeometryCylinder {
		t.Errorf("expected cylinder geometry, got %q", cfg.GetGeometry())
	}
	// Unset keys fall back to defaults.
	if cfg.GetTimeError() != 1.0 {
		t.Errorf("expected default time error, got %f", cfg.GetTimeError())
	}

	planes := cfg.PlanePositions()
	if planes.Len() != 2 {
		t.Fatalf("expected 2 explicit planes, got %d", planes.Len())
	}
	if z, _ := planes.Z(1); z != 20 {
		t.Errorf("expected plane 1 at z=20, got %f", z)
	}
}

func TestLoadRecoConfigErrors(t *testing.T) {
	dir := t.TempDir()

	cases := []struct {
		name string
		file string
		body string
	}{
		{"wrong extension", "reco.yaml", `{}`},
		{"bad json", "bad.json", `{"z_variance": `},
		{"negative variance", "neg.json", `{"z_variance": -1}`},
		{"bad geometry", "geom.json", `{"geometry": "sphere"}`},
		{"bad layout", "layout.json", `{"min_radius_cm": 20, "max_radius_cm": 10}`},
		{"zero workers", "workers.json", `{"workers": 0}`},
		{"zero tolerance", "tol.json", `{"on_surface_tolerance_um": 0}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, tc.file)
			if err := os.WriteFile(path, []byte(tc.body), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadRecoConfig(path); err == nil {
				t.Errorf("expected error for %s", tc.name)
			}
		})
	}

	if _, err := LoadRecoConfig(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLayoutErrorWrapsSentinel(t *testing.T) {
	rings := 0
	cfg := &RecoConfig{NumRings: &rings}
	_, err := cfg.Layout()
	if !errors.Is(err, padgeom.ErrInvalidLayout) {
		t.Errorf("expected ErrInvalidLayout, got %v", err)
	}
}

func TestBuildDetector(t *testing.T) {
	det, err := EmptyRecoConfig().BuildDetector()
	if err != nil {
		t.Fatal(err)
	}
	if det.Key() != geometry.KeyPlane || det.Len() != 10 {
		t.Errorf("expected 10 plane-keyed discs, got %d keyed by %s", det.Len(), det.Key())
	}

	cyl := GeometryCylinder
	det, err = (&RecoConfig{Geometry: &cyl}).BuildDetector()
	if err != nil {
		t.Fatal(err)
	}
	if det.Key() != geometry.KeyRing || det.Len() != padgeom.DefaultNumRings {
		t.Errorf("expected %d ring-keyed cylinders, got %d keyed by %s", padgeom.DefaultNumRings, det.Len(), det.Key())
	}
}
