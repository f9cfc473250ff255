package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tdis-data/mtpc.reco/internal/mtpc/geometry"
	"github.com/tdis-data/mtpc.reco/internal/mtpc/padgeom"
	"github.com/tdis-data/mtpc.reco/internal/units"
)

// DefaultConfigPath is the path to the canonical reconstruction defaults file.
const DefaultConfigPath = "config/reco.defaults.json"

// Geometry flavours accepted by the "geometry" key.
const (
	GeometryDisc     = "disc"
	GeometryCylinder = "cylinder"
)

// RecoConfig represents the reconstruction parameters. Fields omitted from
// the JSON keep their defaults through the Get* accessors.
type RecoConfig struct {
	// Hit reconstruction
	UseTruePosition      *bool    `json:"use_true_position,omitempty"`
	ZVariance            *float64 `json:"z_variance,omitempty"` // cm^2
	TimeErrorNs          *float64 `json:"time_error_ns,omitempty"`
	OnSurfaceToleranceUm *float64 `json:"on_surface_tolerance_um,omitempty"`

	// Pad layout
	NumRings       *int     `json:"num_rings,omitempty"`
	NumPadsPerRing *int     `json:"num_pads_per_ring,omitempty"`
	MinRadiusCm    *float64 `json:"min_radius_cm,omitempty"`
	MaxRadiusCm    *float64 `json:"max_radius_cm,omitempty"`

	// Tracking geometry
	DetectorLengthCm *float64  `json:"detector_length_cm,omitempty"`
	NumChambers      *int      `json:"num_chambers,omitempty"`
	PlanePositionsCm []float64 `json:"plane_positions_cm,omitempty"`
	Geometry         *string   `json:"geometry,omitempty"`

	// Processing
	Workers *int `json:"workers,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyRecoConfig returns a RecoConfig with all fields set to nil.
func EmptyRecoConfig() *RecoConfig {
	return &RecoConfig{}
}

// DefaultRecoConfig returns a RecoConfig with every field set explicitly to
// its default value.
func DefaultRecoConfig() *RecoConfig {
	return &RecoConfig{
		UseTruePosition:      ptrBool(false),
		ZVariance:            ptrFloat64(1.0),
		TimeErrorNs:          ptrFloat64(1.0),
		OnSurfaceToleranceUm: ptrFloat64(0.1),
		NumRings:             ptrInt(padgeom.DefaultNumRings),
		NumPadsPerRing:       ptrInt(padgeom.DefaultNumPadsPerRing),
		MinRadiusCm:          ptrFloat64(padgeom.DefaultMinRadius),
		MaxRadiusCm:          ptrFloat64(padgeom.DefaultMaxRadius),
		DetectorLengthCm:     ptrFloat64(55.0),
		NumChambers:          ptrInt(5),
		Geometry:             ptrString(GeometryDisc),
		Workers:              ptrInt(1),
	}
}

// LoadRecoConfig loads a RecoConfig from a JSON file.
func LoadRecoConfig(path string) (*RecoConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyRecoConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *RecoConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/mtpc/reco/
		"../../../../" + DefaultConfigPath, // from internal/mtpc/storage/sqlite/
	}
	for _, path := range candidates {
		if cfg, err := LoadRecoConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *RecoConfig) Validate() error {
	if c.ZVariance != nil && *c.ZVariance <= 0 {
		return fmt.Errorf("z_variance must be positive, got %f", *c.ZVariance)
	}
	if c.TimeErrorNs != nil && *c.TimeErrorNs < 0 {
		return fmt.Errorf("time_error_ns must be non-negative, got %f", *c.TimeErrorNs)
	}
	if c.OnSurfaceToleranceUm != nil && *c.OnSurfaceToleranceUm <= 0 {
		return fmt.Errorf("on_surface_tolerance_um must be positive, got %f", *c.OnSurfaceToleranceUm)
	}
	if _, err := c.Layout(); err != nil {
		return err
	}
	if c.DetectorLengthCm != nil && *c.DetectorLengthCm <= 0 {
		return fmt.Errorf("detector_length_cm must be positive, got %f", *c.DetectorLengthCm)
	}
	if c.NumChambers != nil && *c.NumChambers <= 0 {
		return fmt.Errorf("num_chambers must be positive, got %d", *c.NumChambers)
	}
	if c.Geometry != nil {
		switch *c.Geometry {
		case GeometryDisc, GeometryCylinder:
		default:
			return fmt.Errorf("geometry must be %q or %q, got %q", GeometryDisc, GeometryCylinder, *c.Geometry)
		}
	}
	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", *c.Workers)
	}
	return nil
}

// GetUseTruePosition returns the use_true_position value or the default.
func (c *RecoConfig) GetUseTruePosition() bool {
	if c.UseTruePosition == nil {
		return false
	}
	return *c.UseTruePosition
}

// GetZVariance returns the z_variance value (cm^2) or the default.
func (c *RecoConfig) GetZVariance() float64 {
	if c.ZVariance == nil {
		return 1.0
	}
	return *c.ZVariance
}

// GetTimeError returns the time resolution in ns.
func (c *RecoConfig) GetTimeError() float64 {
	if c.TimeErrorNs == nil {
		return 1.0
	}
	return *c.TimeErrorNs
}

// GetOnSurfaceTolerance returns the on-surface tolerance converted to cm.
func (c *RecoConfig) GetOnSurfaceTolerance() float64 {
	um := 0.1
	if c.OnSurfaceToleranceUm != nil {
		um = *c.OnSurfaceToleranceUm
	}
	return um * units.Micrometer
}

// GetDetectorLength returns the detector length in cm.
func (c *RecoConfig) GetDetectorLength() float64 {
	if c.DetectorLengthCm == nil {
		return 55.0
	}
	return *c.DetectorLengthCm
}

// GetNumChambers returns the num_chambers value or the default.
func (c *RecoConfig) GetNumChambers() int {
	if c.NumChambers == nil {
		return 5
	}
	return *c.NumChambers
}

// GetGeometry returns the geometry flavour or the default.
func (c *RecoConfig) GetGeometry() string {
	if c.Geometry == nil || *c.Geometry == "" {
		return GeometryDisc
	}
	return *c.Geometry
}

// GetWorkers returns the workers value or the default.
func (c *RecoConfig) GetWorkers() int {
	if c.Workers == nil {
		return 1
	}
	return *c.Workers
}

// Layout builds the pad layout described by the configuration.
func (c *RecoConfig) Layout() (padgeom.Layout, error) {
	l := padgeom.DefaultLayout()
	if c.NumRings != nil {
		l.NumRings = *c.NumRings
	}
	if c.NumPadsPerRing != nil {
		l.NumPadsPerRing = *c.NumPadsPerRing
	}
	if c.MinRadiusCm != nil {
		l.MinRadius = *c.MinRadiusCm
	}
	if c.MaxRadiusCm != nil {
		l.MaxRadius = *c.MaxRadiusCm
	}
	return padgeom.NewLayout(l.NumRings, l.NumPadsPerRing, l.MinRadius, l.MaxRadius)
}

// PlanePositions returns the explicit plane table if configured, otherwise
// the back-to-back layout derived from detector length and chamber count.
func (c *RecoConfig) PlanePositions() geometry.PlanePositionTable {
	if len(c.PlanePositionsCm) > 0 {
		return geometry.NewPlanePositionTable(c.PlanePositionsCm)
	}
	return geometry.DefaultPlanePositions(c.GetDetectorLength(), c.GetNumChambers())
}

// BuildDetector builds the tracking geometry selected by "geometry".
func (c *RecoConfig) BuildDetector() (*geometry.Detector, error) {
	layout, err := c.Layout()
	if err != nil {
		return nil, err
	}
	switch c.GetGeometry() {
	case GeometryCylinder:
		return geometry.BuildCylindricalDetector(layout, c.GetDetectorLength()), nil
	default:
		return geometry.BuildDiscDetector(c.PlanePositions(), layout), nil
	}
}
