package geometry

import "fmt"

// GeometryID packs the volume, layer and sensitive indices of a surface.
type GeometryID uint64

const (
	volumeMask    uint64 = 0xff00000000000000
	layerMask     uint64 = 0x0000fff000000000
	sensitiveMask uint64 = 0x000000000fffff00

	volumeShift    = 56
	layerShift     = 36
	sensitiveShift = 8
)

// NewGeometryID packs the given indices. Values wider than their field are truncated.
func NewGeometryID(volume, layer, sensitive uint64) GeometryID {
	v := (volume << volumeShift) & volumeMask
	v |= (layer << layerShift) & layerMask
	v |= (sensitive << sensitiveShift) & sensitiveMask
	return GeometryID(v)
}

func (id GeometryID) Volume() uint64    { return (uint64(id) & volumeMask) >> volumeShift }
func (id GeometryID) Layer() uint64     { return (uint64(id) & layerMask) >> layerShift }
func (id GeometryID) Sensitive() uint64 { return (uint64(id) & sensitiveMask) >> sensitiveShift }

func (id GeometryID) String() string {
	return fmt.Sprintf("vol=%d|lay=%d|sen=%d", id.Volume(), id.Layer(), id.Sensitive())
}
