// Package geometry builds the tracking geometry of the mTPC: the readout
// plane positions along the drift axis and the detector surfaces that
// reconstructed hits are projected onto.
//
// Key types: PlanePositionTable, Surface, DiscSurface, CylinderSurface,
// Detector.
//
// Readout planes are mounted back to back around shared cathodes:
//
//	[   ||   ][   ||   ][   ||   ][   ||   ][   ||   ]
//	--------------------------------------------------> z
//
// '[' is an even plane whose drift region extends towards +z, ']' is an odd
// plane whose drift region extends towards -z, '||' is a cathode wall.
//
// All tables and surfaces are immutable once built and may be shared by
// concurrent event workers.
package geometry
