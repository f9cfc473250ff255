// Package padgeom owns the readout pad layout of an mTPC readout plane.
//
// Responsibilities: ring/pad index validation, pad-centre coordinates,
// approximate pad dimensions used for resolution estimates.
// Key types: Layout.
//
// Pads are arranged in concentric rings numbered outward from 0. Within a
// ring, pad 0 sits half a pad past azimuth zero and numbering runs
// clockwise. Odd rings are rotated by half a pad relative to even rings.
//
// Dependency rule: no imports from other mtpc packages.
package padgeom
