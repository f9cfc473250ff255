// Package reco turns digitized mTPC pad hits into 3D space points and
// surface-local measurements for a downstream track fitter.
//
// Responsibilities: hit position and covariance estimation, cell id
// packing, projection onto tracking surfaces.
// Key types: Reconstructor, PositionSelector, EventResult.
//
// A Reconstructor is immutable after New and keeps no state between
// events, so one instance may serve many goroutines.
//
// Dependency rule: reco may depend on padgeom, geometry and hits, but
// never on storage, display or the pipeline runner.
package reco
