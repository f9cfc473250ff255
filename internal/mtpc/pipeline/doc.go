// Package pipeline runs the hit reconstruction over a batch of events.
//
// It is the composition root for event processing: events from the
// digitized reader go through a reco.Reconstructor on a bounded worker
// pool, and the ordered results are handed to sinks (storage, export,
// validation). The pipeline does not own domain logic; it delegates to
// reco and to the sink adapters.
package pipeline
