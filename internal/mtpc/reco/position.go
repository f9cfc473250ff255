package reco

import (
	"github.com/golang/geo/r3"

	"github.com/tdis-data/mtpc.reco/internal/mtpc/hits"
)

// PositionSelector picks the reported position of a reconstructed hit.
// padDerived is the pad centre at the drift-corrected z.
type PositionSelector interface {
	Position(raw *hits.RawHit, padDerived r3.Vector) r3.Vector
}

// PadDerivedPosition always reports the pad-derived position.
type PadDerivedPosition struct{}

func (PadDerivedPosition) Position(_ *hits.RawHit, padDerived r3.Vector) r3.Vector {
	return padDerived
}

// TruthPosition reports the simulated true position when the hit carries
// one and falls back to the pad-derived position otherwise.
type TruthPosition struct{}

func (TruthPosition) Position(raw *hits.RawHit, padDerived r3.Vector) r3.Vector {
	if raw.HasTruth() {
		return raw.TruePosition
	}
	return padDerived
}

// SelectorFor returns the selector matching the use_true_position flag.
func SelectorFor(useTruePosition bool) PositionSelector {
	if useTruePosition {
		return TruthPosition{}
	}
	return PadDerivedPosition{}
}
