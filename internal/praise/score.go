package praise

import (
	"math"

	"github.com/google/uuid"
)

// ScoreEngine computes realized scores at read time so results always follow
// the current dampening configuration and duplicate links. Nothing it
// produces is persisted.
type ScoreEngine struct {
	// DuplicatePercentage dampens the score inherited through a duplicate
	// link, e.g. 0.1.
	DuplicatePercentage float64
	// Precision is the number of decimal places kept. Rounding is
	// half-away-from-zero and applied consistently to every computed value.
	Precision int
}

// RawScoreLookup resolves the raw score the given quantifier submitted on the
// referenced praise item. It returns ok=false when no such quantification
// exists.
type RawScoreLookup func(praiseID, quantifierID uuid.UUID) (int, bool)

// Round applies the engine's rounding policy.
func (e ScoreEngine) Round(value float64) float64 {
	factor := math.Pow(10, float64(e.Precision))
	return math.Round(value*factor) / factor
}

// QuantificationScore realizes a single quantification:
// dismissed entries score 0; duplicates inherit the quantifier's own raw
// score on the original praise, dampened; everything else scores its raw
// value.
func (e ScoreEngine) QuantificationScore(q Quantification, lookup RawScoreLookup) float64 {
	if q.Dismissed {
		return 0
	}
	if q.DuplicatePraiseID == nil {
		return float64(q.Score)
	}
	if lookup == nil {
		return 0
	}
	original, ok := lookup(*q.DuplicatePraiseID, q.QuantifierID)
	if !ok {
		return 0
	}
	return e.Round(float64(original) * e.DuplicatePercentage)
}

// PraiseScore realizes the composite score of a praise item: the arithmetic
// mean of all non-dismissed quantifications' realized scores. Dismissed
// entries count in neither sum nor divisor; all-dismissed yields 0.
func (e ScoreEngine) PraiseScore(quantifications []Quantification, lookup RawScoreLookup) float64 {
	var sum float64
	var count int
	for _, q := range quantifications {
		if q.Dismissed {
			continue
		}
		sum += e.QuantificationScore(q, lookup)
		count++
	}
	if count == 0 {
		return 0
	}
	return e.Round(sum / float64(count))
}

// Realize fills ScoreRealized on a praise item and its quantifications.
func (e ScoreEngine) Realize(p *Praise, lookup RawScoreLookup) {
	for i := range p.Quantifications {
		p.Quantifications[i].ScoreRealized = e.QuantificationScore(p.Quantifications[i], lookup)
	}
	p.ScoreRealized = e.PraiseScore(p.Quantifications, lookup)
}
