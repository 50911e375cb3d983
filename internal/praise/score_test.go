package praise

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantificationScoreDismissedAlwaysZero(t *testing.T) {
	engine := ScoreEngine{DuplicatePercentage: 0.1, Precision: 2}

	q := Quantification{Score: 144, Dismissed: true}
	assert.Equal(t, 0.0, engine.QuantificationScore(q, nil))
}

func TestQuantificationScorePlain(t *testing.T) {
	engine := ScoreEngine{DuplicatePercentage: 0.1, Precision: 2}

	q := Quantification{Score: 13}
	assert.Equal(t, 13.0, engine.QuantificationScore(q, nil))
}

func TestQuantificationScoreDuplicateDampened(t *testing.T) {
	engine := ScoreEngine{DuplicatePercentage: 0.1, Precision: 2}

	original := uuid.New()
	quantifier := uuid.New()
	q := Quantification{
		QuantifierID:      quantifier,
		DuplicatePraiseID: &original,
	}
	lookup := func(praiseID, quantifierID uuid.UUID) (int, bool) {
		require.Equal(t, original, praiseID)
		require.Equal(t, quantifier, quantifierID)
		return 8, true
	}

	assert.Equal(t, 0.8, engine.QuantificationScore(q, lookup))
}

func TestQuantificationScoreDuplicateMissingOriginal(t *testing.T) {
	engine := ScoreEngine{DuplicatePercentage: 0.1, Precision: 2}

	original := uuid.New()
	q := Quantification{DuplicatePraiseID: &original}
	lookup := func(praiseID, quantifierID uuid.UUID) (int, bool) { return 0, false }

	assert.Equal(t, 0.0, engine.QuantificationScore(q, lookup))
}

func TestRoundHalfAwayFromZero(t *testing.T) {
	engine := ScoreEngine{Precision: 0}
	assert.Equal(t, 1.0, engine.Round(0.5))
	assert.Equal(t, -1.0, engine.Round(-0.5))

	engine = ScoreEngine{Precision: 2}
	assert.Equal(t, 0.13, engine.Round(0.125))
	assert.Equal(t, 2.13, engine.Round(2.134999))
}

func TestPraiseScoreMeanExcludesDismissed(t *testing.T) {
	engine := ScoreEngine{DuplicatePercentage: 0.1, Precision: 2}

	quantifications := []Quantification{
		{Score: 8},
		{Score: 13},
		{Score: 89, Dismissed: true},
	}

	// (8 + 13) / 2, dismissed excluded from sum and divisor
	assert.Equal(t, 10.5, engine.PraiseScore(quantifications, nil))
}

func TestPraiseScoreAllDismissed(t *testing.T) {
	engine := ScoreEngine{DuplicatePercentage: 0.1, Precision: 2}

	quantifications := []Quantification{
		{Score: 8, Dismissed: true},
		{Score: 13, Dismissed: true},
	}

	assert.Equal(t, 0.0, engine.PraiseScore(quantifications, nil))
}

func TestPraiseScoreWithDuplicate(t *testing.T) {
	engine := ScoreEngine{DuplicatePercentage: 0.1, Precision: 2}

	original := uuid.New()
	quantifier := uuid.New()
	quantifications := []Quantification{
		{Score: 8},
		{QuantifierID: quantifier, DuplicatePraiseID: &original},
	}
	lookup := func(praiseID, quantifierID uuid.UUID) (int, bool) { return 13, true }

	// (8 + 1.3) / 2 = 4.65
	assert.Equal(t, 4.65, engine.PraiseScore(quantifications, lookup))
}

func TestRealizeFillsAllScores(t *testing.T) {
	engine := ScoreEngine{DuplicatePercentage: 0.1, Precision: 2}

	p := Praise{
		Quantifications: []Quantification{
			{Score: 21},
			{Score: 3, Dismissed: true},
		},
	}
	engine.Realize(&p, nil)

	assert.Equal(t, 21.0, p.Quantifications[0].ScoreRealized)
	assert.Equal(t, 0.0, p.Quantifications[1].ScoreRealized)
	assert.Equal(t, 21.0, p.ScoreRealized)
}
