package praise

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praisehq/praise/internal/eventlog"
	"github.com/praisehq/praise/internal/platform/httpx"
	"github.com/praisehq/praise/internal/settings"
	"github.com/praisehq/praise/internal/shared"
)

type stubRepo struct {
	praises         map[uuid.UUID]*Praise
	quantifications map[uuid.UUID][]Quantification
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		praises:         map[uuid.UUID]*Praise{},
		quantifications: map[uuid.UUID][]Quantification{},
	}
}

func (r *stubRepo) FindByID(_ context.Context, id uuid.UUID) (Praise, error) {
	p, ok := r.praises[id]
	if !ok {
		return Praise{}, fmt.Errorf("praise: not found: %w", httpx.ErrNotFound)
	}
	out := *p
	out.Quantifications = append([]Quantification(nil), r.quantifications[id]...)
	return out, nil
}

func (r *stubRepo) FindByDateRange(ctx context.Context, previousEnd, end time.Time) ([]Praise, error) {
	var out []Praise
	for id, p := range r.praises {
		if p.CreatedAt.After(previousEnd) && !p.CreatedAt.After(end) {
			full, _ := r.FindByID(ctx, id)
			out = append(out, full)
		}
	}
	return out, nil
}

func (r *stubRepo) FindByDateRangeAndReceiver(ctx context.Context, previousEnd, end time.Time, receiverID uuid.UUID) ([]Praise, error) {
	all, _ := r.FindByDateRange(ctx, previousEnd, end)
	var out []Praise
	for _, p := range all {
		if p.ReceiverID == receiverID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *stubRepo) FindByDateRangeAndQuantifier(ctx context.Context, previousEnd, end time.Time, quantifierID uuid.UUID) ([]Praise, error) {
	all, _ := r.FindByDateRange(ctx, previousEnd, end)
	var out []Praise
	for _, p := range all {
		for _, q := range p.Quantifications {
			if q.QuantifierID == quantifierID {
				out = append(out, p)
				break
			}
		}
	}
	return out, nil
}

func (r *stubRepo) Insert(_ context.Context, p Praise) error {
	copied := p
	r.praises[p.ID] = &copied
	return nil
}

func (r *stubRepo) GetQuantification(_ context.Context, praiseID, quantifierID uuid.UUID) (Quantification, error) {
	for _, q := range r.quantifications[praiseID] {
		if q.QuantifierID == quantifierID {
			return q, nil
		}
	}
	return Quantification{}, fmt.Errorf("praise: quantification not found: %w", httpx.ErrNotFound)
}

func (r *stubRepo) UpdateQuantification(_ context.Context, updated Quantification) error {
	list := r.quantifications[updated.PraiseID]
	for i, q := range list {
		if q.ID == updated.ID {
			list[i] = updated
			return nil
		}
	}
	return fmt.Errorf("praise: quantification not found: %w", httpx.ErrNotFound)
}

type stubSettings struct {
	allowed   []int
	duplicate float64
	precision int
}

func (s stubSettings) IntValue(_ context.Context, key string, _ *uuid.UUID) (int, error) {
	if key == settings.KeyScorePrecision {
		return s.precision, nil
	}
	return 0, fmt.Errorf("unexpected key %s", key)
}

func (s stubSettings) FloatValue(_ context.Context, key string, _ *uuid.UUID) (float64, error) {
	if key == settings.KeyDuplicatePraisePercentage {
		return s.duplicate, nil
	}
	return 0, fmt.Errorf("unexpected key %s", key)
}

func (s stubSettings) IntListValue(_ context.Context, key string, _ *uuid.UUID) ([]int, error) {
	if key == settings.KeyAllowedScores {
		return s.allowed, nil
	}
	return nil, fmt.Errorf("unexpected key %s", key)
}

type stubResolver struct {
	period PeriodInfo
	err    error
}

func (s stubResolver) PeriodOfDate(context.Context, time.Time) (PeriodInfo, error) {
	return s.period, s.err
}

type recordedEvents struct {
	entries []eventlog.Entry
}

func (r *recordedEvents) Record(_ context.Context, entry eventlog.Entry) {
	r.entries = append(r.entries, entry)
}

var testNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func quantifyPeriod() PeriodInfo {
	return PeriodInfo{
		ID:          uuid.New(),
		Status:      PeriodStatusQuantify,
		PreviousEnd: testNow.Add(-14 * 24 * time.Hour),
		EndDate:     testNow.Add(24 * time.Hour),
	}
}

func newTestService(repo *stubRepo, resolver stubResolver) (*Service, *recordedEvents) {
	events := &recordedEvents{}
	svc := NewService(repo, stubSettings{allowed: []int{0, 1, 3, 5, 8, 13}, duplicate: 0.1, precision: 2}, events)
	svc.WithPeriods(resolver)
	svc.WithNow(func() time.Time { return testNow })
	return svc, events
}

func seedPraise(repo *stubRepo, quantifierIDs ...uuid.UUID) Praise {
	p := Praise{
		ID:         uuid.New(),
		GiverID:    uuid.New(),
		ReceiverID: uuid.New(),
		Reason:     "shipped the release",
		SourceID:   "DISCORD:123",
		SourceName: "discord",
		CreatedAt:  testNow.Add(-time.Hour),
		UpdatedAt:  testNow.Add(-time.Hour),
	}
	repo.praises[p.ID] = &p
	for _, qid := range quantifierIDs {
		repo.quantifications[p.ID] = append(repo.quantifications[p.ID], Quantification{
			ID:           uuid.New(),
			PraiseID:     p.ID,
			QuantifierID: qid,
			CreatedAt:    testNow.Add(-time.Hour),
		})
	}
	return p
}

func identityContext(userID uuid.UUID) context.Context {
	return shared.ContextWithIdentity(context.Background(), &shared.Identity{
		UserID:   userID,
		Username: "quant",
		Roles:    []string{"QUANTIFIER"},
	})
}

func TestGiveRejectsSelfPraise(t *testing.T) {
	repo := newStubRepo()
	svc, _ := newTestService(repo, stubResolver{period: quantifyPeriod()})

	same := uuid.New()
	_, err := svc.Give(context.Background(), GiveInput{
		GiverID: same, ReceiverID: same, Reason: "x", SourceID: "s", SourceName: "s",
	})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestGiveRecordsEvent(t *testing.T) {
	repo := newStubRepo()
	svc, events := newTestService(repo, stubResolver{period: quantifyPeriod()})

	p, err := svc.Give(context.Background(), GiveInput{
		GiverID: uuid.New(), ReceiverID: uuid.New(), Reason: "great demo", SourceID: "DISCORD:1", SourceName: "discord",
	})
	require.NoError(t, err)
	assert.Equal(t, testNow, p.CreatedAt)
	require.Len(t, events.entries, 1)
	assert.Equal(t, eventlog.TypePraise, events.entries[0].Type)
}

func TestQuantifyRequiresQuantifyStatus(t *testing.T) {
	repo := newStubRepo()
	quantifier := uuid.New()
	p := seedPraise(repo, quantifier)

	period := quantifyPeriod()
	period.Status = PeriodStatusOpen
	svc, _ := newTestService(repo, stubResolver{period: period})

	score := 8
	_, err := svc.Quantify(identityContext(quantifier), p.ID, QuantifyInput{Score: &score})
	assert.ErrorIs(t, err, httpx.ErrConflict)
}

func TestQuantifyRejectsUnassignedQuantifier(t *testing.T) {
	repo := newStubRepo()
	p := seedPraise(repo, uuid.New())
	svc, _ := newTestService(repo, stubResolver{period: quantifyPeriod()})

	score := 8
	_, err := svc.Quantify(identityContext(uuid.New()), p.ID, QuantifyInput{Score: &score})
	assert.ErrorIs(t, err, httpx.ErrForbidden)
}

func TestQuantifyRejectsDisallowedScore(t *testing.T) {
	repo := newStubRepo()
	quantifier := uuid.New()
	p := seedPraise(repo, quantifier)
	svc, _ := newTestService(repo, stubResolver{period: quantifyPeriod()})

	score := 7
	_, err := svc.Quantify(identityContext(quantifier), p.ID, QuantifyInput{Score: &score})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestQuantifySetsScore(t *testing.T) {
	repo := newStubRepo()
	quantifier := uuid.New()
	p := seedPraise(repo, quantifier)
	svc, _ := newTestService(repo, stubResolver{period: quantifyPeriod()})

	score := 13
	out, err := svc.Quantify(identityContext(quantifier), p.ID, QuantifyInput{Score: &score})
	require.NoError(t, err)
	require.Len(t, out.Quantifications, 1)
	assert.Equal(t, 13, out.Quantifications[0].Score)
	assert.InDelta(t, 13, out.ScoreRealized, 1e-9)
}

func TestQuantifyDismissZeroesScore(t *testing.T) {
	repo := newStubRepo()
	quantifier := uuid.New()
	p := seedPraise(repo, quantifier)
	svc, _ := newTestService(repo, stubResolver{period: quantifyPeriod()})

	score := 8
	_, err := svc.Quantify(identityContext(quantifier), p.ID, QuantifyInput{Score: &score})
	require.NoError(t, err)

	dismissed := true
	out, err := svc.Quantify(identityContext(quantifier), p.ID, QuantifyInput{Dismissed: &dismissed})
	require.NoError(t, err)
	assert.True(t, out.Quantifications[0].Dismissed)
	assert.Zero(t, out.ScoreRealized)
}

func TestQuantifyDuplicateRules(t *testing.T) {
	period := quantifyPeriod()

	t.Run("cannot duplicate itself", func(t *testing.T) {
		repo := newStubRepo()
		quantifier := uuid.New()
		p := seedPraise(repo, quantifier)
		svc, _ := newTestService(repo, stubResolver{period: period})

		_, err := svc.Quantify(identityContext(quantifier), p.ID, QuantifyInput{DuplicatePraise: &p.ID})
		assert.ErrorIs(t, err, httpx.ErrValidation)
	})

	t.Run("original must be inside the period", func(t *testing.T) {
		repo := newStubRepo()
		quantifier := uuid.New()
		p := seedPraise(repo, quantifier)
		outside := seedPraise(repo)
		repo.praises[outside.ID].CreatedAt = period.PreviousEnd.Add(-time.Hour)
		svc, _ := newTestService(repo, stubResolver{period: period})

		_, err := svc.Quantify(identityContext(quantifier), p.ID, QuantifyInput{DuplicatePraise: &outside.ID})
		assert.ErrorIs(t, err, httpx.ErrValidation)
	})

	t.Run("no duplicate chains", func(t *testing.T) {
		repo := newStubRepo()
		quantifier := uuid.New()
		p := seedPraise(repo, quantifier)
		original := seedPraise(repo, quantifier)
		third := seedPraise(repo)
		repo.quantifications[original.ID][0].DuplicatePraiseID = &third.ID
		svc, _ := newTestService(repo, stubResolver{period: period})

		_, err := svc.Quantify(identityContext(quantifier), p.ID, QuantifyInput{DuplicatePraise: &original.ID})
		assert.ErrorIs(t, err, httpx.ErrValidation)
	})

	t.Run("duplicate cannot be dismissed", func(t *testing.T) {
		repo := newStubRepo()
		quantifier := uuid.New()
		p := seedPraise(repo, quantifier)
		original := seedPraise(repo, quantifier)
		svc, _ := newTestService(repo, stubResolver{period: period})

		_, err := svc.Quantify(identityContext(quantifier), p.ID, QuantifyInput{DuplicatePraise: &original.ID})
		require.NoError(t, err)

		dismissed := true
		_, err = svc.Quantify(identityContext(quantifier), p.ID, QuantifyInput{Dismissed: &dismissed})
		assert.ErrorIs(t, err, httpx.ErrValidation)
	})
}

func TestQuantifyDuplicateRealizesDampenedScore(t *testing.T) {
	repo := newStubRepo()
	quantifier := uuid.New()
	p := seedPraise(repo, quantifier)
	original := seedPraise(repo, quantifier)
	svc, _ := newTestService(repo, stubResolver{period: quantifyPeriod()})

	score := 8
	_, err := svc.Quantify(identityContext(quantifier), original.ID, QuantifyInput{Score: &score})
	require.NoError(t, err)

	out, err := svc.Quantify(identityContext(quantifier), p.ID, QuantifyInput{DuplicatePraise: &original.ID})
	require.NoError(t, err)
	assert.InDelta(t, 0.8, out.ScoreRealized, 1e-9)
	assert.InDelta(t, 0.8, out.Quantifications[0].ScoreRealized, 1e-9)
}

func TestListByPeriodRangeRealizesScores(t *testing.T) {
	repo := newStubRepo()
	q1, q2 := uuid.New(), uuid.New()
	p := seedPraise(repo, q1, q2)
	repo.quantifications[p.ID][0].Score = 8
	repo.quantifications[p.ID][1].Score = 13

	period := quantifyPeriod()
	svc, _ := newTestService(repo, stubResolver{period: period})

	out, err := svc.ListByPeriodRange(context.Background(), period, nil)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.InDelta(t, 10.5, out[0].ScoreRealized, 1e-9)
}

func TestListByQuantifierFiltersAssignments(t *testing.T) {
	repo := newStubRepo()
	mine, other := uuid.New(), uuid.New()
	assigned := seedPraise(repo, mine)
	seedPraise(repo, other)

	period := quantifyPeriod()
	svc, _ := newTestService(repo, stubResolver{period: period})

	out, err := svc.ListByQuantifier(context.Background(), period, mine)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, assigned.ID, out[0].ID)
}
