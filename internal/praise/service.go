package praise

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/praisehq/praise/internal/eventlog"
	"github.com/praisehq/praise/internal/platform/httpx"
	"github.com/praisehq/praise/internal/settings"
	"github.com/praisehq/praise/internal/shared"
)

// RepositoryPort is what Service needs from storage.
type RepositoryPort interface {
	FindByID(ctx context.Context, id uuid.UUID) (Praise, error)
	FindByDateRange(ctx context.Context, previousEnd, end time.Time) ([]Praise, error)
	FindByDateRangeAndReceiver(ctx context.Context, previousEnd, end time.Time, receiverID uuid.UUID) ([]Praise, error)
	FindByDateRangeAndQuantifier(ctx context.Context, previousEnd, end time.Time, quantifierID uuid.UUID) ([]Praise, error)
	Insert(ctx context.Context, p Praise) error
	GetQuantification(ctx context.Context, praiseID, quantifierID uuid.UUID) (Quantification, error)
	UpdateQuantification(ctx context.Context, q Quantification) error
}

// SettingsPort resolves period-scoped configuration.
type SettingsPort interface {
	IntValue(ctx context.Context, key string, periodID *uuid.UUID) (int, error)
	FloatValue(ctx context.Context, key string, periodID *uuid.UUID) (float64, error)
	IntListValue(ctx context.Context, key string, periodID *uuid.UUID) ([]int, error)
}

// PeriodResolver locates the period owning a point in time. Implemented by
// the periods package.
type PeriodResolver interface {
	PeriodOfDate(ctx context.Context, at time.Time) (PeriodInfo, error)
}

// Recorder is the slice of the event log the service writes to.
type Recorder interface {
	Record(ctx context.Context, entry eventlog.Entry)
}

// Service implements praise giving and quantification.
type Service struct {
	repo     RepositoryPort
	settings SettingsPort
	periods  PeriodResolver
	events   Recorder
	now      func() time.Time
}

// NewService constructs a Service. The period resolver is attached after
// construction with WithPeriods since the two services reference each other.
func NewService(repo RepositoryPort, settings SettingsPort, events Recorder) *Service {
	return &Service{repo: repo, settings: settings, events: events, now: time.Now}
}

// WithPeriods attaches the period resolver.
func (s *Service) WithPeriods(periods PeriodResolver) { s.periods = periods }

// WithNow overrides the clock. Test hook.
func (s *Service) WithNow(now func() time.Time) { s.now = now }

// Give records a new praise item. The item is not tied to any period at
// creation; it falls into whichever period's range later contains CreatedAt.
func (s *Service) Give(ctx context.Context, in GiveInput) (Praise, error) {
	if in.ReceiverID == in.GiverID {
		return Praise{}, fmt.Errorf("praise: cannot praise self: %w", httpx.ErrValidation)
	}
	now := s.now().UTC()
	p := Praise{
		ID:          uuid.New(),
		GiverID:     in.GiverID,
		ReceiverID:  in.ReceiverID,
		ForwarderID: in.ForwarderID,
		Reason:      in.Reason,
		SourceID:    in.SourceID,
		SourceName:  in.SourceName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, p); err != nil {
		return Praise{}, fmt.Errorf("praise: give: %w", err)
	}
	s.events.Record(ctx, eventlog.Entry{
		Type:    eventlog.TypePraise,
		Message: fmt.Sprintf("Praise %s given via %s", p.ID, p.SourceName),
	})
	return s.repo.FindByID(ctx, p.ID)
}

// Get returns one praise with realized scores.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Praise, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return Praise{}, err
	}
	period, err := s.periods.PeriodOfDate(ctx, p.CreatedAt)
	if err != nil {
		return p, nil
	}
	engine, err := s.scoreEngine(ctx, period.ID)
	if err != nil {
		return Praise{}, err
	}
	s.realize(ctx, engine, []Praise{p})
	return p, nil
}

// Quantify applies one quantifier's judgment to one praise. The caller must
// own an assigned quantification for the praise, the praise's period must be
// in QUANTIFY, and scores must come from the configured allowed list.
// Duplicate marking points at an original praise in the same period; chains
// of duplicates are rejected, and a duplicate cannot also be dismissed.
func (s *Service) Quantify(ctx context.Context, praiseID uuid.UUID, in QuantifyInput) (Praise, error) {
	identity := shared.IdentityFromContext(ctx)
	if identity == nil {
		return Praise{}, fmt.Errorf("praise: quantify: %w", httpx.ErrUnauthorized)
	}

	p, err := s.repo.FindByID(ctx, praiseID)
	if err != nil {
		return Praise{}, err
	}
	period, err := s.periods.PeriodOfDate(ctx, p.CreatedAt)
	if err != nil {
		return Praise{}, fmt.Errorf("praise: no period for praise date: %w", httpx.ErrValidation)
	}
	if period.Status != PeriodStatusQuantify {
		return Praise{}, fmt.Errorf("praise: period is not quantifying: %w", httpx.ErrConflict)
	}

	q, err := s.repo.GetQuantification(ctx, praiseID, identity.UserID)
	if err != nil {
		return Praise{}, fmt.Errorf("praise: not assigned to this praise: %w", httpx.ErrForbidden)
	}

	if in.DuplicatePraise != nil {
		if err := s.validateDuplicate(ctx, p, *in.DuplicatePraise, period); err != nil {
			return Praise{}, err
		}
		q.DuplicatePraiseID = in.DuplicatePraise
		q.Dismissed = false
		q.Score = 0
	}
	if in.Dismissed != nil {
		if *in.Dismissed && q.DuplicatePraiseID != nil {
			return Praise{}, fmt.Errorf("praise: duplicate cannot be dismissed: %w", httpx.ErrValidation)
		}
		q.Dismissed = *in.Dismissed
		if q.Dismissed {
			q.DuplicatePraiseID = nil
			q.Score = 0
		}
	}
	if in.Score != nil {
		if q.DuplicatePraiseID != nil {
			return Praise{}, fmt.Errorf("praise: duplicate takes its score from the original: %w", httpx.ErrValidation)
		}
		allowed, err := s.settings.IntListValue(ctx, settings.KeyAllowedScores, &period.ID)
		if err != nil {
			return Praise{}, fmt.Errorf("praise: quantify: %w", err)
		}
		if !containsInt(allowed, *in.Score) {
			return Praise{}, fmt.Errorf("praise: score %d is not an allowed value: %w", *in.Score, httpx.ErrValidation)
		}
		q.Score = *in.Score
		q.Dismissed = false
	}

	if err := s.repo.UpdateQuantification(ctx, q); err != nil {
		return Praise{}, fmt.Errorf("praise: quantify: %w", err)
	}
	s.events.Record(ctx, eventlog.Entry{
		Type:    eventlog.TypeQuantification,
		Message: fmt.Sprintf("Praise %s quantified by %s", praiseID, identity.Username),
	})

	return s.Get(ctx, praiseID)
}

func (s *Service) validateDuplicate(ctx context.Context, p Praise, originalID uuid.UUID, period PeriodInfo) error {
	if originalID == p.ID {
		return fmt.Errorf("praise: praise cannot duplicate itself: %w", httpx.ErrValidation)
	}
	original, err := s.repo.FindByID(ctx, originalID)
	if err != nil {
		return fmt.Errorf("praise: duplicate original not found: %w", httpx.ErrValidation)
	}
	if !original.CreatedAt.After(period.PreviousEnd) || original.CreatedAt.After(period.EndDate) {
		return fmt.Errorf("praise: duplicate original is outside the period: %w", httpx.ErrValidation)
	}
	for _, oq := range original.Quantifications {
		if oq.DuplicatePraiseID != nil {
			return fmt.Errorf("praise: original is itself marked duplicate: %w", httpx.ErrValidation)
		}
	}
	return nil
}

// ListByPeriodRange returns realized praise for a period's date range,
// optionally narrowed to one receiver.
func (s *Service) ListByPeriodRange(ctx context.Context, period PeriodInfo, receiverID *uuid.UUID) ([]Praise, error) {
	var (
		praises []Praise
		err     error
	)
	if receiverID != nil {
		praises, err = s.repo.FindByDateRangeAndReceiver(ctx, period.PreviousEnd, period.EndDate, *receiverID)
	} else {
		praises, err = s.repo.FindByDateRange(ctx, period.PreviousEnd, period.EndDate)
	}
	if err != nil {
		return nil, fmt.Errorf("praise: list: %w", err)
	}
	engine, err := s.scoreEngine(ctx, period.ID)
	if err != nil {
		return nil, err
	}
	s.realize(ctx, engine, praises)
	return praises, nil
}

// ListByQuantifier returns the praise assigned to one quantifier in a period,
// realized.
func (s *Service) ListByQuantifier(ctx context.Context, period PeriodInfo, quantifierID uuid.UUID) ([]Praise, error) {
	praises, err := s.repo.FindByDateRangeAndQuantifier(ctx, period.PreviousEnd, period.EndDate, quantifierID)
	if err != nil {
		return nil, fmt.Errorf("praise: list by quantifier: %w", err)
	}
	engine, err := s.scoreEngine(ctx, period.ID)
	if err != nil {
		return nil, err
	}
	s.realize(ctx, engine, praises)
	return praises, nil
}

func (s *Service) scoreEngine(ctx context.Context, periodID uuid.UUID) (ScoreEngine, error) {
	pct, err := s.settings.FloatValue(ctx, settings.KeyDuplicatePraisePercentage, &periodID)
	if err != nil {
		return ScoreEngine{}, fmt.Errorf("praise: load duplicate percentage: %w", err)
	}
	precision, err := s.settings.IntValue(ctx, settings.KeyScorePrecision, &periodID)
	if err != nil {
		return ScoreEngine{}, fmt.Errorf("praise: load score precision: %w", err)
	}
	return ScoreEngine{DuplicatePercentage: pct, Precision: precision}, nil
}

// realize fills ScoreRealized on the praises and their quantifications.
// Duplicate originals outside the loaded slice are fetched on demand.
func (s *Service) realize(ctx context.Context, engine ScoreEngine, praises []Praise) {
	index := make(map[uuid.UUID]*Praise, len(praises))
	for i := range praises {
		index[praises[i].ID] = &praises[i]
	}
	lookup := func(praiseID, quantifierID uuid.UUID) (int, bool) {
		p, ok := index[praiseID]
		if !ok {
			fetched, err := s.repo.FindByID(ctx, praiseID)
			if err != nil {
				return 0, false
			}
			p = &fetched
			index[praiseID] = p
		}
		for _, q := range p.Quantifications {
			if q.QuantifierID == quantifierID {
				if q.Dismissed || q.DuplicatePraiseID != nil {
					return 0, false
				}
				return q.Score, true
			}
		}
		return 0, false
	}
	for i := range praises {
		engine.Realize(&praises[i], lookup)
	}
}

func containsInt(list []int, v int) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
