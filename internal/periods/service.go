package periods

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"

	"github.com/praisehq/praise/internal/eventlog"
	"github.com/praisehq/praise/internal/platform/httpx"
	"github.com/praisehq/praise/internal/praise"
	"github.com/praisehq/praise/internal/settings"
	"github.com/praisehq/praise/internal/shared"
	"github.com/praisehq/praise/internal/users"
)

// RepositoryPort is what Service needs from period storage.
type RepositoryPort interface {
	FindByID(ctx context.Context, id uuid.UUID) (Period, error)
	FindLatest(ctx context.Context) (Period, error)
	FindByDate(ctx context.Context, at time.Time) (Period, error)
	PreviousEndDate(ctx context.Context, endDate time.Time) (time.Time, error)
	List(ctx context.Context, page, perPage int) ([]Period, shared.Pagination, error)
	Create(ctx context.Context, p Period) error
	Update(ctx context.Context, p Period) error
	TransitionStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to string) error
	MarkClosed(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
	WithTx(ctx context.Context, fn func(pgx.Tx) error) error
}

// PraiseStore is the slice of praise storage the period lifecycle drives.
type PraiseStore interface {
	FindByDateRange(ctx context.Context, previousEnd, end time.Time) ([]praise.Praise, error)
	FindByID(ctx context.Context, id uuid.UUID) (praise.Praise, error)
	InsertQuantifications(ctx context.Context, tx pgx.Tx, quantifications []praise.Quantification) error
	ListQuantificationsByQuantifier(ctx context.Context, previousEnd, end time.Time, quantifierID uuid.UUID) ([]praise.Quantification, error)
	ReassignQuantification(ctx context.Context, tx pgx.Tx, id, newQuantifierID uuid.UUID) error
	CountQuantificationsInRange(ctx context.Context, previousEnd, end time.Time) (int, error)
}

// QuantifierPool yields the users currently able to quantify.
type QuantifierPool interface {
	ListQuantifiers(ctx context.Context) ([]users.User, error)
}

// SettingsPort resolves period-scoped configuration.
type SettingsPort interface {
	IntValue(ctx context.Context, key string, periodID *uuid.UUID) (int, error)
	CopyDefaultsToPeriod(ctx context.Context, periodID uuid.UUID) error
}

// Locker serializes mutations of one period across instances.
type Locker interface {
	Acquire(ctx context.Context, periodID uuid.UUID) (func(), error)
}

// Recorder is the slice of the event log the service writes to.
type Recorder interface {
	Record(ctx context.Context, entry eventlog.Entry)
}

// AssignmentObserver counts assignment runs for monitoring.
type AssignmentObserver interface {
	ObserveAssignment(outcome string, quantifications int)
}

// ReminderScheduler enqueues quantifier nudges once a period enters QUANTIFY.
type ReminderScheduler interface {
	ScheduleQuantifyReminder(ctx context.Context, periodID uuid.UUID) error
}

// PraiseLister realizes praise for a period range. Implemented by the praise
// service so score settings stay in one place.
type PraiseLister interface {
	ListByPeriodRange(ctx context.Context, period praise.PeriodInfo, receiverID *uuid.UUID) ([]praise.Praise, error)
	ListByQuantifier(ctx context.Context, period praise.PeriodInfo, quantifierID uuid.UUID) ([]praise.Praise, error)
}

// Service implements the period lifecycle: creation, boundary edits,
// quantifier assignment and replacement, and closing.
type Service struct {
	repo     RepositoryPort
	praises  PraiseStore
	lister   PraiseLister
	pool     QuantifierPool
	settings SettingsPort
	locker   Locker
	events   Recorder
	observer AssignmentObserver
	reminder ReminderScheduler
	now      func() time.Time
}

// NewService constructs a Service.
func NewService(repo RepositoryPort, praises PraiseStore, lister PraiseLister, pool QuantifierPool, settings SettingsPort, locker Locker, events Recorder) *Service {
	return &Service{
		repo:     repo,
		praises:  praises,
		lister:   lister,
		pool:     pool,
		settings: settings,
		locker:   locker,
		events:   events,
		now:      time.Now,
	}
}

// WithNow overrides the clock. Test hook.
func (s *Service) WithNow(now func() time.Time) { s.now = now }

// WithObserver attaches assignment metrics.
func (s *Service) WithObserver(observer AssignmentObserver) { s.observer = observer }

// WithReminder attaches the background reminder queue.
func (s *Service) WithReminder(reminder ReminderScheduler) { s.reminder = reminder }

func (s *Service) observeAssignment(outcome string, quantifications int) {
	if s.observer != nil {
		s.observer.ObserveAssignment(outcome, quantifications)
	}
}

// List returns periods newest first.
func (s *Service) List(ctx context.Context, page, perPage int) ([]Period, shared.Pagination, error) {
	return s.repo.List(ctx, page, perPage)
}

// Get returns one period.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Period, error) {
	return s.repo.FindByID(ctx, id)
}

// Create opens a new period. The end date must land after every existing
// period by at least the configured minimum gap.
func (s *Service) Create(ctx context.Context, in CreateInput) (Period, error) {
	endDate := in.EndDate.UTC()
	if !endDate.After(s.now().UTC()) {
		return Period{}, fmt.Errorf("periods: end date must be in the future: %w", httpx.ErrValidation)
	}
	if err := s.checkMinimumGap(ctx, endDate, uuid.Nil); err != nil {
		return Period{}, err
	}

	now := s.now().UTC()
	p := Period{
		ID:        uuid.New(),
		Name:      in.Name,
		Status:    StatusOpen,
		EndDate:   endDate,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return Period{}, fmt.Errorf("periods: create: %w", err)
	}
	if err := s.settings.CopyDefaultsToPeriod(ctx, p.ID); err != nil {
		return Period{}, fmt.Errorf("periods: copy period settings: %w", err)
	}
	s.events.Record(ctx, eventlog.Entry{
		Type:    eventlog.TypePeriod,
		Message: fmt.Sprintf("Period %q created, ending %s", p.Name, p.EndDate.Format(time.RFC3339)),
	})
	return p, nil
}

// Update edits an open period's name or end date. Only the latest period's
// end date may move, and it freezes once any quantification exists inside
// the period's range, because moving the boundary would silently re-home
// quantified praise.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (Period, error) {
	if in.Name == nil && in.EndDate == nil {
		return Period{}, fmt.Errorf("periods: update needs a name or an end date: %w", httpx.ErrValidation)
	}
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return Period{}, err
	}
	if in.Name != nil {
		if len(*in.Name) < 3 || len(*in.Name) > 64 {
			return Period{}, fmt.Errorf("periods: name must be 3 to 64 characters: %w", httpx.ErrValidation)
		}
		p.Name = *in.Name
	}
	if in.EndDate != nil && !in.EndDate.UTC().Equal(p.EndDate) {
		if p.Status != StatusOpen {
			return Period{}, fmt.Errorf("periods: end date can only change while the period is open: %w", httpx.ErrConflict)
		}
		latest, err := s.repo.FindLatest(ctx)
		if err != nil {
			return Period{}, fmt.Errorf("periods: find latest: %w", err)
		}
		if latest.ID != p.ID {
			return Period{}, fmt.Errorf("periods: end date can only change on the latest period: %w", httpx.ErrValidation)
		}
		prevEnd, err := s.repo.PreviousEndDate(ctx, p.EndDate)
		if err != nil {
			return Period{}, fmt.Errorf("periods: previous end date: %w", err)
		}
		count, err := s.praises.CountQuantificationsInRange(ctx, prevEnd, maxTime(p.EndDate, in.EndDate.UTC()))
		if err != nil {
			return Period{}, fmt.Errorf("periods: count quantifications: %w", err)
		}
		if count > 0 {
			return Period{}, fmt.Errorf("periods: end date is frozen once quantifications exist: %w", httpx.ErrConflict)
		}
		if err := s.checkMinimumGap(ctx, in.EndDate.UTC(), p.ID); err != nil {
			return Period{}, err
		}
		p.EndDate = in.EndDate.UTC()
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return Period{}, fmt.Errorf("periods: update: %w", err)
	}
	s.events.Record(ctx, eventlog.Entry{
		Type:    eventlog.TypePeriod,
		Message: fmt.Sprintf("Period %q updated", p.Name),
	})
	return p, nil
}

func (s *Service) checkMinimumGap(ctx context.Context, endDate time.Time, exclude uuid.UUID) error {
	gapDays, err := s.settings.IntValue(ctx, settings.KeyMinimumPeriodGapDays, nil)
	if err != nil {
		return fmt.Errorf("periods: load minimum gap: %w", err)
	}
	latest, err := s.repo.FindLatest(ctx)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("periods: find latest: %w", err)
	}
	if latest.ID == exclude {
		prev, err := s.repo.PreviousEndDate(ctx, latest.EndDate)
		if err != nil {
			return fmt.Errorf("periods: previous end date: %w", err)
		}
		if prev.IsZero() {
			return nil
		}
		latest.EndDate = prev
	}
	gap := time.Duration(gapDays) * 24 * time.Hour
	if endDate.Sub(latest.EndDate) < gap {
		return fmt.Errorf("periods: end date must be at least %d days after the previous period: %w", gapDays, httpx.ErrValidation)
	}
	return nil
}

// rangeOf resolves a period's praise interval (previousEnd, endDate].
func (s *Service) rangeOf(ctx context.Context, p Period) (praise.PeriodInfo, error) {
	prevEnd, err := s.repo.PreviousEndDate(ctx, p.EndDate)
	if err != nil {
		return praise.PeriodInfo{}, fmt.Errorf("periods: previous end date: %w", err)
	}
	return praise.PeriodInfo{
		ID:          p.ID,
		Status:      p.Status,
		PreviousEnd: prevEnd,
		EndDate:     p.EndDate,
	}, nil
}

// PeriodOfDate implements praise.PeriodResolver.
func (s *Service) PeriodOfDate(ctx context.Context, at time.Time) (praise.PeriodInfo, error) {
	p, err := s.repo.FindByDate(ctx, at)
	if err != nil {
		return praise.PeriodInfo{}, err
	}
	return s.rangeOf(ctx, p)
}

// Details returns a period with receiver aggregates and, once quantifying,
// each quantifier's progress.
func (s *Service) Details(ctx context.Context, id uuid.UUID) (Details, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return Details{}, err
	}
	info, err := s.rangeOf(ctx, p)
	if err != nil {
		return Details{}, err
	}
	items, err := s.lister.ListByPeriodRange(ctx, info, nil)
	if err != nil {
		return Details{}, err
	}

	details := Details{Period: p}
	receiverIndex := map[uuid.UUID]int{}
	progressIndex := map[uuid.UUID]int{}
	for _, item := range items {
		i, ok := receiverIndex[item.ReceiverID]
		if !ok {
			i = len(details.Receivers)
			receiverIndex[item.ReceiverID] = i
			details.Receivers = append(details.Receivers, Receiver{Account: item.Receiver})
		}
		details.Receivers[i].PraiseCount++
		details.Receivers[i].ScoreRealized += item.ScoreRealized

		for _, q := range item.Quantifications {
			j, ok := progressIndex[q.QuantifierID]
			if !ok {
				j = len(details.Quantifiers)
				progressIndex[q.QuantifierID] = j
				details.Quantifiers = append(details.Quantifiers, QuantifierProgress{QuantifierID: q.QuantifierID})
			}
			details.Quantifiers[j].PraiseCount++
			if q.Score != 0 || q.Dismissed || q.DuplicatePraiseID != nil {
				details.Quantifiers[j].FinishedCount++
			}
		}
	}
	return details, nil
}

// Praises lists a period's realized praise, optionally for one receiver.
func (s *Service) Praises(ctx context.Context, id uuid.UUID, receiverID *uuid.UUID) ([]praise.Praise, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	info, err := s.rangeOf(ctx, p)
	if err != nil {
		return nil, err
	}
	return s.lister.ListByPeriodRange(ctx, info, receiverID)
}

// QuantifierPraises lists the praise one quantifier must judge in a period.
func (s *Service) QuantifierPraises(ctx context.Context, id, quantifierID uuid.UUID) ([]praise.Praise, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	info, err := s.rangeOf(ctx, p)
	if err != nil {
		return nil, err
	}
	return s.lister.ListByQuantifier(ctx, info, quantifierID)
}

// VerifyQuantifierPoolSize reports whether assignment could succeed for the
// period's praise with the current pool.
func (s *Service) VerifyQuantifierPoolSize(ctx context.Context, id uuid.UUID) (PoolVerification, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return PoolVerification{}, err
	}
	items, pool, assigner, err := s.loadAssignmentInput(ctx, p)
	if err != nil {
		return PoolVerification{}, err
	}
	return assigner.Verify(items, pool), nil
}

// AssignQuantifiers distributes the period's praise across the quantifier
// pool and moves the period to QUANTIFY. The run is all or nothing: every
// quantification row and the status transition commit in one transaction,
// under the period lock.
func (s *Service) AssignQuantifiers(ctx context.Context, id uuid.UUID) (Details, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return Details{}, err
	}
	if p.Status != StatusOpen {
		return Details{}, fmt.Errorf("periods: only an open period can be assigned: %w", httpx.ErrConflict)
	}
	if !p.EndDate.Before(s.now().UTC()) {
		return Details{}, fmt.Errorf("periods: period has not ended yet: %w", httpx.ErrValidation)
	}

	release, err := s.locker.Acquire(ctx, p.ID)
	if err != nil {
		return Details{}, fmt.Errorf("periods: assign: %w", err)
	}
	defer release()

	items, pool, assigner, err := s.loadAssignmentInput(ctx, p)
	if err != nil {
		return Details{}, err
	}
	plan, err := assigner.Plan(items, pool)
	if err != nil {
		s.observeAssignment("rejected", 0)
		return Details{}, err
	}

	now := s.now().UTC()
	quantifications := make([]praise.Quantification, len(plan))
	for i, a := range plan {
		quantifications[i] = praise.Quantification{
			ID:           uuid.New(),
			PraiseID:     a.PraiseID,
			QuantifierID: a.QuantifierID,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
	}

	err = s.repo.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.praises.InsertQuantifications(ctx, tx, quantifications); err != nil {
			return err
		}
		return s.repo.TransitionStatus(ctx, tx, p.ID, StatusOpen, StatusQuantify)
	})
	if err != nil {
		s.observeAssignment("failed", 0)
		return Details{}, fmt.Errorf("periods: assign: %w", err)
	}
	s.observeAssignment("assigned", len(plan))

	s.events.Record(ctx, eventlog.Entry{
		Type:    eventlog.TypePeriod,
		Message: fmt.Sprintf("Period %q assigned: %d quantifications across %d quantifiers", p.Name, len(plan), len(pool)),
	})
	if s.reminder != nil {
		if err := s.reminder.ScheduleQuantifyReminder(ctx, p.ID); err != nil {
			// assignment already committed, so a lost nudge is only audit-worthy
			s.events.Record(ctx, eventlog.Entry{
				Type:    eventlog.TypePeriod,
				Message: fmt.Sprintf("Period %q: quantify reminder could not be queued: %v", p.Name, err),
			})
		}
	}
	return s.Details(ctx, p.ID)
}

func (s *Service) loadAssignmentInput(ctx context.Context, p Period) ([]praise.Praise, []uuid.UUID, Assigner, error) {
	info, err := s.rangeOf(ctx, p)
	if err != nil {
		return nil, nil, Assigner{}, err
	}
	var (
		items []praise.Praise
		pool  []uuid.UUID
		k     int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = s.praises.FindByDateRange(gctx, info.PreviousEnd, info.EndDate)
		if err != nil {
			return fmt.Errorf("periods: load praise: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		quantifiers, err := s.pool.ListQuantifiers(gctx)
		if err != nil {
			return fmt.Errorf("periods: load quantifier pool: %w", err)
		}
		pool = make([]uuid.UUID, len(quantifiers))
		for i, q := range quantifiers {
			pool[i] = q.ID
		}
		return nil
	})
	g.Go(func() error {
		var err error
		k, err = s.settings.IntValue(gctx, settings.KeyQuantifiersPerReceiver, &p.ID)
		if err != nil {
			return fmt.Errorf("periods: load quantifiers per receiver: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, Assigner{}, err
	}
	return items, pool, Assigner{K: k}, nil
}

// ReplaceQuantifier hands one quantifier's remaining assignment in a
// quantifying period to another. Items the new quantifier gave, received, or
// already judges are skipped with a reason rather than failing the run.
func (s *Service) ReplaceQuantifier(ctx context.Context, id uuid.UUID, in ReplaceInput) (ReplaceResult, error) {
	if in.CurrentQuantifier == in.NewQuantifier {
		return ReplaceResult{}, fmt.Errorf("periods: replacement must name a different quantifier: %w", httpx.ErrValidation)
	}
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return ReplaceResult{}, err
	}
	if p.Status != StatusQuantify {
		return ReplaceResult{}, fmt.Errorf("periods: period is not quantifying: %w", httpx.ErrConflict)
	}

	release, err := s.locker.Acquire(ctx, p.ID)
	if err != nil {
		return ReplaceResult{}, fmt.Errorf("periods: replace: %w", err)
	}
	defer release()

	info, err := s.rangeOf(ctx, p)
	if err != nil {
		return ReplaceResult{}, err
	}
	current, err := s.praises.ListQuantificationsByQuantifier(ctx, info.PreviousEnd, info.EndDate, in.CurrentQuantifier)
	if err != nil {
		return ReplaceResult{}, fmt.Errorf("periods: replace: %w", err)
	}
	if len(current) == 0 {
		return ReplaceResult{}, fmt.Errorf("periods: quantifier has no assignment in this period: %w", httpx.ErrNotFound)
	}
	existing, err := s.praises.ListQuantificationsByQuantifier(ctx, info.PreviousEnd, info.EndDate, in.NewQuantifier)
	if err != nil {
		return ReplaceResult{}, fmt.Errorf("periods: replace: %w", err)
	}
	alreadyAssigned := map[uuid.UUID]struct{}{}
	for _, q := range existing {
		alreadyAssigned[q.PraiseID] = struct{}{}
	}

	var result ReplaceResult
	var movable []uuid.UUID
	for _, q := range current {
		item, err := s.praises.FindByID(ctx, q.PraiseID)
		if err != nil {
			return ReplaceResult{}, fmt.Errorf("periods: replace: %w", err)
		}
		switch {
		case item.Giver.UserID != nil && *item.Giver.UserID == in.NewQuantifier:
			result.Skipped = append(result.Skipped, ReplaceSkip{PraiseID: q.PraiseID, Reason: "new quantifier gave this praise"})
		case item.Receiver.UserID != nil && *item.Receiver.UserID == in.NewQuantifier:
			result.Skipped = append(result.Skipped, ReplaceSkip{PraiseID: q.PraiseID, Reason: "new quantifier received this praise"})
		default:
			if _, dup := alreadyAssigned[q.PraiseID]; dup {
				result.Skipped = append(result.Skipped, ReplaceSkip{PraiseID: q.PraiseID, Reason: "new quantifier already judges this praise"})
				continue
			}
			movable = append(movable, q.ID)
		}
	}

	err = s.repo.WithTx(ctx, func(tx pgx.Tx) error {
		for _, qid := range movable {
			if err := s.praises.ReassignQuantification(ctx, tx, qid, in.NewQuantifier); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return ReplaceResult{}, fmt.Errorf("periods: replace: %w", err)
	}
	result.Reassigned = len(movable)

	s.events.Record(ctx, eventlog.Entry{
		Type:    eventlog.TypePeriod,
		Message: fmt.Sprintf("Period %q: quantifier %s replaced by %s for %d praise items", p.Name, in.CurrentQuantifier, in.NewQuantifier, result.Reassigned),
	})
	return result, nil
}

// Close moves a period to CLOSED from either open state. Scores stay frozen
// from then on because quantification requires QUANTIFY status.
func (s *Service) Close(ctx context.Context, id uuid.UUID) (Period, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return Period{}, err
	}
	if p.Status == StatusClosed {
		return Period{}, fmt.Errorf("periods: period is already closed: %w", httpx.ErrConflict)
	}
	release, err := s.locker.Acquire(ctx, p.ID)
	if err != nil {
		return Period{}, fmt.Errorf("periods: close: %w", err)
	}
	defer release()

	err = s.repo.WithTx(ctx, func(tx pgx.Tx) error {
		return s.repo.MarkClosed(ctx, tx, p.ID)
	})
	if err != nil {
		return Period{}, fmt.Errorf("periods: close: %w", err)
	}
	p.Status = StatusClosed

	s.events.Record(ctx, eventlog.Entry{
		Type:    eventlog.TypePeriod,
		Message: fmt.Sprintf("Period %q closed", p.Name),
	})
	return p, nil
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
