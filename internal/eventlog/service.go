package eventlog

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/praisehq/praise/internal/shared"
)

// RepositoryPort defines persistence used by the service.
type RepositoryPort interface {
	Insert(ctx context.Context, entry Entry) error
	List(ctx context.Context, limit, offset int) ([]Entry, int, error)
}

// Service records and lists audit events.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs a Service.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Record writes an audit entry. It is fire-and-forget: a failing write is
// logged but never fails the operation that triggered it.
func (s *Service) Record(ctx context.Context, entry Entry) {
	if s == nil || s.repo == nil {
		return
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}
	if entry.UserID == nil {
		if identity := shared.IdentityFromContext(ctx); identity != nil {
			id := identity.UserID
			entry.UserID = &id
		}
	}
	if err := s.repo.Insert(ctx, entry); err != nil {
		s.logger.Error("record event log entry",
			slog.String("type", entry.Type),
			slog.Any("error", err))
	}
}

// Result bundles a page of entries with pagination metadata.
type Result struct {
	Entries    []Entry           `json:"docs"`
	Pagination shared.Pagination `json:"pagination"`
}

// List returns a page of audit entries, newest first.
func (s *Service) List(ctx context.Context, page, perPage int) (Result, error) {
	if perPage <= 0 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}
	if page <= 0 {
		page = 1
	}
	entries, total, err := s.repo.List(ctx, perPage, (page-1)*perPage)
	if err != nil {
		return Result{}, err
	}
	if entries == nil {
		entries = []Entry{}
	}
	return Result{Entries: entries, Pagination: shared.NewPagination(page, perPage, total)}, nil
}
