package eventlog

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/praisehq/praise/internal/shared"
)

type stubRepo struct {
	entries   []Entry
	insertErr error
}

func (s *stubRepo) Insert(ctx context.Context, entry Entry) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *stubRepo) List(ctx context.Context, limit, offset int) ([]Entry, int, error) {
	end := offset + limit
	if end > len(s.entries) {
		end = len(s.entries)
	}
	if offset > len(s.entries) {
		offset = len(s.entries)
	}
	return s.entries[offset:end], len(s.entries), nil
}

func TestRecordFillsDefaults(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo, slog.Default())
	fixed := time.Date(2023, 4, 1, 12, 0, 0, 0, time.UTC)
	svc.WithNow(func() time.Time { return fixed })

	actor := uuid.New()
	ctx := shared.ContextWithIdentity(context.Background(), &shared.Identity{UserID: actor})
	svc.Record(ctx, Entry{Type: TypePeriod, Message: "Created a new period \"March\""})

	require.Len(t, repo.entries, 1)
	entry := repo.entries[0]
	require.NotEqual(t, uuid.Nil, entry.ID)
	require.Equal(t, fixed, entry.CreatedAt)
	require.NotNil(t, entry.UserID)
	require.Equal(t, actor, *entry.UserID)
}

func TestRecordSwallowsRepositoryFailure(t *testing.T) {
	repo := &stubRepo{insertErr: errors.New("connection refused")}
	svc := NewService(repo, slog.Default())

	// Must not panic and must not surface the failure.
	svc.Record(context.Background(), Entry{Type: TypeQuantification, Message: "scored"})
	require.Empty(t, repo.entries)
}

func TestListPagination(t *testing.T) {
	repo := &stubRepo{}
	for i := 0; i < 45; i++ {
		repo.entries = append(repo.entries, Entry{ID: uuid.New(), Type: TypePeriod})
	}
	svc := NewService(repo, slog.Default())

	result, err := svc.List(context.Background(), 2, 20)
	require.NoError(t, err)
	require.Len(t, result.Entries, 20)
	require.Equal(t, 45, result.Pagination.Total)
	require.Equal(t, 3, result.Pagination.TotalPages)
}
