package settings

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/praisehq/praise/internal/platform/httpx"
)

type memoryRepo struct {
	global  map[string]Setting
	period  map[string]Setting
	setCnt  int
	copyCnt int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{global: make(map[string]Setting), period: make(map[string]Setting)}
}

func periodKey(key string, periodID uuid.UUID) string {
	return periodID.String() + "/" + key
}

func (m *memoryRepo) GetGlobal(ctx context.Context, key string) (Setting, error) {
	s, ok := m.global[key]
	if !ok {
		return Setting{}, fmt.Errorf("settings: %q not found: %w", key, httpx.ErrNotFound)
	}
	return s, nil
}

func (m *memoryRepo) GetPeriod(ctx context.Context, key string, periodID uuid.UUID) (Setting, error) {
	s, ok := m.period[periodKey(key, periodID)]
	if !ok {
		return Setting{}, fmt.Errorf("settings: %q not found for period: %w", key, httpx.ErrNotFound)
	}
	return s, nil
}

func (m *memoryRepo) ListPeriod(ctx context.Context, periodID uuid.UUID) ([]Setting, error) {
	var out []Setting
	for _, s := range m.period {
		if s.PeriodID != nil && *s.PeriodID == periodID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memoryRepo) SetPeriod(ctx context.Context, key string, periodID uuid.UUID, value string) (Setting, error) {
	m.setCnt++
	s, ok := m.period[periodKey(key, periodID)]
	if !ok {
		return Setting{}, fmt.Errorf("settings: %q not found for period: %w", key, httpx.ErrNotFound)
	}
	s.Value = value
	m.period[periodKey(key, periodID)] = s
	return s, nil
}

func (m *memoryRepo) CopyDefaultsToPeriod(ctx context.Context, periodID uuid.UUID) error {
	m.copyCnt++
	for key, s := range m.global {
		pid := periodID
		s.PeriodID = &pid
		m.period[periodKey(key, periodID)] = s
	}
	return nil
}

func TestValuePeriodOverrideWins(t *testing.T) {
	repo := newMemoryRepo()
	repo.global[KeyQuantifiersPerReceiver] = Setting{Key: KeyQuantifiersPerReceiver, Value: "3", Type: TypeInteger}
	periodID := uuid.New()
	pid := periodID
	repo.period[periodKey(KeyQuantifiersPerReceiver, periodID)] = Setting{
		Key: KeyQuantifiersPerReceiver, Value: "5", Type: TypeInteger, PeriodID: &pid,
	}

	svc := NewService(repo, nil, slog.Default())

	k, err := svc.IntValue(context.Background(), KeyQuantifiersPerReceiver, &periodID)
	require.NoError(t, err)
	require.Equal(t, 5, k)

	global, err := svc.IntValue(context.Background(), KeyQuantifiersPerReceiver, nil)
	require.NoError(t, err)
	require.Equal(t, 3, global)
}

func TestValueFallsBackToGlobal(t *testing.T) {
	repo := newMemoryRepo()
	repo.global[KeyDuplicatePraisePercentage] = Setting{Key: KeyDuplicatePraisePercentage, Value: "0.1", Type: TypeFloat}

	svc := NewService(repo, nil, slog.Default())
	periodID := uuid.New()

	f, err := svc.FloatValue(context.Background(), KeyDuplicatePraisePercentage, &periodID)
	require.NoError(t, err)
	require.InDelta(t, 0.1, f, 1e-9)
}

func TestIntListValueParsesAllowedScores(t *testing.T) {
	repo := newMemoryRepo()
	repo.global[KeyAllowedScores] = Setting{Key: KeyAllowedScores, Value: "0,1,3,5,8,13", Type: TypeList}

	svc := NewService(repo, nil, slog.Default())

	values, err := svc.IntListValue(context.Background(), KeyAllowedScores, nil)
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 3, 5, 8, 13}, values)
}

func TestSetForPeriodInvalidatesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newMemoryRepo()
	periodID := uuid.New()
	pid := periodID
	repo.period[periodKey(KeyScorePrecision, periodID)] = Setting{
		Key: KeyScorePrecision, Value: "2", Type: TypeInteger, PeriodID: &pid,
	}

	svc := NewService(repo, client, slog.Default())

	// Warm the cache.
	first, err := svc.Value(context.Background(), KeyScorePrecision, &periodID)
	require.NoError(t, err)
	require.Equal(t, "2", first)

	_, err = svc.SetForPeriod(context.Background(), KeyScorePrecision, periodID, "0")
	require.NoError(t, err)

	refreshed, err := svc.Value(context.Background(), KeyScorePrecision, &periodID)
	require.NoError(t, err)
	require.Equal(t, "0", refreshed)
}

func TestSetForPeriodRejectsWrongType(t *testing.T) {
	repo := newMemoryRepo()
	periodID := uuid.New()
	pid := periodID
	repo.period[periodKey(KeyScorePrecision, periodID)] = Setting{
		Key: KeyScorePrecision, Value: "2", Type: TypeInteger, PeriodID: &pid,
	}

	svc := NewService(repo, nil, slog.Default())

	_, err := svc.SetForPeriod(context.Background(), KeyScorePrecision, periodID, "not-a-number")
	require.ErrorIs(t, err, httpx.ErrValidation)
	require.Zero(t, repo.setCnt)
}
