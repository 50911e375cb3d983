package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/praisehq/praise/internal/platform/httpx"
)

const cacheTTL = time.Minute

// RepositoryPort defines persistence used by the service.
type RepositoryPort interface {
	GetGlobal(ctx context.Context, key string) (Setting, error)
	GetPeriod(ctx context.Context, key string, periodID uuid.UUID) (Setting, error)
	ListPeriod(ctx context.Context, periodID uuid.UUID) ([]Setting, error)
	SetPeriod(ctx context.Context, key string, periodID uuid.UUID, value string) (Setting, error)
	CopyDefaultsToPeriod(ctx context.Context, periodID uuid.UUID) error
}

// Service resolves typed configuration with period-override precedence:
// period value when present, global default otherwise.
type Service struct {
	repo   RepositoryPort
	cache  *redis.Client
	logger *slog.Logger
}

// NewService constructs a Service. The cache client may be nil.
func NewService(repo RepositoryPort, cache *redis.Client, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, logger: logger}
}

func cacheKey(key string, periodID *uuid.UUID) string {
	if periodID == nil {
		return "praise:setting:" + key
	}
	return "praise:setting:" + periodID.String() + ":" + key
}

// Value resolves the raw string value for a key, optionally period-scoped.
func (s *Service) Value(ctx context.Context, key string, periodID *uuid.UUID) (string, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey(key, periodID)).Result(); err == nil {
			return cached, nil
		}
	}

	var (
		setting Setting
		err     error
	)
	if periodID != nil {
		setting, err = s.repo.GetPeriod(ctx, key, *periodID)
		if err != nil && errors.Is(err, httpx.ErrNotFound) {
			setting, err = s.repo.GetGlobal(ctx, key)
		}
	} else {
		setting, err = s.repo.GetGlobal(ctx, key)
	}
	if err != nil {
		return "", err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey(key, periodID), setting.Value, cacheTTL).Err(); err != nil {
			s.logger.Warn("settings cache write", slog.Any("error", err))
		}
	}
	return setting.Value, nil
}

// IntValue resolves an Integer setting.
func (s *Service) IntValue(ctx context.Context, key string, periodID *uuid.UUID) (int, error) {
	raw, err := s.Value(ctx, key, periodID)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("settings: %q is not an integer: %w", key, httpx.ErrValidation)
	}
	return n, nil
}

// FloatValue resolves a Float setting.
func (s *Service) FloatValue(ctx context.Context, key string, periodID *uuid.UUID) (float64, error) {
	raw, err := s.Value(ctx, key, periodID)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("settings: %q is not a float: %w", key, httpx.ErrValidation)
	}
	return f, nil
}

// IntListValue resolves a List setting of integers.
func (s *Service) IntListValue(ctx context.Context, key string, periodID *uuid.UUID) ([]int, error) {
	raw, err := s.Value(ctx, key, periodID)
	if err != nil {
		return nil, err
	}
	parts := strings.Split(raw, ",")
	values := make([]int, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("settings: %q contains non-integer %q: %w", key, part, httpx.ErrValidation)
		}
		values = append(values, n)
	}
	return values, nil
}

// ListForPeriod returns all period-scoped settings.
func (s *Service) ListForPeriod(ctx context.Context, periodID uuid.UUID) ([]Setting, error) {
	return s.repo.ListPeriod(ctx, periodID)
}

// SetForPeriod updates one period-scoped value and drops the cache entry.
// Callers must have verified the period is still OPEN.
func (s *Service) SetForPeriod(ctx context.Context, key string, periodID uuid.UUID, value string) (Setting, error) {
	current, err := s.repo.GetPeriod(ctx, key, periodID)
	if err != nil {
		return Setting{}, err
	}
	if err := validateValue(current.Type, value); err != nil {
		return Setting{}, err
	}

	setting, err := s.repo.SetPeriod(ctx, key, periodID, value)
	if err != nil {
		return Setting{}, err
	}
	if s.cache != nil {
		if err := s.cache.Del(ctx, cacheKey(key, &periodID)).Err(); err != nil {
			s.logger.Warn("settings cache invalidate", slog.Any("error", err))
		}
	}
	return setting, nil
}

func validateValue(settingType, value string) error {
	switch settingType {
	case TypeInteger:
		if _, err := strconv.Atoi(strings.TrimSpace(value)); err != nil {
			return fmt.Errorf("settings: value %q is not an integer: %w", value, httpx.ErrValidation)
		}
	case TypeFloat:
		if _, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err != nil {
			return fmt.Errorf("settings: value %q is not a float: %w", value, httpx.ErrValidation)
		}
	case TypeBoolean:
		if _, err := strconv.ParseBool(strings.TrimSpace(value)); err != nil {
			return fmt.Errorf("settings: value %q is not a boolean: %w", value, httpx.ErrValidation)
		}
	case TypeList:
		for _, part := range strings.Split(value, ",") {
			if _, err := strconv.Atoi(strings.TrimSpace(part)); err != nil {
				return fmt.Errorf("settings: list element %q is not an integer: %w", part, httpx.ErrValidation)
			}
		}
	}
	return nil
}

// CopyDefaultsToPeriod snapshots globals into a freshly created period.
func (s *Service) CopyDefaultsToPeriod(ctx context.Context, periodID uuid.UUID) error {
	return s.repo.CopyDefaultsToPeriod(ctx, periodID)
}
