package periods

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praisehq/praise/internal/platform/httpx"
	"github.com/praisehq/praise/internal/praise"
	"github.com/praisehq/praise/internal/settings"
	"github.com/praisehq/praise/internal/users"
)

type stubDirectory struct {
	users map[uuid.UUID]users.User
}

func (d stubDirectory) FindByID(_ context.Context, id uuid.UUID) (users.User, error) {
	u, ok := d.users[id]
	if !ok {
		return users.User{}, fmt.Errorf("users: not found: %w", httpx.ErrNotFound)
	}
	return u, nil
}

type stubExportSettings struct {
	k     int
	cs    float64
	token string
}

func (s stubExportSettings) IntValue(_ context.Context, key string, _ *uuid.UUID) (int, error) {
	if key == settings.KeyQuantifiersPerReceiver {
		return s.k, nil
	}
	return 0, fmt.Errorf("unexpected key %s", key)
}

func (s stubExportSettings) FloatValue(_ context.Context, key string, _ *uuid.UUID) (float64, error) {
	if key == settings.KeyCSSupportPercentage {
		return s.cs, nil
	}
	return 0, fmt.Errorf("unexpected key %s", key)
}

func (s stubExportSettings) Value(_ context.Context, key string, _ *uuid.UUID) (string, error) {
	if key == settings.KeyTokenName {
		return s.token, nil
	}
	return "", fmt.Errorf("unexpected key %s", key)
}

func TestExportSummaryAppliesSupportPercentage(t *testing.T) {
	p := openPeriod(clock.Add(-time.Hour))
	p.Status = StatusClosed
	f := newFixture(t, p)

	receiverUser := uuid.New()
	item := f.addPraise(clock.Add(-48*time.Hour), uuid.New(), receiverUser)
	qid := uuid.New()
	f.store.quantifications[qid] = &praise.Quantification{
		ID: qid, PraiseID: item.ID, QuantifierID: uuid.New(), Score: 13, ScoreRealized: 13,
	}

	directory := stubDirectory{users: map[uuid.UUID]users.User{
		receiverUser: {ID: receiverUser, EthereumAddress: "0xabc"},
	}}
	exporter := NewExporter(f.service, directory, stubExportSettings{k: 3, cs: 10, token: "PRAISE"})

	var buf bytes.Buffer
	require.NoError(t, exporter.Summary(context.Background(), &buf, p.ID))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"ADDRESS", "AMOUNT", "TOKEN"}, rows[0])
	assert.Equal(t, "0xabc", rows[1][0])
	assert.Equal(t, "PRAISE", rows[1][2])
}

func TestExportFullWritesQuantifierColumns(t *testing.T) {
	p := openPeriod(clock.Add(-time.Hour))
	p.Status = StatusClosed
	f := newFixture(t, p)

	item := f.addPraise(clock.Add(-48*time.Hour), uuid.New(), uuid.New())
	qid := uuid.New()
	f.store.quantifications[qid] = &praise.Quantification{
		ID: qid, PraiseID: item.ID, QuantifierID: uuid.New(), Score: 8,
	}

	exporter := NewExporter(f.service, stubDirectory{users: map[uuid.UUID]users.User{}}, stubExportSettings{k: 2, token: "PRAISE"})

	var buf bytes.Buffer
	require.NoError(t, exporter.Full(context.Background(), &buf, p.ID))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Contains(t, rows[0], "SCORE 1")
	assert.Contains(t, rows[0], "SCORE 2")
	assert.Equal(t, "AVG SCORE", rows[0][len(rows[0])-1])
	assert.Equal(t, item.ID.String(), rows[1][0])
	assert.Equal(t, "8", rows[1][9])
}
