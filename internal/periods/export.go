package periods

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/google/uuid"

	"github.com/praisehq/praise/internal/settings"
	"github.com/praisehq/praise/internal/users"
)

// UserDirectory resolves users for export rows.
type UserDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (users.User, error)
}

// ExportSettings is the slice of configuration the exports read.
type ExportSettings interface {
	IntValue(ctx context.Context, key string, periodID *uuid.UUID) (int, error)
	FloatValue(ctx context.Context, key string, periodID *uuid.UUID) (float64, error)
	Value(ctx context.Context, key string, periodID *uuid.UUID) (string, error)
}

// Exporter writes period data as CSV for downstream reward distribution.
type Exporter struct {
	service  *Service
	users    UserDirectory
	settings ExportSettings
}

// NewExporter constructs an Exporter.
func NewExporter(service *Service, users UserDirectory, settings ExportSettings) *Exporter {
	return &Exporter{service: service, users: users, settings: settings}
}

// Full writes every praise item in the period with per-quantifier columns
// and the realized average.
func (e *Exporter) Full(ctx context.Context, w io.Writer, periodID uuid.UUID) error {
	p, err := e.service.Get(ctx, periodID)
	if err != nil {
		return err
	}
	items, err := e.service.Praises(ctx, periodID, nil)
	if err != nil {
		return err
	}
	k, err := e.settings.IntValue(ctx, settings.KeyQuantifiersPerReceiver, &p.ID)
	if err != nil {
		return fmt.Errorf("periods: export: %w", err)
	}

	cw := csv.NewWriter(w)
	header := []string{
		"ID", "DATE",
		"TO USER ACCOUNT", "TO ETH ADDRESS",
		"FROM USER ACCOUNT", "FROM ETH ADDRESS",
		"REASON", "SOURCE ID", "SOURCE NAME",
	}
	for i := 1; i <= k; i++ {
		header = append(header,
			fmt.Sprintf("SCORE %d", i),
			fmt.Sprintf("DUPLICATE ID %d", i),
			fmt.Sprintf("DISMISSED %d", i),
			fmt.Sprintf("QUANTIFIER %d USER ID", i),
		)
	}
	header = append(header, "AVG SCORE")
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, item := range items {
		row := []string{
			item.ID.String(),
			item.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			item.Receiver.Name,
			e.ethAddress(ctx, item.Receiver),
			item.Giver.Name,
			e.ethAddress(ctx, item.Giver),
			item.Reason,
			item.SourceID,
			item.SourceName,
		}
		for i := 0; i < k; i++ {
			if i < len(item.Quantifications) {
				q := item.Quantifications[i]
				dup := ""
				if q.DuplicatePraiseID != nil {
					dup = q.DuplicatePraiseID.String()
				}
				row = append(row,
					strconv.Itoa(q.Score),
					dup,
					strconv.FormatBool(q.Dismissed),
					q.QuantifierID.String(),
				)
			} else {
				row = append(row, "", "", "", "")
			}
		}
		row = append(row, formatScore(item.ScoreRealized))
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Summary writes one reward row per receiver: address, amount, token. The
// community support percentage tops up every amount so a shared treasury
// share can ride along with the distribution.
func (e *Exporter) Summary(ctx context.Context, w io.Writer, periodID uuid.UUID) error {
	p, err := e.service.Get(ctx, periodID)
	if err != nil {
		return err
	}
	details, err := e.service.Details(ctx, periodID)
	if err != nil {
		return err
	}
	csPct, err := e.settings.FloatValue(ctx, settings.KeyCSSupportPercentage, &p.ID)
	if err != nil {
		return fmt.Errorf("periods: export summary: %w", err)
	}
	token, err := e.settings.Value(ctx, settings.KeyTokenName, &p.ID)
	if err != nil {
		return fmt.Errorf("periods: export summary: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"ADDRESS", "AMOUNT", "TOKEN"}); err != nil {
		return err
	}
	for _, receiver := range details.Receivers {
		address := e.ethAddress(ctx, receiver.Account)
		if address == "" || receiver.ScoreRealized == 0 {
			continue
		}
		amount := receiver.ScoreRealized * (1 + csPct/100)
		if err := cw.Write([]string{address, formatScore(amount), token}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (e *Exporter) ethAddress(ctx context.Context, account users.UserAccount) string {
	if account.UserID == nil {
		return ""
	}
	user, err := e.users.FindByID(ctx, *account.UserID)
	if err != nil {
		return ""
	}
	return user.EthereumAddress
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
