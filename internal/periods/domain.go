package periods

import (
	"time"

	"github.com/google/uuid"

	"github.com/praisehq/praise/internal/users"
)

// Period statuses form a one-way lifecycle.
const (
	StatusOpen     = "OPEN"
	StatusQuantify = "QUANTIFY"
	StatusClosed   = "CLOSED"
)

// Period is a bounded stretch of praise defined solely by its end date. The
// start is implicit: the end date of the period before it, or the beginning
// of time for the first period.
type Period struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	EndDate   time.Time `json:"endDate"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateInput is a new period request.
type CreateInput struct {
	Name    string    `json:"name" validate:"required,min=3,max=64"`
	EndDate time.Time `json:"endDate" validate:"required"`
}

// UpdateInput carries partial edits to an open period.
type UpdateInput struct {
	Name    *string    `json:"name,omitempty"`
	EndDate *time.Time `json:"endDate,omitempty"`
}

// Receiver aggregates one account's praise within a period.
type Receiver struct {
	Account       users.UserAccount `json:"account"`
	PraiseCount   int               `json:"praiseCount"`
	ScoreRealized float64           `json:"scoreRealized"`
}

// QuantifierProgress tracks how far one quantifier has worked through their
// assignment.
type QuantifierProgress struct {
	QuantifierID  uuid.UUID `json:"quantifier"`
	PraiseCount   int       `json:"praiseCount"`
	FinishedCount int       `json:"finishedCount"`
}

// Details is a period plus its aggregates.
type Details struct {
	Period
	Receivers   []Receiver           `json:"receivers"`
	Quantifiers []QuantifierProgress `json:"quantifiers,omitempty"`
}

// PoolVerification reports whether the active quantifier pool can cover a
// period's praise.
type PoolVerification struct {
	QuantifierPoolSize        int `json:"quantifierPoolSize"`
	QuantifierPoolSizeNeeded  int `json:"quantifierPoolSizeNeeded"`
	QuantifierPoolDeficitSize int `json:"quantifierPoolDeficitSize"`
}

// ReplaceInput names the quantifier being swapped out and in.
type ReplaceInput struct {
	CurrentQuantifier uuid.UUID `json:"currentQuantifierId" validate:"required"`
	NewQuantifier     uuid.UUID `json:"newQuantifierId" validate:"required"`
}

// ReplaceResult summarizes a replacement run. Skips are per praise item with
// the reason each was left in place.
type ReplaceResult struct {
	Reassigned int           `json:"reassigned"`
	Skipped    []ReplaceSkip `json:"skipped,omitempty"`
}

// ReplaceSkip explains one praise item that could not move.
type ReplaceSkip struct {
	PraiseID uuid.UUID `json:"praise"`
	Reason   string    `json:"reason"`
}
