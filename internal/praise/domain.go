package praise

import (
	"time"

	"github.com/google/uuid"

	"github.com/praisehq/praise/internal/users"
)

// Praise records one member acknowledging another's contribution. It belongs
// to whichever period's date range contains CreatedAt; no period key is
// stored.
type Praise struct {
	ID             uuid.UUID          `json:"id"`
	GiverID        uuid.UUID          `json:"-"`
	ReceiverID     uuid.UUID          `json:"-"`
	ForwarderID    *uuid.UUID         `json:"-"`
	Giver          users.UserAccount  `json:"giver"`
	Receiver       users.UserAccount  `json:"receiver"`
	Forwarder      *users.UserAccount `json:"forwarder,omitempty"`
	Reason         string             `json:"reason"`
	ReasonRealized string             `json:"reasonRealized"`
	SourceID       string             `json:"sourceId"`
	SourceName     string             `json:"sourceName"`
	CreatedAt      time.Time          `json:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt"`

	Quantifications []Quantification `json:"quantifications,omitempty"`
	ScoreRealized   float64          `json:"scoreRealized"`
}

// Quantification is one quantifier's judgment of one praise item. Exactly one
// exists per (praise, quantifier) pair once a period is assigned.
type Quantification struct {
	ID                uuid.UUID  `json:"id"`
	PraiseID          uuid.UUID  `json:"praise"`
	QuantifierID      uuid.UUID  `json:"quantifier"`
	Score             int        `json:"score"`
	Dismissed         bool       `json:"dismissed"`
	DuplicatePraiseID *uuid.UUID `json:"duplicatePraise,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`

	ScoreRealized float64 `json:"scoreRealized"`
}

// GiveInput captures a new praise submission.
type GiveInput struct {
	GiverID     uuid.UUID  `json:"giver" validate:"required"`
	ReceiverID  uuid.UUID  `json:"receiver" validate:"required"`
	ForwarderID *uuid.UUID `json:"forwarder,omitempty"`
	Reason      string     `json:"reason" validate:"required"`
	SourceID    string     `json:"sourceId" validate:"required"`
	SourceName  string     `json:"sourceName" validate:"required"`
}

// QuantifyInput carries a quantifier's judgment. Exactly one of Score,
// Dismissed, or DuplicatePraise drives each call; duplicate and dismissed
// exclude each other.
type QuantifyInput struct {
	Score           *int       `json:"score,omitempty"`
	Dismissed       *bool      `json:"dismissed,omitempty"`
	DuplicatePraise *uuid.UUID `json:"duplicatePraise,omitempty"`
}

// PeriodInfo is the slice of period state the praise module needs. The full
// period entity lives in the periods package; this keeps the dependency
// pointing one way.
type PeriodInfo struct {
	ID          uuid.UUID
	Status      string
	PreviousEnd time.Time
	EndDate     time.Time
}

// Period statuses mirrored from the periods package.
const (
	PeriodStatusOpen     = "OPEN"
	PeriodStatusQuantify = "QUANTIFY"
	PeriodStatusClosed   = "CLOSED"
)
