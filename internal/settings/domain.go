package settings

import (
	"time"

	"github.com/google/uuid"
)

// Value types a setting can carry. Values are stored as text and parsed on
// read according to this type tag.
const (
	TypeInteger = "Integer"
	TypeFloat   = "Float"
	TypeBoolean = "Boolean"
	TypeString  = "String"
	TypeList    = "List"
)

// Well-known setting keys.
const (
	KeyQuantifiersPerReceiver    = "PRAISE_QUANTIFIERS_PER_PRAISE_RECEIVER"
	KeyDuplicatePraisePercentage = "PRAISE_QUANTIFY_DUPLICATE_PRAISE_PERCENTAGE"
	KeyAllowedScores             = "PRAISE_QUANTIFY_ALLOWED_VALUES"
	KeyMinimumPeriodGapDays      = "PRAISE_PERIOD_MINIMUM_GAP_DAYS"
	KeyScorePrecision            = "PRAISE_QUANTIFY_SCORE_PRECISION"
	KeyCSSupportPercentage       = "CS_SUPPORT_PERCENTAGE"
	KeyTokenName                 = "PRAISE_TOKEN_NAME"
)

// Setting is one configuration value, global when PeriodID is nil.
type Setting struct {
	Key       string     `json:"key"`
	Value     string     `json:"value"`
	Type      string     `json:"type"`
	Label     string     `json:"label"`
	PeriodID  *uuid.UUID `json:"period,omitempty"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Defaults seeds global settings and is the source copied into each new
// period at creation time.
var Defaults = []Setting{
	{Key: KeyQuantifiersPerReceiver, Value: "3", Type: TypeInteger, Label: "Quantifiers Per Praise Receiver"},
	{Key: KeyDuplicatePraisePercentage, Value: "0.1", Type: TypeFloat, Label: "Duplicate Praise Percentage"},
	{Key: KeyAllowedScores, Value: "0,1,3,5,8,13,21,34,55,89,144", Type: TypeList, Label: "Allowed Quantification Values"},
	{Key: KeyMinimumPeriodGapDays, Value: "7", Type: TypeInteger, Label: "Minimum Days Between Period End Dates"},
	{Key: KeyScorePrecision, Value: "2", Type: TypeInteger, Label: "Score Decimal Places"},
	{Key: KeyCSSupportPercentage, Value: "0", Type: TypeFloat, Label: "Community Support Percentage"},
	{Key: KeyTokenName, Value: "PRAISE", Type: TypeString, Label: "Reward Token Name"},
}
