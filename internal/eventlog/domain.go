package eventlog

import (
	"time"

	"github.com/google/uuid"
)

// Event type keys, one per domain area that writes audit entries.
const (
	TypePermission     = "PERMISSION"
	TypeAuthentication = "AUTHENTICATION"
	TypePeriod         = "PERIOD"
	TypePraise         = "PRAISE"
	TypeQuantification = "QUANTIFICATION"
	TypeSetting        = "SETTING"
)

// Entry is a single human-readable audit record.
type Entry struct {
	ID        uuid.UUID  `json:"id"`
	Type      string     `json:"type"`
	Message   string     `json:"description"`
	UserID    *uuid.UUID `json:"user,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}
