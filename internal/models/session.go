package models

import (
	"time"

	"github.com/google/uuid"
)

// Session holds the most recent parse result for one browser session.
// Process-lifetime only: a restart or a new upload invalidates it.
type Session struct {
	ID            uuid.UUID
	Transactions  []Transaction
	Subscriptions []Subscription
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
