package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Category is the user-assigned disposition for a subscription candidate.
type Category string

const (
	CategoryPending     Category = "pending"
	CategoryKeep        Category = "keep"
	CategoryCancel      Category = "cancel"
	CategoryInvestigate Category = "investigate"
)

// ParseCategory validates a user-supplied category label. Pending is not
// settable by the user, it is only the initial state.
func ParseCategory(s string) (Category, bool) {
	switch Category(s) {
	case CategoryKeep, CategoryCancel, CategoryInvestigate:
		return Category(s), true
	}
	return "", false
}

type Frequency string

const (
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
	FrequencyWeekly  Frequency = "weekly"
)

// Subscription is a recurring-charge pattern inferred by the model from the
// statement's transaction history. It is not independently verified.
type Subscription struct {
	ID          uuid.UUID
	Name        string
	Amount      decimal.Decimal
	Frequency   Frequency
	LastCharged string
	Count       int
	CancelURL   string
	Rationale   string
	Category    Category
	// Normalized equivalents, derived from Amount and Frequency.
	Monthly decimal.Decimal
	Yearly  decimal.Decimal
}
