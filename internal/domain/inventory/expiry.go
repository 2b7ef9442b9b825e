package inventory

import (
	"time"

	"github.com/google/uuid"
)

// ExpiryTier groups batches by how close they are to expiring
type ExpiryTier string

const (
	ExpiryTierExpired      ExpiryTier = "expired"
	ExpiryTierExpiringSoon ExpiryTier = "expiring_soon"
	ExpiryTierNearExpiry   ExpiryTier = "near_expiry"
)

// Severity is the alert severity attached to a tier
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
)

// Severity maps the tier to its severity
func (t ExpiryTier) Severity() Severity {
	switch t {
	case ExpiryTierExpired:
		return SeverityCritical
	case ExpiryTierExpiringSoon:
		return SeverityHigh
	default:
		return SeverityMedium
	}
}

// Rank orders tiers from most to least urgent
func (t ExpiryTier) Rank() int {
	switch t {
	case ExpiryTierExpired:
		return 0
	case ExpiryTierExpiringSoon:
		return 1
	default:
		return 2
	}
}

// Default expiry thresholds in days
const (
	DefaultSoonDays = 7
	DefaultNearDays = 30
)

// ExpiryThresholds bounds the expiring_soon and near_expiry tiers (inclusive)
type ExpiryThresholds struct {
	SoonDays int
	NearDays int
}

// DefaultExpiryThresholds returns 7 / 30 days
func DefaultExpiryThresholds() ExpiryThresholds {
	return ExpiryThresholds{SoonDays: DefaultSoonDays, NearDays: DefaultNearDays}
}

// DaysUntilExpiry counts whole calendar days between asOf and expiry, both
// truncated to their UTC date. Negative means already expired.
func DaysUntilExpiry(expiry, asOf time.Time) int {
	e := utcDate(expiry)
	a := utcDate(asOf)
	return int(e.Sub(a).Hours() / 24)
}

func utcDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// ClassifyExpiry returns the tier for a days-until-expiry value.
// The boolean is false when the batch is beyond the near-expiry horizon.
func ClassifyExpiry(days int, th ExpiryThresholds) (ExpiryTier, bool) {
	switch {
	case days < 0:
		return ExpiryTierExpired, true
	case days <= th.SoonDays:
		return ExpiryTierExpiringSoon, true
	case days <= th.NearDays:
		return ExpiryTierNearExpiry, true
	default:
		return "", false
	}
}

// ExpiryAlert flags one batch at risk of expiring
type ExpiryAlert struct {
	BatchID           uuid.UUID
	ProductID         uuid.UUID
	BatchNumber       string
	ExpiryDate        time.Time
	QuantityRemaining int64
	DaysUntilExpiry   int
	Tier              ExpiryTier
	Severity          Severity
}

// EvaluateBatch builds an alert for an active batch, or nil when no alert applies
func EvaluateBatch(b *Batch, asOf time.Time, th ExpiryThresholds) *ExpiryAlert {
	if b == nil || b.ExpiryDate == nil || !b.AwaitingDisposal() {
		return nil
	}
	days := DaysUntilExpiry(*b.ExpiryDate, asOf)
	tier, ok := ClassifyExpiry(days, th)
	if !ok {
		return nil
	}
	return &ExpiryAlert{
		BatchID:           b.ID,
		ProductID:         b.ProductID,
		BatchNumber:       b.BatchNumber,
		ExpiryDate:        *b.ExpiryDate,
		QuantityRemaining: b.QuantityRemaining,
		DaysUntilExpiry:   days,
		Tier:              tier,
		Severity:          tier.Severity(),
	}
}
