package replenishment

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/erp/stockledger/internal/domain/forecast"
)

// ForecastResponse is a reorder-point forecast for one product
type ForecastResponse struct {
	ProductID   uuid.UUID                   `json:"product_id"`
	AsOf        time.Time                   `json:"as_of"`
	Outcome     forecast.Outcome            `json:"outcome"`
	Calculation forecast.ReorderCalculation `json:"calculation"`
	Cached      bool                        `json:"cached"`
}

// RecalculationEntry reports the recalculation of one product's reorder point
type RecalculationEntry struct {
	ProductID       uuid.UUID               `json:"product_id"`
	OldReorderPoint int64                   `json:"old_reorder_point"`
	NewReorderPoint int64                   `json:"new_reorder_point"`
	Delta           int64                   `json:"delta"`
	PercentChange   float64                 `json:"percent_change"`
	Method          forecast.Method         `json:"method,omitempty"`
	Outcome         forecast.Outcome        `json:"outcome,omitempty"`
	Metrics         *forecast.DemandMetrics `json:"metrics,omitempty"`
	Applied         bool                    `json:"applied"`
	Success         bool                    `json:"success"`
	Skipped         bool                    `json:"skipped,omitempty"`
	Error           string                  `json:"error,omitempty"`
}

// BulkRecalculationReport summarises a sweep over all products
type BulkRecalculationReport struct {
	Success   bool                 `json:"success"`
	DryRun    bool                 `json:"dry_run"`
	Cancelled bool                 `json:"cancelled"`
	Attempted int                  `json:"attempted"`
	Succeeded int                  `json:"succeeded"`
	Failed    int                  `json:"failed"`
	Skipped   int                  `json:"skipped"`
	Entries   []RecalculationEntry `json:"entries"`
	StartedAt time.Time            `json:"started_at"`
	Duration  time.Duration        `json:"duration"`
}

// PercentChange returns the relative change from old to new in percent.
// From zero it is 0 when nothing changed and 100 otherwise.
func PercentChange(oldValue, newValue int64) float64 {
	if oldValue == 0 {
		if newValue == 0 {
			return 0
		}
		return 100
	}
	pct := float64(newValue-oldValue) / float64(oldValue) * 100
	return math.Round(pct*100) / 100
}
