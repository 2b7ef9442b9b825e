package forecast

import (
	"math"
	"time"
)

// Method names the strategy that produced a recommendation
type Method string

const (
	MethodDefault Method = "default"
	MethodHybrid  Method = "hybrid"
)

// Outcome tags a forecast result
type Outcome string

const (
	OutcomeOK        Outcome = "ok"
	OutcomeNoHistory Outcome = "no_history"
)

const (
	serviceLevelZ         = 1.65
	recentWeight          = 0.7
	fullWindowWeight      = 0.3
	increasingTrendFactor = 1.2
	decreasingTrendFactor = 0.8
)

// ReorderCalculation is the outcome of one reorder-point computation.
// Candidates are nil when they were not computed.
type ReorderCalculation struct {
	Recommended int64         `json:"recommended"`
	Method      Method        `json:"method"`
	Velocity    *int64        `json:"velocity,omitempty"`
	Statistical *int64        `json:"statistical,omitempty"`
	Seasonal    *int64        `json:"seasonal,omitempty"`
	Metrics     DemandMetrics `json:"metrics"`
	Config      Config        `json:"config"`
}

// Result pairs the calculation with how it was reached
type Result struct {
	Outcome     Outcome            `json:"outcome"`
	Calculation ReorderCalculation `json:"calculation"`
}

// Engine computes reorder points from sales history. It holds no state.
type Engine struct{}

// NewEngine creates a forecasting engine
func NewEngine() *Engine {
	return &Engine{}
}

// WindowStart returns the earliest instant included in a lookback window ending at asOf
func WindowStart(asOf time.Time, lookbackDays int) time.Time {
	return asOf.AddDate(0, 0, -lookbackDays)
}

// Calculate runs the hybrid reorder-point computation over records as of asOf.
// Records outside [asOf-LookbackDays, asOf] are ignored.
func (e *Engine) Calculate(records []SaleRecord, cfg Config, asOf time.Time) Result {
	inWindow := filterWindow(records, WindowStart(asOf, cfg.LookbackDays), asOf)
	buckets := BucketByDay(inWindow)

	if len(buckets) == 0 {
		return Result{
			Outcome: OutcomeNoHistory,
			Calculation: ReorderCalculation{
				Recommended: cfg.Floor,
				Method:      MethodDefault,
				Metrics:     DemandMetrics{Trend: TrendStable},
				Config:      cfg,
			},
		}
	}

	metrics := ComputeDemandMetrics(buckets)
	lead := float64(cfg.LeadTimeDays)

	calc := ReorderCalculation{
		Method:  MethodHybrid,
		Metrics: metrics,
		Config:  cfg,
	}

	velocity := roundNonNegative(metrics.AverageDailyDemand * lead * cfg.SafetyMultiplier)
	calc.Velocity = &velocity

	statistical := roundNonNegative(metrics.AverageDailyDemand*lead + metrics.StandardDeviation*math.Sqrt(lead)*serviceLevelZ)
	calc.Statistical = &statistical

	if cfg.Seasonal {
		recent := ComputeDemandMetrics(BucketByDay(filterWindow(inWindow, WindowStart(asOf, RecentWindowDays), asOf)))
		blended := recent.AverageDailyDemand*recentWeight + metrics.AverageDailyDemand*fullWindowWeight
		seasonal := roundNonNegative(blended * trendFactor(metrics.Trend) * lead * cfg.SafetyMultiplier)
		calc.Seasonal = &seasonal
	}

	calc.Recommended = max(hybrid(cfg.Floor, calc.Velocity, calc.Statistical, calc.Seasonal), cfg.Floor)
	return Result{Outcome: OutcomeOK, Calculation: calc}
}

// hybrid averages the positive candidates; with none it falls back to floor
func hybrid(floor int64, candidates ...*int64) int64 {
	var sum, count int64
	for _, c := range candidates {
		if c != nil && *c > 0 {
			sum += *c
			count++
		}
	}
	if count == 0 {
		return floor
	}
	return int64(math.Round(float64(sum) / float64(count)))
}

func trendFactor(t Trend) float64 {
	switch t {
	case TrendIncreasing:
		return increasingTrendFactor
	case TrendDecreasing:
		return decreasingTrendFactor
	default:
		return 1.0
	}
}

func filterWindow(records []SaleRecord, from, to time.Time) []SaleRecord {
	out := make([]SaleRecord, 0, len(records))
	for _, r := range records {
		if !r.SoldAt.Before(from) && !r.SoldAt.After(to) {
			out = append(out, r)
		}
	}
	return out
}

func roundNonNegative(v float64) int64 {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	return int64(math.Round(v))
}
