package forecast

import (
	"math"
	"sort"
	"time"
)

// Trend describes the direction of demand over the window
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

const (
	trendThreshold  = 0.15
	minTrendSaleDay = 7
)

// SaleRecord is one sold line: when it was sold and how many units
type SaleRecord struct {
	SoldAt   time.Time
	Quantity int64
}

// DailyBucket is the total quantity sold on one UTC calendar day
type DailyBucket struct {
	Day      time.Time
	Quantity int64
}

// DemandMetrics summarises a sales window
type DemandMetrics struct {
	TotalQuantity      int64   `json:"total_quantity"`
	DaysWithSales      int     `json:"days_with_sales"`
	AverageDailyDemand float64 `json:"average_daily_demand"`
	PeakDailyDemand    int64   `json:"peak_daily_demand"`
	StandardDeviation  float64 `json:"standard_deviation"`
	Trend              Trend   `json:"trend"`
}

// TruncateDay returns the UTC midnight of t
func TruncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// BucketByDay groups records by UTC calendar day, sorted chronologically.
// Only days with sales appear in the result.
func BucketByDay(records []SaleRecord) []DailyBucket {
	totals := make(map[time.Time]int64)
	for _, r := range records {
		totals[TruncateDay(r.SoldAt)] += r.Quantity
	}
	buckets := make([]DailyBucket, 0, len(totals))
	for day, qty := range totals {
		buckets = append(buckets, DailyBucket{Day: day, Quantity: qty})
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Day.Before(buckets[j].Day)
	})
	return buckets
}

// ComputeDemandMetrics derives demand statistics from chronologically sorted buckets.
// The average is taken over days with sales, not calendar days.
func ComputeDemandMetrics(buckets []DailyBucket) DemandMetrics {
	m := DemandMetrics{Trend: TrendStable}
	n := len(buckets)
	if n == 0 {
		return m
	}

	for _, b := range buckets {
		m.TotalQuantity += b.Quantity
		if b.Quantity > m.PeakDailyDemand {
			m.PeakDailyDemand = b.Quantity
		}
	}
	m.DaysWithSales = n
	m.AverageDailyDemand = float64(m.TotalQuantity) / float64(n)

	var sumSq float64
	for _, b := range buckets {
		d := float64(b.Quantity) - m.AverageDailyDemand
		sumSq += d * d
	}
	m.StandardDeviation = math.Sqrt(sumSq / float64(max(n-1, 1)))
	m.Trend = detectTrend(buckets)
	return m
}

// detectTrend compares first-half and second-half means; the middle day of
// an odd-length series belongs to the second half.
func detectTrend(buckets []DailyBucket) Trend {
	n := len(buckets)
	if n < minTrendSaleDay {
		return TrendStable
	}
	mid := n / 2
	first := meanQuantity(buckets[:mid])
	second := meanQuantity(buckets[mid:])
	switch {
	case second > first*(1+trendThreshold):
		return TrendIncreasing
	case second < first*(1-trendThreshold):
		return TrendDecreasing
	default:
		return TrendStable
	}
}

func meanQuantity(buckets []DailyBucket) float64 {
	if len(buckets) == 0 {
		return 0
	}
	var sum int64
	for _, b := range buckets {
		sum += b.Quantity
	}
	return float64(sum) / float64(len(buckets))
}
