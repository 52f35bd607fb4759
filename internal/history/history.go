// Package history computes rolling statistics over a product's price log.
package history

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"preisradar/internal/domain/models"
)

type Trend string

const (
	TrendGood Trend = "good"
	TrendOK   Trend = "ok"
	TrendHigh Trend = "high"
)

var (
	goodRatio = decimal.RequireFromString("0.95")
	okRatio   = decimal.RequireFromString("1.05")
	hundred   = decimal.NewFromInt(100)
)

// Window is the mean of daily minimums over the last Days days, today included.
type Window struct {
	Days int      `json:"days"`
	Avg  *float64 `json:"avg"`
	N    int      `json:"n"`
}

// RollingAverage averages the minimums of records dated in
// [today-days+1, today], rounded to cents. ok=false when none qualify.
func RollingAverage(records []models.HistoryRecord, today time.Time, days int) (avg float64, n int, ok bool) {
	d, n := rollingAverage(records, today, days)
	if n == 0 {
		return 0, 0, false
	}
	return d.InexactFloat64(), n, true
}

func rollingAverage(records []models.HistoryRecord, today time.Time, days int) (decimal.Decimal, int) {
	if days <= 0 {
		return decimal.Zero, 0
	}
	end := dayOf(today)
	start := end.AddDate(0, 0, -(days - 1))

	sum := decimal.Zero
	n := 0
	for _, r := range perDay(records) {
		d, err := r.Day()
		if err != nil || d.Before(start) || d.After(end) {
			continue
		}
		sum = sum.Add(decimal.NewFromFloat(r.Min))
		n++
	}
	if n == 0 {
		return decimal.Zero, 0
	}
	return sum.Div(decimal.NewFromInt(int64(n))).Round(2), n
}

// Classify compares current against the short-window average.
func Classify(current, shortAvg float64) (Trend, bool) {
	if shortAvg <= 0 {
		return "", false
	}
	ratio := decimal.NewFromFloat(current).Div(decimal.NewFromFloat(shortAvg))
	switch {
	case ratio.LessThanOrEqual(goodRatio):
		return TrendGood, true
	case ratio.LessThanOrEqual(okRatio):
		return TrendOK, true
	default:
		return TrendHigh, true
	}
}

type Summary struct {
	// Current is today's minimum, or the latest known one.
	Current    *float64 `json:"current_min"`
	CurrentDay string   `json:"current_date,omitempty"`
	Lowest     *float64 `json:"lowest_min"`
	Windows    []Window `json:"windows"`
	// Delta60 is Current vs the 60-day average, in percent.
	Delta60 *float64 `json:"delta60_pct"`
	// Trend rates today's minimum against the short window. It stays empty
	// when the latest record is older than today.
	Trend Trend `json:"trend,omitempty"`
	Days  int   `json:"days"`
}

// Summarize builds the 30/60/90-day view plus the short-window trend.
func Summarize(records []models.HistoryRecord, today time.Time, shortWindow int) Summary {
	days := perDay(records)
	s := Summary{Days: len(days), Windows: []Window{}}

	var latest *models.HistoryRecord
	for i := range days {
		d, err := days[i].Day()
		if err != nil || d.After(dayOf(today)) {
			continue
		}
		if s.Lowest == nil || days[i].Min < *s.Lowest {
			v := days[i].Min
			s.Lowest = &v
		}
		latest = &days[i]
	}
	if latest != nil {
		v := latest.Min
		s.Current = &v
		s.CurrentDay = latest.Date
	}

	for _, w := range windowSet(shortWindow) {
		win := Window{Days: w}
		if avg, n := rollingAverage(days, today, w); n > 0 {
			v := avg.InexactFloat64()
			win.Avg, win.N = &v, n
		}
		s.Windows = append(s.Windows, win)
	}

	if s.Current == nil {
		return s
	}
	cur := decimal.NewFromFloat(*s.Current)

	if avg60, n := rollingAverage(days, today, 60); n > 0 && avg60.IsPositive() {
		v := cur.Sub(avg60).Div(avg60).Mul(hundred).Round(1).InexactFloat64()
		s.Delta60 = &v
	}
	if s.CurrentDay != dayOf(today).Format(models.DateLayout) {
		return s
	}
	if short, n := rollingAverage(days, today, shortWindow); n > 0 {
		if tr, ok := Classify(*s.Current, short.InexactFloat64()); ok {
			s.Trend = tr
		}
	}
	return s
}

func windowSet(short int) []int {
	out := []int{30, 60, 90}
	for _, w := range out {
		if w == short {
			return out
		}
	}
	if short > 0 {
		out = append(out, short)
		sort.Ints(out)
	}
	return out
}

// perDay keeps the last record per date, sorted by date. Logs written before
// same-day upserts existed may carry duplicates.
func perDay(records []models.HistoryRecord) []models.HistoryRecord {
	idx := make(map[string]int, len(records))
	out := make([]models.HistoryRecord, 0, len(records))
	for _, r := range records {
		if i, ok := idx[r.Date]; ok {
			out[i] = r
			continue
		}
		idx[r.Date] = len(out)
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Record builds the daily entry from the retained offer totals: minimum,
// mean rounded to cents and count. ok=false when no offer has a total.
func Record(day time.Time, offers []models.Offer) (models.HistoryRecord, bool) {
	var (
		lo  decimal.Decimal
		sum = decimal.Zero
		n   int
	)
	for _, o := range offers {
		if o.TotalEUR <= 0 {
			continue
		}
		v := decimal.NewFromFloat(o.TotalEUR)
		if n == 0 || v.LessThan(lo) {
			lo = v
		}
		sum = sum.Add(v)
		n++
	}
	if n == 0 {
		return models.HistoryRecord{}, false
	}
	return models.HistoryRecord{
		Date: day.Format(models.DateLayout),
		Min:  lo.Round(2).InexactFloat64(),
		Avg:  sum.Div(decimal.NewFromInt(int64(n))).Round(2).InexactFloat64(),
		N:    n,
	}, true
}
