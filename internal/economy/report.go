package economy

import (
	"math"

	"github.com/talgya/empire-sim/internal/metrics"
)

// Reporter summarizes an entity's metrics for one period.
type Reporter interface {
	Report(seed string, period int, s metrics.Snapshot) map[string]float64
	// Headline names the report key used to rank entities.
	Headline() string
}

// MonthlyReport computes a company's monthly financials.
type MonthlyReport struct{}

// Headline implements Reporter.
func (MonthlyReport) Headline() string { return "monthly_revenue" }

// Report implements Reporter. A company that has not recorded a production
// figure is assumed to run at full capacity.
func (MonthlyReport) Report(seed string, period int, s metrics.Snapshot) map[string]float64 {
	f := s.Flatten()
	market := MarketIndex(seed, period)

	produced := f["units_produced"]
	if produced <= 0 {
		produced = f["production_capacity"]
	}
	demand := math.Floor(f["production_capacity"] * (f["market_penetration"] / 100) * market)
	unitsSold := math.Min(produced, demand)

	pricePerUnit := 25 + f["quality_score"]/10
	revenue := unitsSold * pricePerUnit

	materialCosts := unitsSold * f["material_cost_per_unit"]
	laborCosts := f["total_employees"] * (f["average_salary"] / 12)
	totalCosts := materialCosts + laborCosts + f["marketing_budget"]

	profit := revenue - totalCosts
	margin := 0.0
	if revenue > 0 {
		margin = profit / revenue * 100
	}

	return map[string]float64{
		"monthly_revenue": revenue,
		"monthly_profit":  profit,
		"profit_margin":   margin,
		"units_sold":      unitsSold,
		"total_costs":     totalCosts,
		"material_costs":  materialCosts,
		"labor_costs":     laborCosts,
		"market_index":    market,
	}
}

// IndexReport averages each indicator category of a country.
type IndexReport struct {
	Registry *metrics.Registry
}

// Headline implements Reporter.
func (IndexReport) Headline() string { return "overall_index" }

// Report implements Reporter.
func (r IndexReport) Report(seed string, period int, s metrics.Snapshot) map[string]float64 {
	out := make(map[string]float64)
	total, n := 0.0, 0
	for _, c := range r.Registry.Describe() {
		if len(c.Fields) == 0 {
			continue
		}
		sum := 0.0
		for _, f := range c.Fields {
			v, ok := s[c.Name][f.Name]
			if !ok {
				v = f.Default
			}
			sum += v
		}
		mean := sum / float64(len(c.Fields))
		out[c.Name+"_index"] = mean
		total += mean
		n++
	}
	if n > 0 {
		out["overall_index"] = total / float64(n)
	}
	out["market_index"] = MarketIndex(seed, period)
	return out
}
