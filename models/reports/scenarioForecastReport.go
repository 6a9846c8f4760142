package reports

import (
	"context"
	"sort"

	"bitbucket.org/mmdatafocus/cvr_backend/config"
	"bitbucket.org/mmdatafocus/cvr_backend/models"
	"bitbucket.org/mmdatafocus/cvr_backend/utils"
	"github.com/shopspring/decimal"
)

// PeriodImpact is the net revenue/cost delta a single change (or a bundle of
// changes) contributes to one calendar month.
type PeriodImpact struct {
	Revenue decimal.Decimal `json:"revenue"`
	Cost    decimal.Decimal `json:"cost"`
}

// ScenarioForecastRow is one month of the overlay series: the contract's
// baseline figures alongside the scenario-adjusted ones.
type ScenarioForecastRow struct {
	PeriodMonth       string          `json:"period_month"`
	Revenue           decimal.Decimal `json:"revenue"`
	Cost              decimal.Decimal `json:"cost"`
	MarginPct         decimal.Decimal `json:"margin_pct"`
	ScenarioRevenue   decimal.Decimal `json:"scenario_revenue"`
	ScenarioCost      decimal.Decimal `json:"scenario_cost"`
	ScenarioMarginPct decimal.Decimal `json:"scenario_margin_pct"`
	DeltaRevenue      decimal.Decimal `json:"delta_revenue"`
	DeltaCost         decimal.Decimal `json:"delta_cost"`
}

// ResolveChangeImpacts distributes one change's financial effect across
// months. Detailed impact rows win: each row's month is normalized and its
// deltas summed into the map, so two rows on the same month accumulate. A
// change without impact rows falls back to its headline deltas, posted once
// at the effective month. A change with neither contributes nothing; that is
// logged as a data-quality finding rather than failing the whole series.
func ResolveChangeImpacts(change *models.ContractChange) map[string]PeriodImpact {
	impacts := map[string]PeriodImpact{}
	if change == nil {
		return impacts
	}
	if len(change.Impacts) > 0 {
		for _, row := range change.Impacts {
			key := utils.TruncateToMonth(row.PeriodMonth).Format(utils.PeriodMonthLayout)
			agg := impacts[key]
			agg.Revenue = agg.Revenue.Add(row.RevenueDelta)
			agg.Cost = agg.Cost.Add(row.CostDelta)
			impacts[key] = agg
		}
		return impacts
	}
	if change.EffectiveDate != nil {
		key := utils.TruncateToMonth(*change.EffectiveDate).Format(utils.PeriodMonthLayout)
		impacts[key] = PeriodImpact{Revenue: change.RevenueDelta, Cost: change.CostDelta}
		return impacts
	}
	config.LogDataQuality(config.GetLogger(), "reports", "ResolveChangeImpacts",
		"change has neither impact rows nor an effective date, skipped", change.ID)
	return impacts
}

// AccumulateImpacts folds several per-change impact maps into one, summing
// deltas that land on the same month. Fold order does not affect the result.
func AccumulateImpacts(maps ...map[string]PeriodImpact) map[string]PeriodImpact {
	total := map[string]PeriodImpact{}
	for _, m := range maps {
		for key, impact := range m {
			agg := total[key]
			agg.Revenue = agg.Revenue.Add(impact.Revenue)
			agg.Cost = agg.Cost.Add(impact.Cost)
			total[key] = agg
		}
	}
	return total
}

// MergeScenarioSeries overlays accumulated impacts onto the baseline series.
// The output covers the union of baseline months and impact months: a month
// only the impacts know about appears with a zero baseline, and a baseline
// month no impact touches passes through with zero deltas. Rows come back in
// calendar order. Merging is pure: feeding its output baseline through again
// with no impacts reproduces the same figures.
func MergeScenarioSeries(base []*models.MonthlySummaryRow, impacts map[string]PeriodImpact) []*ScenarioForecastRow {
	byMonth := map[string]*ScenarioForecastRow{}
	for _, row := range base {
		key := utils.NormalizePeriodMonth(row.PeriodMonth)
		merged, ok := byMonth[key]
		if !ok {
			merged = &ScenarioForecastRow{PeriodMonth: key}
			byMonth[key] = merged
		}
		merged.Revenue = merged.Revenue.Add(row.Revenue)
		merged.Cost = merged.Cost.Add(row.Cost)
	}
	for key, impact := range impacts {
		merged, ok := byMonth[key]
		if !ok {
			merged = &ScenarioForecastRow{PeriodMonth: key}
			byMonth[key] = merged
		}
		merged.DeltaRevenue = merged.DeltaRevenue.Add(impact.Revenue)
		merged.DeltaCost = merged.DeltaCost.Add(impact.Cost)
	}

	rows := make([]*ScenarioForecastRow, 0, len(byMonth))
	for _, merged := range byMonth {
		merged.MarginPct = models.MarginPct(merged.Revenue, merged.Cost)
		merged.ScenarioRevenue = merged.Revenue.Add(merged.DeltaRevenue)
		merged.ScenarioCost = merged.Cost.Add(merged.DeltaCost)
		merged.ScenarioMarginPct = models.MarginPct(merged.ScenarioRevenue, merged.ScenarioCost)
		rows = append(rows, merged)
	}
	sort.Slice(rows, func(i, j int) bool {
		ti, iOk := utils.ParsePeriodMonth(rows[i].PeriodMonth)
		tj, jOk := utils.ParsePeriodMonth(rows[j].PeriodMonth)
		if iOk && jOk {
			return ti.Before(tj)
		}
		if iOk != jOk {
			return iOk
		}
		return rows[i].PeriodMonth < rows[j].PeriodMonth
	})
	return rows
}

// GetScenarioForecast builds the overlay series for one contract and
// scenario: the baseline monthly summary merged with the accumulated impacts
// of every change linked to the scenario. Pass scenarioId 0 for the plain
// baseline shaped as overlay rows with zero deltas.
func GetScenarioForecast(ctx context.Context, cache *SeriesCache, contractId int, scenarioId int) ([]*ScenarioForecastRow, error) {
	var cached []*ScenarioForecastRow
	if cache.get(contractId, scenarioId, &cached) {
		return cached, nil
	}

	base, err := models.GetMonthlySummary(ctx, contractId)
	if err != nil {
		return nil, err
	}

	impacts := map[string]PeriodImpact{}
	if scenarioId != 0 {
		changes, err := models.GetScenarioChanges(ctx, scenarioId)
		if err != nil {
			return nil, err
		}
		perChange := make([]map[string]PeriodImpact, 0, len(changes))
		for _, change := range changes {
			perChange = append(perChange, ResolveChangeImpacts(change))
		}
		impacts = AccumulateImpacts(perChange...)
	}

	rows := MergeScenarioSeries(base, impacts)
	cache.set(contractId, scenarioId, rows)
	return rows, nil
}
