package reports_test

import (
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/cvr_backend/models"
	"bitbucket.org/mmdatafocus/cvr_backend/models/reports"
	"github.com/shopspring/decimal"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func month(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func baselineRows() []*models.MonthlySummaryRow {
	return []*models.MonthlySummaryRow{
		{PeriodMonth: "2025-01-01", Revenue: d(40000), Cost: d(34000)},
		{PeriodMonth: "2025-02-01", Revenue: d(42000), Cost: d(35500)},
		{PeriodMonth: "2025-03-01", Revenue: d(40000), Cost: d(34800)},
	}
}

func TestResolveChangeImpacts_DetailedRowsWinAndSum(t *testing.T) {
	effective := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	change := &models.ContractChange{
		ID:            1,
		RevenueDelta:  d(99999), // headline must be ignored when rows exist
		CostDelta:     d(99999),
		EffectiveDate: &effective,
		Impacts: []models.ContractChangeImpact{
			{PeriodMonth: month(2025, 3), RevenueDelta: d(10000), CostDelta: d(8000)},
			{PeriodMonth: time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC), RevenueDelta: d(5000), CostDelta: d(1000)},
			{PeriodMonth: month(2025, 4), RevenueDelta: d(15000), CostDelta: d(11000)},
		},
	}

	impacts := reports.ResolveChangeImpacts(change)
	if len(impacts) != 2 {
		t.Fatalf("expected 2 impacted months, got %d: %v", len(impacts), impacts)
	}
	march := impacts["2025-03-01"]
	if !march.Revenue.Equal(d(15000)) || !march.Cost.Equal(d(9000)) {
		t.Errorf("march rows did not sum: revenue=%s cost=%s", march.Revenue, march.Cost)
	}
	april := impacts["2025-04-01"]
	if !april.Revenue.Equal(d(15000)) || !april.Cost.Equal(d(11000)) {
		t.Errorf("april = revenue=%s cost=%s", april.Revenue, april.Cost)
	}
}

func TestResolveChangeImpacts_HeadlineFallbackAtEffectiveMonth(t *testing.T) {
	effective := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	change := &models.ContractChange{
		ID:            2,
		RevenueDelta:  d(25000),
		CostDelta:     d(19000),
		EffectiveDate: &effective,
	}

	impacts := reports.ResolveChangeImpacts(change)
	if len(impacts) != 1 {
		t.Fatalf("expected headline posted at one month, got %v", impacts)
	}
	got, ok := impacts["2025-03-01"]
	if !ok {
		t.Fatalf("headline should land on the normalized effective month, got keys %v", impacts)
	}
	if !got.Revenue.Equal(d(25000)) || !got.Cost.Equal(d(19000)) {
		t.Errorf("headline deltas wrong: revenue=%s cost=%s", got.Revenue, got.Cost)
	}
}

func TestResolveChangeImpacts_NoRowsNoDateContributesNothing(t *testing.T) {
	change := &models.ContractChange{ID: 3, RevenueDelta: d(1000)}
	if impacts := reports.ResolveChangeImpacts(change); len(impacts) != 0 {
		t.Errorf("expected empty impacts, got %v", impacts)
	}
}

func TestAccumulateImpacts_OrderIndependent(t *testing.T) {
	a := map[string]reports.PeriodImpact{
		"2025-03-01": {Revenue: d(100), Cost: d(50)},
		"2025-04-01": {Revenue: d(200), Cost: d(75)},
	}
	b := map[string]reports.PeriodImpact{
		"2025-03-01": {Revenue: d(300), Cost: d(25)},
		"2025-05-01": {Revenue: d(400), Cost: d(10)},
	}

	ab := reports.AccumulateImpacts(a, b)
	ba := reports.AccumulateImpacts(b, a)
	if len(ab) != 3 || len(ba) != 3 {
		t.Fatalf("expected 3 months either way, got %d and %d", len(ab), len(ba))
	}
	for key, want := range ab {
		got := ba[key]
		if !got.Revenue.Equal(want.Revenue) || !got.Cost.Equal(want.Cost) {
			t.Errorf("fold order changed %s: %v vs %v", key, want, got)
		}
	}
	march := ab["2025-03-01"]
	if !march.Revenue.Equal(d(400)) || !march.Cost.Equal(d(75)) {
		t.Errorf("march aggregate wrong: %v", march)
	}
}

func TestMergeScenarioSeries_UnionOfMonthsInCalendarOrder(t *testing.T) {
	impacts := map[string]reports.PeriodImpact{
		"2025-02-01": {Revenue: d(1000), Cost: d(500)},
		"2025-05-01": {Revenue: d(7000), Cost: d(6000)}, // month the baseline does not have
	}

	rows := reports.MergeScenarioSeries(baselineRows(), impacts)
	if len(rows) != 4 {
		t.Fatalf("expected union of 4 months, got %d", len(rows))
	}
	wantOrder := []string{"2025-01-01", "2025-02-01", "2025-03-01", "2025-05-01"}
	for i, want := range wantOrder {
		if rows[i].PeriodMonth != want {
			t.Errorf("row %d = %s, want %s", i, rows[i].PeriodMonth, want)
		}
	}

	feb := rows[1]
	if !feb.ScenarioRevenue.Equal(d(43000)) || !feb.ScenarioCost.Equal(d(36000)) {
		t.Errorf("feb scenario figures wrong: revenue=%s cost=%s", feb.ScenarioRevenue, feb.ScenarioCost)
	}

	// Impact-only month carries a zero baseline.
	may := rows[3]
	if !may.Revenue.IsZero() || !may.Cost.IsZero() {
		t.Errorf("impact-only month should have zero baseline, got revenue=%s cost=%s", may.Revenue, may.Cost)
	}
	if !may.ScenarioRevenue.Equal(d(7000)) || !may.ScenarioCost.Equal(d(6000)) {
		t.Errorf("impact-only month scenario figures wrong: %v", may)
	}

	// Untouched month passes through with zero deltas.
	jan := rows[0]
	if !jan.DeltaRevenue.IsZero() || !jan.DeltaCost.IsZero() {
		t.Errorf("untouched month should carry zero deltas, got %v", jan)
	}
	if !jan.ScenarioRevenue.Equal(jan.Revenue) || !jan.ScenarioCost.Equal(jan.Cost) {
		t.Errorf("untouched month scenario figures should equal baseline, got %v", jan)
	}
}

func TestMergeScenarioSeries_Idempotent(t *testing.T) {
	impacts := map[string]reports.PeriodImpact{
		"2025-03-01": {Revenue: d(10000), Cost: d(8000)},
	}
	first := reports.MergeScenarioSeries(baselineRows(), impacts)

	// Feed the merged scenario figures back in as a baseline with no impacts:
	// the output must reproduce the same figures.
	rebased := make([]*models.MonthlySummaryRow, 0, len(first))
	for _, row := range first {
		rebased = append(rebased, &models.MonthlySummaryRow{
			PeriodMonth: row.PeriodMonth,
			Revenue:     row.ScenarioRevenue,
			Cost:        row.ScenarioCost,
		})
	}
	second := reports.MergeScenarioSeries(rebased, nil)
	if len(second) != len(first) {
		t.Fatalf("row count changed on re-merge: %d vs %d", len(second), len(first))
	}
	for i := range first {
		if second[i].PeriodMonth != first[i].PeriodMonth {
			t.Errorf("row %d month changed: %s vs %s", i, second[i].PeriodMonth, first[i].PeriodMonth)
		}
		if !second[i].ScenarioRevenue.Equal(first[i].ScenarioRevenue) ||
			!second[i].ScenarioCost.Equal(first[i].ScenarioCost) {
			t.Errorf("row %d figures drifted on re-merge", i)
		}
	}
}

func TestMergeScenarioSeries_ZeroRevenueMeansZeroMargin(t *testing.T) {
	base := []*models.MonthlySummaryRow{
		{PeriodMonth: "2025-01-01", Revenue: decimal.Zero, Cost: d(5000)},
	}
	rows := reports.MergeScenarioSeries(base, map[string]reports.PeriodImpact{
		"2025-01-01": {Revenue: decimal.Zero, Cost: d(1000)},
	})
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if !rows[0].MarginPct.IsZero() || !rows[0].ScenarioMarginPct.IsZero() {
		t.Errorf("zero-revenue month must report 0%% margin, got %s / %s",
			rows[0].MarginPct, rows[0].ScenarioMarginPct)
	}
}

func TestMarginPct(t *testing.T) {
	got := models.MarginPct(d(40000), d(34000))
	if !got.Equal(d(15)) {
		t.Errorf("MarginPct(40000, 34000) = %s, want 15", got)
	}
	if !models.MarginPct(decimal.Zero, d(100)).IsZero() {
		t.Error("zero revenue must yield zero margin")
	}
}
