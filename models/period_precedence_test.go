package models_test

import (
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/cvr_backend/models"
	"github.com/shopspring/decimal"
)

func period(revenues []models.ContractRevenue, costs []models.ContractCost) *models.ContractPeriod {
	return &models.ContractPeriod{
		ID:          1,
		ContractId:  1,
		PeriodMonth: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Revenues:    revenues,
		Costs:       costs,
	}
}

func TestAuthoritativeRevenue_ActualWinsOverForecast(t *testing.T) {
	p := period([]models.ContractRevenue{
		{ID: 1, RevenueType: models.RecordKindForecast, Amount: decimal.NewFromInt(500)},
		{ID: 2, RevenueType: models.RecordKindActual, Amount: decimal.NewFromInt(400)},
	}, nil)

	rec := p.AuthoritativeRevenue()
	if rec == nil || rec.RevenueType != models.RecordKindActual {
		t.Fatalf("expected the actual record, got %+v", rec)
	}
	if !rec.Amount.Equal(decimal.NewFromInt(400)) {
		t.Errorf("amount = %s, want 400", rec.Amount)
	}
}

func TestAuthoritativeRevenue_DuplicatesIgnoredNotMerged(t *testing.T) {
	p := period([]models.ContractRevenue{
		{ID: 1, RevenueType: models.RecordKindForecast, Amount: decimal.NewFromInt(500)},
		{ID: 2, RevenueType: models.RecordKindForecast, Amount: decimal.NewFromInt(700)},
	}, nil)

	rec := p.AuthoritativeRevenue()
	if rec == nil {
		t.Fatal("expected a forecast record")
	}
	if !rec.Amount.Equal(decimal.NewFromInt(500)) {
		t.Errorf("expected the first forecast record only, got %s", rec.Amount)
	}
}

func TestAuthoritativeRevenue_BaselineIgnored(t *testing.T) {
	p := period([]models.ContractRevenue{
		{ID: 1, RevenueType: models.RecordKindBaseline, Amount: decimal.NewFromInt(999)},
	}, nil)
	if rec := p.AuthoritativeRevenue(); rec != nil {
		t.Errorf("baseline rows must not be authoritative, got %+v", rec)
	}
}

func TestAuthoritativeCost_PerCategoryPrecedence(t *testing.T) {
	p := period(nil, []models.ContractCost{
		{ID: 1, CategoryId: 1, CostType: models.RecordKindForecast, Amount: decimal.NewFromInt(100)},
		{ID: 2, CategoryId: 1, CostType: models.RecordKindActual, Amount: decimal.NewFromInt(90)},
		{ID: 3, CategoryId: 2, CostType: models.RecordKindForecast, Amount: decimal.NewFromInt(50)},
	})

	labour := p.AuthoritativeCost(1)
	if labour == nil || labour.CostType != models.RecordKindActual || !labour.Amount.Equal(decimal.NewFromInt(90)) {
		t.Errorf("category 1 should resolve to its actual, got %+v", labour)
	}
	materials := p.AuthoritativeCost(2)
	if materials == nil || materials.CostType != models.RecordKindForecast {
		t.Errorf("category 2 should fall back to its forecast, got %+v", materials)
	}
	if p.AuthoritativeCost(3) != nil {
		t.Error("unknown category should resolve to nothing")
	}
}

func TestIsFuture(t *testing.T) {
	actual := period([]models.ContractRevenue{
		{ID: 1, RevenueType: models.RecordKindActual, Amount: decimal.NewFromInt(100)},
	}, nil)
	if actual.IsFuture() {
		t.Error("a period with an actual revenue record is not a future period")
	}

	forecast := period([]models.ContractRevenue{
		{ID: 1, RevenueType: models.RecordKindForecast, Amount: decimal.NewFromInt(100)},
	}, nil)
	if !forecast.IsFuture() {
		t.Error("a forecast-only period counts as future")
	}

	empty := period(nil, nil)
	if !empty.IsFuture() {
		t.Error("a period with no revenue records counts as future")
	}
}
