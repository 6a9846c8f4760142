package workflow_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/cvr_backend/config"
	"bitbucket.org/mmdatafocus/cvr_backend/models"
	"bitbucket.org/mmdatafocus/cvr_backend/utils"
	"bitbucket.org/mmdatafocus/cvr_backend/workflow"
	"github.com/shopspring/decimal"
)

// Promotion and split lifecycle regressions.
//
// Usage: INTEGRATION_TESTS=1 go test ./workflow -run Lifecycle -v
// Requires a reachable MySQL (DB_* env vars); redis is optional.

func requireIntegrationDB(t *testing.T) {
	t.Helper()
	if os.Getenv("INTEGRATION_TESTS") != "1" {
		t.Skip("set INTEGRATION_TESTS=1 to run DB-backed tests")
	}
	if config.GetDB() == nil {
		config.ConnectDatabaseWithRetry()
		models.MigrateTable()
	}
}

func seedContract(t *testing.T, ctx context.Context, months []string, actualMonths int) *models.Contract {
	t.Helper()
	contract, err := models.CreateContract(ctx, &models.NewContract{
		ContractCode:  fmt.Sprintf("TST-%d", time.Now().UnixNano()),
		Name:          "lifecycle test contract",
		StartDate:     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		OriginalValue: decimal.NewFromInt(100000),
		Status:        models.ContractStatusActive,
	})
	if err != nil {
		t.Fatalf("create contract: %v", err)
	}

	db := config.GetDB()
	for i, m := range months {
		period, err := models.CreateContractPeriod(ctx, &models.NewContractPeriod{
			ContractId:  contract.ID,
			PeriodMonth: m,
		})
		if err != nil {
			t.Fatalf("create period %s: %v", m, err)
		}
		kind := models.RecordKindForecast
		if i < actualMonths {
			kind = models.RecordKindActual
		}
		err = db.WithContext(ctx).Create(&models.ContractRevenue{
			ContractPeriodId: period.ID,
			RevenueType:      kind,
			Amount:           decimal.NewFromInt(1000),
		}).Error
		if err == nil {
			err = db.WithContext(ctx).Create(&models.ContractCost{
				ContractPeriodId: period.ID,
				CostType:         kind,
				Amount:           decimal.NewFromInt(800),
			}).Error
		}
		if err != nil {
			t.Fatalf("seed records %s: %v", m, err)
		}
	}
	return contract
}

func TestPromotionLifecycle(t *testing.T) {
	requireIntegrationDB(t)
	ctx := context.Background()

	contract := seedContract(t, ctx,
		[]string{"2025-01-01", "2025-02-01", "2025-03-01", "2025-04-01"}, 2)

	change, err := models.CreateContractChange(ctx, config.GetLogger(), &models.NewContractChange{
		ContractId:   contract.ID,
		ChangeCode:   fmt.Sprintf("VO-%d", time.Now().UnixNano()),
		Status:       models.ChangeStatusProposed,
		RevenueDelta: decimal.NewFromInt(5000),
		CostDelta:    decimal.NewFromInt(4000),
		Impacts: []models.NewChangeImpact{
			{PeriodMonth: "2025-03-01", RevenueDelta: decimal.NewFromInt(2000), CostDelta: decimal.NewFromInt(1500)},
			{PeriodMonth: "2025-04-01", RevenueDelta: decimal.NewFromInt(3000), CostDelta: decimal.NewFromInt(2500)},
			// Month outside the ledger: must be dropped and counted.
			{PeriodMonth: "2026-01-01", RevenueDelta: decimal.NewFromInt(100), CostDelta: decimal.Zero},
		},
	})
	if err != nil {
		t.Fatalf("create change: %v", err)
	}

	scenario, err := models.CreateContractScenario(ctx, &models.NewContractScenario{
		ContractId: contract.ID,
		Name:       "promotion lifecycle",
	})
	if err != nil {
		t.Fatalf("create scenario: %v", err)
	}
	if err := models.LinkScenarioChange(ctx, scenario.ID, change.ID); err != nil {
		t.Fatalf("link change: %v", err)
	}

	result, err := workflow.PromoteScenario(ctx, nil, scenario.ID)
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if result.ChangesApproved != 1 {
		t.Errorf("changes approved = %d, want 1", result.ChangesApproved)
	}
	if result.RecordsInserted != 4 {
		t.Errorf("records inserted = %d, want 4 (revenue+cost on two months)", result.RecordsInserted)
	}
	if result.MonthsUnmatched != 1 {
		t.Errorf("months unmatched = %d, want 1", result.MonthsUnmatched)
	}
	if result.LinksDissolved != 1 {
		t.Errorf("links dissolved = %d, want 1", result.LinksDissolved)
	}

	promoted, err := utils.FetchSingleModel[models.ContractChange](ctx, change.ID)
	if err != nil {
		t.Fatalf("reload change: %v", err)
	}
	if promoted.Status != models.ChangeStatusApproved {
		t.Errorf("change status = %s, want approved", promoted.Status)
	}
	if promoted.ApprovalDate == nil {
		t.Error("approval date not stamped")
	}

	// The baked deltas must move the baseline series: March and April carry
	// the seeded forecast plus the promoted delta, actual months are untouched.
	summary, err := models.GetMonthlySummary(ctx, contract.ID)
	if err != nil {
		t.Fatalf("reload summary: %v", err)
	}
	if len(summary) != 4 {
		t.Fatalf("summary rows = %d, want 4", len(summary))
	}
	wantRevenue := map[string]int64{
		"2025-01-01": 1000, "2025-02-01": 1000,
		"2025-03-01": 3000, "2025-04-01": 4000,
	}
	wantCost := map[string]int64{
		"2025-01-01": 800, "2025-02-01": 800,
		"2025-03-01": 2300, "2025-04-01": 3300,
	}
	for _, row := range summary {
		if !row.Revenue.Equal(decimal.NewFromInt(wantRevenue[row.PeriodMonth])) {
			t.Errorf("month %s revenue = %s, want %d", row.PeriodMonth, row.Revenue, wantRevenue[row.PeriodMonth])
		}
		if !row.Cost.Equal(decimal.NewFromInt(wantCost[row.PeriodMonth])) {
			t.Errorf("month %s cost = %s, want %d", row.PeriodMonth, row.Cost, wantCost[row.PeriodMonth])
		}
	}

	// Folding must collapse onto the existing forecast row, not add a second
	// one next to it.
	periods, err := models.GetContractPeriods(ctx, contract.ID)
	if err != nil {
		t.Fatalf("reload periods: %v", err)
	}
	for _, period := range periods {
		if !period.PeriodMonth.Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)) {
			continue
		}
		forecasts := 0
		for _, rec := range period.Revenues {
			if rec.RevenueType == models.RecordKindForecast {
				forecasts++
			}
		}
		if forecasts != 1 {
			t.Errorf("march forecast revenue rows = %d, want 1", forecasts)
		}
		if rec := period.AuthoritativeRevenue(); rec == nil || !rec.Amount.Equal(decimal.NewFromInt(3000)) {
			t.Errorf("march authoritative revenue = %v, want 3000", rec)
		}
	}

	// Promoting the dissolved scenario again must refuse, not double-post.
	if _, err := workflow.PromoteScenario(ctx, nil, scenario.ID); err == nil {
		t.Fatal("second promotion should fail on the empty bundle")
	} else if !utils.IsValidationError(err) {
		t.Errorf("second promotion should be a validation rejection, got %v", err)
	}

	// Re-linking the already-approved change and promoting must also refuse.
	if err := models.LinkScenarioChange(ctx, scenario.ID, change.ID); err == nil {
		if _, err := workflow.PromoteScenario(ctx, nil, scenario.ID); err == nil {
			t.Fatal("promoting an approved change should fail")
		}
	}
}

func TestGenerateForecastNegativeSpread(t *testing.T) {
	requireIntegrationDB(t)
	ctx := context.Background()

	contract := seedContract(t, ctx,
		[]string{"2025-01-01", "2025-02-01", "2025-03-01", "2025-04-01"}, 2)

	// A negative remaining amount is a legitimate cost-reduction spread,
	// not a validation failure.
	result, err := workflow.GenerateForecast(ctx, nil, &workflow.GenerateForecastInput{
		ContractId:  contract.ID,
		TargetLine:  models.ForecastTargetRevenue,
		Method:      models.ForecastMethodFlatSpread,
		TotalAmount: decimal.NewFromInt(-1000),
	})
	if err != nil {
		t.Fatalf("negative spread rejected: %v", err)
	}
	if result.PeriodsWritten != 2 {
		t.Errorf("periods written = %d, want 2", result.PeriodsWritten)
	}
	if !result.MonthlyAmount.Equal(decimal.NewFromInt(-500)) {
		t.Errorf("monthly amount = %s, want -500", result.MonthlyAmount)
	}
}

func TestSplitLifecycle(t *testing.T) {
	requireIntegrationDB(t)
	ctx := context.Background()

	contract := seedContract(t, ctx,
		[]string{"2025-01-01", "2025-02-01", "2025-03-01", "2025-04-01"}, 4)

	// Move the boundary back: only January and February stay actual.
	result, err := workflow.SplitActualsForecast(ctx, nil, &workflow.SplitActualsForecastInput{
		ContractId:  contract.ID,
		CutoffMonth: "2025-02-01",
	})
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if result.RevenuesReclassified != 2 || result.CostsReclassified != 2 {
		t.Errorf("reclassified revenues=%d costs=%d, want 2 and 2",
			result.RevenuesReclassified, result.CostsReclassified)
	}

	periods, err := models.GetContractPeriods(ctx, contract.ID)
	if err != nil {
		t.Fatalf("reload periods: %v", err)
	}
	for _, period := range periods {
		rec := period.AuthoritativeRevenue()
		if rec == nil {
			t.Fatalf("period %s lost its revenue record", period.PeriodMonth)
		}
		wantActual := !period.PeriodMonth.After(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))
		gotActual := rec.RevenueType == models.RecordKindActual
		if wantActual != gotActual {
			t.Errorf("period %s kind = %s, wrong side of the cutoff",
				period.PeriodMonth.Format("2006-01-02"), rec.RevenueType)
		}
	}

	// Rerunning with the same cutoff is a no-op.
	again, err := workflow.SplitActualsForecast(ctx, nil, &workflow.SplitActualsForecastInput{
		ContractId:  contract.ID,
		CutoffMonth: "2025-02-01",
	})
	if err != nil {
		t.Fatalf("second split: %v", err)
	}
	if again.RevenuesReclassified != 0 || again.CostsReclassified != 0 {
		t.Errorf("second split moved records: revenues=%d costs=%d",
			again.RevenuesReclassified, again.CostsReclassified)
	}
}
