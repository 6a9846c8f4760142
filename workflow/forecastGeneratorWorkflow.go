package workflow

import (
	"context"

	"bitbucket.org/mmdatafocus/cvr_backend/config"
	"bitbucket.org/mmdatafocus/cvr_backend/models"
	"bitbucket.org/mmdatafocus/cvr_backend/models/reports"
	"bitbucket.org/mmdatafocus/cvr_backend/utils"
	"github.com/shopspring/decimal"
)

// runRateWindow caps how many trailing actual months feed the run-rate
// average.
const runRateWindow = 3

type GenerateForecastInput struct {
	ContractId     int                       `json:"contract_id" binding:"required"`
	TargetLine     models.ForecastTargetLine `json:"target_line" binding:"required"`
	Method         models.ForecastMethod     `json:"method" binding:"required"`
	TotalAmount    decimal.Decimal           `json:"total_amount"`
	CostCategoryId int                       `json:"cost_category_id"`
}

type GenerateForecastResult struct {
	MonthlyAmount  decimal.Decimal `json:"monthly_amount"`
	PeriodsWritten int             `json:"periods_written"`
}

// FlatSpreadAmount divides a lump sum evenly across the remaining forecast
// months.
func FlatSpreadAmount(total decimal.Decimal, futureCount int) decimal.Decimal {
	if futureCount <= 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(int64(futureCount)))
}

// RunRateAmount averages the most recent actual amounts, newest last in the
// slice, using at most `window` of them. No actuals means a zero run rate.
func RunRateAmount(actuals []decimal.Decimal, window int) decimal.Decimal {
	if len(actuals) == 0 || window <= 0 {
		return decimal.Zero
	}
	if len(actuals) > window {
		actuals = actuals[len(actuals)-window:]
	}
	sum := decimal.Zero
	for _, amount := range actuals {
		sum = sum.Add(amount)
	}
	return sum.Div(decimal.NewFromInt(int64(len(actuals))))
}

// GenerateForecast recomputes the forecast records of one line (total revenue
// or one cost category) across every future period of a contract. All
// validation happens before the first write; the replacement itself is a
// delete-then-insert per period inside one transaction, so a rerun with the
// same inputs lands on the same state.
func GenerateForecast(ctx context.Context, cache *reports.SeriesCache, input *GenerateForecastInput) (*GenerateForecastResult, error) {
	logger := config.GetLogger()

	if !input.Method.Valid() {
		return nil, utils.NewValidationError("method must be flat_spread or run_rate")
	}
	if !input.TargetLine.Valid() {
		return nil, utils.NewValidationError("target_line must be revenue or cost")
	}
	if err := utils.ValidateResourceId[models.Contract](ctx, input.ContractId); err != nil {
		return nil, err
	}
	if input.TargetLine == models.ForecastTargetCost {
		if input.CostCategoryId == 0 {
			return nil, utils.NewValidationError("cost_category_id is required for the cost line")
		}
		if err := utils.ValidateResourceId[models.CostCategory](ctx, input.CostCategoryId); err != nil {
			return nil, err
		}
	}
	periods, err := models.GetContractPeriods(ctx, input.ContractId)
	if err != nil {
		config.LogError(logger, "forecastGeneratorWorkflow.go", "GenerateForecast", "GetContractPeriods", input.ContractId, err)
		return nil, err
	}

	var future []*models.ContractPeriod
	var pastAmounts []decimal.Decimal
	for _, period := range periods {
		if period.IsFuture() {
			future = append(future, period)
			continue
		}
		switch input.TargetLine {
		case models.ForecastTargetRevenue:
			if rec := period.AuthoritativeRevenue(); rec != nil && rec.RevenueType == models.RecordKindActual {
				pastAmounts = append(pastAmounts, rec.Amount)
			}
		case models.ForecastTargetCost:
			if rec := period.AuthoritativeCost(input.CostCategoryId); rec != nil && rec.CostType == models.RecordKindActual {
				pastAmounts = append(pastAmounts, rec.Amount)
			}
		}
	}
	if len(future) == 0 {
		return nil, utils.NewValidationError("contract has no future periods to forecast")
	}

	var monthly decimal.Decimal
	switch input.Method {
	case models.ForecastMethodFlatSpread:
		monthly = FlatSpreadAmount(input.TotalAmount, len(future))
	case models.ForecastMethodRunRate:
		monthly = RunRateAmount(pastAmounts, runRateWindow)
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	for _, period := range future {
		if input.TargetLine == models.ForecastTargetRevenue {
			err = tx.
				Where("contract_period_id = ? AND revenue_type = ?", period.ID, models.RecordKindForecast).
				Delete(&models.ContractRevenue{}).Error
			if err == nil {
				err = tx.Create(&models.ContractRevenue{
					ContractPeriodId: period.ID,
					RevenueType:      models.RecordKindForecast,
					Amount:           monthly,
				}).Error
			}
		} else {
			err = tx.
				Where("contract_period_id = ? AND category_id = ? AND cost_type = ?", period.ID, input.CostCategoryId, models.RecordKindForecast).
				Delete(&models.ContractCost{}).Error
			if err == nil {
				err = tx.Create(&models.ContractCost{
					ContractPeriodId: period.ID,
					CategoryId:       input.CostCategoryId,
					CostType:         models.RecordKindForecast,
					Amount:           monthly,
				}).Error
			}
		}
		if err != nil {
			tx.Rollback()
			config.LogError(logger, "forecastGeneratorWorkflow.go", "GenerateForecast", "replace forecast record", period.ID, err)
			return nil, err
		}
	}
	if err := tx.Commit().Error; err != nil {
		config.LogError(logger, "forecastGeneratorWorkflow.go", "GenerateForecast", "Commit", input.ContractId, err)
		return nil, err
	}

	if err := cache.InvalidateContract(input.ContractId); err != nil {
		config.LogError(logger, "forecastGeneratorWorkflow.go", "GenerateForecast", "InvalidateContract", input.ContractId, err)
	}

	return &GenerateForecastResult{
		MonthlyAmount:  monthly,
		PeriodsWritten: len(future),
	}, nil
}
