package workflow

import (
	"context"

	"bitbucket.org/mmdatafocus/cvr_backend/config"
	"bitbucket.org/mmdatafocus/cvr_backend/models"
	"bitbucket.org/mmdatafocus/cvr_backend/models/reports"
	"bitbucket.org/mmdatafocus/cvr_backend/utils"
)

type SplitActualsForecastInput struct {
	ContractId  int    `json:"contract_id" binding:"required"`
	CutoffMonth string `json:"cutoff_month" binding:"required"`
}

type SplitActualsForecastResult struct {
	RevenuesReclassified int64 `json:"revenues_reclassified"`
	CostsReclassified    int64 `json:"costs_reclassified"`
}

// SplitActualsForecast redraws the actual/forecast boundary of a contract at
// a cutoff month: every non-baseline revenue and cost record on or before the
// cutoff becomes an actual, everything after becomes a forecast. Both tables
// flip inside one transaction so a reader never sees a half-moved boundary.
// Baseline records keep their kind.
func SplitActualsForecast(ctx context.Context, cache *reports.SeriesCache, input *SplitActualsForecastInput) (*SplitActualsForecastResult, error) {
	logger := config.GetLogger()

	if err := utils.ValidateResourceId[models.Contract](ctx, input.ContractId); err != nil {
		return nil, err
	}
	cutoff, ok := utils.ParsePeriodMonth(input.CutoffMonth)
	if !ok {
		return nil, utils.NewValidationError("cutoff_month is not a valid date")
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	result := SplitActualsForecastResult{}
	steps := []struct {
		model      interface{}
		kindColumn string
		fromKind   models.RecordKind
		toKind     models.RecordKind
		onOrBefore bool
		counter    *int64
	}{
		{&models.ContractRevenue{}, "revenue_type", models.RecordKindForecast, models.RecordKindActual, true, &result.RevenuesReclassified},
		{&models.ContractRevenue{}, "revenue_type", models.RecordKindActual, models.RecordKindForecast, false, &result.RevenuesReclassified},
		{&models.ContractCost{}, "cost_type", models.RecordKindForecast, models.RecordKindActual, true, &result.CostsReclassified},
		{&models.ContractCost{}, "cost_type", models.RecordKindActual, models.RecordKindForecast, false, &result.CostsReclassified},
	}
	for _, step := range steps {
		boundary := "period_month > ?"
		if step.onOrBefore {
			boundary = "period_month <= ?"
		}
		periodIds := tx.
			Model(&models.ContractPeriod{}).
			Select("id").
			Where("contract_id = ?", input.ContractId).
			Where(boundary, cutoff)
		res := tx.
			Model(step.model).
			Where("contract_period_id IN (?)", periodIds).
			Where(step.kindColumn+" = ?", step.fromKind).
			Update(step.kindColumn, step.toKind)
		if res.Error != nil {
			tx.Rollback()
			config.LogError(logger, "actualsForecastSplitWorkflow.go", "SplitActualsForecast", "reclassify "+step.kindColumn, input, res.Error)
			return nil, res.Error
		}
		*step.counter += res.RowsAffected
	}
	if err := tx.Commit().Error; err != nil {
		config.LogError(logger, "actualsForecastSplitWorkflow.go", "SplitActualsForecast", "Commit", input.ContractId, err)
		return nil, err
	}

	if err := cache.InvalidateContract(input.ContractId); err != nil {
		config.LogError(logger, "actualsForecastSplitWorkflow.go", "SplitActualsForecast", "InvalidateContract", input.ContractId, err)
	}
	return &result, nil
}
