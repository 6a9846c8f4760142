package workflow

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/cvr_backend/config"
	"bitbucket.org/mmdatafocus/cvr_backend/models"
	"bitbucket.org/mmdatafocus/cvr_backend/models/reports"
	"bitbucket.org/mmdatafocus/cvr_backend/utils"
	"github.com/bsm/redislock"
)

type PromoteScenarioResult struct {
	ChangesApproved int `json:"changes_approved"`
	RecordsInserted int `json:"records_inserted"`
	MonthsUnmatched int `json:"months_unmatched"`
	LinksDissolved  int `json:"links_dissolved"`
}

// PromoteScenario commits a what-if bundle into the contract's working
// forecast. Every linked change is approved, its resolved per-month deltas
// are folded into the forecast records of the matching periods, and the scenario's
// links are dissolved so the bundle cannot be promoted twice. The whole
// promotion runs in one transaction; a change that is no longer in proposed
// status aborts it, which is what makes a concurrent or repeated promotion a
// no-op instead of a double posting. Deltas on months the contract has no
// period for are dropped, counted, and logged.
func PromoteScenario(ctx context.Context, cache *reports.SeriesCache, scenarioId int) (*PromoteScenarioResult, error) {
	logger := config.GetLogger()

	scenario, err := utils.FetchSingleModel[models.ContractScenario](ctx, scenarioId)
	if err != nil {
		return nil, err
	}

	// Redis lock is a best-effort shield against two operators promoting at
	// once; the proposed-status precondition below is the real guard.
	if redisLock := config.GetRedisLock(); redisLock == nil {
		logger.Warn("redis lock not ready; promoting without redis lock")
	} else {
		lock, err := redisLock.Obtain(ctx, fmt.Sprintf("promote:contract:%d", scenario.ContractId), 30*time.Second, nil)
		if err == redislock.ErrNotObtained {
			return nil, utils.NewValidationError("another promotion is already running for this contract")
		} else if err != nil {
			config.LogError(logger, "scenarioPromotionWorkflow.go", "PromoteScenario", "Obtain lock", scenario.ContractId, err)
		} else {
			defer lock.Release(ctx)
		}
	}

	changes, err := models.GetScenarioChanges(ctx, scenarioId)
	if err != nil {
		config.LogError(logger, "scenarioPromotionWorkflow.go", "PromoteScenario", "GetScenarioChanges", scenarioId, err)
		return nil, err
	}
	if len(changes) == 0 {
		return nil, utils.NewValidationError("scenario has no linked changes to promote")
	}
	for _, change := range changes {
		if change.Status != models.ChangeStatusProposed {
			return nil, utils.NewValidationError(
				fmt.Sprintf("change %s is %s, only proposed changes can be promoted", change.ChangeCode, change.Status))
		}
	}

	periods, err := models.GetContractPeriods(ctx, scenario.ContractId)
	if err != nil {
		config.LogError(logger, "scenarioPromotionWorkflow.go", "PromoteScenario", "GetContractPeriods", scenario.ContractId, err)
		return nil, err
	}
	periodByMonth := map[string]int{}
	for _, period := range periods {
		periodByMonth[utils.TruncateToMonth(period.PeriodMonth).Format(utils.PeriodMonthLayout)] = period.ID
	}

	perChange := make([]map[string]reports.PeriodImpact, 0, len(changes))
	for _, change := range changes {
		perChange = append(perChange, reports.ResolveChangeImpacts(change))
	}
	impacts := reports.AccumulateImpacts(perChange...)

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	result := PromoteScenarioResult{}
	now := time.Now()
	for _, change := range changes {
		res := tx.
			Model(&models.ContractChange{}).
			Where("id = ? AND status = ?", change.ID, models.ChangeStatusProposed).
			Updates(map[string]interface{}{
				"status":        models.ChangeStatusApproved,
				"approval_date": now,
			})
		if res.Error != nil {
			tx.Rollback()
			config.LogError(logger, "scenarioPromotionWorkflow.go", "PromoteScenario", "approve change", change.ID, res.Error)
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			// Lost a race with another writer between the precondition check
			// and the update.
			tx.Rollback()
			return nil, utils.NewValidationError(
				fmt.Sprintf("change %s was modified while promoting, promotion aborted", change.ChangeCode))
		}
		result.ChangesApproved++
	}

	for month, impact := range impacts {
		periodId, ok := periodByMonth[month]
		if !ok {
			result.MonthsUnmatched++
			config.LogDataQuality(logger, "scenarioPromotionWorkflow.go", "PromoteScenario",
				"impact month has no contract period, delta dropped", month)
			continue
		}
		// Fold each delta into the period's single authoritative forecast
		// record. Readers keep at most one forecast row per line, so a bare
		// insert next to an existing forecast row would never surface in the
		// summary series; delete-then-insert of (existing + delta) keeps the
		// table clean and the baked amount visible.
		if !impact.Revenue.IsZero() {
			var existing []models.ContractRevenue
			err := tx.
				Where("contract_period_id = ? AND revenue_type = ?", periodId, models.RecordKindForecast).
				Order("id ASC").
				Find(&existing).Error
			if err != nil {
				tx.Rollback()
				config.LogError(logger, "scenarioPromotionWorkflow.go", "PromoteScenario", "load revenue forecast", month, err)
				return nil, err
			}
			amount := impact.Revenue
			if len(existing) > 0 {
				amount = amount.Add(existing[0].Amount)
				err = tx.
					Where("contract_period_id = ? AND revenue_type = ?", periodId, models.RecordKindForecast).
					Delete(&models.ContractRevenue{}).Error
				if err != nil {
					tx.Rollback()
					config.LogError(logger, "scenarioPromotionWorkflow.go", "PromoteScenario", "replace revenue forecast", month, err)
					return nil, err
				}
			}
			err = tx.Create(&models.ContractRevenue{
				ContractPeriodId: periodId,
				RevenueType:      models.RecordKindForecast,
				Amount:           amount,
			}).Error
			if err != nil {
				tx.Rollback()
				config.LogError(logger, "scenarioPromotionWorkflow.go", "PromoteScenario", "insert revenue delta", month, err)
				return nil, err
			}
			result.RecordsInserted++
		}
		if !impact.Cost.IsZero() {
			var existing []models.ContractCost
			err := tx.
				Where("contract_period_id = ? AND category_id = ? AND cost_type = ?", periodId, 0, models.RecordKindForecast).
				Order("id ASC").
				Find(&existing).Error
			if err != nil {
				tx.Rollback()
				config.LogError(logger, "scenarioPromotionWorkflow.go", "PromoteScenario", "load cost forecast", month, err)
				return nil, err
			}
			amount := impact.Cost
			if len(existing) > 0 {
				amount = amount.Add(existing[0].Amount)
				err = tx.
					Where("contract_period_id = ? AND category_id = ? AND cost_type = ?", periodId, 0, models.RecordKindForecast).
					Delete(&models.ContractCost{}).Error
				if err != nil {
					tx.Rollback()
					config.LogError(logger, "scenarioPromotionWorkflow.go", "PromoteScenario", "replace cost forecast", month, err)
					return nil, err
				}
			}
			err = tx.Create(&models.ContractCost{
				ContractPeriodId: periodId,
				CostType:         models.RecordKindForecast,
				Amount:           amount,
			}).Error
			if err != nil {
				tx.Rollback()
				config.LogError(logger, "scenarioPromotionWorkflow.go", "PromoteScenario", "insert cost delta", month, err)
				return nil, err
			}
			result.RecordsInserted++
		}
	}

	res := tx.Where("scenario_id = ?", scenarioId).Delete(&models.ContractScenarioChange{})
	if res.Error != nil {
		tx.Rollback()
		config.LogError(logger, "scenarioPromotionWorkflow.go", "PromoteScenario", "dissolve links", scenarioId, res.Error)
		return nil, res.Error
	}
	result.LinksDissolved = int(res.RowsAffected)

	if err := tx.Commit().Error; err != nil {
		config.LogError(logger, "scenarioPromotionWorkflow.go", "PromoteScenario", "Commit", scenarioId, err)
		return nil, err
	}

	if err := cache.InvalidateContract(scenario.ContractId); err != nil {
		config.LogError(logger, "scenarioPromotionWorkflow.go", "PromoteScenario", "InvalidateContract", scenario.ContractId, err)
	}
	return &result, nil
}
