package imports

import (
	"context"
	"fmt"
	"io"
	"strings"

	"bitbucket.org/mmdatafocus/cvr_backend/config"
	"bitbucket.org/mmdatafocus/cvr_backend/models"
	"bitbucket.org/mmdatafocus/cvr_backend/models/reports"
	"bitbucket.org/mmdatafocus/cvr_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

const importSheetName = "Sheet1"

// Expected columns, header row included:
//   A month (any accepted date layout)
//   B actual revenue
//   C actual cost
//   D cost category code (optional, blank maps to uncategorized)

type ImportResult struct {
	PeriodsCreated  int `json:"periods_created"`
	RecordsImported int `json:"records_imported"`
	RowsSkipped     int `json:"rows_skipped"`
}

func parseCellDecimal(cell string) (decimal.Decimal, error) {
	cell = strings.TrimSpace(strings.ReplaceAll(cell, ",", ""))
	if cell == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(cell)
}

func cellAt(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// ImportMonthlyActuals loads a spreadsheet of monthly actuals into one
// contract's ledger. Each data row becomes an actual revenue and an actual
// cost record on that month's period, creating the period when the ledger
// does not have it yet. Existing actuals on an imported month are replaced,
// not duplicated, so re-importing a corrected file is safe. Any malformed row
// aborts the import before the transaction commits.
func ImportMonthlyActuals(ctx context.Context, cache *reports.SeriesCache, contractId int, file io.Reader) (*ImportResult, error) {
	logger := config.GetLogger()

	if err := utils.ValidateResourceId[models.Contract](ctx, contractId); err != nil {
		return nil, err
	}

	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, utils.NewValidationError(fmt.Sprintf("unable to open workbook: %v", err))
	}
	defer f.Close()

	rows, err := f.GetRows(importSheetName)
	if err != nil {
		return nil, utils.NewValidationError(fmt.Sprintf("unable to read sheet %s: %v", importSheetName, err))
	}
	if len(rows) < 2 {
		return nil, utils.NewValidationError("workbook has no data rows")
	}

	categories, err := utils.FetchAllModels[models.CostCategory](ctx, "")
	if err != nil {
		config.LogError(logger, "actualsImport.go", "ImportMonthlyActuals", "FetchAllModels CostCategory", nil, err)
		return nil, err
	}
	categoryByCode := map[string]int{}
	for _, category := range categories {
		categoryByCode[strings.ToLower(category.Code)] = category.ID
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	result := ImportResult{}
	for idx, row := range rows[1:] {
		rowNum := idx + 2

		monthCell := cellAt(row, 0)
		if monthCell == "" {
			result.RowsSkipped++
			continue
		}
		month, ok := utils.ParsePeriodMonth(monthCell)
		if !ok {
			tx.Rollback()
			return nil, utils.NewValidationError(fmt.Sprintf("row %d: %q is not a valid month", rowNum, monthCell))
		}
		revenue, err := parseCellDecimal(cellAt(row, 1))
		if err != nil {
			tx.Rollback()
			return nil, utils.NewValidationError(fmt.Sprintf("row %d: could not parse revenue: %v", rowNum, err))
		}
		cost, err := parseCellDecimal(cellAt(row, 2))
		if err != nil {
			tx.Rollback()
			return nil, utils.NewValidationError(fmt.Sprintf("row %d: could not parse cost: %v", rowNum, err))
		}
		categoryId := 0
		if code := cellAt(row, 3); code != "" {
			categoryId, ok = categoryByCode[strings.ToLower(code)]
			if !ok {
				tx.Rollback()
				return nil, utils.NewValidationError(fmt.Sprintf("row %d: unknown cost category code %q", rowNum, code))
			}
		}

		var period models.ContractPeriod
		err = tx.Where("contract_id = ? AND period_month = ?", contractId, month).First(&period).Error
		if err == gorm.ErrRecordNotFound {
			isBaseline := false
			period = models.ContractPeriod{
				ContractId:  contractId,
				PeriodMonth: month,
				IsBaseline:  &isBaseline,
				Version:     1,
			}
			if err := tx.Create(&period).Error; err != nil {
				tx.Rollback()
				config.LogError(logger, "actualsImport.go", "ImportMonthlyActuals", "create period", monthCell, err)
				return nil, err
			}
			result.PeriodsCreated++
		} else if err != nil {
			tx.Rollback()
			config.LogError(logger, "actualsImport.go", "ImportMonthlyActuals", "find period", monthCell, err)
			return nil, err
		}

		err = tx.
			Where("contract_period_id = ? AND revenue_type = ?", period.ID, models.RecordKindActual).
			Delete(&models.ContractRevenue{}).Error
		if err == nil {
			err = tx.Create(&models.ContractRevenue{
				ContractPeriodId: period.ID,
				RevenueType:      models.RecordKindActual,
				Amount:           revenue,
			}).Error
		}
		if err != nil {
			tx.Rollback()
			config.LogError(logger, "actualsImport.go", "ImportMonthlyActuals", "replace actual revenue", monthCell, err)
			return nil, err
		}
		result.RecordsImported++

		err = tx.
			Where("contract_period_id = ? AND category_id = ? AND cost_type = ?", period.ID, categoryId, models.RecordKindActual).
			Delete(&models.ContractCost{}).Error
		if err == nil {
			err = tx.Create(&models.ContractCost{
				ContractPeriodId: period.ID,
				CategoryId:       categoryId,
				CostType:         models.RecordKindActual,
				Amount:           cost,
			}).Error
		}
		if err != nil {
			tx.Rollback()
			config.LogError(logger, "actualsImport.go", "ImportMonthlyActuals", "replace actual cost", monthCell, err)
			return nil, err
		}
		result.RecordsImported++
	}
	if err := tx.Commit().Error; err != nil {
		config.LogError(logger, "actualsImport.go", "ImportMonthlyActuals", "Commit", contractId, err)
		return nil, err
	}

	if err := cache.InvalidateContract(contractId); err != nil {
		config.LogError(logger, "actualsImport.go", "ImportMonthlyActuals", "InvalidateContract", contractId, err)
	}
	return &result, nil
}
