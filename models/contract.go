package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/cvr_backend/config"
	"bitbucket.org/mmdatafocus/cvr_backend/utils"
	"github.com/shopspring/decimal"
)

type Contract struct {
	ID              int             `gorm:"primary_key" json:"id"`
	ContractCode    string          `gorm:"size:64;not null;uniqueIndex" json:"contract_code"`
	Name            string          `gorm:"size:255;not null" json:"name"`
	CustomerName    string          `gorm:"size:255" json:"customer_name"`
	StartDate       time.Time       `json:"start_date"`
	EndDate         time.Time       `json:"end_date"`
	OriginalValue   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"original_value"`
	TargetMarginPct decimal.Decimal `gorm:"type:decimal(8,4);default:0" json:"target_margin_pct"`
	Status          ContractStatus  `gorm:"type:enum('draft','active','on_hold','closed');default:'draft'" json:"status"`
	BusinessUnit    string          `gorm:"size:128" json:"business_unit"`
	Sector          string          `gorm:"size:128" json:"sector"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewContract struct {
	ContractCode    string          `json:"contract_code" binding:"required"`
	Name            string          `json:"name" binding:"required"`
	CustomerName    string          `json:"customer_name"`
	StartDate       time.Time       `json:"start_date" binding:"required"`
	EndDate         time.Time       `json:"end_date" binding:"required"`
	OriginalValue   decimal.Decimal `json:"original_value"`
	TargetMarginPct decimal.Decimal `json:"target_margin_pct"`
	Status          ContractStatus  `json:"status"`
	BusinessUnit    string          `json:"business_unit"`
	Sector          string          `json:"sector"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewContract) validate(ctx context.Context, id int) error {
	if input.Status == "" {
		input.Status = ContractStatusDraft
	}
	if !input.Status.Valid() {
		return utils.NewValidationError("invalid contract status")
	}
	if input.EndDate.Before(input.StartDate) {
		return utils.NewValidationError("end date must not be before start date")
	}
	if err := utils.ValidateUnique[Contract](ctx, "contract_code", input.ContractCode, id); err != nil {
		return err
	}
	return nil
}

func (input *NewContract) toModel(id int) Contract {
	return Contract{
		ID:              id,
		ContractCode:    input.ContractCode,
		Name:            input.Name,
		CustomerName:    input.CustomerName,
		StartDate:       input.StartDate,
		EndDate:         input.EndDate,
		OriginalValue:   input.OriginalValue,
		TargetMarginPct: input.TargetMarginPct,
		Status:          input.Status,
		BusinessUnit:    input.BusinessUnit,
		Sector:          input.Sector,
	}
}

func CreateContract(ctx context.Context, input *NewContract) (*Contract, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	contract := input.toModel(0)

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&contract).Error; err != nil {
		return nil, err
	}
	return &contract, nil
}

func UpdateContract(ctx context.Context, id int, input *NewContract) (*Contract, error) {
	if _, err := utils.FetchSingleModel[Contract](ctx, id); err != nil {
		return nil, err
	}
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	contract := input.toModel(id)

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&Contract{ID: id}).Updates(map[string]interface{}{
		"contract_code":     contract.ContractCode,
		"name":              contract.Name,
		"customer_name":     contract.CustomerName,
		"start_date":        contract.StartDate,
		"end_date":          contract.EndDate,
		"original_value":    contract.OriginalValue,
		"target_margin_pct": contract.TargetMarginPct,
		"status":            contract.Status,
		"business_unit":     contract.BusinessUnit,
		"sector":            contract.Sector,
	}).Error; err != nil {
		return nil, err
	}
	return &contract, nil
}

// DeleteContract removes a contract and everything hanging off it: periods
// with their revenue/cost records, changes with their impact rows, scenarios
// with their links. One transaction; any failure rolls the whole thing back.
func DeleteContract(ctx context.Context, id int) error {
	if _, err := utils.FetchSingleModel[Contract](ctx, id); err != nil {
		return err
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()

	if err := tx.Where("contract_period_id IN (?)",
		tx.Model(&ContractPeriod{}).Select("id").Where("contract_id = ?", id),
	).Delete(&ContractRevenue{}).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Where("contract_period_id IN (?)",
		tx.Model(&ContractPeriod{}).Select("id").Where("contract_id = ?", id),
	).Delete(&ContractCost{}).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Where("contract_id = ?", id).Delete(&ContractPeriod{}).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Where("contract_change_id IN (?)",
		tx.Model(&ContractChange{}).Select("id").Where("contract_id = ?", id),
	).Delete(&ContractChangeImpact{}).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Where("scenario_id IN (?)",
		tx.Model(&ContractScenario{}).Select("id").Where("contract_id = ?", id),
	).Delete(&ContractScenarioChange{}).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Where("contract_id = ?", id).Delete(&ContractChange{}).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Where("contract_id = ?", id).Delete(&ContractScenario{}).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Delete(&Contract{ID: id}).Error; err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

func GetContract(ctx context.Context, id int) (*Contract, error) {
	return utils.FetchSingleModel[Contract](ctx, id)
}

func GetContracts(ctx context.Context) ([]*Contract, error) {
	db := config.GetDB()
	var contracts []*Contract
	if err := db.WithContext(ctx).Order("contract_code ASC").Find(&contracts).Error; err != nil {
		return nil, err
	}
	return contracts, nil
}
