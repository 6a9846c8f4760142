package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/cvr_backend/config"
	"bitbucket.org/mmdatafocus/cvr_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ContractChange is a proposed adjustment to a contract's financials. Its
// effect is expressed either as month-by-month impact rows or, when none
// exist, as the headline deltas applied at the effective month. When impact
// rows exist they are authoritative and the headline deltas are informational
// only.
type ContractChange struct {
	ID                       int              `gorm:"primary_key" json:"id"`
	ContractId               int              `gorm:"index;not null" json:"contract_id"`
	ChangeCode               string           `gorm:"size:64;not null" json:"change_code"`
	Title                    string           `gorm:"size:255" json:"title"`
	Description              string           `gorm:"type:text" json:"description"`
	ChangeType               ChangeType       `gorm:"type:enum('scope_addition','scope_reduction','variation','claim');default:'variation'" json:"change_type"`
	Status                   ChangeStatus     `gorm:"type:enum('proposed','approved','rejected','implemented');default:'proposed';index" json:"status"`
	RevenueDelta             decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"revenue_delta"`
	CostDelta                decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"cost_delta"`
	EffectiveDate            *time.Time       `gorm:"type:date" json:"effective_date"`
	RiskRating               string           `gorm:"size:32" json:"risk_rating"`
	CustomerApprovalReceived *bool            `gorm:"not null;default:false" json:"customer_approval_received"`
	ApprovalDate             *time.Time       `json:"approval_date"`

	Impacts []ContractChangeImpact `gorm:"foreignKey:ContractChangeId" json:"impacts"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ContractChangeImpact is one month-specific revenue/cost contribution of a
// change. Rows are owned by their change and replaced as a unit on every
// edit; there is no partial update path.
type ContractChangeImpact struct {
	ID               int             `gorm:"primary_key" json:"id"`
	ContractChangeId int             `gorm:"index;not null" json:"contract_change_id"`
	PeriodMonth      time.Time       `gorm:"type:date;not null" json:"period_month"`
	RevenueDelta     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"revenue_delta"`
	CostDelta        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"cost_delta"`
	CostCategoryId   int             `gorm:"index" json:"cost_category_id"`
	IsScenarioOnly   *bool           `gorm:"not null;default:false" json:"is_scenario_only"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewContractChange struct {
	ContractId               int             `json:"contract_id" binding:"required"`
	ChangeCode               string          `json:"change_code" binding:"required"`
	Title                    string          `json:"title"`
	Description              string          `json:"description"`
	ChangeType               ChangeType      `json:"change_type"`
	Status                   ChangeStatus    `json:"status"`
	RevenueDelta             decimal.Decimal `json:"revenue_delta"`
	CostDelta                decimal.Decimal `json:"cost_delta"`
	EffectiveDate            string          `json:"effective_date"`
	RiskRating               string          `json:"risk_rating"`
	CustomerApprovalReceived bool            `json:"customer_approval_received"`

	Impacts []NewChangeImpact `json:"impacts"`
}

type NewChangeImpact struct {
	PeriodMonth    string          `json:"period_month" binding:"required"`
	RevenueDelta   decimal.Decimal `json:"revenue_delta"`
	CostDelta      decimal.Decimal `json:"cost_delta"`
	CostCategoryId int             `json:"cost_category_id"`
	IsScenarioOnly bool            `json:"is_scenario_only"`
}

func (input *NewContractChange) validate(ctx context.Context) error {
	if err := utils.ValidateResourceId[Contract](ctx, input.ContractId); err != nil {
		return err
	}
	if input.ChangeType == "" {
		input.ChangeType = ChangeTypeVariation
	}
	if !input.ChangeType.Valid() {
		return utils.NewValidationError("invalid change type")
	}
	if input.Status == "" {
		input.Status = ChangeStatusProposed
	}
	if !input.Status.Valid() {
		return utils.NewValidationError("invalid change status")
	}
	for _, imp := range input.Impacts {
		if _, ok := utils.ParsePeriodMonth(imp.PeriodMonth); !ok {
			return utils.NewValidationError("impact period_month is not a valid date: " + imp.PeriodMonth)
		}
		if imp.CostCategoryId != 0 {
			if err := utils.ValidateResourceId[CostCategory](ctx, imp.CostCategoryId); err != nil {
				return utils.NewValidationError("impact cost category not found")
			}
		}
	}
	return nil
}

// checkHeadlineConsistency compares headline deltas with summed impact rows.
// A mismatch is a data-quality warning, not an error: with impact rows
// present the headline figures are reference only.
func (input *NewContractChange) checkHeadlineConsistency(logger *logrus.Logger) {
	if len(input.Impacts) == 0 {
		return
	}
	sumRev := decimal.Zero
	sumCost := decimal.Zero
	for _, imp := range input.Impacts {
		sumRev = sumRev.Add(imp.RevenueDelta)
		sumCost = sumCost.Add(imp.CostDelta)
	}
	if !sumRev.Equal(input.RevenueDelta) || !sumCost.Equal(input.CostDelta) {
		config.LogDataQuality(logger, "contractChange.go", "checkHeadlineConsistency",
			"headline deltas differ from summed impact rows", map[string]string{
				"change_code":      input.ChangeCode,
				"headline_revenue": input.RevenueDelta.String(),
				"impacts_revenue":  sumRev.String(),
				"headline_cost":    input.CostDelta.String(),
				"impacts_cost":     sumCost.String(),
			})
	}
}

func (input *NewContractChange) toModel(id int) ContractChange {
	approval := input.CustomerApprovalReceived
	change := ContractChange{
		ID:                       id,
		ContractId:               input.ContractId,
		ChangeCode:               input.ChangeCode,
		Title:                    input.Title,
		Description:              input.Description,
		ChangeType:               input.ChangeType,
		Status:                   input.Status,
		RevenueDelta:             input.RevenueDelta,
		CostDelta:                input.CostDelta,
		RiskRating:               input.RiskRating,
		CustomerApprovalReceived: &approval,
	}
	if t, ok := utils.ParsePeriodMonth(input.EffectiveDate); ok {
		// keep the day the user entered where possible; only the month
		// matters for impact resolution
		if raw, err := time.Parse("2006-01-02", input.EffectiveDate); err == nil {
			change.EffectiveDate = &raw
		} else {
			change.EffectiveDate = &t
		}
	}
	return change
}

func (input *NewContractChange) impactRows(changeId int) []ContractChangeImpact {
	rows := make([]ContractChangeImpact, 0, len(input.Impacts))
	for _, imp := range input.Impacts {
		month, ok := utils.ParsePeriodMonth(imp.PeriodMonth)
		if !ok {
			continue // rejected by validate already
		}
		scenarioOnly := imp.IsScenarioOnly
		rows = append(rows, ContractChangeImpact{
			ContractChangeId: changeId,
			PeriodMonth:      month,
			RevenueDelta:     imp.RevenueDelta,
			CostDelta:        imp.CostDelta,
			CostCategoryId:   imp.CostCategoryId,
			IsScenarioOnly:   &scenarioOnly,
		})
	}
	return rows
}

func CreateContractChange(ctx context.Context, logger *logrus.Logger, input *NewContractChange) (*ContractChange, error) {
	if err := input.validate(ctx); err != nil {
		return nil, err
	}
	input.checkHeadlineConsistency(logger)

	change := input.toModel(0)

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()

	if err := tx.Create(&change).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	rows := input.impactRows(change.ID)
	if len(rows) > 0 {
		if err := tx.Create(&rows).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	change.Impacts = rows
	return &change, nil
}

// UpdateContractChange rewrites the change header and replaces its impact
// rows as a unit: delete all, insert the new set. No partial update.
func UpdateContractChange(ctx context.Context, logger *logrus.Logger, id int, input *NewContractChange) (*ContractChange, error) {
	if _, err := utils.FetchSingleModel[ContractChange](ctx, id); err != nil {
		return nil, err
	}
	if err := input.validate(ctx); err != nil {
		return nil, err
	}
	input.checkHeadlineConsistency(logger)

	change := input.toModel(id)

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()

	if err := tx.Model(&ContractChange{ID: id}).Updates(map[string]interface{}{
		"change_code":                change.ChangeCode,
		"title":                      change.Title,
		"description":                change.Description,
		"change_type":                change.ChangeType,
		"status":                     change.Status,
		"revenue_delta":              change.RevenueDelta,
		"cost_delta":                 change.CostDelta,
		"effective_date":             change.EffectiveDate,
		"risk_rating":                change.RiskRating,
		"customer_approval_received": *change.CustomerApprovalReceived,
	}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Where("contract_change_id = ?", id).Delete(&ContractChangeImpact{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	rows := input.impactRows(id)
	if len(rows) > 0 {
		if err := tx.Create(&rows).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	change.Impacts = rows
	return &change, nil
}

func DeleteContractChange(ctx context.Context, id int) error {
	if _, err := utils.FetchSingleModel[ContractChange](ctx, id); err != nil {
		return err
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if err := tx.Where("contract_change_id = ?", id).Delete(&ContractChangeImpact{}).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Where("contract_change_id = ?", id).Delete(&ContractScenarioChange{}).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Delete(&ContractChange{ID: id}).Error; err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

// GetContractChanges lists a contract's changes with their impact rows,
// optionally filtered by status.
func GetContractChanges(ctx context.Context, contractId int, status *ChangeStatus) ([]*ContractChange, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Preload("Impacts").Where("contract_id = ?", contractId)
	if status != nil {
		dbCtx = dbCtx.Where("status = ?", *status)
	}
	var changes []*ContractChange
	if err := dbCtx.Order("change_code ASC").Find(&changes).Error; err != nil {
		return nil, err
	}
	return changes, nil
}
