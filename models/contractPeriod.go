package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/cvr_backend/config"
	"bitbucket.org/mmdatafocus/cvr_backend/utils"
	"github.com/shopspring/decimal"
)

// ContractPeriod is one calendar month of a contract's financial ledger.
//
// Grain: (contract_id, period_month), period_month always the first of the
// month. A period carries zero or more revenue and cost records, each tagged
// with a RecordKind. Within a period, at most one actual and one forecast
// record per line is authoritative; actual takes precedence over forecast and
// any other duplicates are ignored by readers. Writers keep the table clean by
// deleting before inserting.
type ContractPeriod struct {
	ID          int       `gorm:"primary_key" json:"id"`
	ContractId  int       `gorm:"index:idx_period_contract_month,priority:1;not null" json:"contract_id"`
	PeriodMonth time.Time `gorm:"type:date;index:idx_period_contract_month,priority:2;not null" json:"period_month"`
	IsBaseline  *bool     `gorm:"not null;default:false" json:"is_baseline"`
	Version     int       `gorm:"default:1" json:"version"`

	Revenues []ContractRevenue `gorm:"foreignKey:ContractPeriodId" json:"revenues"`
	Costs    []ContractCost    `gorm:"foreignKey:ContractPeriodId" json:"costs"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type ContractRevenue struct {
	ID               int             `gorm:"primary_key" json:"id"`
	ContractPeriodId int             `gorm:"index;not null" json:"contract_period_id"`
	RevenueType      RecordKind      `gorm:"type:enum('actual','forecast','baseline');not null" json:"revenue_type"`
	Amount           decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type ContractCost struct {
	ID               int             `gorm:"primary_key" json:"id"`
	ContractPeriodId int             `gorm:"index;not null" json:"contract_period_id"`
	CategoryId       int             `gorm:"index" json:"category_id"`
	CostType         RecordKind      `gorm:"type:enum('actual','forecast','baseline');not null" json:"cost_type"`
	Amount           decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// AuthoritativeRevenue returns the period's best-known revenue record:
// actual wins over forecast, baseline rows and duplicates are ignored.
func (p *ContractPeriod) AuthoritativeRevenue() *ContractRevenue {
	var forecast *ContractRevenue
	for i := range p.Revenues {
		switch p.Revenues[i].RevenueType {
		case RecordKindActual:
			return &p.Revenues[i]
		case RecordKindForecast:
			if forecast == nil {
				forecast = &p.Revenues[i]
			}
		}
	}
	return forecast
}

// AuthoritativeCost returns the period's best-known cost record for one
// category, same precedence as AuthoritativeRevenue.
func (p *ContractPeriod) AuthoritativeCost(categoryId int) *ContractCost {
	var forecast *ContractCost
	for i := range p.Costs {
		if p.Costs[i].CategoryId != categoryId {
			continue
		}
		switch p.Costs[i].CostType {
		case RecordKindActual:
			return &p.Costs[i]
		case RecordKindForecast:
			if forecast == nil {
				forecast = &p.Costs[i]
			}
		}
	}
	return forecast
}

// IsFuture reports whether the period counts as a forecast month: its
// best-known revenue record is missing or not an actual.
func (p *ContractPeriod) IsFuture() bool {
	rev := p.AuthoritativeRevenue()
	return rev == nil || rev.RevenueType != RecordKindActual
}

type NewContractPeriod struct {
	ContractId  int    `json:"contract_id" binding:"required"`
	PeriodMonth string `json:"period_month" binding:"required"`
}

// CreateContractPeriod inserts an empty month into a contract's ledger.
// The month key is normalized to the first of the month before uniqueness
// is checked.
func CreateContractPeriod(ctx context.Context, input *NewContractPeriod) (*ContractPeriod, error) {
	if err := utils.ValidateResourceId[Contract](ctx, input.ContractId); err != nil {
		return nil, err
	}
	month, ok := utils.ParsePeriodMonth(input.PeriodMonth)
	if !ok {
		return nil, utils.NewValidationError("period_month is not a valid date")
	}
	count, err := utils.ResourceCountWhere[ContractPeriod](ctx, "contract_id = ? AND period_month = ?", input.ContractId, month)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, utils.NewValidationError("period already exists for that month")
	}

	isBaseline := false
	period := ContractPeriod{
		ContractId:  input.ContractId,
		PeriodMonth: month,
		IsBaseline:  &isBaseline,
		Version:     1,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&period).Error; err != nil {
		return nil, err
	}
	return &period, nil
}

// GetContractPeriods loads a contract's ledger months with their revenue and
// cost records, oldest first.
func GetContractPeriods(ctx context.Context, contractId int) ([]*ContractPeriod, error) {
	db := config.GetDB()
	var periods []*ContractPeriod
	err := db.WithContext(ctx).
		Preload("Revenues").
		Preload("Costs").
		Where("contract_id = ?", contractId).
		Order("period_month ASC").
		Find(&periods).Error
	if err != nil {
		return nil, err
	}
	return periods, nil
}
