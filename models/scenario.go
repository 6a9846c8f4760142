package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/cvr_backend/config"
	"bitbucket.org/mmdatafocus/cvr_backend/utils"
)

// ContractScenario is a named, disposable bundle of proposed changes used to
// preview their combined effect. The scenario owns only its link set; the
// changes themselves live on independently. Promotion empties the link set
// and leaves the scenario record behind for reuse.
type ContractScenario struct {
	ID           int          `gorm:"primary_key" json:"id"`
	ContractId   int          `gorm:"index;not null" json:"contract_id"`
	Name         string       `gorm:"size:255;not null" json:"name"`
	ScenarioType ScenarioType `gorm:"type:enum('custom','best_case','worst_case');default:'custom'" json:"scenario_type"`
	Description  string       `gorm:"type:text" json:"description"`
	CreatedAt    time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

type ContractScenarioChange struct {
	ID               int       `gorm:"primary_key" json:"id"`
	ScenarioId       int       `gorm:"uniqueIndex:idx_scenario_change,priority:1;not null" json:"scenario_id"`
	ContractChangeId int       `gorm:"uniqueIndex:idx_scenario_change,priority:2;not null" json:"contract_change_id"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type NewContractScenario struct {
	ContractId   int          `json:"contract_id" binding:"required"`
	Name         string       `json:"name" binding:"required"`
	ScenarioType ScenarioType `json:"scenario_type"`
	Description  string       `json:"description"`
}

func CreateContractScenario(ctx context.Context, input *NewContractScenario) (*ContractScenario, error) {
	if err := utils.ValidateResourceId[Contract](ctx, input.ContractId); err != nil {
		return nil, err
	}
	if input.ScenarioType == "" {
		input.ScenarioType = ScenarioTypeCustom
	}
	if !input.ScenarioType.Valid() {
		return nil, utils.NewValidationError("invalid scenario type")
	}

	scenario := ContractScenario{
		ContractId:   input.ContractId,
		Name:         input.Name,
		ScenarioType: input.ScenarioType,
		Description:  input.Description,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&scenario).Error; err != nil {
		return nil, err
	}
	return &scenario, nil
}

func DeleteContractScenario(ctx context.Context, id int) error {
	if _, err := utils.FetchSingleModel[ContractScenario](ctx, id); err != nil {
		return err
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if err := tx.Where("scenario_id = ?", id).Delete(&ContractScenarioChange{}).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Delete(&ContractScenario{ID: id}).Error; err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

func GetContractScenarios(ctx context.Context, contractId int) ([]*ContractScenario, error) {
	db := config.GetDB()
	var scenarios []*ContractScenario
	err := db.WithContext(ctx).
		Where("contract_id = ?", contractId).
		Order("created_at DESC").
		Find(&scenarios).Error
	if err != nil {
		return nil, err
	}
	return scenarios, nil
}

// LinkScenarioChange bundles a change into a scenario. Only `proposed`
// changes may be bundled; anything already decided has no business in a
// what-if preview.
func LinkScenarioChange(ctx context.Context, scenarioId int, changeId int) error {
	scenario, err := utils.FetchSingleModel[ContractScenario](ctx, scenarioId)
	if err != nil {
		return err
	}
	change, err := utils.FetchSingleModel[ContractChange](ctx, changeId)
	if err != nil {
		return err
	}
	if change.ContractId != scenario.ContractId {
		return utils.NewValidationError("change belongs to a different contract")
	}
	if change.Status != ChangeStatusProposed {
		return utils.NewValidationError("only proposed changes can be bundled into a scenario")
	}
	count, err := utils.ResourceCountWhere[ContractScenarioChange](ctx,
		"scenario_id = ? AND contract_change_id = ?", scenarioId, changeId)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil // already linked; toggling is idempotent
	}

	link := ContractScenarioChange{
		ScenarioId:       scenarioId,
		ContractChangeId: changeId,
	}
	db := config.GetDB()
	return db.WithContext(ctx).Create(&link).Error
}

func UnlinkScenarioChange(ctx context.Context, scenarioId int, changeId int) error {
	db := config.GetDB()
	return db.WithContext(ctx).
		Where("scenario_id = ? AND contract_change_id = ?", scenarioId, changeId).
		Delete(&ContractScenarioChange{}).Error
}

// GetScenarioChanges loads the changes bundled into a scenario, impact rows
// included.
func GetScenarioChanges(ctx context.Context, scenarioId int) ([]*ContractChange, error) {
	db := config.GetDB()
	var changeIds []int
	err := db.WithContext(ctx).
		Model(&ContractScenarioChange{}).
		Where("scenario_id = ?", scenarioId).
		Pluck("contract_change_id", &changeIds).Error
	if err != nil {
		return nil, err
	}
	if len(changeIds) == 0 {
		return nil, nil
	}
	var changes []*ContractChange
	err = db.WithContext(ctx).
		Preload("Impacts").
		Where("id IN ?", changeIds).
		Find(&changes).Error
	if err != nil {
		return nil, err
	}
	return changes, nil
}
