package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/cvr_backend/config"
	"bitbucket.org/mmdatafocus/cvr_backend/utils"
)

// CostCategory is stable reference data; many cost records point at one
// category.
type CostCategory struct {
	ID           int       `gorm:"primary_key" json:"id"`
	Code         string    `gorm:"size:64;not null;uniqueIndex" json:"code"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	IsActive     *bool     `gorm:"not null;default:true" json:"is_active"`
	DisplayOrder int       `gorm:"default:0" json:"display_order"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCostCategory struct {
	Code         string `json:"code" binding:"required"`
	Name         string `json:"name" binding:"required"`
	IsActive     *bool  `json:"is_active"`
	DisplayOrder int    `json:"display_order"`
}

func CreateCostCategory(ctx context.Context, input *NewCostCategory) (*CostCategory, error) {
	if err := utils.ValidateUnique[CostCategory](ctx, "code", input.Code, 0); err != nil {
		return nil, err
	}

	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}
	category := CostCategory{
		Code:         input.Code,
		Name:         input.Name,
		IsActive:     &active,
		DisplayOrder: input.DisplayOrder,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func UpdateCostCategory(ctx context.Context, id int, input *NewCostCategory) (*CostCategory, error) {
	if _, err := utils.FetchSingleModel[CostCategory](ctx, id); err != nil {
		return nil, err
	}
	if err := utils.ValidateUnique[CostCategory](ctx, "code", input.Code, id); err != nil {
		return nil, err
	}

	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}
	category := CostCategory{
		ID:           id,
		Code:         input.Code,
		Name:         input.Name,
		IsActive:     &active,
		DisplayOrder: input.DisplayOrder,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&CostCategory{ID: id}).Updates(map[string]interface{}{
		"code":          category.Code,
		"name":          category.Name,
		"is_active":     *category.IsActive,
		"display_order": category.DisplayOrder,
	}).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// DeleteCostCategory refuses if any cost record still references the category.
func DeleteCostCategory(ctx context.Context, id int) error {
	if _, err := utils.FetchSingleModel[CostCategory](ctx, id); err != nil {
		return err
	}
	count, err := utils.ResourceCountWhere[ContractCost](ctx, "category_id = ?", id)
	if err != nil {
		return err
	}
	if count > 0 {
		return utils.NewValidationError("cost category is still referenced by cost records")
	}

	db := config.GetDB()
	return db.WithContext(ctx).Delete(&CostCategory{ID: id}).Error
}

func GetCostCategories(ctx context.Context) ([]*CostCategory, error) {
	db := config.GetDB()
	var categories []*CostCategory
	if err := db.WithContext(ctx).Order("display_order ASC, code ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}
