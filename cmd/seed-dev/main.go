package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"bitbucket.org/mmdatafocus/cvr_backend/config"
	"bitbucket.org/mmdatafocus/cvr_backend/models"
	"bitbucket.org/mmdatafocus/cvr_backend/utils"
	"github.com/shopspring/decimal"
)

// Seeds a small demo dataset: one admin user, the default cost categories,
// one active contract with four ledger months (two actual, two forecast) and
// one proposed variation. Intended for local development only; every insert
// goes through the normal model layer so validation still applies.

func main() {
	adminEmail := flag.String("admin-email", "admin@example.com", "email for the seeded admin user")
	adminPassword := flag.String("admin-password", "changeme123", "password for the seeded admin user")
	flag.Parse()

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}
	models.MigrateTable()

	ctx = utils.SetUserNameInContext(ctx, "SeedDev")

	if _, err := models.CreateUser(ctx, &models.NewUser{
		Email:    *adminEmail,
		Name:     "Admin",
		Password: *adminPassword,
		Role:     "admin",
	}); err != nil {
		fmt.Fprintf(os.Stderr, "create user: %v\n", err)
	}

	categories := []models.NewCostCategory{
		{Code: "labour", Name: "Labour", DisplayOrder: 1},
		{Code: "materials", Name: "Materials", DisplayOrder: 2},
		{Code: "plant", Name: "Plant & Equipment", DisplayOrder: 3},
		{Code: "subcontract", Name: "Subcontractors", DisplayOrder: 4},
		{Code: "overhead", Name: "Overheads", DisplayOrder: 5},
	}
	for _, category := range categories {
		if _, err := models.CreateCostCategory(ctx, &category); err != nil {
			fmt.Fprintf(os.Stderr, "create cost category %s: %v\n", category.Code, err)
		}
	}

	contract, err := models.CreateContract(ctx, &models.NewContract{
		ContractCode:    "BS-2024-001",
		Name:            "Building Services Upgrade",
		CustomerName:    "Northfield Council",
		StartDate:       time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:         time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		OriginalValue:   decimal.NewFromInt(480000),
		TargetMarginPct: decimal.NewFromInt(12),
		Status:          models.ContractStatusActive,
		BusinessUnit:    "Infrastructure",
		Sector:          "Public",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "create contract: %v\n", err)
		os.Exit(1)
	}

	db := config.GetDB()
	months := []struct {
		month   string
		kind    models.RecordKind
		revenue int64
		cost    int64
	}{
		{"2025-01-01", models.RecordKindActual, 40000, 34000},
		{"2025-02-01", models.RecordKindActual, 42000, 35500},
		{"2025-03-01", models.RecordKindForecast, 40000, 34800},
		{"2025-04-01", models.RecordKindForecast, 40000, 34800},
	}
	for _, m := range months {
		period, err := models.CreateContractPeriod(ctx, &models.NewContractPeriod{
			ContractId:  contract.ID,
			PeriodMonth: m.month,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "create period %s: %v\n", m.month, err)
			continue
		}
		err = db.WithContext(ctx).Create(&models.ContractRevenue{
			ContractPeriodId: period.ID,
			RevenueType:      m.kind,
			Amount:           decimal.NewFromInt(m.revenue),
		}).Error
		if err == nil {
			err = db.WithContext(ctx).Create(&models.ContractCost{
				ContractPeriodId: period.ID,
				CostType:         m.kind,
				Amount:           decimal.NewFromInt(m.cost),
			}).Error
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "seed records %s: %v\n", m.month, err)
		}
	}

	_, err = models.CreateContractChange(ctx, config.GetLogger(), &models.NewContractChange{
		ContractId:    contract.ID,
		ChangeCode:    "VO-001",
		Title:         "Additional ventilation works",
		ChangeType:    models.ChangeTypeVariation,
		Status:        models.ChangeStatusProposed,
		RevenueDelta:  decimal.NewFromInt(25000),
		CostDelta:     decimal.NewFromInt(19000),
		EffectiveDate: "2025-03-15",
		Impacts: []models.NewChangeImpact{
			{PeriodMonth: "2025-03-01", RevenueDelta: decimal.NewFromInt(10000), CostDelta: decimal.NewFromInt(8000)},
			{PeriodMonth: "2025-04-01", RevenueDelta: decimal.NewFromInt(15000), CostDelta: decimal.NewFromInt(11000)},
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "create change: %v\n", err)
	}

	fmt.Printf("seeded contract %s (id=%d)\n", contract.ContractCode, contract.ID)
}
