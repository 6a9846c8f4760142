package models

import (
	"log"

	"bitbucket.org/mmdatafocus/cvr_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Contract{}, &ContractPeriod{}, &ContractRevenue{}, &ContractCost{},
		&CostCategory{},
		&ContractChange{}, &ContractChangeImpact{},
		&ContractScenario{}, &ContractScenarioChange{},
		&User{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
