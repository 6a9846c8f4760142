package main

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"bitbucket.org/mmdatafocus/cvr_backend/config"
	"bitbucket.org/mmdatafocus/cvr_backend/imports"
	"bitbucket.org/mmdatafocus/cvr_backend/models"
	"bitbucket.org/mmdatafocus/cvr_backend/models/reports"
	"bitbucket.org/mmdatafocus/cvr_backend/utils"
	"bitbucket.org/mmdatafocus/cvr_backend/workflow"
	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, file string, funcName string, err error) {
	if utils.IsValidationError(err) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if errors.Is(err, utils.ErrorRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	config.LogError(config.GetLogger(), file, funcName, "unhandled", c.Request.URL.Path, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func respondBindError(c *gin.Context, err error) {
	if fields := utils.ProcessValidationErrors(err); fields != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": fields})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// invalidateSeries drops a contract's cached series after a write. Failure
// to invalidate is logged, never surfaced: the write itself succeeded.
func invalidateSeries(cache *reports.SeriesCache, contractId int) {
	if err := cache.InvalidateContract(contractId); err != nil {
		config.LogError(config.GetLogger(), "handlers.go", "invalidateSeries", "InvalidateContract", contractId, err)
	}
}

func pathId(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be a positive integer"})
		return 0, false
	}
	return id, true
}

func loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.LoginInput
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		token, user, err := models.Login(c.Request.Context(), &input)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
	}
}

func listContractsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		contracts, err := models.GetContracts(c.Request.Context())
		if err != nil {
			respondError(c, "handlers.go", "listContractsHandler", err)
			return
		}
		c.JSON(http.StatusOK, contracts)
	}
}

func getContractHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		contract, err := models.GetContract(c.Request.Context(), id)
		if err != nil {
			respondError(c, "handlers.go", "getContractHandler", err)
			return
		}
		c.JSON(http.StatusOK, contract)
	}
}

func createContractHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewContract
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		contract, err := models.CreateContract(c.Request.Context(), &input)
		if err != nil {
			respondError(c, "handlers.go", "createContractHandler", err)
			return
		}
		c.JSON(http.StatusCreated, contract)
	}
}

func updateContractHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var input models.NewContract
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		contract, err := models.UpdateContract(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, "handlers.go", "updateContractHandler", err)
			return
		}
		c.JSON(http.StatusOK, contract)
	}
}

func deleteContractHandler(cache *reports.SeriesCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		if err := models.DeleteContract(c.Request.Context(), id); err != nil {
			respondError(c, "handlers.go", "deleteContractHandler", err)
			return
		}
		invalidateSeries(cache, id)
		c.Status(http.StatusNoContent)
	}
}

func contractFinancialsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		rows, err := models.GetMonthlySummary(c.Request.Context(), id)
		if err != nil {
			respondError(c, "handlers.go", "contractFinancialsHandler", err)
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

func listPeriodsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		periods, err := models.GetContractPeriods(c.Request.Context(), id)
		if err != nil {
			respondError(c, "handlers.go", "listPeriodsHandler", err)
			return
		}
		c.JSON(http.StatusOK, periods)
	}
}

func createPeriodHandler(cache *reports.SeriesCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewContractPeriod
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		period, err := models.CreateContractPeriod(c.Request.Context(), &input)
		if err != nil {
			respondError(c, "handlers.go", "createPeriodHandler", err)
			return
		}
		invalidateSeries(cache, input.ContractId)
		c.JSON(http.StatusCreated, period)
	}
}

func listCostCategoriesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		categories, err := models.GetCostCategories(c.Request.Context())
		if err != nil {
			respondError(c, "handlers.go", "listCostCategoriesHandler", err)
			return
		}
		c.JSON(http.StatusOK, categories)
	}
}

func createCostCategoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewCostCategory
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		category, err := models.CreateCostCategory(c.Request.Context(), &input)
		if err != nil {
			respondError(c, "handlers.go", "createCostCategoryHandler", err)
			return
		}
		c.JSON(http.StatusCreated, category)
	}
}

func updateCostCategoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var input models.NewCostCategory
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		category, err := models.UpdateCostCategory(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, "handlers.go", "updateCostCategoryHandler", err)
			return
		}
		c.JSON(http.StatusOK, category)
	}
}

func deleteCostCategoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		if err := models.DeleteCostCategory(c.Request.Context(), id); err != nil {
			respondError(c, "handlers.go", "deleteCostCategoryHandler", err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func listChangesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var status *models.ChangeStatus
		if raw := strings.TrimSpace(c.Query("status")); raw != "" {
			s := models.ChangeStatus(raw)
			if !s.Valid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status filter"})
				return
			}
			status = &s
		}
		changes, err := models.GetContractChanges(c.Request.Context(), id, status)
		if err != nil {
			respondError(c, "handlers.go", "listChangesHandler", err)
			return
		}
		c.JSON(http.StatusOK, changes)
	}
}

func createChangeHandler(cache *reports.SeriesCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewContractChange
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		change, err := models.CreateContractChange(c.Request.Context(), config.GetLogger(), &input)
		if err != nil {
			respondError(c, "handlers.go", "createChangeHandler", err)
			return
		}
		invalidateSeries(cache, change.ContractId)
		c.JSON(http.StatusCreated, change)
	}
}

func updateChangeHandler(cache *reports.SeriesCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var input models.NewContractChange
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		change, err := models.UpdateContractChange(c.Request.Context(), config.GetLogger(), id, &input)
		if err != nil {
			respondError(c, "handlers.go", "updateChangeHandler", err)
			return
		}
		invalidateSeries(cache, change.ContractId)
		c.JSON(http.StatusOK, change)
	}
}

func deleteChangeHandler(cache *reports.SeriesCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		change, err := utils.FetchSingleModel[models.ContractChange](c.Request.Context(), id)
		if err != nil {
			respondError(c, "handlers.go", "deleteChangeHandler", err)
			return
		}
		if err := models.DeleteContractChange(c.Request.Context(), id); err != nil {
			respondError(c, "handlers.go", "deleteChangeHandler", err)
			return
		}
		invalidateSeries(cache, change.ContractId)
		c.Status(http.StatusNoContent)
	}
}

func listScenariosHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		scenarios, err := models.GetContractScenarios(c.Request.Context(), id)
		if err != nil {
			respondError(c, "handlers.go", "listScenariosHandler", err)
			return
		}
		c.JSON(http.StatusOK, scenarios)
	}
}

func createScenarioHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewContractScenario
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		scenario, err := models.CreateContractScenario(c.Request.Context(), &input)
		if err != nil {
			respondError(c, "handlers.go", "createScenarioHandler", err)
			return
		}
		c.JSON(http.StatusCreated, scenario)
	}
}

func deleteScenarioHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		if err := models.DeleteContractScenario(c.Request.Context(), id); err != nil {
			respondError(c, "handlers.go", "deleteScenarioHandler", err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func linkScenarioChangeHandler(cache *reports.SeriesCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		scenarioId, ok := pathId(c, "id")
		if !ok {
			return
		}
		changeId, ok := pathId(c, "changeId")
		if !ok {
			return
		}
		scenario, err := utils.FetchSingleModel[models.ContractScenario](c.Request.Context(), scenarioId)
		if err != nil {
			respondError(c, "handlers.go", "linkScenarioChangeHandler", err)
			return
		}
		if err := models.LinkScenarioChange(c.Request.Context(), scenarioId, changeId); err != nil {
			respondError(c, "handlers.go", "linkScenarioChangeHandler", err)
			return
		}
		invalidateSeries(cache, scenario.ContractId)
		c.Status(http.StatusNoContent)
	}
}

func unlinkScenarioChangeHandler(cache *reports.SeriesCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		scenarioId, ok := pathId(c, "id")
		if !ok {
			return
		}
		changeId, ok := pathId(c, "changeId")
		if !ok {
			return
		}
		scenario, err := utils.FetchSingleModel[models.ContractScenario](c.Request.Context(), scenarioId)
		if err != nil {
			respondError(c, "handlers.go", "unlinkScenarioChangeHandler", err)
			return
		}
		if err := models.UnlinkScenarioChange(c.Request.Context(), scenarioId, changeId); err != nil {
			respondError(c, "handlers.go", "unlinkScenarioChangeHandler", err)
			return
		}
		invalidateSeries(cache, scenario.ContractId)
		c.Status(http.StatusNoContent)
	}
}

func scenarioForecastHandler(cache *reports.SeriesCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		scenarioId, ok := pathId(c, "id")
		if !ok {
			return
		}
		scenario, err := utils.FetchSingleModel[models.ContractScenario](c.Request.Context(), scenarioId)
		if err != nil {
			respondError(c, "handlers.go", "scenarioForecastHandler", err)
			return
		}
		rows, err := reports.GetScenarioForecast(c.Request.Context(), cache, scenario.ContractId, scenarioId)
		if err != nil {
			respondError(c, "handlers.go", "scenarioForecastHandler", err)
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

func baselineForecastHandler(cache *reports.SeriesCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		contractId, ok := pathId(c, "id")
		if !ok {
			return
		}
		if err := utils.ValidateResourceId[models.Contract](c.Request.Context(), contractId); err != nil {
			respondError(c, "handlers.go", "baselineForecastHandler", err)
			return
		}
		rows, err := reports.GetScenarioForecast(c.Request.Context(), cache, contractId, 0)
		if err != nil {
			respondError(c, "handlers.go", "baselineForecastHandler", err)
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

func generateForecastHandler(cache *reports.SeriesCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input workflow.GenerateForecastInput
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		result, err := workflow.GenerateForecast(c.Request.Context(), cache, &input)
		if err != nil {
			respondError(c, "handlers.go", "generateForecastHandler", err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func splitActualsForecastHandler(cache *reports.SeriesCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input workflow.SplitActualsForecastInput
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		// Reclassification touches every record of the contract; require an
		// explicit confirmation so a stray call cannot rewrite the ledger.
		if !strings.EqualFold(c.Query("confirm"), "true") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "pass confirm=true to reclassify records"})
			return
		}
		result, err := workflow.SplitActualsForecast(c.Request.Context(), cache, &input)
		if err != nil {
			respondError(c, "handlers.go", "splitActualsForecastHandler", err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func promoteScenarioHandler(cache *reports.SeriesCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		scenarioId, ok := pathId(c, "id")
		if !ok {
			return
		}
		result, err := workflow.PromoteScenario(c.Request.Context(), cache, scenarioId)
		if err != nil {
			respondError(c, "handlers.go", "promoteScenarioHandler", err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func importActualsHandler(cache *reports.SeriesCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		contractId, ok := pathId(c, "id")
		if !ok {
			return
		}
		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field 'file' is required"})
			return
		}
		if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".xlsx") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "only .xlsx files are allowed"})
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			respondError(c, "handlers.go", "importActualsHandler", err)
			return
		}
		defer file.Close()
		result, err := imports.ImportMonthlyActuals(c.Request.Context(), cache, contractId, file)
		if err != nil {
			respondError(c, "handlers.go", "importActualsHandler", err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}
