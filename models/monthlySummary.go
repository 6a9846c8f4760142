package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/cvr_backend/config"
	"bitbucket.org/mmdatafocus/cvr_backend/utils"
	"github.com/shopspring/decimal"
)

// MonthlySummaryRow is one pre-aggregated month of a contract's baseline:
// revenue and cost summed across lines with actual-over-forecast precedence,
// margin percentage derived locally.
type MonthlySummaryRow struct {
	PeriodMonth string          `json:"period_month"`
	Revenue     decimal.Decimal `json:"revenue"`
	Cost        decimal.Decimal `json:"cost"`
	MarginPct   decimal.Decimal `json:"margin_pct"`
}

type monthlySummaryScan struct {
	PeriodMonth time.Time
	Revenue     decimal.Decimal
	Cost        decimal.Decimal
}

// MarginPct derives a margin percentage, with the zero-revenue month pinned
// to 0% so downstream consumers never see a division blow-up.
func MarginPct(revenue, cost decimal.Decimal) decimal.Decimal {
	if revenue.IsZero() {
		return decimal.Zero
	}
	return revenue.Sub(cost).Div(revenue).Mul(decimal.NewFromInt(100))
}

// GetMonthlySummary produces the canonical baseline series for a contract:
// one row per period, oldest first. Per period the authoritative revenue
// record is the actual if one exists, else the forecast; costs apply the same
// precedence per category before summing. Duplicate records beyond the
// authoritative one are ignored, not merged. Baseline-kind rows are excluded.
func GetMonthlySummary(ctx context.Context, contractId int) ([]*MonthlySummaryRow, error) {
	db := config.GetDB()

	query := `
		WITH rev AS (
			SELECT
				cr.contract_period_id AS period_id,
				cr.amount,
				ROW_NUMBER() OVER (
					PARTITION BY cr.contract_period_id
					ORDER BY CASE cr.revenue_type WHEN 'actual' THEN 0 ELSE 1 END, cr.id
				) AS rn
			FROM contract_revenues AS cr
			JOIN contract_periods AS cp ON cp.id = cr.contract_period_id
			WHERE cp.contract_id = ?
				AND cr.revenue_type IN ('actual', 'forecast')
		),
		cost AS (
			SELECT
				cc.contract_period_id AS period_id,
				cc.amount,
				ROW_NUMBER() OVER (
					PARTITION BY cc.contract_period_id, cc.category_id
					ORDER BY CASE cc.cost_type WHEN 'actual' THEN 0 ELSE 1 END, cc.id
				) AS rn
			FROM contract_costs AS cc
			JOIN contract_periods AS cp ON cp.id = cc.contract_period_id
			WHERE cp.contract_id = ?
				AND cc.cost_type IN ('actual', 'forecast')
		)
		SELECT
			cp.period_month AS period_month,
			COALESCE((SELECT SUM(rev.amount) FROM rev WHERE rev.period_id = cp.id AND rev.rn = 1), 0) AS revenue,
			COALESCE((SELECT SUM(cost.amount) FROM cost WHERE cost.period_id = cp.id AND cost.rn = 1), 0) AS cost
		FROM contract_periods AS cp
		WHERE cp.contract_id = ?
		ORDER BY cp.period_month ASC
	`

	var scanned []monthlySummaryScan
	err := db.WithContext(ctx).Raw(query, contractId, contractId, contractId).Scan(&scanned).Error
	if err != nil {
		return nil, err
	}

	rows := make([]*MonthlySummaryRow, 0, len(scanned))
	for _, s := range scanned {
		rows = append(rows, &MonthlySummaryRow{
			PeriodMonth: utils.TruncateToMonth(s.PeriodMonth).Format(utils.PeriodMonthLayout),
			Revenue:     s.Revenue,
			Cost:        s.Cost,
			MarginPct:   MarginPct(s.Revenue, s.Cost),
		})
	}
	return rows, nil
}
