package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
)

// RecordKind tags a revenue or cost record as recognized money, a projected
// amount, or an immutable baseline snapshot. The forecasting engine reads
// actual and forecast records only; baseline rows are kept for audit and
// ignored by readers.
type RecordKind string

const (
	RecordKindActual   RecordKind = "actual"
	RecordKindForecast RecordKind = "forecast"
	RecordKindBaseline RecordKind = "baseline"
)

func (t RecordKind) Valid() bool {
	switch t {
	case RecordKindActual, RecordKindForecast, RecordKindBaseline:
		return true
	}
	return false
}

func (t *RecordKind) Scan(value interface{}) error {
	s, err := scanEnumString(value)
	if err != nil {
		return err
	}
	*t = RecordKind(s)
	if !t.Valid() {
		return fmt.Errorf("invalid record kind %q", s)
	}
	return nil
}

func (t RecordKind) Value() (driver.Value, error) {
	return string(t), nil
}

type ChangeStatus string

const (
	ChangeStatusProposed    ChangeStatus = "proposed"
	ChangeStatusApproved    ChangeStatus = "approved"
	ChangeStatusRejected    ChangeStatus = "rejected"
	ChangeStatusImplemented ChangeStatus = "implemented"
)

func (t ChangeStatus) Valid() bool {
	switch t {
	case ChangeStatusProposed, ChangeStatusApproved, ChangeStatusRejected, ChangeStatusImplemented:
		return true
	}
	return false
}

func (t *ChangeStatus) Scan(value interface{}) error {
	s, err := scanEnumString(value)
	if err != nil {
		return err
	}
	*t = ChangeStatus(s)
	if !t.Valid() {
		return fmt.Errorf("invalid change status %q", s)
	}
	return nil
}

func (t ChangeStatus) Value() (driver.Value, error) {
	return string(t), nil
}

type ChangeType string

const (
	ChangeTypeScopeAddition  ChangeType = "scope_addition"
	ChangeTypeScopeReduction ChangeType = "scope_reduction"
	ChangeTypeVariation      ChangeType = "variation"
	ChangeTypeClaim          ChangeType = "claim"
)

func (t ChangeType) Valid() bool {
	switch t {
	case ChangeTypeScopeAddition, ChangeTypeScopeReduction, ChangeTypeVariation, ChangeTypeClaim:
		return true
	}
	return false
}

func (t *ChangeType) Scan(value interface{}) error {
	s, err := scanEnumString(value)
	if err != nil {
		return err
	}
	*t = ChangeType(s)
	if !t.Valid() {
		return fmt.Errorf("invalid change type %q", s)
	}
	return nil
}

func (t ChangeType) Value() (driver.Value, error) {
	return string(t), nil
}

type ContractStatus string

const (
	ContractStatusDraft  ContractStatus = "draft"
	ContractStatusActive ContractStatus = "active"
	ContractStatusOnHold ContractStatus = "on_hold"
	ContractStatusClosed ContractStatus = "closed"
)

func (t ContractStatus) Valid() bool {
	switch t {
	case ContractStatusDraft, ContractStatusActive, ContractStatusOnHold, ContractStatusClosed:
		return true
	}
	return false
}

func (t *ContractStatus) Scan(value interface{}) error {
	s, err := scanEnumString(value)
	if err != nil {
		return err
	}
	*t = ContractStatus(s)
	if !t.Valid() {
		return fmt.Errorf("invalid contract status %q", s)
	}
	return nil
}

func (t ContractStatus) Value() (driver.Value, error) {
	return string(t), nil
}

type ScenarioType string

const (
	ScenarioTypeCustom    ScenarioType = "custom"
	ScenarioTypeBestCase  ScenarioType = "best_case"
	ScenarioTypeWorstCase ScenarioType = "worst_case"
)

func (t ScenarioType) Valid() bool {
	switch t {
	case ScenarioTypeCustom, ScenarioTypeBestCase, ScenarioTypeWorstCase:
		return true
	}
	return false
}

func (t *ScenarioType) Scan(value interface{}) error {
	s, err := scanEnumString(value)
	if err != nil {
		return err
	}
	*t = ScenarioType(s)
	if !t.Valid() {
		return fmt.Errorf("invalid scenario type %q", s)
	}
	return nil
}

func (t ScenarioType) Value() (driver.Value, error) {
	return string(t), nil
}

// ForecastMethod selects how the generator computes the monthly amount.
type ForecastMethod string

const (
	// ForecastMethodFlatSpread spreads a lump sum evenly over the remaining
	// forecast months ("flatten to end").
	ForecastMethodFlatSpread ForecastMethod = "flat_spread"
	// ForecastMethodRunRate applies the average of the last three actual
	// months forward.
	ForecastMethodRunRate ForecastMethod = "run_rate"
)

func (t ForecastMethod) Valid() bool {
	switch t {
	case ForecastMethodFlatSpread, ForecastMethodRunRate:
		return true
	}
	return false
}

// ForecastTargetLine selects which line the generator writes: total revenue
// or a single cost category.
type ForecastTargetLine string

const (
	ForecastTargetRevenue ForecastTargetLine = "revenue"
	ForecastTargetCost    ForecastTargetLine = "cost"
)

func (t ForecastTargetLine) Valid() bool {
	return t == ForecastTargetRevenue || t == ForecastTargetCost
}

func scanEnumString(value interface{}) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", errors.New("enum value must be string")
	}
}
