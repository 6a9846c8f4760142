package models_test

import (
	"testing"

	"bitbucket.org/mmdatafocus/cvr_backend/models"
)

// Every stored enum must survive a driver round trip and refuse values the
// column type does not carry.
func TestStoredEnumsScanAndReject(t *testing.T) {
	var changeType models.ChangeType
	if err := changeType.Scan([]byte("variation")); err != nil {
		t.Errorf("change type scan: %v", err)
	}
	if err := changeType.Scan([]byte("renegotiation")); err == nil {
		t.Error("unknown change type scanned without error")
	}

	var status models.ContractStatus
	if err := status.Scan("on_hold"); err != nil {
		t.Errorf("contract status scan: %v", err)
	}
	if err := status.Scan("archived"); err == nil {
		t.Error("unknown contract status scanned without error")
	}

	var scenarioType models.ScenarioType
	if err := scenarioType.Scan("worst_case"); err != nil {
		t.Errorf("scenario type scan: %v", err)
	}
	if v, err := scenarioType.Value(); err != nil || v != "worst_case" {
		t.Errorf("scenario type value = %v, %v", v, err)
	}
}
