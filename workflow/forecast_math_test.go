package workflow

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFlatSpreadAmount(t *testing.T) {
	got := FlatSpreadAmount(decimal.NewFromInt(1000), 4)
	if !got.Equal(decimal.NewFromInt(250)) {
		t.Errorf("FlatSpreadAmount(1000, 4) = %s, want 250", got)
	}
}

func TestFlatSpreadAmount_NoFuturePeriods(t *testing.T) {
	if got := FlatSpreadAmount(decimal.NewFromInt(1000), 0); !got.IsZero() {
		t.Errorf("no future periods must spread to zero, got %s", got)
	}
}

func TestFlatSpreadAmount_NegativeTotal(t *testing.T) {
	// A cost-reduction spread carries a negative remaining amount; it spreads
	// like any other total.
	got := FlatSpreadAmount(decimal.NewFromInt(-1200), 4)
	if !got.Equal(decimal.NewFromInt(-300)) {
		t.Errorf("FlatSpreadAmount(-1200, 4) = %s, want -300", got)
	}
}

func TestFlatSpreadAmount_UnevenDivision(t *testing.T) {
	got := FlatSpreadAmount(decimal.NewFromInt(100), 3)
	back := got.Mul(decimal.NewFromInt(3))
	diff := back.Sub(decimal.NewFromInt(100)).Abs()
	if diff.GreaterThan(decimal.NewFromFloat(0.01)) {
		t.Errorf("3 x %s = %s drifts more than a cent from 100", got, back)
	}
}

func TestRunRateAmount_SingleActual(t *testing.T) {
	got := RunRateAmount([]decimal.Decimal{decimal.NewFromInt(300)}, runRateWindow)
	if !got.Equal(decimal.NewFromInt(300)) {
		t.Errorf("single actual run rate = %s, want 300", got)
	}
}

func TestRunRateAmount_WindowTakesNewestThree(t *testing.T) {
	actuals := []decimal.Decimal{
		decimal.NewFromInt(999999), // oldest, outside the window
		decimal.NewFromInt(100),
		decimal.NewFromInt(200),
		decimal.NewFromInt(300),
	}
	got := RunRateAmount(actuals, runRateWindow)
	if !got.Equal(decimal.NewFromInt(200)) {
		t.Errorf("run rate over newest three = %s, want 200", got)
	}
}

func TestRunRateAmount_NoActuals(t *testing.T) {
	if got := RunRateAmount(nil, runRateWindow); !got.IsZero() {
		t.Errorf("no actuals must yield zero run rate, got %s", got)
	}
}
