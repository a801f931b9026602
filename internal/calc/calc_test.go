package calc

import (
	"fmt"
	"testing"

	"github.com/electripro/electripro/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	if !d(want).Equal(got) {
		assert.Fail(t, fmt.Sprintf("want %s, got %s", want, got), msgAndArgs...)
	}
}

func line(qty, unitPrice, cost string) model.BudgetLine {
	return model.BudgetLine{Qty: d(qty), UnitPrice: d(unitPrice), Cost: d(cost)}
}

func TestItemSubtotal(t *testing.T) {
	assertDecimal(t, "66000", ItemSubtotal(d("3"), d("22000")))
	assertDecimal(t, "0", ItemSubtotal(d("0"), d("22000")))
	assertDecimal(t, "3.75", ItemSubtotal(d("1.5"), d("2.5")))
}

func TestMargin(t *testing.T) {
	tests := []struct {
		name        string
		cost, price string
		want        string
	}{
		{"quarter", "75", "100", "25"},
		{"zero price", "100", "0", "0"},
		{"zero cost", "0", "85000", "100"},
		{"loss", "150", "100", "-50"},
		{"break even", "100", "100", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertDecimal(t, tt.want, Margin(d(tt.cost), d(tt.price)))
		})
	}
}

func TestBudgetTotals(t *testing.T) {
	items := []model.BudgetLine{
		line("2", "100", "50"),
		line("4", "25", "12.5"),
	}

	got := BudgetTotals(items, d("21"))
	assertDecimal(t, "300", got.Subtotal)
	assertDecimal(t, "63", got.IVA)
	assertDecimal(t, "363", got.Total)
	assertDecimal(t, "150", got.CostTotal)
	assertDecimal(t, "50", got.MarginBruto)
}

func TestBudgetTotalsEmpty(t *testing.T) {
	got := BudgetTotals(nil, d("21"))
	assertDecimal(t, "0", got.Subtotal)
	assertDecimal(t, "0", got.IVA)
	assertDecimal(t, "0", got.Total)
	assertDecimal(t, "0", got.MarginBruto)
}

func TestBudgetTotalsZeroIVA(t *testing.T) {
	got := BudgetTotals([]model.BudgetLine{line("1", "200", "150")}, decimal.Zero)
	assertDecimal(t, "0", got.IVA)
	assertDecimal(t, "200", got.Total)
	assertDecimal(t, "25", got.MarginBruto)
}

func TestBudgetTotalsScaleLinearly(t *testing.T) {
	base := []model.BudgetLine{
		line("2", "100", "50"),
		line("4", "25", "12.5"),
		line("1", "85000", "0"),
	}
	want := BudgetTotals(base, d("21"))

	for _, k := range []string{"2", "3", "10"} {
		scaled := make([]model.BudgetLine, len(base))
		for i, it := range base {
			it.Qty = it.Qty.Mul(d(k))
			scaled[i] = it
		}
		got := BudgetTotals(scaled, d("21"))

		assertDecimal(t, want.Subtotal.Mul(d(k)).String(), got.Subtotal, "k=%s", k)
		assertDecimal(t, want.Total.Mul(d(k)).String(), got.Total, "k=%s", k)
		assertDecimal(t, want.CostTotal.Mul(d(k)).String(), got.CostTotal, "k=%s", k)
		assert.True(t, want.MarginBruto.Round(8).Equal(got.MarginBruto.Round(8)), "k=%s", k)
	}
}

func TestBudgetTotalsOfUsesBudgetIVA(t *testing.T) {
	b := model.Budget{Items: []model.BudgetLine{line("1", "100", "0")}, IVA: d("10.5")}
	assertDecimal(t, "110.5", BudgetTotalsOf(b).Total)
}

func TestProfitability(t *testing.T) {
	tests := []struct {
		name                    string
		budget, collected       string
		labor, material         string
		wantProfit, wantPercent string
		wantLevel               Level
	}{
		{"budget revenue green", "1000", "0", "700", "0", "300", "30", LevelGreen},
		{"collected wins", "5000", "1000", "600", "250", "150", "15", LevelYellow},
		{"exactly ten is red", "1000", "0", "500", "400", "100", "10", LevelRed},
		{"exactly twenty is yellow", "1000", "0", "800", "0", "200", "20", LevelYellow},
		{"loss", "1000", "0", "1500", "0", "-500", "-50", LevelRed},
		{"no revenue", "0", "0", "700", "0", "0", "0", LevelRed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Profitability(d(tt.budget), d(tt.collected), d(tt.labor), d(tt.material))
			assertDecimal(t, tt.wantProfit, got.Profit)
			assertDecimal(t, tt.wantPercent, got.Percent)
			assert.Equal(t, tt.wantLevel, got.Level)
		})
	}
}

func TestLevelOf(t *testing.T) {
	assert.Equal(t, LevelGreen, LevelOf(d("20.01")))
	assert.Equal(t, LevelYellow, LevelOf(d("10.01")))
	assert.Equal(t, LevelRed, LevelOf(d("-3")))
}

func TestProfitabilityUsesRevenue(t *testing.T) {
	got := Profitability(d("5000"), d("2000"), decimal.Zero, decimal.Zero)
	require.True(t, got.Revenue.Equal(d("2000")))
	assertDecimal(t, "100", got.Percent)
}
