package calc

import "github.com/shopspring/decimal"

// Level grades a profitability percent.
type Level string

const (
	LevelGreen  Level = "green"
	LevelYellow Level = "yellow"
	LevelRed    Level = "red"
)

var (
	greenAbove  = decimal.NewFromInt(20)
	yellowAbove = decimal.NewFromInt(10)
)

// LevelOf grades percent: green above 20, yellow above 10, red otherwise.
func LevelOf(percent decimal.Decimal) Level {
	switch {
	case percent.GreaterThan(greenAbove):
		return LevelGreen
	case percent.GreaterThan(yellowAbove):
		return LevelYellow
	default:
		return LevelRed
	}
}

// Profit is the result of a profitability check.
type Profit struct {
	Revenue decimal.Decimal `json:"revenue"`
	Profit  decimal.Decimal `json:"profit"`
	Percent decimal.Decimal `json:"percent"`
	Level   Level           `json:"level"`
}

// Profitability compares the revenue of an obra against its labor and
// material costs. Revenue is the collected amount when positive, else the
// budgeted amount. Zero revenue yields a zero, red result.
func Profitability(budgetAmount, collectedAmount, laborCost, materialCost decimal.Decimal) Profit {
	revenue := budgetAmount
	if collectedAmount.IsPositive() {
		revenue = collectedAmount
	}
	if !revenue.IsPositive() {
		return Profit{Revenue: decimal.Zero, Profit: decimal.Zero, Percent: decimal.Zero, Level: LevelRed}
	}

	profit := revenue.Sub(laborCost.Add(materialCost))
	percent := profit.Div(revenue).Mul(hundred)
	return Profit{Revenue: revenue, Profit: profit, Percent: percent, Level: LevelOf(percent)}
}
