// Package calc derives every computed figure of electripro: budget totals,
// margins, conteo totals, the conteo-to-budget mapping, labor planning,
// profitability and dashboard statistics.
//
// All functions are pure. Money and rates use decimal arithmetic; percents
// are returned unrounded and left to the renderer.
package calc

import (
	"github.com/electripro/electripro/internal/model"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ItemSubtotal returns qty × unitPrice.
func ItemSubtotal(qty, unitPrice decimal.Decimal) decimal.Decimal {
	return qty.Mul(unitPrice)
}

// Margin returns the margin of price over cost as a percent of price.
// It is zero when price is zero.
func Margin(cost, price decimal.Decimal) decimal.Decimal {
	if price.IsZero() {
		return decimal.Zero
	}
	return price.Sub(cost).Div(price).Mul(hundred)
}

// Totals are the derived amounts of a budget.
type Totals struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	IVA         decimal.Decimal `json:"iva"`
	Total       decimal.Decimal `json:"total"`
	CostTotal   decimal.Decimal `json:"costTotal"`
	MarginBruto decimal.Decimal `json:"marginBruto"`
}

// BudgetTotals sums the lines of a budget and applies ivaPercent.
func BudgetTotals(items []model.BudgetLine, ivaPercent decimal.Decimal) Totals {
	var t Totals
	for _, it := range items {
		t.Subtotal = t.Subtotal.Add(ItemSubtotal(it.Qty, it.UnitPrice))
		t.CostTotal = t.CostTotal.Add(it.Qty.Mul(it.Cost))
	}
	t.IVA = t.Subtotal.Mul(ivaPercent).Div(hundred)
	t.Total = t.Subtotal.Add(t.IVA)
	if t.Subtotal.IsPositive() {
		t.MarginBruto = t.Subtotal.Sub(t.CostTotal).Div(t.Subtotal).Mul(hundred)
	}
	return t
}

// BudgetTotalsOf is BudgetTotals over b's own lines and IVA.
func BudgetTotalsOf(b model.Budget) Totals {
	return BudgetTotals(b.Items, b.IVA)
}
