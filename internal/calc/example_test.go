package calc_test

import (
	"fmt"

	"github.com/electripro/electripro/internal/calc"
	"github.com/electripro/electripro/internal/model"
	"github.com/shopspring/decimal"
)

func ExampleBudgetTotals() {
	items := []model.BudgetLine{
		{Code: "BL-001", Qty: decimal.NewFromInt(7), UnitPrice: decimal.NewFromInt(22000), Cost: decimal.NewFromInt(8500)},
		{Code: "TC-001", Qty: decimal.NewFromInt(3), UnitPrice: decimal.NewFromInt(18000), Cost: decimal.NewFromInt(6500)},
	}

	t := calc.BudgetTotals(items, decimal.NewFromInt(21))
	fmt.Println(t.Subtotal, t.IVA, t.Total, t.MarginBruto.StringFixed(2))
	// Output: 208000 43680 251680 62.02
}

func ExamplePlanning() {
	in := calc.PlanningInput{TotalCano: 26, TotalBocas: 7, TotalPuntos: 11, ArtefactosCount: 10}
	res := calc.Planning(in, model.DefaultPlanParams(), model.DefaultEmployees())

	for _, st := range res.Stages {
		fmt.Printf("%s: %d days\n", st.Name, st.DaysReal)
	}
	fmt.Println(res.TotalDays, res.TotalWeeks, res.TotalCostMO)
	// Output:
	// Canaletas y caños: 1 days
	// Amurado de cajas: 1 days
	// Cableado y puntos: 1 days
	// Colocación artefactos: 2 days
	// 5 1 680000
}
