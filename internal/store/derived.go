package store

import (
	"fmt"

	"github.com/electripro/electripro/internal/calc"
	"github.com/electripro/electripro/internal/model"
	"github.com/shopspring/decimal"
)

// PlanningFor computes the labor plan of a plan. The work comes from the
// latest conteo of the plan's obra, falling back to the latest conteo
// overall. Without any conteo only the fixture stage has work.
func (s *Stores) PlanningFor(planID string) (calc.PlanningResult, error) {
	p, ok := s.Plans.ByID(planID)
	if !ok {
		return calc.PlanningResult{}, fmt.Errorf("%s %q: %w", TablePlans, planID, ErrNotFound)
	}

	var totals calc.ConteoTotals
	if c, ok := s.conteoForPlan(p); ok {
		totals = calc.SumRooms(c.Rooms)
	}
	in := calc.PlanningInputFromConteo(totals, p.ArtefactosCount)
	return calc.Planning(in, p.Params, p.Employees), nil
}

func (s *Stores) conteoForPlan(p model.Plan) (model.Conteo, bool) {
	if p.ObraID != "" {
		if c, ok := s.Conteos.LatestForObra(p.ObraID); ok {
			return c, true
		}
	}
	return s.Conteos.Latest()
}

// ObraProfitability grades an obra. Labor cost comes from its linked plan
// and material cost from the cost total of its linked budget; missing
// links count as zero cost.
func (s *Stores) ObraProfitability(obraID string) (calc.Profit, error) {
	o, ok := s.Obras.ByID(obraID)
	if !ok {
		return calc.Profit{}, fmt.Errorf("%s %q: %w", TableObras, obraID, ErrNotFound)
	}

	labor := decimal.Zero
	if o.PlanID != "" {
		if plan, err := s.PlanningFor(o.PlanID); err == nil {
			labor = plan.TotalCostMO
		}
	}
	material := decimal.Zero
	if o.PresupuestoID != "" {
		if t, err := s.Budgets.Totals(o.PresupuestoID); err == nil {
			material = t.CostTotal
		}
	}
	return calc.Profitability(o.BudgetAmount, o.CollectedAmount, labor, material), nil
}

// Stats returns the dashboard headline figures at now.
func (s *Stores) Stats() calc.Stats {
	return calc.DashboardStats(s.Budgets.All(), s.Obras.All(), s.env.now())
}

// Dashboard is everything the dashboard shows.
type Dashboard struct {
	Stats        calc.Stats           `json:"stats"`
	Billing      []calc.MonthTotal    `json:"billing"`
	Distribution []calc.CategoryTotal `json:"distribution"`
	RecentObras  []model.Obra         `json:"recentObras"`
}

// Dashboard computes the dashboard figures: headline stats, six months of
// billing, billed amount per category and the five newest obras.
func (s *Stores) Dashboard() Dashboard {
	budgets := s.Budgets.All()
	obras := s.Obras.All()
	now := s.env.now()
	return Dashboard{
		Stats:        calc.DashboardStats(budgets, obras, now),
		Billing:      calc.MonthlyBilling(budgets, now, 6),
		Distribution: calc.CategoryDistribution(budgets, s.Prices.All()),
		RecentObras:  calc.RecentObras(obras, 5),
	}
}
