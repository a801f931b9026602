package calc

import (
	"github.com/electripro/electripro/internal/model"
	"github.com/shopspring/decimal"
)

// workWeek is the number of working days per week.
const workWeek = 5

// PlanningInput is the amount of work to plan.
type PlanningInput struct {
	TotalCano       int `json:"totalCano"`
	TotalBocas      int `json:"totalBocas"`
	TotalPuntos     int `json:"totalPuntos"`
	ArtefactosCount int `json:"artefactosCount"`
}

// PlanningInputFromConteo builds the planning input of a conteo.
func PlanningInputFromConteo(t ConteoTotals, artefactosCount int) PlanningInput {
	return PlanningInput{
		TotalCano:       t.TotalCano,
		TotalBocas:      t.Bocas,
		TotalPuntos:     t.TotalPuntos,
		ArtefactosCount: artefactosCount,
	}
}

// Stage is one planned phase of the installation.
type Stage struct {
	Name          string          `json:"name"`
	Work          int             `json:"work"`
	Rate          decimal.Decimal `json:"rate"`
	Employees     int             `json:"employees"`
	DaysOnePerson int64           `json:"daysOnePerson"`
	DaysReal      int64           `json:"daysReal"`
	CostMO        decimal.Decimal `json:"costMO"`
}

// PlanningResult is the labor plan of an installation.
type PlanningResult struct {
	Stages      []Stage         `json:"stages"`
	TotalDays   int64           `json:"totalDays"`
	TotalCostMO decimal.Decimal `json:"totalCostMO"`
	TotalWeeks  int64           `json:"totalWeeks"`
}

// Planning computes, per stage, the days one person needs, the days the
// assigned crew needs and the labor cost, plus the totals. A headcount of
// zero counts as one person.
func Planning(in PlanningInput, params model.PlanParams, emp model.Employees) PlanningResult {
	specs := []struct {
		name string
		work int
		rate decimal.Decimal
		n    int
	}{
		{"Canaletas y caños", in.TotalCano, params.RendCano, emp.Caneria},
		{"Amurado de cajas", in.TotalBocas, params.RendAmurado, emp.Amurado},
		{"Cableado y puntos", in.TotalPuntos, params.RendCableado, emp.Cableado},
		{"Colocación artefactos", in.ArtefactosCount, params.RendArtefactos, emp.Artefactos},
	}

	res := PlanningResult{Stages: make([]Stage, 0, len(specs))}
	for _, s := range specs {
		n := s.n
		if n == 0 {
			n = 1
		}
		st := Stage{Name: s.name, Work: s.work, Rate: s.rate, Employees: n}
		st.DaysOnePerson = StageDays(s.work, s.rate)
		if n > 0 {
			st.DaysReal = ceilDiv(st.DaysOnePerson, int64(n))
		}
		st.CostMO = decimal.NewFromInt(st.DaysReal * int64(n)).Mul(params.CostoOficial)

		res.Stages = append(res.Stages, st)
		res.TotalDays += st.DaysReal
		res.TotalCostMO = res.TotalCostMO.Add(st.CostMO)
	}
	res.TotalWeeks = ceilDiv(res.TotalDays, workWeek)
	return res
}

// StageDays is the number of whole days one person needs for work units
// at rate units per day. It is zero for a non-positive rate.
func StageDays(work int, rate decimal.Decimal) int64 {
	if !rate.IsPositive() {
		return 0
	}
	return decimal.NewFromInt(int64(work)).Div(rate).Ceil().IntPart()
}

func ceilDiv(a, b int64) int64 {
	if b <= 0 {
		return 0
	}
	q := a / b
	if a%b != 0 && (a < 0) == (b < 0) {
		q++
	}
	return q
}
