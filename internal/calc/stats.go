package calc

import (
	"sort"
	"time"

	"github.com/electripro/electripro/internal/model"
	"github.com/shopspring/decimal"
)

// Stats are the headline figures of the dashboard.
type Stats struct {
	ObrasActivas     int             `json:"obrasActivas"`
	PresupPendientes int             `json:"presupPendientes"`
	FacturacionMes   decimal.Decimal `json:"facturacionMes"`
	AvgMargin        decimal.Decimal `json:"avgMargin"`
}

// DashboardStats counts active obras and sent budgets, sums this month's
// accepted budgets and averages the gross margin of every accepted budget.
func DashboardStats(budgets []model.Budget, obras []model.Obra, now time.Time) Stats {
	var s Stats
	for _, o := range obras {
		if o.Status == model.ObraActive {
			s.ObrasActivas++
		}
	}

	accepted := 0
	marginSum := decimal.Zero
	for _, b := range budgets {
		switch b.Status {
		case model.BudgetSent:
			s.PresupPendientes++
		case model.BudgetAccepted:
			t := BudgetTotalsOf(b)
			accepted++
			marginSum = marginSum.Add(t.MarginBruto)
			if sameMonth(b.Date, now) {
				s.FacturacionMes = s.FacturacionMes.Add(t.Total)
			}
		}
	}
	if accepted > 0 {
		s.AvgMargin = marginSum.Div(decimal.NewFromInt(int64(accepted)))
	}
	return s
}

// MonthTotal is the billing of one calendar month.
type MonthTotal struct {
	Year  int             `json:"year"`
	Month time.Month      `json:"month"`
	Total decimal.Decimal `json:"total"`
}

// MonthlyBilling sums the totals of accepted budgets for each of the last
// months calendar months, oldest first, ending with the month of now.
func MonthlyBilling(budgets []model.Budget, now time.Time, months int) []MonthTotal {
	if months <= 0 {
		return []MonthTotal{}
	}
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	out := make([]MonthTotal, 0, months)
	for i := months - 1; i >= 0; i-- {
		m := first.AddDate(0, -i, 0)
		out = append(out, MonthTotal{Year: m.Year(), Month: m.Month(), Total: decimal.Zero})
	}

	for _, b := range budgets {
		if b.Status != model.BudgetAccepted {
			continue
		}
		d, ok := parseDate(b.Date, now.Location())
		if !ok {
			continue
		}
		for i := range out {
			if out[i].Year == d.Year() && out[i].Month == d.Month() {
				out[i].Total = out[i].Total.Add(BudgetTotalsOf(b).Total)
				break
			}
		}
	}
	return out
}

// CategoryTotal is the billed amount of one catalog category.
type CategoryTotal struct {
	Category model.Category  `json:"category"`
	Name     string          `json:"name"`
	Total    decimal.Decimal `json:"total"`
}

// CategoryDistribution sums the line subtotals of every budget by the
// catalog category of each line's code. Lines whose code is not in prices
// are ignored. Categories with nothing billed are omitted.
func CategoryDistribution(budgets []model.Budget, prices []model.PriceItem) []CategoryTotal {
	catOf := make(map[string]model.Category, len(prices))
	for _, p := range prices {
		catOf[p.Code] = p.Category
	}

	sums := make(map[model.Category]decimal.Decimal)
	for _, b := range budgets {
		for _, it := range b.Items {
			cat, ok := catOf[it.Code]
			if !ok {
				continue
			}
			sums[cat] = sums[cat].Add(ItemSubtotal(it.Qty, it.UnitPrice))
		}
	}

	out := make([]CategoryTotal, 0, len(sums))
	for _, info := range model.Categories() {
		total, ok := sums[info.ID]
		if !ok {
			continue
		}
		out = append(out, CategoryTotal{Category: info.ID, Name: info.Name, Total: total})
	}
	return out
}

// RecentObras returns up to n obras, newest first.
func RecentObras(obras []model.Obra, n int) []model.Obra {
	sorted := append([]model.Obra(nil), obras...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func parseDate(s string, loc *time.Location) (time.Time, bool) {
	d, err := time.ParseInLocation(time.DateOnly, s, loc)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

func sameMonth(date string, now time.Time) bool {
	d, ok := parseDate(date, now.Location())
	return ok && d.Year() == now.Year() && d.Month() == now.Month()
}
