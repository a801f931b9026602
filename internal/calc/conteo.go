package calc

import (
	"github.com/electripro/electripro/internal/model"
	"github.com/shopspring/decimal"
)

// ConteoTotals are the per-field sums of a conteo plus the derived counts.
type ConteoTotals struct {
	Bocas     int `json:"bocas"`
	TomasSimp int `json:"tomasSimp"`
	TomasDob  int `json:"tomasDob"`
	Tomas20   int `json:"tomas20"`
	CajasPaso int `json:"cajasPaso"`
	Cano34    int `json:"cano34"`
	Cano1     int `json:"cano1"`

	TotalTomas  int `json:"totalTomas"`
	TotalCano   int `json:"totalCano"`
	TotalPuntos int `json:"totalPuntos"`
}

// SumRooms totals the fixture counts of rooms.
func SumRooms(rooms []model.Room) ConteoTotals {
	var t ConteoTotals
	for _, r := range rooms {
		t.Bocas += r.Bocas
		t.TomasSimp += r.TomasSimp
		t.TomasDob += r.TomasDob
		t.Tomas20 += r.Tomas20
		t.CajasPaso += r.CajasPaso
		t.Cano34 += r.Cano34
		t.Cano1 += r.Cano1
	}
	t.TotalTomas = t.TomasSimp + t.TomasDob + t.Tomas20
	t.TotalCano = t.Cano34 + t.Cano1
	t.TotalPuntos = t.Bocas + t.TotalTomas
	return t
}

// conteoMapping pairs each counted field with the catalog code it is
// quoted at.
var conteoMapping = []struct {
	code  string
	count func(ConteoTotals) int
}{
	{"BL-001", func(t ConteoTotals) int { return t.Bocas }},
	{"TC-001", func(t ConteoTotals) int { return t.TomasSimp }},
	{"TC-002", func(t ConteoTotals) int { return t.TomasDob }},
	{"TC-003", func(t ConteoTotals) int { return t.Tomas20 }},
	{"CJ-004", func(t ConteoTotals) int { return t.CajasPaso }},
	{"CA-001", func(t ConteoTotals) int { return t.Cano34 }},
	{"CA-002", func(t ConteoTotals) int { return t.Cano1 }},
}

// ConteoToBudget turns conteo totals into budget lines priced from the
// catalog. Fields with a zero count, or whose code is missing from prices,
// produce no line.
func ConteoToBudget(totals ConteoTotals, prices []model.PriceItem) []model.BudgetLine {
	byCode := make(map[string]model.PriceItem, len(prices))
	for _, p := range prices {
		byCode[p.Code] = p
	}

	lines := make([]model.BudgetLine, 0, len(conteoMapping))
	for _, m := range conteoMapping {
		qty := m.count(totals)
		if qty <= 0 {
			continue
		}
		p, ok := byCode[m.code]
		if !ok {
			continue
		}
		lines = append(lines, model.BudgetLine{
			Code:      p.Code,
			Name:      p.Name,
			Unit:      p.Unit,
			Qty:       decimal.NewFromInt(int64(qty)),
			UnitPrice: p.Price,
			Cost:      p.Cost,
		})
	}
	return lines
}
