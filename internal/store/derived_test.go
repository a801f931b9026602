package store

import (
	"errors"
	"testing"
	"time"

	"github.com/electripro/electripro/internal/calc"
	"github.com/electripro/electripro/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countedConteo creates a conteo for obraID with 7 bocas, 3 simple and 1
// double outlets.
func countedConteo(t *testing.T, f *fixture, obraID string) model.Conteo {
	t.Helper()
	c, err := f.st.Conteos.Create(obraID)
	require.NoError(t, err)
	_, err = f.st.Conteos.UpdateRoom(c.ID, 0, RoomUpdate{Bocas: intPtr(4), TomasSimp: intPtr(2), TomasDob: intPtr(1)})
	require.NoError(t, err)
	c, err = f.st.Conteos.UpdateRoom(c.ID, 2, RoomUpdate{Bocas: intPtr(3), TomasSimp: intPtr(1)})
	require.NoError(t, err)
	return c
}

func TestPlanningFor(t *testing.T) {
	f := newFixture(t)
	countedConteo(t, f, "obra-1")

	p, err := f.st.Plans.Create("obra-1")
	require.NoError(t, err)

	res, err := f.st.PlanningFor(p.ID)
	require.NoError(t, err)
	require.Len(t, res.Stages, 4)
	assert.EqualValues(t, 4, res.TotalDays)
	assert.True(t, res.TotalCostMO.Equal(decimal.NewFromInt(510000)), res.TotalCostMO.String())
	assert.EqualValues(t, 1, res.TotalWeeks)

	_, err = f.st.PlanningFor("missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestPlanningFor_PrefersObraConteo(t *testing.T) {
	f := newFixture(t)
	countedConteo(t, f, "obra-1")
	other, err := f.st.Conteos.Create("obra-2")
	require.NoError(t, err)
	_, err = f.st.Conteos.UpdateRoom(other.ID, 0, RoomUpdate{Bocas: intPtr(100)})
	require.NoError(t, err)

	p, err := f.st.Plans.Create("obra-1")
	require.NoError(t, err)
	res, err := f.st.PlanningFor(p.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, res.Stages[1].Work)

	// A plan without an obra uses the latest conteo.
	loose, err := f.st.Plans.Create("")
	require.NoError(t, err)
	res, err = f.st.PlanningFor(loose.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, res.Stages[1].Work)
}

func TestObraProfitability(t *testing.T) {
	f := newFixture(t)

	o, err := f.st.Obras.Create(ObraInput{Client: "Pérez", BudgetAmount: decimal.NewFromInt(1000000)})
	require.NoError(t, err)

	// Without links only revenue counts.
	p, err := f.st.ObraProfitability(o.ID)
	require.NoError(t, err)
	assert.True(t, p.Percent.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, calc.LevelGreen, p.Level)

	countedConteo(t, f, o.ID)
	plan, err := f.st.Plans.Create(o.ID)
	require.NoError(t, err)
	b, err := f.st.Budgets.Create(BudgetInput{})
	require.NoError(t, err)
	_, err = f.st.Budgets.AddLine(b.ID, "BL-001", decimal.NewFromInt(10))
	require.NoError(t, err)

	_, err = f.st.Obras.Update(o.ID, ObraUpdate{PlanID: &plan.ID, PresupuestoID: &b.ID})
	require.NoError(t, err)

	// Labor 510000 plus material 10 × 8500.
	p, err = f.st.ObraProfitability(o.ID)
	require.NoError(t, err)
	assert.True(t, p.Profit.Equal(decimal.NewFromInt(405000)), p.Profit.String())
	assert.Equal(t, calc.LevelGreen, p.Level)

	// Collected 550000 against 595000 of cost.
	collected := decimal.NewFromInt(550000)
	_, err = f.st.Obras.Update(o.ID, ObraUpdate{CollectedAmount: &collected})
	require.NoError(t, err)
	p, err = f.st.ObraProfitability(o.ID)
	require.NoError(t, err)
	assert.True(t, p.Revenue.Equal(collected))
	assert.True(t, p.Profit.IsNegative())
	assert.Equal(t, calc.LevelRed, p.Level)

	_, err = f.st.ObraProfitability("missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStatsAndDashboard(t *testing.T) {
	f := newFixture(t)

	_, err := f.st.Obras.Create(ObraInput{Client: "A", Status: model.ObraActive})
	require.NoError(t, err)
	_, err = f.st.Obras.Create(ObraInput{Client: "B"})
	require.NoError(t, err)

	b, err := f.st.Budgets.Create(BudgetInput{})
	require.NoError(t, err)
	_, err = f.st.Budgets.AddLine(b.ID, "BL-001", decimal.NewFromInt(1))
	require.NoError(t, err)
	_, err = f.st.Budgets.SetStatus(b.ID, model.BudgetAccepted)
	require.NoError(t, err)
	sent, err := f.st.Budgets.Create(BudgetInput{})
	require.NoError(t, err)
	_, err = f.st.Budgets.SetStatus(sent.ID, model.BudgetSent)
	require.NoError(t, err)

	s := f.st.Stats()
	assert.Equal(t, 1, s.ObrasActivas)
	assert.Equal(t, 1, s.PresupPendientes)
	assert.True(t, s.FacturacionMes.Equal(decimal.NewFromInt(26620)), s.FacturacionMes.String())

	d := f.st.Dashboard()
	assert.Equal(t, s, d.Stats)
	require.Len(t, d.Billing, 6)
	assert.Equal(t, time.March, d.Billing[5].Month)
	require.Len(t, d.Distribution, 1)
	assert.Equal(t, model.CategoryBocas, d.Distribution[0].Category)
	require.Len(t, d.RecentObras, 2)
	assert.Equal(t, "B", d.RecentObras[0].Client)
}
