package store

import (
	"errors"
	"testing"

	"github.com/electripro/electripro/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanStore_CreateUsesConfiguredRates(t *testing.T) {
	f := newFixture(t)

	rates := model.DefaultPlanParams()
	rates.RendCano = decimal.NewFromInt(30)
	_, err := f.st.Config.Update(ConfigUpdate{Rendimientos: &rates})
	require.NoError(t, err)

	p, err := f.st.Plans.Create("obra-1")
	require.NoError(t, err)
	assert.Regexp(t, `^plan-\d+-[0-9a-z]{9}$`, p.ID)
	assert.Equal(t, "obra-1", p.ObraID)
	assert.True(t, p.Params.RendCano.Equal(decimal.NewFromInt(30)))
	assert.Equal(t, model.DefaultEmployees(), p.Employees)
	assert.Equal(t, model.DefaultArtefactosCount, p.ArtefactosCount)
}

func TestPlanStore_Update(t *testing.T) {
	f := newFixture(t)
	p, err := f.st.Plans.Create("")
	require.NoError(t, err)

	emp := model.Employees{Caneria: 3, Amurado: 1, Cableado: 4, Artefactos: 2}
	got, err := f.st.Plans.Update(p.ID, PlanUpdate{Employees: &emp, ArtefactosCount: intPtr(24)})
	require.NoError(t, err)
	assert.Equal(t, emp, got.Employees)
	assert.Equal(t, 24, got.ArtefactosCount)
	assert.Equal(t, p.Params, got.Params)

	bad := model.Employees{Caneria: -1}
	_, err = f.st.Plans.Update(p.ID, PlanUpdate{Employees: &bad})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))

	params := p.Params
	params.CostoOficial = decimal.NewFromInt(-5)
	_, err = f.st.Plans.Update(p.ID, PlanUpdate{Params: &params})
	require.True(t, errors.As(err, &verr))

	require.NoError(t, f.st.Plans.Delete(p.ID))
	_, ok := f.st.Plans.ByID(p.ID)
	assert.False(t, ok)
}
