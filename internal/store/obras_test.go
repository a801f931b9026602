package store

import (
	"errors"
	"testing"

	"github.com/electripro/electripro/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObraStore_Create(t *testing.T) {
	f := newFixture(t)

	o, err := f.st.Obras.Create(ObraInput{Client: "  Pérez  ", Address: "Av. Siempreviva 742"})
	require.NoError(t, err)
	assert.Regexp(t, `^obra-\d+-[0-9a-z]{9}$`, o.ID)
	assert.Equal(t, 1, o.Number)
	assert.Equal(t, "Pérez", o.Client)
	assert.Equal(t, "2026-03-15", o.StartDate)
	assert.Equal(t, model.ObraQuoted, o.Status)
	assert.True(t, o.BudgetAmount.IsZero())

	o2, err := f.st.Obras.Create(ObraInput{Client: "Gómez", Status: model.ObraActive, StartDate: "2026-02-01"})
	require.NoError(t, err)
	assert.Equal(t, 2, o2.Number)
	assert.Equal(t, model.ObraActive, o2.Status)
	assert.Equal(t, "2026-02-01", o2.StartDate)
}

func TestObraStore_CreateRequiresClient(t *testing.T) {
	f := newFixture(t)

	_, err := f.st.Obras.Create(ObraInput{Address: "sin cliente"})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Empty(t, f.st.Obras.All())
}

func TestObraStore_Update(t *testing.T) {
	f := newFixture(t)
	o, err := f.st.Obras.Create(ObraInput{Client: "Pérez"})
	require.NoError(t, err)

	collected := decimal.NewFromInt(500000)
	status := model.ObraCollected
	got, err := f.st.Obras.Update(o.ID, ObraUpdate{CollectedAmount: &collected, Status: &status, PlanID: strPtr("plan-1")})
	require.NoError(t, err)
	assert.True(t, got.CollectedAmount.Equal(collected))
	assert.Equal(t, model.ObraCollected, got.Status)
	assert.Equal(t, "plan-1", got.PlanID)
	assert.Equal(t, "Pérez", got.Client)

	_, err = f.st.Obras.Update(o.ID, ObraUpdate{Client: strPtr("")})
	require.Error(t, err)
	_, err = f.st.Obras.Update(o.ID, ObraUpdate{EndDate: strPtr("15/03/2026")})
	require.Error(t, err)
	neg := decimal.NewFromInt(-10)
	_, err = f.st.Obras.Update(o.ID, ObraUpdate{BudgetAmount: &neg})
	require.Error(t, err)

	stored, _ := f.st.Obras.ByID(o.ID)
	assert.Equal(t, "Pérez", stored.Client)
	assert.Empty(t, stored.EndDate)

	_, err = f.st.Obras.Update("missing", ObraUpdate{})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestObraStore_Search(t *testing.T) {
	f := newFixture(t)
	mk := func(client, address string, status model.ObraStatus) {
		_, err := f.st.Obras.Create(ObraInput{Client: client, Address: address, Status: status})
		require.NoError(t, err)
	}
	mk("Juan Pérez", "Mitre 100", model.ObraActive)
	mk("Ana Gómez", "Belgrano 250", model.ObraQuoted)
	mk("Luis Pereyra", "San Martín 12", model.ObraActive)

	clients := func(obras []model.Obra) []string {
		var out []string
		for _, o := range obras {
			out = append(out, o.Client)
		}
		return out
	}

	assert.Equal(t, []string{"Juan Pérez", "Luis Pereyra"}, clients(f.st.Obras.Search("", model.ObraActive)))
	assert.Equal(t, []string{"Luis Pereyra"}, clients(f.st.Obras.Search("PEREY", "")))
	assert.Equal(t, []string{"Ana Gómez"}, clients(f.st.Obras.Search("belgrano", "")))
	assert.Equal(t, []string{"Ana Gómez"}, clients(f.st.Obras.Search("2", model.ObraQuoted)))
	assert.Empty(t, f.st.Obras.Search("zzz", ""))
	assert.Len(t, f.st.Obras.Search("", ""), 3)
}
