package store

import (
	"context"
	"errors"
	"testing"

	"github.com/electripro/electripro/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceStore_Add(t *testing.T) {
	f := newFixture(t)

	item := model.PriceItem{
		Code:     "CJ-010",
		Category: model.CategoryCajas,
		Name:     "Caja estanca",
		Unit:     model.UnitPiece,
		Cost:     decimal.NewFromInt(3000),
		Price:    decimal.NewFromInt(7000),
	}
	got, err := f.st.Prices.Add(item)
	require.NoError(t, err)
	assert.False(t, got.UpdatedAt.IsZero())
	assert.Equal(t, 46, f.st.Prices.Len())

	ids := cachedIDs(t, f.cache, TablePrices)
	assert.Equal(t, "CJ-010", ids[len(ids)-1])

	f.rec.Flush(context.Background())
	assert.Contains(t, remoteIDs(f.remote, TablePrices), "CJ-010")
}

func TestPriceStore_AddRejectsDuplicateCode(t *testing.T) {
	f := newFixture(t)

	_, err := f.st.Prices.Add(model.PriceItem{Code: "BL-001", Category: model.CategoryBocas, Name: "Otra", Unit: model.UnitPiece})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicate))
	assert.Equal(t, 45, f.st.Prices.Len())
}

func TestPriceStore_AddRejectsInvalid(t *testing.T) {
	f := newFixture(t)

	_, err := f.st.Prices.Add(model.PriceItem{Code: "Z-1", Category: "luces", Name: "x", Unit: model.UnitPiece})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, 45, f.st.Prices.Len())
}

func TestPriceStore_Update(t *testing.T) {
	f := newFixture(t)

	price := decimal.NewFromInt(25000)
	got, err := f.st.Prices.Update("BL-001", PriceUpdate{Price: &price})
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(price))
	assert.True(t, got.Cost.Equal(decimal.NewFromInt(8500)), "cost left alone")
	assert.Equal(t, "Boca de luz simple (centro)", got.Name)

	stored, _ := f.st.Prices.ByCode("BL-001")
	assert.True(t, stored.Price.Equal(price))

	neg := decimal.NewFromInt(-1)
	_, err = f.st.Prices.Update("BL-001", PriceUpdate{Cost: &neg})
	require.Error(t, err)
	stored, _ = f.st.Prices.ByCode("BL-001")
	assert.True(t, stored.Cost.Equal(decimal.NewFromInt(8500)), "failed update must not mutate")

	_, err = f.st.Prices.Update("NOPE-1", PriceUpdate{Price: &price})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestPriceStore_DeleteAndReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.st.Prices.Delete("MO-004"))
	_, ok := f.st.Prices.ByCode("MO-004")
	assert.False(t, ok)
	assert.True(t, errors.Is(f.st.Prices.Delete("MO-004"), ErrNotFound))

	f.rec.Flush(ctx)
	assert.NotContains(t, remoteIDs(f.remote, TablePrices), "MO-004")

	require.NoError(t, f.st.Prices.ResetToDefaults(ctx))
	assert.Equal(t, 45, f.st.Prices.Len())
	assert.Len(t, f.remote.Rows(TablePrices), 45)
}

func TestPriceStore_ByCategory(t *testing.T) {
	f := newFixture(t)

	tomas := f.st.Prices.ByCategory(model.CategoryTomas)
	require.NotEmpty(t, tomas)
	for _, p := range tomas {
		assert.Equal(t, model.CategoryTomas, p.Category)
	}
	assert.Empty(t, f.st.Prices.ByCategory("luces"))
}

func TestPriceStore_NextCode(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, "MO", f.st.Prices.CodePrefix(model.CategoryManoObra))
	assert.Equal(t, "MO-005", f.st.Prices.NextCode("MO"))
	assert.Equal(t, "MO-005", f.st.Prices.NextCode("mo-"))
	assert.Equal(t, "ZZ-001", f.st.Prices.NextCode("ZZ"))
}
