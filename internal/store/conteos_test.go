package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/electripro/electripro/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConteoStore_Create(t *testing.T) {
	f := newFixture(t)

	c, err := f.st.Conteos.Create("obra-1")
	require.NoError(t, err)
	assert.Regexp(t, `^conteo-\d+-[0-9a-z]{9}$`, c.ID)
	assert.Equal(t, "obra-1", c.ObraID)
	require.Len(t, c.Rooms, 14)
	assert.Equal(t, "Cocina", c.Rooms[0].Name)
	assert.Equal(t, "Escalera", c.Rooms[13].Name)
}

func TestConteoStore_UpdateRoom(t *testing.T) {
	f := newFixture(t)
	c, err := f.st.Conteos.Create("")
	require.NoError(t, err)

	got, err := f.st.Conteos.UpdateRoom(c.ID, 1, RoomUpdate{Bocas: intPtr(3), Cano34: intPtr(12), Obs: strPtr("doble altura")})
	require.NoError(t, err)
	r := got.Rooms[1]
	assert.Equal(t, "Comedor", r.Name)
	assert.Equal(t, 3, r.Bocas)
	assert.Equal(t, 12, r.Cano34)
	assert.Equal(t, "doble altura", r.Obs)
	assert.Zero(t, r.TomasSimp)

	got, err = f.st.Conteos.UpdateRoom(c.ID, 1, RoomUpdate{TomasSimp: intPtr(2)})
	require.NoError(t, err)
	assert.Equal(t, 3, got.Rooms[1].Bocas, "other fields kept")
	assert.Equal(t, 2, got.Rooms[1].TomasSimp)

	// The cached copy carries the same counts.
	items, ok := f.cache.Get(CacheKey(TableConteos))
	require.True(t, ok)
	var cached model.Conteo
	require.NoError(t, json.Unmarshal(items[0], &cached))
	assert.Equal(t, got.Rooms[1], cached.Rooms[1])
}

func TestConteoStore_UpdateRoomRejectsNegative(t *testing.T) {
	f := newFixture(t)
	c, err := f.st.Conteos.Create("")
	require.NoError(t, err)

	_, err = f.st.Conteos.UpdateRoom(c.ID, 0, RoomUpdate{Bocas: intPtr(-1)})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))

	stored, _ := f.st.Conteos.ByID(c.ID)
	assert.Zero(t, stored.Rooms[0].Bocas)

	_, err = f.st.Conteos.UpdateRoom(c.ID, 99, RoomUpdate{Bocas: intPtr(1)})
	require.True(t, errors.As(err, &verr))
}

func TestConteoStore_AddAndRemoveRoom(t *testing.T) {
	f := newFixture(t)
	c, err := f.st.Conteos.Create("")
	require.NoError(t, err)

	got, err := f.st.Conteos.AddRoom(c.ID, " Quincho ")
	require.NoError(t, err)
	require.Len(t, got.Rooms, 15)
	assert.Equal(t, "Quincho", got.Rooms[14].Name)

	_, err = f.st.Conteos.AddRoom(c.ID, "  ")
	assert.Error(t, err)

	got, err = f.st.Conteos.RemoveRoom(c.ID, 0)
	require.NoError(t, err)
	require.Len(t, got.Rooms, 14)
	assert.Equal(t, "Comedor", got.Rooms[0].Name)

	_, err = f.st.Conteos.RemoveRoom(c.ID, -1)
	assert.Error(t, err)
}

func TestConteoStore_UpdateReplacesRooms(t *testing.T) {
	f := newFixture(t)
	c, err := f.st.Conteos.Create("")
	require.NoError(t, err)

	rooms := []model.Room{{Name: "Único", Bocas: 5}}
	got, err := f.st.Conteos.Update(c.ID, ConteoUpdate{Rooms: &rooms, ObraID: strPtr("obra-9")})
	require.NoError(t, err)
	assert.Equal(t, rooms, got.Rooms)
	assert.Equal(t, "obra-9", got.ObraID)

	bad := []model.Room{{Name: "Mal", Cano1: -2}}
	_, err = f.st.Conteos.Update(c.ID, ConteoUpdate{Rooms: &bad})
	assert.Error(t, err)
}

func TestConteoStore_Latest(t *testing.T) {
	f := newFixture(t)

	_, ok := f.st.Conteos.Latest()
	assert.False(t, ok)

	a, err := f.st.Conteos.Create("obra-1")
	require.NoError(t, err)
	b, err := f.st.Conteos.Create("obra-2")
	require.NoError(t, err)

	latest, ok := f.st.Conteos.Latest()
	require.True(t, ok)
	assert.Equal(t, b.ID, latest.ID)

	forObra, ok := f.st.Conteos.LatestForObra("obra-1")
	require.True(t, ok)
	assert.Equal(t, a.ID, forObra.ID)

	_, ok = f.st.Conteos.LatestForObra("obra-3")
	assert.False(t, ok)
}

func TestConteoStore_Delete(t *testing.T) {
	f := newFixture(t)
	c, err := f.st.Conteos.Create("")
	require.NoError(t, err)

	require.NoError(t, f.st.Conteos.Delete(c.ID))
	assert.Empty(t, f.st.Conteos.All())
	assert.Empty(t, cachedIDs(t, f.cache, TableConteos))

	f.rec.Flush(context.Background())
	assert.Empty(t, f.remote.Rows(TableConteos))
}
