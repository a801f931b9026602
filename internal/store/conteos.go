package store

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/electripro/electripro/internal/model"
)

// ConteoStore holds the room-by-room fixture counts.
type ConteoStore struct {
	c   *collection[model.Conteo]
	env *env
}

func newConteoStore(e *env) *ConteoStore {
	return &ConteoStore{
		c: newCollection(e, TableConteos, "id",
			func(c model.Conteo) string { return c.ID },
			func(c model.Conteo) model.Conteo {
				c.Rooms = slices.Clone(c.Rooms)
				return c
			}),
		env: e,
	}
}

func (s *ConteoStore) load(ctx context.Context) { s.c.load(ctx) }

// All returns every conteo in creation order.
func (s *ConteoStore) All() []model.Conteo { return s.c.all() }

// ByID returns the conteo with the given id.
func (s *ConteoStore) ByID(id string) (model.Conteo, bool) { return s.c.get(id) }

// Latest returns the most recently created conteo.
func (s *ConteoStore) Latest() (model.Conteo, bool) { return s.c.last() }

// LatestForObra returns the most recently created conteo of an obra.
func (s *ConteoStore) LatestForObra(obraID string) (model.Conteo, bool) {
	matches := s.c.filter(func(c model.Conteo) bool { return c.ObraID == obraID })
	if len(matches) == 0 {
		return model.Conteo{}, false
	}
	return matches[len(matches)-1], true
}

// Create adds a conteo with the default rooms, all counts zero.
func (s *ConteoStore) Create(obraID string) (model.Conteo, error) {
	now := s.env.now()
	c := model.Conteo{
		ID:        NewID("conteo", now),
		ObraID:    obraID,
		Rooms:     model.DefaultRooms(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	return s.c.create(func([]model.Conteo) (model.Conteo, error) { return c, nil })
}

// ConteoUpdate holds the fields to change; nil fields are left alone.
type ConteoUpdate struct {
	ObraID *string
	Rooms  *[]model.Room
}

// Update changes the conteo with the given id.
func (s *ConteoStore) Update(id string, u ConteoUpdate) (model.Conteo, error) {
	return s.c.update(id, func(c *model.Conteo) error {
		setString(&c.ObraID, u.ObraID)
		if u.Rooms != nil {
			c.Rooms = slices.Clone(*u.Rooms)
		}
		c.UpdatedAt = s.env.now()
		return invalid("conteo", c.Validate())
	})
}

// RoomUpdate holds the room fields to change; nil fields are left alone.
type RoomUpdate struct {
	Name      *string
	Bocas     *int
	TomasSimp *int
	TomasDob  *int
	Tomas20   *int
	CajasPaso *int
	Cano34    *int
	Cano1     *int
	Obs       *string
}

// UpdateRoom changes the room at index.
func (s *ConteoStore) UpdateRoom(id string, index int, u RoomUpdate) (model.Conteo, error) {
	return s.c.update(id, func(c *model.Conteo) error {
		if err := checkRoomIndex(c, index); err != nil {
			return err
		}
		r := c.Rooms[index]
		setString(&r.Name, u.Name)
		setString(&r.Obs, u.Obs)
		for _, f := range []struct {
			dst *int
			v   *int
		}{
			{&r.Bocas, u.Bocas},
			{&r.TomasSimp, u.TomasSimp},
			{&r.TomasDob, u.TomasDob},
			{&r.Tomas20, u.Tomas20},
			{&r.CajasPaso, u.CajasPaso},
			{&r.Cano34, u.Cano34},
			{&r.Cano1, u.Cano1},
		} {
			if f.v != nil {
				*f.dst = *f.v
			}
		}
		if err := r.Validate(); err != nil {
			return invalid("room", err)
		}
		c.Rooms[index] = r
		c.UpdatedAt = s.env.now()
		return nil
	})
}

// AddRoom appends an empty room called name.
func (s *ConteoStore) AddRoom(id, name string) (model.Conteo, error) {
	name = strings.TrimSpace(name)
	return s.c.update(id, func(c *model.Conteo) error {
		room := model.NewRoom(name)
		if err := room.Validate(); err != nil {
			return invalid("room", err)
		}
		c.Rooms = append(c.Rooms, room)
		c.UpdatedAt = s.env.now()
		return nil
	})
}

// RemoveRoom drops the room at index.
func (s *ConteoStore) RemoveRoom(id string, index int) (model.Conteo, error) {
	return s.c.update(id, func(c *model.Conteo) error {
		if err := checkRoomIndex(c, index); err != nil {
			return err
		}
		c.Rooms = slices.Delete(c.Rooms, index, index+1)
		c.UpdatedAt = s.env.now()
		return nil
	})
}

// Delete removes the conteo with the given id.
func (s *ConteoStore) Delete(id string) error { return s.c.remove(id) }

func checkRoomIndex(c *model.Conteo, index int) error {
	if index < 0 || index >= len(c.Rooms) {
		return invalid("room", fmt.Errorf("index %d out of range (conteo has %d rooms)", index, len(c.Rooms)))
	}
	return nil
}
