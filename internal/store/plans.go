package store

import (
	"context"

	"github.com/electripro/electripro/internal/model"
)

// PlanStore holds the labor plans.
type PlanStore struct {
	c      *collection[model.Plan]
	env    *env
	config *ConfigStore
}

func newPlanStore(e *env, cfg *ConfigStore) *PlanStore {
	return &PlanStore{
		c:      newCollection(e, TablePlans, "id", func(p model.Plan) string { return p.ID }, nil),
		env:    e,
		config: cfg,
	}
}

func (s *PlanStore) load(ctx context.Context) { s.c.load(ctx) }

// All returns every plan in creation order.
func (s *PlanStore) All() []model.Plan { return s.c.all() }

// ByID returns the plan with the given id.
func (s *PlanStore) ByID(id string) (model.Plan, bool) { return s.c.get(id) }

// Create adds a plan using the configured productivity rates, the default
// crew and the default fixture count.
func (s *PlanStore) Create(obraID string) (model.Plan, error) {
	now := s.env.now()
	p := model.Plan{
		ID:              NewID("plan", now),
		ObraID:          obraID,
		Params:          s.config.Get().Rendimientos,
		Employees:       model.DefaultEmployees(),
		ArtefactosCount: model.DefaultArtefactosCount,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	return s.c.create(func([]model.Plan) (model.Plan, error) {
		if err := p.Validate(); err != nil {
			return model.Plan{}, invalid("plan", err)
		}
		return p, nil
	})
}

// PlanUpdate holds the fields to change; nil fields are left alone.
type PlanUpdate struct {
	ObraID          *string
	Params          *model.PlanParams
	Employees       *model.Employees
	ArtefactosCount *int
}

// Update changes the plan with the given id.
func (s *PlanStore) Update(id string, u PlanUpdate) (model.Plan, error) {
	return s.c.update(id, func(p *model.Plan) error {
		setString(&p.ObraID, u.ObraID)
		if u.Params != nil {
			p.Params = *u.Params
		}
		if u.Employees != nil {
			p.Employees = *u.Employees
		}
		if u.ArtefactosCount != nil {
			p.ArtefactosCount = *u.ArtefactosCount
		}
		p.UpdatedAt = s.env.now()
		return invalid("plan", p.Validate())
	})
}

// Delete removes the plan with the given id.
func (s *PlanStore) Delete(id string) error { return s.c.remove(id) }
