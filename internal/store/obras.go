package store

import (
	"context"
	"strconv"
	"strings"

	"github.com/electripro/electripro/internal/model"
	"github.com/shopspring/decimal"
)

// ObraStore holds the job sites.
type ObraStore struct {
	c   *collection[model.Obra]
	env *env
}

func newObraStore(e *env) *ObraStore {
	return &ObraStore{
		c:   newCollection(e, TableObras, "id", func(o model.Obra) string { return o.ID }, nil),
		env: e,
	}
}

func (s *ObraStore) load(ctx context.Context) { s.c.load(ctx) }

// All returns every obra in creation order.
func (s *ObraStore) All() []model.Obra { return s.c.all() }

// ByID returns the obra with the given id.
func (s *ObraStore) ByID(id string) (model.Obra, bool) { return s.c.get(id) }

// Search returns the obras whose client, address or number contains query
// (case-insensitive), limited to status when it is not empty.
func (s *ObraStore) Search(query string, status model.ObraStatus) []model.Obra {
	q := strings.ToLower(strings.TrimSpace(query))
	return s.c.filter(func(o model.Obra) bool {
		if status != "" && o.Status != status {
			return false
		}
		if q == "" {
			return true
		}
		return strings.Contains(strings.ToLower(o.Client), q) ||
			strings.Contains(strings.ToLower(o.Address), q) ||
			strings.Contains(strconv.Itoa(o.Number), q)
	})
}

// ObraInput holds the fields of a new obra. Client is required. A zero
// StartDate means today and a zero Status means presupuestada.
type ObraInput struct {
	Client          string
	Address         string
	StartDate       string
	EndDate         string
	BudgetAmount    decimal.Decimal
	CollectedAmount decimal.Decimal
	Status          model.ObraStatus
	TotalPoints     int
	PresupuestoID   string
	ConteoID        string
	PlanID          string
	Notes           string
}

// Create adds an obra numbered after the highest existing one.
func (s *ObraStore) Create(in ObraInput) (model.Obra, error) {
	now := s.env.now()
	o := model.Obra{
		ID:              NewID("obra", now),
		Client:          strings.TrimSpace(in.Client),
		Address:         in.Address,
		StartDate:       in.StartDate,
		EndDate:         in.EndDate,
		BudgetAmount:    in.BudgetAmount,
		CollectedAmount: in.CollectedAmount,
		Status:          in.Status,
		TotalPoints:     in.TotalPoints,
		PresupuestoID:   in.PresupuestoID,
		ConteoID:        in.ConteoID,
		PlanID:          in.PlanID,
		Notes:           in.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if o.StartDate == "" {
		o.StartDate = s.env.today()
	}
	if o.Status == "" {
		o.Status = model.ObraQuoted
	}

	return s.c.create(func(existing []model.Obra) (model.Obra, error) {
		nums := make([]int, len(existing))
		for i, e := range existing {
			nums[i] = e.Number
		}
		o.Number = NextNumber(nums)
		if err := o.Validate(); err != nil {
			return model.Obra{}, invalid("obra", err)
		}
		return o, nil
	})
}

// ObraUpdate holds the fields to change; nil fields are left alone.
type ObraUpdate struct {
	Client          *string
	Address         *string
	StartDate       *string
	EndDate         *string
	BudgetAmount    *decimal.Decimal
	CollectedAmount *decimal.Decimal
	Status          *model.ObraStatus
	TotalPoints     *int
	PresupuestoID   *string
	ConteoID        *string
	PlanID          *string
	Notes           *string
}

// Update changes the obra with the given id.
func (s *ObraStore) Update(id string, u ObraUpdate) (model.Obra, error) {
	return s.c.update(id, func(o *model.Obra) error {
		if u.Client != nil {
			o.Client = strings.TrimSpace(*u.Client)
		}
		setString(&o.Address, u.Address)
		setString(&o.StartDate, u.StartDate)
		setString(&o.EndDate, u.EndDate)
		setString(&o.PresupuestoID, u.PresupuestoID)
		setString(&o.ConteoID, u.ConteoID)
		setString(&o.PlanID, u.PlanID)
		setString(&o.Notes, u.Notes)
		if u.BudgetAmount != nil {
			o.BudgetAmount = *u.BudgetAmount
		}
		if u.CollectedAmount != nil {
			o.CollectedAmount = *u.CollectedAmount
		}
		if u.Status != nil {
			o.Status = *u.Status
		}
		if u.TotalPoints != nil {
			o.TotalPoints = *u.TotalPoints
		}
		o.UpdatedAt = s.env.now()
		return invalid("obra", o.Validate())
	})
}

// Delete removes the obra with the given id.
func (s *ObraStore) Delete(id string) error { return s.c.remove(id) }
