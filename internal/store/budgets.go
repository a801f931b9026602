package store

import (
	"context"
	"fmt"
	"slices"

	"github.com/electripro/electripro/internal/calc"
	"github.com/electripro/electripro/internal/model"
	"github.com/shopspring/decimal"
)

// DefaultValidity is the validity new budgets are quoted with.
const DefaultValidity = "15 días"

// BudgetStore holds the budgets.
type BudgetStore struct {
	c       *collection[model.Budget]
	env     *env
	config  *ConfigStore
	prices  *PriceStore
	conteos *ConteoStore
}

func newBudgetStore(e *env, cfg *ConfigStore, prices *PriceStore, conteos *ConteoStore) *BudgetStore {
	return &BudgetStore{
		c: newCollection(e, TableBudgets, "id",
			func(b model.Budget) string { return b.ID },
			func(b model.Budget) model.Budget {
				b.Items = slices.Clone(b.Items)
				return b
			}),
		env:     e,
		config:  cfg,
		prices:  prices,
		conteos: conteos,
	}
}

func (s *BudgetStore) load(ctx context.Context) { s.c.load(ctx) }

// All returns every budget in creation order.
func (s *BudgetStore) All() []model.Budget { return s.c.all() }

// ByID returns the budget with the given id.
func (s *BudgetStore) ByID(id string) (model.Budget, bool) { return s.c.get(id) }

// ByStatus returns the budgets in one status.
func (s *BudgetStore) ByStatus(status model.BudgetStatus) []model.Budget {
	return s.c.filter(func(b model.Budget) bool { return b.Status == status })
}

// Totals returns the derived totals of the budget with the given id.
func (s *BudgetStore) Totals(id string) (calc.Totals, error) {
	b, ok := s.ByID(id)
	if !ok {
		return calc.Totals{}, fmt.Errorf("%s %q: %w", TableBudgets, id, ErrNotFound)
	}
	return calc.BudgetTotalsOf(b), nil
}

// BudgetInput holds the fields of a new budget. Zero fields get defaults:
// today's date, a validity of 15 días and the configured IVA.
type BudgetInput struct {
	Date     string
	Validity string
	Client   model.Client
	Items    []model.BudgetLine
	IVA      *decimal.Decimal
	Notes    string
	ObraID   string
}

// Create adds a draft budget numbered after the highest existing one.
func (s *BudgetStore) Create(in BudgetInput) (model.Budget, error) {
	iva := s.config.IVADefault()
	if in.IVA != nil {
		iva = *in.IVA
	}
	now := s.env.now()
	b := model.Budget{
		ID:        NewID("pres", now),
		Date:      in.Date,
		Validity:  in.Validity,
		Client:    in.Client,
		Items:     slices.Clone(in.Items),
		IVA:       iva,
		Status:    model.BudgetDraft,
		Notes:     in.Notes,
		ObraID:    in.ObraID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if b.Date == "" {
		b.Date = s.env.today()
	}
	if b.Validity == "" {
		b.Validity = DefaultValidity
	}
	if b.Items == nil {
		b.Items = []model.BudgetLine{}
	}
	return s.insert(b)
}

// insert numbers b, validates it and appends it.
func (s *BudgetStore) insert(b model.Budget) (model.Budget, error) {
	return s.c.create(func(existing []model.Budget) (model.Budget, error) {
		b.Number = nextBudgetNumber(existing)
		if err := b.Validate(); err != nil {
			return model.Budget{}, invalid("budget", err)
		}
		return b, nil
	})
}

func nextBudgetNumber(existing []model.Budget) int {
	nums := make([]int, len(existing))
	for i, b := range existing {
		nums[i] = b.Number
	}
	return NextNumber(nums)
}

// BudgetUpdate holds the fields to change; nil fields are left alone.
type BudgetUpdate struct {
	Date     *string
	Validity *string
	Client   *model.Client
	Items    *[]model.BudgetLine
	IVA      *decimal.Decimal
	Status   *model.BudgetStatus
	Notes    *string
	ObraID   *string
}

// Update changes the budget with the given id.
func (s *BudgetStore) Update(id string, u BudgetUpdate) (model.Budget, error) {
	return s.c.update(id, func(b *model.Budget) error {
		setString(&b.Date, u.Date)
		setString(&b.Validity, u.Validity)
		setString(&b.Notes, u.Notes)
		setString(&b.ObraID, u.ObraID)
		if u.Client != nil {
			b.Client = *u.Client
		}
		if u.Items != nil {
			b.Items = slices.Clone(*u.Items)
			if b.Items == nil {
				b.Items = []model.BudgetLine{}
			}
		}
		if u.IVA != nil {
			b.IVA = *u.IVA
		}
		if u.Status != nil {
			b.Status = *u.Status
		}
		b.UpdatedAt = s.env.now()
		return invalid("budget", b.Validate())
	})
}

// SetStatus moves a budget to status. Any transition is allowed.
func (s *BudgetStore) SetStatus(id string, status model.BudgetStatus) (model.Budget, error) {
	return s.Update(id, BudgetUpdate{Status: &status})
}

// AddLine appends a line priced from the catalog entry code.
func (s *BudgetStore) AddLine(id, code string, qty decimal.Decimal) (model.Budget, error) {
	p, ok := s.prices.ByCode(code)
	if !ok {
		return model.Budget{}, fmt.Errorf("price %q: %w", code, ErrNotFound)
	}
	line := model.BudgetLine{
		Code:      p.Code,
		Name:      p.Name,
		Unit:      p.Unit,
		Qty:       qty,
		UnitPrice: p.Price,
		Cost:      p.Cost,
	}
	return s.c.update(id, func(b *model.Budget) error {
		b.Items = append(b.Items, line)
		b.UpdatedAt = s.env.now()
		return invalid("budget", b.Validate())
	})
}

// RemoveLine drops the line at index.
func (s *BudgetStore) RemoveLine(id string, index int) (model.Budget, error) {
	return s.c.update(id, func(b *model.Budget) error {
		if index < 0 || index >= len(b.Items) {
			return invalid("budget", fmt.Errorf("line %d out of range (budget has %d lines)", index, len(b.Items)))
		}
		b.Items = slices.Delete(b.Items, index, index+1)
		b.UpdatedAt = s.env.now()
		return nil
	})
}

// Delete removes the budget with the given id.
func (s *BudgetStore) Delete(id string) error { return s.c.remove(id) }

// Duplicate copies a budget under a new id and number, dated today and
// back in draft.
func (s *BudgetStore) Duplicate(id string) (model.Budget, error) {
	orig, ok := s.ByID(id)
	if !ok {
		return model.Budget{}, fmt.Errorf("%s %q: %w", TableBudgets, id, ErrNotFound)
	}
	now := s.env.now()
	dup := orig
	dup.ID = NewID("pres", now)
	dup.Date = s.env.today()
	dup.Status = model.BudgetDraft
	dup.CreatedAt = now
	dup.UpdatedAt = now
	return s.insert(dup)
}

// FromConteo creates a draft budget for client whose lines are the
// counted fixtures of a conteo, priced from the current catalog.
func (s *BudgetStore) FromConteo(conteoID string, client model.Client) (model.Budget, error) {
	c, ok := s.conteos.ByID(conteoID)
	if !ok {
		return model.Budget{}, fmt.Errorf("%s %q: %w", TableConteos, conteoID, ErrNotFound)
	}
	lines := calc.ConteoToBudget(calc.SumRooms(c.Rooms), s.prices.All())
	return s.Create(BudgetInput{Client: client, Items: lines, ObraID: c.ObraID})
}
