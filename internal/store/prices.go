package store

import (
	"context"
	"strings"

	"github.com/electripro/electripro/internal/model"
	"github.com/shopspring/decimal"
)

// PriceStore is the price catalog, keyed by code.
type PriceStore struct {
	c   *collection[model.PriceItem]
	env *env
}

func newPriceStore(e *env) *PriceStore {
	return &PriceStore{
		c:   newCollection(e, TablePrices, "code", func(p model.PriceItem) string { return p.Code }, nil),
		env: e,
	}
}

func (s *PriceStore) load(ctx context.Context) { s.c.load(ctx) }

// Len reports the number of catalog items.
func (s *PriceStore) Len() int { return s.c.len() }

// All returns every catalog item in catalog order.
func (s *PriceStore) All() []model.PriceItem { return s.c.all() }

// ByCode returns the item with the given code.
func (s *PriceStore) ByCode(code string) (model.PriceItem, bool) { return s.c.get(code) }

// ByCategory returns the items of one category.
func (s *PriceStore) ByCategory(cat model.Category) []model.PriceItem {
	return s.c.filter(func(p model.PriceItem) bool { return p.Category == cat })
}

// Add appends a new item. The code must be unused.
func (s *PriceStore) Add(item model.PriceItem) (model.PriceItem, error) {
	item.Code = strings.TrimSpace(item.Code)
	item.UpdatedAt = s.env.now()
	if err := item.Validate(); err != nil {
		return model.PriceItem{}, invalid("price item", err)
	}
	return s.c.create(func([]model.PriceItem) (model.PriceItem, error) { return item, nil })
}

// PriceUpdate holds the fields to change; nil fields are left alone.
type PriceUpdate struct {
	Category *model.Category
	Name     *string
	Unit     *model.Unit
	Cost     *decimal.Decimal
	Price    *decimal.Decimal
}

// Update changes the item with the given code.
func (s *PriceStore) Update(code string, u PriceUpdate) (model.PriceItem, error) {
	return s.c.update(code, func(p *model.PriceItem) error {
		if u.Category != nil {
			p.Category = *u.Category
		}
		if u.Name != nil {
			p.Name = *u.Name
		}
		if u.Unit != nil {
			p.Unit = *u.Unit
		}
		if u.Cost != nil {
			p.Cost = *u.Cost
		}
		if u.Price != nil {
			p.Price = *u.Price
		}
		p.UpdatedAt = s.env.now()
		return invalid("price item", p.Validate())
	})
}

// Delete removes the item with the given code.
func (s *PriceStore) Delete(code string) error { return s.c.remove(code) }

// ResetToDefaults replaces the whole catalog with the default one.
func (s *PriceStore) ResetToDefaults(ctx context.Context) error {
	items := model.DefaultPrices()
	now := s.env.now()
	for i := range items {
		items[i].UpdatedAt = now
	}
	return s.c.replace(ctx, items)
}

// NextCode suggests the next free code for prefix, e.g. "BL-005".
func (s *PriceStore) NextCode(prefix string) string {
	prefix = strings.ToUpper(strings.TrimSuffix(prefix, "-"))
	var codes []string
	for _, p := range s.c.all() {
		if strings.HasPrefix(p.Code, prefix+"-") {
			codes = append(codes, p.Code)
		}
	}
	return NextCode(prefix, codes)
}

// CodePrefix returns the code prefix used by existing items of cat, or ""
// when the category is empty.
func (s *PriceStore) CodePrefix(cat model.Category) string {
	for _, p := range s.ByCategory(cat) {
		if i := strings.LastIndex(p.Code, "-"); i > 0 {
			return p.Code[:i]
		}
	}
	return ""
}
