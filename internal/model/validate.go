package model

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func nonNegative(field string, d decimal.Decimal) error {
	if d.IsNegative() {
		return fmt.Errorf("%s must not be negative, got %s", field, d.String())
	}
	return nil
}

// Validate checks the catalog item's required fields and amounts.
func (p PriceItem) Validate() error {
	if err := validate.Struct(p); err != nil {
		return err
	}
	if err := nonNegative("cost", p.Cost); err != nil {
		return err
	}
	return nonNegative("price", p.Price)
}

// Validate checks the budget status, date and line quantities.
func (b Budget) Validate() error {
	if err := validate.Struct(b); err != nil {
		return err
	}
	if err := nonNegative("iva", b.IVA); err != nil {
		return err
	}
	for i, line := range b.Items {
		if err := nonNegative(fmt.Sprintf("items[%d].qty", i), line.Qty); err != nil {
			return err
		}
		if err := nonNegative(fmt.Sprintf("items[%d].unitPrice", i), line.UnitPrice); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the obra's client, dates, status and amounts.
func (o Obra) Validate() error {
	if err := validate.Struct(o); err != nil {
		return err
	}
	if err := nonNegative("budgetAmount", o.BudgetAmount); err != nil {
		return err
	}
	return nonNegative("collectedAmount", o.CollectedAmount)
}

// Validate checks that every room count is non-negative.
func (c Conteo) Validate() error {
	return validate.Struct(c)
}

// Validate checks a single room.
func (r Room) Validate() error {
	return validate.Struct(r)
}

// Validate checks rates, wages and headcounts.
func (p Plan) Validate() error {
	if err := validate.Struct(p); err != nil {
		return err
	}
	return p.Params.Validate()
}

// Validate rejects negative rates or wages.
func (p PlanParams) Validate() error {
	for name, d := range map[string]decimal.Decimal{
		"rendAmurado":    p.RendAmurado,
		"rendCano":       p.RendCano,
		"rendCableado":   p.RendCableado,
		"rendArtefactos": p.RendArtefactos,
		"costoOficial":   p.CostoOficial,
		"costoAyudante":  p.CostoAyudante,
	} {
		if err := nonNegative(name, d); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the configuration singleton.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if err := nonNegative("ivaDefault", c.IVADefault); err != nil {
		return err
	}
	return c.Rendimientos.Validate()
}
