package model

import (
	_ "embed"
	"fmt"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// ConfigID is the remote row id of the configuration singleton.
const ConfigID = "main"

//go:embed defaults.yaml
var defaultsYAML []byte

// CategoryInfo pairs a category with its display name.
type CategoryInfo struct {
	ID   Category `yaml:"id"`
	Name string   `yaml:"name"`
}

type priceSeed struct {
	Code     string   `yaml:"code"`
	Category Category `yaml:"category"`
	Name     string   `yaml:"name"`
	Unit     Unit     `yaml:"unit"`
	Cost     int64    `yaml:"cost"`
	Price    int64    `yaml:"price"`
}

type seeds struct {
	Categories []CategoryInfo       `yaml:"categories"`
	Prices     []priceSeed          `yaml:"prices"`
	Rooms      []string             `yaml:"rooms"`
	Planning   map[string]int64     `yaml:"planning"`
	Config     map[string]yaml.Node `yaml:"config"`
}

var defaults = mustLoadDefaults()

func mustLoadDefaults() seeds {
	var s seeds
	if err := yaml.Unmarshal(defaultsYAML, &s); err != nil {
		panic(fmt.Sprintf("model: invalid embedded defaults: %v", err))
	}
	return s
}

// Categories returns the eight catalog categories in display order.
func Categories() []CategoryInfo {
	return append([]CategoryInfo(nil), defaults.Categories...)
}

// CategoryName returns the display name of c, or c itself when unknown.
func CategoryName(c Category) string {
	for _, info := range defaults.Categories {
		if info.ID == c {
			return info.Name
		}
	}
	return string(c)
}

// DefaultPrices returns a fresh copy of the default price catalog.
func DefaultPrices() []PriceItem {
	items := make([]PriceItem, 0, len(defaults.Prices))
	for _, p := range defaults.Prices {
		items = append(items, PriceItem{
			Code:     p.Code,
			Category: p.Category,
			Name:     p.Name,
			Unit:     p.Unit,
			Cost:     decimal.NewFromInt(p.Cost),
			Price:    decimal.NewFromInt(p.Price),
		})
	}
	return items
}

// DefaultRoomNames returns the rooms a new conteo starts with.
func DefaultRoomNames() []string {
	return append([]string(nil), defaults.Rooms...)
}

// NewRoom returns an empty room called name.
func NewRoom(name string) Room {
	return Room{Name: name}
}

// DefaultRooms returns empty rooms for every default room name.
func DefaultRooms() []Room {
	rooms := make([]Room, 0, len(defaults.Rooms))
	for _, name := range defaults.Rooms {
		rooms = append(rooms, NewRoom(name))
	}
	return rooms
}

// DefaultPlanParams returns the default productivity rates and wages.
func DefaultPlanParams() PlanParams {
	p := defaults.Planning
	return PlanParams{
		RendAmurado:    decimal.NewFromInt(p["rendAmurado"]),
		RendCano:       decimal.NewFromInt(p["rendCano"]),
		RendCableado:   decimal.NewFromInt(p["rendCableado"]),
		RendArtefactos: decimal.NewFromInt(p["rendArtefactos"]),
		CostoOficial:   decimal.NewFromInt(p["costoOficial"]),
		CostoAyudante:  decimal.NewFromInt(p["costoAyudante"]),
	}
}

// DefaultEmployees returns the default headcount per planning stage.
func DefaultEmployees() Employees {
	return Employees{Caneria: 2, Amurado: 2, Cableado: 2, Artefactos: 1}
}

// DefaultArtefactosCount is the fixture count a new plan starts with.
const DefaultArtefactosCount = 10

// DefaultConfig returns the configuration used before anything is saved.
func DefaultConfig() Config {
	cfg := Config{
		IVADefault:   decimal.NewFromInt(21),
		Rendimientos: DefaultPlanParams(),
	}
	if n, ok := defaults.Config["companyName"]; ok {
		cfg.CompanyName = n.Value
	}
	if n, ok := defaults.Config["currency"]; ok {
		cfg.Currency = n.Value
	}
	if n, ok := defaults.Config["ivaDefault"]; ok {
		if d, err := decimal.NewFromString(n.Value); err == nil {
			cfg.IVADefault = d
		}
	}
	return cfg
}
