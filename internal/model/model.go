// Package model defines the records persisted by electripro: the price
// catalog, budgets, obras (job sites), conteos (fixture counts per room),
// plans and the configuration singleton.
//
// Field names follow the camelCase JSON layout already present in existing
// caches and backups, so records written by earlier versions of the tool
// decode without migration. Money is carried as decimal.Decimal; it is
// written as a JSON number, like the stored records, and accepted as either
// a number or a string.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// Category groups catalog items.
type Category string

const (
	CategoryBocas      Category = "bocas"
	CategoryTomas      Category = "tomas"
	CategoryCaneria    Category = "caneria"
	CategoryCajas      Category = "cajas"
	CategoryTableros   Category = "tableros"
	CategoryCableado   Category = "cableado"
	CategoryArtefactos Category = "artefactos"
	CategoryManoObra   Category = "mano_obra"
)

// Unit is the unit of measure of a catalog item.
type Unit string

const (
	UnitPiece Unit = "u"
	UnitMeter Unit = "ml"
	UnitDay   Unit = "día"
	UnitHour  Unit = "hr"
)

// BudgetStatus is the lifecycle state of a budget. Any transition is allowed.
type BudgetStatus string

const (
	BudgetDraft    BudgetStatus = "borrador"
	BudgetSent     BudgetStatus = "enviado"
	BudgetAccepted BudgetStatus = "aceptado"
	BudgetRejected BudgetStatus = "rechazado"
)

// BudgetStatuses lists every budget status in display order.
var BudgetStatuses = []BudgetStatus{BudgetDraft, BudgetSent, BudgetAccepted, BudgetRejected}

// ObraStatus is the lifecycle state of a job site.
type ObraStatus string

const (
	ObraQuoted    ObraStatus = "presupuestada"
	ObraActive    ObraStatus = "en_curso"
	ObraFinished  ObraStatus = "terminada"
	ObraCollected ObraStatus = "cobrada"
	ObraCancelled ObraStatus = "cancelada"
)

// ObraStatuses lists every obra status in display order.
var ObraStatuses = []ObraStatus{ObraQuoted, ObraActive, ObraFinished, ObraCollected, ObraCancelled}

// PriceItem is one entry of the price catalog. Code is the primary key.
type PriceItem struct {
	Code      string          `json:"code" validate:"required"`
	Category  Category        `json:"category" validate:"required,oneof=bocas tomas caneria cajas tableros cableado artefactos mano_obra"`
	Name      string          `json:"name" validate:"required"`
	Unit      Unit            `json:"unit" validate:"required,oneof=u ml día hr"`
	Cost      decimal.Decimal `json:"cost"`
	Price     decimal.Decimal `json:"price"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Client identifies the customer of a budget.
type Client struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email" validate:"omitempty,email"`
}

// BudgetLine is a single priced row of a budget.
type BudgetLine struct {
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Unit      Unit            `json:"unit"`
	Qty       decimal.Decimal `json:"qty"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Cost      decimal.Decimal `json:"cost"`
	Notes     string          `json:"notes"`
}

// Budget is a quote issued to a client.
type Budget struct {
	ID        string          `json:"id"`
	Number    int             `json:"number" validate:"gte=1"`
	Date      string          `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Validity  string          `json:"validity"`
	Client    Client          `json:"client"`
	Items     []BudgetLine    `json:"items"`
	IVA       decimal.Decimal `json:"iva"`
	Status    BudgetStatus    `json:"status" validate:"required,oneof=borrador enviado aceptado rechazado"`
	Notes     string          `json:"notes"`
	ObraID    string          `json:"obraId,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Obra is a job site tracked from quote to collection. The linked ids are
// loose references and are never enforced.
type Obra struct {
	ID              string          `json:"id"`
	Number          int             `json:"number" validate:"gte=1"`
	Client          string          `json:"client" validate:"required"`
	Address         string          `json:"address"`
	StartDate       string          `json:"startDate" validate:"omitempty,datetime=2006-01-02"`
	EndDate         string          `json:"endDate" validate:"omitempty,datetime=2006-01-02"`
	BudgetAmount    decimal.Decimal `json:"budgetAmount"`
	CollectedAmount decimal.Decimal `json:"collectedAmount"`
	Status          ObraStatus      `json:"status" validate:"required,oneof=presupuestada en_curso terminada cobrada cancelada"`
	TotalPoints     int             `json:"totalPoints" validate:"gte=0"`
	PresupuestoID   string          `json:"presupuestoId,omitempty"`
	ConteoID        string          `json:"conteoId,omitempty"`
	PlanID          string          `json:"planificacionId,omitempty"`
	Notes           string          `json:"notes"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// Room holds the fixture counts of one room of a blueprint.
type Room struct {
	Name      string `json:"name" validate:"required"`
	Bocas     int    `json:"bocas" validate:"gte=0"`
	TomasSimp int    `json:"tomasSimp" validate:"gte=0"`
	TomasDob  int    `json:"tomasDob" validate:"gte=0"`
	Tomas20   int    `json:"tomas20" validate:"gte=0"`
	CajasPaso int    `json:"cajasPaso" validate:"gte=0"`
	Cano34    int    `json:"cano34" validate:"gte=0"`
	Cano1     int    `json:"cano1" validate:"gte=0"`
	Obs       string `json:"obs"`
}

// Conteo is a room-by-room fixture count taken from a blueprint.
type Conteo struct {
	ID        string    `json:"id"`
	ObraID    string    `json:"obraId,omitempty"`
	Rooms     []Room    `json:"rooms" validate:"dive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PlanParams are the per-day productivity rates and daily wages used for
// labor planning.
type PlanParams struct {
	RendAmurado    decimal.Decimal `json:"rendAmurado"`
	RendCano       decimal.Decimal `json:"rendCano"`
	RendCableado   decimal.Decimal `json:"rendCableado"`
	RendArtefactos decimal.Decimal `json:"rendArtefactos"`
	CostoOficial   decimal.Decimal `json:"costoOficial"`
	CostoAyudante  decimal.Decimal `json:"costoAyudante"`
}

// Employees is the headcount assigned to each planning stage.
type Employees struct {
	Caneria    int `json:"caneria" validate:"gte=0"`
	Amurado    int `json:"amurado" validate:"gte=0"`
	Cableado   int `json:"cableado" validate:"gte=0"`
	Artefactos int `json:"artefactos" validate:"gte=0"`
}

// Plan is a labor plan for an obra.
type Plan struct {
	ID              string     `json:"id"`
	ObraID          string     `json:"obraId,omitempty"`
	Params          PlanParams `json:"params"`
	Employees       Employees  `json:"employees"`
	ArtefactosCount int        `json:"artefactosCount" validate:"gte=0"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// Config is the company-wide settings singleton.
type Config struct {
	CompanyName  string          `json:"companyName"`
	CUIT         string          `json:"cuit"`
	Address      string          `json:"address"`
	Phone        string          `json:"phone"`
	Email        string          `json:"email" validate:"omitempty,email"`
	Logo         *string         `json:"logo"`
	IVADefault   decimal.Decimal `json:"ivaDefault"`
	Currency     string          `json:"currency"`
	Rendimientos PlanParams      `json:"rendimientos"`
}
