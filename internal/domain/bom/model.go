package bom

import (
	"errors"

	"github.com/Spok95/bom-console/internal/domain/materials"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidQuantity    = errors.New("quantity must be > 0")
	ErrUnresolvedMaterial = errors.New("material not found in catalog")
	ErrLineIndex          = errors.New("bom line index out of range")
)

// Line строка спецификации: материал и сколько его уходит на одно изделие.
type Line struct {
	MaterialID int64           `json:"material_id"`
	Quantity   decimal.Decimal `json:"quantity"`
}

// Catalog откуда берём актуальную цену материала (обычно inventory.Snapshot).
type Catalog interface {
	FindByID(id int64) (materials.Material, bool)
}

// StockLookup откуда берём текущий остаток.
type StockLookup interface {
	Stock(id int64) (decimal.Decimal, bool)
}

type Totals struct {
	MaterialsCost decimal.Decimal `json:"materials_cost"`
	LaborCost     decimal.Decimal `json:"labor_cost"`
	TotalCost     decimal.Decimal `json:"total_cost"`
}

// LineCost строка для показа: что за материал, почём и на сколько.
type LineCost struct {
	Line
	Name     string          `json:"name"`
	Unit     string          `json:"unit"`
	UnitCost decimal.Decimal `json:"unit_cost"`
	Cost     decimal.Decimal `json:"cost"`
	Resolved bool            `json:"resolved"`
}
