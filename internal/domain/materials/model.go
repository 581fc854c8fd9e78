package materials

import (
	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryTool        Category = "Tool"
	CategoryComponent   Category = "Component"
	CategoryRawMaterial Category = "RawMaterial"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryTool, CategoryComponent, CategoryRawMaterial:
		return true
	}
	return false
}

type StockStatus string

const (
	StatusInStock    StockStatus = "in_stock"
	StatusLowStock   StockStatus = "low_stock"
	StatusOutOfStock StockStatus = "out_of_stock"
)

// Material позиция каталога материалов с текущим остатком.
type Material struct {
	ID             int64
	Name           string
	SKU            string
	Category       Category
	Unit           string
	CostPerUnit    decimal.Decimal
	QuantityOnHand decimal.Decimal
	ReorderLevel   decimal.Decimal
	SupplierID     *int64
	SupplierName   string
	EmailSentCount int
	// NotifiedLowStock флаг бэкенда: письмо о низком остатке уже уходило.
	NotifiedLowStock bool
}

// IsLow остаток на уровне дозаказа или ниже.
func (m Material) IsLow() bool {
	return m.QuantityOnHand.LessThanOrEqual(m.ReorderLevel)
}

func (m Material) Status() StockStatus {
	switch {
	case m.QuantityOnHand.IsZero():
		return StatusOutOfStock
	case m.IsLow():
		return StatusLowStock
	default:
		return StatusInStock
	}
}

// NewMaterial данные формы «Добавить материал».
type NewMaterial struct {
	Name         string          `json:"name"`
	SKU          string          `json:"sku"`
	Category     Category        `json:"category"`
	Unit         string          `json:"unit"`
	Quantity     decimal.Decimal `json:"quantity"`
	CostPerUnit  decimal.Decimal `json:"cost"`
	ReorderLevel decimal.Decimal `json:"reorder_level"`
	SupplierID   *int64          `json:"supplier_id,omitempty"`
	PhotoURL     string          `json:"photo_url,omitempty"`
}

// wire формат записи /products и /materials.
type record struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	SKU            string          `json:"sku"`
	Category       string          `json:"category"`
	Quantity       decimal.Decimal `json:"quantity"`
	Unit           string          `json:"unit"`
	Cost           decimal.Decimal `json:"cost"`
	ReorderLevel   decimal.Decimal `json:"reorder_level"`
	SupplierID     *int64          `json:"supplier_id"`
	SupplierName   *string         `json:"supplier_name"`
	EmailSentCount int             `json:"email_sent_count"`
}

func (r record) toMaterial() Material {
	m := Material{
		ID:               r.ID,
		Name:             r.Name,
		SKU:              r.SKU,
		Category:         Category(r.Category),
		Unit:             r.Unit,
		CostPerUnit:      r.Cost,
		QuantityOnHand:   r.Quantity,
		ReorderLevel:     r.ReorderLevel,
		SupplierID:       r.SupplierID,
		EmailSentCount:   r.EmailSentCount,
		NotifiedLowStock: r.EmailSentCount > 0,
	}
	if r.SupplierName != nil {
		m.SupplierName = *r.SupplierName
	}
	return m
}
