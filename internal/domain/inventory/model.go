package inventory

import (
	"encoding/json"

	"github.com/Spok95/bom-console/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

type MoveType string

const (
	MoveIn  MoveType = "stock_in"
	MoveOut MoveType = "stock_out"
)

const DefaultLocation = "Main Warehouse"

type Transaction struct {
	ID         int64
	Type       MoveType
	MaterialID int64
	Quantity   decimal.Decimal
	Location   string
	Supplier   catalog.SupplierRef
	Date       string
	Note       string
}

// UnmarshalJSON бэкенд отдаёт то supplier_id, то только имя поставщика.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	var w struct {
		ID         int64               `json:"id"`
		Type       MoveType            `json:"type"`
		ProductID  int64               `json:"product_id"`
		Quantity   decimal.Decimal     `json:"quantity"`
		Location   string              `json:"location"`
		Date       string              `json:"date"`
		Notes      string              `json:"notes"`
		SupplierID *int64              `json:"supplier_id"`
		Supplier   catalog.SupplierRef `json:"supplier"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*t = Transaction{
		ID:         w.ID,
		Type:       w.Type,
		MaterialID: w.ProductID,
		Quantity:   w.Quantity,
		Location:   w.Location,
		Supplier:   w.Supplier,
		Date:       w.Date,
		Note:       w.Notes,
	}
	if w.SupplierID != nil && *w.SupplierID > 0 {
		t.Supplier = catalog.SupplierByID(*w.SupplierID)
	}
	return nil
}

// Restock приход на склад (stock_in).
type Restock struct {
	MaterialID  int64               `json:"product_id"`
	Quantity    decimal.Decimal     `json:"quantity"`
	Location    string              `json:"location"`
	Supplier    catalog.SupplierRef `json:"supplier"`
	CostPerUnit decimal.Decimal     `json:"cost_per_unit"`
}
