package report

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/Spok95/bom-console/internal/console"
	"github.com/Spok95/bom-console/internal/domain/catalog"
	"github.com/Spok95/bom-console/internal/domain/inventory"
	"github.com/Spok95/bom-console/internal/domain/lowstock"
	"github.com/Spok95/bom-console/internal/domain/materials"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// колонки листа остатков; restock_qty и cost_per_unit заполняет оператор
var materialsHeader = []interface{}{
	"material_id",
	"name",
	"sku",
	"category",
	"unit",
	"qty",
	"reorder_level",
	"cost",
	"status",
	"notify_state",
	"supplier",
	"restock_qty",
	"cost_per_unit",
}

const (
	colMaterialID  = 0
	colSupplier    = 10
	colRestockQty  = 11
	colCostPerUnit = 12
)

// Materials лист остатков. Его же можно заполнить и загрузить обратно как приход.
func Materials(items []materials.Material, stateOf func(materials.Material) lowstock.State) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if err := f.SetSheetRow(sheet, "A1", &materialsHeader); err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}

	for i, m := range items {
		state := lowstock.Normal
		if stateOf != nil {
			state = stateOf(m)
		}
		row := []interface{}{
			m.ID,
			m.Name,
			m.SKU,
			string(m.Category),
			m.Unit,
			m.QuantityOnHand.InexactFloat64(),
			m.ReorderLevel.InexactFloat64(),
			m.CostPerUnit.InexactFloat64(),
			string(m.Status()),
			state.String(),
			m.SupplierName,
			"",
			"",
		}
		if err := setRow(f, sheet, i+2, row); err != nil {
			return nil, err
		}
	}
	return write(f)
}

var productsHeader = []interface{}{
	"product_id",
	"model_name",
	"materials",
	"skills",
	"materials_cost",
	"labor_cost",
	"total_cost",
	"selling_price",
	"weight",
	"can_make",
}

func Products(views []console.ProductView) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if err := f.SetSheetRow(sheet, "A1", &productsHeader); err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}

	for i, v := range views {
		parts := make([]string, 0, len(v.Lines))
		for _, l := range v.Lines {
			name := v.LineNames[l.MaterialID]
			if name == "" {
				name = "#" + strconv.FormatInt(l.MaterialID, 10)
			}
			parts = append(parts, fmt.Sprintf("%s × %s", name, l.Quantity.String()))
		}
		row := []interface{}{
			v.ID,
			v.ModelName,
			strings.Join(parts, "; "),
			strings.Join(v.SkillNames(), ", "),
			v.MaterialsCost.Round(2).InexactFloat64(),
			v.LaborCost.Round(2).InexactFloat64(),
			v.TotalCost.Round(2).InexactFloat64(),
			v.SellingPrice.Round(2).InexactFloat64(),
			v.WeightKg.InexactFloat64(),
			v.CanMake,
		}
		if err := setRow(f, sheet, i+2, row); err != nil {
			return nil, err
		}
	}
	return write(f)
}

// RowError ошибка в конкретной строке загружаемого файла (номер как в Excel).
type RowError struct {
	Row    int
	Reason string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

// ParseRestock читает заполненный лист остатков: строки с restock_qty > 0
// превращаются в приходы. Пустой restock_qty пропускается.
func ParseRestock(data []byte) ([]inventory.Restock, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(f.GetSheetName(f.GetActiveSheetIndex()))
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, &RowError{Row: 1, Reason: "no data rows"}
	}
	if len(rows[0]) <= colRestockQty || strings.TrimSpace(rows[0][colRestockQty]) != "restock_qty" {
		return nil, &RowError{Row: 1, Reason: "restock_qty column not found"}
	}

	var out []inventory.Restock
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		qtyStr := cell(row, colRestockQty)
		if qtyStr == "" {
			continue
		}
		id, err := strconv.ParseInt(cell(row, colMaterialID), 10, 64)
		if err != nil || id <= 0 {
			return nil, &RowError{Row: i + 1, Reason: fmt.Sprintf("bad material_id %q", cell(row, colMaterialID))}
		}
		qty, err := parseNumber(qtyStr)
		if err != nil || !qty.IsPositive() {
			return nil, &RowError{Row: i + 1, Reason: fmt.Sprintf("bad restock_qty %q", qtyStr)}
		}
		cost := decimal.Zero
		if s := cell(row, colCostPerUnit); s != "" {
			if cost, err = parseNumber(s); err != nil || cost.IsNegative() {
				return nil, &RowError{Row: i + 1, Reason: fmt.Sprintf("bad cost_per_unit %q", s)}
			}
		}
		out = append(out, inventory.Restock{
			MaterialID:  id,
			Quantity:    qty,
			Location:    inventory.DefaultLocation,
			Supplier:    catalog.SupplierByName(cell(row, colSupplier)),
			CostPerUnit: cost,
		})
	}
	return out, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// parseNumber принимает и запятую как разделитель.
func parseNumber(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	c, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, c, &values); err != nil {
		return fmt.Errorf("row %d: %w", row, err)
	}
	return nil
}

func write(f *excelize.File) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
