package report

import (
	"bytes"
	"errors"
	"testing"

	"github.com/Spok95/bom-console/internal/console"
	"github.com/Spok95/bom-console/internal/domain/bom"
	"github.com/Spok95/bom-console/internal/domain/catalog"
	"github.com/Spok95/bom-console/internal/domain/lowstock"
	"github.com/Spok95/bom-console/internal/domain/materials"
	"github.com/Spok95/bom-console/internal/domain/products"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sample() []materials.Material {
	return []materials.Material{
		{ID: 1, Name: "Plank", SKU: "PL-1", Category: materials.CategoryRawMaterial, Unit: "pcs",
			QuantityOnHand: d("10"), ReorderLevel: d("2"), CostPerUnit: d("2.5"), SupplierName: "Acme"},
		{ID: 2, Name: "Screw", SKU: "SC-1", Category: materials.CategoryComponent, Unit: "pcs",
			QuantityOnHand: d("0"), ReorderLevel: d("5"), CostPerUnit: d("0.1")},
	}
}

func fill(t *testing.T, data []byte, cells map[string]string) []byte {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	for c, v := range cells {
		require.NoError(t, f.SetCellValue(sheet, c, v))
	}
	buf := &bytes.Buffer{}
	require.NoError(t, f.Write(buf))
	return buf.Bytes()
}

func TestMaterialsWorkbook(t *testing.T) {
	data, err := Materials(sample(), func(m materials.Material) lowstock.State {
		return lowstock.StateOf(m, nil)
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(f.GetSheetName(f.GetActiveSheetIndex()))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "restock_qty", rows[0][11])
	assert.Equal(t, "Plank", rows[1][1])
	assert.Equal(t, "in_stock", rows[1][8])
	assert.Equal(t, "out_of_stock", rows[2][8])
	assert.Equal(t, "low_pending_notify", rows[2][9])
}

func TestParseRestockRoundTrip(t *testing.T) {
	data, err := Materials(sample(), nil)
	require.NoError(t, err)

	data = fill(t, data, map[string]string{"L3": "12,5", "M3": "0.09"})
	got, err := ParseRestock(data)
	require.NoError(t, err)
	require.Len(t, got, 1)

	rs := got[0]
	assert.Equal(t, int64(2), rs.MaterialID)
	assert.True(t, rs.Quantity.Equal(d("12.5")))
	assert.True(t, rs.CostPerUnit.Equal(d("0.09")))
	assert.True(t, rs.Supplier.IsUndecided())
}

func TestParseRestockSupplierFromSheet(t *testing.T) {
	data, err := Materials(sample(), nil)
	require.NoError(t, err)

	got, err := ParseRestock(fill(t, data, map[string]string{"L2": "3"}))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Supplier.Equal(catalog.SupplierByName("Acme")))
}

func TestParseRestockErrors(t *testing.T) {
	data, err := Materials(sample(), nil)
	require.NoError(t, err)

	cases := map[string]map[string]string{
		"negative qty": {"L2": "-1"},
		"text qty":     {"L2": "lots"},
		"bad cost":     {"L2": "1", "M2": "-3"},
		"bad id":       {"A2": "x", "L2": "1"},
	}
	for name, cells := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseRestock(fill(t, data, cells))
			var re *RowError
			require.True(t, errors.As(err, &re), "got %v", err)
			assert.Equal(t, 2, re.Row)
		})
	}

	_, err = ParseRestock([]byte("not a workbook"))
	require.Error(t, err)
}

func TestProductsWorkbook(t *testing.T) {
	views := []console.ProductView{{
		Product: products.Product{
			ID: 4, ModelName: "Stool",
			Lines:         []bom.Line{{MaterialID: 1, Quantity: d("4")}, {MaterialID: 9, Quantity: d("1")}},
			LineNames:     map[int64]string{1: "Plank"},
			Skills:        []catalog.SkillRef{{Name: "Carpentry"}},
			MaterialsCost: d("10"), LaborCost: d("45"), TotalCost: d("55"), WeightKg: d("3"),
		},
		CanMake:      2,
		SellingPrice: d("66"),
	}}
	data, err := Products(views)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows(f.GetSheetName(f.GetActiveSheetIndex()))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Plank × 4; #9 × 1", rows[1][2])
	assert.Equal(t, "Carpentry", rows[1][3])
	assert.Equal(t, "2", rows[1][9])
}
