package materials

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestStatus(t *testing.T) {
	cases := []struct {
		name    string
		qty     string
		reorder string
		want    StockStatus
		low     bool
	}{
		{"empty", "0", "5", StatusOutOfStock, true},
		{"empty with zero reorder", "0", "0", StatusOutOfStock, true},
		{"at reorder level", "5", "5", StatusLowStock, true},
		{"below reorder level", "2.5", "5", StatusLowStock, true},
		{"above reorder level", "6", "5", StatusInStock, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := Material{QuantityOnHand: d(tc.qty), ReorderLevel: d(tc.reorder)}
			assert.Equal(t, tc.want, m.Status())
			assert.Equal(t, tc.low, m.IsLow())
		})
	}
}

func TestRecordToMaterial(t *testing.T) {
	raw := `{"id": 4, "name": "Glue", "sku": "GL-1", "category": "Component", "quantity": 3,
		"unit": "ml", "cost": "1.25", "reorder_level": 2, "supplier_id": 9,
		"supplier_name": "Acme", "email_sent_count": 2}`
	var rec record
	require.NoError(t, json.Unmarshal([]byte(raw), &rec))

	m := rec.toMaterial()
	assert.Equal(t, int64(4), m.ID)
	assert.Equal(t, CategoryComponent, m.Category)
	assert.True(t, m.CostPerUnit.Equal(d("1.25")))
	require.NotNil(t, m.SupplierID)
	assert.Equal(t, int64(9), *m.SupplierID)
	assert.Equal(t, "Acme", m.SupplierName)
	assert.True(t, m.NotifiedLowStock)

	var bare record
	require.NoError(t, json.Unmarshal([]byte(`{"id": 5, "supplier_name": null, "email_sent_count": 0}`), &bare))
	m = bare.toMaterial()
	assert.False(t, m.NotifiedLowStock)
	assert.Nil(t, m.SupplierID)
	assert.Empty(t, m.SupplierName)
}

func TestNewMaterialValidate(t *testing.T) {
	cases := []struct {
		name  string
		in    NewMaterial
		field string
	}{
		{"no name", NewMaterial{SKU: "A"}, "name"},
		{"blank sku", NewMaterial{Name: "Glue", SKU: "  "}, "sku"},
		{"bad category", NewMaterial{Name: "Glue", SKU: "A", Category: "Food"}, "category"},
		{"negative quantity", NewMaterial{Name: "Glue", SKU: "A", Quantity: d("-1")}, "quantity"},
		{"negative cost", NewMaterial{Name: "Glue", SKU: "A", CostPerUnit: d("-1")}, "cost"},
		{"negative reorder", NewMaterial{Name: "Glue", SKU: "A", ReorderLevel: d("-1")}, "reorder_level"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.in.Validate()
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tc.field, ve.Field)
		})
	}

	ok := NewMaterial{Name: " Glue ", SKU: "GL-1"}
	require.NoError(t, ok.Validate())
	assert.Equal(t, "Glue", ok.Name)
	assert.Equal(t, CategoryComponent, ok.Category)
	assert.Equal(t, "units", ok.Unit)
}
