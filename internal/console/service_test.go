package console

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Spok95/bom-console/internal/domain/bom"
	"github.com/Spok95/bom-console/internal/domain/catalog"
	"github.com/Spok95/bom-console/internal/domain/inventory"
	"github.com/Spok95/bom-console/internal/domain/labor"
	"github.com/Spok95/bom-console/internal/domain/lowstock"
	"github.com/Spok95/bom-console/internal/domain/materials"
	"github.com/Spok95/bom-console/internal/domain/products"
	"github.com/Spok95/bom-console/internal/infra/backend"
	"github.com/Spok95/bom-console/internal/infra/backend/backendtest"
	"github.com/Spok95/bom-console/internal/infra/cache"
	"github.com/Spok95/bom-console/internal/infra/logger"
	"github.com/Spok95/bom-console/internal/infra/webhook"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type env struct {
	svc      *Service
	be       *backendtest.Server
	webhooks *atomic.Int32
}

func newEnv(t *testing.T) env {
	t.Helper()
	be := backendtest.New(t)
	be.AddProduct(backendtest.Record{
		"id": 1, "name": "Plank", "sku": "PL-1", "category": "RawMaterial", "unit": "pcs",
		"quantity": 10, "cost": 2.5, "reorder_level": 2, "supplier_id": 3,
	})
	be.AddProduct(backendtest.Record{
		"id": 2, "name": "Screw", "sku": "SC-1", "category": "Component", "unit": "pcs",
		"quantity": 3, "cost": 0.1, "reorder_level": 5, "supplier_id": 3,
	})
	be.AddSupplier(backendtest.Record{"id": 3, "name": "Acme", "email": "orders@acme.test"})
	be.Rates["Carpentry"] = 25

	hits := &atomic.Int32{}
	hook := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { hits.Add(1) }))
	t.Cleanup(hook.Close)

	log := logger.Discard()
	api := backend.New(be.URL, time.Second)
	matRepo := materials.NewRepo(api)
	invRepo := inventory.NewRepo(api)
	catRepo := catalog.NewRepo(api)
	store := inventory.NewStore(matRepo, log)

	svc := New(Deps{
		Log:       log,
		Materials: matRepo,
		Inventory: invRepo,
		Catalog:   catRepo,
		Products:  products.NewRepo(api, log),
		Labor:     labor.NewService(api, cache.NewMemory(), time.Minute, log),
		Store:     store,
		Notifier: lowstock.NewNotifier(
			webhook.New(hook.URL, time.Second), matRepo, catRepo, invRepo,
			lowstock.NewNotifiedSet(), 5, log,
		),
		Debounce: 25 * time.Millisecond,
	})
	svc.Refresh(context.Background())
	return env{svc: svc, be: be, webhooks: hits}
}

func TestQuote(t *testing.T) {
	e := newEnv(t)

	q, err := e.svc.Quote(context.Background(), QuoteRequest{
		Lines:          []bom.Line{{MaterialID: 1, Quantity: d("2")}, {MaterialID: 2, Quantity: d("1")}},
		Skills:         []string{"Carpentry"},
		EstimatedHours: d("2"),
	})
	require.NoError(t, err)

	assert.True(t, q.MaterialsCost.Equal(d("5.1")))
	assert.True(t, q.LaborCost.Equal(d("50")))
	assert.True(t, q.TotalCost.Equal(d("55.1")))
	assert.Equal(t, int64(3), q.CanMake)
	assert.True(t, q.SellingPrice.Equal(d("66.12")))
	require.Len(t, q.Lines, 2)
	assert.Equal(t, "Plank", q.Lines[0].Name)
}

func TestQuoteLaborFailureKeepsMaterials(t *testing.T) {
	e := newEnv(t)
	e.be.FailLabor = true

	q, err := e.svc.Quote(context.Background(), QuoteRequest{
		Lines:          []bom.Line{{MaterialID: 1, Quantity: d("2")}},
		Skills:         []string{"Carpentry"},
		EstimatedHours: d("2"),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, q.LaborError)
	assert.True(t, q.LaborCost.IsZero())
	assert.True(t, q.TotalCost.Equal(d("5")))
}

func TestQuoteRejectsHoursBeforeRequest(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.Quote(context.Background(), QuoteRequest{
		Lines:  []bom.Line{{MaterialID: 1, Quantity: d("1")}},
		Skills: []string{"Carpentry"},
	})
	require.ErrorIs(t, err, labor.ErrInvalidHours)
	assert.Zero(t, e.be.LaborCalls())

	// без навыков часы не нужны
	q, err := e.svc.Quote(context.Background(), QuoteRequest{Lines: []bom.Line{{MaterialID: 1, Quantity: d("1")}}})
	require.NoError(t, err)
	assert.True(t, q.TotalCost.Equal(d("2.5")))
}

func TestQuoteRejectsBadLine(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.Quote(context.Background(), QuoteRequest{Lines: []bom.Line{{MaterialID: 99, Quantity: d("1")}}})
	require.ErrorIs(t, err, bom.ErrUnresolvedMaterial)
}

func TestRestockClearsNotifiedAndReloads(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	rep := e.svc.ScanLowStock(ctx)
	require.Len(t, rep.Delivered(), 1)
	assert.Equal(t, int32(1), e.webhooks.Load())
	assert.Len(t, e.be.Posts("/products/2/increment-email-count"), 1)

	screw, _ := e.svc.Material(2)
	assert.Equal(t, lowstock.Notified, e.svc.StateOf(screw))

	err := e.svc.Restock(ctx, inventory.Restock{
		MaterialID: 2, Quantity: d("20"), Supplier: catalog.SupplierByID(3), CostPerUnit: d("0.1"),
	})
	require.NoError(t, err)

	screw, ok := e.svc.Material(2)
	require.True(t, ok)
	assert.True(t, screw.QuantityOnHand.Equal(d("23")))
	assert.False(t, e.svc.notifier.Set().WasNotified(2))

	posted := e.be.Posts("/transactions")
	require.Len(t, posted, 1)
	assert.Equal(t, "stock_in", posted[0]["type"])
	assert.Equal(t, inventory.DefaultLocation, posted[0]["location"])
	assert.Equal(t, float64(3), posted[0]["supplier_id"])
}

func TestRestockBatchLoadsOnce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.svc.ScanLowStock(ctx)
	require.True(t, e.svc.notifier.Set().WasNotified(2))

	productReads, supplierReads := e.be.Gets("/products"), e.be.Gets("/suppliers")
	done, err := e.svc.RestockBatch(ctx, []inventory.Restock{
		{MaterialID: 1, Quantity: d("5"), Supplier: catalog.SupplierByName("acme")},
		{MaterialID: 2, Quantity: d("7"), Supplier: catalog.SupplierByName("Acme")},
		{MaterialID: 99, Quantity: d("1"), Supplier: catalog.SupplierByName("Nobody")},
	})
	assert.Equal(t, 3, done)
	require.NoError(t, err)

	assert.Equal(t, 1, e.be.Gets("/suppliers")-supplierReads)
	assert.Equal(t, 1, e.be.Gets("/products")-productReads)

	posted := e.be.Posts("/transactions")
	require.Len(t, posted, 3)
	assert.Equal(t, float64(3), posted[0]["supplier_id"])
	assert.Equal(t, float64(3), posted[1]["supplier_id"])
	assert.Equal(t, "Nobody", posted[2]["supplier"])

	screw, _ := e.svc.Material(2)
	assert.True(t, screw.QuantityOnHand.Equal(d("10")))
	assert.False(t, e.svc.notifier.Set().WasNotified(2))
}

func TestRestockBatchKeepsGoingAfterFailure(t *testing.T) {
	e := newEnv(t)
	done, err := e.svc.RestockBatch(context.Background(), []inventory.Restock{
		{MaterialID: 1, Quantity: d("-1")},
		{MaterialID: 2, Quantity: d("4")},
	})
	assert.Equal(t, 1, done)
	var ve *materials.ValidationError
	require.True(t, errors.As(err, &ve), "got %v", err)
	assert.Equal(t, "quantity", ve.Field)
	screw, _ := e.svc.Material(2)
	assert.True(t, screw.QuantityOnHand.Equal(d("7")))
}

func TestScanLowStockBackendDown(t *testing.T) {
	e := newEnv(t)
	e.be.SetFailAll(true)

	rep := e.svc.ScanLowStock(context.Background())
	assert.Equal(t, 0, rep.Scanned)
	assert.Empty(t, e.svc.Materials())
	assert.Equal(t, int32(0), e.webhooks.Load())
}

func TestAddMaterialValidation(t *testing.T) {
	e := newEnv(t)
	err := e.svc.AddMaterial(context.Background(), materials.NewMaterial{Name: "Glue"})
	var ve *materials.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "sku", ve.Field)
	assert.Empty(t, e.be.Posts("/products"))

	require.NoError(t, e.svc.AddMaterial(context.Background(), materials.NewMaterial{
		Name: "Glue", SKU: "GL-1", Quantity: d("4"), CostPerUnit: d("3"), ReorderLevel: d("1"),
	}))
	assert.Len(t, e.svc.Materials(), 3)
}

func TestSaveProductComputesTotals(t *testing.T) {
	e := newEnv(t)
	id, err := e.svc.SaveProduct(context.Background(), ProductInput{
		ModelName:      "Stool",
		Lines:          []bom.Line{{MaterialID: 1, Quantity: d("4")}},
		Skills:         []string{"Carpentry", "Sanding"},
		EstimatedHours: d("1"),
		WeightKg:       d("3"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	posted := e.be.Posts("/finished_products")
	require.Len(t, posted, 1)
	assert.Equal(t, float64(10), posted[0]["materials_cost"])
	assert.Equal(t, float64(45), posted[0]["labor_cost"])
	assert.Equal(t, float64(55), posted[0]["total_cost"])
	assert.Equal(t, float64(20), posted[0]["profit_margin_percent"])
}

func TestSaveProductLaborFailure(t *testing.T) {
	e := newEnv(t)
	e.be.FailLabor = true
	_, err := e.svc.SaveProduct(context.Background(), ProductInput{
		ModelName:      "Stool",
		Lines:          []bom.Line{{MaterialID: 1, Quantity: d("4")}},
		Skills:         []string{"Carpentry"},
		EstimatedHours: d("1"),
		WeightKg:       d("3"),
	})
	require.ErrorIs(t, err, labor.ErrCalculationFailed)
	assert.Empty(t, e.be.Posts("/finished_products"))
}

func TestProductsCanMake(t *testing.T) {
	e := newEnv(t)
	e.be.AddFinished(backendtest.Record{
		"id": 1, "model_name": "Shelf", "total_cost": 100, "materials_cost": 10, "labor_cost": 90,
		"skills": []string{"Carpentry"}, "weight": 5,
		"materials_json": `[{"material_id": 1, "name": "Plank", "quantity": 3}]`,
	})
	e.be.AddFinished(backendtest.Record{
		"id": 2, "model_name": "Ghost", "total_cost": 0, "materials_cost": 0, "labor_cost": 0,
		"skills": []string{}, "weight": 1, "materials_json": nil,
	})

	list := e.svc.Products(context.Background())
	require.Len(t, list, 2)
	assert.Equal(t, int64(3), list[0].CanMake)
	assert.True(t, list[0].SellingPrice.Equal(d("120")))
	assert.Equal(t, int64(0), list[1].CanMake)
}

func TestScanFallsBackToMostFrequentSupplier(t *testing.T) {
	e := newEnv(t)
	e.be.AddSupplier(backendtest.Record{"id": 7, "name": "Birch Co", "email": "sales@birch.test"})
	e.be.AddProduct(backendtest.Record{
		"id": 5, "name": "Dowel", "sku": "DW-1", "category": "Component", "unit": "pcs",
		"quantity": 1, "cost": 0.2, "reorder_level": 4,
	})
	e.be.AddTransaction(backendtest.Record{"id": 1, "type": "stock_in", "product_id": 5, "quantity": 10, "supplier_id": 7})
	e.be.AddTransaction(backendtest.Record{"id": 2, "type": "stock_in", "product_id": 5, "quantity": 5, "supplier": "Birch Co"})
	e.be.AddTransaction(backendtest.Record{"id": 3, "type": "stock_in", "product_id": 5, "quantity": 5, "supplier_id": 3})
	e.svc.Refresh(context.Background())

	rep := e.svc.ScanLowStock(context.Background())
	var dowel lowstock.Entry
	for _, en := range rep.Entries {
		if en.MaterialID == 5 {
			dowel = en
		}
	}
	require.True(t, dowel.Delivered(), "%+v", dowel)
	require.NotNil(t, dowel.Supplier)
	assert.Equal(t, int64(7), dowel.Supplier.ID)
}
