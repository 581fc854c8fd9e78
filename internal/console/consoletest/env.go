// Package consoletest собирает console.Service поверх поддельного бэкенда.
package consoletest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Spok95/bom-console/internal/console"
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
)

type Env struct {
	Svc      *console.Service
	Backend  *backendtest.Server
	Notifier *lowstock.Notifier
	// Webhooks сколько писем ушло на вебхук рассылки.
	Webhooks *atomic.Int32
}

// New каталог: 1 Plank (10 шт, мин. 2, 2.5), 2 Screw (3 шт, мин. 5, 0.1),
// поставщик 3 Acme, склад 1 Main Warehouse, навык 1 Carpentry по 25/ч.
func New(t testing.TB) Env {
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
	be.AddWarehouse(backendtest.Record{"id": 1, "name": "Main Warehouse", "location": "Riga"})
	be.AddSkill(backendtest.Record{"id": 1, "name": "Carpentry"})
	be.Rates["Carpentry"] = 25

	hits := &atomic.Int32{}
	hook := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { hits.Add(1) }))
	t.Cleanup(hook.Close)

	log := logger.Discard()
	client := backend.New(be.URL, time.Second)
	matRepo := materials.NewRepo(client)
	invRepo := inventory.NewRepo(client)
	catRepo := catalog.NewRepo(client)
	notifier := lowstock.NewNotifier(
		webhook.New(hook.URL, time.Second), matRepo, catRepo, invRepo,
		lowstock.NewNotifiedSet(), 5, log,
	)

	svc := console.New(console.Deps{
		Log:       log,
		Materials: matRepo,
		Inventory: invRepo,
		Catalog:   catRepo,
		Products:  products.NewRepo(client, log),
		Labor:     labor.NewService(client, cache.NewMemory(), time.Minute, log),
		Store:     inventory.NewStore(matRepo, log),
		Notifier:  notifier,
		Debounce:  10 * time.Millisecond,
	})
	svc.Refresh(context.Background())
	return Env{Svc: svc, Backend: be, Notifier: notifier, Webhooks: hits}
}
